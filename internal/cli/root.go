// Package cli implements the command-line interface.
package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/donseba/selq/session"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var (
	configPath  string
	dialectName string
	paramFlags  []string
	execFiles   []string
)

var rootCmd = &cobra.Command{
	Use:   "selq",
	Short: "selq - compile and run YAML described SELECT statements",
	Long: `selq builds SELECT statements from YAML query files, tracking which
joined sources may be NULL and shaping rows into nested objects.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "session config file (YAML)")
	rootCmd.PersistentFlags().StringArrayVarP(&paramFlags, "param", "p", nil, "placeholder value as name=value (repeatable)")

	rootCmd.AddCommand(sqlCmd)
	rootCmd.AddCommand(runCmd)
}

// Execute runs the root command.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}

	return nil
}

func loadConfig() (*session.Config, error) {
	if configPath == "" {
		return session.ParseConfig(nil)
	}

	return session.LoadConfig(configPath)
}

// parseParams turns name=value flags into params, overriding defaults.
func parseParams(defaults map[string]any, flags []string) (map[string]any, error) {
	out := make(map[string]any, len(defaults)+len(flags))
	for k, v := range defaults {
		out[k] = v
	}

	for _, f := range flags {
		name, value, ok := strings.Cut(f, "=")
		if !ok || name == "" {
			return nil, errors.Errorf("invalid param %q, expected name=value", f)
		}
		out[name] = value
	}

	return out, nil
}
