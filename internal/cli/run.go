package cli

import (
	"encoding/json"
	"os"

	"github.com/donseba/selq/internal/queryfile"
	"github.com/donseba/selq/session"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run <query.yaml>",
	Short: "Run a query file and print the rows as JSON",
	Long: `Runs a query file against the database of the session config and
prints the shaped rows as JSON. Without a config an in-memory SQLite
database is used; --exec runs SQL files (schema, fixtures) first.

Examples:
  selq run users.yaml -c db.yaml
  selq run users.yaml --exec schema.sql -p min_age=18`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		qf, err := queryfile.Load(args[0])
		if err != nil {
			return err
		}

		params, err := parseParams(qf.Params, paramFlags)
		if err != nil {
			return err
		}

		sess, err := session.Open(cfg)
		if err != nil {
			return err
		}
		defer sess.Close()

		for _, f := range execFiles {
			b, err := os.ReadFile(f)
			if err != nil {
				return err
			}
			if _, err := sess.Exec(ctx, string(b)); err != nil {
				return err
			}
		}

		final, err := qf.Build(sess.Builder())
		if err != nil {
			return err
		}

		rows, err := final.All(ctx, params)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")

		return enc.Encode(rows)
	},
}

func init() {
	runCmd.Flags().StringArrayVar(&execFiles, "exec", nil, "SQL file to execute before the query (repeatable)")
}
