package cli

import (
	"fmt"

	"github.com/donseba/selq"
	"github.com/donseba/selq/internal/queryfile"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var sqlCmd = &cobra.Command{
	Use:   "sql <query.yaml>",
	Short: "Print the compiled SQL of a query file",
	Long: `Compiles a query file and prints the SQL, its arguments, the field
paths of the result and the nullability of every source.

Examples:
  selq sql users.yaml
  selq sql users.yaml --dialect mysql`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d := selq.Postgres
		if dialectName != "" {
			var ok bool
			if d, ok = selq.DialectByName(dialectName); !ok {
				return errors.Errorf("unsupported dialect %q", dialectName)
			}
		}

		qf, err := queryfile.Load(args[0])
		if err != nil {
			return err
		}

		final, err := qf.Build(selq.New(d))
		if err != nil {
			return err
		}

		c, err := final.Compile()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, c.SQL)
		if len(c.Args) > 0 {
			fmt.Fprintf(out, "-- args: %v\n", c.Args)
		}
		fmt.Fprintf(out, "-- mode: %s\n", final.Mode())
		for _, fe := range c.Fields {
			fmt.Fprintf(out, "-- field: %s\n", fe.Name())
		}
		for _, j := range final.Joins() {
			fmt.Fprintf(out, "-- %s join %s: not null %t\n", j.Type, j.Alias, c.Nullability[j.Alias])
		}

		return nil
	},
}

func init() {
	sqlCmd.Flags().StringVarP(&dialectName, "dialect", "d", "", "dialect to compile for (postgres, sqlite, mysql)")
}
