package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	db "github.com/TechXTT/webui"
	"github.com/TechXTT/webui/pkg/runtime"
	"github.com/spf13/cobra"
)

// NewQueryCmd builds the `query` command.
func NewQueryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "query <sql>",
		Short: "Run one statement and print the rows",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			pool, err := runtime.Connect(ctx, cfg.ConnectionStrings.Main, cfg.Database)
			if err != nil {
				return err
			}
			defer pool.Close()

			res, err := db.New(pool).Query(ctx, strings.Join(args, " "))
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), res)
		},
	}
}

func printResult(w io.Writer, res *db.Result) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(res.Columns, "\t"))
	for _, row := range res.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			if v == nil {
				cells[i] = "NULL"
				continue
			}
			if b, ok := v.([]byte); ok {
				cells[i] = string(b)
				continue
			}
			cells[i] = fmt.Sprint(v)
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	fmt.Fprintf(tw, "(%d rows)\n", res.Len())
	return tw.Flush()
}
