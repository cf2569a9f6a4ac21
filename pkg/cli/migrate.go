package cli

import (
	"fmt"

	"github.com/TechXTT/webui/pkg/migrate"
	"github.com/TechXTT/webui/pkg/runtime"
	"github.com/spf13/cobra"
)

func NewMigrateCmd() *cobra.Command {
	var migrations string

	cmd := &cobra.Command{
		Use:       "migrate [up|down|status]",
		Short:     "Run database migrations",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "down", "status"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("dir") {
				migrations = cfg.Migrations.Dir
			}

			db, err := runtime.OpenSQL(cfg.ConnectionStrings.Main)
			if err != nil {
				return err
			}
			defer db.Close()

			mgr, err := migrate.NewManager(db, migrations)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			switch args[0] {
			case "up":
				n, err := mgr.Up(ctx)
				if err != nil {
					return err
				}
				cmd.Printf("applied %d migration(s)\n", n)
			case "down":
				return mgr.Down(ctx)
			case "status":
				status, err := mgr.Status(ctx)
				if err != nil {
					return err
				}
				cmd.Println(status)
			default:
				return fmt.Errorf("unknown migrate action %q", args[0])
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&migrations, "dir", "migrations", "Migrations directory")
	return cmd
}
