package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	db "github.com/TechXTT/webui"
	"github.com/TechXTT/webui/internal/web"
	"github.com/TechXTT/webui/pkg/runtime"
	"github.com/spf13/cobra"
)

// NewServeCmd builds the `serve` command.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the web server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			pool, err := runtime.Connect(ctx, cfg.ConnectionStrings.Main, cfg.Database)
			if err != nil {
				return err
			}
			defer pool.Close()

			srv, err := web.New(web.Options{
				DB:            db.New(pool),
				Pool:          pool,
				Development:   cfg.IsDevelopment(),
				SessionName:   cfg.Server.SessionName,
				SessionSecret: []byte(cfg.Server.SessionSecret),
			})
			if err != nil {
				return err
			}
			log.Infof("starting in %s mode", cfg.Server.Env)
			return srv.ListenAndServe(ctx, fmt.Sprintf(":%d", cfg.Server.Port))
		},
	}
}
