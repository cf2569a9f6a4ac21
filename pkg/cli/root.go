package cli

import (
	"fmt"
	"io"

	"github.com/TechXTT/webui/pkg/config"
	"github.com/op/go-logging"
	"github.com/spf13/cobra"
)

var log = logging.MustGetLogger("cli")

// Version is stamped at build time.
var Version = "v0.1.0"

// logFormat prints process ID, time, file, level and sequence number, then
// the message.
const logFormat = `%{color}[P%{pid} %{time:15:04:05.000} %{shortfile} %{level:.4s} %{id:03x}]` +
	`%{color:reset} %{message}`

func setupLogging(w io.Writer, level string) error {
	lvl, err := logging.LogLevel(level)
	if err != nil {
		return fmt.Errorf("log level %q: %w", level, err)
	}
	backend := logging.NewBackendFormatter(logging.NewLogBackend(w, "", 0), logging.MustStringFormatter(logFormat))
	leveled := logging.AddModuleLevel(backend)
	leveled.SetLevel(lvl, "")
	logging.SetBackend(leveled)
	return nil
}

// loadConfig reads the --config file and applies its log level unless
// --log-level was given.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if !cmd.Flags().Changed("log-level") {
		if err := setupLogging(cmd.ErrOrStderr(), cfg.Log.Level); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// NewVersionCmd builds the `version` command.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Println(Version)
		},
	}
}

// NewRootCmd builds the top-level `webui` command.
func NewRootCmd() *cobra.Command {
	var (
		configPath string
		logLevel   string
	)
	root := &cobra.Command{
		Use:           "webui",
		Short:         "webui: server-rendered front end over Postgres",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogging(cmd.ErrOrStderr(), logLevel)
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ./config.json if present)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warning, error)")

	root.AddCommand(NewServeCmd())
	root.AddCommand(NewMigrateCmd())
	root.AddCommand(NewQueryCmd())
	root.AddCommand(NewVersionCmd())
	return root
}
