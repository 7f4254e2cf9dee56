// ptyhost hosts interactive shell sessions behind a restartable control
// process. Running without a subcommand starts the daemon; subcommands talk
// to a running instance over its control socket.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ptyhost/ptyhost/internal/app"
	"github.com/ptyhost/ptyhost/internal/config"
	"github.com/ptyhost/ptyhost/internal/logging"
	"github.com/ptyhost/ptyhost/internal/session"
)

// Global flags
var (
	socketFlag   string
	logLevelFlag string
	logDevFlag   bool
)

var rootCmd = &cobra.Command{
	Use:   "ptyhost",
	Short: "PTY session host with exec-based restart",
	Long: `ptyhost hosts multiple interactive shell sessions, each on its own
pseudo-terminal, inside one long-lived control process.

The process can be told to restart itself (for example, to pick up a new
build) without killing any running shell: PTY descriptors are handed across
an exec and the new process image adopts them.

External tools talk to the running instance over a Unix domain socket:

  ptyhost ping                     check the instance is alive
  ptyhost restart                  restart in place, keeping all shells
  ptyhost rename [id] <title>      set a session's title
  ptyhost desc [id] <text>         set a session's description
  ptyhost icon [id] <icon>         set a session's icon
  ptyhost notify [id]              flag a session as notified
  ptyhost move [id] <group>        move a session to a group

Inside a hosted shell the session id is implied by $PTYHOST_SESSION.`,
	RunE:          runDaemon,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&socketFlag, "socket", "s", "", "control socket path (overrides PTYHOST_SOCKET)")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVar(&logDevFlag, "log-dev", false, "human-readable console logging")

	rootCmd.AddCommand(resumeCmd)
	rootCmd.AddCommand(pingCmd, restartCmd, renameCmd, descCmd, iconCmd, notifyCmd, moveCmd)
}

// loadConfig merges environment configuration with CLI flag overrides.
func loadConfig() *config.Config {
	cfg := config.LoadOrDefault()
	if socketFlag != "" {
		cfg.Socket.Path = socketFlag
	}
	if logLevelFlag != "" {
		cfg.Logging.Level = logLevelFlag
	}
	if logDevFlag {
		cfg.Logging.Development = true
	}
	return cfg
}

func newLogger(cfg *config.Config) *logging.Logger {
	log, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
		OutputPaths: []string{"stderr"},
	})
	if err != nil {
		return logging.NewDefault()
	}
	return log
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	log := newLogger(cfg)
	defer log.Sync()

	return serve(cfg, log, session.NewStore(), false)
}

// serve runs the owner loop until shutdown. redraw is set on the resume path
// so restored shells repaint into the new process image.
func serve(cfg *config.Config, log *logging.Logger, store *session.Store, redraw bool) error {
	a, err := app.New(cfg, log, store)
	if err != nil {
		return err
	}
	defer a.Close()

	if redraw {
		a.RedrawAll()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Info(fmt.Sprintf("received %s, shutting down", sig))
		a.Stop()
	}()

	return a.Run()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
