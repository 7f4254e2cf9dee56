package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ptyhost/ptyhost/internal/restart"
	"github.com/ptyhost/ptyhost/internal/session"
)

var stateFileFlag string

// resumeCmd is the restart handoff entry point. The previous process image
// execs into `ptyhost resume --state-file ... --socket ...` and we pick up
// its descriptors from the snapshot. Not meant to be invoked by hand.
var resumeCmd = &cobra.Command{
	Use:    "resume",
	Short:  "Resume from a restart snapshot (internal)",
	Hidden: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		if stateFileFlag != "" {
			cfg.State.Path = stateFileFlag
		}
		log := newLogger(cfg)
		defer log.Sync()

		coord := restart.New(cfg.State.Path, cfg.Socket.Path, cfg.Redraw.Delay, log.Named("restart"))

		store, err := coord.Resume()
		if err != nil {
			// Losing continuity beats refusing to start: fall back to
			// a fresh session set.
			log.Warn("resume failed, starting fresh", zap.Error(err))
			return serve(cfg, log, session.NewStore(), false)
		}

		log.Info("resumed from snapshot", zap.Int("sessions", store.Len()))
		return serve(cfg, log, store, true)
	},
}

func init() {
	resumeCmd.Flags().StringVar(&stateFileFlag, "state-file", "", "snapshot file to resume from")
}
