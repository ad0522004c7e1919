package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/becomeliminal/nim-memory/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the fact memory over websocket",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		rt, err := newRuntime(ctx, cfg)
		if err != nil {
			return err
		}
		defer rt.Close()

		status := rt.manager.Warmup(ctx)
		log.Info("memory ready", "facts", status.TotalFacts, "missing", status.MissingVectors)

		srv := server.New(server.Config{
			Facts:     rt.store,
			Memory:    rt.manager,
			Extractor: rt.extractor,
		})
		log.Info("websocket", "url", "ws://localhost"+cfg.Server.Addr+"/ws")
		log.Info("health", "url", "http://localhost"+cfg.Server.Addr+"/health")
		return srv.Run(ctx, cfg.Server.Addr)
	},
}
