package cli

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/existflow/tasknest/internal/db"
	"github.com/existflow/tasknest/internal/gamify"
	"github.com/existflow/tasknest/internal/logger"
	"github.com/existflow/tasknest/internal/notify"
	"github.com/existflow/tasknest/internal/repo"
	"github.com/existflow/tasknest/internal/storage"
	"github.com/existflow/tasknest/internal/sweep"
	"github.com/existflow/tasknest/server"
)

var listenAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local bridge server",
	RunE: func(cmd *cobra.Command, args []string) error {
		addr := cfg.ListenAddr
		if cmd.Flags().Changed("listen") {
			addr = listenAddr
		}

		database, err := db.Open(cfg.DatabasePath())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer database.Close()

		files, err := storage.NewLocal(cfg.AttachmentsDir())
		if err != nil {
			return fmt.Errorf("failed to open attachment storage: %w", err)
		}

		hub := notify.NewHub()
		engine := gamify.New(database)
		repository := repo.New(database, files, engine, hub)

		sweeper := sweep.New(repository, time.Duration(cfg.SweepIntervalHours)*time.Hour)
		sweeper.Start()
		defer sweeper.Stop()

		srv := server.New(repository, engine, files, hub)

		// Shut down cleanly on interrupt: stop the sweeper, let in-flight
		// requests finish.
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		go func() {
			<-sigCh
			logger.Info("shutting down")
			srv.Close()
		}()

		logger.Info("bridge server starting", logger.F("addr", addr))
		if err := srv.Start(addr); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&listenAddr, "listen", "127.0.0.1:8137", "Listen address for the bridge")
}
