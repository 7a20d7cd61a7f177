package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"qarag/internal/adapter/watcher"
	"qarag/internal/server"
)

var (
	serveAddr  string
	serveWatch bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the question answering HTTP API. The index is loaded from
storage, or built from the source document on first start.

Endpoints:
  POST /api/qa            {"question": "...", "lang": "en|wo"}
  POST /api/qa/feedback   {"question", "answer", "feedback", "user_id", "comment"}
  GET  /api/qa/history    ?limit=N
  POST /api/translate     {"text", "source_lang", "target_lang"}
  GET  /api/health`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
	serveCmd.Flags().BoolVar(&serveWatch, "watch", false, "rebuild the index when the source document changes")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}
	if serveWatch {
		cfg.Watch.Enabled = true
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, GetRootDir(), logger, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	if cfg.Watch.Enabled {
		w, err := watcher.NewFSNotifyWatcher(cfg.Watch.Debounce, logger)
		if err != nil {
			return fmt.Errorf("failed to start source watcher: %w", err)
		}
		defer w.Close()
		go func() {
			if err := a.indexer.Watch(ctx, w); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("source watcher stopped", "error", err)
			}
		}()
	}

	srv := server.New(server.Deps{
		Answers:  a.answers,
		Feedback: a.feedback,
		Index:    a.index,
		Cache:    a.cache,
	}, server.Options{
		Addr:         cfg.Server.Addr,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, logger)

	return srv.Start(ctx)
}
