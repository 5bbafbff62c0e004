package main

import (
	"context"
	"errors"
	nethttp "net/http"
	"time"

	"github.com/spf13/cobra"

	"raggedbooks/internal/http"
)

const shutdownTimeout = 10 * time.Second

func serveCMD(cfgPath func() string) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, a, err := newApp(cmd.Context(), cfgPath())
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()
			logger := a.logger

			if a.cfg.OllamaPullOnStart {
				logger.Info("Pulling models", "embedding", a.cfg.EmbeddingModel, "chat", a.cfg.ChatModel)
				if err := a.modelManager().EnsureModels(ctx, a.cfg.EmbeddingModel, a.cfg.ChatModel); err != nil {
					return err
				}
			}

			if !cmd.Flags().Changed("addr") {
				addr = a.cfg.APIAddr
			}

			router := http.NewRouter(&http.Deps{
				Library:       a.library,
				VectorStore:   a.vectorStore,
				Collection:    a.cfg.QdrantCollection,
				FolderOptions: a.folderOptions(),
				Metrics:       a.metrics,
			})
			srv := &nethttp.Server{
				Addr:              addr,
				Handler:           router,
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Info("Starting API server", "addr", addr)
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, nethttp.ErrServerClosed) {
					return err
				}
				return nil
			case <-ctx.Done():
			}

			logger.Info("Shutting down API server")
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return err
			}
			logger.Info("Waiting for running imports")
			router.Wait()
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":9000", "listen address (default API_ADDR)")
	return cmd
}
