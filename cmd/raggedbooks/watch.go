package main

import (
	"context"
	"errors"
	"path/filepath"

	"github.com/spf13/cobra"

	"raggedbooks/internal/watcher"
)

func watchCMD(cfgPath func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "watch [folder]",
		Short: "Import new or changed PDFs as they appear (default PDF_FOLDER)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, a, err := newApp(cmd.Context(), cfgPath())
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			folder := a.cfg.PDFFolder
			if len(args) == 1 {
				folder = args[0]
			}
			if folder == "" {
				return errors.New("no folder given and PDF_FOLDER is not set")
			}

			w, err := watcher.New(folder, a.cfg.ImportPattern, a.cfg.WatchDebounce, func(ctx context.Context, path string) error {
				_, err := a.library.ImportFile(ctx, path, false)
				return err
			}, watcher.WithRemove(func(ctx context.Context, path string) error {
				return a.library.RemoveBook(ctx, filepath.Base(path))
			}))
			if err != nil {
				return err
			}

			a.logger.Info("Watching for books", "folder", folder, "pattern", a.cfg.ImportPattern)
			return w.Watch(ctx)
		},
	}
}
