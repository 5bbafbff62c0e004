package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"raggedbooks/internal/indexer"
)

func importFileCMD(cfgPath func() string) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "import-file <path>",
		Short: "Import a PDF file and create embeddings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, a, err := newApp(cmd.Context(), cfgPath())
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			res, err := a.library.ImportFile(ctx, args[0], force)
			if err != nil {
				return err
			}
			printImportResult(cmd.OutOrStdout(), res)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "re-import even when the file is unchanged")
	return cmd
}

func importFolderCMD(cfgPath func() string) *cobra.Command {
	var (
		deleteFirst bool
		force       bool
		yes         bool
		pattern     string
		concurrency int
	)
	cmd := &cobra.Command{
		Use:   "import-folder [folder]",
		Short: "Import every PDF under a folder (default PDF_FOLDER)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, a, err := newApp(cmd.Context(), cfgPath())
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			folder := ""
			if len(args) == 1 {
				folder = args[0]
			}

			if deleteFirst && !yes {
				ok, err := confirm(cmd.InOrStdin(), cmd.OutOrStdout(),
					fmt.Sprintf("This drops collection %q and clears the catalog. Continue?", a.cfg.QdrantCollection))
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "Aborted")
					return nil
				}
			}

			opts := a.folderOptions()
			opts.Delete = deleteFirst
			opts.Force = force
			if cmd.Flags().Changed("pattern") {
				opts.Pattern = pattern
			}
			if cmd.Flags().Changed("concurrency") {
				opts.Concurrency = concurrency
			}

			report, err := a.library.ImportFolder(ctx, folder, opts)
			if report != nil {
				printFolderReport(cmd.OutOrStdout(), report)
			}
			return err
		},
	}
	cmd.Flags().BoolVar(&deleteFirst, "delete", false, "drop the collection and catalog before importing")
	cmd.Flags().BoolVar(&force, "force", false, "re-import unchanged files")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask before --delete")
	cmd.Flags().StringVar(&pattern, "pattern", indexer.DefaultPattern, "doublestar pattern relative to the folder")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "books imported at once (default IMPORT_CONCURRENCY)")
	return cmd
}

func confirm(in io.Reader, out io.Writer, prompt string) (bool, error) {
	fmt.Fprintf(out, "%s [y/N] ", prompt)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

func printImportResult(w io.Writer, res *indexer.ImportResult) {
	if res.Skipped {
		fmt.Fprintf(w, "Skipped %s (unchanged)\n", res.Filename)
		return
	}
	fmt.Fprintf(w, "Imported %s: %d pages, %d chunks in %s\n",
		res.Filename, res.Pages, res.Chunks, formatDuration(res.Duration))
	if s := res.TokenStats; res.Chunks > 0 {
		fmt.Fprintf(w, "  tokens per chunk: min %d, max %d, mean %.1f, p95 %d\n", s.Min, s.Max, s.Mean, s.P95)
	}
}

func printFolderReport(w io.Writer, report *indexer.FolderReport) {
	for i := range report.Imported {
		printImportResult(w, &report.Imported[i])
	}
	for _, f := range report.Failed {
		fmt.Fprintf(w, "Failed %s: %v\n", f.Path, f.Err)
	}
	fmt.Fprintf(w, "%s: %d imported, %d skipped, %d failed, %d chunks\n",
		report.Folder, len(report.Imported), len(report.Skipped), len(report.Failed), report.Chunks())
}
