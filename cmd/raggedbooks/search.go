package main

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"runtime"

	"github.com/spf13/cobra"

	"raggedbooks/internal/contextutil"
	"raggedbooks/internal/rag"
)

func searchCMD(cfgPath func() string) *cobra.Command {
	var (
		content bool
		open    bool
		useRAG  bool
		html    bool
		k       int
	)
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the indexed books, or answer from them with --rag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, a, err := newApp(cmd.Context(), cfgPath())
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			out := cmd.OutOrStdout()
			query := args[0]

			if useRAG {
				resp, err := a.library.Ask(ctx, rag.AskRequest{Question: query, K: k})
				if err != nil {
					return err
				}
				return printAnswer(out, resp, html)
			}

			if k == 0 {
				k = a.cfg.LookupTopK
			}
			results, err := a.library.Search(ctx, query, k)
			if err != nil {
				return err
			}
			if len(results) == 0 {
				fmt.Fprintln(out, "No results")
				return nil
			}
			printResults(out, results, a.library.PDFFolder(), content)

			if open {
				return openLink(ctx, a.cfg.BrowserPath, results[0].Link(a.library.PDFFolder()))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&content, "content", false, "print the chunk text")
	cmd.Flags().BoolVar(&open, "open", false, "open the best hit in the browser")
	cmd.Flags().BoolVar(&useRAG, "rag", false, "answer the query from the retrieved chunks")
	cmd.Flags().BoolVar(&html, "html", false, "with --rag, print the answer as HTML")
	cmd.Flags().IntVarP(&k, "top-k", "k", 0, "number of chunks (default LOOKUP_TOP_K, or SEARCH_TOP_K with --rag)")
	return cmd
}

func printResults(w io.Writer, results []rag.Result, pdfFolder string, content bool) {
	for _, r := range results {
		fmt.Fprintf(w, "Search score: %.4f\n", r.Score)
		fmt.Fprintf(w, "Key: %s\n", r.Chunk.ID)
		fmt.Fprintf(w, "Book: %s\n", r.Chunk.BookTitle)
		fmt.Fprintf(w, "Chapter: %s\n", r.Chunk.ChapterPath)
		fmt.Fprintf(w, "Page: %d\n", r.Chunk.PageNumber)
		if content {
			fmt.Fprintf(w, "Content:\n%s\n", r.Chunk.Text)
		}
		fmt.Fprintln(w, r.Link(pdfFolder))
		fmt.Fprintln(w, "=========")
		fmt.Fprintln(w)
	}
}

func printAnswer(w io.Writer, resp rag.AskResponse, html bool) error {
	if resp.NoResults {
		fmt.Fprintln(w, "No results")
		return nil
	}
	fmt.Fprintf(w, "Asking with %d contexts from these %d books:\n", len(resp.Sources), len(resp.Books))
	for _, b := range resp.Books {
		fmt.Fprintf(w, " - %s\n", b)
	}
	fmt.Fprintln(w, "--------- Answer -------------")

	answer := resp.Answer
	if html {
		rendered, err := rag.RenderHTML(answer)
		if err != nil {
			return err
		}
		answer = rendered
	}
	fmt.Fprintln(w, answer)
	return nil
}

// browserCommand returns the launcher for link. An empty browser uses the
// platform opener.
func browserCommand(browser, link string) (string, []string) {
	if browser != "" {
		return browser, []string{link}
	}
	switch runtime.GOOS {
	case "darwin":
		return "open", []string{link}
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler", link}
	default:
		return "xdg-open", []string{link}
	}
}

func openLink(ctx context.Context, browser, link string) error {
	name, args := browserCommand(browser, link)
	if err := exec.Command(name, args...).Start(); err != nil {
		return fmt.Errorf("failed to open %s: %w", link, err)
	}
	contextutil.LoggerFromContext(ctx).Debug("Opened link", "browser", name, "link", link)
	return nil
}
