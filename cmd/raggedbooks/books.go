package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"raggedbooks/internal/service"
)

func booksCMD(cfgPath func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "books",
		Short: "List imported books",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, a, err := newApp(cmd.Context(), cfgPath())
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			books, err := a.library.Books(ctx)
			if err != nil {
				return err
			}
			return printBooks(cmd.OutOrStdout(), books)
		},
	}
}

func removeCMD(cfgPath func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <filename>",
		Short: "Remove a book's chunks and catalog entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, a, err := newApp(cmd.Context(), cfgPath())
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			if err := a.library.RemoveBook(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", args[0])
			return nil
		},
	}
}

func printBooks(w io.Writer, books []service.BookSummary) error {
	if len(books) == 0 {
		fmt.Fprintln(w, "No books imported")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TITLE\tFILE\tPAGES\tCHUNKS\tIMPORTED")
	for _, b := range books {
		imported := "-"
		if !b.ImportedAt.IsZero() {
			imported = b.ImportedAt.Local().Format("2006-01-02 15:04")
		}
		if !b.Cataloged {
			imported = "not in catalog"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n", b.Title, b.Filename, b.Pages, b.Chunks, imported)
	}
	return tw.Flush()
}
