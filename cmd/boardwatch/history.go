package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/nao1215/boardwatch/internal/config"
	"github.com/nao1215/boardwatch/internal/database"
	"github.com/spf13/cobra"
)

const historyTimeLayout = "2006-01-02 15:04:05"

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [url]",
		Short: "Show stored posts and fetches",
		Long: `History prints what earlier fetches recorded.

Without a URL it lists every board in the history database. With a URL it
prints the board's newest posts, and with --fetches its recent fetches.

Examples:
  # List boards with history
  boardwatch history

  # Show the last 20 posts of a board
  boardwatch history http://192.168.1.50/

  # Show the last 5 fetches of a board
  boardwatch history --fetches -l 5 http://192.168.1.50/`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().IntP("limit", "l", config.DefaultHistoryLimit,
		"Maximum number of rows to print (0 for all)")
	cmd.Flags().Bool("fetches", false,
		"List fetches instead of posts")
	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory of the history database")

	return cmd
}

func runHistoryCmd(cmd *cobra.Command, args []string) error {
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	fetches, err := cmd.Flags().GetBool("fetches")
	if err != nil {
		return err
	}
	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	opts := database.DefaultOptions()
	opts.CreateIfNotExists = false
	db, err := database.Open(dbDir, opts)
	if errors.Is(err, database.ErrDatabaseNotFound) {
		fmt.Fprintln(out, "No history yet. Run 'boardwatch fetch <url>' first.")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	switch {
	case len(args) == 0:
		return listSources(ctx, db, out)
	case fetches:
		return listFetches(ctx, db, out, args[0], limit)
	default:
		return listPosts(ctx, db, out, args[0], limit)
	}
}

func listSources(ctx context.Context, db *database.BoardDB, out io.Writer) error {
	sources, err := db.ListSources(ctx)
	if err != nil {
		return fmt.Errorf("failed to list boards: %w", err)
	}
	if len(sources) == 0 {
		fmt.Fprintln(out, "No boards in history.")
		return nil
	}

	fmt.Fprintf(out, "Watched boards (%d):\n\n", len(sources))
	for _, source := range sources {
		fmt.Fprintf(out, "  • %s\n", source)
	}
	fmt.Fprintln(out, "\nUse 'boardwatch history <url>' to see the posts of a board.")
	return nil
}

func listPosts(ctx context.Context, db *database.BoardDB, out io.Writer, source string, limit int) error {
	posts, err := db.ListPosts(ctx, source, limit)
	if err != nil {
		return fmt.Errorf("failed to list posts: %w", err)
	}
	if len(posts) == 0 {
		fmt.Fprintf(out, "No posts found for %s\n", source)
		return nil
	}

	fmt.Fprintf(out, "Posts from %s (%d):\n\n", source, len(posts))
	for _, p := range posts {
		fmt.Fprintf(out, "  First seen: %s  (seen %d times)\n", p.FirstSeen.Local().Format(historyTimeLayout), p.SeenCount)
		fmt.Fprintf(out, "  Header: %s\n", p.Header)
		fmt.Fprintf(out, "  Body: %s\n\n", p.Body)
	}
	return nil
}

func listFetches(ctx context.Context, db *database.BoardDB, out io.Writer, source string, limit int) error {
	fetches, err := db.ListFetches(ctx, source, limit)
	if err != nil {
		return fmt.Errorf("failed to list fetches: %w", err)
	}
	if len(fetches) == 0 {
		fmt.Fprintf(out, "No fetches found for %s\n", source)
		return nil
	}

	fmt.Fprintf(out, "Fetches of %s (%d):\n\n", source, len(fetches))
	fmt.Fprintf(out, "  %-6s  %-19s  %-4s  %-5s  %-5s  %-10s  %s\n",
		"ID", "Date", "HTTP", "Posts", "New", "Bytes", "Status")
	for _, f := range fetches {
		status := string(f.Status)
		if f.Error != "" {
			status += ": " + f.Error
		}
		fmt.Fprintf(out, "  %-6d  %-19s  %-4d  %-5d  %-5d  %-10d  %s\n",
			f.ID,
			f.StartedAt.Local().Format(historyTimeLayout),
			f.StatusCode,
			f.Posts,
			f.New,
			f.BytesRead,
			status,
		)
	}
	return nil
}
