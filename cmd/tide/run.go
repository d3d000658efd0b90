package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/razumit/tide/internal/app"
	"github.com/razumit/tide/internal/tsserver"
)

// withSession loads configuration, starts a session for the project, opens
// the file, runs fn, and tears everything down.
func withSession(cmd *cobra.Command, file string, fn func(ctx context.Context, sess *tsserver.Session, file string) error) error {
	project, err := cmd.Flags().GetString("project")
	if err != nil {
		return err
	}

	file, err = filepath.Abs(file)
	if err != nil {
		return err
	}
	content, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("reading %s: %w", file, err)
	}

	a, err := app.New(project)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	sess, err := a.Start(ctx)
	if err != nil {
		return err
	}

	if err := sess.Configure(ctx, file); err != nil {
		return err
	}
	if err := sess.Open(file, string(content)); err != nil {
		return err
	}

	return fn(ctx, sess, file)
}

func checkCmd() *cobra.Command {
	var delay int

	cmd := &cobra.Command{
		Use:   "check <file>",
		Short: "Report syntactic and semantic diagnostics for a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, args[0], func(ctx context.Context, sess *tsserver.Session, file string) error {
				diags, err := sess.CheckErrors(ctx, file, delay)
				if err != nil {
					return err
				}
				for _, d := range diags {
					fmt.Printf("%s:%d:%d: %s: %s\n", file, d.Start.Line, d.Start.Offset, d.Category, d.Text)
				}
				if len(diags) > 0 {
					return fmt.Errorf("%d problem(s)", len(diags))
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&delay, "delay", 0, "Server-side coalescing delay in milliseconds")

	return cmd
}

func quickinfoCmd() *cobra.Command {
	var line, offset int

	cmd := &cobra.Command{
		Use:   "quickinfo <file>",
		Short: "Show type information at a position",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, args[0], func(ctx context.Context, sess *tsserver.Session, file string) error {
				info, err := sess.Quickinfo(ctx, file, line, offset)
				if err != nil {
					return err
				}
				fmt.Println(info.DisplayString)
				if info.Documentation != "" {
					fmt.Println(info.Documentation)
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&line, "line", 1, "1-based line number")
	cmd.Flags().IntVar(&offset, "offset", 1, "1-based column offset")

	return cmd
}

func definitionCmd() *cobra.Command {
	var line, offset int

	cmd := &cobra.Command{
		Use:   "definition <file>",
		Short: "Show definition locations for the symbol at a position",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, args[0], func(ctx context.Context, sess *tsserver.Session, file string) error {
				spans, err := sess.Definition(ctx, file, line, offset)
				if err != nil {
					return err
				}
				for _, span := range spans {
					fmt.Printf("%s:%d:%d\n", span.File, span.Start.Line, span.Start.Offset)
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&line, "line", 1, "1-based line number")
	cmd.Flags().IntVar(&offset, "offset", 1, "1-based column offset")

	return cmd
}
