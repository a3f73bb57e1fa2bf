package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/minutes/internal/extraction"
	"github.com/fyrsmithlabs/minutes/internal/session"
	"github.com/fyrsmithlabs/minutes/internal/tasks"
)

func newExtractCmd() *cobra.Command {
	var addAll bool
	cmd := &cobra.Command{
		Use:   "extract [file]",
		Short: "Extract task drafts from meeting notes",
		Long: `Extract task drafts from a notes file or stdin and print them as JSON.

Examples:
  # Preview drafts
  minutes extract notes.txt

  # Save every draft as a task
  cat notes.txt | minutes extract --add -`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			note, err := readNote(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), configPath)
			if err != nil {
				return err
			}
			defer a.close(context.Background())

			out, err := extract(cmd.Context(), a.session, note, addAll)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
	cmd.Flags().BoolVar(&addAll, "add", false, "save every extracted draft as a task")
	return cmd
}

// extractOutput is what the extract command prints.
type extractOutput struct {
	Summary     string                  `json:"summary"`
	Drafts      []*extraction.Draft     `json:"drafts"`
	Diagnostics []extraction.Diagnostic `json:"diagnostics,omitempty"`
	Created     []tasks.Task            `json:"created,omitempty"`
}

func extract(ctx context.Context, sess *session.Session, note string, addAll bool) (*extractOutput, error) {
	res, err := sess.Extract(ctx, note)
	if err != nil {
		return nil, err
	}
	out := &extractOutput{Summary: res.Summary, Drafts: res.Drafts, Diagnostics: res.Diagnostics}
	if !addAll {
		return out, nil
	}
	for i := range res.Drafts {
		t, created, err := sess.AddDraft(ctx, i)
		if err != nil {
			return nil, fmt.Errorf("adding draft %d: %w", i, err)
		}
		if created {
			out.Created = append(out.Created, t)
		}
	}
	return out, nil
}

func readNote(stdin io.Reader, args []string) (string, error) {
	var (
		content []byte
		err     error
	)
	if len(args) == 0 || args[0] == "-" {
		content, err = io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read from stdin: %w", err)
		}
	} else {
		content, err = os.ReadFile(args[0])
		if err != nil {
			return "", fmt.Errorf("failed to read file %s: %w", args[0], err)
		}
	}
	return string(content), nil
}
