// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/proposal-drafter/internal/export"
	"github.com/pdiddy/proposal-drafter/internal/library"
	"github.com/pdiddy/proposal-drafter/internal/pipeline"
	"github.com/pdiddy/proposal-drafter/pkg/types"
)

var draftCmd = &cobra.Command{
	Use:   "draft",
	Short: "Draft an Objectives & Solutions section from decks and a brief",
	Long: `Draft reads the given slide decks (.pptx) and project brief (.docx or
.txt), keeps slides that mention objectives or solutions as examples, and asks
the configured backend for a draft.

The draft is written to stdout, or to --out. With --edit the draft opens in
$EDITOR first. With --format the (edited) draft is exported as a Word or text
document instead.`,
	Example: `  proposal-drafter draft --deck q1.pptx --deck q2.pptx --brief brief.docx
  proposal-drafter draft --deck q1.pptx --brief brief.txt --edit --format docx`,
	Args: cobra.NoArgs,
	RunE: runDraft,
}

func runDraft(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	deckPaths, _ := cmd.Flags().GetStringArray("deck")
	briefPath, _ := cmd.Flags().GetString("brief")
	keywords, _ := cmd.Flags().GetStringSlice("keyword")
	useLibrary, _ := cmd.Flags().GetBool("library")
	edit, _ := cmd.Flags().GetBool("edit")
	formatFlag, _ := cmd.Flags().GetString("format")
	outPath, _ := cmd.Flags().GetString("out")

	var format types.ExportFormat
	if formatFlag != "" {
		if format, err = export.ParseFormat(formatFlag); err != nil {
			return err
		}
	}

	var lib *library.Store
	if useLibrary {
		if lib, err = library.Open(cfg.Library); err != nil {
			return err
		}
		defer lib.Close()
	}

	p, err := newPipeline(ctx, cfg, keywords, lib)
	if err != nil {
		return err
	}

	req := pipeline.Request{}
	for _, path := range deckPaths {
		up, err := readUpload(path)
		if err != nil {
			return err
		}
		req.Decks = append(req.Decks, up)
	}
	if briefPath != "" {
		up, err := readUpload(briefPath)
		if err != nil {
			return err
		}
		req.Brief = &up
	}

	res, err := p.Run(ctx, req)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "prompt %s: %d exemplar(s) from %d deck(s), brief read as %s\n",
		res.Prompt.ID, len(res.Exemplars), len(req.Decks), res.Brief.Format)

	draft := res.Draft
	if edit {
		if draft, err = editText(draft); err != nil {
			return err
		}
	}

	if format == "" {
		if outPath == "" {
			fmt.Println(draft)
			return nil
		}
		return writeFile(outPath, []byte(draft))
	}
	return writeExport(draft, format, outPath)
}

// editText opens text in $EDITOR (falling back to vi) and returns the saved result.
func editText(text string) (string, error) {
	editor := os.Getenv("VISUAL")
	if editor == "" {
		editor = os.Getenv("EDITOR")
	}
	if editor == "" {
		editor = "vi"
	}

	f, err := os.CreateTemp("", "draft-*.txt")
	if err != nil {
		return "", fmt.Errorf("creating edit buffer: %w", err)
	}
	defer os.Remove(f.Name())
	if _, err := f.WriteString(text); err != nil {
		f.Close()
		return "", fmt.Errorf("writing edit buffer: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("writing edit buffer: %w", err)
	}

	parts := strings.Fields(editor)
	c := exec.Command(parts[0], append(parts[1:], f.Name())...)
	c.Stdin, c.Stdout, c.Stderr = os.Stdin, os.Stdout, os.Stderr
	if err := c.Run(); err != nil {
		return "", fmt.Errorf("running editor %s: %w", editor, err)
	}

	data, err := os.ReadFile(f.Name())
	if err != nil {
		return "", fmt.Errorf("reading edit buffer: %w", err)
	}
	return string(data), nil
}

// writeExport renders draft and writes it to outPath, or to the export's
// suggested filename when outPath is empty.
func writeExport(draft string, format types.ExportFormat, outPath string) error {
	out, err := export.Export(draft, format)
	if err != nil {
		return err
	}
	if outPath == "" {
		outPath = out.Filename
	}
	if err := writeFile(outPath, out.Data); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Wrote %s (%s)\n", outPath, out.MIMEType)
	return nil
}

func writeFile(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

func init() {
	draftCmd.Flags().StringArray("deck", nil, "prior slide deck (.pptx); repeat for several")
	draftCmd.Flags().String("brief", "", "project brief (.docx, .txt, .md)")
	draftCmd.Flags().StringSlice("keyword", nil, "relevance keywords, case-sensitive (default Objective,Solution)")
	draftCmd.Flags().Bool("library", false, "prepend exemplars stored in the library")
	draftCmd.Flags().Bool("edit", false, "open the draft in $EDITOR before output")
	draftCmd.Flags().String("format", "", "export format: docx or txt (default: print the draft)")
	draftCmd.Flags().String("out", "", "output path (default: stdout, or the export's filename)")

	rootCmd.AddCommand(draftCmd)
}
