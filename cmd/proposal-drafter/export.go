// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"os"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/pdiddy/proposal-drafter/internal/export"
)

var exportCmd = &cobra.Command{
	Use:   "export <draft.txt>",
	Short: "Export an edited draft as a Word or text document",
	Long: `Export reads a draft saved as UTF-8 text and writes it as a Word document
(one paragraph, default style) or as plain text. Use "-" to read stdin.`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func runExport(cmd *cobra.Command, args []string) error {
	formatFlag, _ := cmd.Flags().GetString("format")
	outPath, _ := cmd.Flags().GetString("out")

	format, err := export.ParseFormat(formatFlag)
	if err != nil {
		return err
	}

	var data []byte
	if args[0] == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(args[0])
	}
	if err != nil {
		return fmt.Errorf("reading draft: %w", err)
	}
	if !utf8.Valid(data) {
		return fmt.Errorf("draft %s is not valid UTF-8", args[0])
	}

	return writeExport(string(data), format, outPath)
}

func init() {
	exportCmd.Flags().String("format", "docx", "export format: docx or txt")
	exportCmd.Flags().String("out", "", "output path (default: Objectives_Solutions.<ext>)")

	rootCmd.AddCommand(exportCmd)
}
