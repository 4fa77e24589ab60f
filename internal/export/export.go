// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package export renders a final draft as a downloadable document.
package export

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pdiddy/proposal-drafter/internal/ooxml"
	"github.com/pdiddy/proposal-drafter/pkg/types"
)

const (
	MIMEDocx = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MIMEText = "text/plain"

	FilenameDocx = "Objectives_Solutions.docx"
	FilenameText = "Objectives_Solutions.txt"
)

// ParseFormat maps a user-facing selector ("docx", "txt", "text") to an
// export format.
func ParseFormat(s string) (types.ExportFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "docx", "word":
		return types.ExportDocx, nil
	case "txt", "text", "plain":
		return types.ExportText, nil
	}
	return "", fmt.Errorf("unknown export format %q (want docx or txt)", s)
}

// Export encodes draft in the requested format. Plain text is the draft's
// UTF-8 bytes, unchanged. A Word document holds the draft as a single
// paragraph in the default style; vertical tabs and form feeds become line
// breaks, and a draft holding a character Word cannot store fails with a
// *types.DecodeError. Equal drafts produce equal bytes.
func Export(draft string, format types.ExportFormat) (types.Export, error) {
	switch format {
	case types.ExportText:
		return types.Export{
			Data:     []byte(draft),
			MIMEType: MIMEText,
			Filename: FilenameText,
		}, nil
	case types.ExportDocx:
		data, err := ooxml.WriteDocument([]string{draft})
		if err != nil {
			var invalid *ooxml.InvalidCharError
			if errors.As(err, &invalid) {
				return types.Export{}, &types.DecodeError{File: "draft", Err: err}
			}
			return types.Export{}, fmt.Errorf("writing document: %w", err)
		}
		return types.Export{
			Data:     data,
			MIMEType: MIMEDocx,
			Filename: FilenameDocx,
		}, nil
	}
	return types.Export{}, fmt.Errorf("unknown export format %q", format)
}
