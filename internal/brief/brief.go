// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package brief extracts plain text from the project brief of a request.
// The brief's filename extension selects one of a closed set of formats;
// unknown extensions are rejected rather than guessed.
package brief

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/pdiddy/proposal-drafter/internal/ooxml"
	"github.com/pdiddy/proposal-drafter/pkg/types"
)

// formatsByExt maps lower-case extensions to brief formats.
var formatsByExt = map[string]types.BriefFormat{
	".docx": types.BriefDocx,
	".txt":  types.BriefText,
	".text": types.BriefText,
	".md":   types.BriefText,
}

// DetectFormat returns the brief format for filename, matching the
// extension case-insensitively.
func DetectFormat(filename string) (types.BriefFormat, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if f, ok := formatsByExt[ext]; ok {
		return f, nil
	}
	return "", &types.UnsupportedFormatError{File: filename, Ext: ext}
}

// Extract returns the text of a brief upload.
//
// Word documents yield every body paragraph joined by "\n" in document
// order; empty paragraphs contribute empty lines. Text files must be valid
// UTF-8 and are returned verbatim.
func Extract(up *types.Upload) (types.Brief, error) {
	if up == nil || strings.TrimSpace(up.Name) == "" {
		return types.Brief{}, &types.MissingInputError{Input: "brief"}
	}

	format, err := DetectFormat(up.Name)
	if err != nil {
		return types.Brief{}, err
	}

	var text string
	switch format {
	case types.BriefDocx:
		text, err = extractDocx(up.Data)
		if err != nil {
			return types.Brief{}, &types.ParseError{File: up.Name, Err: err}
		}
	case types.BriefText:
		text, err = decodeText(up.Data)
		if err != nil {
			return types.Brief{}, &types.DecodeError{File: up.Name, Err: err}
		}
	default:
		return types.Brief{}, fmt.Errorf("no extractor for format %q", format)
	}

	return types.Brief{Filename: up.Name, Format: format, Text: text}, nil
}

func extractDocx(data []byte) (string, error) {
	pkg, err := ooxml.Open(data)
	if err != nil {
		return "", err
	}
	paras, err := ooxml.DocumentParagraphs(pkg)
	if err != nil {
		return "", err
	}
	return strings.Join(paras, "\n"), nil
}

var errInvalidUTF8 = errors.New("invalid UTF-8")

func decodeText(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w at byte %d", errInvalidUTF8, firstInvalid(data))
	}
	return string(data), nil
}

func firstInvalid(data []byte) int {
	for i := 0; i < len(data); {
		r, size := utf8.DecodeRune(data[i:])
		if r == utf8.RuneError && size <= 1 {
			return i
		}
		i += size
	}
	return -1
}
