// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ooxml

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	// DocumentPart is the main part of a word-processing package.
	DocumentPart = "word/document.xml"

	nsWordML = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
)

// DocumentParagraphs returns the text of every paragraph that is a direct
// child of the document body, in document order. Paragraphs inside tables or
// content controls are not included. Empty paragraphs yield "".
//
// Run content maps as follows: w:t is copied, w:tab becomes "\t", w:br of
// text-wrapping type becomes "\n", w:cr becomes "\r". Runs nested in
// hyperlinks are included.
func DocumentParagraphs(p *Package) ([]string, error) {
	data, err := p.ReadPart(DocumentPart)
	if err != nil {
		return nil, err
	}
	return parseParagraphs(data)
}

func parseParagraphs(data []byte) ([]string, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	var (
		stack      []string
		paraDepth  = -1
		inText     bool
		text       strings.Builder
		paragraphs []string
		sawBody    bool
	)

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", DocumentPart, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			local := t.Name.Local
			if local == "body" && len(stack) == 1 {
				sawBody = true
			}
			if local == "p" && len(stack) == 2 && stack[1] == "body" {
				paraDepth = len(stack)
				text.Reset()
			}
			stack = append(stack, local)
			if paraDepth < 0 || !inRun(stack[paraDepth:]) {
				continue
			}
			switch local {
			case "t":
				inText = true
			case "tab":
				text.WriteString("\t")
			case "cr":
				text.WriteString("\r")
			case "br":
				if breakType(t) == "" || breakType(t) == "textWrapping" {
					text.WriteString("\n")
				}
			}
		case xml.CharData:
			if inText {
				text.Write(t)
			}
		case xml.EndElement:
			if len(stack) == 0 {
				continue
			}
			if t.Name.Local == "t" {
				inText = false
			}
			stack = stack[:len(stack)-1]
			if paraDepth >= 0 && len(stack) == paraDepth {
				paragraphs = append(paragraphs, text.String())
				paraDepth = -1
			}
		}
	}

	if !sawBody {
		return nil, fmt.Errorf("parsing %s: no document body", DocumentPart)
	}
	return paragraphs, nil
}

// inRun reports whether the element path, rooted at a paragraph, ends in a
// child of a run that belongs directly to the paragraph or to one of its
// hyperlinks.
func inRun(rel []string) bool {
	switch {
	case len(rel) == 3 && rel[1] == "r":
		return true
	case len(rel) == 4 && rel[1] == "hyperlink" && rel[2] == "r":
		return true
	}
	return false
}

func breakType(se xml.StartElement) string {
	for _, a := range se.Attr {
		if a.Name.Local == "type" {
			return a.Value
		}
	}
	return ""
}

// packageEpoch is the modification time stamped on every generated part so
// that identical input produces identical bytes.
var packageEpoch = time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)

const contentTypesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"><Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/><Default Extension="xml" ContentType="application/xml"/><Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/></Types>`

const rootRelsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"><Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/></Relationships>`

// InvalidCharError reports a character that XML 1.0, and so a Word document,
// cannot carry.
type InvalidCharError struct {
	Paragraph int
	Offset    int
	Rune      rune
}

func (e *InvalidCharError) Error() string {
	if e.Rune == utf8.RuneError {
		return fmt.Sprintf("paragraph %d: invalid UTF-8 at byte %d", e.Paragraph+1, e.Offset)
	}
	return fmt.Sprintf("paragraph %d: character %U at byte %d cannot appear in a Word document", e.Paragraph+1, e.Rune, e.Offset)
}

// WriteDocument builds a minimal word-processing package with one paragraph
// per element of paragraphs, in default paragraph style. Within a paragraph,
// "\n" is written as a line break, "\r" as a carriage return and "\t" as a
// tab, which DocumentParagraphs reverses. Vertical tab and form feed are
// written as line breaks and so read back as "\n". Any other character XML
// forbids is rejected with an *InvalidCharError.
func WriteDocument(paragraphs []string) ([]byte, error) {
	body, err := documentXML(paragraphs)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	parts := []struct {
		name string
		body []byte
	}{
		{"[Content_Types].xml", []byte(contentTypesXML)},
		{"_rels/.rels", []byte(rootRelsXML)},
		{DocumentPart, body},
	}

	for _, part := range parts {
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     part.name,
			Method:   zip.Deflate,
			Modified: packageEpoch,
		})
		if err != nil {
			return nil, fmt.Errorf("creating part %s: %w", part.name, err)
		}
		if _, err := w.Write(part.body); err != nil {
			return nil, fmt.Errorf("writing part %s: %w", part.name, err)
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("closing package: %w", err)
	}
	return buf.Bytes(), nil
}

func documentXML(paragraphs []string) ([]byte, error) {
	var b bytes.Buffer
	b.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n")
	b.WriteString(`<w:document xmlns:w="` + nsWordML + `"><w:body>`)
	for i, p := range paragraphs {
		if err := writeParagraph(&b, p); err != nil {
			err.Paragraph = i
			return nil, err
		}
	}
	b.WriteString(`<w:sectPr/></w:body></w:document>`)
	return b.Bytes(), nil
}

func writeParagraph(b *bytes.Buffer, text string) *InvalidCharError {
	if text == "" {
		b.WriteString(`<w:p/>`)
		return nil
	}
	b.WriteString(`<w:p><w:r>`)
	var segment strings.Builder
	flush := func() {
		if segment.Len() == 0 {
			return
		}
		b.WriteString(`<w:t xml:space="preserve">`)
		xml.EscapeText(b, []byte(segment.String()))
		b.WriteString(`</w:t>`)
		segment.Reset()
	}
	for i, r := range text {
		switch {
		case r == utf8.RuneError:
			if _, size := utf8.DecodeRuneInString(text[i:]); size == 1 {
				return &InvalidCharError{Offset: i, Rune: r}
			}
			segment.WriteRune(r)
		case r == '\n', r == '\v', r == '\f':
			flush()
			b.WriteString(`<w:br/>`)
		case r == '\r':
			flush()
			b.WriteString(`<w:cr/>`)
		case r == '\t':
			flush()
			b.WriteString(`<w:tab/>`)
		case !xmlChar(r):
			return &InvalidCharError{Offset: i, Rune: r}
		default:
			segment.WriteRune(r)
		}
	}
	flush()
	b.WriteString(`</w:r></w:p>`)
	return nil
}

// xmlChar reports whether r is in the XML 1.0 Char production.
func xmlChar(r rune) bool {
	return r == 0x09 || r == 0x0A || r == 0x0D ||
		r >= 0x20 && r <= 0xD7FF ||
		r >= 0xE000 && r <= 0xFFFD ||
		r >= 0x10000 && r <= 0x10FFFF
}
