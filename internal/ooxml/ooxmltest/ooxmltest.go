// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ooxmltest builds small .pptx and .docx packages in memory for tests.
package ooxmltest

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"
	"testing"

	"github.com/pdiddy/proposal-drafter/internal/ooxml"
)

const slideHeader = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<p:sld xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships" xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main"><p:cSld><p:spTree><p:nvGrpSpPr><p:cNvPr id="1" name=""/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr><p:grpSpPr/>`

const slideFooter = `</p:spTree></p:cSld></p:sld>`

// TextShape returns a text box whose paragraphs are the "\n"-separated lines of text.
func TextShape(name, text string) string {
	var b strings.Builder
	fmt.Fprintf(&b, `<p:sp><p:nvSpPr><p:cNvPr id="2" name="%s"/><p:cNvSpPr/><p:nvPr/></p:nvSpPr><p:spPr/><p:txBody><a:bodyPr/>`, escape(name))
	for _, line := range strings.Split(text, "\n") {
		b.WriteString(`<a:p>`)
		if line != "" {
			b.WriteString(`<a:r><a:t>`)
			b.WriteString(escape(line))
			b.WriteString(`</a:t></a:r>`)
		}
		b.WriteString(`</a:p>`)
	}
	b.WriteString(`</p:txBody></p:sp>`)
	return b.String()
}

// Picture returns a picture shape, which exposes no text.
func Picture(name string) string {
	return fmt.Sprintf(`<p:pic><p:nvPicPr><p:cNvPr id="3" name="%s"/><p:cNvPicPr/><p:nvPr/></p:nvPicPr><p:blipFill/><p:spPr/></p:pic>`, escape(name))
}

// Slide returns slide XML holding the given shapes in order.
func Slide(shapes ...string) string {
	return slideHeader + strings.Join(shapes, "") + slideFooter
}

// TextSlide returns a slide with one text box per argument.
func TextSlide(texts ...string) string {
	shapes := make([]string, len(texts))
	for i, t := range texts {
		shapes[i] = TextShape(fmt.Sprintf("TextBox %d", i+1), t)
	}
	return Slide(shapes...)
}

// Presentation builds a .pptx holding the given slide XML documents in
// order. Slide parts are written to the archive in reverse order so that
// readers relying on archive order rather than the slide list are caught.
func Presentation(t testing.TB, slides ...string) []byte {
	t.Helper()

	var pres, rels, types strings.Builder
	pres.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<p:presentation xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships" xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main"><p:sldIdLst>`)
	rels.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">`)
	types.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"><Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/><Default Extension="xml" ContentType="application/xml"/><Override PartName="/ppt/presentation.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.presentation.main+xml"/>`)

	for i := range slides {
		fmt.Fprintf(&pres, `<p:sldId id="%d" r:id="rId%d"/>`, 256+i, i+10)
		fmt.Fprintf(&rels, `<Relationship Id="rId%d" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/slide" Target="slides/slide%d.xml"/>`, i+10, i+1)
		fmt.Fprintf(&types, `<Override PartName="/ppt/slides/slide%d.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.slide+xml"/>`, i+1)
	}
	pres.WriteString(`</p:sldIdLst></p:presentation>`)
	rels.WriteString(`</Relationships>`)
	types.WriteString(`</Types>`)

	files := map[string]string{
		"[Content_Types].xml":             types.String(),
		"ppt/presentation.xml":            pres.String(),
		"ppt/_rels/presentation.xml.rels": rels.String(),
	}
	order := []string{"[Content_Types].xml", "ppt/presentation.xml", "ppt/_rels/presentation.xml.rels"}
	for i := len(slides) - 1; i >= 0; i-- {
		name := fmt.Sprintf("ppt/slides/slide%d.xml", i+1)
		files[name] = slides[i]
		order = append(order, name)
	}
	return Zip(t, order, files)
}

// Document builds a .docx with one paragraph per argument.
func Document(t testing.TB, paragraphs ...string) []byte {
	t.Helper()
	data, err := ooxml.WriteDocument(paragraphs)
	if err != nil {
		t.Fatalf("building document: %v", err)
	}
	return data
}

// DocumentXML builds a .docx whose main part is the given body content,
// for documents the writer cannot express (tables, hyperlinks, page breaks).
func DocumentXML(t testing.TB, body string) []byte {
	t.Helper()
	doc := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships"><w:body>` + body + `</w:body></w:document>`
	return Zip(t, []string{ooxml.DocumentPart}, map[string]string{ooxml.DocumentPart: doc})
}

// Zip writes the named files into an archive in the given order.
func Zip(t testing.TB, order []string, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range order {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("creating %s: %v", name, err)
		}
		if _, err := w.Write([]byte(files[name])); err != nil {
			t.Fatalf("writing %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("closing zip: %v", err)
	}
	return buf.Bytes()
}

func escape(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}
