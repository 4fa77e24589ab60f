// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ooxml reads and writes Office Open XML packages (.pptx, .docx).
// A package is a zip archive of XML parts linked by relationship parts.
package ooxml

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"strings"
)

// Package is an opened OOXML zip archive. Part names are matched
// case-insensitively and without a leading slash.
type Package struct {
	parts map[string]*zip.File
}

// Open reads an OOXML package from its raw bytes.
func Open(data []byte) (*Package, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty package")
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("opening zip container: %w", err)
	}
	p := &Package{parts: make(map[string]*zip.File, len(zr.File))}
	for _, f := range zr.File {
		if f == nil || strings.HasSuffix(f.Name, "/") {
			continue
		}
		p.parts[normalize(f.Name)] = f
	}
	return p, nil
}

// Has reports whether the named part exists.
func (p *Package) Has(name string) bool {
	_, ok := p.parts[normalize(name)]
	return ok
}

// ReadPart returns the content of the named part.
func (p *Package) ReadPart(name string) ([]byte, error) {
	f, ok := p.parts[normalize(name)]
	if !ok {
		return nil, fmt.Errorf("part not found: %s", name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("opening part %s: %w", name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("reading part %s: %w", name, err)
	}
	return data, nil
}

// Relationship is one entry of a .rels part.
type Relationship struct {
	ID         string `xml:"Id,attr"`
	Type       string `xml:"Type,attr"`
	Target     string `xml:"Target,attr"`
	TargetMode string `xml:"TargetMode,attr"`
}

type relationships struct {
	Items []Relationship `xml:"Relationship"`
}

// Rels returns the relationships of a part keyed by relationship ID. The
// relationship part for "ppt/presentation.xml" is
// "ppt/_rels/presentation.xml.rels". A part without relationships yields an
// empty map.
func (p *Package) Rels(part string) (map[string]Relationship, error) {
	relsName := path.Join(path.Dir(normalize(part)), "_rels", path.Base(normalize(part))+".rels")
	out := make(map[string]Relationship)
	if !p.Has(relsName) {
		return out, nil
	}
	data, err := p.ReadPart(relsName)
	if err != nil {
		return nil, err
	}
	var rels relationships
	if err := xml.Unmarshal(data, &rels); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", relsName, err)
	}
	for _, r := range rels.Items {
		out[r.ID] = r
	}
	return out, nil
}

// ResolveTarget turns a relationship target into a part name relative to the
// package root. Targets are relative to the directory of the source part
// unless they start with "/".
func ResolveTarget(source, target string) string {
	if strings.HasPrefix(target, "/") {
		return normalize(target)
	}
	return normalize(path.Join(path.Dir(normalize(source)), target))
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), "/"))
}
