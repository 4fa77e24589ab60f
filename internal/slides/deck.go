// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package slides extracts exemplar text from presentation decks (.pptx).
// Decks are read slide by slide in presentation order; each slide's text is
// tested against a relevance policy and kept as an exemplar when it matches.
package slides

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/pdiddy/proposal-drafter/internal/ooxml"
)

const presentationPart = "ppt/presentation.xml"

// Deck is a parsed presentation: its slides in presentation order.
type Deck struct {
	Name   string
	Slides []Slide
}

// Slide holds the top-level shapes of one slide in z-order.
type Slide struct {
	Shapes []Shape
}

// Shape is one top-level element of a slide's shape tree. Only auto-shapes
// (text boxes, placeholders) expose text; pictures, groups, connectors and
// graphic frames have HasText false.
type Shape struct {
	Name    string
	Kind    string
	Text    string
	HasText bool
}

// Text joins the text of every text-bearing shape with "\n", in shape order.
// A slide with no text-bearing shapes yields "".
func (s Slide) Text() string {
	var bits []string
	for _, sh := range s.Shapes {
		if sh.HasText {
			bits = append(bits, sh.Text)
		}
	}
	return strings.Join(bits, "\n")
}

type presentationXML struct {
	SlideIDs []struct {
		RID string `xml:"http://schemas.openxmlformats.org/officeDocument/2006/relationships id,attr"`
	} `xml:"sldIdLst>sldId"`
}

// ReadDeck parses a .pptx package. Slide order follows the presentation's
// slide list, not the part names inside the archive.
func ReadDeck(name string, data []byte) (*Deck, error) {
	pkg, err := ooxml.Open(data)
	if err != nil {
		return nil, err
	}
	if !pkg.Has(presentationPart) {
		return nil, fmt.Errorf("not a presentation: %s missing", presentationPart)
	}

	raw, err := pkg.ReadPart(presentationPart)
	if err != nil {
		return nil, err
	}
	var pres presentationXML
	if err := xml.Unmarshal(raw, &pres); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", presentationPart, err)
	}

	rels, err := pkg.Rels(presentationPart)
	if err != nil {
		return nil, err
	}

	deck := &Deck{Name: name}
	for i, id := range pres.SlideIDs {
		rel, ok := rels[id.RID]
		if !ok {
			return nil, fmt.Errorf("slide %d: relationship %q not found", i+1, id.RID)
		}
		partName := ooxml.ResolveTarget(presentationPart, rel.Target)
		slideXML, err := pkg.ReadPart(partName)
		if err != nil {
			return nil, fmt.Errorf("slide %d: %w", i+1, err)
		}
		slide, err := parseSlide(slideXML)
		if err != nil {
			return nil, fmt.Errorf("slide %d (%s): %w", i+1, partName, err)
		}
		deck.Slides = append(deck.Slides, slide)
	}
	return deck, nil
}

// parseSlide walks the slide's shape tree. Shape text is its paragraphs
// joined by "\n"; a:br inside a paragraph becomes "\v".
func parseSlide(data []byte) (Slide, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	var (
		stack     []string
		treeDepth = -1
		shape     *Shape
		paras     []string
		para      strings.Builder
		inText    bool
		slide     Slide
	)

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Slide{}, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			local := t.Name.Local
			if local == "spTree" && treeDepth < 0 {
				treeDepth = len(stack) + 1
			}
			stack = append(stack, local)
			if treeDepth < 0 || len(stack) <= treeDepth {
				continue
			}

			// Direct children of spTree are the slide's shapes.
			if len(stack) == treeDepth+1 {
				switch local {
				case "sp":
					shape = &Shape{Kind: local, HasText: true}
					paras = nil
				case "pic", "grpSp", "graphicFrame", "cxnSp", "contentPart":
					slide.Shapes = append(slide.Shapes, Shape{Kind: local})
				}
				continue
			}
			if shape == nil {
				continue
			}

			rel := stack[treeDepth:]
			switch {
			case local == "cNvPr" && len(rel) == 3 && rel[1] == "nvSpPr":
				for _, a := range t.Attr {
					if a.Name.Local == "name" {
						shape.Name = a.Value
					}
				}
			case local == "p" && len(rel) == 3 && rel[1] == "txBody":
				para.Reset()
			case local == "br" && len(rel) == 4 && rel[1] == "txBody":
				para.WriteString("\v")
			case local == "t" && len(rel) == 5 && rel[1] == "txBody" && (rel[3] == "r" || rel[3] == "fld"):
				inText = true
			}
		case xml.CharData:
			if inText {
				para.Write(t)
			}
		case xml.EndElement:
			if len(stack) == 0 {
				continue
			}
			if treeDepth >= 0 && shape != nil {
				rel := stack[treeDepth:]
				switch {
				case t.Name.Local == "t":
					inText = false
				case t.Name.Local == "p" && len(rel) == 3 && rel[1] == "txBody":
					paras = append(paras, para.String())
				case t.Name.Local == "sp" && len(rel) == 1:
					shape.Text = strings.Join(paras, "\n")
					slide.Shapes = append(slide.Shapes, *shape)
					shape = nil
				}
			}
			stack = stack[:len(stack)-1]
		}
	}

	if treeDepth < 0 {
		return Slide{}, fmt.Errorf("no shape tree")
	}
	return slide, nil
}
