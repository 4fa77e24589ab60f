// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the proposal-drafter pipeline:
// uploads, exemplars, briefs, prompts, exports, configuration, and the error
// taxonomy reported by every stage.
package types

// Upload is one uploaded byte stream together with its declared filename.
// Uploads are owned by the request that carries them.
type Upload struct {
	// Name is the filename supplied by the uploader (e.g. "q3-review.pptx").
	Name string `json:"name" yaml:"name"`

	// Data is the full file content.
	Data []byte `json:"-" yaml:"-"`
}

// Exemplar is the text of one past slide judged relevant by the relevance
// policy. Exemplars are ordered by deck upload order, then slide order.
type Exemplar struct {
	// Deck is the filename of the deck the slide came from.
	Deck string `json:"deck" yaml:"deck"`

	// Slide is the 1-based position of the slide within its deck.
	Slide int `json:"slide" yaml:"slide"`

	// Text is the slide's shape texts joined by newline in shape order.
	Text string `json:"text" yaml:"text"`
}

// BriefFormat identifies how a brief document is read.
type BriefFormat string

const (
	BriefDocx BriefFormat = "docx"
	BriefText BriefFormat = "text"
)

// Brief is the plain text extracted from the single brief document of a request.
type Brief struct {
	// Filename is the declared filename of the uploaded brief.
	Filename string `json:"filename" yaml:"filename"`

	// Format records which extraction path produced Text.
	Format BriefFormat `json:"format" yaml:"format"`

	// Text is the extracted brief content.
	Text string `json:"text" yaml:"text"`
}

// Prompt is the instruction string handed to a generation backend.
type Prompt struct {
	// ID is a stable identity derived from Text: the first 12 hex characters
	// of its SHA-256 digest.
	ID string `json:"id" yaml:"id"`

	// Text is the synthesized prompt.
	Text string `json:"text" yaml:"text"`
}

// ExportFormat selects the document produced by the exporter.
type ExportFormat string

const (
	ExportDocx ExportFormat = "docx"
	ExportText ExportFormat = "txt"
)

// Export is a rendered draft ready for download.
type Export struct {
	// Data is the encoded document.
	Data []byte `json:"-" yaml:"-"`

	// MIMEType is the media type of Data.
	MIMEType string `json:"mime_type" yaml:"mime_type"`

	// Filename is the suggested download filename.
	Filename string `json:"filename" yaml:"filename"`
}
