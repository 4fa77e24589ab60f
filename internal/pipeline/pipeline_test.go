// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/proposal-drafter/internal/generate"
	"github.com/pdiddy/proposal-drafter/internal/ooxml/ooxmltest"
	"github.com/pdiddy/proposal-drafter/internal/prompt"
	"github.com/pdiddy/proposal-drafter/pkg/types"
)

// recorder captures the prompt and limits it was called with.
type recorder struct {
	out    string
	err    error
	delay  time.Duration
	prompt string
	limits types.Limits
	calls  int
}

func (r *recorder) Name() string { return "recorder" }

func (r *recorder) Generate(ctx context.Context, p string, l types.Limits) (string, error) {
	r.calls++
	r.prompt = p
	r.limits = l
	if r.delay > 0 {
		select {
		case <-time.After(r.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return r.out, r.err
}

type staticSource []types.Exemplar

func (s staticSource) Exemplars(context.Context) ([]types.Exemplar, error) { return s, nil }

func deck(t *testing.T, name string, slides ...string) types.Upload {
	t.Helper()
	return types.Upload{Name: name, Data: ooxmltest.Presentation(t, slides...)}
}

func textBrief(text string) *types.Upload {
	return &types.Upload{Name: "brief.txt", Data: []byte(text)}
}

func TestRun_ImproveReliabilityWithEcho(t *testing.T) {
	p := New(generate.NewEchoBackend())

	res, err := p.Run(context.Background(), Request{
		Decks: []types.Upload{deck(t, "prior.pptx",
			ooxmltest.TextSlide("Agenda"),
			ooxmltest.TextSlide("Objectives", "Reduce downtime"),
			ooxmltest.TextSlide("Thank you"),
		)},
		Brief: textBrief("Improve reliability"),
	})
	require.NoError(t, err)

	require.Len(t, res.Exemplars, 1)
	assert.Equal(t, 2, res.Exemplars[0].Slide)
	assert.Equal(t, "Objectives\nReduce downtime", res.Exemplars[0].Text)
	assert.Equal(t, types.BriefText, res.Brief.Format)
	assert.Contains(t, res.Prompt.Text, prompt.BriefHeader+"\nImprove reliability\n")
	assert.Equal(t, "Objectives & Solutions: Improve reliability", res.Draft)
	assert.Equal(t, "echo", res.Backend)
}

func TestRun_PromptOrderAndTrimming(t *testing.T) {
	rec := &recorder{out: "  \n Draft body.\n\n"}
	limit := 0.2
	p := New(rec, WithLimits(types.Limits{MaxLength: 64, Temperature: &limit}))

	res, err := p.Run(context.Background(), Request{
		Decks: []types.Upload{
			deck(t, "a.pptx", ooxmltest.TextSlide("Objective A")),
			deck(t, "b.pptx", ooxmltest.TextSlide("Solution B"), ooxmltest.TextSlide("Objective C")),
		},
		Brief: textBrief("New brief"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Draft body.", res.Draft)
	assert.Equal(t, 1, rec.calls)
	assert.Equal(t, 64, rec.limits.MaxLength)

	a := strings.Index(rec.prompt, "Objective A")
	b := strings.Index(rec.prompt, "Solution B")
	c := strings.Index(rec.prompt, "Objective C")
	require.True(t, a >= 0 && b >= 0 && c >= 0)
	assert.Less(t, a, b)
	assert.Less(t, b, c)

	want, err := prompt.Synthesize([]string{"Objective A", "Solution B", "Objective C"}, "New brief")
	require.NoError(t, err)
	assert.Equal(t, want, res.Prompt)
	assert.Equal(t, want.Text, rec.prompt)
}

func TestRun_NoRelevantSlides(t *testing.T) {
	rec := &recorder{out: "draft"}
	res, err := New(rec).Run(context.Background(), Request{
		Decks: []types.Upload{deck(t, "a.pptx", ooxmltest.TextSlide("Agenda"))},
		Brief: textBrief("brief"),
	})
	require.NoError(t, err)
	assert.Empty(t, res.Exemplars)
	assert.Contains(t, res.Prompt.Text, prompt.ExamplesHeader+"\n\n\n"+prompt.BriefHeader)
}

func TestRun_MissingInputs(t *testing.T) {
	rec := &recorder{}
	p := New(rec)

	_, err := p.Run(context.Background(), Request{Decks: []types.Upload{deck(t, "a.pptx")}})
	var missing *types.MissingInputError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "brief", missing.Input)

	_, err = p.Run(context.Background(), Request{Brief: textBrief("b")})
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "decks", missing.Input)

	assert.Zero(t, rec.calls)
}

func TestRun_ExemplarSourceMakesDecksOptional(t *testing.T) {
	rec := &recorder{out: "draft"}
	src := staticSource{{Deck: "stored.pptx", Slide: 3, Text: "Objective stored"}}
	p := New(rec, WithExemplarSource(src))

	res, err := p.Run(context.Background(), Request{
		Decks: []types.Upload{deck(t, "new.pptx", ooxmltest.TextSlide("Solution new"))},
		Brief: textBrief("b"),
	})
	require.NoError(t, err)
	require.Len(t, res.Exemplars, 2)
	assert.Equal(t, "Objective stored", res.Exemplars[0].Text)
	assert.Equal(t, "Solution new", res.Exemplars[1].Text)

	_, err = p.Run(context.Background(), Request{Brief: textBrief("b")})
	assert.NoError(t, err)
}

func TestRun_StageErrorsAbortBeforeGeneration(t *testing.T) {
	rec := &recorder{}
	p := New(rec)

	_, err := p.Run(context.Background(), Request{
		Decks: []types.Upload{
			deck(t, "good.pptx", ooxmltest.TextSlide("Objective")),
			{Name: "bad.pptx", Data: []byte("not a zip")},
		},
		Brief: textBrief("b"),
	})
	var perr *types.ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "bad.pptx", perr.File)

	_, err = p.Run(context.Background(), Request{
		Decks: []types.Upload{deck(t, "a.pptx")},
		Brief: &types.Upload{Name: "brief.pdf", Data: []byte("%PDF")},
	})
	var uerr *types.UnsupportedFormatError
	require.ErrorAs(t, err, &uerr)

	_, err = p.Run(context.Background(), Request{
		Decks: []types.Upload{deck(t, "a.pptx")},
		Brief: &types.Upload{Name: "brief.txt", Data: []byte{0xff, 0xfe}},
	})
	var derr *types.DecodeError
	require.ErrorAs(t, err, &derr)

	assert.Zero(t, rec.calls)
}

func TestRun_BackendFailureCarriesPromptID(t *testing.T) {
	boom := errors.New("model unavailable")
	p := New(&recorder{err: boom})

	_, err := p.Run(context.Background(), Request{
		Decks: []types.Upload{deck(t, "a.pptx", ooxmltest.TextSlide("Objective"))},
		Brief: textBrief("b"),
	})
	var gerr *types.GenerationError
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, "recorder", gerr.Backend)
	assert.Len(t, gerr.PromptID, 12)
	assert.ErrorIs(t, err, boom)
}

func TestRun_Timeout(t *testing.T) {
	p := New(&recorder{out: "late", delay: time.Second}, WithTimeout(20*time.Millisecond))

	_, err := p.Run(context.Background(), Request{
		Decks: []types.Upload{deck(t, "a.pptx")},
		Brief: textBrief("b"),
	})
	var gerr *types.GenerationError
	require.ErrorAs(t, err, &gerr)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRun_DocxBrief(t *testing.T) {
	rec := &recorder{out: "ok"}
	res, err := New(rec).Run(context.Background(), Request{
		Decks: []types.Upload{deck(t, "a.pptx")},
		Brief: &types.Upload{Name: "Brief.DOCX", Data: ooxmltest.Document(t, "Line one", "Line two")},
	})
	require.NoError(t, err)
	assert.Equal(t, "Line one\nLine two", res.Brief.Text)
	assert.Equal(t, types.BriefDocx, res.Brief.Format)
}
