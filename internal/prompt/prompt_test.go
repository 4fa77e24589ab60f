// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/proposal-drafter/pkg/types"
)

func TestSynthesize_Layout(t *testing.T) {
	p, err := Synthesize([]string{"Objective: A", "Solution: B"}, "Client wants X")
	require.NoError(t, err)

	want := Instruction + "\n\n" +
		"=== Examples ===\n" +
		"Objective: A\n---\nSolution: B" +
		"\n\n=== New Brief ===\n" +
		"Client wants X" +
		"\n\n=== Draft ===\n"
	assert.Equal(t, want, p.Text)
	assert.Len(t, p.ID, 12)
}

func TestSynthesize_EmptyExamples(t *testing.T) {
	p, err := Synthesize(nil, "Improve reliability")
	require.NoError(t, err)

	assert.Contains(t, p.Text, "=== Examples ===\n\n\n=== New Brief ===\nImprove reliability\n\n=== Draft ===\n")
	assertHeadersInOrder(t, p.Text)
}

func TestSynthesize_HeadersInOrder(t *testing.T) {
	inputs := []struct {
		exemplars []string
		brief     string
	}{
		{nil, ""},
		{[]string{""}, "x"},
		{[]string{"Objective"}, "brief mentioning === Draft === inline"},
		{[]string{"a", "b", "c"}, strings.Repeat("long brief ", 5000)},
	}
	for _, in := range inputs {
		p, err := Synthesize(in.exemplars, in.brief)
		require.NoError(t, err)
		assertHeadersInOrder(t, p.Text)
		assert.True(t, strings.HasSuffix(p.Text, DraftHeader+"\n"))
		assert.Contains(t, p.Text, in.brief)
	}
}

func TestSynthesize_Pure(t *testing.T) {
	ex := []string{"Objective: grow", "Solution: build"}
	a, err := Synthesize(ex, "brief")
	require.NoError(t, err)
	b, err := Synthesize(ex, "brief")
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c, err := Synthesize(ex, "brief!")
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, c.ID)
}

func TestSynthesize_NoTruncation(t *testing.T) {
	brief := strings.Repeat("x", 1<<20)
	p, err := Synthesize(nil, brief)
	require.NoError(t, err)
	assert.Greater(t, len(p.Text), len(brief))
}

func TestSynthesize_PreservesExemplarOrder(t *testing.T) {
	p, err := Synthesize([]string{"third", "first", "second"}, "b")
	require.NoError(t, err)
	assert.Less(t, strings.Index(p.Text, "third"), strings.Index(p.Text, "first"))
	assert.Less(t, strings.Index(p.Text, "first"), strings.Index(p.Text, "second"))
}

func TestTexts(t *testing.T) {
	got := Texts([]types.Exemplar{{Deck: "a", Slide: 1, Text: "one"}, {Deck: "b", Slide: 4, Text: "two"}})
	assert.Equal(t, []string{"one", "two"}, got)
	assert.Empty(t, Texts(nil))
}

func assertHeadersInOrder(t *testing.T, text string) {
	t.Helper()
	e := strings.Index(text, ExamplesHeader)
	b := strings.Index(text, BriefHeader)
	d := strings.LastIndex(text, DraftHeader)
	require.True(t, e >= 0 && b >= 0 && d >= 0, "missing header in %q", text)
	assert.Less(t, e, b)
	assert.Less(t, b, d)
}
