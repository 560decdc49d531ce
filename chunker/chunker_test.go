// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/docvec/core"
	"github.com/poiesic/docvec/token"
)

func newTestChunker(t *testing.T) *Chunker {
	t.Helper()
	c, err := New(token.NewWords())
	require.NoError(t, err)
	return c
}

func TestNewRequiresTokenizer(t *testing.T) {
	_, err := New(nil)
	assert.ErrorIs(t, err, ErrTokenizerRequired)
}

func TestChunkInvalidParameters(t *testing.T) {
	c := newTestChunker(t)

	_, err := c.Chunk("text", 0, 0)
	assert.ErrorIs(t, err, ErrInvalidMaxTokens)

	_, err = c.Chunk("text", 10, -1)
	assert.ErrorIs(t, err, ErrInvalidOverlap)

	_, err = c.Chunk("text", 10, 10)
	assert.ErrorIs(t, err, ErrInvalidOverlap)
}

func TestChunkEmptyText(t *testing.T) {
	c := newTestChunker(t)

	chunks, err := c.Chunk("", 10, 2)
	require.NoError(t, err)
	assert.Nil(t, chunks)

	chunks, err = c.Chunk("  \n\n\t  ", 10, 2)
	require.NoError(t, err)
	assert.Nil(t, chunks)
}

func TestChunkSingleFit(t *testing.T) {
	c := newTestChunker(t)

	chunks, err := c.Chunk("alpha beta gamma", 10, 2)
	require.NoError(t, err)
	require.Len(t, chunks, 1)

	assert.Equal(t, 0, chunks[0].Index)
	assert.Equal(t, 3, chunks[0].Tokens)
	assert.Equal(t, 0, chunks[0].Overlap)
	assert.Equal(t, "alpha beta gamma", chunks[0].Text)
	assert.Equal(t, core.HashContent("alpha beta gamma"), chunks[0].Hash)
}

func TestChunkOverlapSeeding(t *testing.T) {
	c := newTestChunker(t)

	// One paragraph of four two-word lines; a four-token budget forces
	// line-level units and a new chunk per line pair.
	text := "a b\nc d\ne f\ng h"
	chunks, err := c.Chunk(text, 4, 2)
	require.NoError(t, err)
	require.Len(t, chunks, 3)

	assert.Equal(t, "a b\nc d", chunks[0].Text)
	assert.Equal(t, "c d\ne f", chunks[1].Text)
	assert.Equal(t, "e f\ng h", chunks[2].Text)

	assert.Equal(t, 0, chunks[0].Overlap)
	assert.Equal(t, 2, chunks[1].Overlap)
	assert.Equal(t, 2, chunks[2].Overlap)
}

func TestChunkSeededChunkStaysWithinBudget(t *testing.T) {
	c := newTestChunker(t)

	// The third paragraph fits the budget on its own but leaves only two
	// tokens of room; the overlap seed must shrink to that room rather than
	// pushing the chunk over budget.
	text := "a b c\n\nd e f\n\ng h i j k l m n"
	chunks, err := c.Chunk(text, 10, 5)
	require.NoError(t, err)
	require.Len(t, chunks, 2)

	for _, ch := range chunks {
		assert.LessOrEqual(t, ch.Tokens, 10)
	}
	assert.Equal(t, "a b c\n\nd e f", chunks[0].Text)
	assert.Equal(t, "g h i j k l m n", chunks[1].Text)
	assert.Equal(t, 0, chunks[1].Overlap, "a three-token trailing unit cannot fit two tokens of room")
}

func TestChunkPreservesParagraphBoundaries(t *testing.T) {
	c := newTestChunker(t)

	chunks, err := c.Chunk("alpha beta\n\ngamma delta", 10, 0)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "alpha beta\n\ngamma delta", chunks[0].Text)
}

func TestChunkRespectsTokenBudget(t *testing.T) {
	c := newTestChunker(t)

	var b strings.Builder
	for i := 0; i < 10; i++ {
		b.WriteString("one two three. ")
	}
	chunks, err := c.Chunk(b.String(), 8, 2)
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	total := 0
	for i, ch := range chunks {
		assert.Equal(t, i, ch.Index)
		assert.LessOrEqual(t, ch.Tokens, 8)
		total += ch.Tokens - ch.Overlap
	}
	// Every source token lands in exactly one chunk net of overlap.
	assert.Equal(t, 30, total)
}

func TestChunkClauseFallback(t *testing.T) {
	c := newTestChunker(t)

	// A single nine-word sentence; clauses are the only boundaries that
	// fit a four-token budget.
	chunks, err := c.Chunk("a b c, d e f, g h i.", 4, 0)
	require.NoError(t, err)
	require.Len(t, chunks, 3)

	assert.Equal(t, "a b c,", chunks[0].Text)
	assert.Equal(t, "d e f,", chunks[1].Text)
	assert.Equal(t, "g h i.", chunks[2].Text)
}

func TestChunkOversizedIndivisibleUnit(t *testing.T) {
	c := newTestChunker(t)

	// Ten words with no punctuation cannot be decomposed below the budget.
	oversized := "w0 w1 w2 w3 w4 w5 w6 w7 w8 w9"
	chunks, err := c.Chunk("a b\n\n"+oversized, 5, 1)
	require.NoError(t, err)
	require.Len(t, chunks, 2)

	assert.Equal(t, "a b", chunks[0].Text)
	assert.Equal(t, oversized, chunks[1].Text)
	assert.Equal(t, 10, chunks[1].Tokens)
	assert.Equal(t, 0, chunks[1].Overlap)
}

func TestSplitBoundariesEmpty(t *testing.T) {
	c := newTestChunker(t)
	assert.Nil(t, c.SplitBoundaries("", 100))
	assert.Nil(t, c.SplitBoundaries("   ", 100))
}

func TestSplitBoundariesNonPositiveTarget(t *testing.T) {
	c := newTestChunker(t)
	segments := c.SplitBoundaries("  whole text  ", 0)
	assert.Equal(t, []string{"whole text"}, segments)
}

func TestSplitBoundariesHalvesAtParagraphs(t *testing.T) {
	c := newTestChunker(t)

	paras := []string{
		"alpha beta gamma",
		"delta epsilon zeta",
		"eta theta iota",
		"kappa lambda mu",
	}
	text := strings.Join(paras, "\n\n")

	segments := c.SplitBoundaries(text, len(text)/2)
	require.GreaterOrEqual(t, len(segments), 2)

	// No words are lost or reordered across the cut.
	var got []string
	for _, seg := range segments {
		assert.NotEmpty(t, strings.TrimSpace(seg))
		got = append(got, strings.Fields(seg)...)
	}
	assert.Equal(t, strings.Fields(text), got)
}

func TestSplitBoundariesNeverCutsInsideWords(t *testing.T) {
	c := newTestChunker(t)

	text := "indivisible run of words without punctuation in a single line"
	for _, target := range []int{5, 10, 20} {
		for _, seg := range c.SplitBoundaries(text, target) {
			for _, f := range strings.Fields(seg) {
				assert.Contains(t, strings.Fields(text), f)
			}
		}
	}
}
