package chunker

import (
	"log/slog"
	"strings"

	"github.com/poiesic/docvec/core"
	"github.com/poiesic/docvec/token"
)

// Chunker splits text into token-bounded, overlapping passages along
// natural-language boundaries. Boundary priority is paragraph > line >
// sentence > clause; a finer granularity is used only when the coarser
// unit alone exceeds the token budget.
type Chunker struct {
	tok    token.Adapter
	logger *slog.Logger
}

// New creates a Chunker sized by the given tokenizer adapter.
func New(tok token.Adapter) (*Chunker, error) {
	if tok == nil {
		return nil, ErrTokenizerRequired
	}
	return &Chunker{
		tok:    tok,
		logger: slog.Default().With("component", "chunker"),
	}, nil
}

// Chunk splits text into passages of at most maxTokens tokens, each seeded
// with the trailing overlapTokens worth of units from its predecessor.
//
// A single indivisible unit larger than the budget (a run-on clause with no
// internal boundary) is emitted whole as its own chunk. Truncation would
// silently lose data and is never performed.
func (c *Chunker) Chunk(text string, maxTokens, overlapTokens int) ([]core.Chunk, error) {
	if maxTokens <= 0 {
		return nil, ErrInvalidMaxTokens
	}
	if overlapTokens < 0 || overlapTokens >= maxTokens {
		return nil, ErrInvalidOverlap
	}
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	units := decompose(text,
		func(s string) bool { return c.tok.Count(s) <= maxTokens },
		c.tok.Count,
	)

	var (
		chunks     []core.Chunk
		buf        []unit
		bufTokens  int
		overlapTok int // tokens carried into buf from the previous chunk
	)

	flush := func() {
		if len(buf) == 0 {
			return
		}
		joined := joinUnits(buf)
		chunks = append(chunks, core.Chunk{
			Index:   len(chunks),
			Tokens:  c.tok.Count(joined),
			Overlap: overlapTok,
			Text:    joined,
			Hash:    core.HashContent(joined),
		})
	}

	// seedOverlap walks backward over the closed buffer, unit by unit,
	// collecting trailing units until budget is filled. budget is the overlap
	// budget already capped by the room the incoming unit leaves, so a seeded
	// chunk never exceeds maxTokens.
	seedOverlap := func(closed []unit, budget int) ([]unit, int) {
		var seed []unit
		total := 0
		for i := len(closed) - 1; i >= 0; i-- {
			if total+closed[i].tokens > budget {
				break
			}
			seed = append([]unit{closed[i]}, seed...)
			total += closed[i].tokens
		}
		return seed, total
	}

	for _, u := range units {
		if u.tokens > maxTokens {
			// Indivisible oversized unit: emit whole, alone.
			flush()
			c.logger.Warn("oversized indivisible unit emitted whole",
				"tokens", u.tokens, "maxTokens", maxTokens)
			chunks = append(chunks, core.Chunk{
				Index:  len(chunks),
				Tokens: u.tokens,
				Text:   u.text,
				Hash:   core.HashContent(u.text),
			})
			buf, bufTokens, overlapTok = nil, 0, 0
			continue
		}

		if bufTokens+u.tokens > maxTokens && len(buf) > 0 {
			closed := buf
			flush()
			budget := min(overlapTokens, maxTokens-u.tokens)
			seed, seedTokens := seedOverlap(closed, budget)
			buf = append(seed, u)
			bufTokens = seedTokens + u.tokens
			overlapTok = seedTokens
			continue
		}

		buf = append(buf, u)
		bufTokens += u.tokens
	}
	flush()

	return chunks, nil
}

// SplitBoundaries splits text into segments near targetBytes each, using the
// same paragraph > line > sentence > clause boundary priority but sized in
// bytes. No overlap is added; the recursive splitter uses this to halve a
// failing document without ever cutting inside a word.
func (c *Chunker) SplitBoundaries(text string, targetBytes int) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if targetBytes <= 0 {
		return []string{strings.TrimSpace(text)}
	}

	units := decompose(text,
		func(s string) bool { return len(s) <= targetBytes },
		func(s string) int { return len(s) },
	)

	var (
		segments []string
		buf      []unit
		size     int
	)
	flush := func() {
		if len(buf) == 0 {
			return
		}
		if seg := strings.TrimSpace(joinUnits(buf)); seg != "" {
			segments = append(segments, seg)
		}
		buf, size = nil, 0
	}

	for _, u := range units {
		if size+u.tokens > targetBytes && len(buf) > 0 {
			flush()
		}
		buf = append(buf, u)
		size += u.tokens
	}
	flush()

	return segments
}
