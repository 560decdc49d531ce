package token

import (
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// Adapter converts raw text to a countable token sequence and back.
// Chunk budgets are token-denominated because embedding-service limits are,
// so all sizing goes through an Adapter rather than byte or rune counts.
// Implementations must be safe for concurrent use.
type Adapter interface {
	// Count returns the number of tokens in text.
	Count(text string) int

	// Encode converts text to its token sequence.
	Encode(text string) []int

	// Decode converts a token sequence back to text.
	Decode(tokens []int) string
}

// Tiktoken adapts the cl100k_base BPE encoding used by OpenAI embedding
// models. This is the production adapter.
type Tiktoken struct {
	enc *tiktoken.Tiktoken
}

var _ Adapter = (*Tiktoken)(nil)

// NewTiktoken creates a Tiktoken adapter for the cl100k_base encoding.
func NewTiktoken() (*Tiktoken, error) {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, err
	}
	return &Tiktoken{enc: enc}, nil
}

// Count returns the number of cl100k_base tokens in text.
func (t *Tiktoken) Count(text string) int {
	return len(t.enc.Encode(text, nil, nil))
}

// Encode converts text to cl100k_base token ids.
func (t *Tiktoken) Encode(text string) []int {
	return t.enc.Encode(text, nil, nil)
}

// Decode converts cl100k_base token ids back to text.
func (t *Tiktoken) Decode(tokens []int) string {
	return t.enc.Decode(tokens)
}

// Words is a whitespace-word Adapter. One token per whitespace-separated
// word. It needs no vocabulary download, which makes it suitable for tests
// and for air-gapped environments where the BPE data cannot be fetched.
type Words struct {
	mu    sync.Mutex
	vocab map[string]int
	words []string
}

var _ Adapter = (*Words)(nil)

// NewWords creates a whitespace-word adapter.
func NewWords() *Words {
	return &Words{vocab: make(map[string]int)}
}

// Count returns the number of whitespace-separated words in text.
func (w *Words) Count(text string) int {
	return len(strings.Fields(text))
}

// Encode assigns each distinct word a stable id within this adapter.
func (w *Words) Encode(text string) []int {
	fields := strings.Fields(text)
	w.mu.Lock()
	defer w.mu.Unlock()

	tokens := make([]int, len(fields))
	for i, f := range fields {
		id, ok := w.vocab[f]
		if !ok {
			id = len(w.words)
			w.vocab[f] = id
			w.words = append(w.words, f)
		}
		tokens[i] = id
	}
	return tokens
}

// Decode joins the words for the given ids with single spaces.
// Unknown ids are skipped.
func (w *Words) Decode(tokens []int) string {
	w.mu.Lock()
	defer w.mu.Unlock()

	parts := make([]string, 0, len(tokens))
	for _, id := range tokens {
		if id >= 0 && id < len(w.words) {
			parts = append(parts, w.words[id])
		}
	}
	return strings.Join(parts, " ")
}
