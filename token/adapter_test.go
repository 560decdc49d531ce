package token

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWordsCount(t *testing.T) {
	w := NewWords()

	assert.Equal(t, 0, w.Count(""))
	assert.Equal(t, 0, w.Count("   \n\t"))
	assert.Equal(t, 4, w.Count("the quick brown fox"))
	assert.Equal(t, 4, w.Count("  the\nquick\tbrown   fox  "))
}

func TestWordsEncodeDecode(t *testing.T) {
	w := NewWords()

	tokens := w.Encode("to be or not to be")
	require.Len(t, tokens, 6)

	// Repeated words get the same id.
	assert.Equal(t, tokens[0], tokens[4])
	assert.Equal(t, tokens[1], tokens[5])
	assert.NotEqual(t, tokens[0], tokens[1])

	assert.Equal(t, "to be or not to be", w.Decode(tokens))
}

func TestWordsEncodeStableAcrossCalls(t *testing.T) {
	w := NewWords()

	first := w.Encode("alpha beta")
	second := w.Encode("beta alpha")

	assert.Equal(t, first[0], second[1])
	assert.Equal(t, first[1], second[0])
}

func TestWordsDecodeSkipsUnknownIDs(t *testing.T) {
	w := NewWords()
	w.Encode("alpha beta")

	assert.Equal(t, "alpha beta", w.Decode([]int{0, 99, 1, -3}))
	assert.Equal(t, "", w.Decode(nil))
}

func TestWordsConcurrentEncode(t *testing.T) {
	w := NewWords()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				tokens := w.Encode("shared vocabulary words here")
				assert.Equal(t, "shared vocabulary words here", w.Decode(tokens))
			}
		}()
	}
	wg.Wait()
}

func TestTiktokenRoundTrip(t *testing.T) {
	enc, err := NewTiktoken()
	if err != nil {
		t.Skipf("cl100k_base encoding unavailable: %v", err)
	}

	text := "The quick brown fox jumps over the lazy dog."
	tokens := enc.Encode(text)
	require.NotEmpty(t, tokens)
	assert.Equal(t, len(tokens), enc.Count(text))
	assert.Equal(t, text, enc.Decode(tokens))
}
