package badger

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// NewTestBackend creates an in-memory backend for tests and registers its
// cleanup with t.
func NewTestBackend(t *testing.T) *Backend {
	t.Helper()
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = backend.Close()
	})
	return backend
}
