package vectorstore

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/poiesic/docvec/core"
)

// ChromaStore implements Store against the Chroma REST API.
type ChromaStore struct {
	client     *resty.Client
	collection string
	logger     *slog.Logger

	mu           sync.Mutex
	collectionID string
}

var _ Store = (*ChromaStore)(nil)

// chromaCollection is the wire shape of a Chroma collection record.
type chromaCollection struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Metadata map[string]any `json:"metadata"`
}

// chromaAddRequest is the wire shape of add and delete payloads.
type chromaAddRequest struct {
	IDs        []string         `json:"ids"`
	Embeddings [][]float32      `json:"embeddings,omitempty"`
	Metadatas  []map[string]any `json:"metadatas,omitempty"`
	Documents  []string         `json:"documents,omitempty"`
}

// chromaGetRequest is the wire shape of the get payload. Exactly one of IDs
// and Where is set per request.
type chromaGetRequest struct {
	IDs     []string       `json:"ids,omitempty"`
	Where   map[string]any `json:"where,omitempty"`
	Include []string       `json:"include"`
}

// chromaGetResponse is the subset of the get response we consume.
type chromaGetResponse struct {
	IDs []string `json:"ids"`
}

// NewChromaStore creates a Chroma-backed store for the named collection.
// The collection itself is created lazily by EnsureCollection.
func NewChromaStore(baseURL, collection string) *ChromaStore {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(30 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &ChromaStore{
		client:     client,
		collection: collection,
		logger:     slog.Default().With("component", "chroma-store"),
	}
}

// Heartbeat verifies the Chroma server is alive.
func (s *ChromaStore) Heartbeat(ctx context.Context) error {
	resp, err := s.client.R().
		SetContext(ctx).
		Get("/api/v1/heartbeat")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	if resp.IsError() {
		return fmt.Errorf("%w: heartbeat returned %s", ErrStoreUnavailable, resp.Status())
	}
	return nil
}

// EnsureCollection creates the collection with the cosine metric if it does
// not exist, and caches its id for subsequent data operations. Idempotent.
func (s *ChromaStore) EnsureCollection(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.collectionID != "" {
		return nil
	}

	var col chromaCollection
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(map[string]any{
			"name":          s.collection,
			"metadata":      map[string]any{"hnsw:space": "cosine"},
			"get_or_create": true,
		}).
		SetResult(&col).
		Post("/api/v1/collections")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	if resp.IsError() {
		return fmt.Errorf("%w: create collection returned %s", ErrStoreUnavailable, resp.Status())
	}
	if col.ID == "" {
		return fmt.Errorf("%w: create collection returned no id", ErrStoreUnavailable)
	}

	s.collectionID = col.ID
	s.logger.Debug("collection ready", "name", s.collection, "id", col.ID)
	return nil
}

// collectionPath returns the data-operation path for op, or an error when
// EnsureCollection has not run yet.
func (s *ChromaStore) collectionPath(op string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.collectionID == "" {
		return "", ErrCollectionNotReady
	}
	return fmt.Sprintf("/api/v1/collections/%s/%s", s.collectionID, op), nil
}

// metadataPayload flattens ChunkMetadata into Chroma's metadata map.
func metadataPayload(m core.ChunkMetadata) map[string]any {
	return map[string]any{
		"document_id":  m.DocumentID,
		"source":       m.Source,
		"section":      m.Section,
		"chunk_index":  m.ChunkIndex,
		"total_chunks": m.TotalChunks,
	}
}

// Upsert inserts the given records. Insert-only: the server rejects
// duplicate ids, surfaced as ErrDuplicateID.
func (s *ChromaStore) Upsert(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}

	path, err := s.collectionPath("add")
	if err != nil {
		return err
	}

	req := chromaAddRequest{
		IDs:        make([]string, len(records)),
		Embeddings: make([][]float32, len(records)),
		Metadatas:  make([]map[string]any, len(records)),
		Documents:  make([]string, len(records)),
	}
	for i, r := range records {
		req.IDs[i] = r.ID
		req.Embeddings[i] = r.Embedding
		req.Metadatas[i] = metadataPayload(r.Metadata)
		req.Documents[i] = r.Text
	}

	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(&req).
		Post(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	if resp.StatusCode() == http.StatusConflict {
		return fmt.Errorf("%w: add rejected", ErrDuplicateID)
	}
	if resp.IsError() {
		return fmt.Errorf("%w: add returned %s", ErrStoreUnavailable, resp.Status())
	}

	s.logger.Debug("records added", "count", len(records))
	return nil
}

// Get returns the subset of ids that already exist in the collection.
func (s *ChromaStore) Get(ctx context.Context, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	path, err := s.collectionPath("get")
	if err != nil {
		return nil, err
	}

	var out chromaGetResponse
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(&chromaGetRequest{IDs: ids, Include: []string{}}).
		SetResult(&out).
		Post(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%w: get returned %s", ErrStoreUnavailable, resp.Status())
	}

	return out.IDs, nil
}

// Count returns the total number of records in the collection.
func (s *ChromaStore) Count(ctx context.Context) (int, error) {
	path, err := s.collectionPath("count")
	if err != nil {
		return 0, err
	}

	var count int
	resp, err := s.client.R().
		SetContext(ctx).
		SetResult(&count).
		Get(path)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	if resp.IsError() {
		return 0, fmt.Errorf("%w: count returned %s", ErrStoreUnavailable, resp.Status())
	}

	return count, nil
}

// Delete removes the given ids from the collection. Unknown ids are ignored
// by the server.
func (s *ChromaStore) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	path, err := s.collectionPath("delete")
	if err != nil {
		return err
	}

	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(map[string]any{"ids": ids}).
		Post(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	if resp.IsError() {
		return fmt.Errorf("%w: delete returned %s", ErrStoreUnavailable, resp.Status())
	}

	s.logger.Debug("records deleted", "count", len(ids))
	return nil
}

// DeleteByDocument removes every record whose source metadata is docID,
// matching by metadata filter rather than by derived ids so recursively-split
// chunks and index gaps are covered.
func (s *ChromaStore) DeleteByDocument(ctx context.Context, docID string) (int, error) {
	path, err := s.collectionPath("get")
	if err != nil {
		return 0, err
	}

	var out chromaGetResponse
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(&chromaGetRequest{Where: map[string]any{"source": docID}, Include: []string{}}).
		SetResult(&out).
		Post(path)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	if resp.IsError() {
		return 0, fmt.Errorf("%w: get returned %s", ErrStoreUnavailable, resp.Status())
	}

	if len(out.IDs) == 0 {
		return 0, nil
	}
	if err := s.Delete(ctx, out.IDs); err != nil {
		return 0, err
	}

	s.logger.Info("document records deleted", "doc_id", docID, "count", len(out.IDs))
	return len(out.IDs), nil
}
