package knowledge

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/apnedoctors/minirag/internal/embedding"
	"github.com/apnedoctors/minirag/internal/metrics"
	"github.com/apnedoctors/minirag/internal/models"
	"github.com/philippgille/chromem-go"
	"github.com/sirupsen/logrus"
)

// DefaultTopK is the number of neighbours fetched per query.
const DefaultTopK = 5

var ErrNotInitialized = errors.New("knowledge retriever not initialized")

type Config struct {
	// PersistPath is the on-disk store location. Empty keeps everything in memory.
	PersistPath string
	Collection  string
	Compress    bool
	TopK        int
}

// Hit is one nearest-neighbour result.
type Hit struct {
	ID         string
	Metadata   map[string]string
	Content    string
	Similarity float64
	Distance   float64
}

func (h Hit) Entry() Entry {
	return EntryFromMetadata(h.ID, h.Metadata)
}

// Retriever owns the embedding encoder and the vector collection.
type Retriever struct {
	config  Config
	encoder embedding.Encoder
	seed    []Entry
	logger  *logrus.Logger

	mu          sync.RWMutex
	initialized bool
	db          *chromem.DB
	collection  *chromem.Collection
}

// NewRetriever does no I/O; call Initialize before use.
func NewRetriever(config Config, encoder embedding.Encoder, seed []Entry, logger *logrus.Logger) *Retriever {
	if config.Collection == "" {
		config.Collection = "medical_knowledge"
	}
	if config.TopK <= 0 {
		config.TopK = DefaultTopK
	}
	return &Retriever{
		config:  config,
		encoder: encoder,
		seed:    seed,
		logger:  logger,
	}
}

// Initialize probes the encoder, opens the store and creates plus seeds the
// collection when absent. Safe to call concurrently: at most one attempt runs at
// a time and success happens once. A failed attempt can be retried.
func (r *Retriever) Initialize(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.initialized {
		return nil
	}

	started := time.Now()
	r.logger.WithField("collection", r.config.Collection).Info("Initializing knowledge retriever")

	// a cached vector says nothing about whether the model is reachable
	if _, err := embedding.Uncached(r.encoder).Encode(ctx, "initialization probe"); err != nil {
		return fmt.Errorf("%w: embedding model unreachable: %w", models.ErrInitialization, err)
	}

	db := r.db
	if db == nil {
		var err error
		db, err = r.openDB()
		if err != nil {
			return fmt.Errorf("%w: open vector store: %w", models.ErrInitialization, err)
		}
	}

	col := db.GetCollection(r.config.Collection, r.embedFunc())
	if col == nil {
		var err error
		col, err = db.CreateCollection(r.config.Collection, map[string]string{"domain": "medical"}, r.embedFunc())
		if err != nil {
			return fmt.Errorf("%w: create collection: %w", models.ErrInitialization, err)
		}
		if err := r.addEntries(ctx, col, r.seed); err != nil {
			// drop the half-seeded collection so the next attempt starts clean
			_ = db.DeleteCollection(r.config.Collection)
			return fmt.Errorf("%w: seed collection: %w", models.ErrInitialization, err)
		}
		r.logger.WithField("documents", col.Count()).Info("Created and seeded knowledge collection")
	}

	r.db = db
	r.collection = col
	r.initialized = true

	metrics.RetrieverReady.Set(1)
	metrics.KnowledgeDocuments.Set(float64(col.Count()))

	r.logger.WithFields(logrus.Fields{
		"documents": col.Count(),
		"duration":  time.Since(started),
	}).Info("Knowledge retriever ready")

	return nil
}

func (r *Retriever) openDB() (*chromem.DB, error) {
	if r.config.PersistPath == "" {
		return chromem.NewDB(), nil
	}
	return chromem.NewPersistentDB(r.config.PersistPath, r.config.Compress)
}

func (r *Retriever) embedFunc() chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		return r.encoder.Encode(ctx, text)
	}
}

func (r *Retriever) Initialized() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.initialized
}

func (r *Retriever) Encode(ctx context.Context, text string) ([]float32, error) {
	return r.encoder.Encode(ctx, text)
}

// Query returns up to k nearest entries, most similar first. k <= 0 uses the
// configured TopK; k is clamped to the collection size.
func (r *Retriever) Query(ctx context.Context, vector []float32, k int) ([]Hit, error) {
	col, err := r.ready()
	if err != nil {
		return nil, err
	}

	if k <= 0 {
		k = r.config.TopK
	}
	if n := col.Count(); k > n {
		k = n
	}
	if k == 0 {
		return nil, nil
	}

	results, err := col.QueryEmbedding(ctx, vector, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("vector query failed: %w", err)
	}

	hits := make([]Hit, 0, len(results))
	for _, res := range results {
		sim := float64(res.Similarity)
		hits = append(hits, Hit{
			ID:         res.ID,
			Metadata:   res.Metadata,
			Content:    res.Content,
			Similarity: sim,
			Distance:   1 - sim,
		})
	}
	return hits, nil
}

// AddEntries upserts entries by ID.
func (r *Retriever) AddEntries(ctx context.Context, entries []Entry) error {
	col, err := r.ready()
	if err != nil {
		return err
	}
	if err := r.addEntries(ctx, col, entries); err != nil {
		return err
	}
	metrics.KnowledgeDocuments.Set(float64(col.Count()))
	return nil
}

func (r *Retriever) addEntries(ctx context.Context, col *chromem.Collection, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	texts := make([]string, len(entries))
	for i, e := range entries {
		texts[i] = e.Content()
	}
	vectors, err := r.encoder.EncodeBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("failed to embed entries: %w", err)
	}
	if len(vectors) != len(entries) {
		return fmt.Errorf("got %d vectors for %d entries", len(vectors), len(entries))
	}

	docs := make([]chromem.Document, len(entries))
	for i, e := range entries {
		docs[i] = chromem.Document{
			ID:        e.ID,
			Metadata:  e.Metadata(),
			Embedding: vectors[i],
			Content:   texts[i],
		}
	}
	return col.AddDocuments(ctx, docs, runtime.NumCPU())
}

func (r *Retriever) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.collection == nil {
		return 0
	}
	return r.collection.Count()
}

// Health snapshots the retriever for the health endpoint.
func (r *Retriever) Health(_ context.Context) models.RetrieverHealth {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h := models.RetrieverHealth{
		Initialized: r.initialized,
		Status:      "not_initialized",
		Collection:  r.config.Collection,
	}
	if r.initialized {
		h.Status = "ready"
		h.Documents = r.collection.Count()
	}
	return h
}

func (r *Retriever) ready() (*chromem.Collection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.initialized {
		return nil, ErrNotInitialized
	}
	return r.collection, nil
}
