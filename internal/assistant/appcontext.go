package assistant

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/kyleking/askdb/internal/config"
	"github.com/kyleking/askdb/internal/dictionary"
	"github.com/kyleking/askdb/internal/embedding"
	"github.com/kyleking/askdb/internal/llm"
	"github.com/kyleking/askdb/internal/logging"
	"github.com/kyleking/askdb/internal/policy"
	"github.com/kyleking/askdb/internal/query"
	"github.com/kyleking/askdb/internal/schemaindex"
	"github.com/kyleking/askdb/internal/sqlguard"
	"github.com/kyleking/askdb/internal/storage"
	"github.com/kyleking/askdb/internal/types"
)

// Components are the collaborators an AppContext is assembled from.
// Policy, Generator and Executor are required.
type Components struct {
	Policy     *policy.Store
	Dictionary *dictionary.Dictionary
	Catalog    *types.Catalog
	Index      *schemaindex.Index
	Generator  llm.Service
	Guard      *sqlguard.Guard
	Executor   *query.Executor
	TopK       int

	// Concurrency bounds generator calls in flight per question (1 or 2)
	Concurrency int

	// Closer releases the business database, if the context owns it
	Closer io.Closer
}

// AppContext is everything a request reads: built once, never mutated, and
// shared by concurrent requests without locking
type AppContext struct {
	policy      *policy.Store
	dictionary  *dictionary.Dictionary
	catalog     *types.Catalog
	index       *schemaindex.Index
	generator   llm.Service
	guard       *sqlguard.Guard
	executor    *query.Executor
	topK        int
	concurrency int
	closer      io.Closer
}

// NewAppContext validates c and fills the optional parts: an empty
// dictionary, a keyword index over it and a strict guard over the catalog
func NewAppContext(c Components) (*AppContext, error) {
	switch {
	case c.Policy == nil:
		return nil, fmt.Errorf("access policy is required")
	case c.Generator == nil:
		return nil, fmt.Errorf("SQL generator is required")
	case c.Executor == nil:
		return nil, fmt.Errorf("query executor is required")
	}

	app := &AppContext{
		policy:      c.Policy,
		dictionary:  c.Dictionary,
		catalog:     c.Catalog,
		index:       c.Index,
		generator:   c.Generator,
		guard:       c.Guard,
		executor:    c.Executor,
		topK:        c.TopK,
		concurrency: c.Concurrency,
		closer:      c.Closer,
	}

	if app.dictionary == nil {
		app.dictionary = dictionary.New(nil)
	}

	if app.index == nil {
		app.index = schemaindex.New(context.Background(), app.dictionary, nil)
	}

	if app.guard == nil {
		app.guard = sqlguard.New(app.catalog)
	}

	if app.topK <= 0 {
		app.topK = schemaindex.DefaultTopK
	}

	if app.concurrency <= 0 {
		app.concurrency = 2
	}

	return app, nil
}

// Build loads every input named by cfg and assembles the context. The
// policy and the database are mandatory; the dictionary and the embedding
// backend degrade to empty and keyword search.
func Build(ctx context.Context, cfg *config.Config) (*AppContext, error) {
	store, err := policy.Load(config.ExpandPath(cfg.Data.PolicyPath))
	if err != nil {
		return nil, err
	}

	dict, err := dictionary.Load(config.ExpandPath(cfg.Data.DictionaryPath))
	if err != nil {
		return nil, err
	}

	db, err := storage.OpenSQLiteFromConfig(cfg.Database)
	if err != nil {
		return nil, err
	}

	catalog, err := db.Catalog(ctx)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	if missing := store.UnknownTables(catalog); len(missing) > 0 {
		logging.Warnf("access policy names tables missing from the database: %s", strings.Join(missing, ", "))
	}

	embedder, err := embedding.NewManager(ctx, embedding.FromAppConfig(cfg.Embedding))
	if err != nil {
		logging.Warnf("embedding backend unavailable, using keyword search: %v", err)
		embedder = embedding.NewManagerWithProvider(nil)
	}

	generator, err := llm.NewManagerFromConfig(cfg.LLM)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	logging.WithFields(map[string]interface{}{
		"tables":     len(catalog.Tables),
		"roles":      len(store.Roles()),
		"dictionary": dict.Len(),
		"providers":  generator.GetAvailableProviders(),
	}).Debug("application context loaded")

	return NewAppContext(Components{
		Policy:     store,
		Dictionary: dict,
		Catalog:    catalog,
		Index:      schemaindex.New(ctx, dict, embedder, schemaindex.WithTopK(cfg.Retrieval.TopK)),
		Generator:  generator,
		Guard: sqlguard.New(catalog,
			sqlguard.WithStrictParse(cfg.Security.StrictParse),
			sqlguard.WithLegacyGenericSelect(cfg.Security.LegacyGenericSelect),
		),
		Executor: query.NewExecutor(db.DB(),
			query.WithTimeout(cfg.Database.Timeout()),
			query.WithMaxRows(cfg.Database.MaxRows),
		),
		TopK:        cfg.Retrieval.TopK,
		Concurrency: cfg.LLM.Concurrency,
		Closer:      db,
	})
}

// Policy returns the access policy store
func (a *AppContext) Policy() *policy.Store { return a.policy }

// Dictionary returns the data dictionary
func (a *AppContext) Dictionary() *dictionary.Dictionary { return a.dictionary }

// Catalog returns the database catalog, which may be nil
func (a *AppContext) Catalog() *types.Catalog { return a.catalog }

// Index returns the schema context index
func (a *AppContext) Index() *schemaindex.Index { return a.index }

// TopK is the number of context entries retrieved per question
func (a *AppContext) TopK() int { return a.topK }

// Close releases the database owned by the context
func (a *AppContext) Close() error {
	if a.closer != nil {
		return a.closer.Close()
	}

	return nil
}
