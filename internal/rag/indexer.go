// Package rag builds, persists, and queries two vector indices — packages
// and saidata — used to retrieve similar items for the context builder.
// Embeddings are produced by an injected Embedder so the indexer
// itself has no opinion on the embedding model; the vector math (cosine
// via L2-normalized dot product) and metadata persistence are its concern.
package rag

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
	_ "modernc.org/sqlite"

	"github.com/example42/saigen/internal/saidata"
)

const batchSize = 100

const (
	packagesVecFile  = "packages.vec"
	packagesMetaFile = "packages.meta"
	saidataVecFile   = "saidata.vec"
	saidataMetaFile  = "saidata.meta"
	modelInfoFile    = "model_info.json"
)

// ModelInfo records diagnostics about the embedding model used to build the
// on-disk indices.
type ModelInfo struct {
	ModelName         string    `json:"model_name"`
	LastUpdated       time.Time `json:"last_updated"`
	MaxSequenceLength int       `json:"max_sequence_length"`
}

// Indexer owns the packages and saidata vector stores plus their parallel
// SQLite-backed metadata, all rooted under one index_dir (the
// indexer loads its on-disk artifacts lazily on first use).
type Indexer struct {
	dir      string
	embedder Embedder

	mu       sync.RWMutex
	loaded   bool
	packages *VectorStore
	saidata  *VectorStore
	db       *sql.DB
}

// New constructs an Indexer rooted at indexDir. indexDir is created on
// first use, not here.
func New(indexDir string, embedder Embedder) *Indexer {
	return &Indexer{dir: indexDir, embedder: embedder}
}

func (idx *Indexer) ensureLoaded(ctx context.Context) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.loaded {
		return nil
	}

	if err := os.MkdirAll(idx.dir, 0o755); err != nil {
		return fmt.Errorf("rag: creating index dir: %w", err)
	}

	db, err := sql.Open("sqlite", filepath.Join(idx.dir, "metadata.db"))
	if err != nil {
		return fmt.Errorf("rag: opening metadata store: %w", err)
	}
	if err := initSchema(ctx, db); err != nil {
		return err
	}
	idx.db = db

	idx.packages = loadOrEmpty(filepath.Join(idx.dir, packagesVecFile), idx.embedder.Dimension())
	idx.saidata = loadOrEmpty(filepath.Join(idx.dir, saidataVecFile), idx.embedder.Dimension())
	idx.loaded = true
	return nil
}

func loadOrEmpty(path string, dim int) *VectorStore {
	if store, err := LoadVectorStore(path); err == nil {
		return store
	}
	return NewVectorStore(dim)
}

func initSchema(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS packages (
			idx INTEGER PRIMARY KEY,
			name TEXT, version TEXT, description TEXT,
			repository_name TEXT, platform TEXT, category TEXT,
			tags TEXT, homepage TEXT, maintainer TEXT, license TEXT, last_updated TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS saidata (
			idx INTEGER PRIMARY KEY,
			name TEXT, path TEXT
		)`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("rag: initializing metadata schema: %w", err)
		}
	}
	return nil
}

// BuildPackages embeds and indexes pkgs, processed in fixed-size batches of
// 100 to bound memory, appending to whatever is already indexed.
func (idx *Indexer) BuildPackages(ctx context.Context, pkgs []saidata.RepositoryPackage) error {
	if err := idx.ensureLoaded(ctx); err != nil {
		return err
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	base := idx.packages.Len()
	for start := 0; start < len(pkgs); start += batchSize {
		end := min(start+batchSize, len(pkgs))
		batch := pkgs[start:end]

		texts := make([]string, len(batch))
		for i, p := range batch {
			texts[i] = packageEmbeddingText(p)
		}
		vectors, err := idx.embedder.Embed(ctx, texts)
		if err != nil {
			return fmt.Errorf("rag: embedding package batch: %w", err)
		}
		idx.packages.Add(vectors)

		if err := idx.insertPackageMeta(ctx, base+start, batch); err != nil {
			return err
		}
	}

	if err := idx.packages.Save(filepath.Join(idx.dir, packagesVecFile)); err != nil {
		return err
	}
	return idx.writeModelInfo(ctx)
}

func (idx *Indexer) insertPackageMeta(ctx context.Context, base int, batch []saidata.RepositoryPackage) error {
	tx, err := idx.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for i, p := range batch {
		tags, _ := json.Marshal(p.Tags)
		_, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO packages (idx, name, version, description, repository_name, platform, category, tags, homepage, maintainer, license, last_updated)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			base+i, p.Name, p.Version, p.Description, p.RepositoryName, p.Platform, p.Category, string(tags), p.Homepage, p.Maintainer, p.License, p.LastUpdated)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("rag: inserting package metadata: %w", err)
		}
	}
	return tx.Commit()
}

// BuildSaidata embeds and indexes docs, recording each document's on-disk
// path (paths[i]) in its metadata row so FindSimilarSaidata can re-read the
// original document.
func (idx *Indexer) BuildSaidata(ctx context.Context, docs []saidata.Document, paths []string) error {
	if len(docs) != len(paths) {
		return fmt.Errorf("rag: BuildSaidata: %d documents but %d paths", len(docs), len(paths))
	}
	if err := idx.ensureLoaded(ctx); err != nil {
		return err
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	base := idx.saidata.Len()
	for start := 0; start < len(docs); start += batchSize {
		end := min(start+batchSize, len(docs))
		batchDocs := docs[start:end]
		batchPaths := paths[start:end]

		texts := make([]string, len(batchDocs))
		for i, d := range batchDocs {
			texts[i] = saidataEmbeddingText(d)
		}
		vectors, err := idx.embedder.Embed(ctx, texts)
		if err != nil {
			return fmt.Errorf("rag: embedding saidata batch: %w", err)
		}
		idx.saidata.Add(vectors)

		if err := idx.insertSaidataMeta(ctx, base+start, batchDocs, batchPaths); err != nil {
			return err
		}
	}

	if err := idx.saidata.Save(filepath.Join(idx.dir, saidataVecFile)); err != nil {
		return err
	}
	return idx.writeModelInfo(ctx)
}

func (idx *Indexer) insertSaidataMeta(ctx context.Context, base int, docs []saidata.Document, paths []string) error {
	tx, err := idx.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for i, d := range docs {
		_, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO saidata (idx, name, path) VALUES (?, ?, ?)`,
			base+i, d.Metadata.Name, paths[i])
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("rag: inserting saidata metadata: %w", err)
		}
	}
	return tx.Commit()
}

// SearchSimilarPackages encodes query, retrieves 2*limit nearest packages,
// filters by minScore, and returns at most limit.
func (idx *Indexer) SearchSimilarPackages(ctx context.Context, query string, limit int, minScore float32) ([]saidata.RepositoryPackage, error) {
	if err := idx.ensureLoaded(ctx); err != nil {
		return nil, err
	}

	vectors, err := idx.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("rag: embedding query: %w", err)
	}

	idx.mu.RLock()
	indices, scores := idx.packages.Search(vectors[0], 2*limit)
	idx.mu.RUnlock()

	var out []saidata.RepositoryPackage
	for i, vecIdx := range indices {
		if scores[i] < minScore {
			continue
		}
		pkg, err := idx.packageByIndex(ctx, vecIdx)
		if err != nil {
			continue
		}
		out = append(out, *pkg)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (idx *Indexer) packageByIndex(ctx context.Context, vecIdx int) (*saidata.RepositoryPackage, error) {
	row := idx.db.QueryRowContext(ctx,
		`SELECT name, version, description, repository_name, platform, category, tags, homepage, maintainer, license, last_updated
		 FROM packages WHERE idx = ?`, vecIdx)

	var p saidata.RepositoryPackage
	var tags string
	if err := row.Scan(&p.Name, &p.Version, &p.Description, &p.RepositoryName, &p.Platform, &p.Category, &tags, &p.Homepage, &p.Maintainer, &p.License, &p.LastUpdated); err != nil {
		return nil, err
	}
	_ = json.Unmarshal([]byte(tags), &p.Tags)
	return &p, nil
}

// FindSimilarSaidata queries with "<softwareName> software application"
// and re-reads each hit's original document from disk by its stored path.
func (idx *Indexer) FindSimilarSaidata(ctx context.Context, softwareName string, limit int, minScore float32) ([]saidata.Document, error) {
	if err := idx.ensureLoaded(ctx); err != nil {
		return nil, err
	}

	query := softwareName + " software application"
	vectors, err := idx.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("rag: embedding query: %w", err)
	}

	idx.mu.RLock()
	indices, scores := idx.saidata.Search(vectors[0], 2*limit)
	idx.mu.RUnlock()

	var out []saidata.Document
	for i, vecIdx := range indices {
		if scores[i] < minScore {
			continue
		}
		path, err := idx.saidataPathByIndex(ctx, vecIdx)
		if err != nil {
			continue
		}
		doc, err := readDocument(path)
		if err != nil {
			continue
		}
		out = append(out, *doc)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (idx *Indexer) saidataPathByIndex(ctx context.Context, vecIdx int) (string, error) {
	var path string
	row := idx.db.QueryRowContext(ctx, `SELECT path FROM saidata WHERE idx = ?`, vecIdx)
	if err := row.Scan(&path); err != nil {
		return "", err
	}
	return path, nil
}

func readDocument(path string) (*saidata.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc saidata.Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// RebuildIndices rebuilds either or both stores from scratch. A nil
// argument leaves that store untouched.
func (idx *Indexer) RebuildIndices(ctx context.Context, packages []saidata.RepositoryPackage, saidataFiles []string) error {
	if err := idx.ClearIndices(); err != nil {
		return err
	}
	if packages != nil {
		if err := idx.BuildPackages(ctx, packages); err != nil {
			return err
		}
	}
	if saidataFiles != nil {
		docs := make([]saidata.Document, 0, len(saidataFiles))
		paths := make([]string, 0, len(saidataFiles))
		for _, path := range saidataFiles {
			doc, err := readDocument(path)
			if err != nil {
				continue
			}
			docs = append(docs, *doc)
			paths = append(paths, path)
		}
		if err := idx.BuildSaidata(ctx, docs, paths); err != nil {
			return err
		}
	}
	return nil
}

// ClearIndices removes every on-disk index file and resets in-memory state.
// Requires exclusive access: no concurrent searches should be in flight.
func (idx *Indexer) ClearIndices() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	for _, name := range []string{packagesVecFile, saidataVecFile, modelInfoFile, "metadata.db"} {
		_ = os.Remove(filepath.Join(idx.dir, name))
	}
	if idx.db != nil {
		_ = idx.db.Close()
		idx.db = nil
	}
	idx.packages = nil
	idx.saidata = nil
	idx.loaded = false
	return nil
}

func (idx *Indexer) writeModelInfo(ctx context.Context) error {
	info := ModelInfo{
		ModelName:         idx.embedder.Name(),
		LastUpdated:       nowFunc(),
		MaxSequenceLength: idx.embedder.Dimension(),
	}
	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(idx.dir, modelInfoFile), data, 0o644)
}

// nowFunc is a seam for deterministic tests.
var nowFunc = time.Now
