package retrieval

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// #region schema
const indexSchema = `
CREATE TABLE IF NOT EXISTS documents (
    id          TEXT PRIMARY KEY,
    content     TEXT NOT NULL,
    metadata    TEXT,
    created_at  TEXT NOT NULL
);
`

// #endregion schema

// #region index-store

// IndexStore is a SQLite-backed document index. It doubles as a
// persistent keyword retriever so ingested corpora survive restarts.
type IndexStore struct {
	db *sql.DB
}

// OpenIndex opens (or creates) the index database at path.
func OpenIndex(path string) (*IndexStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open index db: %w", err)
	}
	if _, err := db.Exec(indexSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("index schema: %w", err)
	}
	return &IndexStore{db: db}, nil
}

// NewIndexStore wraps an already-open database, running migrations.
func NewIndexStore(db *sql.DB) (*IndexStore, error) {
	if _, err := db.Exec(indexSchema); err != nil {
		return nil, fmt.Errorf("index schema: %w", err)
	}
	return &IndexStore{db: db}, nil
}

// Close shuts down the underlying database.
func (s *IndexStore) Close() error { return s.db.Close() }

// #endregion index-store

// #region add

// Add upserts a document. The stored score is ignored; scores are
// computed per query.
func (s *IndexStore) Add(doc Document) error {
	meta := ""
	if len(doc.Metadata) > 0 {
		b, err := json.Marshal(doc.Metadata)
		if err != nil {
			return fmt.Errorf("encode metadata: %w", err)
		}
		meta = string(b)
	}
	_, err := s.db.Exec(
		`INSERT INTO documents (id, content, metadata, created_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET content = excluded.content, metadata = excluded.metadata`,
		doc.ID, doc.Content, meta, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

// Count returns the number of indexed documents.
func (s *IndexStore) Count() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM documents`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count documents: %w", err)
	}
	return n, nil
}

// #endregion add

// #region retrieve

// Name implements Retriever.
func (s *IndexStore) Name() string { return "index" }

// Retrieve selects candidate rows containing any query term, then ranks
// them by distinct term overlap. LIKE narrows the candidate set; exact
// token overlap is computed in Go.
func (s *IndexStore) Retrieve(ctx context.Context, query string, k int) (Result, error) {
	terms := Tokenize(query)
	signals := map[string]any{"retriever": s.Name(), "terms": len(terms)}
	if len(terms) == 0 {
		return Result{Signals: signals}, nil
	}

	var clauses []string
	var args []any
	for _, t := range terms {
		clauses = append(clauses, "content LIKE ?")
		args = append(args, "%"+t+"%")
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, content, metadata FROM documents WHERE `+strings.Join(clauses, " OR "),
		args...,
	)
	if err != nil {
		return Result{}, fmt.Errorf("index query: %w", err)
	}
	defer rows.Close()

	var scored []Document
	for rows.Next() {
		var doc Document
		var meta sql.NullString
		if err := rows.Scan(&doc.ID, &doc.Content, &meta); err != nil {
			return Result{}, fmt.Errorf("index scan: %w", err)
		}
		if meta.Valid && meta.String != "" {
			if err := json.Unmarshal([]byte(meta.String), &doc.Metadata); err != nil {
				doc.Metadata = map[string]string{}
			}
		}
		overlap := SharedTerms(terms, Tokenize(doc.Content))
		if overlap == 0 {
			continue
		}
		doc.Score = float64(overlap)
		scored = append(scored, doc)
	}
	if err := rows.Err(); err != nil {
		return Result{}, fmt.Errorf("index rows: %w", err)
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	if k > 0 && len(scored) > k {
		scored = scored[:k]
	}
	signals["count"] = len(scored)
	return Result{Documents: scored, Signals: signals}, nil
}

// #endregion retrieve
