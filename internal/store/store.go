// Package store keeps the terminology glossary in SQLite. It stores only
// user-curated terms; translated documents are never persisted.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}

	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	-- glossary stores user-defined terminology for consistent translation of specific terms
	CREATE TABLE IF NOT EXISTS glossary (
		id TEXT PRIMARY KEY,
		source_lang TEXT NOT NULL,
		target_lang TEXT NOT NULL,
		source_term TEXT NOT NULL,
		target_term TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(source_lang, target_lang, source_term)
	);

	CREATE INDEX IF NOT EXISTS idx_glossary_lookup ON glossary(source_lang, target_lang);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *Store) Close() error {
	return s.db.Close()
}

// normalizeLang lower-cases a language code so "EN" and "en" share terms.
func normalizeLang(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}

// normalizeText trims whitespace and applies Unicode NFC normalization
// so terms compare equal regardless of how they were typed.
func normalizeText(text string) string {
	return norm.NFC.String(strings.TrimSpace(text))
}

// GlossaryEntry represents a row in the glossary table.
type GlossaryEntry struct {
	ID         string
	SourceLang string
	TargetLang string
	SourceTerm string
	TargetTerm string
	CreatedAt  time.Time
}

// AddGlossaryTerm inserts or replaces a glossary entry and returns its ID.
func (s *Store) AddGlossaryTerm(ctx context.Context, sourceLang, targetLang, sourceTerm, targetTerm string) (string, error) {
	return addTerm(ctx, s.db, GlossaryEntry{
		SourceLang: sourceLang,
		TargetLang: targetLang,
		SourceTerm: sourceTerm,
		TargetTerm: targetTerm,
	})
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func addTerm(ctx context.Context, db execer, e GlossaryEntry) (string, error) {
	src, tgt := normalizeText(e.SourceTerm), normalizeText(e.TargetTerm)
	if src == "" || tgt == "" {
		return "", fmt.Errorf("glossary terms must not be empty")
	}
	if normalizeLang(e.SourceLang) == "" || normalizeLang(e.TargetLang) == "" {
		return "", fmt.Errorf("glossary languages must not be empty")
	}

	id := uuid.NewString()
	_, err := db.ExecContext(ctx,
		`INSERT OR REPLACE INTO glossary (id, source_lang, target_lang, source_term, target_term)
		 VALUES (?, ?, ?, ?, ?)`,
		id, normalizeLang(e.SourceLang), normalizeLang(e.TargetLang), src, tgt)
	if err != nil {
		return "", fmt.Errorf("failed to add glossary term %q: %w", src, err)
	}
	return id, nil
}

// ImportGlossary adds entries in one transaction; either all are stored or
// none. It returns the number of entries written.
func (s *Store) ImportGlossary(ctx context.Context, entries []GlossaryEntry) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin import: %w", err)
	}
	defer tx.Rollback()

	for i, e := range entries {
		if _, err := addTerm(ctx, tx, e); err != nil {
			return 0, fmt.Errorf("entry %d: %w", i+1, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit import: %w", err)
	}
	return len(entries), nil
}

// GetGlossaryTerms returns all glossary terms for a language pair as a
// source-term to target-term map.
func (s *Store) GetGlossaryTerms(ctx context.Context, sourceLang, targetLang string) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT source_term, target_term FROM glossary WHERE source_lang = ? AND target_lang = ?`,
		normalizeLang(sourceLang), normalizeLang(targetLang))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	terms := make(map[string]string)
	for rows.Next() {
		var src, tgt string
		if err := rows.Scan(&src, &tgt); err != nil {
			return nil, err
		}
		terms[src] = tgt
	}
	return terms, rows.Err()
}

// ListGlossaryTerms returns all glossary entries, optionally filtered by language
// pair (pass empty strings to return everything).
func (s *Store) ListGlossaryTerms(ctx context.Context, sourceLang, targetLang string) ([]GlossaryEntry, error) {
	query := `SELECT id, source_lang, target_lang, source_term, target_term, created_at FROM glossary`
	var args []any
	sourceLang, targetLang = normalizeLang(sourceLang), normalizeLang(targetLang)

	switch {
	case sourceLang != "" && targetLang != "":
		query += ` WHERE source_lang = ? AND target_lang = ?`
		args = append(args, sourceLang, targetLang)
	case sourceLang != "":
		query += ` WHERE source_lang = ?`
		args = append(args, sourceLang)
	case targetLang != "":
		query += ` WHERE target_lang = ?`
		args = append(args, targetLang)
	}
	query += ` ORDER BY source_lang, target_lang, source_term`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []GlossaryEntry
	for rows.Next() {
		var e GlossaryEntry
		if err := rows.Scan(&e.ID, &e.SourceLang, &e.TargetLang, &e.SourceTerm, &e.TargetTerm, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// DeleteGlossaryTerm removes a glossary entry by ID. It reports whether a
// row was removed.
func (s *Store) DeleteGlossaryTerm(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM glossary WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// MatchTerms returns the subset of terms whose source term occurs in text.
// Both sides are NFC-normalized before comparison.
func MatchTerms(terms map[string]string, text string) map[string]string {
	if len(terms) == 0 {
		return nil
	}
	text = normalizeText(text)
	var matched map[string]string
	for src, tgt := range terms {
		if strings.Contains(text, normalizeText(src)) {
			if matched == nil {
				matched = make(map[string]string)
			}
			matched[src] = tgt
		}
	}
	return matched
}
