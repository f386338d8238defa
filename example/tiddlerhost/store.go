// SPDX-License-Identifier: Unlicense OR MIT

package main

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// Tiddler is one unit of wiki content.
type Tiddler struct {
	Title string `json:"title"`
	Text  string `json:"text"`
	Tags  string `json:"tags,omitempty"`
}

// Store keeps tiddlers in a SQLite database.
type Store struct {
	conn *sql.DB
}

func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS tiddlers (
		title TEXT PRIMARY KEY,
		text  TEXT NOT NULL,
		tags  TEXT NOT NULL DEFAULT ''
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{conn: db}, nil
}

func (s *Store) Close() error {
	return s.conn.Close()
}

// Put inserts or replaces a tiddler.
func (s *Store) Put(t Tiddler) error {
	_, err := s.conn.Exec(
		`INSERT OR REPLACE INTO tiddlers (title, text, tags) VALUES (?, ?, ?)`,
		t.Title, t.Text, t.Tags,
	)
	if err != nil {
		return fmt.Errorf("put %q: %w", t.Title, err)
	}
	return nil
}

// Get returns the tiddler with the given title.
func (s *Store) Get(title string) (Tiddler, error) {
	t := Tiddler{Title: title}
	err := s.conn.QueryRow(
		`SELECT text, tags FROM tiddlers WHERE title = ?`, title,
	).Scan(&t.Text, &t.Tags)
	if err != nil {
		return Tiddler{}, fmt.Errorf("get %q: %w", title, err)
	}
	return t, nil
}
