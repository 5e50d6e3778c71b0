package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"flatprice/predict"
)

// Entry is one handled prediction request.
type Entry struct {
	RequestID string    `json:"request_id"`
	Status    string    `json:"status"`
	Score     *float64  `json:"score,omitempty"`
	Message   string    `json:"message,omitempty"`
	Kind      string    `json:"kind"`
	Params    string    `json:"params"`
	CreatedAt time.Time `json:"created_at"`
}

// Journal records prediction outcomes in SQLite.
type Journal struct {
	database *sql.DB
}

// Open initializes the SQLite journal at path.
func Open(path string) (*Journal, error) {
	if path == "" {
		return nil, errors.New("journal path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create journal dir: %w", err)
		}
	}

	database, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	query := `
    CREATE TABLE IF NOT EXISTS predictions (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        request_id TEXT NOT NULL,
        status TEXT NOT NULL,
        score REAL,
        message TEXT,
        kind TEXT NOT NULL,
        params TEXT,
        created_at DATETIME NOT NULL
    );
    CREATE INDEX IF NOT EXISTS idx_predictions_created_at ON predictions(created_at);
    `
	if _, err := database.Exec(query); err != nil {
		database.Close()
		return nil, fmt.Errorf("create journal tables: %w", err)
	}
	return &Journal{database: database}, nil
}

// Record stores the outcome of one request. raw is stored as JSON.
func (j *Journal) Record(ctx context.Context, requestID string, raw map[string]any, res predict.Result) error {
	params, err := json.Marshal(raw)
	if err != nil {
		params = []byte("null")
	}

	var score sql.NullFloat64
	if res.IsOK() {
		score = sql.NullFloat64{Float64: res.Score, Valid: true}
	}

	_, err = j.database.ExecContext(ctx, `
        INSERT INTO predictions (request_id, status, score, message, kind, params, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)`,
		requestID, res.Status, score, res.Message, string(res.Kind), string(params), time.Now().UTC())
	return err
}

// Recent returns up to limit entries, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := j.database.QueryContext(ctx, `
        SELECT request_id, status, score, message, kind, params, created_at
        FROM predictions
        ORDER BY id DESC
        LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]Entry, 0)
	for rows.Next() {
		var e Entry
		var score sql.NullFloat64
		var message, params sql.NullString
		if err := rows.Scan(&e.RequestID, &e.Status, &score, &message, &e.Kind, &params, &e.CreatedAt); err != nil {
			return nil, err
		}
		if score.Valid {
			v := score.Float64
			e.Score = &v
		}
		e.Message = message.String
		e.Params = params.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (j *Journal) Close() error {
	return j.database.Close()
}
