// Package db keeps a lightweight history of served predictions in SQLite.
package db

import (
	"database/sql"
	"errors"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

var database *sql.DB

// PredictionRecord is one served prediction.
type PredictionRecord struct {
	ID        int64
	Features  string // JSON object of feature name -> value
	Value     float64
	CreatedAt time.Time
}

// InitDB opens the SQLite database and creates the schema.
func InitDB(path string) error {
	var err error
	database, err = sql.Open("sqlite3", path)
	if err != nil {
		return err
	}

	query := `
    CREATE TABLE IF NOT EXISTS predictions (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        features TEXT NOT NULL,
        predicted_value REAL NOT NULL,
        created_at DATETIME NOT NULL
    );`
	_, err = database.Exec(query)
	return err
}

// Initialized reports whether InitDB has been called successfully. History is
// optional; callers skip writes when the store is disabled.
func Initialized() bool {
	return database != nil
}

// Close closes the database handle.
func Close() error {
	if database == nil {
		return nil
	}
	err := database.Close()
	database = nil
	return err
}

// SavePrediction appends one record to the history.
func SavePrediction(rec PredictionRecord) error {
	if database == nil {
		return errors.New("database not initialized")
	}
	_, err := database.Exec(
		`INSERT INTO predictions (features, predicted_value, created_at) VALUES (?, ?, ?)`,
		rec.Features, rec.Value, rec.CreatedAt,
	)
	return err
}

// QueryRecentPredictions returns up to limit records, newest first.
func QueryRecentPredictions(limit int) ([]PredictionRecord, error) {
	if database == nil {
		return nil, errors.New("database not initialized")
	}
	if limit <= 0 {
		limit = 100
	}
	rows, err := database.Query(
		`SELECT id, features, predicted_value, created_at FROM predictions ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []PredictionRecord
	for rows.Next() {
		var rec PredictionRecord
		if err := rows.Scan(&rec.ID, &rec.Features, &rec.Value, &rec.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
