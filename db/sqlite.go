package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"heartform/ml"
)

// PredictionRecord is one completed prediction.
type PredictionRecord struct {
	RequestID string           `json:"request_id"`
	Label     int              `json:"label"`
	Vector    ml.FeatureVector `json:"vector"`
	Defaulted []ml.Group       `json:"defaulted,omitempty"`
	ModelType string           `json:"model_type"`
	CreatedAt time.Time        `json:"created_at"`
}

// Store keeps prediction history in SQLite.
type Store struct {
	database *sql.DB
}

// Open opens (or creates) the history database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	database, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	query := `
    CREATE TABLE IF NOT EXISTS predictions (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        request_id TEXT NOT NULL,
        predicted_label INTEGER NOT NULL,
        vector TEXT NOT NULL,
        defaulted TEXT,
        model_type VARCHAR(50),
        created_at DATETIME NOT NULL,
        UNIQUE(request_id)
    );
    `
	if _, err := database.Exec(query); err != nil {
		database.Close()
		return nil, err
	}
	return &Store{database: database}, nil
}

func (s *Store) Close() error {
	if s == nil || s.database == nil {
		return nil
	}
	return s.database.Close()
}

// SavePrediction inserts a record. A record with the same request id replaces
// the earlier one.
func (s *Store) SavePrediction(record PredictionRecord) error {
	if s == nil || s.database == nil {
		return errors.New("database not initialized")
	}
	if record.RequestID == "" {
		return errors.New("request id required")
	}
	vector, err := json.Marshal(record.Vector)
	if err != nil {
		return err
	}
	defaulted, err := json.Marshal(record.Defaulted)
	if err != nil {
		return err
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	_, err = s.database.Exec(`
        INSERT OR REPLACE INTO predictions (
            request_id, predicted_label, vector, defaulted, model_type, created_at
        ) VALUES (?, ?, ?, ?, ?, ?)
    `,
		record.RequestID,
		record.Label,
		string(vector),
		string(defaulted),
		record.ModelType,
		record.CreatedAt,
	)
	return err
}

// RecentPredictions returns up to limit records, newest first.
func (s *Store) RecentPredictions(limit int) ([]PredictionRecord, error) {
	if s == nil || s.database == nil {
		return nil, errors.New("database not initialized")
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.database.Query(`
        SELECT request_id, predicted_label, vector, defaulted, model_type, created_at
        FROM predictions
        ORDER BY created_at DESC, id DESC
        LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]PredictionRecord, 0)
	for rows.Next() {
		var (
			record    PredictionRecord
			vector    string
			defaulted sql.NullString
			modelType sql.NullString
		)
		if err := rows.Scan(&record.RequestID, &record.Label, &vector, &defaulted, &modelType, &record.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(vector), &record.Vector); err != nil {
			return nil, err
		}
		if defaulted.Valid && defaulted.String != "" {
			if err := json.Unmarshal([]byte(defaulted.String), &record.Defaulted); err != nil {
				return nil, err
			}
		}
		record.ModelType = modelType.String
		records = append(records, record)
	}
	return records, rows.Err()
}
