package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// ErrTranscriptNotFound is returned by GetTranscript for unknown job ids
var ErrTranscriptNotFound = errors.New("transcript not found")

// TranscriptRecord is one row of the transcripts table
type TranscriptRecord struct {
	JobID        string    `json:"job_id"`
	RequestName  string    `json:"request_name"`
	SourceType   string    `json:"source_type"`
	SourceURL    string    `json:"source_url,omitempty"`
	GDriveURL    string    `json:"gdrive_url,omitempty"`
	ObjectKey    string    `json:"object_key,omitempty"`
	LocalPath    string    `json:"local_path"`
	CleanPath    string    `json:"clean_path,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	Duration     float64   `json:"duration"`
	WordCount    int       `json:"word_count"`
	SpeakerCount int       `json:"speaker_count"`
	SegmentCount int       `json:"segment_count"`
}

// MetadataDB handles SQLite database operations
type MetadataDB struct {
	db *sql.DB
}

// NewMetadataDB creates a new metadata database
func NewMetadataDB(dbPath string) (*MetadataDB, error) {
	dsn := dbPath
	if !strings.Contains(dsn, "?") {
		dsn += "?_time_format=sqlite"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	createTableSQL := `
	CREATE TABLE IF NOT EXISTS transcripts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		job_id TEXT NOT NULL UNIQUE,
		request_name TEXT NOT NULL,
		source_type TEXT NOT NULL,
		source_url TEXT NOT NULL DEFAULT '',
		gdrive_url TEXT NOT NULL DEFAULT '',
		object_key TEXT NOT NULL DEFAULT '',
		local_path TEXT NOT NULL,
		clean_path TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL,
		duration REAL,
		word_count INTEGER,
		speaker_count INTEGER,
		segment_count INTEGER
	);

	CREATE INDEX IF NOT EXISTS idx_created_at ON transcripts(created_at);
	CREATE INDEX IF NOT EXISTS idx_request_name ON transcripts(request_name);
	`

	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	return &MetadataDB{db: db}, nil
}

const selectColumns = `job_id, request_name, source_type, source_url, gdrive_url, object_key,
	local_path, clean_path, created_at, duration, word_count, speaker_count, segment_count`

// SaveTranscript saves transcript metadata to the database. A zero CreatedAt
// is stamped with the current time.
func (mdb *MetadataDB) SaveTranscript(rec TranscriptRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	query := `
	INSERT INTO transcripts (` + selectColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := mdb.db.Exec(query,
		rec.JobID, rec.RequestName, rec.SourceType, rec.SourceURL, rec.GDriveURL, rec.ObjectKey,
		rec.LocalPath, rec.CleanPath, rec.CreatedAt.UTC(), rec.Duration, rec.WordCount,
		rec.SpeakerCount, rec.SegmentCount)
	if err != nil {
		return fmt.Errorf("failed to save transcript metadata: %w", err)
	}

	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (TranscriptRecord, error) {
	var rec TranscriptRecord
	err := s.Scan(&rec.JobID, &rec.RequestName, &rec.SourceType, &rec.SourceURL, &rec.GDriveURL,
		&rec.ObjectKey, &rec.LocalPath, &rec.CleanPath, &rec.CreatedAt, &rec.Duration,
		&rec.WordCount, &rec.SpeakerCount, &rec.SegmentCount)
	return rec, err
}

// GetTranscript retrieves transcript metadata by job ID
func (mdb *MetadataDB) GetTranscript(jobID string) (TranscriptRecord, error) {
	row := mdb.db.QueryRow(`SELECT `+selectColumns+` FROM transcripts WHERE job_id = ?`, jobID)

	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return TranscriptRecord{}, ErrTranscriptNotFound
	}
	if err != nil {
		return TranscriptRecord{}, fmt.Errorf("failed to get transcript: %w", err)
	}
	return rec, nil
}

// ListTranscripts returns the most recent transcripts first
func (mdb *MetadataDB) ListTranscripts(limit int) ([]TranscriptRecord, error) {
	rows, err := mdb.db.Query(`SELECT `+selectColumns+` FROM transcripts ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list transcripts: %w", err)
	}
	defer rows.Close()

	transcripts := []TranscriptRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transcript: %w", err)
		}
		transcripts = append(transcripts, rec)
	}

	return transcripts, rows.Err()
}

// DeleteOlderThan removes rows created before cutoff and returns how many went
func (mdb *MetadataDB) DeleteOlderThan(cutoff time.Time) (int64, error) {
	res, err := mdb.db.Exec(`DELETE FROM transcripts WHERE created_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to prune transcripts: %w", err)
	}
	return res.RowsAffected()
}

// Close closes the database connection
func (mdb *MetadataDB) Close() error {
	return mdb.db.Close()
}
