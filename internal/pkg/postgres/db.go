package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/airenas/scribe/internal/pkg/api"
	"github.com/airenas/scribe/internal/pkg/persistence"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB provides operations with postgresql.
// Every transcription query is filtered by the owner ID.
type DB struct {
	pool *pgxpool.Pool
}

//NewDB creates DB instance
func NewDB(pool *pgxpool.Pool) (*DB, error) {
	if pool == nil {
		return nil, fmt.Errorf("no pool")
	}
	res := &DB{pool: pool}
	return res, nil
}

const trSelect = `SELECT id, user_id, title, content, api_used, audio_url, duration, created_at, updated_at 
	FROM transcriptions`

// InsertTranscription inserts record into DB
func (db *DB) InsertTranscription(ctx context.Context, item *persistence.Transcription) error {
	_, err := db.pool.Exec(ctx, `INSERT INTO transcriptions(id, user_id, title, content, api_used, audio_url, 
	duration, created_at, updated_at) 
	VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9)`, item.ID, item.UserID, item.Title, item.Content, item.APIUsed,
		item.AudioURL, item.Duration, item.Created, item.Updated)
	if err != nil {
		return fmt.Errorf("can't insert transcription: %w", err)
	}
	return nil
}

// LoadTranscription loads one owner's record, returns api.ErrNotFound if there is no such
func (db *DB) LoadTranscription(ctx context.Context, id, owner string) (*persistence.Transcription, error) {
	res, err := scanTranscription(db.pool.QueryRow(ctx, trSelect+` WHERE id = $1 AND user_id = $2`, id, owner))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, api.ErrNotFound
		}
		return nil, fmt.Errorf("can't load transcription: %w", err)
	}
	return res, nil
}

// ListTranscriptions returns all owner's records, newest first
func (db *DB) ListTranscriptions(ctx context.Context, owner string) ([]*persistence.Transcription, error) {
	rows, err := db.pool.Query(ctx, trSelect+` WHERE user_id = $1 ORDER BY created_at DESC`, owner)
	if err != nil {
		return nil, fmt.Errorf("can't select transcriptions: %w", err)
	}
	defer rows.Close()

	res := []*persistence.Transcription{}
	for rows.Next() {
		item, err := scanTranscription(rows)
		if err != nil {
			return nil, fmt.Errorf("can't retrieve transcription: %w", err)
		}
		res = append(res, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("can't select transcriptions: %w", err)
	}
	return res, nil
}

// UpdateTranscription changes only provided fields
func (db *DB) UpdateTranscription(ctx context.Context, id, owner string,
	upd *persistence.TranscriptionUpdate) (*persistence.Transcription, error) {
	res, err := scanTranscription(db.pool.QueryRow(ctx, `UPDATE transcriptions SET 
	title = COALESCE($3, title), 
	content = COALESCE($4, content),
	updated_at = $5
	WHERE id = $1 AND user_id = $2
	RETURNING id, user_id, title, content, api_used, audio_url, duration, created_at, updated_at`,
		id, owner, upd.Title, upd.Content, time.Now()))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, api.ErrNotFound
		}
		return nil, fmt.Errorf("can't update transcription: %w", err)
	}
	return res, nil
}

// DeleteTranscription deletes owner's record and returns the deleted one
func (db *DB) DeleteTranscription(ctx context.Context, id, owner string) (*persistence.Transcription, error) {
	res, err := scanTranscription(db.pool.QueryRow(ctx, `DELETE FROM transcriptions 
	WHERE id = $1 AND user_id = $2
	RETURNING id, user_id, title, content, api_used, audio_url, duration, created_at, updated_at`, id, owner))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, api.ErrNotFound
		}
		return nil, fmt.Errorf("can't delete transcription: %w", err)
	}
	return res, nil
}

// InsertProfile inserts profile, does nothing if the profile exists
func (db *DB) InsertProfile(ctx context.Context, item *persistence.Profile) error {
	_, err := db.pool.Exec(ctx, `INSERT INTO profiles(id, email, full_name, created_at) 
	VALUES($1, $2, $3, $4) ON CONFLICT (id) DO NOTHING`, item.ID, item.Email, item.FullName, item.Created)
	if err != nil {
		return fmt.Errorf("can't insert profile: %w", err)
	}
	return nil
}

// LoadProfile loads profile, returns nil if there is no such
func (db *DB) LoadProfile(ctx context.Context, id string) (*persistence.Profile, error) {
	var res persistence.Profile
	err := db.pool.QueryRow(ctx, `SELECT id, email, full_name, created_at FROM profiles
		WHERE id = $1`, id).Scan(&res.ID, &res.Email, &res.FullName, &res.Created)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("can't load profile: %w", err)
	}
	return &res, nil
}

// Live returns no error if db is reachable and initialized
func (db *DB) Live(ctx context.Context) error {
	var exists bool
	if err := db.pool.QueryRow(ctx, `SELECT EXISTS (SELECT FROM pg_tables WHERE tablename = 'transcriptions')`).Scan(&exists); err != nil {
		return fmt.Errorf("can't check table: %w", err)
	}
	if !exists {
		return fmt.Errorf("no migration done")
	}
	return nil
}

func scanTranscription(row pgx.Row) (*persistence.Transcription, error) {
	var res persistence.Transcription
	err := row.Scan(&res.ID, &res.UserID, &res.Title, &res.Content, &res.APIUsed, &res.AudioURL,
		&res.Duration, &res.Created, &res.Updated)
	if err != nil {
		return nil, err
	}
	return &res, nil
}
