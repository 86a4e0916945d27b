package postgres

import (
	"context"
	"fmt"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AudioRefCleaner drops the audio reference of a transcription
// after the artifact is removed from the storage
type AudioRefCleaner struct {
	pool *pgxpool.Pool
}

// NewAudioRefCleaner creates cleaner instance
func NewAudioRefCleaner(pool *pgxpool.Pool) (*AudioRefCleaner, error) {
	res := &AudioRefCleaner{pool: pool}
	return res, nil
}

// Clean clears audio_url by transcription ID
func (db *AudioRefCleaner) Clean(ctx context.Context, id string) error {
	cmd, err := db.pool.Exec(ctx, `UPDATE transcriptions SET audio_url = NULL WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("can't clean audio ref %s: %w", id, err)
	}
	goapp.Log.Info().Str("ID", id).Int64("rows", cmd.RowsAffected()).Msg("audio ref cleaned")
	return nil
}
