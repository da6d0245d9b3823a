package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"fraud-viewer/internal/domain"
	"fraud-viewer/internal/repository/submission"

	"github.com/wb-go/wbf/dbpg"
	"github.com/wb-go/wbf/retry"
)

//go:embed schema.sql
var schema string

type SubmissionsRepository struct {
	db      *dbpg.DB
	retries retry.Strategy
}

func NewSubmissionsRepository(db *dbpg.DB, retries retry.Strategy) *SubmissionsRepository {
	return &SubmissionsRepository{
		db:      db,
		retries: retries,
	}
}

// Migrate creates the submissions table if it does not exist yet.
func (r *SubmissionsRepository) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecWithRetry(ctx, r.retries, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

func (r *SubmissionsRepository) Save(ctx context.Context, sub *domain.Submission) error {
	query := `
		INSERT INTO submissions (
			id, session_id, status, mode, files, message,
			predictions_url, chart_images, preview_rows, archive_prefix,
			created_at, finished_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	images, err := encodeImages(sub.ChartImages)
	if err != nil {
		return err
	}

	_, err = r.db.ExecWithRetry(ctx, r.retries, query,
		sub.ID,
		sub.SessionID,
		sub.Status,
		sub.Mode,
		sub.Files,
		sub.Message,
		sub.PredictionsURL,
		images,
		sub.PreviewRows,
		sub.ArchivePrefix,
		sub.CreatedAt,
		nullTime(sub.FinishedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save submission: %w", err)
	}

	return nil
}

func (r *SubmissionsRepository) Update(ctx context.Context, sub *domain.Submission) error {
	query := `
		UPDATE submissions
		SET status = $1, mode = $2, message = $3, predictions_url = $4,
		    chart_images = $5, preview_rows = $6, finished_at = $7
		WHERE id = $8
	`

	images, err := encodeImages(sub.ChartImages)
	if err != nil {
		return err
	}

	result, err := r.db.ExecWithRetry(ctx, r.retries, query,
		sub.Status,
		sub.Mode,
		sub.Message,
		sub.PredictionsURL,
		images,
		sub.PreviewRows,
		nullTime(sub.FinishedAt),
		sub.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update submission: %w", err)
	}

	return expectAffected(result)
}

func (r *SubmissionsRepository) MarkArchived(ctx context.Context, id, prefix string) error {
	query := `UPDATE submissions SET status = $1, archive_prefix = $2 WHERE id = $3`

	result, err := r.db.ExecWithRetry(ctx, r.retries, query, domain.SubmissionArchived, prefix, id)
	if err != nil {
		return fmt.Errorf("failed to mark submission archived: %w", err)
	}

	return expectAffected(result)
}

func (r *SubmissionsRepository) GetByID(ctx context.Context, id string) (*domain.Submission, error) {
	query := `
		SELECT id, session_id, status, mode, files, message,
		       predictions_url, chart_images, preview_rows, archive_prefix,
		       created_at, finished_at
		FROM submissions
		WHERE id = $1
	`

	row, err := r.db.QueryRowWithRetry(ctx, r.retries, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query submission: %w", err)
	}

	sub, err := scanSubmission(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, submission.ErrSubmissionNotFound
	}
	if err != nil {
		return nil, err
	}

	return sub, nil
}

// List returns the most recent submissions first. An empty sessionID lists all sessions.
func (r *SubmissionsRepository) List(ctx context.Context, sessionID string, limit, offset int) ([]domain.Submission, error) {
	query := `
		SELECT id, session_id, status, mode, files, message,
		       predictions_url, chart_images, preview_rows, archive_prefix,
		       created_at, finished_at
		FROM submissions
		WHERE ($1::text = '' OR session_id = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.QueryWithRetry(ctx, r.retries, query, sessionID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query submissions: %w", err)
	}
	defer rows.Close()

	subs := make([]domain.Submission, 0, limit)
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, *sub)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating submissions: %w", err)
	}

	return subs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSubmission(s scanner) (*domain.Submission, error) {
	var (
		sub      domain.Submission
		images   []byte
		finished sql.NullTime
	)

	err := s.Scan(
		&sub.ID,
		&sub.SessionID,
		&sub.Status,
		&sub.Mode,
		&sub.Files,
		&sub.Message,
		&sub.PredictionsURL,
		&images,
		&sub.PreviewRows,
		&sub.ArchivePrefix,
		&sub.CreatedAt,
		&finished,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan submission: %w", err)
	}

	if finished.Valid {
		sub.FinishedAt = finished.Time
	}

	sub.ChartImages, err = decodeImages(images)
	if err != nil {
		return nil, err
	}

	return &sub, nil
}

func expectAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}

	if affected == 0 {
		return submission.ErrSubmissionNotFound
	}

	return nil
}

func encodeImages(images map[domain.ChartTarget]string) (any, error) {
	if len(images) == 0 {
		return nil, nil
	}

	data, err := json.Marshal(images)
	if err != nil {
		return nil, fmt.Errorf("failed to encode chart images: %w", err)
	}
	return string(data), nil
}

func decodeImages(data []byte) (map[domain.ChartTarget]string, error) {
	if len(data) == 0 {
		return nil, nil
	}

	var images map[domain.ChartTarget]string
	if err := json.Unmarshal(data, &images); err != nil {
		return nil, fmt.Errorf("failed to decode chart images: %w", err)
	}
	return images, nil
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
