package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/rewearhq/rewear-backend/internal/models"
)

type MediaRepository struct {
	db *sqlx.DB
}

func NewMediaRepository(db *sqlx.DB) *MediaRepository {
	return &MediaRepository{db: db}
}

// Create сохраняет метаданные загруженного файла.
func (r *MediaRepository) Create(ctx context.Context, m *models.MediaFile) error {
	query := `
		INSERT INTO media_files (owner_id, path, mime_type, size_bytes)
		VALUES ($1, $2, $3, $4)
		RETURNING id, owner_id, path, mime_type, size_bytes, created_at
	`
	err := r.db.GetContext(ctx, m, query, m.OwnerID, m.Path, m.MimeType, m.SizeBytes)
	if err != nil {
		return fmt.Errorf("media repository: create %w", err)
	}
	return nil
}

// GetByID возвращает файл по идентификатору.
func (r *MediaRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.MediaFile, error) {
	var m models.MediaFile
	err := r.db.GetContext(ctx, &m,
		`SELECT id, owner_id, path, mime_type, size_bytes, created_at FROM media_files WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMediaNotFound
		}
		return nil, fmt.Errorf("media repository: get by id %w", err)
	}
	return &m, nil
}

// Delete удаляет запись о файле, принадлежащем пользователю.
func (r *MediaRepository) Delete(ctx context.Context, id, ownerID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM media_files WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("media repository: delete %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrMediaNotFound
	}
	return nil
}
