package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/rewearhq/rewear-backend/internal/models"
)

type ItemRepository struct {
	db *sqlx.DB
}

func NewItemRepository(db *sqlx.DB) *ItemRepository {
	return &ItemRepository{db: db}
}

const itemColumns = `id, owner_id, title, description, category, size, condition,
	brand, color, tags, image_urls, points_value, price, delivery_mode, status,
	views_count, moderated_at, created_at, updated_at`

// Create сохраняет новое объявление.
func (r *ItemRepository) Create(ctx context.Context, item *models.Item) error {
	query := `
		INSERT INTO items (owner_id, title, description, category, size, condition,
			brand, color, tags, image_urls, points_value, price, delivery_mode, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING ` + itemColumns

	err := r.db.GetContext(ctx, item, query,
		item.OwnerID, item.Title, item.Description, item.Category, item.Size,
		item.Condition, item.Brand, item.Color, pq.Array([]string(item.Tags)),
		pq.Array([]string(item.ImageURLs)), item.PointsValue, item.Price,
		item.DeliveryMode, item.Status)
	if err != nil {
		return fmt.Errorf("item repository: create %w", err)
	}
	return nil
}

// GetByID возвращает вещь по идентификатору.
func (r *ItemRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Item, error) {
	var item models.Item
	err := r.db.GetContext(ctx, &item, `SELECT `+itemColumns+` FROM items WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("item repository: get by id %w", err)
	}
	return &item, nil
}

// Find возвращает вещи по фильтру каталога, новые первыми.
func (r *ItemRepository) Find(ctx context.Context, filter models.ItemFilter) ([]models.Item, error) {
	var (
		conditions []string
		args       []interface{}
	)

	addArg := func(v interface{}) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if filter.Status != "" {
		conditions = append(conditions, "status = "+addArg(filter.Status))
	}
	if filter.Category != "" {
		conditions = append(conditions, "category = "+addArg(filter.Category))
	}
	if filter.Size != "" {
		conditions = append(conditions, "size = "+addArg(filter.Size))
	}
	if filter.Condition != "" {
		conditions = append(conditions, "condition = "+addArg(filter.Condition))
	}
	if filter.Search != "" {
		pattern := addArg("%" + filter.Search + "%")
		tag := addArg(filter.Search)
		conditions = append(conditions,
			"(title ILIKE "+pattern+" OR description ILIKE "+pattern+" OR "+tag+" = ANY(tags))")
	}

	query := `SELECT ` + itemColumns + ` FROM items`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC"

	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	query += " LIMIT " + addArg(limit) + " OFFSET " + addArg(filter.Offset)

	var items []models.Item
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, fmt.Errorf("item repository: find %w", err)
	}
	return items, nil
}

// ListByOwner возвращает объявления пользователя.
func (r *ItemRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Item, error) {
	var items []models.Item
	err := r.db.SelectContext(ctx, &items,
		`SELECT `+itemColumns+` FROM items WHERE owner_id = $1 ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("item repository: list by owner %w", err)
	}
	return items, nil
}

// CompareAndSetStatus атомарно переводит вещь из ожидаемого статуса в новый.
// Возвращает false, если статус уже изменил кто-то другой: проигравший
// гонку резервирования узнаёт об этом именно здесь.
func (r *ItemRepository) CompareAndSetStatus(ctx context.Context, id uuid.UUID, expected, next string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE items SET status = $3, updated_at = NOW() WHERE id = $1 AND status = $2`,
		id, expected, next)
	if err != nil {
		return false, fmt.Errorf("item repository: compare and set status %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("item repository: compare and set status %w", err)
	}
	return affected == 1, nil
}

// IncrementViews увеличивает счётчик просмотров.
func (r *ItemRepository) IncrementViews(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE items SET views_count = views_count + 1 WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("item repository: increment views %w", err)
	}
	return nil
}

// ListPendingModeration возвращает вещи, ожидающие решения модератора.
func (r *ItemRepository) ListPendingModeration(ctx context.Context, limit, offset int) ([]models.Item, error) {
	var items []models.Item
	err := r.db.SelectContext(ctx, &items,
		`SELECT `+itemColumns+` FROM items WHERE status = $1 ORDER BY created_at ASC LIMIT $2 OFFSET $3`,
		models.ItemStatusUnavailable, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("item repository: list pending moderation %w", err)
	}
	return items, nil
}

// Count возвращает общее количество вещей.
func (r *ItemRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM items`); err != nil {
		return 0, fmt.Errorf("item repository: count %w", err)
	}
	return count, nil
}

// SetModerationStatus атомарно применяет решение модератора и отмечает
// время модерации. Никогда не выполняется для reserved/exchanged.
func (r *ItemRepository) SetModerationStatus(ctx context.Context, id uuid.UUID, expected, next string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE items SET status = $3, moderated_at = NOW(), updated_at = NOW() WHERE id = $1 AND status = $2`,
		id, expected, next)
	if err != nil {
		return false, fmt.Errorf("item repository: set moderation status %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("item repository: set moderation status %w", err)
	}
	return affected == 1, nil
}

// CountModeratedSince считает вещи в статусе, промодерированные после
// отметки времени. Свежие объявления без решения модератора не попадают:
// у них moderated_at пустой.
func (r *ItemRepository) CountModeratedSince(ctx context.Context, status string, since time.Time) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM items WHERE status = $1 AND moderated_at >= $2`, status, since)
	if err != nil {
		return 0, fmt.Errorf("item repository: count moderated %w", err)
	}
	return count, nil
}
