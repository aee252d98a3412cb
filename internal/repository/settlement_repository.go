package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/rewearhq/rewear-backend/internal/models"
)

type SettlementRepository struct {
	db *sqlx.DB
}

func NewSettlementRepository(db *sqlx.DB) *SettlementRepository {
	return &SettlementRepository{db: db}
}

const settlementColumns = `id, proposal_id, delivery_address, amount_due, status, created_at, updated_at`

// CommitParams описывает эффекты фиксации расчёта, применяемые одной транзакцией.
type CommitParams struct {
	SettlementID       uuid.UUID
	ProposalID         uuid.UUID
	ItemIDs            []uuid.UUID
	RequesterID        uuid.UUID
	OwnerID            uuid.UUID
	PointsDifferential int
	DeliveryAddress    string
}

// Create сохраняет запись расчёта в статусе pending.
func (r *SettlementRepository) Create(ctx context.Context, s *models.Settlement) error {
	query := `
		INSERT INTO settlements (proposal_id, amount_due, status)
		VALUES ($1, $2, $3)
		RETURNING ` + settlementColumns

	err := r.db.GetContext(ctx, s, query, s.ProposalID, s.AmountDue, s.Status)
	if err != nil {
		return fmt.Errorf("settlement repository: create %w", err)
	}
	return nil
}

// GetByID возвращает расчёт по идентификатору.
func (r *SettlementRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Settlement, error) {
	var s models.Settlement
	err := r.db.GetContext(ctx, &s,
		`SELECT `+settlementColumns+` FROM settlements WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSettlementNotFound
		}
		return nil, fmt.Errorf("settlement repository: get by id %w", err)
	}
	return &s, nil
}

// Commit фиксирует итог расчёта одной транзакцией: предложение переходит в
// completed, зарезервированные вещи в exchanged, баллы переводятся от
// инициатора владельцу, запись расчёта становится confirmed. Либо всё
// применяется, либо ничего.
//
// Строка расчёта блокируется FOR UPDATE; повторная фиксация уже
// подтверждённого расчёта возвращает ErrSettlementNotPending и не
// двигает баллы второй раз.
func (r *SettlementRepository) Commit(ctx context.Context, p CommitParams) (*models.Settlement, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("settlement repository: commit begin %w", err)
	}
	defer tx.Rollback()

	// Блокируем расчёт и убеждаемся, что он всё ещё pending
	var s models.Settlement
	err = tx.GetContext(ctx, &s,
		`SELECT `+settlementColumns+` FROM settlements WHERE id = $1 FOR UPDATE`, p.SettlementID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSettlementNotFound
		}
		return nil, fmt.Errorf("settlement repository: commit lock %w", err)
	}
	if s.Status != models.SettlementStatusPending {
		return nil, ErrSettlementNotPending
	}

	// Предложение переходит в терминальный статус
	res, err := tx.ExecContext(ctx, `
		UPDATE exchange_proposals
		SET status = $2, completed_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = $3
	`, p.ProposalID, models.ProposalStatusCompleted, models.ProposalStatusAccepted)
	if err != nil {
		return nil, fmt.Errorf("settlement repository: commit proposal %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return nil, ErrSettlementNotPending
	}

	// Вещи переходят из reserved в exchanged
	for _, itemID := range p.ItemIDs {
		res, err := tx.ExecContext(ctx, `
			UPDATE items SET status = $2, updated_at = NOW()
			WHERE id = $1 AND status = $3
		`, itemID, models.ItemStatusExchanged, models.ItemStatusReserved)
		if err != nil {
			return nil, fmt.Errorf("settlement repository: commit item %w", err)
		}
		if affected, _ := res.RowsAffected(); affected == 0 {
			return nil, fmt.Errorf("settlement repository: item %s is not reserved", itemID)
		}
	}

	// Перевод баллов: положительная разница уходит от инициатора владельцу,
	// отрицательная — в обратную сторону. Сумма двух балансов неизменна.
	if p.PointsDifferential != 0 {
		if _, err := tx.ExecContext(ctx,
			`UPDATE users SET points = points - $2, updated_at = NOW() WHERE id = $1`,
			p.RequesterID, p.PointsDifferential); err != nil {
			return nil, fmt.Errorf("settlement repository: commit requester points %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE users SET points = points + $2, updated_at = NOW() WHERE id = $1`,
			p.OwnerID, p.PointsDifferential); err != nil {
			return nil, fmt.Errorf("settlement repository: commit owner points %w", err)
		}
	}

	err = tx.GetContext(ctx, &s, `
		UPDATE settlements
		SET status = $2, delivery_address = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING `+settlementColumns, p.SettlementID, models.SettlementStatusConfirmed, p.DeliveryAddress)
	if err != nil {
		return nil, fmt.Errorf("settlement repository: commit settlement %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("settlement repository: commit %w", err)
	}
	return &s, nil
}

// MarkFailed помечает незавершённый расчёт неуспешным.
// Возвращает false, если расчёт уже не pending.
func (r *SettlementRepository) MarkFailed(ctx context.Context, id uuid.UUID) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE settlements SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status = $3
	`, id, models.SettlementStatusFailed, models.SettlementStatusPending)
	if err != nil {
		return false, fmt.Errorf("settlement repository: mark failed %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("settlement repository: mark failed %w", err)
	}
	return affected == 1, nil
}

// ListExpiredPending возвращает незавершённые расчёты старше отметки времени.
// Используется фоновой очисткой просроченных резервирований.
func (r *SettlementRepository) ListExpiredPending(ctx context.Context, olderThan time.Time) ([]models.Settlement, error) {
	var settlements []models.Settlement
	err := r.db.SelectContext(ctx, &settlements, `
		SELECT `+settlementColumns+` FROM settlements
		WHERE status = $1 AND created_at < $2
		ORDER BY created_at ASC
	`, models.SettlementStatusPending, olderThan)
	if err != nil {
		return nil, fmt.Errorf("settlement repository: list expired %w", err)
	}
	return settlements, nil
}
