package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/rewearhq/rewear-backend/internal/models"
)

type ExchangeRepository struct {
	db *sqlx.DB
}

func NewExchangeRepository(db *sqlx.DB) *ExchangeRepository {
	return &ExchangeRepository{db: db}
}

const proposalColumns = `id, requested_item_id, offered_item_id, requester_id, owner_id,
	points_differential, monetary_amount, message, status, created_at, updated_at, completed_at`

// Create сохраняет новое предложение обмена или покупки. Гонку двух
// одновременных созданий на одну пару (вещь, инициатор) закрывает
// частичный уникальный индекс uq_proposals_active.
func (r *ExchangeRepository) Create(ctx context.Context, p *models.ExchangeProposal) error {
	query := `
		INSERT INTO exchange_proposals (requested_item_id, offered_item_id, requester_id,
			owner_id, points_differential, monetary_amount, message, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + proposalColumns

	err := r.db.GetContext(ctx, p, query,
		p.RequestedItemID, p.OfferedItemID, p.RequesterID, p.OwnerID,
		p.PointsDifferential, p.MonetaryAmount, p.Message, p.Status)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrActiveProposalExists
		}
		return fmt.Errorf("exchange repository: create %w", err)
	}
	return nil
}

// GetByID возвращает предложение по идентификатору.
func (r *ExchangeRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.ExchangeProposal, error) {
	var p models.ExchangeProposal
	err := r.db.GetContext(ctx, &p,
		`SELECT `+proposalColumns+` FROM exchange_proposals WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProposalNotFound
		}
		return nil, fmt.Errorf("exchange repository: get by id %w", err)
	}
	return &p, nil
}

// FindActive ищет незакрытое предложение этого инициатора на эту вещь.
// Одновременно допускается не более одного pending/accepted предложения
// на пару (вещь, инициатор).
func (r *ExchangeRepository) FindActive(ctx context.Context, requestedItemID, requesterID uuid.UUID) (*models.ExchangeProposal, error) {
	var p models.ExchangeProposal
	err := r.db.GetContext(ctx, &p, `
		SELECT `+proposalColumns+`
		FROM exchange_proposals
		WHERE requested_item_id = $1 AND requester_id = $2 AND status IN ($3, $4)
		LIMIT 1
	`, requestedItemID, requesterID, models.ProposalStatusPending, models.ProposalStatusAccepted)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProposalNotFound
		}
		return nil, fmt.Errorf("exchange repository: find active %w", err)
	}
	return &p, nil
}

// CompareAndSetStatus атомарно переводит предложение из ожидаемого статуса в новый.
func (r *ExchangeRepository) CompareAndSetStatus(ctx context.Context, id uuid.UUID, expected, next string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE exchange_proposals SET status = $3, updated_at = NOW() WHERE id = $1 AND status = $2`,
		id, expected, next)
	if err != nil {
		return false, fmt.Errorf("exchange repository: compare and set status %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("exchange repository: compare and set status %w", err)
	}
	return affected == 1, nil
}

// ListIncoming возвращает предложения на вещи владельца.
func (r *ExchangeRepository) ListIncoming(ctx context.Context, ownerID uuid.UUID) ([]models.ExchangeProposal, error) {
	var proposals []models.ExchangeProposal
	err := r.db.SelectContext(ctx, &proposals,
		`SELECT `+proposalColumns+` FROM exchange_proposals WHERE owner_id = $1 ORDER BY created_at DESC`,
		ownerID)
	if err != nil {
		return nil, fmt.Errorf("exchange repository: list incoming %w", err)
	}
	return proposals, nil
}

// ListOutgoing возвращает предложения, созданные инициатором.
func (r *ExchangeRepository) ListOutgoing(ctx context.Context, requesterID uuid.UUID) ([]models.ExchangeProposal, error) {
	var proposals []models.ExchangeProposal
	err := r.db.SelectContext(ctx, &proposals,
		`SELECT `+proposalColumns+` FROM exchange_proposals WHERE requester_id = $1 ORDER BY created_at DESC`,
		requesterID)
	if err != nil {
		return nil, fmt.Errorf("exchange repository: list outgoing %w", err)
	}
	return proposals, nil
}

// Count возвращает общее количество предложений.
func (r *ExchangeRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM exchange_proposals`); err != nil {
		return 0, fmt.Errorf("exchange repository: count %w", err)
	}
	return count, nil
}
