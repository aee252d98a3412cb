package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/rewearhq/rewear-backend/internal/models"
	"github.com/rewearhq/rewear-backend/internal/pkg/apperror"
	"github.com/rewearhq/rewear-backend/internal/repository"
)

// ItemReader описывает доступ к каталогу, нужный движку переговоров.
type ItemReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Item, error)
}

// ProposalRepository описывает хранилище предложений.
type ProposalRepository interface {
	Create(ctx context.Context, p *models.ExchangeProposal) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.ExchangeProposal, error)
	FindActive(ctx context.Context, requestedItemID, requesterID uuid.UUID) (*models.ExchangeProposal, error)
	CompareAndSetStatus(ctx context.Context, id uuid.UUID, expected, next string) (bool, error)
	ListIncoming(ctx context.Context, ownerID uuid.UUID) ([]models.ExchangeProposal, error)
	ListOutgoing(ctx context.Context, requesterID uuid.UUID) ([]models.ExchangeProposal, error)
}

// Notifier уведомляет контрагентов о событиях. Вызовы fire-and-forget:
// ошибка доставки никогда не влияет на исход операции.
type Notifier interface {
	ProposalCreated(ctx context.Context, p *models.ExchangeProposal)
	ProposalDecided(ctx context.Context, p *models.ExchangeProposal)
	SettlementConfirmed(ctx context.Context, p *models.ExchangeProposal, s *models.Settlement)
}

// NegotiationService реализует движок переговоров: создание предложений
// обмена и покупки и решение владельца по ним.
//
// Создание предложения не меняет статус вещей: до принятия обе стороны
// могут рассматривать и другие встречные предложения.
type NegotiationService struct {
	items     ItemReader
	proposals ProposalRepository
	notifier  Notifier
}

// NewNegotiationService создаёт движок переговоров.
func NewNegotiationService(items ItemReader, proposals ProposalRepository, notifier Notifier) *NegotiationService {
	return &NegotiationService{
		items:     items,
		proposals: proposals,
		notifier:  notifier,
	}
}

// CreateSwapProposal создаёт предложение обмена вещи requestedItemID на
// вещь offeredItemID инициатора.
//
// Разница в баллах считается как requested - offered: положительная
// означает доплату инициатора, отрицательная — доплату ему, ноль —
// равноценный обмен.
func (s *NegotiationService) CreateSwapProposal(ctx context.Context, requesterID, requestedItemID, offeredItemID uuid.UUID, message string) (*models.ExchangeProposal, error) {
	requested, err := s.getItem(ctx, requestedItemID)
	if err != nil {
		return nil, err
	}
	offered, err := s.getItem(ctx, offeredItemID)
	if err != nil {
		return nil, err
	}

	switch {
	case requested.OwnerID == requesterID:
		return nil, apperror.New(apperror.ErrCodeIneligibleProposal, "нельзя запросить собственную вещь")
	case requested.Status != models.ItemStatusAvailable:
		return nil, apperror.New(apperror.ErrCodeIneligibleProposal, "вещь недоступна для обмена")
	case !models.CanSwap(requested.DeliveryMode):
		return nil, apperror.New(apperror.ErrCodeIneligibleProposal, "вещь не участвует в обмене")
	case offered.OwnerID != requesterID:
		return nil, apperror.New(apperror.ErrCodeIneligibleProposal, "предлагаемая вещь вам не принадлежит")
	case offered.Status != models.ItemStatusAvailable:
		return nil, apperror.New(apperror.ErrCodeIneligibleProposal, "предлагаемая вещь недоступна")
	}

	if _, err := s.proposals.FindActive(ctx, requestedItemID, requesterID); err == nil {
		return nil, apperror.New(apperror.ErrCodeDuplicateProposal, "у вас уже есть активное предложение на эту вещь")
	} else if !errors.Is(err, repository.ErrProposalNotFound) {
		return nil, err
	}

	proposal := &models.ExchangeProposal{
		RequestedItemID:    requestedItemID,
		OfferedItemID:      &offeredItemID,
		RequesterID:        requesterID,
		OwnerID:            requested.OwnerID,
		PointsDifferential: requested.PointsValue - offered.PointsValue,
		Status:             models.ProposalStatusPending,
	}
	if message != "" {
		proposal.Message = &message
	}

	// FindActive выше лишь быстрая проверка: гонку одновременных созданий
	// ловит уникальный индекс на уровне базы
	if err := s.proposals.Create(ctx, proposal); err != nil {
		if errors.Is(err, repository.ErrActiveProposalExists) {
			return nil, apperror.New(apperror.ErrCodeDuplicateProposal, "у вас уже есть активное предложение на эту вещь")
		}
		return nil, err
	}

	if s.notifier != nil {
		s.notifier.ProposalCreated(ctx, proposal)
	}
	return proposal, nil
}

// CreateBuyProposal создаёт предложение покупки вещи.
// Отдельного принятия владельцем нет: сигналом принятия служит оплата.
func (s *NegotiationService) CreateBuyProposal(ctx context.Context, buyerID, itemID uuid.UUID) (*models.ExchangeProposal, error) {
	item, err := s.getItem(ctx, itemID)
	if err != nil {
		return nil, err
	}

	switch {
	case item.OwnerID == buyerID:
		return nil, apperror.New(apperror.ErrCodeIneligibleProposal, "нельзя купить собственную вещь")
	case item.Status != models.ItemStatusAvailable:
		return nil, apperror.New(apperror.ErrCodeIneligibleProposal, "вещь недоступна для покупки")
	case !models.CanBuy(item.DeliveryMode):
		return nil, apperror.New(apperror.ErrCodeIneligibleProposal, "вещь не продаётся")
	case item.Price == nil || *item.Price <= 0:
		return nil, apperror.New(apperror.ErrCodeIneligibleProposal, "у вещи не указана цена")
	}

	if _, err := s.proposals.FindActive(ctx, itemID, buyerID); err == nil {
		return nil, apperror.New(apperror.ErrCodeDuplicateProposal, "у вас уже есть активное предложение на эту вещь")
	} else if !errors.Is(err, repository.ErrProposalNotFound) {
		return nil, err
	}

	proposal := &models.ExchangeProposal{
		RequestedItemID: itemID,
		RequesterID:     buyerID,
		OwnerID:         item.OwnerID,
		MonetaryAmount:  *item.Price,
		Status:          models.ProposalStatusPending,
	}

	if err := s.proposals.Create(ctx, proposal); err != nil {
		if errors.Is(err, repository.ErrActiveProposalExists) {
			return nil, apperror.New(apperror.ErrCodeDuplicateProposal, "у вас уже есть активное предложение на эту вещь")
		}
		return nil, err
	}

	if s.notifier != nil {
		s.notifier.ProposalCreated(ctx, proposal)
	}
	return proposal, nil
}

// RespondToSwapProposal фиксирует решение владельца по предложению обмена.
func (s *NegotiationService) RespondToSwapProposal(ctx context.Context, ownerID, proposalID uuid.UUID, accept bool) (*models.ExchangeProposal, error) {
	proposal, err := s.getProposal(ctx, proposalID)
	if err != nil {
		return nil, err
	}

	if proposal.OwnerID != ownerID {
		return nil, apperror.ErrForbidden
	}
	if !proposal.IsSwap() {
		return nil, apperror.New(apperror.ErrCodeInvalidState, "предложение покупки принимается оплатой")
	}
	if proposal.Status != models.ProposalStatusPending {
		return nil, apperror.New(apperror.ErrCodeInvalidState, "предложение уже рассмотрено")
	}

	next := models.ProposalStatusDeclined
	if accept {
		next = models.ProposalStatusAccepted
	}

	ok, err := s.proposals.CompareAndSetStatus(ctx, proposalID, models.ProposalStatusPending, next)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperror.New(apperror.ErrCodeInvalidState, "предложение уже рассмотрено")
	}

	proposal.Status = next
	if s.notifier != nil {
		s.notifier.ProposalDecided(ctx, proposal)
	}
	return proposal, nil
}

// GetProposal возвращает предложение участнику сделки.
func (s *NegotiationService) GetProposal(ctx context.Context, callerID, proposalID uuid.UUID) (*models.ExchangeProposal, error) {
	proposal, err := s.getProposal(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	if proposal.RequesterID != callerID && proposal.OwnerID != callerID {
		return nil, apperror.ErrForbidden
	}
	return proposal, nil
}

// ListIncoming возвращает входящие предложения владельца.
func (s *NegotiationService) ListIncoming(ctx context.Context, ownerID uuid.UUID) ([]models.ExchangeProposal, error) {
	return s.proposals.ListIncoming(ctx, ownerID)
}

// ListOutgoing возвращает исходящие предложения инициатора.
func (s *NegotiationService) ListOutgoing(ctx context.Context, requesterID uuid.UUID) ([]models.ExchangeProposal, error) {
	return s.proposals.ListOutgoing(ctx, requesterID)
}

func (s *NegotiationService) getItem(ctx context.Context, id uuid.UUID) (*models.Item, error) {
	item, err := s.items.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrItemNotFound) {
			return nil, apperror.ErrItemNotFound
		}
		return nil, fmt.Errorf("negotiation service: %w", err)
	}
	return item, nil
}

func (s *NegotiationService) getProposal(ctx context.Context, id uuid.UUID) (*models.ExchangeProposal, error) {
	proposal, err := s.proposals.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrProposalNotFound) {
			return nil, apperror.ErrProposalNotFound
		}
		return nil, fmt.Errorf("negotiation service: %w", err)
	}
	return proposal, nil
}
