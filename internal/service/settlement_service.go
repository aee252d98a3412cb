package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rewearhq/rewear-backend/internal/logger"
	"github.com/rewearhq/rewear-backend/internal/models"
	"github.com/rewearhq/rewear-backend/internal/payment"
	"github.com/rewearhq/rewear-backend/internal/pkg/apperror"
	"github.com/rewearhq/rewear-backend/internal/repository"
	"github.com/rewearhq/rewear-backend/internal/validation"
)

// ItemStatusWriter описывает условное обновление статуса вещи.
type ItemStatusWriter interface {
	ItemReader
	CompareAndSetStatus(ctx context.Context, id uuid.UUID, expected, next string) (bool, error)
}

// SettlementRepo описывает хранилище расчётов.
type SettlementRepo interface {
	Create(ctx context.Context, s *models.Settlement) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Settlement, error)
	Commit(ctx context.Context, p repository.CommitParams) (*models.Settlement, error)
	MarkFailed(ctx context.Context, id uuid.UUID) (bool, error)
	ListExpiredPending(ctx context.Context, olderThan time.Time) ([]models.Settlement, error)
}

// SettlementService ведёт расчёт по принятому предложению в две фазы:
// резервирование вещей, затем фиксация с оплатой. Двухфазность исключает
// продажу одной вещи двум покупателям: резервирование выполняется
// условным обновлением статуса, выигрывает первый записавший.
type SettlementService struct {
	items       ItemStatusWriter
	proposals   ProposalRepository
	settlements SettlementRepo
	gateway     payment.Gateway
	notifier    Notifier
	ttl         time.Duration
}

// NewSettlementService создаёт сервис расчётов. ttl ограничивает время
// жизни незавершённого резервирования.
func NewSettlementService(items ItemStatusWriter, proposals ProposalRepository, settlements SettlementRepo, gateway payment.Gateway, notifier Notifier, ttl time.Duration) *SettlementService {
	return &SettlementService{
		items:       items,
		proposals:   proposals,
		settlements: settlements,
		gateway:     gateway,
		notifier:    notifier,
		ttl:         ttl,
	}
}

// Reserve резервирует вещи сделки и открывает расчёт (шаг сбора адреса).
//
// Для обмена предложение должно быть уже принято владельцем; предложение
// покупки принимается самим входом в оплату и переводится в accepted здесь.
// Баллы и финальные статусы не трогаются: до фиксации расчёт можно
// безопасно бросить.
func (s *SettlementService) Reserve(ctx context.Context, callerID, proposalID uuid.UUID) (*models.Settlement, error) {
	proposal, err := s.getProposal(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	if proposal.RequesterID != callerID {
		return nil, apperror.ErrForbidden
	}

	if proposal.IsSwap() {
		if proposal.Status != models.ProposalStatusAccepted {
			return nil, apperror.New(apperror.ErrCodeInvalidState, "предложение обмена ещё не принято владельцем")
		}
	} else {
		switch proposal.Status {
		case models.ProposalStatusPending:
			// Вход в оплату и есть принятие предложения покупки
			ok, err := s.proposals.CompareAndSetStatus(ctx, proposalID, models.ProposalStatusPending, models.ProposalStatusAccepted)
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, apperror.New(apperror.ErrCodeInvalidState, "предложение уже обрабатывается")
			}
			proposal.Status = models.ProposalStatusAccepted
		case models.ProposalStatusAccepted:
		default:
			return nil, apperror.New(apperror.ErrCodeInvalidState, "предложение уже закрыто")
		}
	}

	// Резервируем запрошенную вещь; проигравший гонку получает InvalidState
	ok, err := s.items.CompareAndSetStatus(ctx, proposal.RequestedItemID, models.ItemStatusAvailable, models.ItemStatusReserved)
	if err != nil || !ok {
		// Предложение покупки, принятое этим же входом, возвращаем в pending
		if !proposal.IsSwap() {
			if _, casErr := s.proposals.CompareAndSetStatus(ctx, proposal.ID, models.ProposalStatusAccepted, models.ProposalStatusPending); casErr != nil {
				logWarn("settlement service: не удалось вернуть предложение %s в pending: %v", proposal.ID, casErr)
			}
		}
		if err != nil {
			return nil, err
		}
		return nil, apperror.New(apperror.ErrCodeInvalidState, "вещь уже зарезервирована другим расчётом")
	}

	if proposal.IsSwap() {
		ok, err := s.items.CompareAndSetStatus(ctx, *proposal.OfferedItemID, models.ItemStatusAvailable, models.ItemStatusReserved)
		if err != nil || !ok {
			// Снимаем уже взятый резерв, прежде чем сообщить об отказе
			if _, casErr := s.items.CompareAndSetStatus(ctx, proposal.RequestedItemID, models.ItemStatusReserved, models.ItemStatusAvailable); casErr != nil {
				logWarn("settlement service: не удалось снять резерв с вещи %s: %v", proposal.RequestedItemID, casErr)
			}
			if err != nil {
				return nil, err
			}
			return nil, apperror.New(apperror.ErrCodeInvalidState, "предлагаемая вещь уже зарезервирована")
		}
	}

	settlement := &models.Settlement{
		ProposalID: proposalID,
		AmountDue:  amountDue(proposal),
		Status:     models.SettlementStatusPending,
	}
	if err := s.settlements.Create(ctx, settlement); err != nil {
		// Записи расчёта нет, фоновая очистка про этот резерв не узнает:
		// снимаем его сразу, иначе вещь останется заблокированной навсегда.
		s.releaseReservation(ctx, proposal)
		return nil, fmt.Errorf("settlement service: %w", err)
	}
	return settlement, nil
}

// Commit завершает расчёт: захватывает оплату внешним шлюзом и одной
// транзакцией применяет итог сделки. Повторная фиксация подтверждённого
// расчёта завершается InvalidState без повторного перевода баллов.
func (s *SettlementService) Commit(ctx context.Context, callerID, settlementID uuid.UUID, deliveryAddress string, card payment.Card) (*models.Settlement, error) {
	settlement, err := s.getSettlement(ctx, settlementID)
	if err != nil {
		return nil, err
	}
	if settlement.Status != models.SettlementStatusPending {
		return nil, apperror.New(apperror.ErrCodeInvalidState, "расчёт уже завершён")
	}

	proposal, err := s.getProposal(ctx, settlement.ProposalID)
	if err != nil {
		return nil, err
	}
	if proposal.RequesterID != callerID {
		return nil, apperror.ErrForbidden
	}

	if err := validation.ValidateDeliveryAddress(deliveryAddress); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}

	// Внешнее списание выполняется до транзакции: при отказе резерв
	// снимается компенсирующим откатом, при успехе и сбое базы расчёт
	// остаётся pending и фиксацию можно повторить.
	if settlement.AmountDue > 0 {
		if err := s.gateway.Capture(ctx, settlement.AmountDue, card); err != nil {
			s.release(ctx, proposal, settlementID)
			return nil, apperror.Wrap(err, apperror.ErrCodePaymentFailed, "оплата отклонена")
		}
	}

	confirmed, err := s.settlements.Commit(ctx, repository.CommitParams{
		SettlementID:       settlementID,
		ProposalID:         proposal.ID,
		ItemIDs:            settlementItems(proposal),
		RequesterID:        proposal.RequesterID,
		OwnerID:            proposal.OwnerID,
		PointsDifferential: swapDifferential(proposal),
		DeliveryAddress:    deliveryAddress,
	})
	if err != nil {
		if errors.Is(err, repository.ErrSettlementNotPending) {
			return nil, apperror.New(apperror.ErrCodeInvalidState, "расчёт уже завершён")
		}
		if errors.Is(err, repository.ErrSettlementNotFound) {
			return nil, apperror.ErrSettlementNotFound
		}
		return nil, err
	}

	if s.notifier != nil {
		s.notifier.SettlementConfirmed(ctx, proposal, confirmed)
	}
	return confirmed, nil
}

// Abandon бросает незавершённый расчёт: вещи возвращаются в available,
// предложение — в статус до резервирования, без движения баллов.
func (s *SettlementService) Abandon(ctx context.Context, callerID, settlementID uuid.UUID) error {
	settlement, err := s.getSettlement(ctx, settlementID)
	if err != nil {
		return err
	}
	if settlement.Status != models.SettlementStatusPending {
		return apperror.New(apperror.ErrCodeInvalidState, "расчёт уже завершён")
	}

	proposal, err := s.getProposal(ctx, settlement.ProposalID)
	if err != nil {
		return err
	}
	if proposal.RequesterID != callerID {
		return apperror.ErrForbidden
	}

	s.release(ctx, proposal, settlementID)
	return nil
}

// StartExpiryWorker запускает фоновое освобождение просроченных
// резервирований, чтобы брошенный расчёт не блокировал вещь бессрочно.
func (s *SettlementService) StartExpiryWorker(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.releaseExpired(ctx)
			}
		}
	}()
}

func (s *SettlementService) releaseExpired(ctx context.Context) {
	expired, err := s.settlements.ListExpiredPending(ctx, time.Now().Add(-s.ttl))
	if err != nil {
		logWarn("settlement service: не удалось получить просроченные расчёты: %v", err)
		return
	}

	for _, settlement := range expired {
		proposal, err := s.getProposal(ctx, settlement.ProposalID)
		if err != nil {
			logWarn("settlement service: просроченный расчёт %s без предложения: %v", settlement.ID, err)
			continue
		}
		s.release(ctx, proposal, settlement.ID)
	}
}

// release снимает резерв с вещей сделки и помечает расчёт неуспешным.
func (s *SettlementService) release(ctx context.Context, proposal *models.ExchangeProposal, settlementID uuid.UUID) {
	s.releaseReservation(ctx, proposal)

	if _, err := s.settlements.MarkFailed(ctx, settlementID); err != nil {
		logWarn("settlement service: не удалось пометить расчёт %s неуспешным: %v", settlementID, err)
	}
}

// releaseReservation возвращает вещи сделки в available, а принятое оплатой
// предложение покупки — в pending. Статусы откатываются тем же условным
// обновлением, что и ставились.
func (s *SettlementService) releaseReservation(ctx context.Context, proposal *models.ExchangeProposal) {
	for _, itemID := range settlementItems(proposal) {
		if _, err := s.items.CompareAndSetStatus(ctx, itemID, models.ItemStatusReserved, models.ItemStatusAvailable); err != nil {
			logWarn("settlement service: не удалось снять резерв с вещи %s: %v", itemID, err)
		}
	}

	if !proposal.IsSwap() && proposal.Status == models.ProposalStatusAccepted {
		if _, err := s.proposals.CompareAndSetStatus(ctx, proposal.ID, models.ProposalStatusAccepted, models.ProposalStatusPending); err != nil {
			logWarn("settlement service: не удалось вернуть предложение %s в pending: %v", proposal.ID, err)
		}
	}
}

func (s *SettlementService) getProposal(ctx context.Context, id uuid.UUID) (*models.ExchangeProposal, error) {
	proposal, err := s.proposals.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrProposalNotFound) {
			return nil, apperror.ErrProposalNotFound
		}
		return nil, fmt.Errorf("settlement service: %w", err)
	}
	return proposal, nil
}

func (s *SettlementService) getSettlement(ctx context.Context, id uuid.UUID) (*models.Settlement, error) {
	settlement, err := s.settlements.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrSettlementNotFound) {
			return nil, apperror.ErrSettlementNotFound
		}
		return nil, fmt.Errorf("settlement service: %w", err)
	}
	return settlement, nil
}

// amountDue возвращает денежную часть расчёта: цену при покупке,
// модуль разницы баллов при обмене.
func amountDue(p *models.ExchangeProposal) int {
	if !p.IsSwap() {
		return p.MonetaryAmount
	}
	if p.PointsDifferential < 0 {
		return -p.PointsDifferential
	}
	return p.PointsDifferential
}

// swapDifferential возвращает перевод баллов для фиксации: при покупке
// баллы не движутся.
func swapDifferential(p *models.ExchangeProposal) int {
	if !p.IsSwap() {
		return 0
	}
	return p.PointsDifferential
}

func settlementItems(p *models.ExchangeProposal) []uuid.UUID {
	items := []uuid.UUID{p.RequestedItemID}
	if p.IsSwap() {
		items = append(items, *p.OfferedItemID)
	}
	return items
}

func logWarn(format string, args ...interface{}) {
	if logger.Log != nil {
		logger.Log.Warnf(format, args...)
	}
}
