package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/rewearhq/rewear-backend/internal/models"
	"github.com/rewearhq/rewear-backend/internal/payment"
	"github.com/rewearhq/rewear-backend/internal/pkg/apperror"
	"github.com/rewearhq/rewear-backend/internal/repository"
)

// Расчёт завязан на условные обновления статусов, поэтому тесты
// используют хранилища с настоящим состоянием, а не записанные ответы.

type fakeItemStore struct {
	mu    sync.Mutex
	items map[uuid.UUID]*models.Item
}

func newFakeItemStore(items ...*models.Item) *fakeItemStore {
	s := &fakeItemStore{items: make(map[uuid.UUID]*models.Item)}
	for _, item := range items {
		s.items[item.ID] = item
	}
	return s
}

func (s *fakeItemStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[id]
	if !ok {
		return nil, repository.ErrItemNotFound
	}
	copied := *item
	return &copied, nil
}

func (s *fakeItemStore) CompareAndSetStatus(ctx context.Context, id uuid.UUID, expected, next string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[id]
	if !ok || item.Status != expected {
		return false, nil
	}
	item.Status = next
	return true, nil
}

func (s *fakeItemStore) status(id uuid.UUID) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items[id].Status
}

type fakeProposalStore struct {
	mu        sync.Mutex
	proposals map[uuid.UUID]*models.ExchangeProposal
}

func newFakeProposalStore(proposals ...*models.ExchangeProposal) *fakeProposalStore {
	s := &fakeProposalStore{proposals: make(map[uuid.UUID]*models.ExchangeProposal)}
	for _, p := range proposals {
		s.proposals[p.ID] = p
	}
	return s
}

func (s *fakeProposalStore) Create(ctx context.Context, p *models.ExchangeProposal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	s.proposals[p.ID] = p
	return nil
}

func (s *fakeProposalStore) GetByID(ctx context.Context, id uuid.UUID) (*models.ExchangeProposal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.proposals[id]
	if !ok {
		return nil, repository.ErrProposalNotFound
	}
	copied := *p
	return &copied, nil
}

func (s *fakeProposalStore) FindActive(ctx context.Context, requestedItemID, requesterID uuid.UUID) (*models.ExchangeProposal, error) {
	return nil, repository.ErrProposalNotFound
}

func (s *fakeProposalStore) CompareAndSetStatus(ctx context.Context, id uuid.UUID, expected, next string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.proposals[id]
	if !ok || p.Status != expected {
		return false, nil
	}
	p.Status = next
	return true, nil
}

func (s *fakeProposalStore) ListIncoming(ctx context.Context, ownerID uuid.UUID) ([]models.ExchangeProposal, error) {
	return nil, nil
}

func (s *fakeProposalStore) ListOutgoing(ctx context.Context, requesterID uuid.UUID) ([]models.ExchangeProposal, error) {
	return nil, nil
}

func (s *fakeProposalStore) status(id uuid.UUID) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.proposals[id].Status
}

// fakeSettlementStore воспроизводит транзакционную фиксацию репозитория:
// проверка pending, перевод предложения и вещей, движение баллов.
type fakeSettlementStore struct {
	mu          sync.Mutex
	settlements map[uuid.UUID]*models.Settlement
	items       *fakeItemStore
	proposals   *fakeProposalStore
	points      map[uuid.UUID]int
	createErr   error
}

func newFakeSettlementStore(items *fakeItemStore, proposals *fakeProposalStore) *fakeSettlementStore {
	return &fakeSettlementStore{
		settlements: make(map[uuid.UUID]*models.Settlement),
		items:       items,
		proposals:   proposals,
		points:      make(map[uuid.UUID]int),
	}
}

func (s *fakeSettlementStore) Create(ctx context.Context, settlement *models.Settlement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	if settlement.ID == uuid.Nil {
		settlement.ID = uuid.New()
	}
	settlement.CreatedAt = time.Now()
	s.settlements[settlement.ID] = settlement
	return nil
}

func (s *fakeSettlementStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Settlement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	settlement, ok := s.settlements[id]
	if !ok {
		return nil, repository.ErrSettlementNotFound
	}
	copied := *settlement
	return &copied, nil
}

func (s *fakeSettlementStore) Commit(ctx context.Context, p repository.CommitParams) (*models.Settlement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	settlement, ok := s.settlements[p.SettlementID]
	if !ok {
		return nil, repository.ErrSettlementNotFound
	}
	if settlement.Status != models.SettlementStatusPending {
		return nil, repository.ErrSettlementNotPending
	}

	if _, err := s.proposals.CompareAndSetStatus(ctx, p.ProposalID, models.ProposalStatusAccepted, models.ProposalStatusCompleted); err != nil {
		return nil, err
	}
	for _, itemID := range p.ItemIDs {
		if _, err := s.items.CompareAndSetStatus(ctx, itemID, models.ItemStatusReserved, models.ItemStatusExchanged); err != nil {
			return nil, err
		}
	}
	if p.PointsDifferential != 0 {
		s.points[p.RequesterID] -= p.PointsDifferential
		s.points[p.OwnerID] += p.PointsDifferential
	}

	settlement.Status = models.SettlementStatusConfirmed
	settlement.DeliveryAddress = &p.DeliveryAddress
	copied := *settlement
	return &copied, nil
}

func (s *fakeSettlementStore) MarkFailed(ctx context.Context, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	settlement, ok := s.settlements[id]
	if !ok || settlement.Status != models.SettlementStatusPending {
		return false, nil
	}
	settlement.Status = models.SettlementStatusFailed
	return true, nil
}

func (s *fakeSettlementStore) ListExpiredPending(ctx context.Context, olderThan time.Time) ([]models.Settlement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var expired []models.Settlement
	for _, settlement := range s.settlements {
		if settlement.Status == models.SettlementStatusPending && settlement.CreatedAt.Before(olderThan) {
			expired = append(expired, *settlement)
		}
	}
	return expired, nil
}

func validCard() payment.Card {
	return payment.Card{
		Number: "4111111111111111",
		Expiry: "12/39",
		CVV:    "123",
	}
}

func swapFixture(differential int) (*fakeItemStore, *fakeProposalStore, *fakeSettlementStore, *models.ExchangeProposal) {
	ownerID := uuid.New()
	requesterID := uuid.New()

	requested := &models.Item{ID: uuid.New(), OwnerID: ownerID, PointsValue: 30 + differential, DeliveryMode: models.DeliveryModeSwap, Status: models.ItemStatusAvailable}
	offered := &models.Item{ID: uuid.New(), OwnerID: requesterID, PointsValue: 30, DeliveryMode: models.DeliveryModeSwap, Status: models.ItemStatusAvailable}

	proposal := &models.ExchangeProposal{
		ID:                 uuid.New(),
		RequestedItemID:    requested.ID,
		OfferedItemID:      &offered.ID,
		RequesterID:        requesterID,
		OwnerID:            ownerID,
		PointsDifferential: differential,
		Status:             models.ProposalStatusAccepted,
	}

	items := newFakeItemStore(requested, offered)
	proposals := newFakeProposalStore(proposal)
	settlements := newFakeSettlementStore(items, proposals)
	return items, proposals, settlements, proposal
}

func buyFixture(price int) (*fakeItemStore, *fakeProposalStore, *fakeSettlementStore, *models.ExchangeProposal) {
	ownerID := uuid.New()
	requesterID := uuid.New()

	item := &models.Item{ID: uuid.New(), OwnerID: ownerID, PointsValue: 10, Price: &price, DeliveryMode: models.DeliveryModeBuy, Status: models.ItemStatusAvailable}

	proposal := &models.ExchangeProposal{
		ID:              uuid.New(),
		RequestedItemID: item.ID,
		RequesterID:     requesterID,
		OwnerID:         ownerID,
		MonetaryAmount:  price,
		Status:          models.ProposalStatusPending,
	}

	items := newFakeItemStore(item)
	proposals := newFakeProposalStore(proposal)
	settlements := newFakeSettlementStore(items, proposals)
	return items, proposals, settlements, proposal
}

func TestSettlementService_Reserve_Swap(t *testing.T) {
	items, proposals, settlements, proposal := swapFixture(20)
	svc := NewSettlementService(items, proposals, settlements, payment.NewSimulatedGateway(), nil, 15*time.Minute)
	ctx := context.Background()

	settlement, err := svc.Reserve(ctx, proposal.RequesterID, proposal.ID)
	assert.NoError(t, err)
	assert.Equal(t, models.SettlementStatusPending, settlement.Status)
	assert.Equal(t, 20, settlement.AmountDue)
	assert.Equal(t, models.ItemStatusReserved, items.status(proposal.RequestedItemID))
	assert.Equal(t, models.ItemStatusReserved, items.status(*proposal.OfferedItemID))
}

func TestSettlementService_Reserve_SwapNotAccepted(t *testing.T) {
	items, proposals, settlements, proposal := swapFixture(20)
	proposals.proposals[proposal.ID].Status = models.ProposalStatusPending
	svc := NewSettlementService(items, proposals, settlements, payment.NewSimulatedGateway(), nil, 15*time.Minute)

	_, err := svc.Reserve(context.Background(), proposal.RequesterID, proposal.ID)
	assert.Equal(t, apperror.ErrCodeInvalidState, apperror.CodeOf(err))
	assert.Equal(t, models.ItemStatusAvailable, items.status(proposal.RequestedItemID))
}

func TestSettlementService_Reserve_NotRequester(t *testing.T) {
	items, proposals, settlements, proposal := swapFixture(20)
	svc := NewSettlementService(items, proposals, settlements, payment.NewSimulatedGateway(), nil, 15*time.Minute)

	_, err := svc.Reserve(context.Background(), uuid.New(), proposal.ID)
	assert.Equal(t, apperror.ErrCodeForbidden, apperror.CodeOf(err))
}

func TestSettlementService_Reserve_BuyFlipsToAccepted(t *testing.T) {
	items, proposals, settlements, proposal := buyFixture(500)
	svc := NewSettlementService(items, proposals, settlements, payment.NewSimulatedGateway(), nil, 15*time.Minute)

	settlement, err := svc.Reserve(context.Background(), proposal.RequesterID, proposal.ID)
	assert.NoError(t, err)
	assert.Equal(t, 500, settlement.AmountDue)
	assert.Equal(t, models.ProposalStatusAccepted, proposals.status(proposal.ID))
	assert.Equal(t, models.ItemStatusReserved, items.status(proposal.RequestedItemID))
}

func TestSettlementService_Reserve_RaceOneWinner(t *testing.T) {
	ownerID := uuid.New()
	price := 300
	item := &models.Item{ID: uuid.New(), OwnerID: ownerID, PointsValue: 10, Price: &price, DeliveryMode: models.DeliveryModeBuy, Status: models.ItemStatusAvailable}

	first := &models.ExchangeProposal{ID: uuid.New(), RequestedItemID: item.ID, RequesterID: uuid.New(), OwnerID: ownerID, MonetaryAmount: price, Status: models.ProposalStatusPending}
	second := &models.ExchangeProposal{ID: uuid.New(), RequestedItemID: item.ID, RequesterID: uuid.New(), OwnerID: ownerID, MonetaryAmount: price, Status: models.ProposalStatusPending}

	items := newFakeItemStore(item)
	proposals := newFakeProposalStore(first, second)
	settlements := newFakeSettlementStore(items, proposals)
	svc := NewSettlementService(items, proposals, settlements, payment.NewSimulatedGateway(), nil, 15*time.Minute)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, p := range []*models.ExchangeProposal{first, second} {
		wg.Add(1)
		go func(i int, p *models.ExchangeProposal) {
			defer wg.Done()
			_, errs[i] = svc.Reserve(ctx, p.RequesterID, p.ID)
		}(i, p)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
		} else {
			assert.Equal(t, apperror.ErrCodeInvalidState, apperror.CodeOf(err))
		}
	}
	assert.Equal(t, 1, winners)
	assert.Equal(t, models.ItemStatusReserved, items.status(item.ID))
}

func TestSettlementService_Reserve_StoreFailureReleasesReservation(t *testing.T) {
	items, proposals, settlements, proposal := buyFixture(500)
	settlements.createErr = errors.New("соединение с базой потеряно")
	svc := NewSettlementService(items, proposals, settlements, payment.NewSimulatedGateway(), nil, 15*time.Minute)
	ctx := context.Background()

	_, err := svc.Reserve(ctx, proposal.RequesterID, proposal.ID)
	assert.Error(t, err)

	// Резерв снят сразу: записи расчёта нет, фоновой очистке нечего освобождать
	assert.Equal(t, models.ItemStatusAvailable, items.status(proposal.RequestedItemID))
	assert.Equal(t, models.ProposalStatusPending, proposals.status(proposal.ID))
	assert.Empty(t, settlements.settlements)
}

func TestSettlementService_Reserve_StoreFailureReleasesBothSwapItems(t *testing.T) {
	items, proposals, settlements, proposal := swapFixture(20)
	settlements.createErr = errors.New("соединение с базой потеряно")
	svc := NewSettlementService(items, proposals, settlements, payment.NewSimulatedGateway(), nil, 15*time.Minute)

	_, err := svc.Reserve(context.Background(), proposal.RequesterID, proposal.ID)
	assert.Error(t, err)

	assert.Equal(t, models.ItemStatusAvailable, items.status(proposal.RequestedItemID))
	assert.Equal(t, models.ItemStatusAvailable, items.status(*proposal.OfferedItemID))
	assert.Equal(t, models.ProposalStatusAccepted, proposals.status(proposal.ID))
}

func TestSettlementService_Commit_LedgerConservation(t *testing.T) {
	items, proposals, settlements, proposal := swapFixture(20)
	svc := NewSettlementService(items, proposals, settlements, payment.NewSimulatedGateway(), nil, 15*time.Minute)
	ctx := context.Background()

	settlement, err := svc.Reserve(ctx, proposal.RequesterID, proposal.ID)
	assert.NoError(t, err)

	confirmed, err := svc.Commit(ctx, proposal.RequesterID, settlement.ID, "Мумбаи, Линкинг-роуд, 14, кв. 7", validCard())
	assert.NoError(t, err)
	assert.Equal(t, models.SettlementStatusConfirmed, confirmed.Status)

	assert.Equal(t, -20, settlements.points[proposal.RequesterID])
	assert.Equal(t, 20, settlements.points[proposal.OwnerID])
	assert.Zero(t, settlements.points[proposal.RequesterID]+settlements.points[proposal.OwnerID])

	assert.Equal(t, models.ItemStatusExchanged, items.status(proposal.RequestedItemID))
	assert.Equal(t, models.ItemStatusExchanged, items.status(*proposal.OfferedItemID))
	assert.Equal(t, models.ProposalStatusCompleted, proposals.status(proposal.ID))
}

func TestSettlementService_Commit_Idempotent(t *testing.T) {
	items, proposals, settlements, proposal := swapFixture(20)
	svc := NewSettlementService(items, proposals, settlements, payment.NewSimulatedGateway(), nil, 15*time.Minute)
	ctx := context.Background()

	settlement, err := svc.Reserve(ctx, proposal.RequesterID, proposal.ID)
	assert.NoError(t, err)

	_, err = svc.Commit(ctx, proposal.RequesterID, settlement.ID, "Мумбаи, Линкинг-роуд, 14, кв. 7", validCard())
	assert.NoError(t, err)

	_, err = svc.Commit(ctx, proposal.RequesterID, settlement.ID, "Мумбаи, Линкинг-роуд, 14, кв. 7", validCard())
	assert.Equal(t, apperror.ErrCodeInvalidState, apperror.CodeOf(err))

	// Баллы не переводятся повторно
	assert.Equal(t, -20, settlements.points[proposal.RequesterID])
	assert.Equal(t, 20, settlements.points[proposal.OwnerID])
}

func TestSettlementService_Commit_EvenSwapSkipsCapture(t *testing.T) {
	items, proposals, settlements, proposal := swapFixture(0)
	svc := NewSettlementService(items, proposals, settlements, payment.NewSimulatedGateway(), nil, 15*time.Minute)
	ctx := context.Background()

	settlement, err := svc.Reserve(ctx, proposal.RequesterID, proposal.ID)
	assert.NoError(t, err)
	assert.Zero(t, settlement.AmountDue)

	// Карта не передаётся: при равноценном обмене списания нет
	confirmed, err := svc.Commit(ctx, proposal.RequesterID, settlement.ID, "Дели, Чандни-Чоук, 3", payment.Card{})
	assert.NoError(t, err)
	assert.Equal(t, models.SettlementStatusConfirmed, confirmed.Status)
	assert.Zero(t, settlements.points[proposal.RequesterID])
}

func TestSettlementService_Commit_PaymentFailedReverts(t *testing.T) {
	items, proposals, settlements, proposal := buyFixture(700)
	svc := NewSettlementService(items, proposals, settlements, payment.NewSimulatedGateway(), nil, 15*time.Minute)
	ctx := context.Background()

	settlement, err := svc.Reserve(ctx, proposal.RequesterID, proposal.ID)
	assert.NoError(t, err)

	declined := validCard()
	declined.Number = payment.DeclineCardNumber

	_, err = svc.Commit(ctx, proposal.RequesterID, settlement.ID, "Бангалор, МГ-роуд, 21", declined)
	assert.Equal(t, apperror.ErrCodePaymentFailed, apperror.CodeOf(err))

	// Резерв снят, предложение покупки вернулось в pending
	assert.Equal(t, models.ItemStatusAvailable, items.status(proposal.RequestedItemID))
	assert.Equal(t, models.ProposalStatusPending, proposals.status(proposal.ID))

	stored, err := settlements.GetByID(ctx, settlement.ID)
	assert.NoError(t, err)
	assert.Equal(t, models.SettlementStatusFailed, stored.Status)
	assert.Empty(t, settlements.points)
}

func TestSettlementService_Commit_BadAddress(t *testing.T) {
	items, proposals, settlements, proposal := swapFixture(20)
	svc := NewSettlementService(items, proposals, settlements, payment.NewSimulatedGateway(), nil, 15*time.Minute)
	ctx := context.Background()

	settlement, err := svc.Reserve(ctx, proposal.RequesterID, proposal.ID)
	assert.NoError(t, err)

	_, err = svc.Commit(ctx, proposal.RequesterID, settlement.ID, "кор.", validCard())
	assert.Equal(t, apperror.ErrCodeValidation, apperror.CodeOf(err))

	// Расчёт остаётся открытым, резерв не тронут
	assert.Equal(t, models.ItemStatusReserved, items.status(proposal.RequestedItemID))
}

func TestSettlementService_ReserveAbandon_RoundTrip(t *testing.T) {
	items, proposals, settlements, proposal := buyFixture(400)
	svc := NewSettlementService(items, proposals, settlements, payment.NewSimulatedGateway(), nil, 15*time.Minute)
	ctx := context.Background()

	settlement, err := svc.Reserve(ctx, proposal.RequesterID, proposal.ID)
	assert.NoError(t, err)

	err = svc.Abandon(ctx, proposal.RequesterID, settlement.ID)
	assert.NoError(t, err)

	assert.Equal(t, models.ItemStatusAvailable, items.status(proposal.RequestedItemID))
	assert.Equal(t, models.ProposalStatusPending, proposals.status(proposal.ID))
	assert.Empty(t, settlements.points)

	// Брошенный расчёт нельзя зафиксировать
	_, err = svc.Commit(ctx, proposal.RequesterID, settlement.ID, "Ченнаи, Анна-Салаи, 5", validCard())
	assert.Equal(t, apperror.ErrCodeInvalidState, apperror.CodeOf(err))
}

func TestSettlementService_ExpiredReservationReleased(t *testing.T) {
	items, proposals, settlements, proposal := buyFixture(400)
	svc := NewSettlementService(items, proposals, settlements, payment.NewSimulatedGateway(), nil, time.Millisecond)
	ctx := context.Background()

	settlement, err := svc.Reserve(ctx, proposal.RequesterID, proposal.ID)
	assert.NoError(t, err)

	settlements.mu.Lock()
	settlements.settlements[settlement.ID].CreatedAt = time.Now().Add(-time.Hour)
	settlements.mu.Unlock()

	svc.releaseExpired(ctx)

	assert.Equal(t, models.ItemStatusAvailable, items.status(proposal.RequestedItemID))
	stored, err := settlements.GetByID(ctx, settlement.ID)
	assert.NoError(t, err)
	assert.Equal(t, models.SettlementStatusFailed, stored.Status)
}
