package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/rewearhq/rewear-backend/internal/models"
	"github.com/rewearhq/rewear-backend/internal/pkg/apperror"
	"github.com/rewearhq/rewear-backend/internal/repository"
)

type mockItemReader struct {
	mock.Mock
}

func (m *mockItemReader) GetByID(ctx context.Context, id uuid.UUID) (*models.Item, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Item), args.Error(1)
}

type mockProposalRepo struct {
	mock.Mock
}

func (m *mockProposalRepo) Create(ctx context.Context, p *models.ExchangeProposal) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *mockProposalRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.ExchangeProposal, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ExchangeProposal), args.Error(1)
}

func (m *mockProposalRepo) FindActive(ctx context.Context, requestedItemID, requesterID uuid.UUID) (*models.ExchangeProposal, error) {
	args := m.Called(ctx, requestedItemID, requesterID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ExchangeProposal), args.Error(1)
}

func (m *mockProposalRepo) CompareAndSetStatus(ctx context.Context, id uuid.UUID, expected, next string) (bool, error) {
	args := m.Called(ctx, id, expected, next)
	return args.Bool(0), args.Error(1)
}

func (m *mockProposalRepo) ListIncoming(ctx context.Context, ownerID uuid.UUID) ([]models.ExchangeProposal, error) {
	args := m.Called(ctx, ownerID)
	return args.Get(0).([]models.ExchangeProposal), args.Error(1)
}

func (m *mockProposalRepo) ListOutgoing(ctx context.Context, requesterID uuid.UUID) ([]models.ExchangeProposal, error) {
	args := m.Called(ctx, requesterID)
	return args.Get(0).([]models.ExchangeProposal), args.Error(1)
}

func availableItem(ownerID uuid.UUID, points int, mode string) *models.Item {
	return &models.Item{
		ID:           uuid.New(),
		OwnerID:      ownerID,
		Title:        "Джинсовая куртка",
		PointsValue:  points,
		DeliveryMode: mode,
		Status:       models.ItemStatusAvailable,
	}
}

func TestNegotiationService_CreateSwapProposal_Differential(t *testing.T) {
	items := new(mockItemReader)
	proposals := new(mockProposalRepo)
	svc := NewNegotiationService(items, proposals, nil)
	ctx := context.Background()

	ownerID := uuid.New()
	requesterID := uuid.New()
	requested := availableItem(ownerID, 50, models.DeliveryModeSwap)
	offered := availableItem(requesterID, 30, models.DeliveryModeSwap)

	items.On("GetByID", ctx, requested.ID).Return(requested, nil)
	items.On("GetByID", ctx, offered.ID).Return(offered, nil)
	proposals.On("FindActive", ctx, requested.ID, requesterID).Return(nil, repository.ErrProposalNotFound)
	proposals.On("Create", ctx, mock.AnythingOfType("*models.ExchangeProposal")).Return(nil)

	proposal, err := svc.CreateSwapProposal(ctx, requesterID, requested.ID, offered.ID, "поменяемся?")
	assert.NoError(t, err)
	assert.Equal(t, 20, proposal.PointsDifferential)
	assert.Equal(t, models.ProposalStatusPending, proposal.Status)
	assert.Equal(t, ownerID, proposal.OwnerID)
	assert.NotNil(t, proposal.OfferedItemID)
	proposals.AssertExpectations(t)
}

func TestNegotiationService_CreateSwapProposal_OwnItem(t *testing.T) {
	items := new(mockItemReader)
	proposals := new(mockProposalRepo)
	svc := NewNegotiationService(items, proposals, nil)
	ctx := context.Background()

	requesterID := uuid.New()
	requested := availableItem(requesterID, 50, models.DeliveryModeSwap)
	offered := availableItem(requesterID, 30, models.DeliveryModeSwap)

	items.On("GetByID", ctx, requested.ID).Return(requested, nil)
	items.On("GetByID", ctx, offered.ID).Return(offered, nil)

	_, err := svc.CreateSwapProposal(ctx, requesterID, requested.ID, offered.ID, "")
	assert.Equal(t, apperror.ErrCodeIneligibleProposal, apperror.CodeOf(err))
}

func TestNegotiationService_CreateSwapProposal_ItemNotAvailable(t *testing.T) {
	items := new(mockItemReader)
	proposals := new(mockProposalRepo)
	svc := NewNegotiationService(items, proposals, nil)
	ctx := context.Background()

	requesterID := uuid.New()
	requested := availableItem(uuid.New(), 50, models.DeliveryModeSwap)
	requested.Status = models.ItemStatusReserved
	offered := availableItem(requesterID, 30, models.DeliveryModeSwap)

	items.On("GetByID", ctx, requested.ID).Return(requested, nil)
	items.On("GetByID", ctx, offered.ID).Return(offered, nil)

	_, err := svc.CreateSwapProposal(ctx, requesterID, requested.ID, offered.ID, "")
	assert.Equal(t, apperror.ErrCodeIneligibleProposal, apperror.CodeOf(err))
}

func TestNegotiationService_CreateSwapProposal_Duplicate(t *testing.T) {
	items := new(mockItemReader)
	proposals := new(mockProposalRepo)
	svc := NewNegotiationService(items, proposals, nil)
	ctx := context.Background()

	requesterID := uuid.New()
	requested := availableItem(uuid.New(), 50, models.DeliveryModeSwap)
	offered := availableItem(requesterID, 30, models.DeliveryModeSwap)

	items.On("GetByID", ctx, requested.ID).Return(requested, nil)
	items.On("GetByID", ctx, offered.ID).Return(offered, nil)
	proposals.On("FindActive", ctx, requested.ID, requesterID).
		Return(&models.ExchangeProposal{ID: uuid.New()}, nil)

	_, err := svc.CreateSwapProposal(ctx, requesterID, requested.ID, offered.ID, "")
	assert.Equal(t, apperror.ErrCodeDuplicateProposal, apperror.CodeOf(err))
}

func TestNegotiationService_CreateSwapProposal_DuplicateRace(t *testing.T) {
	items := new(mockItemReader)
	proposals := new(mockProposalRepo)
	svc := NewNegotiationService(items, proposals, nil)
	ctx := context.Background()

	requesterID := uuid.New()
	requested := availableItem(uuid.New(), 50, models.DeliveryModeSwap)
	offered := availableItem(requesterID, 30, models.DeliveryModeSwap)

	// Гонка: быстрая проверка никого не нашла, но параллельное создание
	// успело раньше и вставка упёрлась в уникальный индекс
	items.On("GetByID", ctx, requested.ID).Return(requested, nil)
	items.On("GetByID", ctx, offered.ID).Return(offered, nil)
	proposals.On("FindActive", ctx, requested.ID, requesterID).Return(nil, repository.ErrProposalNotFound)
	proposals.On("Create", ctx, mock.AnythingOfType("*models.ExchangeProposal")).
		Return(repository.ErrActiveProposalExists)

	_, err := svc.CreateSwapProposal(ctx, requesterID, requested.ID, offered.ID, "")
	assert.Equal(t, apperror.ErrCodeDuplicateProposal, apperror.CodeOf(err))
}

func TestNegotiationService_CreateBuyProposal_DuplicateRace(t *testing.T) {
	items := new(mockItemReader)
	proposals := new(mockProposalRepo)
	svc := NewNegotiationService(items, proposals, nil)
	ctx := context.Background()

	buyerID := uuid.New()
	price := 900
	item := availableItem(uuid.New(), 50, models.DeliveryModeBuy)
	item.Price = &price

	items.On("GetByID", ctx, item.ID).Return(item, nil)
	proposals.On("FindActive", ctx, item.ID, buyerID).Return(nil, repository.ErrProposalNotFound)
	proposals.On("Create", ctx, mock.AnythingOfType("*models.ExchangeProposal")).
		Return(repository.ErrActiveProposalExists)

	_, err := svc.CreateBuyProposal(ctx, buyerID, item.ID)
	assert.Equal(t, apperror.ErrCodeDuplicateProposal, apperror.CodeOf(err))
}

func TestNegotiationService_CreateSwapProposal_ItemNotFound(t *testing.T) {
	items := new(mockItemReader)
	proposals := new(mockProposalRepo)
	svc := NewNegotiationService(items, proposals, nil)
	ctx := context.Background()

	missingID := uuid.New()
	items.On("GetByID", ctx, missingID).Return(nil, repository.ErrItemNotFound)

	_, err := svc.CreateSwapProposal(ctx, uuid.New(), missingID, uuid.New(), "")
	assert.Equal(t, apperror.ErrCodeNotFound, apperror.CodeOf(err))
}

func TestNegotiationService_CreateBuyProposal_Success(t *testing.T) {
	items := new(mockItemReader)
	proposals := new(mockProposalRepo)
	svc := NewNegotiationService(items, proposals, nil)
	ctx := context.Background()

	buyerID := uuid.New()
	price := 1500
	item := availableItem(uuid.New(), 50, models.DeliveryModeBuy)
	item.Price = &price

	items.On("GetByID", ctx, item.ID).Return(item, nil)
	proposals.On("FindActive", ctx, item.ID, buyerID).Return(nil, repository.ErrProposalNotFound)
	proposals.On("Create", ctx, mock.AnythingOfType("*models.ExchangeProposal")).Return(nil)

	proposal, err := svc.CreateBuyProposal(ctx, buyerID, item.ID)
	assert.NoError(t, err)
	assert.Nil(t, proposal.OfferedItemID)
	assert.Equal(t, 1500, proposal.MonetaryAmount)
	assert.Zero(t, proposal.PointsDifferential)
}

func TestNegotiationService_CreateBuyProposal_NoPrice(t *testing.T) {
	items := new(mockItemReader)
	proposals := new(mockProposalRepo)
	svc := NewNegotiationService(items, proposals, nil)
	ctx := context.Background()

	item := availableItem(uuid.New(), 50, models.DeliveryModeBuy)

	items.On("GetByID", ctx, item.ID).Return(item, nil)

	_, err := svc.CreateBuyProposal(ctx, uuid.New(), item.ID)
	assert.Equal(t, apperror.ErrCodeIneligibleProposal, apperror.CodeOf(err))
}

func TestNegotiationService_CreateBuyProposal_SwapOnlyItem(t *testing.T) {
	items := new(mockItemReader)
	proposals := new(mockProposalRepo)
	svc := NewNegotiationService(items, proposals, nil)
	ctx := context.Background()

	item := availableItem(uuid.New(), 50, models.DeliveryModeSwap)

	items.On("GetByID", ctx, item.ID).Return(item, nil)

	_, err := svc.CreateBuyProposal(ctx, uuid.New(), item.ID)
	assert.Equal(t, apperror.ErrCodeIneligibleProposal, apperror.CodeOf(err))
}

func TestNegotiationService_Respond_Accept(t *testing.T) {
	items := new(mockItemReader)
	proposals := new(mockProposalRepo)
	svc := NewNegotiationService(items, proposals, nil)
	ctx := context.Background()

	ownerID := uuid.New()
	offeredID := uuid.New()
	proposal := &models.ExchangeProposal{
		ID:            uuid.New(),
		OwnerID:       ownerID,
		RequesterID:   uuid.New(),
		OfferedItemID: &offeredID,
		Status:        models.ProposalStatusPending,
	}

	proposals.On("GetByID", ctx, proposal.ID).Return(proposal, nil)
	proposals.On("CompareAndSetStatus", ctx, proposal.ID, models.ProposalStatusPending, models.ProposalStatusAccepted).
		Return(true, nil)

	updated, err := svc.RespondToSwapProposal(ctx, ownerID, proposal.ID, true)
	assert.NoError(t, err)
	assert.Equal(t, models.ProposalStatusAccepted, updated.Status)
}

func TestNegotiationService_Respond_NotOwner(t *testing.T) {
	items := new(mockItemReader)
	proposals := new(mockProposalRepo)
	svc := NewNegotiationService(items, proposals, nil)
	ctx := context.Background()

	offeredID := uuid.New()
	proposal := &models.ExchangeProposal{
		ID:            uuid.New(),
		OwnerID:       uuid.New(),
		OfferedItemID: &offeredID,
		Status:        models.ProposalStatusPending,
	}

	proposals.On("GetByID", ctx, proposal.ID).Return(proposal, nil)

	_, err := svc.RespondToSwapProposal(ctx, uuid.New(), proposal.ID, true)
	assert.Equal(t, apperror.ErrCodeForbidden, apperror.CodeOf(err))
}

func TestNegotiationService_Respond_BuyProposal(t *testing.T) {
	items := new(mockItemReader)
	proposals := new(mockProposalRepo)
	svc := NewNegotiationService(items, proposals, nil)
	ctx := context.Background()

	ownerID := uuid.New()
	proposal := &models.ExchangeProposal{
		ID:      uuid.New(),
		OwnerID: ownerID,
		Status:  models.ProposalStatusPending,
	}

	proposals.On("GetByID", ctx, proposal.ID).Return(proposal, nil)

	// Предложение покупки принимается оплатой, а не решением владельца
	_, err := svc.RespondToSwapProposal(ctx, ownerID, proposal.ID, true)
	assert.Equal(t, apperror.ErrCodeInvalidState, apperror.CodeOf(err))
}

func TestNegotiationService_GetProposal_ParticipantsOnly(t *testing.T) {
	items := new(mockItemReader)
	proposals := new(mockProposalRepo)
	svc := NewNegotiationService(items, proposals, nil)
	ctx := context.Background()

	proposal := &models.ExchangeProposal{
		ID:          uuid.New(),
		OwnerID:     uuid.New(),
		RequesterID: uuid.New(),
	}
	proposals.On("GetByID", ctx, proposal.ID).Return(proposal, nil)

	_, err := svc.GetProposal(ctx, proposal.OwnerID, proposal.ID)
	assert.NoError(t, err)

	_, err = svc.GetProposal(ctx, uuid.New(), proposal.ID)
	assert.Equal(t, apperror.ErrCodeForbidden, apperror.CodeOf(err))
}
