package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/rewearhq/rewear-backend/internal/logger"
	"github.com/rewearhq/rewear-backend/internal/models"
	"github.com/rewearhq/rewear-backend/internal/pkg/apperror"
	"github.com/rewearhq/rewear-backend/internal/repository"
	"github.com/rewearhq/rewear-backend/internal/validation"
)

// CatalogRepository описывает хранилище объявлений для каталога.
type CatalogRepository interface {
	Create(ctx context.Context, item *models.Item) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Item, error)
	Find(ctx context.Context, filter models.ItemFilter) ([]models.Item, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Item, error)
	IncrementViews(ctx context.Context, id uuid.UUID) error
}

// CreateItemInput содержит данные нового объявления.
type CreateItemInput struct {
	Title        string
	Description  string
	Category     string
	Size         string
	Condition    string
	Brand        string
	Color        string
	Tags         []string
	ImageURLs    []string
	PointsValue  int
	Price        *int
	DeliveryMode string
}

// CatalogService реализует каталог: публикацию и просмотр объявлений.
type CatalogService struct {
	items CatalogRepository
}

// NewCatalogService создаёт сервис каталога.
func NewCatalogService(items CatalogRepository) *CatalogService {
	return &CatalogService{items: items}
}

// CreateItem публикует объявление. Новая вещь попадает в каталог только
// после одобрения модератором, поэтому стартовый статус unavailable.
func (s *CatalogService) CreateItem(ctx context.Context, ownerID uuid.UUID, in CreateItemInput) (*models.Item, error) {
	if err := s.validateInput(in); err != nil {
		return nil, err
	}

	item := &models.Item{
		OwnerID:      ownerID,
		Title:        strings.TrimSpace(in.Title),
		Category:     in.Category,
		Size:         in.Size,
		Condition:    in.Condition,
		Tags:         in.Tags,
		ImageURLs:    in.ImageURLs,
		PointsValue:  in.PointsValue,
		Price:        in.Price,
		DeliveryMode: in.DeliveryMode,
		Status:       models.ItemStatusUnavailable,
	}
	if desc := strings.TrimSpace(in.Description); desc != "" {
		item.Description = &desc
	}
	if in.Brand != "" {
		item.Brand = &in.Brand
	}
	if in.Color != "" {
		item.Color = &in.Color
	}

	if err := s.items.Create(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// ListItems возвращает публичный каталог. Посетитель видит только
// одобренные вещи независимо от запрошенного фильтра.
func (s *CatalogService) ListItems(ctx context.Context, filter models.ItemFilter) ([]models.Item, error) {
	filter.Status = models.ItemStatusAvailable
	return s.items.Find(ctx, filter)
}

// GetItem возвращает вещь и учитывает просмотр.
func (s *CatalogService) GetItem(ctx context.Context, id uuid.UUID) (*models.Item, error) {
	item, err := s.items.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrItemNotFound) {
			return nil, apperror.ErrItemNotFound
		}
		return nil, fmt.Errorf("catalog service: %w", err)
	}

	if err := s.items.IncrementViews(ctx, id); err != nil {
		// Счётчик просмотров вспомогательный
		if logger.Log != nil {
			logger.Log.WithField("item_id", id).Warnf("catalog service: не удалось учесть просмотр: %v", err)
		}
	}
	return item, nil
}

// MyItems возвращает все объявления пользователя, включая ещё не
// прошедшие модерацию.
func (s *CatalogService) MyItems(ctx context.Context, ownerID uuid.UUID) ([]models.Item, error) {
	return s.items.ListByOwner(ctx, ownerID)
}

func (s *CatalogService) validateInput(in CreateItemInput) error {
	if err := validation.ValidateItemTitle(in.Title); err != nil {
		return apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidateLength("описание", in.Description, 0, validation.MaxDescriptionLength); err != nil {
		return apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if _, ok := models.ValidCategories[in.Category]; !ok {
		return apperror.New(apperror.ErrCodeValidation, "неизвестная категория")
	}
	if _, ok := models.ValidSizes[in.Size]; !ok {
		return apperror.New(apperror.ErrCodeValidation, "неизвестный размер")
	}
	if _, ok := models.ValidConditions[in.Condition]; !ok {
		return apperror.New(apperror.ErrCodeValidation, "неизвестное состояние")
	}
	if _, ok := models.ValidDeliveryModes[in.DeliveryMode]; !ok {
		return apperror.New(apperror.ErrCodeValidation, "неизвестный способ передачи")
	}
	if err := validation.ValidatePointsValue(in.PointsValue); err != nil {
		return apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidateTags(in.Tags); err != nil {
		return apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}

	if models.CanBuy(in.DeliveryMode) {
		if in.Price == nil {
			return apperror.New(apperror.ErrCodeValidation, "для продажи требуется цена")
		}
		if err := validation.ValidatePrice(*in.Price); err != nil {
			return apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
		}
	}
	return nil
}
