package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rewearhq/rewear-backend/internal/models"
	"github.com/rewearhq/rewear-backend/internal/pkg/apperror"
	"github.com/rewearhq/rewear-backend/internal/repository"
)

// ModerationUserRepository описывает доступ к пользователям для модерации.
type ModerationUserRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateRole(ctx context.Context, id uuid.UUID, role string) error
	List(ctx context.Context, limit, offset int) ([]models.User, error)
	Count(ctx context.Context) (int, error)
}

// ModerationItemRepository описывает доступ к каталогу для модерации.
// SetModerationStatus отличается от условного обновления расчётов тем,
// что отмечает время решения модератора.
type ModerationItemRepository interface {
	ItemReader
	SetModerationStatus(ctx context.Context, id uuid.UUID, expected, next string) (bool, error)
	ListPendingModeration(ctx context.Context, limit, offset int) ([]models.Item, error)
	Count(ctx context.Context) (int, error)
	CountModeratedSince(ctx context.Context, status string, since time.Time) (int, error)
}

// ProposalCounter считает предложения для сводки админки.
type ProposalCounter interface {
	Count(ctx context.Context) (int, error)
}

// AdminStats сводка для панели администратора.
type AdminStats struct {
	TotalUsers     int `json:"total_users"`
	TotalItems     int `json:"total_items"`
	TotalProposals int `json:"total_proposals"`
	ApprovedToday  int `json:"approved_today"`
	RejectedToday  int `json:"rejected_today"`
}

// Подозрительные слова для рекомендательной проверки объявлений.
// Совпадение ничего не блокирует, это только подсказка модератору.
var spamWords = []string{"xxx", "free", "scam", "urgent", "click here", "limited time"}

// ModerationService реализует решения администратора: допуск объявлений
// в каталог и управление ролями.
type ModerationService struct {
	items     ModerationItemRepository
	users     ModerationUserRepository
	proposals ProposalCounter
}

// NewModerationService создаёт сервис модерации.
func NewModerationService(items ModerationItemRepository, users ModerationUserRepository, proposals ProposalCounter) *ModerationService {
	return &ModerationService{
		items:     items,
		users:     users,
		proposals: proposals,
	}
}

// SetItemStatus одобряет (available) или снимает (unavailable) объявление.
// Вещь в середине расчёта трогать нельзя: reserved и exchanged
// отклоняются с InvalidState.
func (s *ModerationService) SetItemStatus(ctx context.Context, adminID, itemID uuid.UUID, next string) (*models.Item, error) {
	if err := s.requireAdmin(ctx, adminID); err != nil {
		return nil, err
	}

	if next != models.ItemStatusAvailable && next != models.ItemStatusUnavailable {
		return nil, apperror.New(apperror.ErrCodeValidation, "модерация устанавливает только available или unavailable")
	}

	item, err := s.items.GetByID(ctx, itemID)
	if err != nil {
		if errors.Is(err, repository.ErrItemNotFound) {
			return nil, apperror.ErrItemNotFound
		}
		return nil, fmt.Errorf("moderation service: %w", err)
	}

	if item.Status == models.ItemStatusReserved || item.Status == models.ItemStatusExchanged {
		return nil, apperror.New(apperror.ErrCodeInvalidState, "вещь участвует в расчёте или уже обменяна")
	}
	if item.Status == next {
		return item, nil
	}

	ok, err := s.items.SetModerationStatus(ctx, itemID, item.Status, next)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperror.New(apperror.ErrCodeInvalidState, "статус вещи изменился, обновите список")
	}

	item.Status = next
	return item, nil
}

// SetUserRole изменяет роль пользователя. Администратор не может понизить
// сам себя, чтобы не остаться без доступа к модерации.
func (s *ModerationService) SetUserRole(ctx context.Context, adminID, targetID uuid.UUID, role string) error {
	if err := s.requireAdmin(ctx, adminID); err != nil {
		return err
	}

	if role != models.RoleMember && role != models.RoleAdmin {
		return apperror.New(apperror.ErrCodeValidation, "неизвестная роль")
	}
	if adminID == targetID && role != models.RoleAdmin {
		return apperror.New(apperror.ErrCodeForbidden, "нельзя понизить собственную роль")
	}

	if err := s.users.UpdateRole(ctx, targetID, role); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return apperror.ErrUserNotFound
		}
		return fmt.Errorf("moderation service: %w", err)
	}
	return nil
}

// PendingItems возвращает объявления, ожидающие модерации.
func (s *ModerationService) PendingItems(ctx context.Context, adminID uuid.UUID, limit, offset int) ([]models.Item, error) {
	if err := s.requireAdmin(ctx, adminID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.items.ListPendingModeration(ctx, limit, offset)
}

// ListUsers возвращает пользователей для админки.
func (s *ModerationService) ListUsers(ctx context.Context, adminID uuid.UUID, limit, offset int) ([]models.User, error) {
	if err := s.requireAdmin(ctx, adminID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.users.List(ctx, limit, offset)
}

// Stats возвращает сводку для панели администратора.
func (s *ModerationService) Stats(ctx context.Context, adminID uuid.UUID) (*AdminStats, error) {
	if err := s.requireAdmin(ctx, adminID); err != nil {
		return nil, err
	}

	stats := &AdminStats{}
	var err error

	if stats.TotalUsers, err = s.users.Count(ctx); err != nil {
		return nil, err
	}
	if stats.TotalItems, err = s.items.Count(ctx); err != nil {
		return nil, err
	}
	if stats.TotalProposals, err = s.proposals.Count(ctx); err != nil {
		return nil, err
	}

	// Граница "сегодня" считается по UTC
	today := time.Now().UTC().Truncate(24 * time.Hour)
	if stats.ApprovedToday, err = s.items.CountModeratedSince(ctx, models.ItemStatusAvailable, today); err != nil {
		return nil, err
	}
	if stats.RejectedToday, err = s.items.CountModeratedSince(ctx, models.ItemStatusUnavailable, today); err != nil {
		return nil, err
	}

	return stats, nil
}

// ScanListing возвращает подозрительные слова, найденные в тексте
// объявления. Результат рекомендательный.
func (s *ModerationService) ScanListing(title, description string) []string {
	text := strings.ToLower(title + " " + description)

	var found []string
	for _, word := range spamWords {
		if strings.Contains(text, word) {
			found = append(found, word)
		}
	}
	return found
}

func (s *ModerationService) requireAdmin(ctx context.Context, adminID uuid.UUID) error {
	admin, err := s.users.GetByID(ctx, adminID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return apperror.ErrUserNotFound
		}
		return fmt.Errorf("moderation service: %w", err)
	}
	if admin.Role != models.RoleAdmin {
		return apperror.ErrForbidden
	}
	return nil
}
