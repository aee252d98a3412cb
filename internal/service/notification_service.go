package service

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/rewearhq/rewear-backend/internal/logger"
	"github.com/rewearhq/rewear-backend/internal/models"
)

// NotificationRepository описывает хранилище уведомлений.
type NotificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Notification, error)
	CountUnread(ctx context.Context, userID uuid.UUID) (int, error)
	MarkAsRead(ctx context.Context, id, userID uuid.UUID) error
	MarkAllAsRead(ctx context.Context, userID uuid.UUID) error
}

// Pusher доставляет событие онлайн-подключениям пользователя.
type Pusher interface {
	Push(userID uuid.UUID, event string, data any) error
}

// NotificationService сохраняет уведомления и доставляет их через
// WebSocket. Ошибки доставки и записи только логируются: уведомления
// никогда не влияют на исход бизнес-операции.
type NotificationService struct {
	repo   NotificationRepository
	pusher Pusher
}

// NewNotificationService создаёт сервис уведомлений.
func NewNotificationService(repo NotificationRepository, pusher Pusher) *NotificationService {
	return &NotificationService{repo: repo, pusher: pusher}
}

// ProposalCreated уведомляет владельца вещи о новом предложении.
func (s *NotificationService) ProposalCreated(ctx context.Context, p *models.ExchangeProposal) {
	title := "Новое предложение покупки"
	if p.IsSwap() {
		title = "Новое предложение обмена"
	}
	s.deliver(ctx, p.OwnerID, models.NotificationProposalCreated, title,
		"На вашу вещь поступило предложение", map[string]any{
			"proposal_id": p.ID,
			"item_id":     p.RequestedItemID,
		})
}

// ProposalDecided уведомляет инициатора о решении владельца.
func (s *NotificationService) ProposalDecided(ctx context.Context, p *models.ExchangeProposal) {
	event := models.NotificationProposalDeclined
	title := "Предложение отклонено"
	body := "Владелец отклонил ваше предложение"
	if p.Status == models.ProposalStatusAccepted {
		event = models.NotificationProposalAccepted
		title = "Предложение принято"
		body = "Владелец принял ваше предложение, можно переходить к расчёту"
	}
	s.deliver(ctx, p.RequesterID, event, title, body, map[string]any{
		"proposal_id": p.ID,
		"item_id":     p.RequestedItemID,
	})
}

// SettlementConfirmed уведомляет обе стороны о завершённом расчёте.
func (s *NotificationService) SettlementConfirmed(ctx context.Context, p *models.ExchangeProposal, settlement *models.Settlement) {
	data := map[string]any{
		"proposal_id":   p.ID,
		"settlement_id": settlement.ID,
	}
	s.deliver(ctx, p.RequesterID, models.NotificationSettlementConfirmed,
		"Расчёт завершён", "Обмен подтверждён, вещь отправляется вам", data)
	s.deliver(ctx, p.OwnerID, models.NotificationSettlementConfirmed,
		"Расчёт завершён", "Ваша вещь обменяна, подготовьте её к передаче", data)
}

// ItemModerated уведомляет владельца о решении модератора.
func (s *NotificationService) ItemModerated(ctx context.Context, item *models.Item) {
	title := "Объявление снято с публикации"
	body := "Модератор снял ваше объявление с каталога"
	if item.Status == models.ItemStatusAvailable {
		title = "Объявление одобрено"
		body = "Ваше объявление прошло модерацию и опубликовано"
	}
	s.deliver(ctx, item.OwnerID, models.NotificationItemModerated, title, body, map[string]any{
		"item_id": item.ID,
		"status":  item.Status,
	})
}

// List возвращает уведомления пользователя.
func (s *NotificationService) List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.repo.ListByUser(ctx, userID, limit, offset)
}

// CountUnread возвращает количество непрочитанных уведомлений.
func (s *NotificationService) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.repo.CountUnread(ctx, userID)
}

// MarkAsRead помечает уведомление прочитанным.
func (s *NotificationService) MarkAsRead(ctx context.Context, id, userID uuid.UUID) error {
	return s.repo.MarkAsRead(ctx, id, userID)
}

// MarkAllAsRead помечает все уведомления пользователя прочитанными.
func (s *NotificationService) MarkAllAsRead(ctx context.Context, userID uuid.UUID) error {
	return s.repo.MarkAllAsRead(ctx, userID)
}

func (s *NotificationService) deliver(ctx context.Context, userID uuid.UUID, event, title, body string, data map[string]any) {
	raw, err := json.Marshal(data)
	if err != nil {
		s.logWarn("не удалось сериализовать данные уведомления: %v", err)
		return
	}

	n := &models.Notification{
		UserID:  userID,
		Type:    event,
		Title:   title,
		Message: body,
		Data:    raw,
	}
	if err := s.repo.Create(ctx, n); err != nil {
		s.logWarn("не удалось сохранить уведомление: %v", err)
	}

	if s.pusher != nil {
		if err := s.pusher.Push(userID, event, n); err != nil {
			s.logWarn("не удалось отправить уведомление: %v", err)
		}
	}
}

func (s *NotificationService) logWarn(format string, args ...any) {
	if logger.Log != nil {
		logger.Log.Warnf("notification service: "+format, args...)
	}
}
