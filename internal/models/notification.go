package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Типы уведомлений
const (
	NotificationProposalCreated     = "proposal_created"
	NotificationProposalAccepted    = "proposal_accepted"
	NotificationProposalDeclined    = "proposal_declined"
	NotificationSettlementConfirmed = "settlement_confirmed"
	NotificationItemModerated       = "item_moderated"
)

// Notification описывает уведомление пользователя.
type Notification struct {
	ID        uuid.UUID       `db:"id" json:"id"`
	UserID    uuid.UUID       `db:"user_id" json:"user_id"`
	Type      string          `db:"type" json:"type"`
	Title     string          `db:"title" json:"title"`
	Message   string          `db:"message" json:"message"`
	Data      json.RawMessage `db:"data" json:"data,omitempty"`
	IsRead    bool            `db:"is_read" json:"is_read"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}
