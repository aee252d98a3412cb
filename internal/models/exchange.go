package models

import (
	"time"

	"github.com/google/uuid"
)

// ExchangeProposal описывает предложение обмена или покупки вещи.
//
// Для обмена заполнен OfferedItemID и PointsDifferential:
// положительная разница означает, что инициатор доплачивает,
// отрицательная — что доплату получает он. Для покупки OfferedItemID
// пуст, а MonetaryAmount равен цене вещи.
type ExchangeProposal struct {
	ID                 uuid.UUID  `db:"id" json:"id"`
	RequestedItemID    uuid.UUID  `db:"requested_item_id" json:"requested_item_id"`
	OfferedItemID      *uuid.UUID `db:"offered_item_id" json:"offered_item_id,omitempty"`
	RequesterID        uuid.UUID  `db:"requester_id" json:"requester_id"`
	OwnerID            uuid.UUID  `db:"owner_id" json:"owner_id"`
	PointsDifferential int        `db:"points_differential" json:"points_differential"`
	MonetaryAmount     int        `db:"monetary_amount" json:"monetary_amount"`
	Message            *string    `db:"message" json:"message,omitempty"`
	Status             string     `db:"status" json:"status"`
	CreatedAt          time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at" json:"updated_at"`
	CompletedAt        *time.Time `db:"completed_at" json:"completed_at,omitempty"`
}

// IsSwap сообщает, является ли предложение обменом (а не покупкой).
func (p *ExchangeProposal) IsSwap() bool {
	return p.OfferedItemID != nil
}
