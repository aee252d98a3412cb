package models

import (
	"time"

	"github.com/google/uuid"
)

// Settlement описывает расчёт по принятому предложению: сбор адреса
// доставки, оплату и финальное закрепление обмена.
//
// Запись создаётся на фазе резервирования и живёт ограниченное время:
// незавершённый расчёт освобождается по таймауту, чтобы вещь не
// оставалась заблокированной для других покупателей.
type Settlement struct {
	ID              uuid.UUID `db:"id" json:"id"`
	ProposalID      uuid.UUID `db:"proposal_id" json:"proposal_id"`
	DeliveryAddress *string   `db:"delivery_address" json:"delivery_address,omitempty"`
	AmountDue       int       `db:"amount_due" json:"amount_due"`
	Status          string    `db:"status" json:"status"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}
