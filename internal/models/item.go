package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/lib/pq"
)

// Item описывает вещь, выставленную на обмен или продажу.
//
// Жизненный цикл статуса монотонный: available -> reserved -> exchanged.
// Модерация переключает available <-> unavailable, из exchanged выхода нет.
type Item struct {
	ID           uuid.UUID      `db:"id" json:"id"`
	OwnerID      uuid.UUID      `db:"owner_id" json:"owner_id"`
	Title        string         `db:"title" json:"title"`
	Description  *string        `db:"description" json:"description,omitempty"`
	Category     string         `db:"category" json:"category"`
	Size         string         `db:"size" json:"size"`
	Condition    string         `db:"condition" json:"condition"`
	Brand        *string        `db:"brand" json:"brand,omitempty"`
	Color        *string        `db:"color" json:"color,omitempty"`
	Tags         pq.StringArray `db:"tags" json:"tags,omitempty"`
	ImageURLs    pq.StringArray `db:"image_urls" json:"image_urls,omitempty"`
	PointsValue  int            `db:"points_value" json:"points_value"`
	Price        *int           `db:"price" json:"price,omitempty"`
	DeliveryMode string         `db:"delivery_mode" json:"delivery_mode"`
	Status       string         `db:"status" json:"status"`
	ViewsCount   int            `db:"views_count" json:"views_count"`
	ModeratedAt  *time.Time     `db:"moderated_at" json:"moderated_at,omitempty"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updated_at"`
}

// ItemFilter задаёт параметры отбора каталога.
type ItemFilter struct {
	Search    string
	Category  string
	Size      string
	Condition string
	Status    string
	Limit     int
	Offset    int
}
