package models

// ItemStatus константы статусов товара
const (
	ItemStatusAvailable   = "available"
	ItemStatusReserved    = "reserved"
	ItemStatusExchanged   = "exchanged"
	ItemStatusUnavailable = "unavailable"
)

// DeliveryMode константы способов передачи товара
const (
	DeliveryModeSwap = "swap"
	DeliveryModeBuy  = "buy"
	DeliveryModeBoth = "both"
)

// ProposalStatus константы статусов предложений обмена
const (
	ProposalStatusPending   = "pending"
	ProposalStatusAccepted  = "accepted"
	ProposalStatusDeclined  = "declined"
	ProposalStatusCompleted = "completed"
)

// SettlementStatus константы статусов расчёта
const (
	SettlementStatusPending   = "pending"
	SettlementStatusConfirmed = "confirmed"
	SettlementStatusFailed    = "failed"
)

// Роли пользователей
const (
	RoleMember = "member"
	RoleAdmin  = "admin"
)

// ValidDeliveryModes список валидных способов передачи
var ValidDeliveryModes = map[string]struct{}{
	DeliveryModeSwap: {},
	DeliveryModeBuy:  {},
	DeliveryModeBoth: {},
}

// ValidCategories список валидных категорий одежды
var ValidCategories = map[string]struct{}{
	"tops":        {},
	"bottoms":     {},
	"dresses":     {},
	"outerwear":   {},
	"shoes":       {},
	"accessories": {},
	"activewear":  {},
	"formal":      {},
}

// ValidSizes список валидных размеров
var ValidSizes = map[string]struct{}{
	"2xs": {},
	"xs":  {},
	"s":   {},
	"m":   {},
	"l":   {},
	"xl":  {},
	"xxl": {},
	"3xl": {},
	"4xl": {},
}

// ValidConditions список валидных состояний вещи
var ValidConditions = map[string]struct{}{
	"new":      {},
	"like_new": {},
	"good":     {},
	"fair":     {},
	"worn":     {},
}

// CanSwap сообщает, допускает ли способ передачи обмен.
func CanSwap(deliveryMode string) bool {
	return deliveryMode == DeliveryModeSwap || deliveryMode == DeliveryModeBoth
}

// CanBuy сообщает, допускает ли способ передачи покупку.
func CanBuy(deliveryMode string) bool {
	return deliveryMode == DeliveryModeBuy || deliveryMode == DeliveryModeBoth
}
