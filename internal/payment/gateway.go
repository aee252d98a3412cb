package payment

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrCaptureDeclined возвращается, когда внешняя платёжная сторона
// отклонила списание.
var ErrCaptureDeclined = errors.New("payment capture declined")

// Card содержит реквизиты карты для разового списания.
type Card struct {
	Number     string `json:"card_number"`
	Expiry     string `json:"expiry"` // MM/YY
	CVV        string `json:"cvv"`
	HolderName string `json:"holder_name"`
}

// Gateway описывает внешнюю платёжную сторону. Списание непрозрачно для
// ядра: либо успех, либо отказ с причиной.
type Gateway interface {
	Capture(ctx context.Context, amountRupees int, card Card) error
}

// SimulatedGateway локальная реализация платёжного шлюза: проверяет
// реквизиты карты и детерминированно одобряет либо отклоняет списание.
// Карта с номером DeclineCardNumber всегда отклоняется.
type SimulatedGateway struct{}

// DeclineCardNumber тестовый номер карты, по которому шлюз отвечает отказом.
const DeclineCardNumber = "4000000000000002"

func NewSimulatedGateway() *SimulatedGateway {
	return &SimulatedGateway{}
}

// Capture имитирует списание средств.
func (g *SimulatedGateway) Capture(ctx context.Context, amountRupees int, card Card) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if amountRupees <= 0 {
		return fmt.Errorf("payment: сумма списания должна быть положительной")
	}

	number := strings.ReplaceAll(card.Number, " ", "")
	if len(number) != 16 || !isDigits(number) {
		return fmt.Errorf("%w: некорректный номер карты", ErrCaptureDeclined)
	}
	if len(card.CVV) != 3 || !isDigits(card.CVV) {
		return fmt.Errorf("%w: некорректный CVV", ErrCaptureDeclined)
	}
	if err := checkExpiry(card.Expiry); err != nil {
		return fmt.Errorf("%w: %v", ErrCaptureDeclined, err)
	}
	if number == DeclineCardNumber {
		return fmt.Errorf("%w: отказ эмитента", ErrCaptureDeclined)
	}

	return nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

func checkExpiry(expiry string) error {
	parts := strings.Split(expiry, "/")
	if len(parts) != 2 {
		return fmt.Errorf("некорректный срок действия")
	}

	month, err := strconv.Atoi(parts[0])
	if err != nil || month < 1 || month > 12 {
		return fmt.Errorf("некорректный месяц срока действия")
	}

	year, err := strconv.Atoi(parts[1])
	if err != nil {
		return fmt.Errorf("некорректный год срока действия")
	}
	year += 2000

	now := time.Now()
	if year < now.Year() || (year == now.Year() && month < int(now.Month())) {
		return fmt.Errorf("срок действия карты истёк")
	}

	return nil
}
