package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Константы валидации
const (
	MinUsernameLength    = 3
	MaxUsernameLength    = 30
	MinFullNameLength    = 2
	MaxFullNameLength    = 100
	MinItemTitleLength   = 3
	MaxItemTitleLength   = 200
	MaxDescriptionLength = 5000
	MaxBrandLength       = 100
	MaxColorLength       = 50
	MaxTagLength         = 50
	MaxTagsCount         = 20
	MaxBioLength         = 1000
	MaxLocationLength    = 100
	MaxAddressLength     = 1000
	MinPointsValue       = 1
	MaxPointsValue       = 100000
	MaxPrice             = 10000000
	MaxMessageLength     = 2000
)

var emailRegexp = regexp.MustCompile(`^[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}$`)

// ValidateLength проверяет длину строки в рунах.
func ValidateLength(fieldName, value string, min, max int) error {
	length := utf8.RuneCountInString(value)
	if min > 0 && length < min {
		return fmt.Errorf("%s должен быть не менее %d символов", fieldName, min)
	}
	if max > 0 && length > max {
		return fmt.Errorf("%s должен быть не более %d символов", fieldName, max)
	}
	return nil
}

// ValidateEmail проверяет формат email.
func ValidateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("email обязателен")
	}

	email = strings.ToLower(strings.TrimSpace(email))
	if !emailRegexp.MatchString(email) {
		return fmt.Errorf("некорректный формат email")
	}
	return nil
}

// ValidateItemTitle проверяет заголовок объявления.
func ValidateItemTitle(title string) error {
	return ValidateLength("заголовок", strings.TrimSpace(title), MinItemTitleLength, MaxItemTitleLength)
}

// ValidatePointsValue проверяет оценку вещи в баллах.
func ValidatePointsValue(points int) error {
	if points < MinPointsValue {
		return fmt.Errorf("оценка в баллах должна быть не менее %d", MinPointsValue)
	}
	if points > MaxPointsValue {
		return fmt.Errorf("оценка в баллах должна быть не более %d", MaxPointsValue)
	}
	return nil
}

// ValidatePrice проверяет цену вещи в рупиях.
func ValidatePrice(price int) error {
	if price < 0 {
		return fmt.Errorf("цена не может быть отрицательной")
	}
	if price > MaxPrice {
		return fmt.Errorf("цена должна быть не более %d", MaxPrice)
	}
	return nil
}

// ValidateTags проверяет список тегов.
func ValidateTags(tags []string) error {
	if len(tags) > MaxTagsCount {
		return fmt.Errorf("допускается не более %d тегов", MaxTagsCount)
	}
	for _, tag := range tags {
		if err := ValidateLength("тег", tag, 1, MaxTagLength); err != nil {
			return err
		}
	}
	return nil
}

// ValidateDeliveryAddress проверяет адрес доставки.
func ValidateDeliveryAddress(address string) error {
	return ValidateLength("адрес доставки", strings.TrimSpace(address), 10, MaxAddressLength)
}
