package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateEmail(t *testing.T) {
	assert.NoError(t, ValidateEmail("priya@example.com"))
	assert.NoError(t, ValidateEmail("  Priya@Example.COM  "))
	assert.Error(t, ValidateEmail(""))
	assert.Error(t, ValidateEmail("не-email"))
	assert.Error(t, ValidateEmail("a@b"))
}

func TestValidatePassword(t *testing.T) {
	assert.NoError(t, ValidatePassword("Qwerty123"))
	assert.Error(t, ValidatePassword("short1A"))
	assert.Error(t, ValidatePassword("alllower123"))
	assert.Error(t, ValidatePassword("ALLUPPER123"))
	assert.Error(t, ValidatePassword("NoDigitsHere"))
}

func TestValidateItemTitle(t *testing.T) {
	assert.NoError(t, ValidateItemTitle("Джинсовая куртка"))
	assert.Error(t, ValidateItemTitle("ab"))
	assert.Error(t, ValidateItemTitle("  a  "))
}

func TestValidatePointsValue(t *testing.T) {
	assert.NoError(t, ValidatePointsValue(1))
	assert.NoError(t, ValidatePointsValue(100000))
	assert.Error(t, ValidatePointsValue(0))
	assert.Error(t, ValidatePointsValue(100001))
}

func TestValidatePrice(t *testing.T) {
	assert.NoError(t, ValidatePrice(0))
	assert.Error(t, ValidatePrice(-1))
	assert.Error(t, ValidatePrice(10000001))
}

func TestValidateTags(t *testing.T) {
	assert.NoError(t, ValidateTags([]string{"винтаж", "лето"}))
	assert.Error(t, ValidateTags(make([]string, 21)))
}

func TestValidateDeliveryAddress(t *testing.T) {
	assert.NoError(t, ValidateDeliveryAddress("Мумбаи, Линкинг-роуд, 14, кв. 7"))
	assert.Error(t, ValidateDeliveryAddress("кор."))
}
