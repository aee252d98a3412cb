package repository

import "errors"

// Сентинельные ошибки слоя хранилища. Сервисы переводят их в типизированные
// ошибки apperror перед возвратом наружу.
var (
	ErrUserNotFound         = errors.New("user not found")
	ErrEmailTaken           = errors.New("email already taken")
	ErrItemNotFound         = errors.New("item not found")
	ErrProposalNotFound     = errors.New("proposal not found")
	ErrActiveProposalExists = errors.New("active proposal already exists")
	ErrSettlementNotFound   = errors.New("settlement not found")
	ErrSettlementNotPending = errors.New("settlement is not pending")
	ErrSessionNotFound      = errors.New("session not found")
	ErrMediaNotFound        = errors.New("media file not found")
)
