package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorCode string

const (
	ErrCodeNotFound           ErrorCode = "NOT_FOUND"
	ErrCodeUnauthorized       ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden          ErrorCode = "FORBIDDEN"
	ErrCodeValidation         ErrorCode = "VALIDATION_ERROR"
	ErrCodeIneligibleProposal ErrorCode = "INELIGIBLE_PROPOSAL"
	ErrCodeDuplicateProposal  ErrorCode = "DUPLICATE_PROPOSAL"
	ErrCodeInvalidState       ErrorCode = "INVALID_STATE"
	ErrCodePaymentFailed      ErrorCode = "PAYMENT_FAILED"
	ErrCodeInternal           ErrorCode = "INTERNAL_ERROR"
)

// AppError типизированная ошибка бизнес-логики с HTTP статусом.
type AppError struct {
	Code       ErrorCode
	Message    string
	HTTPStatus int
	Cause      error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
	}
}

func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
		Cause:      err,
	}
}

func codeToHTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeForbidden:
		return http.StatusForbidden
	case ErrCodeValidation:
		return http.StatusBadRequest
	case ErrCodeIneligibleProposal:
		return http.StatusUnprocessableEntity
	case ErrCodeDuplicateProposal, ErrCodeInvalidState:
		return http.StatusConflict
	case ErrCodePaymentFailed:
		return http.StatusPaymentRequired
	default:
		return http.StatusInternalServerError
	}
}

// CodeOf возвращает код ошибки, либо ErrCodeInternal для нетипизированных.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeInternal
}

func IsNotFound(err error) bool {
	return CodeOf(err) == ErrCodeNotFound
}

func IsForbidden(err error) bool {
	return CodeOf(err) == ErrCodeForbidden
}

func IsIneligibleProposal(err error) bool {
	return CodeOf(err) == ErrCodeIneligibleProposal
}

func IsDuplicateProposal(err error) bool {
	return CodeOf(err) == ErrCodeDuplicateProposal
}

func IsInvalidState(err error) bool {
	return CodeOf(err) == ErrCodeInvalidState
}

func IsPaymentFailed(err error) bool {
	return CodeOf(err) == ErrCodePaymentFailed
}

var (
	ErrItemNotFound       = New(ErrCodeNotFound, "вещь не найдена")
	ErrProposalNotFound   = New(ErrCodeNotFound, "предложение не найдено")
	ErrSettlementNotFound = New(ErrCodeNotFound, "расчёт не найден")
	ErrUserNotFound       = New(ErrCodeNotFound, "пользователь не найден")
	ErrUnauthorized       = New(ErrCodeUnauthorized, "требуется авторизация")
	ErrForbidden          = New(ErrCodeForbidden, "недостаточно прав")
	ErrInvalidCredentials = New(ErrCodeUnauthorized, "неверные учетные данные")
)
