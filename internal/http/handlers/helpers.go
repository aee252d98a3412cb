package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/rewearhq/rewear-backend/internal/http/middleware"
	"github.com/rewearhq/rewear-backend/internal/logger"
	"github.com/rewearhq/rewear-backend/internal/pkg/apperror"
)

var errUserNotInContext = errors.New("пользователь не найден в контексте")

// currentUserID извлекает userID из контекста.
func currentUserID(c *gin.Context) (uuid.UUID, error) {
	raw, exists := c.Get(middleware.ContextUserIDKey)
	if !exists {
		return uuid.Nil, errUserNotInContext
	}

	userID, ok := raw.(uuid.UUID)
	if !ok {
		return uuid.Nil, errUserNotInContext
	}

	return userID, nil
}

// parseUUIDParam разбирает UUID из параметра пути.
func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "параметр " + name + " должен быть валидным UUID"})
		return uuid.Nil, false
	}
	return id, true
}

// parseIntQuery возвращает целочисленный query-параметр или значение
// по умолчанию.
func parseIntQuery(c *gin.Context, name string, def int) int {
	raw := c.Query(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

// respondError отвечает клиенту по типизированной ошибке. Нетипизированные
// ошибки маскируются как внутренние, их детали остаются в логе.
func respondError(c *gin.Context, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		c.JSON(appErr.HTTPStatus, gin.H{
			"error": appErr.Message,
			"code":  appErr.Code,
		})
		return
	}

	if logger.Log != nil {
		logger.Log.WithFields(logrus.Fields{
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
		}).Errorf("internal error: %v", err)
	}
	c.JSON(http.StatusInternalServerError, gin.H{
		"error": "внутренняя ошибка сервера",
		"code":  apperror.ErrCodeInternal,
	})
}
