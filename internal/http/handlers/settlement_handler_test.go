package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestSettlementHandler_Reserve_Unauthorized(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := &SettlementHandler{settlements: nil}
	r.POST("/settlements/reserve", handler.Reserve)

	req, _ := http.NewRequest("POST", "/settlements/reserve", strings.NewReader(`{"proposal_id":"x"}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSettlementHandler_Reserve_InvalidProposalID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	userID := uuid.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", userID)
		c.Next()
	})
	handler := &SettlementHandler{settlements: nil}
	r.POST("/settlements/reserve", handler.Reserve)

	req, _ := http.NewRequest("POST", "/settlements/reserve", strings.NewReader(`{"proposal_id":"не-uuid"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSettlementHandler_Commit_InvalidSettlementID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	userID := uuid.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", userID)
		c.Next()
	})
	handler := &SettlementHandler{settlements: nil}
	r.POST("/settlements/:id/commit", handler.Commit)

	req, _ := http.NewRequest("POST", "/settlements/invalid-uuid/commit", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSettlementHandler_Abandon_Unauthorized(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := &SettlementHandler{settlements: nil}
	r.POST("/settlements/:id/abandon", handler.Abandon)

	settlementID := uuid.New()
	req, _ := http.NewRequest("POST", "/settlements/"+settlementID.String()+"/abandon", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
