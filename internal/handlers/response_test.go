package handlers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/piyingxi/shadowplay-backend/internal/services"
)

func TestRespondServiceError_MapsSentinels(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		err        error
		wantStatus int
	}{
		{fmt.Errorf("bad input: %w", services.ErrValidation), http.StatusBadRequest},
		{fmt.Errorf("no session: %w", services.ErrUnauthorized), http.StatusUnauthorized},
		{fmt.Errorf("admins only: %w", services.ErrForbidden), http.StatusForbidden},
		{fmt.Errorf("missing: %w", services.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("duplicate: %w", services.ErrConflict), http.StatusConflict},
		{fmt.Errorf("broken pipe"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		RespondServiceError(c, tc.err)
		if w.Code != tc.wantStatus {
			t.Fatalf("RespondServiceError(%v) = %d, want %d", tc.err, w.Code, tc.wantStatus)
		}
	}
}
