package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"todo-manager/backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestHandleServiceErrorStatusMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", fmt.Errorf("bad title: %w", services.ErrValidation), http.StatusBadRequest, "validation_failed"},
		{"forbidden", services.ErrForbidden, http.StatusForbidden, "forbidden"},
		{"not found", services.ErrNotFound, http.StatusNotFound, "not_found"},
		// Exhausted ordering retries come back as a server failure.
		{"conflict", fmt.Errorf("bulk update: %w", services.ErrConflict), http.StatusInternalServerError, "conflict"},
		{"unmapped", errors.New("disk on fire"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			handleServiceError(c, tc.err)

			assert.Equal(t, tc.status, w.Code)
			assert.Contains(t, w.Body.String(), tc.code)
		})
	}
}
