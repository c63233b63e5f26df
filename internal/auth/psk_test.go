package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func TestPSKMiddleware(t *testing.T) {
	tests := []struct {
		name           string
		method         string
		authorization  string
		bypass         bool
		expectedStatus int
	}{
		{
			name:           "read passes without key",
			method:         http.MethodGet,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "write without key",
			method:         http.MethodPost,
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "write with wrong key",
			method:         http.MethodPost,
			authorization:  "PSK wrong",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "write with wrong scheme",
			method:         http.MethodDelete,
			authorization:  "Bearer sekrit",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "write with correct key",
			method:         http.MethodPut,
			authorization:  "PSK sekrit",
			expectedStatus: http.StatusOK,
		},
		{
			name:           "bypass skips the check",
			method:         http.MethodPost,
			bypass:         true,
			expectedStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(tt.method, "/", nil)
			if tt.authorization != "" {
				req.Header.Set(echo.HeaderAuthorization, tt.authorization)
			}
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			mw := NewPSKMiddleware("sekrit", tt.bypass)
			handler := mw(func(c echo.Context) error {
				return c.NoContent(http.StatusOK)
			})

			err := handler(c)
			if tt.expectedStatus == http.StatusUnauthorized {
				assert.ErrorIs(t, err, echo.ErrUnauthorized)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.expectedStatus, rec.Code)
			}
		})
	}
}

func TestRequirePSKGuardsReads(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/links", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	mw := RequirePSK("sekrit", false)
	handler := mw(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	assert.ErrorIs(t, handler(c), echo.ErrUnauthorized)

	req.Header.Set(echo.HeaderAuthorization, "PSK sekrit")
	assert.NoError(t, handler(c))
}
