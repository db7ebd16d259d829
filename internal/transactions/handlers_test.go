package transactions

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(store Store) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewHandler(store)
	v1 := r.Group("/v1")
	h.RegisterRoutes(v1)
	h.RegisterProtectedRoutes(v1)
	return r
}

func TestIngest_DefaultsAndEcho(t *testing.T) {
	store := NewMemoryStore()
	router := newTestRouter(store)

	body := `{
		"occurred_at": "2026-03-14T03:00:00Z",
		"amount": 250.0,
		"merchant_name": "TechWorld",
		"merchant_category": "electronics",
		"is_online": true
	}`

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/transactions", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		Transaction Transaction `json:"transaction"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	tx := resp.Transaction
	assert.NotEmpty(t, tx.ID)
	assert.Equal(t, "EUR", tx.Currency)
	assert.Equal(t, "card", tx.Channel)
	assert.True(t, tx.IsOnline)

	// The transaction is persisted, not just echoed.
	stored, err := store.GetByID(req.Context(), tx.ID)
	require.NoError(t, err)
	assert.Equal(t, 250.0, stored.Amount)
}

func TestIngest_ValidationErrors(t *testing.T) {
	router := newTestRouter(NewMemoryStore())

	tests := []struct {
		name string
		body string
	}{
		{"missing occurred_at", `{"amount": 10, "merchant_name": "A", "merchant_category": "b"}`},
		{"zero amount", `{"occurred_at": "2026-03-14T03:00:00Z", "amount": 0, "merchant_name": "A", "merchant_category": "b"}`},
		{"negative amount", `{"occurred_at": "2026-03-14T03:00:00Z", "amount": -5, "merchant_name": "A", "merchant_category": "b"}`},
		{"missing merchant", `{"occurred_at": "2026-03-14T03:00:00Z", "amount": 10, "merchant_category": "b"}`},
		{"malformed json", `{`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/v1/transactions", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), "invalid_request")
		})
	}
}

func TestGet_NotFound(t *testing.T) {
	router := newTestRouter(NewMemoryStore())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/transactions/nope", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "not_found")
}
