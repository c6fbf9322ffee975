package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/auth"
	"fintrack/internal/services"
	"fintrack/internal/storage"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "fintrack.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	tokens := auth.NewTokenService("test-secret-0123456789", time.Hour)
	srv := NewServer(":0", repo, services.NewTransactionService(repo), tokens,
		Options{LoginRatePerMinute: 1000})
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv
}

func do(t *testing.T, srv *Server, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(buf)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), "body: %s", rr.Body.String())
	return v
}

func registerAndLogin(t *testing.T, srv *Server, email string) string {
	t.Helper()
	creds := map[string]string{"email": email, "password": "password1234"}

	rr := do(t, srv, http.MethodPost, "/api/auth/register", "", creds)
	require.Equal(t, http.StatusCreated, rr.Code, "register: %s", rr.Body.String())

	rr = do(t, srv, http.MethodPost, "/api/auth/login", "", creds)
	require.Equal(t, http.StatusOK, rr.Code, "login: %s", rr.Body.String())
	return decode[loginResponse](t, rr).Token
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t)
	for _, path := range []string{"/healthz", "/readyz"} {
		rr := do(t, srv, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusOK, rr.Code, path)
	}
}

func TestRegisterValidation(t *testing.T) {
	srv := newTestServer(t)

	cases := []map[string]string{
		{"email": "", "password": "password1234"},
		{"email": "not-an-email", "password": "password1234"},
		{"email": "a@example.com", "password": "short"},
	}
	for i, body := range cases {
		rr := do(t, srv, http.MethodPost, "/api/auth/register", "", body)
		assert.Equal(t, http.StatusBadRequest, rr.Code, "case %d: %s", i, rr.Body.String())
		assert.NotEmpty(t, decode[errorResponse](t, rr).Error, "case %d", i)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	srv := newTestServer(t)
	creds := map[string]string{"email": "a@example.com", "password": "password1234"}

	rr := do(t, srv, http.MethodPost, "/api/auth/register", "", creds)
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = do(t, srv, http.MethodPost, "/api/auth/register", "", creds)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "email already registered", decode[errorResponse](t, rr).Error)
}

func TestLoginIssuesVerifiableToken(t *testing.T) {
	srv := newTestServer(t)

	rr := do(t, srv, http.MethodPost, "/api/auth/register", "",
		map[string]string{"email": "a@example.com", "password": "password1234"})
	require.Equal(t, http.StatusCreated, rr.Code)
	registered := decode[registerResponse](t, rr)

	rr = do(t, srv, http.MethodPost, "/api/auth/login", "",
		map[string]string{"email": "a@example.com", "password": "password1234"})
	require.Equal(t, http.StatusOK, rr.Code)
	token := decode[loginResponse](t, rr).Token

	userID, err := srv.tokens.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, registered.ID, userID, "token must map back to the same identity")
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	srv := newTestServer(t)
	do(t, srv, http.MethodPost, "/api/auth/register", "",
		map[string]string{"email": "a@example.com", "password": "password1234"})

	rr := do(t, srv, http.MethodPost, "/api/auth/login", "",
		map[string]string{"email": "a@example.com", "password": "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = do(t, srv, http.MethodPost, "/api/auth/login", "",
		map[string]string{"email": "nobody@example.com", "password": "password1234"})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "invalid credentials", decode[errorResponse](t, rr).Error)
}

func TestTransactionsRequireAuth(t *testing.T) {
	srv := newTestServer(t)

	// No Authorization header: an error, never an empty list.
	rr := do(t, srv, http.MethodGet, "/api/transactions", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "unauthenticated", decode[errorResponse](t, rr).Error)

	rr = do(t, srv, http.MethodGet, "/api/transactions", "not-a-real-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "invalid token", decode[errorResponse](t, rr).Error)

	rr = do(t, srv, http.MethodPost, "/api/transactions", "",
		map[string]any{"type": "expense", "category": "food", "amount": "1.00"})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestExpiredTokenRejected(t *testing.T) {
	srv := newTestServer(t)
	registerAndLogin(t, srv, "a@example.com")

	expired := auth.NewTokenService("test-secret-0123456789", -time.Minute)
	rr := do(t, srv, http.MethodGet, "/api/transactions", mustIssue(t, expired, "someone"), nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func mustIssue(t *testing.T, svc *auth.TokenService, userID string) string {
	t.Helper()
	tok, err := svc.Issue(userID)
	require.NoError(t, err)
	return tok
}

func TestCreateAndListTransaction(t *testing.T) {
	srv := newTestServer(t)
	token := registerAndLogin(t, srv, "a@example.com")

	rr := do(t, srv, http.MethodPost, "/api/transactions", token, map[string]any{
		"type":        "expense",
		"category":    "groceries",
		"amount":      "12.34",
		"description": "weekly shop",
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	created := decode[transactionResponse](t, rr)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "12.34", created.Amount)
	assert.Equal(t, int64(1234), created.AmountCents)
	assert.False(t, created.CreatedAt.IsZero())

	rr = do(t, srv, http.MethodGet, "/api/transactions", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	list := decode[[]transactionResponse](t, rr)
	require.Len(t, list, 1, "created record appears exactly once")
	assert.Equal(t, created.ID, list[0].ID)
	assert.Equal(t, "12.34", list[0].Amount, "amount preserved exactly")
}

func TestCreateTransactionAcceptsNumericAmount(t *testing.T) {
	srv := newTestServer(t)
	token := registerAndLogin(t, srv, "a@example.com")

	rr := do(t, srv, http.MethodPost, "/api/transactions", token, map[string]any{
		"type": "income", "category": "salary", "amount": 1000.50,
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.Equal(t, int64(100050), decode[transactionResponse](t, rr).AmountCents)
}

func TestCreateTransactionValidation(t *testing.T) {
	srv := newTestServer(t)
	token := registerAndLogin(t, srv, "a@example.com")

	cases := []map[string]any{
		{"type": "expense", "category": "food", "amount": "0"},
		{"type": "expense", "category": "food", "amount": "-5"},
		{"type": "expense", "category": "", "amount": "5.00"},
		{"type": "", "category": "food", "amount": "5.00"},
		{"type": "transfer", "category": "food", "amount": "5.00"},
		{"type": "expense", "category": "food"},
	}
	for i, body := range cases {
		rr := do(t, srv, http.MethodPost, "/api/transactions", token, body)
		assert.Equal(t, http.StatusBadRequest, rr.Code, "case %d: %s", i, rr.Body.String())
	}

	// Nothing was persisted by the rejected requests.
	rr := do(t, srv, http.MethodGet, "/api/transactions", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, decode[[]transactionResponse](t, rr))
}

func TestTransactionOwnershipIsolation(t *testing.T) {
	srv := newTestServer(t)
	aliceToken := registerAndLogin(t, srv, "alice@example.com")
	bobToken := registerAndLogin(t, srv, "bob@example.com")

	rr := do(t, srv, http.MethodPost, "/api/transactions", aliceToken, map[string]any{
		"type": "income", "category": "salary", "amount": "5000.00",
	})
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = do(t, srv, http.MethodGet, "/api/transactions", bobToken, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, decode[[]transactionResponse](t, rr), "bob must not see alice's transactions")

	rr = do(t, srv, http.MethodGet, "/api/transactions", aliceToken, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode[[]transactionResponse](t, rr), 1)
}

func TestListOrderedNewestFirst(t *testing.T) {
	srv := newTestServer(t)
	token := registerAndLogin(t, srv, "a@example.com")

	for _, amount := range []string{"1.00", "2.00", "3.00"} {
		rr := do(t, srv, http.MethodPost, "/api/transactions", token, map[string]any{
			"type": "expense", "category": "misc", "amount": amount,
		})
		require.Equal(t, http.StatusCreated, rr.Code)
		time.Sleep(5 * time.Millisecond) // distinct created_at
	}

	rr := do(t, srv, http.MethodGet, "/api/transactions", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	list := decode[[]transactionResponse](t, rr)
	require.Len(t, list, 3)
	for i := 1; i < len(list); i++ {
		assert.False(t, list[i-1].CreatedAt.Before(list[i].CreatedAt), "order broken at %d", i)
	}
}

func TestMonthSummaryScenario(t *testing.T) {
	srv := newTestServer(t)
	token := registerAndLogin(t, srv, "a@example.com")

	for _, body := range []map[string]any{
		{"type": "income", "category": "salary", "amount": "1000"},
		{"type": "expense", "category": "rent", "amount": "300"},
	} {
		rr := do(t, srv, http.MethodPost, "/api/transactions", token, body)
		require.Equal(t, http.StatusCreated, rr.Code)
	}

	month := int(time.Now().UTC().Month())
	rr := do(t, srv, http.MethodGet, fmt.Sprintf("/api/transactions/summary?month=%d", month), token, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	sum := decode[summaryResponse](t, rr)
	assert.Equal(t, time.Now().UTC().Year(), sum.Year)
	assert.Equal(t, "1000.00", sum.Income)
	assert.Equal(t, "300.00", sum.Expense)
	assert.Equal(t, "700.00", sum.NetSavings)
	assert.Equal(t, [2]int64{100000, 30000}, sum.ChartSeries)
}

func TestMonthSummaryRejectsBadMonth(t *testing.T) {
	srv := newTestServer(t)
	token := registerAndLogin(t, srv, "a@example.com")

	for _, q := range []string{"month=0", "month=13", "month=abc", "year=-1"} {
		rr := do(t, srv, http.MethodGet, "/api/transactions/summary?"+q, token, nil)
		assert.Equal(t, http.StatusBadRequest, rr.Code, q)
	}
}

func TestAuthRateLimit(t *testing.T) {
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "fintrack.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	tokens := auth.NewTokenService("test-secret-0123456789", time.Hour)
	srv := NewServer(":0", repo, services.NewTransactionService(repo), tokens,
		Options{LoginRatePerMinute: 2})
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	body := map[string]string{"email": "a@example.com", "password": "wrong-password"}
	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rr := do(t, srv, http.MethodPost, "/api/auth/login", "", body)
		codes = append(codes, rr.Code)
	}
	assert.Equal(t, http.StatusTooManyRequests, codes[2], "third attempt should be limited: %v", codes)
}
