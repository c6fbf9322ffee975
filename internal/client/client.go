// Package client is the programmatic API client. It owns the session
// lifecycle: it stores the token, attaches it to every outgoing
// request, persists it across runs, and discards it the moment it
// stops being usable.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"fintrack/internal/auth"
	"fintrack/internal/core"
)

// Identity is the user a session acts on behalf of, derived from the
// token claims.
type Identity struct {
	UserID    string
	ExpiresAt time.Time
}

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// ErrNotLoggedIn is returned by authenticated calls when no session is
// active.
var ErrNotLoggedIn = errors.New("not logged in")

// Transaction is the wire representation of a stored transaction.
type Transaction struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	Category    string    `json:"category"`
	Amount      string    `json:"amount"`
	AmountCents int64     `json:"amount_cents"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewTransaction is the payload for creating a transaction.
type NewTransaction struct {
	Type        string `json:"type"`
	Category    string `json:"category"`
	Amount      string `json:"amount"`
	Description string `json:"description,omitempty"`
}

// Client talks to a fintrack server. Safe for concurrent use.
type Client struct {
	baseURL   string
	tokenPath string
	http      *http.Client

	mu       sync.Mutex
	token    string
	identity Identity
	loggedIn bool
}

// New creates a client for the server at baseURL. When tokenPath is
// non-empty a previously persisted token is loaded and decoded; a
// malformed or expired token triggers the same cleanup as Logout so
// the session never starts half-authenticated.
func New(baseURL, tokenPath string) (*Client, error) {
	c := &Client{
		baseURL:   baseURL,
		tokenPath: tokenPath,
		http:      &http.Client{Timeout: 15 * time.Second},
	}

	if tokenPath == "" {
		return c, nil
	}

	raw, err := os.ReadFile(tokenPath)
	if errors.Is(err, os.ErrNotExist) {
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read token file: %w", err)
	}

	if err := c.adoptToken(string(bytes.TrimSpace(raw))); err != nil {
		// Stale or corrupt token: clean up and start logged out.
		c.clearSession()
	}
	return c, nil
}

// adoptToken decodes tok into an identity and activates the session.
func (c *Client) adoptToken(tok string) error {
	userID, expiresAt, err := auth.DecodeIdentity(tok)
	if err != nil {
		return err
	}
	if time.Now().After(expiresAt) {
		return auth.ErrTokenExpired
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = tok
	c.identity = Identity{UserID: userID, ExpiresAt: expiresAt}
	c.loggedIn = true
	return nil
}

// clearSession performs the logout cleanup: token, identity, and the
// persisted file are all discarded.
func (c *Client) clearSession() {
	c.mu.Lock()
	c.token = ""
	c.identity = Identity{}
	c.loggedIn = false
	tokenPath := c.tokenPath
	c.mu.Unlock()

	if tokenPath != "" {
		_ = os.Remove(tokenPath)
	}
}

// Identity returns the current identity and whether a session is
// active.
func (c *Client) Identity() (Identity, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.identity, c.loggedIn
}

// Register creates an account. It does not log in.
func (c *Client) Register(ctx context.Context, email, password string) error {
	return c.doJSON(ctx, http.MethodPost, "/api/auth/register", false,
		map[string]string{"email": email, "password": password}, nil)
}

// Login authenticates and activates the session: the returned token is
// decoded, persisted, and attached to all subsequent requests.
func (c *Client) Login(ctx context.Context, email, password string) error {
	var resp struct {
		Token string `json:"token"`
	}
	err := c.doJSON(ctx, http.MethodPost, "/api/auth/login", false,
		map[string]string{"email": email, "password": password}, &resp)
	if err != nil {
		return err
	}

	if err := c.adoptToken(resp.Token); err != nil {
		return fmt.Errorf("decode login token: %w", err)
	}

	if c.tokenPath != "" {
		if dir := filepath.Dir(c.tokenPath); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0700); err != nil {
				return fmt.Errorf("create token directory: %w", err)
			}
		}
		if err := os.WriteFile(c.tokenPath, []byte(resp.Token), 0600); err != nil {
			return fmt.Errorf("persist token: %w", err)
		}
	}
	return nil
}

// Logout discards the session. Tokens are stateless server-side, so
// this is purely a client cleanup.
func (c *Client) Logout() {
	c.clearSession()
}

// CreateTransaction submits a new transaction owned by the session
// identity.
func (c *Client) CreateTransaction(ctx context.Context, tx NewTransaction) (Transaction, error) {
	var out Transaction
	if err := c.doJSON(ctx, http.MethodPost, "/api/transactions", true, tx, &out); err != nil {
		return Transaction{}, err
	}
	return out, nil
}

// ListTransactions fetches the session identity's transactions, newest
// first.
func (c *Client) ListTransactions(ctx context.Context) ([]Transaction, error) {
	var out []Transaction
	if err := c.doJSON(ctx, http.MethodGet, "/api/transactions", true, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// MonthSummary fetches the transaction list and aggregates it
// locally. A year of zero matches the month in any year.
func (c *Client) MonthSummary(ctx context.Context, month time.Month, year int) (core.Summary, error) {
	list, err := c.ListTransactions(ctx)
	if err != nil {
		return core.Summary{}, err
	}

	txs := make([]core.Transaction, 0, len(list))
	for _, item := range list {
		txs = append(txs, core.Transaction{
			ID:        item.ID,
			Type:      core.TransactionType(item.Type),
			Category:  item.Category,
			Amount:    core.Money{Cents: item.AmountCents},
			CreatedAt: item.CreatedAt,
		})
	}
	return core.Summarize(txs, month, year), nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, authenticated bool, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if authenticated {
		c.mu.Lock()
		token, loggedIn := c.token, c.loggedIn
		c.mu.Unlock()
		if !loggedIn {
			return ErrNotLoggedIn
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		apiErr := &APIError{Status: resp.StatusCode, Message: readErrorMessage(resp.Body)}
		// The server no longer accepts our token; drop the dead
		// session rather than staying half-authenticated.
		if authenticated && resp.StatusCode == http.StatusUnauthorized {
			c.clearSession()
		}
		return apiErr
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func readErrorMessage(body io.Reader) string {
	var resp struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(body).Decode(&resp); err != nil || resp.Error == "" {
		return "request failed"
	}
	return resp.Error
}
