package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"fintrack/internal/core"
	authmw "fintrack/internal/middleware/auth"
)

// amountField accepts both JSON numbers and decimal strings so the
// amount survives the wire without float rounding.
type amountField string

func (a *amountField) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = amountField(s)
		return nil
	}
	*a = amountField(b)
	return nil
}

type createTransactionRequest struct {
	Type        string      `json:"type"`
	Category    string      `json:"category"`
	Amount      amountField `json:"amount"`
	Description string      `json:"description"`
}

type transactionResponse struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	Category    string    `json:"category"`
	Amount      string    `json:"amount"`
	AmountCents int64     `json:"amount_cents"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type summaryResponse struct {
	Month       int      `json:"month"`
	Year        int      `json:"year,omitempty"`
	Income      string   `json:"income"`
	Expense     string   `json:"expense"`
	NetSavings  string   `json:"net_savings"`
	ChartSeries [2]int64 `json:"chart_series"`
}

func toTransactionResponse(tx core.Transaction) transactionResponse {
	return transactionResponse{
		ID:          tx.ID,
		Type:        string(tx.Type),
		Category:    tx.Category,
		Amount:      tx.Amount.String(),
		AmountCents: tx.Amount.Cents,
		Description: tx.Description,
		CreatedAt:   tx.CreatedAt,
	}
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req createTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	cents, err := core.ParseDecimalToCents(string(req.Amount))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	tx := core.Transaction{
		Type:        core.TransactionType(strings.TrimSpace(req.Type)),
		Category:    strings.TrimSpace(req.Category),
		Amount:      core.Money{Cents: cents},
		Description: strings.TrimSpace(req.Description),
	}

	stored, err := s.txs.Create(r.Context(), authmw.UserID(r.Context()), tx)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toTransactionResponse(stored))
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := s.txs.List(r.Context(), authmw.UserID(r.Context()))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	out := make([]transactionResponse, 0, len(txs))
	for _, tx := range txs {
		out = append(out, toTransactionResponse(tx))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleMonthSummary(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC()
	month := int(now.Month())
	// Without an explicit year the filter is scoped to the current one,
	// so January entries from last year never leak into this January.
	year := now.Year()

	if v := strings.TrimSpace(r.URL.Query().Get("month")); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil || m < 1 || m > 12 {
			writeError(w, http.StatusBadRequest, "month must be between 1 and 12")
			return
		}
		month = m
	}
	if v := strings.TrimSpace(r.URL.Query().Get("year")); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil || y < 1 {
			writeError(w, http.StatusBadRequest, "invalid year")
			return
		}
		year = y
	}

	sum, err := s.txs.MonthSummary(r.Context(), authmw.UserID(r.Context()), time.Month(month), year)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, summaryResponse{
		Month:       sum.Month,
		Year:        sum.Year,
		Income:      core.Money{Cents: sum.IncomeCents}.String(),
		Expense:     core.Money{Cents: sum.ExpenseCents}.String(),
		NetSavings:  core.Money{Cents: sum.NetCents}.String(),
		ChartSeries: sum.ChartSeries,
	})
}
