package core

import (
	"errors"
	"net/mail"
	"strings"
	"time"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

type (
	TransactionType string

	Money struct {
		Cents int64
	}

	// User is a persisted credential record. PasswordHash never leaves
	// the server.
	User struct {
		ID           string
		Email        string
		PasswordHash string
		CreatedAt    time.Time
	}

	// Transaction is a single income or expense entry owned by a user.
	// Transactions are immutable once created.
	Transaction struct {
		ID          string
		UserID      string
		Type        TransactionType
		Category    string
		Amount      Money
		Description string
		CreatedAt   time.Time
	}
)

// ValidationError marks input problems so the boundary can map them
// to a 400 instead of a generic failure.
type ValidationError string

func (e ValidationError) Error() string { return string(e) }

var (
	ErrInvalidType   = ValidationError("type must be income or expense")
	ErrEmptyCategory = ValidationError("empty category")
	ErrInvalidAmount = ValidationError("invalid amount")
	ErrInvalidEmail  = ValidationError("invalid email")
	ErrShortPassword = ValidationError("password too short (min 8 characters)")
)

// IsValidationError reports whether err (or anything it wraps) is a
// ValidationError.
func IsValidationError(err error) bool {
	var v ValidationError
	return errors.As(err, &v)
}

func (t TransactionType) Validate() error {
	switch t {
	case Income, Expense:
		return nil
	default:
		return ErrInvalidType
	}
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (tx Transaction) Validate() error {
	if err := tx.Type.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(tx.Category) == "" {
		return ErrEmptyCategory
	}
	if len(tx.Category) > 100 {
		return ValidationError("category too long (max 100 characters)")
	}
	if err := tx.Amount.Validate(); err != nil {
		return err
	}
	if len(tx.Description) > 200 {
		return ValidationError("description too long (max 200 characters)")
	}
	return nil
}

// ValidateCredentials checks registration input before any hashing or
// persistence happens.
func ValidateCredentials(email, password string) error {
	if _, err := mail.ParseAddress(strings.TrimSpace(email)); err != nil {
		return ErrInvalidEmail
	}
	if len(password) < 8 {
		return ErrShortPassword
	}
	return nil
}

// NormalizeEmail canonicalizes an email for the unique-index lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
