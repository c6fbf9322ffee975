package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"fintrack/internal/core"
)

type RepositoryTestSuite struct {
	suite.Suite
	repo *SQLiteRepository
	ctx  context.Context
}

func (s *RepositoryTestSuite) SetupTest() {
	repo, err := NewSQLiteRepository(filepath.Join(s.T().TempDir(), "fintrack.db"))
	require.NoError(s.T(), err, "failed to open test database")
	s.repo = repo
	s.ctx = context.Background()
}

func (s *RepositoryTestSuite) TearDownTest() {
	if s.repo != nil {
		s.repo.Close()
	}
}

func (s *RepositoryTestSuite) mustCreateUser(email string) core.User {
	u, err := s.repo.CreateUser(s.ctx, email, "hash")
	require.NoError(s.T(), err)
	return u
}

func (s *RepositoryTestSuite) TestCreateUserAndLookup() {
	u := s.mustCreateUser("Alice@Example.com")
	assert.NotEmpty(s.T(), u.ID)
	assert.Equal(s.T(), "alice@example.com", u.Email, "email should be normalized")

	byEmail, err := s.repo.GetUserByEmail(s.ctx, "  alice@EXAMPLE.com ")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), u.ID, byEmail.ID)

	byID, err := s.repo.GetUser(s.ctx, u.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), u.Email, byID.Email)
}

func (s *RepositoryTestSuite) TestDuplicateEmail() {
	s.mustCreateUser("alice@example.com")

	_, err := s.repo.CreateUser(s.ctx, "ALICE@example.com", "other-hash")
	assert.ErrorIs(s.T(), err, ErrDuplicateEmail)
}

func (s *RepositoryTestSuite) TestUserNotFound() {
	_, err := s.repo.GetUserByEmail(s.ctx, "nobody@example.com")
	assert.ErrorIs(s.T(), err, ErrNotFound)

	_, err = s.repo.GetUser(s.ctx, "missing-id")
	assert.ErrorIs(s.T(), err, ErrNotFound)
}

func (s *RepositoryTestSuite) TestCreateAndListTransactions() {
	u := s.mustCreateUser("alice@example.com")

	base := time.Now().UTC().Truncate(time.Second)
	for i, tc := range []struct {
		typ   core.TransactionType
		cents int64
	}{
		{core.Income, 100000},
		{core.Expense, 30000},
		{core.Expense, 499},
	} {
		_, err := s.repo.CreateTransaction(s.ctx, core.Transaction{
			UserID:    u.ID,
			Type:      tc.typ,
			Category:  "general",
			Amount:    core.Money{Cents: tc.cents},
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(s.T(), err)
	}

	txs, err := s.repo.ListTransactions(s.ctx, u.ID)
	require.NoError(s.T(), err)
	require.Len(s.T(), txs, 3)

	// Newest first.
	assert.Equal(s.T(), int64(499), txs[0].Amount.Cents)
	assert.Equal(s.T(), int64(100000), txs[2].Amount.Cents)
	for i := 1; i < len(txs); i++ {
		assert.False(s.T(), txs[i-1].CreatedAt.Before(txs[i].CreatedAt), "descending order broken at %d", i)
	}
}

func (s *RepositoryTestSuite) TestAmountPreservedExactly() {
	u := s.mustCreateUser("alice@example.com")

	created, err := s.repo.CreateTransaction(s.ctx, core.Transaction{
		UserID:   u.ID,
		Type:     core.Expense,
		Category: "groceries",
		Amount:   core.Money{Cents: 12345},
	})
	require.NoError(s.T(), err)
	assert.NotEmpty(s.T(), created.ID)
	assert.False(s.T(), created.CreatedAt.IsZero())

	txs, err := s.repo.ListTransactions(s.ctx, u.ID)
	require.NoError(s.T(), err)
	require.Len(s.T(), txs, 1)
	assert.Equal(s.T(), created.ID, txs[0].ID)
	assert.Equal(s.T(), int64(12345), txs[0].Amount.Cents)
}

func (s *RepositoryTestSuite) TestOwnershipIsolation() {
	alice := s.mustCreateUser("alice@example.com")
	bob := s.mustCreateUser("bob@example.com")

	_, err := s.repo.CreateTransaction(s.ctx, core.Transaction{
		UserID: alice.ID, Type: core.Income, Category: "salary", Amount: core.Money{Cents: 500000},
	})
	require.NoError(s.T(), err)

	bobTxs, err := s.repo.ListTransactions(s.ctx, bob.ID)
	require.NoError(s.T(), err)
	assert.Empty(s.T(), bobTxs, "bob must never see alice's transactions")

	aliceTxs, err := s.repo.ListTransactions(s.ctx, alice.ID)
	require.NoError(s.T(), err)
	assert.Len(s.T(), aliceTxs, 1)
}

func TestRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(RepositoryTestSuite))
}
