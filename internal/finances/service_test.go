package finances

import (
	"context"
	"testing"

	appErrors "github.com/saf-slovakia/accountancy/customErrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Mocks
type mockStorage struct {
	accounts map[string]Account
	types    map[string]TransactionType
	extras   map[string]ExtraExpense
	approved []ApprovedAmount
	inUse    map[string]bool
}

func newMockStorage() *mockStorage {
	return &mockStorage{
		accounts: make(map[string]Account),
		types:    make(map[string]TransactionType),
		extras:   make(map[string]ExtraExpense),
		inUse:    make(map[string]bool),
	}
}

func notFound() error {
	return appErrors.ErrorResponse{Code: appErrors.ErrNotFound, Message: "not found"}
}

func (m *mockStorage) SaveAccount(ctx context.Context, account Account) error {
	m.accounts[account.ID] = account
	return nil
}

func (m *mockStorage) UpdateAccount(ctx context.Context, account Account) error {
	m.accounts[account.ID] = account
	return nil
}

func (m *mockStorage) GetAccount(ctx context.Context, id string) (Account, error) {
	account, ok := m.accounts[id]
	if !ok {
		return Account{}, notFound()
	}
	return account, nil
}

func (m *mockStorage) ListAccounts(ctx context.Context, search string) ([]Account, error) {
	var result []Account
	for _, account := range m.accounts {
		result = append(result, account)
	}
	return result, nil
}

func (m *mockStorage) SaveTransactionType(ctx context.Context, t TransactionType) error {
	m.types[t.ID] = t
	return nil
}

func (m *mockStorage) UpdateTransactionType(ctx context.Context, t TransactionType) error {
	m.types[t.ID] = t
	return nil
}

func (m *mockStorage) GetTransactionType(ctx context.Context, id string) (TransactionType, error) {
	t, ok := m.types[id]
	if !ok {
		return TransactionType{}, notFound()
	}
	return t, nil
}

func (m *mockStorage) IsTransactionTypeInUse(ctx context.Context, id string) (bool, error) {
	return m.inUse[id], nil
}

func (m *mockStorage) ListTransactionTypes(ctx context.Context, filter TypeFilter) ([]TransactionType, error) {
	var result []TransactionType
	for _, t := range m.types {
		if filter.Section != "" && t.Section != filter.Section {
			continue
		}
		result = append(result, t)
	}
	return result, nil
}

func (m *mockStorage) SaveExtraExpense(ctx context.Context, e ExtraExpense) error {
	m.extras[e.ID] = e
	return nil
}

func (m *mockStorage) UpdateExtraExpense(ctx context.Context, e ExtraExpense) error {
	m.extras[e.ID] = e
	return nil
}

func (m *mockStorage) GetExtraExpense(ctx context.Context, id string) (ExtraExpense, error) {
	e, ok := m.extras[id]
	if !ok {
		return ExtraExpense{}, notFound()
	}
	return e, nil
}

func (m *mockStorage) ListExtraExpenses(ctx context.Context, filter ExtraExpenseFilter) ([]ExtraExpense, error) {
	var result []ExtraExpense
	for _, e := range m.extras {
		result = append(result, e)
	}
	return result, nil
}

func (m *mockStorage) ListApprovedAmounts(ctx context.Context) ([]ApprovedAmount, error) {
	return m.approved, nil
}

// Tests

func TestSaveAccount(t *testing.T) {
	svc := NewService(newMockStorage(), testSections())
	ctx := context.Background()

	tests := []struct {
		name        string
		input       AccountRequest
		expectedMsg string
	}{
		{
			name:        "Fail - Empty name",
			input:       AccountRequest{Name: " ", IBAN: "SK3112000000198742637541"},
			expectedMsg: "Account name cannot be empty!",
		},
		{
			name:        "Fail - Invalid IBAN",
			input:       AccountRequest{Name: "Main", IBAN: "not-an-iban"},
			expectedMsg: "Invalid IBAN format, example valid IBAN: SK3112000000198742637541",
		},
		{
			name:        "Fail - Three decimals",
			input:       AccountRequest{Name: "Main", IBAN: "SK3112000000198742637541", Balance: dec("1.005")},
			expectedMsg: "Amount can have at most 2 decimal places.",
		},
		{
			name:  "Success - IBAN with spaces",
			input: AccountRequest{Name: "Main", IBAN: "sk31 1200 0000 1987 4263 7541", Balance: dec("1200.50")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			account, err := svc.SaveAccount(ctx, tt.input)
			if tt.expectedMsg != "" {
				require.Error(t, err)
				assert.Equal(t, appErrors.ErrInvalidInput, appErrors.CodeOf(err))
				assert.Equal(t, tt.expectedMsg, appErrors.MessageOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "SK3112000000198742637541", account.IBAN)
			assert.NotEmpty(t, account.ID)
		})
	}
}

func TestSaveTransactionType(t *testing.T) {
	svc := NewService(newMockStorage(), testSections())
	ctx := context.Background()

	tests := []struct {
		name     string
		input    TransactionTypeRequest
		wantCode string
	}{
		{
			name:     "Fail - Unknown section",
			input:    TransactionTypeRequest{Section: "rugby", Name: "Balls"},
			wantCode: appErrors.ErrInvalidInput,
		},
		{
			name:     "Fail - Negative budget",
			input:    TransactionTypeRequest{Section: "saf", Name: "Office", Budget: decPtr("-1")},
			wantCode: appErrors.ErrInvalidInput,
		},
		{
			name:     "Fail - Budget over the column limit",
			input:    TransactionTypeRequest{Section: "saf", Name: "Office", Budget: decPtr("1000000")},
			wantCode: appErrors.ErrInvalidInput,
		},
		{
			name:  "Success - Without budget",
			input: TransactionTypeRequest{Section: "discgolf", Name: "Baskets"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.SaveTransactionType(ctx, tt.input)
			if tt.wantCode != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantCode, appErrors.CodeOf(err))
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestUpdateTransactionTypeSection(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		inUse    bool
		input    TransactionTypeRequest
		wantCode string
	}{
		{
			name:  "Success - Unused type moves to another section",
			input: TransactionTypeRequest{Section: "saf", Name: "Discs"},
		},
		{
			name:     "Fail - Used type cannot move to another section",
			inUse:    true,
			input:    TransactionTypeRequest{Section: "saf", Name: "Discs"},
			wantCode: appErrors.ErrConflict,
		},
		{
			name:  "Success - Used type keeps its section",
			inUse: true,
			input: TransactionTypeRequest{Section: "ultimate", Name: "Flying discs", Budget: decPtr("500")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMockStorage()
			store.types["t-ult"] = TransactionType{ID: "t-ult", Section: "ultimate", Name: "Discs"}
			store.inUse["t-ult"] = tt.inUse
			svc := NewService(store, testSections())

			updated, err := svc.UpdateTransactionType(ctx, "t-ult", tt.input)
			if tt.wantCode != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantCode, appErrors.CodeOf(err))
				assert.Equal(t, "ultimate", store.types["t-ult"].Section)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.input.Section, updated.Section)
			assert.Equal(t, tt.input.Section, store.types["t-ult"].Section)
		})
	}
}

func TestSaveExtraExpense(t *testing.T) {
	store := newMockStorage()
	store.types["t-ult"] = TransactionType{ID: "t-ult", Section: "ultimate", Name: "Discs"}
	svc := NewService(store, testSections())
	ctx := context.Background()

	tests := []struct {
		name     string
		input    ExtraExpenseRequest
		wantCode string
	}{
		{
			name:     "Fail - Unknown state",
			input:    ExtraExpenseRequest{Amount: dec("10"), State: "lost", Section: "ultimate", TransactionTypeID: "t-ult"},
			wantCode: appErrors.ErrInvalidInput,
		},
		{
			name:     "Fail - Type from another section",
			input:    ExtraExpenseRequest{Amount: dec("10"), State: ExtraPayed, Section: "saf", TransactionTypeID: "t-ult"},
			wantCode: appErrors.ErrInvalidInput,
		},
		{
			name:     "Fail - Missing type",
			input:    ExtraExpenseRequest{Amount: dec("10"), State: ExtraPayed, Section: "ultimate", TransactionTypeID: "nope"},
			wantCode: appErrors.ErrNotFound,
		},
		{
			name:     "Fail - Zero amount",
			input:    ExtraExpenseRequest{Amount: dec("0"), State: ExtraPayed, Section: "ultimate", TransactionTypeID: "t-ult"},
			wantCode: appErrors.ErrInvalidInput,
		},
		{
			name:  "Success",
			input: ExtraExpenseRequest{Amount: dec("25.00"), State: ExtraBorrowed, Section: "ultimate", TransactionTypeID: "t-ult", Purpose: "tournament fee"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := svc.SaveExtraExpense(ctx, tt.input)
			if tt.wantCode != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantCode, appErrors.CodeOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "Discs", e.TransactionType)
		})
	}
}

func TestUpdateExtraExpenseChangesBalance(t *testing.T) {
	store := newMockStorage()
	store.types["t-1"] = TransactionType{ID: "t-1", Section: "saf", Name: "Office"}
	svc := NewService(store, testSections())
	ctx := context.Background()

	e, err := svc.SaveExtraExpense(ctx, ExtraExpenseRequest{Amount: dec("30"), State: ExtraAllocated, Section: "saf", TransactionTypeID: "t-1"})
	require.NoError(t, err)

	report, err := svc.Balance(ctx)
	require.NoError(t, err)
	assert.True(t, report[0].Actual.IsZero())

	_, err = svc.UpdateExtraExpense(ctx, e.ID, ExtraExpenseRequest{Amount: dec("30"), State: ExtraPayed, Section: "saf", TransactionTypeID: "t-1"})
	require.NoError(t, err)

	report, err = svc.Balance(ctx)
	require.NoError(t, err)
	assert.True(t, dec("30").Equal(report[0].Actual))
}

func TestParseSections(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected Sections
		wantErr  bool
	}{
		{
			name:     "defaults",
			input:    DefaultSections,
			expected: Sections{{"saf", "SAF"}, {"ultimate", "Ultimate"}, {"discgolf", "Discgolf"}},
		},
		{
			name:     "label falls back to code",
			input:    " Rugby , saf:SAF",
			expected: Sections{{"rugby", "rugby"}, {"saf", "SAF"}},
		},
		{name: "duplicate", input: "saf:A,SAF:B", wantErr: true},
		{name: "empty", input: " , ", wantErr: true},
		{name: "missing code", input: ":Label", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sections, err := ParseSections(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, sections)
		})
	}
}
