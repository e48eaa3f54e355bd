package finances

import (
	"github.com/shopspring/decimal"
)

const (
	ExtraAllocated = "allocated"
	ExtraBorrowed  = "borrowed"
	ExtraStored    = "stored"
	ExtraPayed     = "payed"
	ExtraArchived  = "archived"
)

var ExtraExpenseStates = []string{ExtraAllocated, ExtraBorrowed, ExtraStored, ExtraPayed, ExtraArchived}

const (
	MAX_ACCOUNT_NAME_LENGTH = 63
	MAX_IBAN_LENGTH         = 31
	MAX_TYPE_NAME_LENGTH    = 63
	MAX_PURPOSE_LENGTH      = 1000
)

// MaxAmount mirrors DECIMAL(8,2).
var MaxAmount = decimal.NewFromInt(1_000_000)

// REQUESTS START:
type AccountRequest struct {
	Name    string
	IBAN    string
	Balance decimal.Decimal
}

type TransactionTypeRequest struct {
	Section string
	Name    string
	Budget  *decimal.Decimal
}

type ExtraExpenseRequest struct {
	Amount            decimal.Decimal
	State             string
	Section           string
	TransactionTypeID string
	Purpose           string
}

// REQUESTS END:

// MODELS:

type Account struct {
	ID      string
	Name    string
	IBAN    string
	Balance decimal.Decimal
}

type TransactionType struct {
	ID      string
	Section string
	Name    string
	Budget  *decimal.Decimal
}

type ExtraExpense struct {
	ID                string
	Amount            decimal.Decimal
	State             string
	Section           string
	TransactionTypeID string
	TransactionType   string
	Purpose           string
}

// ApprovedAmount is one approval that has a transaction type, with the state of its transaction.
type ApprovedAmount struct {
	TransactionTypeID string
	TransactionState  string
	Amount            decimal.Decimal
}

type TypeFilter struct {
	Section string
	Search  string
}

type ExtraExpenseFilter struct {
	Section string
	State   string
	Search  string
}

// RESPONSES:

type BalanceRow struct {
	TransactionTypeID string
	Name              string
	Actual            decimal.Decimal
	Budget            *decimal.Decimal
}

type SectionBalance struct {
	Section string
	Label   string
	Rows    []BalanceRow
	Actual  decimal.Decimal
	Budget  decimal.Decimal
}
