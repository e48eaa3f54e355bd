package accountancy

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	StateCreated     = "created"
	StateApproved    = "approved"
	StateDisapproved = "disapproved"
	StatePayed       = "payed"
	StatePublic      = "public"
	StateOld         = "old"
)

var States = []string{StateCreated, StateApproved, StateDisapproved, StatePayed, StatePublic, StateOld}

const (
	MAX_DESCRIPTION_LENGTH    = 1000
	MAX_PROVIDER_LENGTH       = 255
	MAX_BUSINESS_ID_LENGTH    = 31
	MAX_INVOICE_NUMBER_LENGTH = 63
	MAX_INVOICE_NAME_LENGTH   = 100
	LEDGER_PAGE_SIZE          = 100
)

// Disapproval labels, appended to the "disapproved" notice.
const (
	BySectionManager = "by the section finance manager"
	BySAFManager     = "by the SAF finance manager"
)

// REQUESTS START:
type TransactionRequest struct {
	Amount        decimal.Decimal
	Section       string
	Description   string
	Provider      string
	BusinessID    string
	InvoiceNumber string
}

type PaymentRequest struct {
	DatePayed *time.Time
	AccountID *string
}

// REQUESTS END:

// MODELS:

type Transaction struct {
	ID            string
	CreatedBy     string
	DateCreated   time.Time
	State         string
	Amount        decimal.Decimal
	Section       string
	Description   string
	Invoice       string
	Provider      string
	BusinessID    string
	InvoiceNumber string
}

// Approval exists from the moment approval was requested. TransactionTypeID is the category chosen by the approver.
type Approval struct {
	ID                string
	TransactionID     string
	TransactionTypeID *string
	CreatedBy         *string
}

// Item exists from the moment a transaction was approved and waits for payment.
type Item struct {
	ID            string
	TransactionID string
	ApprovalID    string
	CreatedBy     *string
	DatePayed     *time.Time
	AccountID     *string
}

// Record is a transaction together with its approval and item, when they exist.
type Record struct {
	Transaction
	Approval            *Approval
	Item                *Item
	RequesterName       string
	RequesterEmail      string
	TransactionTypeName string
	AccountName         string
}

type RecordFilter struct {
	States            []string
	Section           string
	TransactionTypeID string
	AccountID         string
	CreatedBy         string
	Search            string
	Ordering          string
	WithApproval      bool
	WithItem          bool
	PayedBefore       *time.Time
	Limit             int
	Offset            int
}

// Orderings accepted by RecordFilter.Ordering. A leading "-" sorts descending.
var Orderings = []string{"date_created", "-date_created", "amount", "-amount", "date_payed", "-date_payed", "id", "-id"}
