package accountancy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	appErrors "github.com/saf-slovakia/accountancy/customErrors"
	"github.com/saf-slovakia/accountancy/internal/auth"
	"github.com/saf-slovakia/accountancy/internal/contextutil"
	"github.com/saf-slovakia/accountancy/internal/finances"
	"github.com/saf-slovakia/accountancy/internal/notify"
	"github.com/saf-slovakia/accountancy/logging"
)

const DEFAULT_MAX_INVOICE_SIZE = 10 << 20

var (
	ErrInvalidState = appErrors.ErrorResponse{
		Code:    appErrors.ErrConflict,
		Message: "The transaction is not in a state that allows this action.",
	}
	ErrMissingTransactionType = appErrors.ErrorResponse{
		Code:    appErrors.ErrInvalidInput,
		Message: "Assign a transaction type before approving the transaction.",
	}
)

// IsSkippable reports whether err is a lifecycle precondition failure, which bulk actions report instead of aborting on.
func IsSkippable(err error) bool {
	return errors.Is(err, ErrInvalidState) || errors.Is(err, ErrMissingTransactionType)
}

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

type Storage interface {
	SaveTransaction(ctx context.Context, t Transaction) error
	UpdateTransaction(ctx context.Context, t Transaction) error
	SetTransactionState(ctx context.Context, transactionID string, state string) error
	GetRecord(ctx context.Context, transactionID string) (Record, error)
	ListRecords(ctx context.Context, filter RecordFilter) ([]Record, error)
	SaveApproval(ctx context.Context, a Approval) error
	UpdateApproval(ctx context.Context, a Approval) error
	// ApproveTransaction stores the approver, inserts the item and moves the transaction to approved, all or nothing.
	ApproveTransaction(ctx context.Context, a Approval, item Item) error
	// ResubmitTransaction stores the edited transaction and deletes its item, all or nothing.
	// clearType also drops the category of its approval.
	ResubmitTransaction(ctx context.Context, t Transaction, clearType bool) error
	// ReturnToApproval deletes the item and moves the transaction back to created, all or nothing.
	ReturnToApproval(ctx context.Context, transactionID string) error
	// CompletePayment stores the item and moves the transaction to public, all or nothing.
	CompletePayment(ctx context.Context, item Item) error
	UpdateItem(ctx context.Context, item Item) error
	ArchivePaid(ctx context.Context, before time.Time) (int64, error)
	GetTransactionType(ctx context.Context, id string) (finances.TransactionType, error)
	GetAccount(ctx context.Context, id string) (finances.Account, error)
}

type Notifier interface {
	Send(ctx context.Context, msg notify.Message) error
}

type Options struct {
	Sections       finances.Sections
	MediaRoot      string
	MaxInvoiceSize int64
	Now            func() time.Time
}

// Bookkeeper drives transactions through their lifecycle and tells the people involved about it.
type Bookkeeper struct {
	storage        Storage
	notifier       Notifier
	sections       finances.Sections
	mediaRoot      string
	maxInvoiceSize int64
	now            func() time.Time
}

func NewBookkeeper(s Storage, n Notifier, opts Options) *Bookkeeper {
	if opts.MaxInvoiceSize <= 0 {
		opts.MaxInvoiceSize = DEFAULT_MAX_INVOICE_SIZE
	}
	if opts.MediaRoot == "" {
		opts.MediaRoot = "media"
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	return &Bookkeeper{
		storage:        s,
		notifier:       n,
		sections:       opts.Sections,
		mediaRoot:      opts.MediaRoot,
		maxInvoiceSize: opts.MaxInvoiceSize,
		now:            opts.Now,
	}
}

func (b *Bookkeeper) validateTransaction(req TransactionRequest) error {
	if req.Amount.IsZero() {
		return appErrors.ErrorResponse{Code: appErrors.ErrInvalidInput, Message: "Amount cannot be zero."}
	}
	if err := finances.ValidateAmount(req.Amount); err != nil {
		return err
	}
	if !b.sections.Has(req.Section) {
		return appErrors.ErrorResponse{
			Code:    appErrors.ErrInvalidInput,
			Message: fmt.Sprintf("Unknown section: %s", req.Section),
		}
	}
	if strings.TrimSpace(req.Description) == "" {
		return appErrors.ErrorResponse{Code: appErrors.ErrInvalidInput, Message: "Description cannot be empty!"}
	}
	if len(req.Description) > MAX_DESCRIPTION_LENGTH {
		return appErrors.ErrorResponse{
			Code:    appErrors.ErrInvalidInput,
			Message: fmt.Sprintf("Description so long, maximum allowed length is: %d", MAX_DESCRIPTION_LENGTH),
		}
	}
	if len(req.Provider) > MAX_PROVIDER_LENGTH {
		return appErrors.ErrorResponse{
			Code:    appErrors.ErrInvalidInput,
			Message: fmt.Sprintf("Provider so long, maximum allowed length is: %d", MAX_PROVIDER_LENGTH),
		}
	}
	if len(req.BusinessID) > MAX_BUSINESS_ID_LENGTH {
		return appErrors.ErrorResponse{
			Code:    appErrors.ErrInvalidInput,
			Message: fmt.Sprintf("Business ID so long, maximum allowed length is: %d", MAX_BUSINESS_ID_LENGTH),
		}
	}
	if len(req.InvoiceNumber) > MAX_INVOICE_NUMBER_LENGTH {
		return appErrors.ErrorResponse{
			Code:    appErrors.ErrInvalidInput,
			Message: fmt.Sprintf("Invoice number so long, maximum allowed length is: %d", MAX_INVOICE_NUMBER_LENGTH),
		}
	}
	return nil
}

func (b *Bookkeeper) CreateTransaction(ctx context.Context, requester auth.User, req TransactionRequest) (Transaction, error) {
	if err := b.validateTransaction(req); err != nil {
		return Transaction{}, err
	}

	t := Transaction{
		ID:            uuid.New().String(),
		CreatedBy:     requester.ID,
		DateCreated:   b.now(),
		State:         StateCreated,
		Amount:        req.Amount,
		Section:       req.Section,
		Description:   strings.TrimSpace(req.Description),
		Provider:      strings.TrimSpace(req.Provider),
		BusinessID:    strings.TrimSpace(req.BusinessID),
		InvoiceNumber: strings.TrimSpace(req.InvoiceNumber),
	}
	if err := b.storage.SaveTransaction(ctx, t); err != nil {
		return Transaction{}, fmt.Errorf("failed to save transaction: %w", err)
	}

	logging.Logger.Infof("[TraceID=%s] | transaction %s created by %s", contextutil.TraceIDFromContext(ctx), t.ID, requester.UserName)
	return t, nil
}

// UpdateTransaction edits a transaction that is still waiting for approval.
// Editing a disapproved transaction resubmits it and drops the payment item an earlier approval opened.
func (b *Bookkeeper) UpdateTransaction(ctx context.Context, id string, req TransactionRequest) (Transaction, error) {
	if err := b.validateTransaction(req); err != nil {
		return Transaction{}, err
	}
	record, err := b.GetRecord(ctx, id)
	if err != nil {
		return Transaction{}, err
	}
	t := record.Transaction
	if t.State != StateCreated && t.State != StateDisapproved {
		return Transaction{}, fmt.Errorf("cannot edit transaction %s in state %s: %w", id, t.State, ErrInvalidState)
	}

	// A category from another section must not follow the transaction.
	clearType := t.Section != req.Section && record.Approval != nil && record.Approval.TransactionTypeID != nil

	t.Amount = req.Amount
	t.Section = req.Section
	t.Description = strings.TrimSpace(req.Description)
	t.Provider = strings.TrimSpace(req.Provider)
	t.BusinessID = strings.TrimSpace(req.BusinessID)
	t.InvoiceNumber = strings.TrimSpace(req.InvoiceNumber)

	if record.State == StateCreated && !clearType {
		if err := b.storage.UpdateTransaction(ctx, t); err != nil {
			return Transaction{}, fmt.Errorf("failed to update transaction: %w", err)
		}
		return t, nil
	}

	t.State = StateCreated
	if err := b.storage.ResubmitTransaction(ctx, t, clearType); err != nil {
		return Transaction{}, fmt.Errorf("failed to resubmit transaction: %w", err)
	}
	if record.State == StateDisapproved {
		b.logTransition(ctx, id, StateCreated)
	}
	return t, nil
}

// AttachInvoice stores a PDF under MediaRoot/invoices/YYYY/MM and records its relative path.
func (b *Bookkeeper) AttachInvoice(ctx context.Context, id string, filename string, r io.Reader) (Transaction, error) {
	traceID := contextutil.TraceIDFromContext(ctx)

	base := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	if !strings.EqualFold(filepath.Ext(base), ".pdf") {
		return Transaction{}, appErrors.ErrorResponse{
			Code:    appErrors.ErrInvalidInput,
			Message: "Only PDF invoices are accepted.",
		}
	}

	record, err := b.GetRecord(ctx, id)
	if err != nil {
		return Transaction{}, err
	}
	t := record.Transaction
	if t.State == StateOld {
		return Transaction{}, fmt.Errorf("cannot attach invoice to archived transaction %s: %w", id, ErrInvalidState)
	}

	data, err := io.ReadAll(io.LimitReader(r, b.maxInvoiceSize+1))
	if err != nil {
		return Transaction{}, fmt.Errorf("failed to read invoice: %w", err)
	}
	if int64(len(data)) > b.maxInvoiceSize {
		return Transaction{}, appErrors.ErrorResponse{
			Code:    appErrors.ErrInvalidInput,
			Message: fmt.Sprintf("Invoice is too large, maximum size is %d MB.", b.maxInvoiceSize>>20),
		}
	}
	if len(data) == 0 {
		return Transaction{}, appErrors.ErrorResponse{Code: appErrors.ErrInvalidInput, Message: "Invoice file is empty."}
	}

	name := unsafeFileChars.ReplaceAllString(strings.TrimSuffix(base, filepath.Ext(base)), "_")
	if len(name) > MAX_INVOICE_NAME_LENGTH {
		name = name[:MAX_INVOICE_NAME_LENGTH]
	}
	now := b.now()
	relative := path.Join("invoices", now.Format("2006"), now.Format("01"), uuid.New().String()+"_"+name+".pdf")
	full := filepath.Join(b.mediaRoot, filepath.FromSlash(relative))

	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		logging.Logger.Errorf("[TraceID=%s] | failed to create invoice directory in Bookkeeper.AttachInvoice() function | Error: %v", traceID, err)
		return Transaction{}, appErrors.ErrorResponse{Code: appErrors.ErrInternal, Message: "Failed to store the invoice, try again later."}
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		logging.Logger.Errorf("[TraceID=%s] | failed to write invoice in Bookkeeper.AttachInvoice() function | Error: %v", traceID, err)
		return Transaction{}, appErrors.ErrorResponse{Code: appErrors.ErrInternal, Message: "Failed to store the invoice, try again later."}
	}

	t.Invoice = relative
	if err := b.storage.UpdateTransaction(ctx, t); err != nil {
		os.Remove(full)
		return Transaction{}, fmt.Errorf("failed to save invoice path: %w", err)
	}
	return t, nil
}

// InvoicePath returns where the invoice of t lives on disk, empty when it has none.
func (b *Bookkeeper) InvoicePath(t Transaction) string {
	if t.Invoice == "" {
		return ""
	}
	return filepath.Join(b.mediaRoot, filepath.FromSlash(t.Invoice))
}

func (b *Bookkeeper) GetRecord(ctx context.Context, id string) (Record, error) {
	record, err := b.storage.GetRecord(ctx, id)
	if err != nil {
		return Record{}, fmt.Errorf("failed to get transaction: %w", err)
	}
	return record, nil
}

func (b *Bookkeeper) ListRecords(ctx context.Context, filter RecordFilter) ([]Record, error) {
	for _, state := range filter.States {
		if !slices.Contains(States, state) {
			return nil, appErrors.ErrorResponse{
				Code:    appErrors.ErrInvalidInput,
				Message: fmt.Sprintf("Invalid state: %s, allowed states: %s", state, strings.Join(States, ", ")),
			}
		}
	}
	if filter.Ordering != "" && !slices.Contains(Orderings, filter.Ordering) {
		return nil, appErrors.ErrorResponse{
			Code:    appErrors.ErrInvalidInput,
			Message: fmt.Sprintf("Invalid ordering: %s, allowed: %s", filter.Ordering, strings.Join(Orderings, ", ")),
		}
	}
	if filter.Section != "" && !b.sections.Has(filter.Section) {
		return nil, appErrors.ErrorResponse{
			Code:    appErrors.ErrInvalidInput,
			Message: fmt.Sprintf("Unknown section: %s", filter.Section),
		}
	}
	if filter.Limit < 0 || filter.Offset < 0 {
		return nil, appErrors.ErrorResponse{Code: appErrors.ErrInvalidInput, Message: "Limit and offset cannot be negative."}
	}

	records, err := b.storage.ListRecords(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to get transactions: %w", err)
	}
	return records, nil
}

// PublicLedger lists public transactions, most recently paid first. Pages start at 1.
func (b *Bookkeeper) PublicLedger(ctx context.Context, page int) ([]Record, error) {
	if page < 1 {
		page = 1
	}
	return b.ListRecords(ctx, RecordFilter{
		States:   []string{StatePublic},
		Ordering: "-date_payed",
		Limit:    LEDGER_PAGE_SIZE,
		Offset:   (page - 1) * LEDGER_PAGE_SIZE,
	})
}

func (b *Bookkeeper) Sections() finances.Sections {
	return b.sections
}
