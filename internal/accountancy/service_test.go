package accountancy_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	appErrors "github.com/saf-slovakia/accountancy/customErrors"
	"github.com/saf-slovakia/accountancy/internal/accountancy"
	"github.com/saf-slovakia/accountancy/internal/auth"
	"github.com/saf-slovakia/accountancy/internal/finances"
	"github.com/saf-slovakia/accountancy/internal/notify"
	"github.com/saf-slovakia/accountancy/internal/storage"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	messages []notify.Message
	err      error
}

func (n *recordingNotifier) Send(ctx context.Context, msg notify.Message) error {
	if n.err != nil {
		return n.err
	}
	n.messages = append(n.messages, msg)
	return nil
}

func (n *recordingNotifier) reset() {
	n.messages = nil
}

type fixture struct {
	ctx       context.Context
	store     *storage.InMemoryStorage
	notifier  *recordingNotifier
	books     *accountancy.Bookkeeper
	finances  *finances.Service
	requester auth.User
	approver  auth.User
	typeID    string
	media     string
	now       time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	sections, err := finances.ParseSections(finances.DefaultSections)
	require.NoError(t, err)

	f := &fixture{
		ctx:       ctx,
		store:     storage.NewInMemoryStorage(),
		notifier:  &recordingNotifier{},
		requester: auth.User{ID: "u-req", UserName: "john", FullName: "John Doe", Email: "john@example.com"},
		approver:  auth.User{ID: "u-fm", UserName: "mary", FullName: "Mary Manager", Email: "mary@example.com"},
		media:     t.TempDir(),
		now:       time.Date(2024, 6, 15, 10, 30, 0, 0, time.UTC),
	}
	require.NoError(t, f.store.SaveUser(ctx, f.requester))
	require.NoError(t, f.store.SaveUser(ctx, f.approver))

	f.finances = finances.NewService(f.store, sections)
	discs, err := f.finances.SaveTransactionType(ctx, finances.TransactionTypeRequest{Section: "ultimate", Name: "Discs"})
	require.NoError(t, err)
	f.typeID = discs.ID

	f.books = accountancy.NewBookkeeper(f.store, f.notifier, accountancy.Options{
		Sections:       sections,
		MediaRoot:      f.media,
		MaxInvoiceSize: 1024,
		Now:            func() time.Time { return f.now },
	})
	return f
}

func (f *fixture) create(t *testing.T, amount string, section string) accountancy.Transaction {
	t.Helper()
	tr, err := f.books.CreateTransaction(f.ctx, f.requester, accountancy.TransactionRequest{
		Amount:      decimal.RequireFromString(amount),
		Section:     section,
		Description: "Discs for the national team",
		Provider:    "Disc Shop s.r.o.",
	})
	require.NoError(t, err)
	return tr
}

// requested creates a transaction with a categorised approval, ready to approve.
func (f *fixture) requested(t *testing.T) accountancy.Transaction {
	t.Helper()
	tr := f.create(t, "100.00", "ultimate")
	require.NoError(t, f.books.SendReminder(f.ctx, tr.ID))
	_, err := f.books.AssignTransactionType(f.ctx, f.approver, tr.ID, f.typeID)
	require.NoError(t, err)
	f.notifier.reset()
	return tr
}

func (f *fixture) approved(t *testing.T) accountancy.Transaction {
	t.Helper()
	tr := f.requested(t)
	require.NoError(t, f.books.Approve(f.ctx, f.approver, tr.ID))
	f.notifier.reset()
	return tr
}

func (f *fixture) record(t *testing.T, id string) accountancy.Record {
	t.Helper()
	record, err := f.books.GetRecord(f.ctx, id)
	require.NoError(t, err)
	return record
}

func (f *fixture) ultimateActual(t *testing.T) decimal.Decimal {
	t.Helper()
	report, err := f.finances.Balance(f.ctx)
	require.NoError(t, err)
	for _, section := range report {
		if section.Section == "ultimate" {
			return section.Actual
		}
	}
	t.Fatal("ultimate section missing from the balance")
	return decimal.Zero
}

func TestApprovePayFlow(t *testing.T) {
	f := newFixture(t)
	tr := f.create(t, "100.00", "ultimate")
	assert.Equal(t, accountancy.StateCreated, tr.State)

	require.NoError(t, f.books.SendReminder(f.ctx, tr.ID))
	require.Len(t, f.notifier.messages, 1)
	assert.Equal(t, notify.ToRole(notify.RoleUltimate), f.notifier.messages[0].To)
	assert.Equal(t, notify.TemplateReminder, f.notifier.messages[0].Template)

	_, err := f.books.AssignTransactionType(f.ctx, f.approver, tr.ID, f.typeID)
	require.NoError(t, err)
	f.notifier.reset()

	require.NoError(t, f.books.Approve(f.ctx, f.approver, tr.ID))
	record := f.record(t, tr.ID)
	assert.Equal(t, accountancy.StateApproved, record.State)
	require.NotNil(t, record.Approval)
	require.NotNil(t, record.Item)
	assert.Equal(t, f.approver.ID, *record.Approval.CreatedBy)
	assert.Equal(t, record.Approval.ID, record.Item.ApprovalID)

	require.Len(t, f.notifier.messages, 2)
	assert.Equal(t, notify.ToRole(notify.RoleSAF), f.notifier.messages[0].To)
	assert.Equal(t, notify.To("john@example.com"), f.notifier.messages[1].To)
	assert.Equal(t, notify.TemplateChangeState, f.notifier.messages[1].Template)

	before := f.ultimateActual(t)
	f.notifier.reset()

	require.NoError(t, f.books.Pay(f.ctx, f.approver, tr.ID))
	record = f.record(t, tr.ID)
	assert.Equal(t, accountancy.StatePublic, record.State)
	require.NotNil(t, record.Item.DatePayed)
	assert.Equal(t, "2024-06-15", record.Item.DatePayed.Format("2006-01-02"))
	assert.True(t, before.Add(decimal.NewFromInt(100)).Equal(f.ultimateActual(t)))

	require.Len(t, f.notifier.messages, 2)
	assert.Equal(t, notify.To("john@example.com"), f.notifier.messages[0].To)
	assert.Equal(t, "paid", f.notifier.messages[0].Context.Model)
	assert.Equal(t, notify.ToRole(notify.RoleAccountant), f.notifier.messages[1].To)
	assert.Equal(t, notify.TemplateSendInvoice, f.notifier.messages[1].Template)
	assert.Equal(t, "Discs", f.notifier.messages[1].Context.T.TypeName)
	assert.Empty(t, f.notifier.messages[1].Attachment)

	ledger, err := f.books.PublicLedger(f.ctx, 1)
	require.NoError(t, err)
	require.Len(t, ledger, 1)
	assert.Equal(t, tr.ID, ledger[0].ID)
}

func TestApproveOnlyFromCreated(t *testing.T) {
	for _, state := range []string{
		accountancy.StateApproved,
		accountancy.StateDisapproved,
		accountancy.StatePayed,
		accountancy.StatePublic,
		accountancy.StateOld,
	} {
		t.Run(state, func(t *testing.T) {
			f := newFixture(t)
			tr := f.requested(t)
			require.NoError(t, f.store.SetTransactionState(f.ctx, tr.ID, state))

			err := f.books.Approve(f.ctx, f.approver, tr.ID)
			require.Error(t, err)
			assert.True(t, errors.Is(err, accountancy.ErrInvalidState))
			assert.True(t, accountancy.IsSkippable(err))

			record := f.record(t, tr.ID)
			assert.Equal(t, state, record.State)
			assert.Nil(t, record.Item)
			assert.Empty(t, f.notifier.messages)
		})
	}
}

func TestApproveWithoutTransactionType(t *testing.T) {
	tests := []struct {
		name    string
		request bool
	}{
		{name: "approval never requested", request: false},
		{name: "approval without category", request: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			tr := f.create(t, "20.00", "discgolf")
			if tt.request {
				require.NoError(t, f.books.SendReminder(f.ctx, tr.ID))
				f.notifier.reset()
			}

			err := f.books.Approve(f.ctx, f.approver, tr.ID)
			require.Error(t, err)
			assert.True(t, errors.Is(err, accountancy.ErrMissingTransactionType))
			assert.True(t, accountancy.IsSkippable(err))

			record := f.record(t, tr.ID)
			assert.Equal(t, accountancy.StateCreated, record.State)
			assert.Nil(t, record.Item)
			assert.Empty(t, f.notifier.messages)
		})
	}
}

func TestDisapproveFromAnyState(t *testing.T) {
	for _, state := range accountancy.States {
		t.Run(state, func(t *testing.T) {
			f := newFixture(t)
			tr := f.requested(t)
			require.NoError(t, f.store.SetTransactionState(f.ctx, tr.ID, state))

			require.NoError(t, f.books.Disapprove(f.ctx, tr.ID, accountancy.BySAFManager))

			assert.Equal(t, accountancy.StateDisapproved, f.record(t, tr.ID).State)
			require.Len(t, f.notifier.messages, 1)
			msg := f.notifier.messages[0]
			assert.Equal(t, notify.To("john@example.com"), msg.To)
			assert.Equal(t, "disapproved by the SAF finance manager", msg.Context.Model)
		})
	}
}

func TestReturnToApprovalRoundTrip(t *testing.T) {
	f := newFixture(t)
	tr := f.approved(t)
	firstItem := f.record(t, tr.ID).Item

	require.NoError(t, f.books.ReturnToApproval(f.ctx, tr.ID))
	record := f.record(t, tr.ID)
	assert.Equal(t, accountancy.StateCreated, record.State)
	assert.Nil(t, record.Item)
	require.NotNil(t, record.Approval)
	require.Len(t, f.notifier.messages, 1)
	assert.Equal(t, notify.ToRole(notify.RoleUltimate), f.notifier.messages[0].To)

	require.NoError(t, f.books.Approve(f.ctx, f.approver, tr.ID))
	record = f.record(t, tr.ID)
	assert.Equal(t, accountancy.StateApproved, record.State)
	require.NotNil(t, record.Item)
	assert.NotEqual(t, firstItem.ID, record.Item.ID)

	items, err := f.books.ListRecords(f.ctx, accountancy.RecordFilter{WithItem: true})
	require.NoError(t, err)
	assert.Len(t, items, 1)

	err = f.books.ReturnToApproval(f.ctx, f.create(t, "1", "saf").ID)
	assert.True(t, errors.Is(err, accountancy.ErrInvalidState))
}

func TestSendReminderIsIdempotent(t *testing.T) {
	f := newFixture(t)
	tr := f.create(t, "15.00", "saf")

	require.NoError(t, f.books.SendReminder(f.ctx, tr.ID))
	first := f.record(t, tr.ID).Approval
	require.NoError(t, f.books.SendReminder(f.ctx, tr.ID))
	second := f.record(t, tr.ID).Approval

	require.NotNil(t, first)
	assert.Equal(t, first.ID, second.ID)
	require.Len(t, f.notifier.messages, 2)
	assert.Equal(t, notify.ToRole(notify.RoleSAF), f.notifier.messages[1].To)
}

func TestSectionRole(t *testing.T) {
	assert.Equal(t, notify.RoleUltimate, accountancy.SectionRole("ultimate"))
	assert.Equal(t, notify.RoleDiscgolf, accountancy.SectionRole("discgolf"))
	assert.Equal(t, notify.RoleSAF, accountancy.SectionRole("saf"))
	assert.Equal(t, notify.RoleSAF, accountancy.SectionRole("anything"))
}

func TestAssignTransactionTypeFromOtherSection(t *testing.T) {
	f := newFixture(t)
	tr := f.create(t, "10", "saf")

	_, err := f.books.AssignTransactionType(f.ctx, f.approver, tr.ID, f.typeID)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidInput, appErrors.CodeOf(err))

	_, err = f.books.AssignTransactionType(f.ctx, f.approver, tr.ID, "missing")
	assert.Equal(t, appErrors.ErrNotFound, appErrors.CodeOf(err))
}

func TestPayRequiresApproved(t *testing.T) {
	f := newFixture(t)
	tr := f.requested(t)

	err := f.books.Pay(f.ctx, f.approver, tr.ID)
	assert.True(t, errors.Is(err, accountancy.ErrInvalidState))
	assert.Equal(t, accountancy.StateCreated, f.record(t, tr.ID).State)
}

func TestPaySendsInvoiceAttachment(t *testing.T) {
	f := newFixture(t)
	tr := f.approved(t)
	_, err := f.books.AttachInvoice(f.ctx, tr.ID, "faktura.PDF", strings.NewReader("%PDF-1.4"))
	require.NoError(t, err)

	require.NoError(t, f.books.Pay(f.ctx, f.approver, tr.ID))

	require.Len(t, f.notifier.messages, 2)
	attachment := f.notifier.messages[1].Attachment
	require.NotEmpty(t, attachment)
	assert.True(t, strings.HasPrefix(attachment, f.media))
	assert.FileExists(t, attachment)
}

func TestVisibilityToggle(t *testing.T) {
	f := newFixture(t)
	tr := f.approved(t)

	err := f.books.MakePrivate(f.ctx, tr.ID)
	assert.True(t, errors.Is(err, accountancy.ErrInvalidState))

	require.NoError(t, f.books.Pay(f.ctx, f.approver, tr.ID))
	f.notifier.reset()
	paid := f.ultimateActual(t)

	require.NoError(t, f.books.MakePrivate(f.ctx, tr.ID))
	assert.Equal(t, accountancy.StatePayed, f.record(t, tr.ID).State)
	ledger, err := f.books.PublicLedger(f.ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, ledger)
	assert.True(t, paid.Equal(f.ultimateActual(t)))

	require.NoError(t, f.books.MakePublic(f.ctx, tr.ID))
	require.NoError(t, f.books.MakePublic(f.ctx, tr.ID))
	assert.Equal(t, accountancy.StatePublic, f.record(t, tr.ID).State)
	assert.Empty(t, f.notifier.messages)
}

func TestCreateTransactionValidation(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name  string
		input accountancy.TransactionRequest
	}{
		{name: "zero amount", input: accountancy.TransactionRequest{Amount: decimal.Zero, Section: "saf", Description: "x"}},
		{name: "amount too large", input: accountancy.TransactionRequest{Amount: decimal.NewFromInt(1_000_000), Section: "saf", Description: "x"}},
		{name: "three decimals", input: accountancy.TransactionRequest{Amount: decimal.RequireFromString("1.001"), Section: "saf", Description: "x"}},
		{name: "unknown section", input: accountancy.TransactionRequest{Amount: decimal.NewFromInt(1), Section: "rugby", Description: "x"}},
		{name: "empty description", input: accountancy.TransactionRequest{Amount: decimal.NewFromInt(1), Section: "saf", Description: "  "}},
		{name: "long business id", input: accountancy.TransactionRequest{Amount: decimal.NewFromInt(1), Section: "saf", Description: "x", BusinessID: strings.Repeat("1", 32)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.books.CreateTransaction(f.ctx, f.requester, tt.input)
			require.Error(t, err)
			assert.Equal(t, appErrors.ErrInvalidInput, appErrors.CodeOf(err))
		})
	}
}

func TestUpdateTransactionResubmitsDisapproved(t *testing.T) {
	f := newFixture(t)
	tr := f.requested(t)
	require.NoError(t, f.books.Disapprove(f.ctx, tr.ID, accountancy.BySectionManager))

	updated, err := f.books.UpdateTransaction(f.ctx, tr.ID, accountancy.TransactionRequest{
		Amount:      decimal.RequireFromString("80.00"),
		Section:     "ultimate",
		Description: "Fewer discs",
	})
	require.NoError(t, err)
	assert.Equal(t, accountancy.StateCreated, updated.State)

	record := f.record(t, tr.ID)
	assert.Equal(t, accountancy.StateCreated, record.State)
	assert.True(t, decimal.RequireFromString("80").Equal(record.Amount))
	assert.Equal(t, f.requester.ID, record.CreatedBy)

	require.NoError(t, f.books.Approve(f.ctx, f.approver, tr.ID))
	_, err = f.books.UpdateTransaction(f.ctx, tr.ID, accountancy.TransactionRequest{Amount: decimal.NewFromInt(1), Section: "ultimate", Description: "x"})
	assert.True(t, errors.Is(err, accountancy.ErrInvalidState))
}

func TestResubmitAfterApprovalCanBeApprovedAgain(t *testing.T) {
	tests := []struct {
		name   string
		reason string
		pay    bool
	}{
		{name: "disapproved by the SAF manager", reason: accountancy.BySAFManager},
		{name: "disapproved by the section manager", reason: accountancy.BySectionManager},
		{name: "disapproved after payment", reason: accountancy.BySAFManager, pay: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			tr := f.approved(t)
			if tt.pay {
				require.NoError(t, f.books.Pay(f.ctx, f.approver, tr.ID))
			}
			require.NoError(t, f.books.Disapprove(f.ctx, tr.ID, tt.reason))

			_, err := f.books.UpdateTransaction(f.ctx, tr.ID, accountancy.TransactionRequest{
				Amount:      decimal.RequireFromString("90.00"),
				Section:     "ultimate",
				Description: "Discs, corrected invoice",
			})
			require.NoError(t, err)

			record := f.record(t, tr.ID)
			assert.Equal(t, accountancy.StateCreated, record.State)
			assert.Nil(t, record.Item)
			require.NotNil(t, record.Approval)
			require.NotNil(t, record.Approval.TransactionTypeID)
			assert.Equal(t, f.typeID, *record.Approval.TransactionTypeID)

			require.NoError(t, f.books.Approve(f.ctx, f.approver, tr.ID))
			record = f.record(t, tr.ID)
			assert.Equal(t, accountancy.StateApproved, record.State)
			assert.NotNil(t, record.Item)
		})
	}
}

func TestSectionChangeDropsCategory(t *testing.T) {
	tests := []struct {
		name       string
		disapprove bool
	}{
		{name: "while waiting for approval"},
		{name: "when resubmitting", disapprove: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			tr := f.requested(t)
			if tt.disapprove {
				require.NoError(t, f.books.Disapprove(f.ctx, tr.ID, accountancy.BySectionManager))
			}

			_, err := f.books.UpdateTransaction(f.ctx, tr.ID, accountancy.TransactionRequest{
				Amount:      decimal.RequireFromString("80.00"),
				Section:     "saf",
				Description: "Office supplies",
			})
			require.NoError(t, err)

			record := f.record(t, tr.ID)
			assert.Equal(t, "saf", record.Section)
			require.NotNil(t, record.Approval)
			assert.Nil(t, record.Approval.TransactionTypeID)

			err = f.books.Approve(f.ctx, f.approver, tr.ID)
			assert.True(t, errors.Is(err, accountancy.ErrMissingTransactionType))
			assert.True(t, f.ultimateActual(t).IsZero())
		})
	}
}

func TestSameSectionEditKeepsCategory(t *testing.T) {
	f := newFixture(t)
	tr := f.requested(t)

	_, err := f.books.UpdateTransaction(f.ctx, tr.ID, accountancy.TransactionRequest{
		Amount:      decimal.RequireFromString("120.00"),
		Section:     "ultimate",
		Description: "More discs",
	})
	require.NoError(t, err)

	record := f.record(t, tr.ID)
	require.NotNil(t, record.Approval)
	require.NotNil(t, record.Approval.TransactionTypeID)
	assert.Equal(t, f.typeID, *record.Approval.TransactionTypeID)
}

func TestAttachInvoice(t *testing.T) {
	f := newFixture(t)
	tr := f.create(t, "10", "saf")

	tests := []struct {
		name     string
		filename string
		content  []byte
		wantErr  bool
	}{
		{name: "word document", filename: "invoice.docx", content: []byte("doc"), wantErr: true},
		{name: "no extension", filename: "invoice", content: []byte("doc"), wantErr: true},
		{name: "pdf in the name only", filename: "invoice.pdf.exe", content: []byte("doc"), wantErr: true},
		{name: "too large", filename: "big.pdf", content: bytes.Repeat([]byte("a"), 1025), wantErr: true},
		{name: "empty", filename: "empty.pdf", content: nil, wantErr: true},
		{name: "pdf", filename: `C:\scans\Faktúra 2024.pdf`, content: []byte("%PDF-1.4")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			updated, err := f.books.AttachInvoice(f.ctx, tr.ID, tt.filename, bytes.NewReader(tt.content))
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, appErrors.ErrInvalidInput, appErrors.CodeOf(err))
				assert.Empty(t, f.record(t, tr.ID).Invoice)
				return
			}
			require.NoError(t, err)
			assert.True(t, strings.HasPrefix(updated.Invoice, "invoices/2024/06/"))
			assert.True(t, strings.HasSuffix(updated.Invoice, "_Fakt_ra_2024.pdf"))

			data, err := os.ReadFile(filepath.Join(f.media, filepath.FromSlash(updated.Invoice)))
			require.NoError(t, err)
			assert.Equal(t, tt.content, data)
		})
	}
}

func TestUpdatePayment(t *testing.T) {
	f := newFixture(t)
	tr := f.approved(t)
	account, err := f.finances.SaveAccount(f.ctx, finances.AccountRequest{Name: "Main", IBAN: "SK3112000000198742637541"})
	require.NoError(t, err)

	missing := "missing"
	_, err = f.books.UpdatePayment(f.ctx, f.approver, tr.ID, accountancy.PaymentRequest{AccountID: &missing})
	assert.Equal(t, appErrors.ErrNotFound, appErrors.CodeOf(err))

	date := time.Date(2024, 5, 31, 0, 0, 0, 0, time.UTC)
	item, err := f.books.UpdatePayment(f.ctx, f.approver, tr.ID, accountancy.PaymentRequest{DatePayed: &date, AccountID: &account.ID})
	require.NoError(t, err)
	assert.Equal(t, account.ID, *item.AccountID)

	require.NoError(t, f.books.Pay(f.ctx, f.approver, tr.ID))
	record := f.record(t, tr.ID)
	assert.Equal(t, date, *record.Item.DatePayed)
	assert.Equal(t, "Main", record.AccountName)

	_, err = f.books.UpdatePayment(f.ctx, f.approver, f.create(t, "1", "saf").ID, accountancy.PaymentRequest{})
	assert.True(t, errors.Is(err, accountancy.ErrInvalidState))
}

func TestArchivePaid(t *testing.T) {
	f := newFixture(t)
	tr := f.approved(t)
	require.NoError(t, f.books.Pay(f.ctx, f.approver, tr.ID))

	count, err := f.books.ArchivePaid(f.ctx, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	count, err = f.books.ArchivePaid(f.ctx, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	assert.Equal(t, accountancy.StateOld, f.record(t, tr.ID).State)
	assert.True(t, f.ultimateActual(t).IsZero())
}

func TestRemindPending(t *testing.T) {
	f := newFixture(t)
	f.requested(t)
	f.requested(t)
	f.create(t, "5", "saf")
	f.approved(t)

	sent, err := f.books.RemindPending(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, sent)
	assert.Len(t, f.notifier.messages, 2)
}

func TestNotificationFailurePropagates(t *testing.T) {
	f := newFixture(t)
	tr := f.requested(t)
	f.notifier.err = appErrors.ErrorResponse{Code: appErrors.ErrInternal, Message: "Failed to send the notification email."}

	err := f.books.Approve(f.ctx, f.approver, tr.ID)
	require.Error(t, err)
	assert.False(t, accountancy.IsSkippable(err))
	assert.Equal(t, appErrors.ErrInternal, appErrors.CodeOf(err))
}

func TestListRecordsValidation(t *testing.T) {
	f := newFixture(t)

	_, err := f.books.ListRecords(f.ctx, accountancy.RecordFilter{States: []string{"lost"}})
	assert.Equal(t, appErrors.ErrInvalidInput, appErrors.CodeOf(err))

	_, err = f.books.ListRecords(f.ctx, accountancy.RecordFilter{Ordering: "description"})
	assert.Equal(t, appErrors.ErrInvalidInput, appErrors.CodeOf(err))

	_, err = f.books.ListRecords(f.ctx, accountancy.RecordFilter{Section: "rugby"})
	assert.Equal(t, appErrors.ErrInvalidInput, appErrors.CodeOf(err))
}
