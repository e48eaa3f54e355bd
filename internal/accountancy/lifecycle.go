package accountancy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	appErrors "github.com/saf-slovakia/accountancy/customErrors"
	"github.com/saf-slovakia/accountancy/internal/auth"
	"github.com/saf-slovakia/accountancy/internal/contextutil"
	"github.com/saf-slovakia/accountancy/internal/notify"
	"github.com/saf-slovakia/accountancy/logging"
)

// SectionRole is the finance manager responsible for approving spending of a section.
func SectionRole(section string) notify.Role {
	switch section {
	case "ultimate":
		return notify.RoleUltimate
	case "discgolf":
		return notify.RoleDiscgolf
	default:
		return notify.RoleSAF
	}
}

func (b *Bookkeeper) info(record Record) notify.TransactionInfo {
	info := notify.TransactionInfo{
		ID:            record.ID,
		Section:       b.sections.Label(record.Section),
		Amount:        record.Amount.StringFixed(2),
		Description:   record.Description,
		State:         record.State,
		Requester:     record.RequesterName,
		TypeName:      record.TransactionTypeName,
		Provider:      record.Provider,
		BusinessID:    record.BusinessID,
		InvoiceNumber: record.InvoiceNumber,
	}
	if info.Requester == "" {
		info.Requester = record.RequesterEmail
	}
	if record.Item != nil && record.Item.DatePayed != nil {
		info.DatePayed = record.Item.DatePayed.Format("2006-01-02")
	}
	return info
}

func (b *Bookkeeper) notifyRequester(ctx context.Context, record Record, subject string, change string) error {
	return b.notifier.Send(ctx, notify.Message{
		To:       notify.To(record.RequesterEmail),
		Subject:  subject,
		Template: notify.TemplateChangeState,
		Context:  notify.Context{Model: change, T: b.info(record)},
	})
}

func (b *Bookkeeper) sendApprovalReminder(ctx context.Context, record Record) error {
	return b.notifier.Send(ctx, notify.Message{
		To:       notify.ToRole(SectionRole(record.Section)),
		Subject:  "Approval request for transaction " + record.ID,
		Template: notify.TemplateReminder,
		Context:  notify.Context{Model: "approval", T: b.info(record)},
	})
}

func (b *Bookkeeper) sendPaymentReminder(ctx context.Context, record Record) error {
	return b.notifier.Send(ctx, notify.Message{
		To:       notify.ToRole(notify.RoleSAF),
		Subject:  "Payment request for transaction " + record.ID,
		Template: notify.TemplateReminder,
		Context:  notify.Context{Model: "payment", T: b.info(record)},
	})
}

func (b *Bookkeeper) logTransition(ctx context.Context, id string, state string) {
	logging.Logger.Infof("[TraceID=%s] | transaction %s is %s, by %s", contextutil.TraceIDFromContext(ctx), id, state, contextutil.ActorFromContext(ctx))
}

// SendReminder asks the section finance manager to approve the transaction, creating its approval on first request.
func (b *Bookkeeper) SendReminder(ctx context.Context, id string) error {
	record, err := b.GetRecord(ctx, id)
	if err != nil {
		return err
	}
	if record.State != StateCreated {
		return fmt.Errorf("cannot request approval of transaction %s in state %s: %w", id, record.State, ErrInvalidState)
	}

	if record.Approval == nil {
		approval := Approval{ID: uuid.New().String(), TransactionID: id}
		if err := b.storage.SaveApproval(ctx, approval); err != nil {
			return fmt.Errorf("failed to save approval: %w", err)
		}
		record.Approval = &approval
	}

	return b.sendApprovalReminder(ctx, record)
}

// SendPaymentReminder reminds the SAF finance manager about an approved transaction waiting for payment.
func (b *Bookkeeper) SendPaymentReminder(ctx context.Context, id string) error {
	record, err := b.GetRecord(ctx, id)
	if err != nil {
		return err
	}
	if record.Item == nil || record.State != StateApproved {
		return fmt.Errorf("transaction %s is not waiting for payment: %w", id, ErrInvalidState)
	}
	return b.sendPaymentReminder(ctx, record)
}

// AssignTransactionType sets the budget category of a transaction that is waiting for approval.
func (b *Bookkeeper) AssignTransactionType(ctx context.Context, approver auth.User, id string, typeID string) (Approval, error) {
	record, err := b.GetRecord(ctx, id)
	if err != nil {
		return Approval{}, err
	}
	if record.State != StateCreated {
		return Approval{}, fmt.Errorf("cannot change category of transaction %s in state %s: %w", id, record.State, ErrInvalidState)
	}

	t, err := b.storage.GetTransactionType(ctx, typeID)
	if err != nil {
		return Approval{}, fmt.Errorf("failed to get transaction type: %w", err)
	}
	if t.Section != record.Section {
		return Approval{}, appErrors.ErrorResponse{
			Code:    appErrors.ErrInvalidInput,
			Message: fmt.Sprintf("Transaction type '%s' belongs to section %s, not %s.", t.Name, t.Section, record.Section),
		}
	}

	if record.Approval == nil {
		approval := Approval{ID: uuid.New().String(), TransactionID: id, TransactionTypeID: &t.ID, CreatedBy: &approver.ID}
		if err := b.storage.SaveApproval(ctx, approval); err != nil {
			return Approval{}, fmt.Errorf("failed to save approval: %w", err)
		}
		return approval, nil
	}

	approval := *record.Approval
	approval.TransactionTypeID = &t.ID
	approval.CreatedBy = &approver.ID
	if err := b.storage.UpdateApproval(ctx, approval); err != nil {
		return Approval{}, fmt.Errorf("failed to update approval: %w", err)
	}
	return approval, nil
}

// Approve moves a created transaction with a categorised approval to approved and opens its payment item.
func (b *Bookkeeper) Approve(ctx context.Context, approver auth.User, id string) error {
	record, err := b.GetRecord(ctx, id)
	if err != nil {
		return err
	}
	if record.State != StateCreated {
		return fmt.Errorf("cannot approve transaction %s in state %s: %w", id, record.State, ErrInvalidState)
	}
	if record.Approval == nil || record.Approval.TransactionTypeID == nil {
		return fmt.Errorf("transaction %s has no transaction type: %w", id, ErrMissingTransactionType)
	}

	approval := *record.Approval
	approval.CreatedBy = &approver.ID
	item := Item{
		ID:            uuid.New().String(),
		TransactionID: id,
		ApprovalID:    approval.ID,
	}
	if err := b.storage.ApproveTransaction(ctx, approval, item); err != nil {
		return fmt.Errorf("failed to approve transaction: %w", err)
	}
	b.logTransition(ctx, id, StateApproved)

	record.State = StateApproved
	record.Approval = &approval
	record.Item = &item

	if err := b.sendPaymentReminder(ctx, record); err != nil {
		return err
	}
	return b.notifyRequester(ctx, record, "Transaction "+id+" approved", "approved "+BySectionManager)
}

// Disapprove rejects the transaction whatever its state and tells the requester why.
func (b *Bookkeeper) Disapprove(ctx context.Context, id string, reasonLabel string) error {
	record, err := b.GetRecord(ctx, id)
	if err != nil {
		return err
	}
	if err := b.storage.SetTransactionState(ctx, id, StateDisapproved); err != nil {
		return fmt.Errorf("failed to disapprove transaction: %w", err)
	}
	b.logTransition(ctx, id, StateDisapproved)

	record.State = StateDisapproved
	return b.notifyRequester(ctx, record, "Transaction "+id+" disapproved", "disapproved "+reasonLabel)
}

// Pay records the payment of an approved transaction, publishes it and sends the invoice to the accountant.
func (b *Bookkeeper) Pay(ctx context.Context, payer auth.User, id string) error {
	record, err := b.GetRecord(ctx, id)
	if err != nil {
		return err
	}
	if record.State != StateApproved || record.Item == nil {
		return fmt.Errorf("cannot pay transaction %s in state %s: %w", id, record.State, ErrInvalidState)
	}

	item := *record.Item
	item.CreatedBy = &payer.ID
	if item.DatePayed == nil {
		today := b.now().Truncate(24 * time.Hour)
		item.DatePayed = &today
	}
	if err := b.storage.CompletePayment(ctx, item); err != nil {
		return fmt.Errorf("failed to pay transaction: %w", err)
	}
	b.logTransition(ctx, id, StatePublic)

	record.State = StatePublic
	record.Item = &item

	if err := b.notifyRequester(ctx, record, "Transaction "+id+" paid", "paid"); err != nil {
		return err
	}
	return b.notifier.Send(ctx, notify.Message{
		To:         notify.ToRole(notify.RoleAccountant),
		Subject:    "Invoice for transaction " + id,
		Template:   notify.TemplateSendInvoice,
		Context:    notify.Context{Model: "paid", T: b.info(record)},
		Attachment: b.InvoicePath(record.Transaction),
	})
}

func (b *Bookkeeper) setVisibility(ctx context.Context, id string, state string) error {
	record, err := b.GetRecord(ctx, id)
	if err != nil {
		return err
	}
	if record.State != StatePayed && record.State != StatePublic {
		return fmt.Errorf("transaction %s in state %s is not paid: %w", id, record.State, ErrInvalidState)
	}
	if record.State == state {
		return nil
	}
	if err := b.storage.SetTransactionState(ctx, id, state); err != nil {
		return fmt.Errorf("failed to change transaction visibility: %w", err)
	}
	b.logTransition(ctx, id, state)
	return nil
}

// MakePublic shows a paid transaction in the public ledger.
func (b *Bookkeeper) MakePublic(ctx context.Context, id string) error {
	return b.setVisibility(ctx, id, StatePublic)
}

// MakePrivate hides a paid transaction from the public ledger. It still counts in the balance.
func (b *Bookkeeper) MakePrivate(ctx context.Context, id string) error {
	return b.setVisibility(ctx, id, StatePayed)
}

// ReturnToApproval drops the payment item of an approved transaction and asks for approval again.
func (b *Bookkeeper) ReturnToApproval(ctx context.Context, id string) error {
	record, err := b.GetRecord(ctx, id)
	if err != nil {
		return err
	}
	if record.State != StateApproved {
		return fmt.Errorf("cannot return transaction %s in state %s to approval: %w", id, record.State, ErrInvalidState)
	}
	if err := b.storage.ReturnToApproval(ctx, id); err != nil {
		return fmt.Errorf("failed to return transaction to approval: %w", err)
	}
	b.logTransition(ctx, id, StateCreated)

	record.State = StateCreated
	record.Item = nil
	return b.sendApprovalReminder(ctx, record)
}

// UpdatePayment edits the payment details of a transaction that has an item.
func (b *Bookkeeper) UpdatePayment(ctx context.Context, payer auth.User, id string, req PaymentRequest) (Item, error) {
	record, err := b.GetRecord(ctx, id)
	if err != nil {
		return Item{}, err
	}
	if record.Item == nil {
		return Item{}, fmt.Errorf("transaction %s has no payment: %w", id, ErrInvalidState)
	}
	if req.AccountID != nil {
		if _, err := b.storage.GetAccount(ctx, *req.AccountID); err != nil {
			return Item{}, fmt.Errorf("failed to get account: %w", err)
		}
	}

	item := *record.Item
	item.CreatedBy = &payer.ID
	item.DatePayed = req.DatePayed
	item.AccountID = req.AccountID
	if err := b.storage.UpdateItem(ctx, item); err != nil {
		return Item{}, fmt.Errorf("failed to update payment: %w", err)
	}
	return item, nil
}

// ArchivePaid moves transactions paid before the cutoff to old. They leave the ledger and the balance.
func (b *Bookkeeper) ArchivePaid(ctx context.Context, before time.Time) (int64, error) {
	count, err := b.storage.ArchivePaid(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("failed to archive paid transactions: %w", err)
	}
	logging.Logger.Infof("[TraceID=%s] | archived %d transactions paid before %s", contextutil.TraceIDFromContext(ctx), count, before.Format("2006-01-02"))
	return count, nil
}

// RemindPending re-sends approval reminders for every requested but unapproved transaction.
func (b *Bookkeeper) RemindPending(ctx context.Context) (int, error) {
	records, err := b.ListRecords(ctx, RecordFilter{States: []string{StateCreated}, WithApproval: true})
	if err != nil {
		return 0, err
	}

	sent := 0
	var errs []error
	for _, record := range records {
		if err := b.sendApprovalReminder(ctx, record); err != nil {
			errs = append(errs, fmt.Errorf("transaction %s: %w", record.ID, err))
			continue
		}
		sent++
	}
	return sent, errors.Join(errs...)
}
