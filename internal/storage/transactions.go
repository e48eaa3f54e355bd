package storage

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	appErrors "github.com/saf-slovakia/accountancy/customErrors"
	"github.com/saf-slovakia/accountancy/internal/accountancy"
)

const recordSelect = `SELECT t.id, t.created_by, t.date_created, t.state, t.amount, t.section, t.description,
       t.invoice, t.provider, t.business_id, t.invoice_number,
       a.id, a.transaction_type_id, a.created_by,
       i.id, i.created_by, i.date_payed, i.account_id,
       u.fullname, u.email, tt.name, acc.name
FROM accountancy_transaction t
LEFT JOIN accountancy_approval a ON a.transaction_id = t.id
LEFT JOIN accountancy_item i ON i.transaction_id = t.id
LEFT JOIN app_user u ON u.id = t.created_by
LEFT JOIN finances_transactiontype tt ON tt.id = a.transaction_type_id
LEFT JOIN finances_account acc ON acc.id = i.account_id`

var orderColumns = map[string]string{
	"date_created": "t.date_created",
	"amount":       "t.amount",
	"date_payed":   "i.date_payed",
	"id":           "t.id",
}

// buildRecordWhere turns the filter into a WHERE clause with "?" placeholders, an ORDER BY and a LIMIT.
func buildRecordWhere(filter accountancy.RecordFilter, dialect Dialect) (string, []any) {
	var conditions []string
	var args []any

	if len(filter.States) > 0 {
		conditions = append(conditions, "t.state IN (?"+strings.Repeat(", ?", len(filter.States)-1)+")")
		for _, state := range filter.States {
			args = append(args, state)
		}
	}
	if filter.Section != "" {
		conditions = append(conditions, "t.section = ?")
		args = append(args, filter.Section)
	}
	if filter.TransactionTypeID != "" {
		conditions = append(conditions, "a.transaction_type_id = ?")
		args = append(args, filter.TransactionTypeID)
	}
	if filter.AccountID != "" {
		conditions = append(conditions, "i.account_id = ?")
		args = append(args, filter.AccountID)
	}
	if filter.CreatedBy != "" {
		conditions = append(conditions, "t.created_by = ?")
		args = append(args, filter.CreatedBy)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		conditions = append(conditions, "(LOWER(t.description) LIKE ? OR "+dialect.CastText("t.amount")+" LIKE ?)")
		args = append(args, likePattern(search), likePattern(search))
	}
	if filter.WithApproval {
		conditions = append(conditions, "a.id IS NOT NULL")
	}
	if filter.WithItem {
		conditions = append(conditions, "i.id IS NOT NULL")
	}
	if filter.PayedBefore != nil {
		conditions = append(conditions, "i.date_payed < ?")
		args = append(args, *filter.PayedBefore)
	}

	var b strings.Builder
	if len(conditions) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(conditions, " AND "))
	}

	ordering := filter.Ordering
	if ordering == "" {
		ordering = "-date_created"
	}
	direction := "ASC"
	if strings.HasPrefix(ordering, "-") {
		direction = "DESC"
		ordering = strings.TrimPrefix(ordering, "-")
	}
	column, ok := orderColumns[ordering]
	if !ok {
		column = "t.date_created"
	}
	b.WriteString(" ORDER BY " + column + " " + direction + ", t.id " + direction)

	if filter.Limit > 0 {
		b.WriteString(" LIMIT ? OFFSET ?")
		args = append(args, filter.Limit, filter.Offset)
	}
	return b.String(), args
}

func (s *SQLStorage) SaveTransaction(ctx context.Context, t accountancy.Transaction) error {
	query := `INSERT INTO accountancy_transaction
(id, created_by, date_created, state, amount, section, description, invoice, provider, business_id, invoice_number)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`
	_, err := s.exec(ctx, query, t.ID, EmptyToNull(t.CreatedBy), t.DateCreated, t.State, t.Amount, t.Section,
		t.Description, t.Invoice, t.Provider, t.BusinessID, t.InvoiceNumber)
	if err != nil {
		return internalError(ctx, "SaveTransaction", "save transaction", err, "Failed to save the transaction, try again later.")
	}
	return nil
}

func (s *SQLStorage) UpdateTransaction(ctx context.Context, t accountancy.Transaction) error {
	query := `UPDATE accountancy_transaction
SET state = ?, amount = ?, section = ?, description = ?, invoice = ?, provider = ?, business_id = ?, invoice_number = ?
WHERE id = ?;`
	_, err := s.exec(ctx, query, t.State, t.Amount, t.Section, t.Description, t.Invoice, t.Provider, t.BusinessID, t.InvoiceNumber, t.ID)
	if err != nil {
		return internalError(ctx, "UpdateTransaction", "update transaction", err, "Failed to update the transaction, try again later.")
	}
	return nil
}

func (s *SQLStorage) SetTransactionState(ctx context.Context, transactionID string, state string) error {
	if _, err := s.exec(ctx, "UPDATE accountancy_transaction SET state = ? WHERE id = ?;", state, transactionID); err != nil {
		return internalError(ctx, "SetTransactionState", "change transaction state", err, "Failed to change the transaction state, try again later.")
	}
	return nil
}

func (s *SQLStorage) GetRecord(ctx context.Context, transactionID string) (accountancy.Record, error) {
	var r dbRecord
	err := s.queryRow(ctx, recordSelect+" WHERE t.id = ?", transactionID).Scan(r.scanTargets()...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return accountancy.Record{}, notFound("Transaction not found.")
		}
		return accountancy.Record{}, internalError(ctx, "GetRecord", "get transaction", err, "Failed to get the transaction, try again later.")
	}
	return r.toRecord(), nil
}

func (s *SQLStorage) ListRecords(ctx context.Context, filter accountancy.RecordFilter) ([]accountancy.Record, error) {
	where, args := buildRecordWhere(filter, s.dialect)
	rows, err := s.query(ctx, recordSelect+where, args...)
	if err != nil {
		return nil, internalError(ctx, "ListRecords", "list transactions", err, "Failed to get transactions, try again later.")
	}
	defer rows.Close()

	records := []accountancy.Record{}
	for rows.Next() {
		var r dbRecord
		if err := rows.Scan(r.scanTargets()...); err != nil {
			return nil, internalError(ctx, "ListRecords", "scan transaction", err, "Failed to get transactions, try again later.")
		}
		records = append(records, r.toRecord())
	}
	if err := rows.Err(); err != nil {
		return nil, internalError(ctx, "ListRecords", "iterate transactions", err, "Failed to get transactions, try again later.")
	}
	return records, nil
}

func (s *SQLStorage) SaveApproval(ctx context.Context, a accountancy.Approval) error {
	query := "INSERT INTO accountancy_approval (id, transaction_id, transaction_type_id, created_by) VALUES (?, ?, ?, ?);"
	_, err := s.exec(ctx, query, a.ID, a.TransactionID, NilToNullString(a.TransactionTypeID), NilToNullString(a.CreatedBy))
	if err != nil {
		if s.dialect.IsDuplicate(err) {
			return appErrors.ErrorResponse{Code: appErrors.ErrConflict, Message: "Approval of this transaction was already requested."}
		}
		return internalError(ctx, "SaveApproval", "save approval", err, "Failed to request approval, try again later.")
	}
	return nil
}

func (s *SQLStorage) UpdateApproval(ctx context.Context, a accountancy.Approval) error {
	query := "UPDATE accountancy_approval SET transaction_type_id = ?, created_by = ? WHERE id = ?;"
	if _, err := s.exec(ctx, query, NilToNullString(a.TransactionTypeID), NilToNullString(a.CreatedBy), a.ID); err != nil {
		return internalError(ctx, "UpdateApproval", "update approval", err, "Failed to update the approval, try again later.")
	}
	return nil
}

func (s *SQLStorage) ApproveTransaction(ctx context.Context, a accountancy.Approval, item accountancy.Item) error {
	err := s.withTx(ctx, func(exec func(query string, args ...any) (sql.Result, error)) error {
		if _, err := exec("UPDATE accountancy_approval SET created_by = ? WHERE id = ?;", NilToNullString(a.CreatedBy), a.ID); err != nil {
			return err
		}
		query := "INSERT INTO accountancy_item (id, transaction_id, approval_id, created_by, date_payed, account_id) VALUES (?, ?, ?, ?, ?, ?);"
		if _, err := exec(query, item.ID, item.TransactionID, item.ApprovalID, NilToNullString(item.CreatedBy), NilToNullTime(item.DatePayed), NilToNullString(item.AccountID)); err != nil {
			return err
		}
		_, err := exec("UPDATE accountancy_transaction SET state = ? WHERE id = ?;", accountancy.StateApproved, a.TransactionID)
		return err
	})
	if err != nil {
		if s.dialect.IsDuplicate(err) {
			return appErrors.ErrorResponse{Code: appErrors.ErrConflict, Message: "The transaction is already approved."}
		}
		return internalError(ctx, "ApproveTransaction", "approve transaction", err, "Failed to approve the transaction, try again later.")
	}
	return nil
}

func (s *SQLStorage) ReturnToApproval(ctx context.Context, transactionID string) error {
	err := s.withTx(ctx, func(exec func(query string, args ...any) (sql.Result, error)) error {
		if _, err := exec("DELETE FROM accountancy_item WHERE transaction_id = ?;", transactionID); err != nil {
			return err
		}
		_, err := exec("UPDATE accountancy_transaction SET state = ? WHERE id = ?;", accountancy.StateCreated, transactionID)
		return err
	})
	if err != nil {
		return internalError(ctx, "ReturnToApproval", "return transaction to approval", err, "Failed to return the transaction to approval, try again later.")
	}
	return nil
}

func (s *SQLStorage) ResubmitTransaction(ctx context.Context, t accountancy.Transaction, clearType bool) error {
	err := s.withTx(ctx, func(exec func(query string, args ...any) (sql.Result, error)) error {
		if _, err := exec("DELETE FROM accountancy_item WHERE transaction_id = ?;", t.ID); err != nil {
			return err
		}
		if clearType {
			if _, err := exec("UPDATE accountancy_approval SET transaction_type_id = NULL WHERE transaction_id = ?;", t.ID); err != nil {
				return err
			}
		}
		query := `UPDATE accountancy_transaction
SET state = ?, amount = ?, section = ?, description = ?, invoice = ?, provider = ?, business_id = ?, invoice_number = ?
WHERE id = ?;`
		_, err := exec(query, t.State, t.Amount, t.Section, t.Description, t.Invoice, t.Provider, t.BusinessID, t.InvoiceNumber, t.ID)
		return err
	})
	if err != nil {
		return internalError(ctx, "ResubmitTransaction", "resubmit transaction", err, "Failed to resubmit the transaction, try again later.")
	}
	return nil
}

func (s *SQLStorage) CompletePayment(ctx context.Context, item accountancy.Item) error {
	err := s.withTx(ctx, func(exec func(query string, args ...any) (sql.Result, error)) error {
		query := "UPDATE accountancy_item SET created_by = ?, date_payed = ?, account_id = ? WHERE id = ?;"
		if _, err := exec(query, NilToNullString(item.CreatedBy), NilToNullTime(item.DatePayed), NilToNullString(item.AccountID), item.ID); err != nil {
			return err
		}
		_, err := exec("UPDATE accountancy_transaction SET state = ? WHERE id = ?;", accountancy.StatePublic, item.TransactionID)
		return err
	})
	if err != nil {
		return internalError(ctx, "CompletePayment", "pay transaction", err, "Failed to pay the transaction, try again later.")
	}
	return nil
}

func (s *SQLStorage) UpdateItem(ctx context.Context, item accountancy.Item) error {
	query := "UPDATE accountancy_item SET created_by = ?, date_payed = ?, account_id = ? WHERE id = ?;"
	_, err := s.exec(ctx, query, NilToNullString(item.CreatedBy), NilToNullTime(item.DatePayed), NilToNullString(item.AccountID), item.ID)
	if err != nil {
		if s.dialect.IsForeignKeyViolation(err) {
			return notFound("Account not found.")
		}
		return internalError(ctx, "UpdateItem", "update item", err, "Failed to update the payment, try again later.")
	}
	return nil
}

func (s *SQLStorage) ArchivePaid(ctx context.Context, before time.Time) (int64, error) {
	query := `UPDATE accountancy_transaction SET state = ?
WHERE state IN (?, ?)
AND id IN (SELECT transaction_id FROM accountancy_item WHERE date_payed < ?);`
	res, err := s.exec(ctx, query, accountancy.StateOld, accountancy.StatePayed, accountancy.StatePublic, before)
	if err != nil {
		return 0, internalError(ctx, "ArchivePaid", "archive paid transactions", err, "Failed to archive transactions, try again later.")
	}
	count, err := res.RowsAffected()
	if err != nil {
		return 0, internalError(ctx, "ArchivePaid", "count archived transactions", err, "Failed to archive transactions, try again later.")
	}
	return count, nil
}
