package storage

import (
	"database/sql"
	"time"

	"github.com/saf-slovakia/accountancy/internal/accountancy"
	"github.com/saf-slovakia/accountancy/internal/auth"
	"github.com/shopspring/decimal"
)

type dbSession struct {
	ID        string
	Token     string
	CreatedAt time.Time
	ExpireAt  time.Time
	UserID    string
}

func (s dbSession) toSession() auth.Session {
	return auth.Session{
		ID:        s.ID,
		Token:     s.Token,
		CreatedAt: s.CreatedAt,
		ExpireAt:  s.ExpireAt,
		UserID:    s.UserID,
	}
}

// dbRecord is one row of the transaction/approval/item join.
type dbRecord struct {
	ID            string
	CreatedBy     sql.NullString
	DateCreated   time.Time
	State         string
	Amount        decimal.Decimal
	Section       string
	Description   string
	Invoice       string
	Provider      string
	BusinessID    string
	InvoiceNumber string

	ApprovalID        sql.NullString
	TransactionTypeID sql.NullString
	ApprovedBy        sql.NullString

	ItemID    sql.NullString
	PayedBy   sql.NullString
	DatePayed sql.NullTime
	AccountID sql.NullString

	RequesterName       sql.NullString
	RequesterEmail      sql.NullString
	TransactionTypeName sql.NullString
	AccountName         sql.NullString
}

func (r *dbRecord) scanTargets() []any {
	return []any{
		&r.ID, &r.CreatedBy, &r.DateCreated, &r.State, &r.Amount, &r.Section, &r.Description,
		&r.Invoice, &r.Provider, &r.BusinessID, &r.InvoiceNumber,
		&r.ApprovalID, &r.TransactionTypeID, &r.ApprovedBy,
		&r.ItemID, &r.PayedBy, &r.DatePayed, &r.AccountID,
		&r.RequesterName, &r.RequesterEmail, &r.TransactionTypeName, &r.AccountName,
	}
}

func (r dbRecord) toRecord() accountancy.Record {
	record := accountancy.Record{
		Transaction: accountancy.Transaction{
			ID:            r.ID,
			CreatedBy:     r.CreatedBy.String,
			DateCreated:   r.DateCreated,
			State:         r.State,
			Amount:        r.Amount,
			Section:       r.Section,
			Description:   r.Description,
			Invoice:       r.Invoice,
			Provider:      r.Provider,
			BusinessID:    r.BusinessID,
			InvoiceNumber: r.InvoiceNumber,
		},
		RequesterName:       r.RequesterName.String,
		RequesterEmail:      r.RequesterEmail.String,
		TransactionTypeName: r.TransactionTypeName.String,
		AccountName:         r.AccountName.String,
	}
	if r.ApprovalID.Valid {
		record.Approval = &accountancy.Approval{
			ID:                r.ApprovalID.String,
			TransactionID:     r.ID,
			TransactionTypeID: NullStringToNil(r.TransactionTypeID),
			CreatedBy:         NullStringToNil(r.ApprovedBy),
		}
	}
	if r.ItemID.Valid {
		record.Item = &accountancy.Item{
			ID:            r.ItemID.String,
			TransactionID: r.ID,
			ApprovalID:    r.ApprovalID.String,
			CreatedBy:     NullStringToNil(r.PayedBy),
			DatePayed:     NullTimeToNil(r.DatePayed),
			AccountID:     NullStringToNil(r.AccountID),
		}
	}
	return record
}
