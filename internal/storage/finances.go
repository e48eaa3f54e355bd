package storage

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	appErrors "github.com/saf-slovakia/accountancy/customErrors"
	"github.com/saf-slovakia/accountancy/internal/finances"
	"github.com/shopspring/decimal"
)

func likePattern(search string) string {
	return "%" + strings.ToLower(strings.TrimSpace(search)) + "%"
}

func (s *SQLStorage) SaveAccount(ctx context.Context, account finances.Account) error {
	query := "INSERT INTO finances_account (id, name, iban, balance) VALUES (?, ?, ?, ?);"
	if _, err := s.exec(ctx, query, account.ID, account.Name, account.IBAN, account.Balance); err != nil {
		if s.dialect.IsDuplicate(err) {
			return appErrors.ErrorResponse{Code: appErrors.ErrConflict, Message: "The account already exists."}
		}
		return internalError(ctx, "SaveAccount", "save account", err, "Failed to save the account, try again later.")
	}
	return nil
}

func (s *SQLStorage) UpdateAccount(ctx context.Context, account finances.Account) error {
	query := "UPDATE finances_account SET name = ?, iban = ?, balance = ? WHERE id = ?;"
	if _, err := s.exec(ctx, query, account.Name, account.IBAN, account.Balance, account.ID); err != nil {
		if s.dialect.IsDuplicate(err) {
			return appErrors.ErrorResponse{Code: appErrors.ErrConflict, Message: "The account already exists."}
		}
		return internalError(ctx, "UpdateAccount", "update account", err, "Failed to update the account, try again later.")
	}
	return nil
}

func (s *SQLStorage) GetAccount(ctx context.Context, id string) (finances.Account, error) {
	var a finances.Account
	err := s.queryRow(ctx, "SELECT id, name, iban, balance FROM finances_account WHERE id = ?", id).Scan(&a.ID, &a.Name, &a.IBAN, &a.Balance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return finances.Account{}, notFound("Account not found.")
		}
		return finances.Account{}, internalError(ctx, "GetAccount", "get account", err, "Failed to get the account, try again later.")
	}
	return a, nil
}

func (s *SQLStorage) ListAccounts(ctx context.Context, search string) ([]finances.Account, error) {
	query := "SELECT id, name, iban, balance FROM finances_account"
	var args []any
	if strings.TrimSpace(search) != "" {
		query += " WHERE LOWER(name) LIKE ? OR LOWER(iban) LIKE ?"
		args = append(args, likePattern(search), likePattern(search))
	}
	query += " ORDER BY name"

	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, internalError(ctx, "ListAccounts", "list accounts", err, "Failed to get accounts, try again later.")
	}
	defer rows.Close()

	accounts := []finances.Account{}
	for rows.Next() {
		var a finances.Account
		if err := rows.Scan(&a.ID, &a.Name, &a.IBAN, &a.Balance); err != nil {
			return nil, internalError(ctx, "ListAccounts", "scan account", err, "Failed to get accounts, try again later.")
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, internalError(ctx, "ListAccounts", "iterate accounts", err, "Failed to get accounts, try again later.")
	}
	return accounts, nil
}

func (s *SQLStorage) SaveTransactionType(ctx context.Context, t finances.TransactionType) error {
	query := "INSERT INTO finances_transactiontype (id, section, name, budget) VALUES (?, ?, ?, ?);"
	if _, err := s.exec(ctx, query, t.ID, t.Section, t.Name, nullDecimal(t.Budget)); err != nil {
		if s.dialect.IsDuplicate(err) {
			return appErrors.ErrorResponse{Code: appErrors.ErrConflict, Message: "The transaction type already exists in this section."}
		}
		return internalError(ctx, "SaveTransactionType", "save transaction type", err, "Failed to save the transaction type, try again later.")
	}
	return nil
}

func (s *SQLStorage) UpdateTransactionType(ctx context.Context, t finances.TransactionType) error {
	query := "UPDATE finances_transactiontype SET section = ?, name = ?, budget = ? WHERE id = ?;"
	if _, err := s.exec(ctx, query, t.Section, t.Name, nullDecimal(t.Budget), t.ID); err != nil {
		if s.dialect.IsDuplicate(err) {
			return appErrors.ErrorResponse{Code: appErrors.ErrConflict, Message: "The transaction type already exists in this section."}
		}
		return internalError(ctx, "UpdateTransactionType", "update transaction type", err, "Failed to update the transaction type, try again later.")
	}
	return nil
}

func (s *SQLStorage) IsTransactionTypeInUse(ctx context.Context, id string) (bool, error) {
	query := `SELECT
(SELECT COUNT(*) FROM accountancy_approval WHERE transaction_type_id = ?) +
(SELECT COUNT(*) FROM finances_extraexpense WHERE transaction_type_id = ?);`
	var count int
	if err := s.queryRow(ctx, query, id, id).Scan(&count); err != nil {
		return false, internalError(ctx, "IsTransactionTypeInUse", "count transaction type references", err, "Failed to check the transaction type, try again later.")
	}
	return count > 0, nil
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}

func scanTransactionType(scan func(dest ...any) error) (finances.TransactionType, error) {
	var t finances.TransactionType
	var budget decimal.NullDecimal
	if err := scan(&t.ID, &t.Section, &t.Name, &budget); err != nil {
		return finances.TransactionType{}, err
	}
	if budget.Valid {
		b := budget.Decimal
		t.Budget = &b
	}
	return t, nil
}

func (s *SQLStorage) GetTransactionType(ctx context.Context, id string) (finances.TransactionType, error) {
	row := s.queryRow(ctx, "SELECT id, section, name, budget FROM finances_transactiontype WHERE id = ?", id)
	t, err := scanTransactionType(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return finances.TransactionType{}, notFound("Transaction type not found.")
		}
		return finances.TransactionType{}, internalError(ctx, "GetTransactionType", "get transaction type", err, "Failed to get the transaction type, try again later.")
	}
	return t, nil
}

func (s *SQLStorage) ListTransactionTypes(ctx context.Context, filter finances.TypeFilter) ([]finances.TransactionType, error) {
	query := "SELECT id, section, name, budget FROM finances_transactiontype WHERE 1 = 1"
	var args []any
	if filter.Section != "" {
		query += " AND section = ?"
		args = append(args, filter.Section)
	}
	if strings.TrimSpace(filter.Search) != "" {
		query += " AND LOWER(name) LIKE ?"
		args = append(args, likePattern(filter.Search))
	}
	query += " ORDER BY section, name"

	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, internalError(ctx, "ListTransactionTypes", "list transaction types", err, "Failed to get transaction types, try again later.")
	}
	defer rows.Close()

	types := []finances.TransactionType{}
	for rows.Next() {
		t, err := scanTransactionType(rows.Scan)
		if err != nil {
			return nil, internalError(ctx, "ListTransactionTypes", "scan transaction type", err, "Failed to get transaction types, try again later.")
		}
		types = append(types, t)
	}
	if err := rows.Err(); err != nil {
		return nil, internalError(ctx, "ListTransactionTypes", "iterate transaction types", err, "Failed to get transaction types, try again later.")
	}
	return types, nil
}

func (s *SQLStorage) SaveExtraExpense(ctx context.Context, e finances.ExtraExpense) error {
	query := "INSERT INTO finances_extraexpense (id, amount, state, section, transaction_type_id, purpose) VALUES (?, ?, ?, ?, ?, ?);"
	if _, err := s.exec(ctx, query, e.ID, e.Amount, e.State, e.Section, e.TransactionTypeID, e.Purpose); err != nil {
		if s.dialect.IsForeignKeyViolation(err) {
			return notFound("Transaction type not found.")
		}
		return internalError(ctx, "SaveExtraExpense", "save extra expense", err, "Failed to save the extra expense, try again later.")
	}
	return nil
}

func (s *SQLStorage) UpdateExtraExpense(ctx context.Context, e finances.ExtraExpense) error {
	query := "UPDATE finances_extraexpense SET amount = ?, state = ?, section = ?, transaction_type_id = ?, purpose = ? WHERE id = ?;"
	if _, err := s.exec(ctx, query, e.Amount, e.State, e.Section, e.TransactionTypeID, e.Purpose, e.ID); err != nil {
		if s.dialect.IsForeignKeyViolation(err) {
			return notFound("Transaction type not found.")
		}
		return internalError(ctx, "UpdateExtraExpense", "update extra expense", err, "Failed to update the extra expense, try again later.")
	}
	return nil
}

const extraExpenseSelect = `SELECT e.id, e.amount, e.state, e.section, e.transaction_type_id, tt.name, e.purpose
FROM finances_extraexpense e
JOIN finances_transactiontype tt ON tt.id = e.transaction_type_id`

func scanExtraExpense(scan func(dest ...any) error) (finances.ExtraExpense, error) {
	var e finances.ExtraExpense
	err := scan(&e.ID, &e.Amount, &e.State, &e.Section, &e.TransactionTypeID, &e.TransactionType, &e.Purpose)
	return e, err
}

func (s *SQLStorage) GetExtraExpense(ctx context.Context, id string) (finances.ExtraExpense, error) {
	e, err := scanExtraExpense(s.queryRow(ctx, extraExpenseSelect+" WHERE e.id = ?", id).Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return finances.ExtraExpense{}, notFound("Extra expense not found.")
		}
		return finances.ExtraExpense{}, internalError(ctx, "GetExtraExpense", "get extra expense", err, "Failed to get the extra expense, try again later.")
	}
	return e, nil
}

func (s *SQLStorage) ListExtraExpenses(ctx context.Context, filter finances.ExtraExpenseFilter) ([]finances.ExtraExpense, error) {
	query := extraExpenseSelect + " WHERE 1 = 1"
	var args []any
	if filter.Section != "" {
		query += " AND e.section = ?"
		args = append(args, filter.Section)
	}
	if filter.State != "" {
		query += " AND e.state = ?"
		args = append(args, filter.State)
	}
	if strings.TrimSpace(filter.Search) != "" {
		query += " AND (LOWER(e.purpose) LIKE ? OR " + s.dialect.CastText("e.amount") + " LIKE ?)"
		args = append(args, likePattern(filter.Search), likePattern(filter.Search))
	}
	query += " ORDER BY e.section, tt.name"

	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, internalError(ctx, "ListExtraExpenses", "list extra expenses", err, "Failed to get extra expenses, try again later.")
	}
	defer rows.Close()

	extras := []finances.ExtraExpense{}
	for rows.Next() {
		e, err := scanExtraExpense(rows.Scan)
		if err != nil {
			return nil, internalError(ctx, "ListExtraExpenses", "scan extra expense", err, "Failed to get extra expenses, try again later.")
		}
		extras = append(extras, e)
	}
	if err := rows.Err(); err != nil {
		return nil, internalError(ctx, "ListExtraExpenses", "iterate extra expenses", err, "Failed to get extra expenses, try again later.")
	}
	return extras, nil
}

func (s *SQLStorage) ListApprovedAmounts(ctx context.Context) ([]finances.ApprovedAmount, error) {
	query := `SELECT a.transaction_type_id, t.state, t.amount
FROM accountancy_approval a
JOIN accountancy_transaction t ON t.id = a.transaction_id
WHERE a.transaction_type_id IS NOT NULL`

	rows, err := s.query(ctx, query)
	if err != nil {
		return nil, internalError(ctx, "ListApprovedAmounts", "list approved amounts", err, "Failed to compute the balance, try again later.")
	}
	defer rows.Close()

	var result []finances.ApprovedAmount
	for rows.Next() {
		var a finances.ApprovedAmount
		if err := rows.Scan(&a.TransactionTypeID, &a.TransactionState, &a.Amount); err != nil {
			return nil, internalError(ctx, "ListApprovedAmounts", "scan approved amount", err, "Failed to compute the balance, try again later.")
		}
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, internalError(ctx, "ListApprovedAmounts", "iterate approved amounts", err, "Failed to compute the balance, try again later.")
	}
	return result, nil
}
