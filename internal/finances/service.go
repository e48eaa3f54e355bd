package finances

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/google/uuid"
	appErrors "github.com/saf-slovakia/accountancy/customErrors"
	"github.com/shopspring/decimal"
)

var ibanRegex = regexp.MustCompile(`^[A-Z]{2}[0-9]{2}[A-Z0-9]{1,27}$`)

type Storage interface {
	SaveAccount(ctx context.Context, account Account) error
	UpdateAccount(ctx context.Context, account Account) error
	GetAccount(ctx context.Context, id string) (Account, error)
	ListAccounts(ctx context.Context, search string) ([]Account, error)
	SaveTransactionType(ctx context.Context, t TransactionType) error
	UpdateTransactionType(ctx context.Context, t TransactionType) error
	GetTransactionType(ctx context.Context, id string) (TransactionType, error)
	// IsTransactionTypeInUse reports whether an approval or an extra expense references the type.
	IsTransactionTypeInUse(ctx context.Context, id string) (bool, error)
	ListTransactionTypes(ctx context.Context, filter TypeFilter) ([]TransactionType, error)
	SaveExtraExpense(ctx context.Context, e ExtraExpense) error
	UpdateExtraExpense(ctx context.Context, e ExtraExpense) error
	GetExtraExpense(ctx context.Context, id string) (ExtraExpense, error)
	ListExtraExpenses(ctx context.Context, filter ExtraExpenseFilter) ([]ExtraExpense, error)
	ListApprovedAmounts(ctx context.Context) ([]ApprovedAmount, error)
}

// Service manages the reference data of the federation's finances and reports balances.
type Service struct {
	storage  Storage
	sections Sections
}

func NewService(s Storage, sections Sections) *Service {
	return &Service{
		storage:  s,
		sections: sections,
	}
}

func (s *Service) Sections() Sections {
	return s.sections
}

// ValidateAmount checks the DECIMAL(8,2) constraints shared by every money column.
func ValidateAmount(amount decimal.Decimal) error {
	if amount.Abs().GreaterThanOrEqual(MaxAmount) {
		return appErrors.ErrorResponse{
			Code:    appErrors.ErrInvalidInput,
			Message: fmt.Sprintf("Amount is too large, the limit is: %s", MaxAmount.String()),
		}
	}
	if !amount.Equal(amount.Round(2)) {
		return appErrors.ErrorResponse{
			Code:    appErrors.ErrInvalidInput,
			Message: "Amount can have at most 2 decimal places.",
		}
	}
	return nil
}

func (req AccountRequest) Validate() error {
	if strings.TrimSpace(req.Name) == "" {
		return appErrors.ErrorResponse{Code: appErrors.ErrInvalidInput, Message: "Account name cannot be empty!"}
	}
	if len(req.Name) > MAX_ACCOUNT_NAME_LENGTH {
		return appErrors.ErrorResponse{
			Code:    appErrors.ErrInvalidInput,
			Message: fmt.Sprintf("Account name so long, maximum length is %d", MAX_ACCOUNT_NAME_LENGTH),
		}
	}
	iban := NormalizeIBAN(req.IBAN)
	if len(iban) > MAX_IBAN_LENGTH || !ibanRegex.MatchString(iban) {
		return appErrors.ErrorResponse{
			Code:    appErrors.ErrInvalidInput,
			Message: "Invalid IBAN format, example valid IBAN: SK3112000000198742637541",
		}
	}
	return ValidateAmount(req.Balance)
}

func NormalizeIBAN(iban string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(iban), " ", ""))
}

func (s *Service) SaveAccount(ctx context.Context, req AccountRequest) (Account, error) {
	if err := req.Validate(); err != nil {
		return Account{}, err
	}
	account := Account{
		ID:      uuid.New().String(),
		Name:    strings.TrimSpace(req.Name),
		IBAN:    NormalizeIBAN(req.IBAN),
		Balance: req.Balance,
	}
	if err := s.storage.SaveAccount(ctx, account); err != nil {
		return Account{}, fmt.Errorf("failed to save account: %w", err)
	}
	return account, nil
}

func (s *Service) UpdateAccount(ctx context.Context, id string, req AccountRequest) (Account, error) {
	if err := req.Validate(); err != nil {
		return Account{}, err
	}
	account, err := s.storage.GetAccount(ctx, id)
	if err != nil {
		return Account{}, fmt.Errorf("failed to get account: %w", err)
	}
	account.Name = strings.TrimSpace(req.Name)
	account.IBAN = NormalizeIBAN(req.IBAN)
	account.Balance = req.Balance
	if err := s.storage.UpdateAccount(ctx, account); err != nil {
		return Account{}, fmt.Errorf("failed to update account: %w", err)
	}
	return account, nil
}

func (s *Service) ListAccounts(ctx context.Context, search string) ([]Account, error) {
	accounts, err := s.storage.ListAccounts(ctx, search)
	if err != nil {
		return nil, fmt.Errorf("failed to get accounts: %w", err)
	}
	return accounts, nil
}

func (s *Service) validateTransactionType(req TransactionTypeRequest) error {
	if !s.sections.Has(req.Section) {
		return appErrors.ErrorResponse{
			Code:    appErrors.ErrInvalidInput,
			Message: fmt.Sprintf("Unknown section: %s", req.Section),
		}
	}
	if strings.TrimSpace(req.Name) == "" {
		return appErrors.ErrorResponse{Code: appErrors.ErrInvalidInput, Message: "Transaction type name cannot be empty!"}
	}
	if len(req.Name) > MAX_TYPE_NAME_LENGTH {
		return appErrors.ErrorResponse{
			Code:    appErrors.ErrInvalidInput,
			Message: fmt.Sprintf("Transaction type name so long, maximum length is %d", MAX_TYPE_NAME_LENGTH),
		}
	}
	if req.Budget != nil {
		if req.Budget.IsNegative() {
			return appErrors.ErrorResponse{Code: appErrors.ErrInvalidInput, Message: "Budget cannot be negative."}
		}
		return ValidateAmount(*req.Budget)
	}
	return nil
}

func (s *Service) SaveTransactionType(ctx context.Context, req TransactionTypeRequest) (TransactionType, error) {
	if err := s.validateTransactionType(req); err != nil {
		return TransactionType{}, err
	}
	t := TransactionType{
		ID:      uuid.New().String(),
		Section: req.Section,
		Name:    strings.TrimSpace(req.Name),
		Budget:  req.Budget,
	}
	if err := s.storage.SaveTransactionType(ctx, t); err != nil {
		return TransactionType{}, fmt.Errorf("failed to save transaction type: %w", err)
	}
	return t, nil
}

func (s *Service) UpdateTransactionType(ctx context.Context, id string, req TransactionTypeRequest) (TransactionType, error) {
	if err := s.validateTransactionType(req); err != nil {
		return TransactionType{}, err
	}
	t, err := s.storage.GetTransactionType(ctx, id)
	if err != nil {
		return TransactionType{}, fmt.Errorf("failed to get transaction type: %w", err)
	}
	if t.Section != req.Section {
		inUse, err := s.storage.IsTransactionTypeInUse(ctx, id)
		if err != nil {
			return TransactionType{}, fmt.Errorf("failed to check transaction type usage: %w", err)
		}
		if inUse {
			return TransactionType{}, appErrors.ErrorResponse{
				Code:    appErrors.ErrConflict,
				Message: fmt.Sprintf("Transaction type '%s' is already used in section %s and cannot move to another section.", t.Name, t.Section),
			}
		}
	}
	t.Section = req.Section
	t.Name = strings.TrimSpace(req.Name)
	t.Budget = req.Budget
	if err := s.storage.UpdateTransactionType(ctx, t); err != nil {
		return TransactionType{}, fmt.Errorf("failed to update transaction type: %w", err)
	}
	return t, nil
}

func (s *Service) ListTransactionTypes(ctx context.Context, filter TypeFilter) ([]TransactionType, error) {
	types, err := s.storage.ListTransactionTypes(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction types: %w", err)
	}
	return types, nil
}

func (s *Service) validateExtraExpense(ctx context.Context, req ExtraExpenseRequest) (TransactionType, error) {
	if !slices.Contains(ExtraExpenseStates, req.State) {
		return TransactionType{}, appErrors.ErrorResponse{
			Code:    appErrors.ErrInvalidInput,
			Message: fmt.Sprintf("Invalid extra expense state: %s, allowed states: %s", req.State, strings.Join(ExtraExpenseStates, ", ")),
		}
	}
	if !s.sections.Has(req.Section) {
		return TransactionType{}, appErrors.ErrorResponse{
			Code:    appErrors.ErrInvalidInput,
			Message: fmt.Sprintf("Unknown section: %s", req.Section),
		}
	}
	if req.Amount.IsZero() {
		return TransactionType{}, appErrors.ErrorResponse{Code: appErrors.ErrInvalidInput, Message: "Extra expense amount cannot be zero."}
	}
	if err := ValidateAmount(req.Amount); err != nil {
		return TransactionType{}, err
	}
	if len(req.Purpose) > MAX_PURPOSE_LENGTH {
		return TransactionType{}, appErrors.ErrorResponse{
			Code:    appErrors.ErrInvalidInput,
			Message: fmt.Sprintf("Purpose so long, maximum allowed length is: %d", MAX_PURPOSE_LENGTH),
		}
	}

	t, err := s.storage.GetTransactionType(ctx, req.TransactionTypeID)
	if err != nil {
		return TransactionType{}, fmt.Errorf("failed to get transaction type: %w", err)
	}
	if t.Section != req.Section {
		return TransactionType{}, appErrors.ErrorResponse{
			Code:    appErrors.ErrInvalidInput,
			Message: fmt.Sprintf("Transaction type '%s' belongs to section %s, not %s.", t.Name, t.Section, req.Section),
		}
	}
	return t, nil
}

func (s *Service) SaveExtraExpense(ctx context.Context, req ExtraExpenseRequest) (ExtraExpense, error) {
	t, err := s.validateExtraExpense(ctx, req)
	if err != nil {
		return ExtraExpense{}, err
	}
	e := ExtraExpense{
		ID:                uuid.New().String(),
		Amount:            req.Amount,
		State:             req.State,
		Section:           req.Section,
		TransactionTypeID: t.ID,
		TransactionType:   t.Name,
		Purpose:           req.Purpose,
	}
	if err := s.storage.SaveExtraExpense(ctx, e); err != nil {
		return ExtraExpense{}, fmt.Errorf("failed to save extra expense: %w", err)
	}
	return e, nil
}

func (s *Service) UpdateExtraExpense(ctx context.Context, id string, req ExtraExpenseRequest) (ExtraExpense, error) {
	t, err := s.validateExtraExpense(ctx, req)
	if err != nil {
		return ExtraExpense{}, err
	}
	e, err := s.storage.GetExtraExpense(ctx, id)
	if err != nil {
		return ExtraExpense{}, fmt.Errorf("failed to get extra expense: %w", err)
	}
	e.Amount = req.Amount
	e.State = req.State
	e.Section = req.Section
	e.TransactionTypeID = t.ID
	e.TransactionType = t.Name
	e.Purpose = req.Purpose
	if err := s.storage.UpdateExtraExpense(ctx, e); err != nil {
		return ExtraExpense{}, fmt.Errorf("failed to update extra expense: %w", err)
	}
	return e, nil
}

func (s *Service) ListExtraExpenses(ctx context.Context, filter ExtraExpenseFilter) ([]ExtraExpense, error) {
	extras, err := s.storage.ListExtraExpenses(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to get extra expenses: %w", err)
	}
	return extras, nil
}
