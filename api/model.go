package api

import (
	"fmt"
	"strings"
	"time"

	appErrors "github.com/saf-slovakia/accountancy/customErrors"
	"github.com/saf-slovakia/accountancy/internal/accountancy"
	"github.com/saf-slovakia/accountancy/internal/finances"
	"github.com/shopspring/decimal"
)

const DATE_LAYOUT = "2006-01-02"

// REQUESTS START:
type SaveUserRequest struct {
	UserName string `json:"username"`
	FullName string `json:"fullname"`
	Password string `json:"password"`
	Email    string `json:"email"`
}

type UserLoginRequest struct {
	UserName string `json:"username"`
	Password string `json:"password"`
}

type TransactionRequest struct {
	Amount        string `json:"amount"` // string keeps "12.30" exact
	Section       string `json:"section"`
	Description   string `json:"description"`
	Provider      string `json:"provider"`
	BusinessID    string `json:"business_id"`
	InvoiceNumber string `json:"invoice_number"`
}

type ApprovalUpdateRequest struct {
	TransactionTypeID string `json:"transaction_type_id"`
}

type ItemUpdateRequest struct {
	DatePayed *string `json:"date_payed"`
	AccountID *string `json:"account_id"`
}

type AccountRequest struct {
	Name    string `json:"name"`
	IBAN    string `json:"iban"`
	Balance string `json:"balance"`
}

type TransactionTypeRequest struct {
	Section string  `json:"section"`
	Name    string  `json:"name"`
	Budget  *string `json:"budget"`
}

type ExtraExpenseRequest struct {
	Amount            string `json:"amount"`
	State             string `json:"state"`
	Section           string `json:"section"`
	TransactionTypeID string `json:"transaction_type_id"`
	Purpose           string `json:"purpose"`
}

//REQUESTS END:

//RESPONSES:

type UserCreatedResponse struct {
	Message string `json:"message"`
	Token   string `json:"token"`
}

type LoginResponse struct {
	Message string `json:"message"`
	Token   string `json:"token"`
}

type TransactionItem struct {
	ID              string  `json:"id"`
	State           string  `json:"state"`
	Amount          string  `json:"amount"`
	Section         string  `json:"section"`
	Description     string  `json:"description"`
	Provider        string  `json:"provider"`
	BusinessID      string  `json:"business_id"`
	InvoiceNumber   string  `json:"invoice_number"`
	Invoice         string  `json:"invoice"`
	CreatedBy       string  `json:"created_by"`
	CreatedAt       string  `json:"created_at"`
	Requester       string  `json:"requester,omitempty"`
	ApprovalID      *string `json:"approval_id"`
	TransactionType *string `json:"transaction_type_id"`
	TypeName        string  `json:"transaction_type,omitempty"`
	ItemID          *string `json:"item_id"`
	DatePayed       *string `json:"date_payed"`
	AccountID       *string `json:"account_id"`
	AccountName     string  `json:"account,omitempty"`
}

type LedgerItem struct {
	ID              string `json:"id"`
	DatePayed       string `json:"date_payed"`
	Amount          string `json:"amount"`
	Section         string `json:"section"`
	TransactionType string `json:"transaction_type"`
	Description     string `json:"description"`
	Provider        string `json:"provider"`
	BusinessID      string `json:"business_id"`
	InvoiceNumber   string `json:"invoice_number"`
}

type LedgerResponse struct {
	Page         int          `json:"page"`
	Transactions []LedgerItem `json:"transactions"`
}

type BalanceRowResponse struct {
	TransactionType string  `json:"transaction_type"`
	Actual          string  `json:"actual"`
	Budget          *string `json:"budget"`
}

type SectionBalanceResponse struct {
	Section string               `json:"section"`
	Label   string               `json:"label"`
	Rows    []BalanceRowResponse `json:"rows"`
	Actual  string               `json:"actual"`
	Budget  string               `json:"budget"`
}

type AccountResponse struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	IBAN    string `json:"iban"`
	Balance string `json:"balance"`
}

type TransactionTypeResponse struct {
	ID      string  `json:"id"`
	Section string  `json:"section"`
	Name    string  `json:"name"`
	Budget  *string `json:"budget"`
}

type ExtraExpenseResponse struct {
	ID                string `json:"id"`
	Amount            string `json:"amount"`
	State             string `json:"state"`
	Section           string `json:"section"`
	TransactionTypeID string `json:"transaction_type_id"`
	TransactionType   string `json:"transaction_type"`
	Purpose           string `json:"purpose"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Storage string `json:"storage"`
}

func httpStatusFromError(err error) int {
	switch appErrors.CodeOf(err) {
	case appErrors.ErrNotFound:
		return 404 // not found
	case appErrors.ErrInvalidInput:
		return 400 // bad request
	case appErrors.ErrAuth:
		return 401 // unauthorized
	case appErrors.ErrAccessDenied:
		return 403 // access denied
	case appErrors.ErrConflict:
		return 409 // conflict
	default:
		return 500 //internal error
	}
}

func errorResponse(err error) appErrors.ErrorResponse {
	return appErrors.ErrorResponse{Code: appErrors.CodeOf(err), Message: appErrors.MessageOf(err)}
}

func invalidInput(format string, args ...any) error {
	return appErrors.ErrorResponse{Code: appErrors.ErrInvalidInput, Message: fmt.Sprintf(format, args...)}
}

func parseAmount(field string, raw string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Decimal{}, invalidInput("invalid %s: '%s'", field, raw)
	}
	return amount, nil
}

func parseOptionalAmount(field string, raw *string) (*decimal.Decimal, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	amount, err := parseAmount(field, *raw)
	if err != nil {
		return nil, err
	}
	return &amount, nil
}

func parseDate(raw *string) (*time.Time, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	date, err := time.Parse(DATE_LAYOUT, strings.TrimSpace(*raw))
	if err != nil {
		return nil, invalidInput("invalid date: '%s', expected format: YYYY-MM-DD", *raw)
	}
	return &date, nil
}

func formatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(DATE_LAYOUT)
	return &s
}

func formatDecimal(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := d.StringFixed(2)
	return &s
}

func (req TransactionRequest) toDomain() (accountancy.TransactionRequest, error) {
	amount, err := parseAmount("amount", req.Amount)
	if err != nil {
		return accountancy.TransactionRequest{}, err
	}
	return accountancy.TransactionRequest{
		Amount:        amount,
		Section:       strings.ToLower(strings.TrimSpace(req.Section)),
		Description:   req.Description,
		Provider:      req.Provider,
		BusinessID:    req.BusinessID,
		InvoiceNumber: req.InvoiceNumber,
	}, nil
}

func (req AccountRequest) toDomain() (finances.AccountRequest, error) {
	balance := decimal.Zero
	if strings.TrimSpace(req.Balance) != "" {
		var err error
		if balance, err = parseAmount("balance", req.Balance); err != nil {
			return finances.AccountRequest{}, err
		}
	}
	return finances.AccountRequest{Name: req.Name, IBAN: req.IBAN, Balance: balance}, nil
}

func (req TransactionTypeRequest) toDomain() (finances.TransactionTypeRequest, error) {
	budget, err := parseOptionalAmount("budget", req.Budget)
	if err != nil {
		return finances.TransactionTypeRequest{}, err
	}
	return finances.TransactionTypeRequest{Section: req.Section, Name: req.Name, Budget: budget}, nil
}

func (req ExtraExpenseRequest) toDomain() (finances.ExtraExpenseRequest, error) {
	amount, err := parseAmount("amount", req.Amount)
	if err != nil {
		return finances.ExtraExpenseRequest{}, err
	}
	return finances.ExtraExpenseRequest{
		Amount:            amount,
		State:             req.State,
		Section:           req.Section,
		TransactionTypeID: req.TransactionTypeID,
		Purpose:           req.Purpose,
	}, nil
}

func TransactionToHttp(t accountancy.Transaction) TransactionItem {
	return TransactionItem{
		ID:            t.ID,
		State:         t.State,
		Amount:        t.Amount.StringFixed(2),
		Section:       t.Section,
		Description:   t.Description,
		Provider:      t.Provider,
		BusinessID:    t.BusinessID,
		InvoiceNumber: t.InvoiceNumber,
		Invoice:       t.Invoice,
		CreatedBy:     t.CreatedBy,
		CreatedAt:     t.DateCreated.Format("02/01/2006 15:04"),
	}
}

func RecordToHttp(r accountancy.Record) TransactionItem {
	item := TransactionToHttp(r.Transaction)
	item.Requester = r.RequesterName
	item.TypeName = r.TransactionTypeName
	item.AccountName = r.AccountName
	if r.Approval != nil {
		item.ApprovalID = &r.Approval.ID
		item.TransactionType = r.Approval.TransactionTypeID
	}
	if r.Item != nil {
		item.ItemID = &r.Item.ID
		item.DatePayed = formatDate(r.Item.DatePayed)
		item.AccountID = r.Item.AccountID
	}
	return item
}

func LedgerToHttp(r accountancy.Record) LedgerItem {
	item := LedgerItem{
		ID:              r.ID,
		Amount:          r.Amount.StringFixed(2),
		Section:         r.Section,
		TransactionType: r.TransactionTypeName,
		Description:     r.Description,
		Provider:        r.Provider,
		BusinessID:      r.BusinessID,
		InvoiceNumber:   r.InvoiceNumber,
	}
	if r.Item != nil {
		if date := formatDate(r.Item.DatePayed); date != nil {
			item.DatePayed = *date
		}
	}
	return item
}

func BalanceToHttp(b finances.SectionBalance) SectionBalanceResponse {
	resp := SectionBalanceResponse{
		Section: b.Section,
		Label:   b.Label,
		Rows:    make([]BalanceRowResponse, 0, len(b.Rows)),
		Actual:  b.Actual.StringFixed(2),
		Budget:  b.Budget.StringFixed(2),
	}
	for _, row := range b.Rows {
		resp.Rows = append(resp.Rows, BalanceRowResponse{
			TransactionType: row.Name,
			Actual:          row.Actual.StringFixed(2),
			Budget:          formatDecimal(row.Budget),
		})
	}
	return resp
}

func AccountToHttp(a finances.Account) AccountResponse {
	return AccountResponse{ID: a.ID, Name: a.Name, IBAN: a.IBAN, Balance: a.Balance.StringFixed(2)}
}

func TransactionTypeToHttp(t finances.TransactionType) TransactionTypeResponse {
	return TransactionTypeResponse{ID: t.ID, Section: t.Section, Name: t.Name, Budget: formatDecimal(t.Budget)}
}

func ExtraExpenseToHttp(e finances.ExtraExpense) ExtraExpenseResponse {
	return ExtraExpenseResponse{
		ID:                e.ID,
		Amount:            e.Amount.StringFixed(2),
		State:             e.State,
		Section:           e.Section,
		TransactionTypeID: e.TransactionTypeID,
		TransactionType:   e.TransactionType,
		Purpose:           e.Purpose,
	}
}
