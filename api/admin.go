package api

import (
	"context"
	"net/http"

	"github.com/0xcafe-io/iz"
	"github.com/goccy/go-json"
	"github.com/saf-slovakia/accountancy/internal/accountancy"
	"github.com/saf-slovakia/accountancy/internal/admin"
	"github.com/saf-slovakia/accountancy/internal/finances"
)

func (api *Api) registerAdmin(server *http.ServeMux) {
	site := &admin.Site{
		Mux:    server,
		Prefix: "/admin",
		Auth:   api.RequireSession,
		Status: httpStatusFromError,
	}

	admin.Register(site, api.transactionsResource())
	admin.Register(site, api.approvalsResource())
	admin.Register(site, api.itemsResource())
	admin.Register(site, api.accountsResource())
	admin.Register(site, api.transactionTypesResource())
	admin.Register(site, api.extraExpensesResource())

	// ADMIN EDIT ENDPOINTS.
	server.Handle("PUT /admin/approvals/{id}", api.RequireSession(iz.Bind(api.UpdateApprovalHandler)))
	server.Handle("PUT /admin/items/{id}", api.RequireSession(iz.Bind(api.UpdateItemHandler)))
	server.Handle("POST /admin/accounts", api.RequireSession(iz.Bind(api.SaveAccountHandler)))
	server.Handle("PUT /admin/accounts/{id}", api.RequireSession(iz.Bind(api.UpdateAccountHandler)))
	server.Handle("POST /admin/transaction_types", api.RequireSession(iz.Bind(api.SaveTransactionTypeHandler)))
	server.Handle("PUT /admin/transaction_types/{id}", api.RequireSession(iz.Bind(api.UpdateTransactionTypeHandler)))
	server.Handle("POST /admin/extra_expenses", api.RequireSession(iz.Bind(api.SaveExtraExpenseHandler)))
	server.Handle("PUT /admin/extra_expenses/{id}", api.RequireSession(iz.Bind(api.UpdateExtraExpenseHandler)))
}

// recordFilter maps admin query parameters onto the transaction filter.
func recordFilter(q admin.Query) accountancy.RecordFilter {
	filter := accountancy.RecordFilter{
		Section:           q.Filters["section"],
		TransactionTypeID: q.Filters["transaction_type"],
		AccountID:         q.Filters["account"],
		CreatedBy:         q.Filters["created_by"],
		Search:            q.Search,
		Ordering:          q.Ordering,
		Limit:             q.PerPage,
		Offset:            q.Offset(),
	}
	if state, ok := q.Filters["state"]; ok {
		filter.States = []string{state}
	}
	return filter
}

func page[T any](rows []T, q admin.Query) []T {
	if q.PerPage <= 0 {
		return rows
	}
	start := min(q.Offset(), len(rows))
	end := min(start+q.PerPage, len(rows))
	return rows[start:end]
}

func dateOrEmpty(r accountancy.Record) string {
	if r.Item == nil || r.Item.DatePayed == nil {
		return ""
	}
	return r.Item.DatePayed.Format(DATE_LAYOUT)
}

var recordColumns = []admin.Column[accountancy.Record]{
	{Header: "ID", Value: func(r accountancy.Record) string { return r.ID }},
	{Header: "Date created", Value: func(r accountancy.Record) string { return r.DateCreated.Format("2006-01-02 15:04:05") }},
	{Header: "State", Value: func(r accountancy.Record) string { return r.State }},
	{Header: "Section", Value: func(r accountancy.Record) string { return r.Section }},
	{Header: "Amount", Value: func(r accountancy.Record) string { return r.Amount.StringFixed(2) }},
	{Header: "Description", Value: func(r accountancy.Record) string { return r.Description }},
	{Header: "Provider", Value: func(r accountancy.Record) string { return r.Provider }},
	{Header: "Business ID", Value: func(r accountancy.Record) string { return r.BusinessID }},
	{Header: "Invoice number", Value: func(r accountancy.Record) string { return r.InvoiceNumber }},
	{Header: "Requester", Value: func(r accountancy.Record) string { return r.RequesterName }},
	{Header: "Transaction type", Value: func(r accountancy.Record) string { return r.TransactionTypeName }},
	{Header: "Date payed", Value: dateOrEmpty},
	{Header: "Account", Value: func(r accountancy.Record) string { return r.AccountName }},
}

func (api *Api) recordResource(name string, defaults map[string]string, base accountancy.RecordFilter, actions []admin.Action) admin.Resource[accountancy.Record] {
	return admin.Resource[accountancy.Record]{
		Name:           name,
		Filters:        []string{"state", "section", "transaction_type", "account", "created_by"},
		DefaultFilters: defaults,
		List: func(ctx context.Context, q admin.Query) ([]accountancy.Record, error) {
			filter := recordFilter(q)
			filter.WithApproval = base.WithApproval
			filter.WithItem = base.WithItem
			return api.Books.ListRecords(ctx, filter)
		},
		ID:        func(r accountancy.Record) string { return r.ID },
		Render:    func(r accountancy.Record) any { return RecordToHttp(r) },
		Columns:   recordColumns,
		Actions:   actions,
		Skippable: accountancy.IsSkippable,
	}
}

// perID adapts a lifecycle call to the bulk action signature.
func perID(run func(ctx context.Context, id string) error) func(ctx context.Context, id string, params map[string]string) error {
	return func(ctx context.Context, id string, params map[string]string) error {
		return run(ctx, id)
	}
}

func (api *Api) transactionsResource() admin.Resource[accountancy.Record] {
	return api.recordResource("transactions",
		map[string]string{"state": accountancy.StateCreated},
		accountancy.RecordFilter{},
		[]admin.Action{
			{Name: "send_reminder", Label: "Send reminder", Run: perID(api.Books.SendReminder)},
			{Name: "request_approval", Label: "Request approval", Run: perID(api.Books.SendReminder)},
		})
}

func (api *Api) approvalsResource() admin.Resource[accountancy.Record] {
	return api.recordResource("approvals",
		map[string]string{"state": accountancy.StateCreated},
		accountancy.RecordFilter{WithApproval: true},
		[]admin.Action{
			{Name: "send_reminder", Label: "Send payment reminder", Run: perID(api.Books.SendPaymentReminder)},
			{Name: "approve", Label: "Approve", Run: perID(func(ctx context.Context, id string) error {
				user, _ := UserFromContext(ctx)
				return api.Books.Approve(ctx, user, id)
			})},
			{Name: "disapprove", Label: "Disapprove", Run: perID(func(ctx context.Context, id string) error {
				return api.Books.Disapprove(ctx, id, accountancy.BySectionManager)
			})},
		})
}

func (api *Api) itemsResource() admin.Resource[accountancy.Record] {
	return api.recordResource("items",
		map[string]string{"state": accountancy.StateApproved},
		accountancy.RecordFilter{WithItem: true},
		[]admin.Action{
			{Name: "make_public", Label: "Make public", Run: perID(api.Books.MakePublic)},
			{Name: "make_private", Label: "Make private", Run: perID(api.Books.MakePrivate)},
			{Name: "pay", Label: "Pay", Run: perID(func(ctx context.Context, id string) error {
				user, _ := UserFromContext(ctx)
				return api.Books.Pay(ctx, user, id)
			})},
			{Name: "disapprove", Label: "Disapprove", Run: perID(func(ctx context.Context, id string) error {
				return api.Books.Disapprove(ctx, id, accountancy.BySAFManager)
			})},
			{Name: "return_to_approval", Label: "Return to approval", Run: perID(api.Books.ReturnToApproval)},
		})
}

func (api *Api) accountsResource() admin.Resource[finances.Account] {
	return admin.Resource[finances.Account]{
		Name: "accounts",
		List: func(ctx context.Context, q admin.Query) ([]finances.Account, error) {
			accounts, err := api.Finances.ListAccounts(ctx, q.Search)
			return page(accounts, q), err
		},
		ID:     func(a finances.Account) string { return a.ID },
		Render: func(a finances.Account) any { return AccountToHttp(a) },
		Columns: []admin.Column[finances.Account]{
			{Header: "ID", Value: func(a finances.Account) string { return a.ID }},
			{Header: "Name", Value: func(a finances.Account) string { return a.Name }},
			{Header: "IBAN", Value: func(a finances.Account) string { return a.IBAN }},
			{Header: "Balance", Value: func(a finances.Account) string { return a.Balance.StringFixed(2) }},
		},
	}
}

func (api *Api) transactionTypesResource() admin.Resource[finances.TransactionType] {
	return admin.Resource[finances.TransactionType]{
		Name:    "transaction_types",
		Filters: []string{"section"},
		List: func(ctx context.Context, q admin.Query) ([]finances.TransactionType, error) {
			types, err := api.Finances.ListTransactionTypes(ctx, finances.TypeFilter{Section: q.Filters["section"], Search: q.Search})
			return page(types, q), err
		},
		ID:     func(t finances.TransactionType) string { return t.ID },
		Render: func(t finances.TransactionType) any { return TransactionTypeToHttp(t) },
		Columns: []admin.Column[finances.TransactionType]{
			{Header: "ID", Value: func(t finances.TransactionType) string { return t.ID }},
			{Header: "Section", Value: func(t finances.TransactionType) string { return t.Section }},
			{Header: "Name", Value: func(t finances.TransactionType) string { return t.Name }},
			{Header: "Budget", Value: func(t finances.TransactionType) string {
				if t.Budget == nil {
					return ""
				}
				return t.Budget.StringFixed(2)
			}},
		},
	}
}

func (api *Api) extraExpensesResource() admin.Resource[finances.ExtraExpense] {
	return admin.Resource[finances.ExtraExpense]{
		Name:    "extra_expenses",
		Filters: []string{"section", "state"},
		List: func(ctx context.Context, q admin.Query) ([]finances.ExtraExpense, error) {
			extras, err := api.Finances.ListExtraExpenses(ctx, finances.ExtraExpenseFilter{
				Section: q.Filters["section"],
				State:   q.Filters["state"],
				Search:  q.Search,
			})
			return page(extras, q), err
		},
		ID:     func(e finances.ExtraExpense) string { return e.ID },
		Render: func(e finances.ExtraExpense) any { return ExtraExpenseToHttp(e) },
		Columns: []admin.Column[finances.ExtraExpense]{
			{Header: "ID", Value: func(e finances.ExtraExpense) string { return e.ID }},
			{Header: "Section", Value: func(e finances.ExtraExpense) string { return e.Section }},
			{Header: "Transaction type", Value: func(e finances.ExtraExpense) string { return e.TransactionType }},
			{Header: "State", Value: func(e finances.ExtraExpense) string { return e.State }},
			{Header: "Amount", Value: func(e finances.ExtraExpense) string { return e.Amount.StringFixed(2) }},
			{Header: "Purpose", Value: func(e finances.ExtraExpense) string { return e.Purpose }},
		},
	}
}

func decode(r *iz.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return invalidInput("invalid request body: %s", err.Error())
	}
	return nil
}

func (api *Api) UpdateApprovalHandler(r *iz.Request) iz.Responder {
	var body ApprovalUpdateRequest
	if err := decode(r, &body); err != nil {
		return iz.Respond().Status(400).JSON(errorResponse(err))
	}
	approval, err := api.Books.AssignTransactionType(r.Context(), currentUser(r), r.PathValue("id"), body.TransactionTypeID)
	if err != nil {
		return iz.Respond().Status(httpStatusFromError(err)).JSON(errorResponse(err))
	}
	return iz.Respond().Status(200).JSON(map[string]any{
		"id":                  approval.ID,
		"transaction_id":      approval.TransactionID,
		"transaction_type_id": approval.TransactionTypeID,
	})
}

func (api *Api) UpdateItemHandler(r *iz.Request) iz.Responder {
	var body ItemUpdateRequest
	if err := decode(r, &body); err != nil {
		return iz.Respond().Status(400).JSON(errorResponse(err))
	}
	datePayed, err := parseDate(body.DatePayed)
	if err != nil {
		return iz.Respond().Status(400).JSON(errorResponse(err))
	}
	accountID := body.AccountID
	if accountID != nil && *accountID == "" {
		accountID = nil
	}

	item, err := api.Books.UpdatePayment(r.Context(), currentUser(r), r.PathValue("id"), accountancy.PaymentRequest{
		DatePayed: datePayed,
		AccountID: accountID,
	})
	if err != nil {
		return iz.Respond().Status(httpStatusFromError(err)).JSON(errorResponse(err))
	}
	return iz.Respond().Status(200).JSON(map[string]any{
		"id":             item.ID,
		"transaction_id": item.TransactionID,
		"date_payed":     formatDate(item.DatePayed),
		"account_id":     item.AccountID,
	})
}

func (api *Api) SaveAccountHandler(r *iz.Request) iz.Responder {
	var body AccountRequest
	if err := decode(r, &body); err != nil {
		return iz.Respond().Status(400).JSON(errorResponse(err))
	}
	req, err := body.toDomain()
	if err != nil {
		return iz.Respond().Status(400).JSON(errorResponse(err))
	}
	account, err := api.Finances.SaveAccount(r.Context(), req)
	if err != nil {
		return iz.Respond().Status(httpStatusFromError(err)).JSON(errorResponse(err))
	}
	return iz.Respond().Status(201).JSON(AccountToHttp(account))
}

func (api *Api) UpdateAccountHandler(r *iz.Request) iz.Responder {
	var body AccountRequest
	if err := decode(r, &body); err != nil {
		return iz.Respond().Status(400).JSON(errorResponse(err))
	}
	req, err := body.toDomain()
	if err != nil {
		return iz.Respond().Status(400).JSON(errorResponse(err))
	}
	account, err := api.Finances.UpdateAccount(r.Context(), r.PathValue("id"), req)
	if err != nil {
		return iz.Respond().Status(httpStatusFromError(err)).JSON(errorResponse(err))
	}
	return iz.Respond().Status(200).JSON(AccountToHttp(account))
}

func (api *Api) SaveTransactionTypeHandler(r *iz.Request) iz.Responder {
	var body TransactionTypeRequest
	if err := decode(r, &body); err != nil {
		return iz.Respond().Status(400).JSON(errorResponse(err))
	}
	req, err := body.toDomain()
	if err != nil {
		return iz.Respond().Status(400).JSON(errorResponse(err))
	}
	t, err := api.Finances.SaveTransactionType(r.Context(), req)
	if err != nil {
		return iz.Respond().Status(httpStatusFromError(err)).JSON(errorResponse(err))
	}
	return iz.Respond().Status(201).JSON(TransactionTypeToHttp(t))
}

func (api *Api) UpdateTransactionTypeHandler(r *iz.Request) iz.Responder {
	var body TransactionTypeRequest
	if err := decode(r, &body); err != nil {
		return iz.Respond().Status(400).JSON(errorResponse(err))
	}
	req, err := body.toDomain()
	if err != nil {
		return iz.Respond().Status(400).JSON(errorResponse(err))
	}
	t, err := api.Finances.UpdateTransactionType(r.Context(), r.PathValue("id"), req)
	if err != nil {
		return iz.Respond().Status(httpStatusFromError(err)).JSON(errorResponse(err))
	}
	return iz.Respond().Status(200).JSON(TransactionTypeToHttp(t))
}

func (api *Api) SaveExtraExpenseHandler(r *iz.Request) iz.Responder {
	var body ExtraExpenseRequest
	if err := decode(r, &body); err != nil {
		return iz.Respond().Status(400).JSON(errorResponse(err))
	}
	req, err := body.toDomain()
	if err != nil {
		return iz.Respond().Status(400).JSON(errorResponse(err))
	}
	e, err := api.Finances.SaveExtraExpense(r.Context(), req)
	if err != nil {
		return iz.Respond().Status(httpStatusFromError(err)).JSON(errorResponse(err))
	}
	return iz.Respond().Status(201).JSON(ExtraExpenseToHttp(e))
}

func (api *Api) UpdateExtraExpenseHandler(r *iz.Request) iz.Responder {
	var body ExtraExpenseRequest
	if err := decode(r, &body); err != nil {
		return iz.Respond().Status(400).JSON(errorResponse(err))
	}
	req, err := body.toDomain()
	if err != nil {
		return iz.Respond().Status(400).JSON(errorResponse(err))
	}
	e, err := api.Finances.UpdateExtraExpense(r.Context(), r.PathValue("id"), req)
	if err != nil {
		return iz.Respond().Status(httpStatusFromError(err)).JSON(errorResponse(err))
	}
	return iz.Respond().Status(200).JSON(ExtraExpenseToHttp(e))
}
