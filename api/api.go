package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/0xcafe-io/iz"
	"github.com/goccy/go-json"
	appErrors "github.com/saf-slovakia/accountancy/customErrors"
	"github.com/saf-slovakia/accountancy/internal/accountancy"
	"github.com/saf-slovakia/accountancy/internal/auth"
	"github.com/saf-slovakia/accountancy/internal/contextutil"
	"github.com/saf-slovakia/accountancy/internal/finances"
	"github.com/saf-slovakia/accountancy/logging"
)

// MULTIPART_MEMORY is how much of an upload is kept in memory, the rest goes to temp files.
const MULTIPART_MEMORY = 1 << 20

type Pinger interface {
	Ping(ctx context.Context) error
	GetStorageType() string
}

type Api struct {
	Auth     *auth.Service
	Books    *accountancy.Bookkeeper
	Finances *finances.Service
	Storage  Pinger
}

func NewApi(authService *auth.Service, books *accountancy.Bookkeeper, financeService *finances.Service, storage Pinger) *Api {
	return &Api{
		Auth:     authService,
		Books:    books,
		Finances: financeService,
		Storage:  storage,
	}
}

// Routes builds the whole HTTP surface, admin included.
func (api *Api) Routes() http.Handler {
	server := http.NewServeMux()

	// USER ENDPOINTS.
	server.HandleFunc("POST /api/register", iz.Bind(api.SaveUserHandler))                     // Create User
	server.HandleFunc("POST /api/login", iz.Bind(api.LoginUserHandler))                       // Login User
	server.Handle("GET /api/logout", api.RequireSession(iz.Bind(api.LogoutUserHandler)))      // Logout User
	server.Handle("GET /api/check-token", api.RequireSession(iz.Bind(api.CheckTokenHandler))) // Check User Token

	// TRANSACTION ENDPOINTS.
	server.Handle("POST /api/transaction", api.RequireSession(iz.Bind(api.SaveTransactionHandler)))                       // Create Transaction
	server.Handle("GET /api/transaction", api.RequireSession(iz.Bind(api.GetOwnTransactionsHandler)))                     // Own Transactions
	server.Handle("GET /api/transaction/{id}", api.RequireSession(iz.Bind(api.GetTransactionByIdHandler)))                // Get Transaction by ID
	server.Handle("PUT /api/transaction/{id}", api.RequireSession(iz.Bind(api.UpdateTransactionHandler)))                 // Edit or resubmit Transaction
	server.Handle("POST /api/transaction/{id}/invoice", api.RequireSession(iz.Bind(api.UploadInvoiceHandler)))            // Upload PDF invoice
	server.Handle("POST /api/transaction/{id}/request-approval", api.RequireSession(iz.Bind(api.RequestApprovalHandler))) // Ask section manager

	// PUBLIC ENDPOINTS.
	server.HandleFunc("GET /ledger", iz.Bind(api.LedgerHandler))   // Public ledger
	server.HandleFunc("GET /balance", iz.Bind(api.BalanceHandler)) // Balance per section
	server.HandleFunc("GET /health", iz.Bind(api.HealthHandler))   // Liveness

	api.registerAdmin(server)

	return WithTraceID(server)
}

func currentUser(r *iz.Request) auth.User {
	user, _ := UserFromContext(r.Context())
	return user
}

func (api *Api) SaveUserHandler(r *iz.Request) iz.Responder {
	var newUserReq SaveUserRequest
	if err := json.NewDecoder(r.Body).Decode(&newUserReq); err != nil {
		msg := fmt.Sprintf("invalid request body: %s", err.Error())
		return iz.Respond().Status(400).Text(msg)
	}

	newUser := auth.NewUser{
		UserName:      newUserReq.UserName,
		FullName:      newUserReq.FullName,
		PasswordPlain: newUserReq.Password,
		Email:         newUserReq.Email,
	}

	if err := newUser.ValidateUserFields(); err != nil {
		return iz.Respond().Status(httpStatusFromError(err)).JSON(errorResponse(err))
	}

	token, err := api.Auth.SaveUser(r.Context(), newUser)
	if err != nil {
		return iz.Respond().Status(httpStatusFromError(err)).JSON(errorResponse(err))
	}

	resp := UserCreatedResponse{
		Message: "Registration Completed",
		Token:   token,
	}
	return iz.Respond().Status(201).JSON(resp)
}

func (api *Api) LoginUserHandler(r *iz.Request) iz.Responder {
	var loginReq UserLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&loginReq); err != nil {
		msg := fmt.Sprintf("invalid request body: %s", err.Error())
		return iz.Respond().Status(400).Text(msg)
	}

	token, err := api.Auth.GenerateSession(r.Context(), auth.UserCredentialsPure{
		UserName:      loginReq.UserName,
		PasswordPlain: loginReq.Password,
	})
	if err != nil {
		return iz.Respond().Status(httpStatusFromError(err)).JSON(errorResponse(err))
	}

	return iz.Respond().Status(200).JSON(LoginResponse{Message: "Login successful", Token: token})
}

func (api *Api) LogoutUserHandler(r *iz.Request) iz.Responder {
	user := currentUser(r)
	if err := api.Auth.LogoutUser(r.Context(), user.ID, r.Header.Get("Authorization")); err != nil {
		return iz.Respond().Status(httpStatusFromError(err)).JSON(errorResponse(err))
	}
	return iz.Respond().Status(200).Text("logout successful")
}

func (api *Api) CheckTokenHandler(r *iz.Request) iz.Responder {
	user := currentUser(r)
	return iz.Respond().Status(200).JSON(map[string]string{
		"username": user.UserName,
		"fullname": user.FullName,
		"email":    user.Email,
	})
}

func (api *Api) SaveTransactionHandler(r *iz.Request) iz.Responder {
	var body TransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		msg := fmt.Sprintf("failed to parse save transaction request: %v", err)
		return iz.Respond().Status(400).Text(msg)
	}
	req, err := body.toDomain()
	if err != nil {
		return iz.Respond().Status(400).JSON(errorResponse(err))
	}

	t, err := api.Books.CreateTransaction(r.Context(), currentUser(r), req)
	if err != nil {
		return iz.Respond().Status(httpStatusFromError(err)).JSON(errorResponse(err))
	}
	return iz.Respond().Status(201).JSON(TransactionToHttp(t))
}

func (api *Api) GetOwnTransactionsHandler(r *iz.Request) iz.Responder {
	records, err := api.Books.ListRecords(r.Context(), accountancy.RecordFilter{CreatedBy: currentUser(r).ID})
	if err != nil {
		return iz.Respond().Status(httpStatusFromError(err)).JSON(errorResponse(err))
	}
	items := make([]TransactionItem, 0, len(records))
	for _, record := range records {
		items = append(items, RecordToHttp(record))
	}
	return iz.Respond().Status(200).JSON(items)
}

func (api *Api) GetTransactionByIdHandler(r *iz.Request) iz.Responder {
	record, err := api.Books.GetRecord(r.Context(), r.PathValue("id"))
	if err != nil {
		return iz.Respond().Status(httpStatusFromError(err)).JSON(errorResponse(err))
	}
	return iz.Respond().Status(200).JSON(RecordToHttp(record))
}

// ownTransaction loads a transaction only its requester may change.
func (api *Api) ownTransaction(r *iz.Request) (accountancy.Record, error) {
	record, err := api.Books.GetRecord(r.Context(), r.PathValue("id"))
	if err != nil {
		return accountancy.Record{}, err
	}
	if record.CreatedBy != currentUser(r).ID {
		return accountancy.Record{}, appErrors.ErrorResponse{
			Code:    appErrors.ErrAccessDenied,
			Message: "Only the requester can change this transaction.",
		}
	}
	return record, nil
}

func (api *Api) UpdateTransactionHandler(r *iz.Request) iz.Responder {
	record, err := api.ownTransaction(r)
	if err != nil {
		return iz.Respond().Status(httpStatusFromError(err)).JSON(errorResponse(err))
	}

	var body TransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		msg := fmt.Sprintf("failed to parse update transaction request: %v", err)
		return iz.Respond().Status(400).Text(msg)
	}
	req, err := body.toDomain()
	if err != nil {
		return iz.Respond().Status(400).JSON(errorResponse(err))
	}

	t, err := api.Books.UpdateTransaction(r.Context(), record.ID, req)
	if err != nil {
		return iz.Respond().Status(httpStatusFromError(err)).JSON(errorResponse(err))
	}
	return iz.Respond().Status(200).JSON(TransactionToHttp(t))
}

func (api *Api) UploadInvoiceHandler(r *iz.Request) iz.Responder {
	record, err := api.ownTransaction(r)
	if err != nil {
		return iz.Respond().Status(httpStatusFromError(err)).JSON(errorResponse(err))
	}

	if err := r.ParseMultipartForm(MULTIPART_MEMORY); err != nil {
		msg := fmt.Sprintf("invalid multipart form: %v", err)
		return iz.Respond().Status(400).Text(msg)
	}
	file, header, err := r.FormFile("invoice")
	if err != nil {
		return iz.Respond().Status(400).Text("the 'invoice' file is required")
	}
	defer file.Close()

	t, err := api.Books.AttachInvoice(r.Context(), record.ID, header.Filename, file)
	if err != nil {
		return iz.Respond().Status(httpStatusFromError(err)).JSON(errorResponse(err))
	}
	return iz.Respond().Status(200).JSON(TransactionToHttp(t))
}

func (api *Api) RequestApprovalHandler(r *iz.Request) iz.Responder {
	record, err := api.ownTransaction(r)
	if err != nil {
		return iz.Respond().Status(httpStatusFromError(err)).JSON(errorResponse(err))
	}
	if err := api.Books.SendReminder(r.Context(), record.ID); err != nil {
		return iz.Respond().Status(httpStatusFromError(err)).JSON(errorResponse(err))
	}
	return iz.Respond().Status(200).Text("approval requested")
}

func (api *Api) LedgerHandler(r *iz.Request) iz.Responder {
	page := 1
	if raw := r.URL.Query().Get("page"); raw != "" {
		p, err := strconv.Atoi(raw)
		if err != nil || p < 1 {
			msg := fmt.Sprintf("invalid page: %s", raw)
			return iz.Respond().Status(400).Text(msg)
		}
		page = p
	}

	records, err := api.Books.PublicLedger(r.Context(), page)
	if err != nil {
		logging.Logger.Errorf("[TraceID=%s] | failed to get ledger in Api.LedgerHandler() function | Error: %v", contextutil.TraceIDFromContext(r.Context()), err)
		return iz.Respond().Status(httpStatusFromError(err)).JSON(errorResponse(err))
	}

	resp := LedgerResponse{Page: page, Transactions: make([]LedgerItem, 0, len(records))}
	for _, record := range records {
		resp.Transactions = append(resp.Transactions, LedgerToHttp(record))
	}
	return iz.Respond().Status(200).JSON(resp)
}

func (api *Api) BalanceHandler(r *iz.Request) iz.Responder {
	report, err := api.Finances.Balance(r.Context())
	if err != nil {
		logging.Logger.Errorf("[TraceID=%s] | failed to build balance in Api.BalanceHandler() function | Error: %v", contextutil.TraceIDFromContext(r.Context()), err)
		return iz.Respond().Status(httpStatusFromError(err)).JSON(errorResponse(err))
	}

	resp := make([]SectionBalanceResponse, 0, len(report))
	for _, section := range report {
		resp = append(resp, BalanceToHttp(section))
	}
	return iz.Respond().Status(200).JSON(resp)
}

func (api *Api) HealthHandler(r *iz.Request) iz.Responder {
	if err := api.Storage.Ping(r.Context()); err != nil {
		logging.Logger.Errorf("[TraceID=%s] | storage ping failed | Error: %v", contextutil.TraceIDFromContext(r.Context()), err)
		return iz.Respond().Status(503).JSON(HealthResponse{Status: "unavailable", Storage: api.Storage.GetStorageType()})
	}
	return iz.Respond().Status(200).JSON(HealthResponse{Status: "ok", Storage: api.Storage.GetStorageType()})
}
