package admin

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/0xcafe-io/iz"
	"github.com/goccy/go-json"
	appErrors "github.com/saf-slovakia/accountancy/customErrors"
	"github.com/saf-slovakia/accountancy/internal/contextutil"
	"github.com/saf-slovakia/accountancy/logging"
)

const DEFAULT_PER_PAGE = 100

// ALL_VALUES disables a default filter, e.g. ?state=all.
const ALL_VALUES = "all"

var reservedParams = []string{"q", "o", "page", "format"}

type Query struct {
	Filters  map[string]string
	Search   string
	Ordering string
	Page     int
	PerPage  int
}

// Offset is zero when the query is not paged.
func (q Query) Offset() int {
	if q.PerPage <= 0 || q.Page <= 1 {
		return 0
	}
	return (q.Page - 1) * q.PerPage
}

type Column[T any] struct {
	Header string
	Value  func(T) string
}

// Action is a bulk operation run once per selected id.
type Action struct {
	Name  string
	Label string
	Run   func(ctx context.Context, id string, params map[string]string) error
}

type Skip struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

type Result struct {
	Done    []string `json:"done"`
	Skipped []Skip   `json:"skipped"`
}

type Resource[T any] struct {
	Name    string
	PerPage int
	// Filters lists the query parameters List understands.
	Filters        []string
	DefaultFilters map[string]string
	List           func(ctx context.Context, q Query) ([]T, error)
	// ID keys a row for actions, ListResponse.IDs follows the row order.
	ID func(T) string
	// Render shapes a row for the JSON listing, the row itself when nil.
	Render    func(T) any
	Columns   []Column[T]
	Actions   []Action
	Skippable func(error) bool
}

// Site is where resources get mounted.
type Site struct {
	Mux    *http.ServeMux
	Prefix string
	Auth   func(http.Handler) http.Handler
	Status func(error) int
}

// REQUESTS START:
type ActionRequest struct {
	IDs    []string          `json:"ids"`
	Params map[string]string `json:"params"`
}

// REQUESTS END:

// RESPONSES:
type ListResponse struct {
	Resource string   `json:"resource"`
	Page     int      `json:"page"`
	PerPage  int      `json:"per_page"`
	IDs      []string `json:"ids"`
	Results  []any    `json:"results"`
	Actions  []Info   `json:"actions"`
}

type Info struct {
	Name  string `json:"name"`
	Label string `json:"label"`
}

type ActionError struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Failed  string   `json:"failed"`
	Done    []string `json:"done"`
	Skipped []Skip   `json:"skipped"`
}

// ForEach runs action for every id. Skippable errors are collected and the run goes on.
// Any other error stops the run and is returned together with what was done so far.
func ForEach(ctx context.Context, ids []string, run func(ctx context.Context, id string) error, skippable func(error) bool) (Result, string, error) {
	traceID := contextutil.TraceIDFromContext(ctx)
	result := Result{Done: []string{}, Skipped: []Skip{}}

	for _, id := range ids {
		err := run(ctx, id)
		if err == nil {
			result.Done = append(result.Done, id)
			continue
		}
		if skippable != nil && skippable(err) {
			logging.Logger.Warnf("[TraceID=%s] | skipped %s: %v", traceID, id, err)
			result.Skipped = append(result.Skipped, Skip{ID: id, Reason: appErrors.MessageOf(err)})
			continue
		}
		return result, id, err
	}
	return result, "", nil
}

// ParseQuery reads filters, search, ordering and page from the URL. Unknown filters are rejected.
func ParseQuery[T any](values url.Values, res Resource[T]) (Query, error) {
	q := Query{
		Filters:  map[string]string{},
		Search:   strings.TrimSpace(values.Get("q")),
		Ordering: strings.TrimSpace(values.Get("o")),
		Page:     1,
		PerPage:  res.PerPage,
	}
	if q.PerPage <= 0 {
		q.PerPage = DEFAULT_PER_PAGE
	}

	if raw := values.Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			return Query{}, appErrors.ErrorResponse{
				Code:    appErrors.ErrInvalidInput,
				Message: fmt.Sprintf("invalid page: %s", raw),
			}
		}
		q.Page = page
	}

	for key, value := range res.DefaultFilters {
		q.Filters[key] = value
	}
	for key := range values {
		if slices.Contains(reservedParams, key) {
			continue
		}
		if !slices.Contains(res.Filters, key) {
			return Query{}, appErrors.ErrorResponse{
				Code:    appErrors.ErrInvalidInput,
				Message: fmt.Sprintf("unknown filter: %s, allowed filters: %s", key, strings.Join(res.Filters, ", ")),
			}
		}
		value := strings.TrimSpace(values.Get(key))
		if value == "" || value == ALL_VALUES {
			delete(q.Filters, key)
			continue
		}
		q.Filters[key] = value
	}
	return q, nil
}

// Register mounts list, bulk action and export endpoints of res under Prefix/<name>.
func Register[T any](site *Site, res Resource[T]) {
	base := site.Prefix + "/" + res.Name
	protect := site.Auth
	if protect == nil {
		protect = func(h http.Handler) http.Handler { return h }
	}

	site.Mux.Handle("GET "+base, protect(iz.Bind(func(r *iz.Request) iz.Responder {
		return listHandler(site, res, r)
	})))
	site.Mux.Handle("POST "+base+"/actions/{action}", protect(iz.Bind(func(r *iz.Request) iz.Responder {
		return actionHandler(site, res, r)
	})))
	site.Mux.Handle("GET "+base+"/export", protect(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		exportHandler(site, res, w, r)
	})))
}

func status(site *Site, err error) int {
	if site.Status != nil {
		return site.Status(err)
	}
	return http.StatusInternalServerError
}

func errorBody(err error) appErrors.ErrorResponse {
	return appErrors.ErrorResponse{Code: appErrors.CodeOf(err), Message: appErrors.MessageOf(err)}
}

func listHandler[T any](site *Site, res Resource[T], r *iz.Request) iz.Responder {
	q, err := ParseQuery(r.URL.Query(), res)
	if err != nil {
		return iz.Respond().Status(status(site, err)).JSON(errorBody(err))
	}

	rows, err := res.List(r.Context(), q)
	if err != nil {
		return iz.Respond().Status(status(site, err)).JSON(errorBody(err))
	}

	resp := ListResponse{
		Resource: res.Name,
		Page:     q.Page,
		PerPage:  q.PerPage,
		IDs:      make([]string, 0, len(rows)),
		Results:  make([]any, 0, len(rows)),
		Actions:  make([]Info, 0, len(res.Actions)),
	}
	for _, row := range rows {
		if res.ID != nil {
			resp.IDs = append(resp.IDs, res.ID(row))
		}
		if res.Render != nil {
			resp.Results = append(resp.Results, res.Render(row))
		} else {
			resp.Results = append(resp.Results, row)
		}
	}
	for _, action := range res.Actions {
		resp.Actions = append(resp.Actions, Info{Name: action.Name, Label: action.Label})
	}
	return iz.Respond().Status(200).JSON(resp)
}

func actionHandler[T any](site *Site, res Resource[T], r *iz.Request) iz.Responder {
	name := r.PathValue("action")
	idx := slices.IndexFunc(res.Actions, func(a Action) bool { return a.Name == name })
	if idx < 0 {
		msg := fmt.Sprintf("unknown action '%s' for %s", name, res.Name)
		return iz.Respond().Status(404).JSON(appErrors.ErrorResponse{Code: appErrors.ErrNotFound, Message: msg})
	}
	action := res.Actions[idx]

	var req ActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		msg := fmt.Sprintf("invalid request body: %s", err.Error())
		return iz.Respond().Status(400).JSON(appErrors.ErrorResponse{Code: appErrors.ErrInvalidInput, Message: msg})
	}
	if len(req.IDs) == 0 {
		msg := "select at least one item"
		return iz.Respond().Status(400).JSON(appErrors.ErrorResponse{Code: appErrors.ErrInvalidInput, Message: msg})
	}

	run := func(ctx context.Context, id string) error {
		return action.Run(ctx, id, req.Params)
	}
	result, failed, err := ForEach(r.Context(), req.IDs, run, res.Skippable)
	if err != nil {
		logging.Logger.Errorf("[TraceID=%s] | failed to run '%s' on %s/%s in admin.actionHandler() function | Error: %v",
			contextutil.TraceIDFromContext(r.Context()), name, res.Name, failed, err)
		return iz.Respond().Status(status(site, err)).JSON(ActionError{
			Code:    appErrors.CodeOf(err),
			Message: appErrors.MessageOf(err),
			Failed:  failed,
			Done:    result.Done,
			Skipped: result.Skipped,
		})
	}
	return iz.Respond().Status(200).JSON(result)
}

func exportHandler[T any](site *Site, res Resource[T], w http.ResponseWriter, r *http.Request) {
	writeError := func(err error) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status(site, err))
		json.NewEncoder(w).Encode(errorBody(err))
	}

	q, err := ParseQuery(r.URL.Query(), res)
	if err != nil {
		writeError(err)
		return
	}
	q.Page, q.PerPage = 1, 0

	rows, err := res.List(r.Context(), q)
	if err != nil {
		writeError(err)
		return
	}

	format := strings.ToLower(r.URL.Query().Get("format"))
	if format == "" {
		format = "csv"
	}
	filename := fmt.Sprintf("%s_export.%s", res.Name, format)

	switch format {
	case "csv":
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", "attachment; filename="+filename)
		err = WriteCSV(w, res.Columns, rows)
	case "xlsx":
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", "attachment; filename="+filename)
		err = WriteXLSX(w, res.Name, res.Columns, rows)
	default:
		writeError(appErrors.ErrorResponse{
			Code:    appErrors.ErrInvalidInput,
			Message: fmt.Sprintf("unsupported export format: %s, allowed: csv, xlsx", format),
		})
		return
	}
	if err != nil {
		logging.Logger.Errorf("[TraceID=%s] | failed to export %s in admin.exportHandler() function | Error: %v",
			contextutil.TraceIDFromContext(r.Context()), res.Name, err)
	}
}
