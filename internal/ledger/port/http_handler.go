// Package port exposes the ledger service over HTTP. Handlers translate
// JSON requests into app-layer calls and map errors through errmap.
package port

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/finbase/finance-ledger/internal/domain"
	"github.com/finbase/finance-ledger/internal/ledger/app"
)

// ledgerService is a narrow, consumer-defined interface for the service
// operations the handler requires. The *app.LedgerService satisfies this.
type ledgerService interface {
	AccessAccount(ctx context.Context, cpf string) (*app.AccessAccountResult, error)
	ListAccounts(ctx context.Context, offset, limit int) (*app.ListAccountsResult, error)
	CreateRecord(ctx context.Context, params app.CreateRecordParams) (*app.Record, error)
	ListRecords(ctx context.Context, accountID string, offset, limit int) (*app.ListRecordsResult, error)
	UpdateRecord(ctx context.Context, accountID, recordID string, params app.UpdateRecordParams) (*app.Record, error)
	DeactivateRecord(ctx context.Context, accountID, recordID string) (*app.Record, error)
}

// tokenValidator resolves a bearer token to the account it was minted for.
type tokenValidator interface {
	Validate(tokenString string) (string, error)
}

// LedgerHandler implements the HTTP surface of the ledger service.
type LedgerHandler struct {
	svc       ledgerService
	validator tokenValidator
}

// NewLedgerHandler creates a LedgerHandler backed by the given service.
func NewLedgerHandler(svc *app.LedgerService, validator tokenValidator) *LedgerHandler {
	return &LedgerHandler{svc: svc, validator: validator}
}

// Register mounts the ledger routes on the given mux.
func (h *LedgerHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/accounts", h.accessAccount)
	mux.HandleFunc("GET /v1/accounts", h.listAccounts)
	mux.HandleFunc("POST /v1/records", h.createRecord)
	mux.HandleFunc("GET /v1/records", h.listRecords)
	mux.HandleFunc("PUT /v1/records/{id}", h.updateRecord)
	mux.HandleFunc("DELETE /v1/records/{id}", h.deactivateRecord)
}

type accessAccountRequest struct {
	CPF string `json:"cpf"`
}

type accountResponse struct {
	AccountID string `json:"account_id"`
	CPF       string `json:"cpf"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type accessAccountResponse struct {
	Account     accountResponse `json:"account"`
	AccessToken string          `json:"access_token"`
	TokenType   string          `json:"token_type"`
	ExpiresAt   string          `json:"expires_at"`
	Created     bool            `json:"created"`
}

type recordResponse struct {
	RecordID      string  `json:"record_id"`
	AccountID     string  `json:"account_id"`
	Type          string  `json:"type"`
	Category      string  `json:"category"`
	Amount        float64 `json:"amount"`
	PaymentMethod string  `json:"payment_method,omitempty"`
	Description   string  `json:"description,omitempty"`
	DueDate       string  `json:"due_date"`
	SettledDate   string  `json:"settled_date,omitempty"`
	Status        string  `json:"status"`
	Note          string  `json:"note,omitempty"`
	CreatedAt     string  `json:"created_at"`
	UpdatedAt     string  `json:"updated_at"`
}

type createRecordRequest struct {
	Type          string  `json:"type"`
	Category      string  `json:"category"`
	Amount        float64 `json:"amount"`
	PaymentMethod string  `json:"payment_method"`
	Description   string  `json:"description"`
	DueDate       string  `json:"due_date"`
	SettledDate   string  `json:"settled_date"`
	Status        string  `json:"status"`
	Note          string  `json:"note"`
}

type deactivateRecordResponse struct {
	Detail    string `json:"detail"`
	RecordID  string `json:"id"`
	Active    bool   `json:"active"`
	UpdatedAt string `json:"updated_at"`
}

type updateRecordRequest struct {
	Type          *string  `json:"type"`
	Category      *string  `json:"category"`
	Amount        *float64 `json:"amount"`
	PaymentMethod *string  `json:"payment_method"`
	Description   *string  `json:"description"`
	DueDate       *string  `json:"due_date"`
	SettledDate   *string  `json:"settled_date"`
	Status        *string  `json:"status"`
	Note          *string  `json:"note"`
}

func (h *LedgerHandler) accessAccount(w http.ResponseWriter, r *http.Request) {
	var req accessAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("decode request body: %w", domain.ErrInvalidInput))
		return
	}

	result, err := h.svc.AccessAccount(r.Context(), req.CPF)
	if err != nil {
		writeError(w, err)
		return
	}

	status := http.StatusOK
	if result.IsNewAccount {
		status = http.StatusCreated
	}

	writeJSON(w, status, accessAccountResponse{
		Account:     toAccountResponse(result.Account),
		AccessToken: result.AccessToken,
		TokenType:   "Bearer",
		ExpiresAt:   result.TokenExpiry.Format(timeFormat),
		Created:     result.IsNewAccount,
	})
}

func (h *LedgerHandler) listAccounts(w http.ResponseWriter, r *http.Request) {
	offset, limit := pageParams(r)

	result, err := h.svc.ListAccounts(r.Context(), offset, limit)
	if err != nil {
		writeError(w, err)
		return
	}

	accounts := make([]accountResponse, 0, len(result.Accounts))
	for _, account := range result.Accounts {
		accounts = append(accounts, toAccountResponse(account))
	}

	w.Header().Set("X-Total", strconv.Itoa(result.Total))
	w.Header().Set("X-Offset", strconv.Itoa(result.Offset))
	w.Header().Set("X-Limit", strconv.Itoa(result.Limit))
	writeJSON(w, http.StatusOK, accounts)
}

func (h *LedgerHandler) createRecord(w http.ResponseWriter, r *http.Request) {
	accountID, err := h.resolveAccount(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req createRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("decode request body: %w", domain.ErrInvalidInput))
		return
	}

	record, err := h.svc.CreateRecord(r.Context(), app.CreateRecordParams{
		AccountID:     accountID,
		Type:          req.Type,
		Category:      req.Category,
		Amount:        req.Amount,
		PaymentMethod: req.PaymentMethod,
		Description:   req.Description,
		DueDate:       req.DueDate,
		SettledDate:   req.SettledDate,
		Status:        req.Status,
		Note:          req.Note,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toRecordResponse(*record))
}

func (h *LedgerHandler) listRecords(w http.ResponseWriter, r *http.Request) {
	accountID, err := h.resolveAccount(r)
	if err != nil {
		writeError(w, err)
		return
	}

	offset, limit := pageParams(r)

	result, err := h.svc.ListRecords(r.Context(), accountID, offset, limit)
	if err != nil {
		writeError(w, err)
		return
	}

	records := make([]recordResponse, 0, len(result.Records))
	for _, record := range result.Records {
		records = append(records, toRecordResponse(record))
	}

	w.Header().Set("X-Total", strconv.Itoa(result.Total))
	w.Header().Set("X-Offset", strconv.Itoa(result.Offset))
	w.Header().Set("X-Limit", strconv.Itoa(result.Limit))
	w.Header().Set("X-Account-ID", result.AccountID)
	writeJSON(w, http.StatusOK, records)
}

func (h *LedgerHandler) updateRecord(w http.ResponseWriter, r *http.Request) {
	accountID, err := h.authenticate(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req updateRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("decode request body: %w", domain.ErrInvalidInput))
		return
	}

	record, err := h.svc.UpdateRecord(r.Context(), accountID, r.PathValue("id"), app.UpdateRecordParams{
		Type:          req.Type,
		Category:      req.Category,
		Amount:        req.Amount,
		PaymentMethod: req.PaymentMethod,
		Description:   req.Description,
		DueDate:       req.DueDate,
		SettledDate:   req.SettledDate,
		Status:        req.Status,
		Note:          req.Note,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toRecordResponse(*record))
}

func (h *LedgerHandler) deactivateRecord(w http.ResponseWriter, r *http.Request) {
	accountID, err := h.authenticate(r)
	if err != nil {
		writeError(w, err)
		return
	}

	record, err := h.svc.DeactivateRecord(r.Context(), accountID, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, deactivateRecordResponse{
		Detail:    fmt.Sprintf("record %s deactivated", record.RecordID),
		RecordID:  record.RecordID,
		Active:    record.Active,
		UpdatedAt: record.UpdatedAt,
	})
}

// authenticate resolves the Authorization bearer token to an account ID.
func (h *LedgerHandler) authenticate(r *http.Request) (string, error) {
	token := extractBearerToken(r)
	if token == "" {
		return "", fmt.Errorf("missing bearer token: %w", domain.ErrUnauthorized)
	}
	return h.validator.Validate(token)
}

// resolveAccount determines the acting account for the record collection
// routes. A bearer token takes precedence and is validated strictly; without
// one, an account_id query parameter is accepted. Neither present is a 401.
func (h *LedgerHandler) resolveAccount(r *http.Request) (string, error) {
	if token := extractBearerToken(r); token != "" {
		return h.validator.Validate(token)
	}
	if raw := r.URL.Query().Get("account_id"); raw != "" {
		id, err := domain.NewAccountID(raw)
		if err != nil {
			return "", err
		}
		return id.String(), nil
	}
	return "", fmt.Errorf("missing bearer token or account_id: %w", domain.ErrUnauthorized)
}

// extractBearerToken extracts the bearer token from the Authorization header.
func extractBearerToken(r *http.Request) string {
	const prefix = "Bearer "
	value := r.Header.Get("Authorization")
	if strings.HasPrefix(value, prefix) {
		return value[len(prefix):]
	}
	return ""
}

// pageParams parses the offset and limit query parameters. Malformed values
// fall through as zero and take the normalized defaults downstream.
func pageParams(r *http.Request) (int, int) {
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	return offset, limit
}

func toAccountResponse(account app.Account) accountResponse {
	return accountResponse{
		AccountID: account.AccountID,
		CPF:       account.CPF,
		CreatedAt: account.CreatedAt,
		UpdatedAt: account.UpdatedAt,
	}
}

func toRecordResponse(record app.Record) recordResponse {
	return recordResponse{
		RecordID:      record.RecordID,
		AccountID:     record.AccountID,
		Type:          record.Type,
		Category:      record.Category,
		Amount:        record.Amount,
		PaymentMethod: record.PaymentMethod,
		Description:   record.Description,
		DueDate:       record.DueDate,
		SettledDate:   record.SettledDate,
		Status:        record.Status,
		Note:          record.Note,
		CreatedAt:     record.CreatedAt,
		UpdatedAt:     record.UpdatedAt,
	}
}
