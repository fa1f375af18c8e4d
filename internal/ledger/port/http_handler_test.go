package port_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finbase/finance-ledger/internal/auth"
	"github.com/finbase/finance-ledger/internal/domain"
	"github.com/finbase/finance-ledger/internal/domain/domaintest"
	"github.com/finbase/finance-ledger/internal/ledger/app"
	"github.com/finbase/finance-ledger/internal/ledger/port"
)

var testStart = time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)

const (
	testCPF       = "52998224725"
	testAccountID = "c0a80000-0000-4000-8000-000000000001"
	testRecordID  = "d0b90000-0000-4000-8000-000000000001"
)

// stubAccountStore backs the real service in handler tests.
type stubAccountStore struct {
	getByIDFn   func(ctx context.Context, accountID string) (*app.Account, error)
	findByCPFFn func(ctx context.Context, cpf string) (*app.Account, error)
	createFn    func(ctx context.Context, account app.Account) error
	listFn      func(ctx context.Context) ([]app.Account, error)
}

func (s *stubAccountStore) GetByID(ctx context.Context, accountID string) (*app.Account, error) {
	if s.getByIDFn != nil {
		return s.getByIDFn(ctx, accountID)
	}
	return nil, domain.ErrNotFound
}

func (s *stubAccountStore) FindByCPF(ctx context.Context, cpf string) (*app.Account, error) {
	if s.findByCPFFn != nil {
		return s.findByCPFFn(ctx, cpf)
	}
	return nil, domain.ErrNotFound
}

func (s *stubAccountStore) Create(ctx context.Context, account app.Account) error {
	if s.createFn != nil {
		return s.createFn(ctx, account)
	}
	return nil
}

func (s *stubAccountStore) List(ctx context.Context) ([]app.Account, error) {
	if s.listFn != nil {
		return s.listFn(ctx)
	}
	return nil, nil
}

type stubRecordStore struct {
	createFn        func(ctx context.Context, record app.Record) error
	getByIDFn       func(ctx context.Context, recordID string) (*app.Record, error)
	listByAccountFn func(ctx context.Context, accountID string) ([]app.Record, error)
	updateFn        func(ctx context.Context, record app.Record) (*app.Record, error)
	deactivateFn    func(ctx context.Context, recordID, updatedAt string) (*app.Record, error)
}

func (s *stubRecordStore) Create(ctx context.Context, record app.Record) error {
	if s.createFn != nil {
		return s.createFn(ctx, record)
	}
	return nil
}

func (s *stubRecordStore) GetByID(ctx context.Context, recordID string) (*app.Record, error) {
	if s.getByIDFn != nil {
		return s.getByIDFn(ctx, recordID)
	}
	return nil, domain.ErrNotFound
}

func (s *stubRecordStore) ListByAccount(ctx context.Context, accountID string) ([]app.Record, error) {
	if s.listByAccountFn != nil {
		return s.listByAccountFn(ctx, accountID)
	}
	return nil, nil
}

func (s *stubRecordStore) Update(ctx context.Context, record app.Record) (*app.Record, error) {
	if s.updateFn != nil {
		return s.updateFn(ctx, record)
	}
	return &record, nil
}

func (s *stubRecordStore) Deactivate(ctx context.Context, recordID, updatedAt string) (*app.Record, error) {
	if s.deactivateFn != nil {
		return s.deactivateFn(ctx, recordID, updatedAt)
	}
	return nil, domain.ErrNotFound
}

// handlerHarness wires the real service and token issuer behind the handler,
// stubbing only the stores.
type handlerHarness struct {
	mux          *http.ServeMux
	accountStore *stubAccountStore
	recordStore  *stubRecordStore
	issuer       *auth.TokenIssuer
	clock        *domaintest.FakeClock
}

func newHandlerHarness(t *testing.T) *handlerHarness {
	t.Helper()

	clock := domaintest.NewFakeClock(testStart)
	issuer := auth.NewTokenIssuer(auth.TokenIssuerConfig{
		Secret:   []byte("test-token-secret-32-bytes-long!"),
		TTL:      domain.AccessTokenLifetime,
		Issuer:   "finance-ledger",
		Audience: "ledger-api",
		Clock:    clock,
	})

	h := &handlerHarness{
		mux:          http.NewServeMux(),
		accountStore: &stubAccountStore{},
		recordStore:  &stubRecordStore{},
		issuer:       issuer,
		clock:        clock,
	}

	svc := app.NewLedgerService(app.LedgerServiceConfig{
		AccountStore: h.accountStore,
		RecordStore:  h.recordStore,
		Issuer:       issuer,
		Clock:        clock,
		Logger:       discardLogger(),
	})

	port.NewLedgerHandler(svc, issuer).Register(h.mux)
	return h
}

func (h *handlerHarness) bearerFor(t *testing.T, accountID string) string {
	t.Helper()
	minted, err := h.issuer.Mint(accountID)
	require.NoError(t, err)
	return "Bearer " + minted.Token
}

func (h *handlerHarness) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.mux.ServeHTTP(rec, req)
	return rec
}

func sampleAccount() *app.Account {
	created := testStart.Add(-24 * time.Hour).Format(time.RFC3339)
	return &app.Account{
		AccountID: testAccountID,
		CPF:       testCPF,
		CreatedAt: created,
		UpdatedAt: created,
	}
}

func sampleRecord() *app.Record {
	created := testStart.Add(-24 * time.Hour).Format(time.RFC3339)
	return &app.Record{
		RecordID:      testRecordID,
		AccountID:     testAccountID,
		Type:          "expense",
		Category:      "groceries",
		Amount:        149.90,
		PaymentMethod: "credit_card",
		DueDate:       "2026-09-05",
		Status:        "pending",
		Active:        true,
		CreatedAt:     created,
		UpdatedAt:     created,
	}
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Code
}

func TestAccessAccountEndpoint(t *testing.T) {
	t.Run("existing account returns 200 with token", func(t *testing.T) {
		h := newHandlerHarness(t)
		h.accountStore.findByCPFFn = func(_ context.Context, _ string) (*app.Account, error) {
			return sampleAccount(), nil
		}

		req := httptest.NewRequest(http.MethodPost, "/v1/accounts", strings.NewReader(`{"cpf":"529.982.247-25"}`))
		rec := h.do(req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

		var body struct {
			Account struct {
				AccountID string `json:"account_id"`
				CPF       string `json:"cpf"`
			} `json:"account"`
			AccessToken string `json:"access_token"`
			TokenType   string `json:"token_type"`
			Created     bool   `json:"created"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, testAccountID, body.Account.AccountID)
		assert.Equal(t, testCPF, body.Account.CPF)
		assert.Equal(t, "Bearer", body.TokenType)
		assert.NotEmpty(t, body.AccessToken)
		assert.False(t, body.Created)
	})

	t.Run("first access returns 201", func(t *testing.T) {
		h := newHandlerHarness(t)

		req := httptest.NewRequest(http.MethodPost, "/v1/accounts", strings.NewReader(`{"cpf":"52998224725"}`))
		rec := h.do(req)

		assert.Equal(t, http.StatusCreated, rec.Code)
	})

	t.Run("invalid CPF returns 400", func(t *testing.T) {
		h := newHandlerHarness(t)

		req := httptest.NewRequest(http.MethodPost, "/v1/accounts", strings.NewReader(`{"cpf":"12345678900"}`))
		rec := h.do(req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "INVALID_CPF", decodeError(t, rec))
	})

	t.Run("malformed body returns 400", func(t *testing.T) {
		h := newHandlerHarness(t)

		req := httptest.NewRequest(http.MethodPost, "/v1/accounts", strings.NewReader(`{`))
		rec := h.do(req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestListAccountsEndpoint(t *testing.T) {
	t.Run("returns pagination headers", func(t *testing.T) {
		h := newHandlerHarness(t)
		h.accountStore.listFn = func(_ context.Context) ([]app.Account, error) {
			accounts := make([]app.Account, 25)
			for i := range accounts {
				accounts[i] = app.Account{AccountID: fmt.Sprintf("account-%03d", i)}
			}
			return accounts, nil
		}

		req := httptest.NewRequest(http.MethodGet, "/v1/accounts?offset=10&limit=5", nil)
		rec := h.do(req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "25", rec.Header().Get("X-Total"))
		assert.Equal(t, "10", rec.Header().Get("X-Offset"))
		assert.Equal(t, "5", rec.Header().Get("X-Limit"))

		var accounts []json.RawMessage
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &accounts))
		assert.Len(t, accounts, 5)
	})

	t.Run("malformed pagination params fall back to defaults", func(t *testing.T) {
		h := newHandlerHarness(t)
		h.accountStore.listFn = func(_ context.Context) ([]app.Account, error) {
			return make([]app.Account, 25), nil
		}

		req := httptest.NewRequest(http.MethodGet, "/v1/accounts?offset=abc&limit=xyz", nil)
		rec := h.do(req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "0", rec.Header().Get("X-Offset"))
		assert.Equal(t, "10", rec.Header().Get("X-Limit"))
	})
}

func TestCreateRecordEndpoint(t *testing.T) {
	validBody := `{"type":"expense","category":"groceries","amount":149.9,"payment_method":"credit_card","due_date":"2026-09-05"}`

	t.Run("missing token returns 401", func(t *testing.T) {
		h := newHandlerHarness(t)

		req := httptest.NewRequest(http.MethodPost, "/v1/records", strings.NewReader(validBody))
		rec := h.do(req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("garbage token returns 401", func(t *testing.T) {
		h := newHandlerHarness(t)

		req := httptest.NewRequest(http.MethodPost, "/v1/records", strings.NewReader(validBody))
		req.Header.Set("Authorization", "Bearer not-a-token")
		rec := h.do(req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("success returns 201 with the stored record", func(t *testing.T) {
		h := newHandlerHarness(t)
		h.accountStore.getByIDFn = func(_ context.Context, accountID string) (*app.Account, error) {
			assert.Equal(t, testAccountID, accountID)
			return sampleAccount(), nil
		}

		req := httptest.NewRequest(http.MethodPost, "/v1/records", strings.NewReader(validBody))
		req.Header.Set("Authorization", h.bearerFor(t, testAccountID))
		rec := h.do(req)

		assert.Equal(t, http.StatusCreated, rec.Code)

		var body struct {
			RecordID  string  `json:"record_id"`
			AccountID string  `json:"account_id"`
			Amount    float64 `json:"amount"`
			Status    string  `json:"status"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.NotEmpty(t, body.RecordID)
		assert.Equal(t, testAccountID, body.AccountID)
		assert.InDelta(t, 149.9, body.Amount, 0.001)
		assert.Equal(t, "pending", body.Status)
	})

	t.Run("account_id query parameter substitutes for a token", func(t *testing.T) {
		h := newHandlerHarness(t)
		h.accountStore.getByIDFn = func(_ context.Context, accountID string) (*app.Account, error) {
			assert.Equal(t, testAccountID, accountID)
			return sampleAccount(), nil
		}

		req := httptest.NewRequest(http.MethodPost, "/v1/records?account_id="+testAccountID, strings.NewReader(validBody))
		rec := h.do(req)

		assert.Equal(t, http.StatusCreated, rec.Code)
	})

	t.Run("malformed account_id returns 400", func(t *testing.T) {
		h := newHandlerHarness(t)

		req := httptest.NewRequest(http.MethodPost, "/v1/records?account_id=not-a-uuid", strings.NewReader(validBody))
		rec := h.do(req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("invalid type returns 400", func(t *testing.T) {
		h := newHandlerHarness(t)
		h.accountStore.getByIDFn = func(_ context.Context, _ string) (*app.Account, error) {
			return sampleAccount(), nil
		}

		body := `{"type":"transfer","category":"x","amount":1,"due_date":"2026-09-05"}`
		req := httptest.NewRequest(http.MethodPost, "/v1/records", strings.NewReader(body))
		req.Header.Set("Authorization", h.bearerFor(t, testAccountID))
		rec := h.do(req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "INVALID_ARGUMENT", decodeError(t, rec))
	})
}

func TestListRecordsEndpoint(t *testing.T) {
	t.Run("returns records with pagination and account headers", func(t *testing.T) {
		h := newHandlerHarness(t)
		h.accountStore.getByIDFn = func(_ context.Context, _ string) (*app.Account, error) {
			return sampleAccount(), nil
		}
		h.recordStore.listByAccountFn = func(_ context.Context, accountID string) ([]app.Record, error) {
			assert.Equal(t, testAccountID, accountID)
			return []app.Record{*sampleRecord()}, nil
		}

		req := httptest.NewRequest(http.MethodGet, "/v1/records", nil)
		req.Header.Set("Authorization", h.bearerFor(t, testAccountID))
		rec := h.do(req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "1", rec.Header().Get("X-Total"))
		assert.Equal(t, testAccountID, rec.Header().Get("X-Account-ID"))
	})

	t.Run("account_id query parameter substitutes for a token", func(t *testing.T) {
		h := newHandlerHarness(t)
		h.accountStore.getByIDFn = func(_ context.Context, _ string) (*app.Account, error) {
			return sampleAccount(), nil
		}
		h.recordStore.listByAccountFn = func(_ context.Context, accountID string) ([]app.Record, error) {
			assert.Equal(t, testAccountID, accountID)
			return []app.Record{*sampleRecord()}, nil
		}

		req := httptest.NewRequest(http.MethodGet, "/v1/records?account_id="+testAccountID, nil)
		rec := h.do(req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, testAccountID, rec.Header().Get("X-Account-ID"))
	})

	t.Run("bearer token wins over the account_id parameter", func(t *testing.T) {
		h := newHandlerHarness(t)
		h.accountStore.getByIDFn = func(_ context.Context, _ string) (*app.Account, error) {
			return sampleAccount(), nil
		}
		h.recordStore.listByAccountFn = func(_ context.Context, accountID string) ([]app.Record, error) {
			assert.Equal(t, testAccountID, accountID)
			return nil, nil
		}

		req := httptest.NewRequest(http.MethodGet, "/v1/records?account_id=e0000000-0000-4000-8000-000000000009", nil)
		req.Header.Set("Authorization", h.bearerFor(t, testAccountID))
		rec := h.do(req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, testAccountID, rec.Header().Get("X-Account-ID"))
	})

	t.Run("invalid token with account_id parameter returns 401", func(t *testing.T) {
		h := newHandlerHarness(t)

		req := httptest.NewRequest(http.MethodGet, "/v1/records?account_id="+testAccountID, nil)
		req.Header.Set("Authorization", "Bearer not-a-token")
		rec := h.do(req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("missing token and account_id returns 401", func(t *testing.T) {
		h := newHandlerHarness(t)

		req := httptest.NewRequest(http.MethodGet, "/v1/records", nil)
		rec := h.do(req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestUpdateRecordEndpoint(t *testing.T) {
	t.Run("partial update returns the merged record", func(t *testing.T) {
		h := newHandlerHarness(t)
		h.recordStore.getByIDFn = func(_ context.Context, _ string) (*app.Record, error) {
			return sampleRecord(), nil
		}

		body := `{"status":"paid","settled_date":"2026-08-15"}`
		req := httptest.NewRequest(http.MethodPut, "/v1/records/"+testRecordID, strings.NewReader(body))
		req.Header.Set("Authorization", h.bearerFor(t, testAccountID))
		rec := h.do(req)

		assert.Equal(t, http.StatusOK, rec.Code)

		var got struct {
			Status      string `json:"status"`
			SettledDate string `json:"settled_date"`
			Category    string `json:"category"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, "paid", got.Status)
		assert.Equal(t, "2026-08-15", got.SettledDate)
		assert.Equal(t, "groceries", got.Category, "unpatched fields keep stored values")
	})

	t.Run("record of another account returns 403", func(t *testing.T) {
		h := newHandlerHarness(t)
		h.recordStore.getByIDFn = func(_ context.Context, _ string) (*app.Record, error) {
			r := sampleRecord()
			r.AccountID = "someone-else"
			return r, nil
		}

		req := httptest.NewRequest(http.MethodPut, "/v1/records/"+testRecordID, strings.NewReader(`{}`))
		req.Header.Set("Authorization", h.bearerFor(t, testAccountID))
		rec := h.do(req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("unknown record returns 404", func(t *testing.T) {
		h := newHandlerHarness(t)

		req := httptest.NewRequest(http.MethodPut, "/v1/records/no-such-record", strings.NewReader(`{}`))
		req.Header.Set("Authorization", h.bearerFor(t, testAccountID))
		rec := h.do(req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "NOT_FOUND", decodeError(t, rec))
	})
}

func TestDeactivateRecordEndpoint(t *testing.T) {
	t.Run("success returns the deactivation receipt", func(t *testing.T) {
		h := newHandlerHarness(t)
		h.recordStore.getByIDFn = func(_ context.Context, _ string) (*app.Record, error) {
			return sampleRecord(), nil
		}
		h.recordStore.deactivateFn = func(_ context.Context, _, updatedAt string) (*app.Record, error) {
			r := sampleRecord()
			r.Active = false
			r.UpdatedAt = updatedAt
			return r, nil
		}

		req := httptest.NewRequest(http.MethodDelete, "/v1/records/"+testRecordID, nil)
		req.Header.Set("Authorization", h.bearerFor(t, testAccountID))
		rec := h.do(req)

		assert.Equal(t, http.StatusOK, rec.Code)

		var body struct {
			Detail    string `json:"detail"`
			ID        string `json:"id"`
			Active    bool   `json:"active"`
			UpdatedAt string `json:"updated_at"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Contains(t, body.Detail, testRecordID)
		assert.Equal(t, testRecordID, body.ID)
		assert.False(t, body.Active)
		assert.Equal(t, testStart.Format(time.RFC3339), body.UpdatedAt)
	})

	t.Run("deactivated record returns 404", func(t *testing.T) {
		h := newHandlerHarness(t)
		h.recordStore.getByIDFn = func(_ context.Context, _ string) (*app.Record, error) {
			r := sampleRecord()
			r.Active = false
			return r, nil
		}

		req := httptest.NewRequest(http.MethodDelete, "/v1/records/"+testRecordID, nil)
		req.Header.Set("Authorization", h.bearerFor(t, testAccountID))
		rec := h.do(req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("expired token returns 401", func(t *testing.T) {
		h := newHandlerHarness(t)
		token := h.bearerFor(t, testAccountID)
		h.clock.Advance(domain.AccessTokenLifetime + time.Minute)

		req := httptest.NewRequest(http.MethodDelete, "/v1/records/"+testRecordID, nil)
		req.Header.Set("Authorization", token)
		rec := h.do(req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "TOKEN_EXPIRED", decodeError(t, rec))
	})
}
