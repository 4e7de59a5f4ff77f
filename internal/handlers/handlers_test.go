package handlers_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/SscSPs/bank_mesh/internal/apperrors"
	"github.com/SscSPs/bank_mesh/internal/core/domain"
	portssvc "github.com/SscSPs/bank_mesh/internal/core/ports/services"
	"github.com/SscSPs/bank_mesh/internal/dto"
	"github.com/SscSPs/bank_mesh/internal/handlers"
	"github.com/SscSPs/bank_mesh/internal/platform/config"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

var (
	clientCaller = domain.Caller{ClientID: "client-1", Username: "alice", Role: domain.RoleClient, Token: "client-token"}
	adminCaller  = domain.Caller{ClientID: "admin-1", Username: "root", Role: domain.RoleAdmin, Token: "admin-token"}
)

func decEq(s string) interface{} {
	want := decimal.RequireFromString(s)
	return mock.MatchedBy(func(d decimal.Decimal) bool { return d.Equal(want) })
}

type HandlerTestSuite struct {
	suite.Suite
	router   *gin.Engine
	identity *MockIdentityService
	accounts *MockAccountService
	ledger   *MockLedgerService
	payments *MockPaymentService
	cards    *MockCreditCardService
	replicas *MockReplicaService
	syncer   *MockSyncService
}

func (s *HandlerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	s.identity = new(MockIdentityService)
	s.accounts = new(MockAccountService)
	s.ledger = new(MockLedgerService)
	s.payments = new(MockPaymentService)
	s.cards = new(MockCreditCardService)
	s.replicas = new(MockReplicaService)
	s.syncer = new(MockSyncService)

	s.identity.On("Authenticate", mock.Anything, "client-token").Return(clientCaller, nil).Maybe()
	s.identity.On("Authenticate", mock.Anything, "admin-token").Return(adminCaller, nil).Maybe()
	s.identity.On("Authenticate", mock.Anything, "expired").
		Return(domain.Caller{}, fmt.Errorf("%w: token expired", apperrors.ErrUnauthenticated)).Maybe()

	s.router = gin.New()
	handlers.RegisterRoutes(s.router, &config.Config{ServiceName: "bank", IsProduction: true}, &portssvc.ServiceContainer{
		Identity:   s.identity,
		Account:    s.accounts,
		Ledger:     s.ledger,
		Payment:    s.payments,
		CreditCard: s.cards,
		Replica:    s.replicas,
		Sync:       s.syncer,
	})
}

func (s *HandlerTestSuite) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req, _ := http.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *HandlerTestSuite) TestHealth() {
	w := s.do(http.MethodGet, "/health", "", nil)
	s.Equal(http.StatusOK, w.Code)
	s.Equal("OK", w.Body.String())
}

func (s *HandlerTestSuite) TestAuth_MissingAndExpiredToken() {
	w := s.do(http.MethodGet, "/api/v1/accounts", "", nil)
	s.Equal(http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodGet, "/api/v1/accounts", "expired", nil)
	s.Equal(http.StatusUnauthorized, w.Code)
	s.accounts.AssertNotCalled(s.T(), "ListAccounts", mock.Anything, mock.Anything)
}

func (s *HandlerTestSuite) TestAuth_TokenQueryParameter() {
	s.accounts.On("ListAccounts", mock.Anything, clientCaller).
		Return(&dto.ListAccountsResponse{Accounts: []dto.AccountResponse{}}, nil).Once()

	w := s.do(http.MethodGet, "/api/v1/accounts?token=client-token", "", nil)
	s.Equal(http.StatusOK, w.Code)
	s.accounts.AssertExpectations(s.T())
}

func (s *HandlerTestSuite) TestCreateAccount() {
	s.accounts.On("CreateAccount", mock.Anything, clientCaller, dto.CreateAccountRequest{}).
		Return(&domain.Account{AccountID: "acc-1", OwnerID: "client-1", Balance: decimal.Zero}, nil).Once()

	w := s.do(http.MethodPost, "/api/v1/accounts", "client-token", nil)
	s.Equal(http.StatusCreated, w.Code)

	var resp dto.AccountResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	s.Equal("acc-1", resp.AccountID)
	s.Equal(domain.AccountActive, resp.Status)
	s.accounts.AssertExpectations(s.T())
}

func (s *HandlerTestSuite) TestCreateAccount_Duplicate() {
	s.accounts.On("CreateAccount", mock.Anything, clientCaller, dto.CreateAccountRequest{}).
		Return(nil, apperrors.ErrDuplicateAccount).Once()

	w := s.do(http.MethodPost, "/api/v1/accounts", "client-token", nil)
	s.Equal(http.StatusConflict, w.Code)
}

func (s *HandlerTestSuite) TestListAccounts_StaleFlag() {
	s.accounts.On("ListAccounts", mock.Anything, clientCaller).
		Return(&dto.ListAccountsResponse{Accounts: []dto.AccountResponse{{AccountID: "acc-1"}}, Stale: true}, nil).Once()

	w := s.do(http.MethodGet, "/api/v1/accounts", "client-token", nil)
	s.Equal(http.StatusOK, w.Code)
	s.JSONEq(`true`, string(mustField(s, w.Body.Bytes(), "stale")))
}

func (s *HandlerTestSuite) TestAdminRoutes_RejectClients() {
	paths := []struct{ method, path string }{
		{http.MethodGet, "/api/v1/accounts/all"},
		{http.MethodPut, "/api/v1/accounts/acc-1/block"},
		{http.MethodGet, "/api/v1/payments/all"},
		{http.MethodGet, "/api/v1/credit-cards/all"},
		{http.MethodGet, "/api/v1/clients"},
		{http.MethodPost, "/api/v1/admin/sync"},
		{http.MethodGet, "/api/v1/admin/accounts/acc-1/ledger-check"},
		{http.MethodPost, "/api/v1/internal/accounts/acc-1/credit"},
	}
	for _, p := range paths {
		w := s.do(p.method, p.path, "client-token", nil)
		s.Equal(http.StatusForbidden, w.Code, "%s %s", p.method, p.path)
	}
}

func (s *HandlerTestSuite) TestListAllAccounts_BindsSnapshotParams() {
	s.accounts.On("ListAllAccounts", mock.Anything, adminCaller, dto.ListParams{Limit: 1000, Offset: 2000, IncludeDeleted: true}).
		Return([]domain.Account{{AccountID: "acc-1"}, {AccountID: "acc-2"}}, nil).Once()

	w := s.do(http.MethodGet, "/api/v1/accounts/all?limit=1000&offset=2000&includeDeleted=true", "admin-token", nil)
	s.Equal(http.StatusOK, w.Code)

	var resp dto.ListAccountsResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	s.Len(resp.Accounts, 2)
	s.accounts.AssertExpectations(s.T())
}

func (s *HandlerTestSuite) TestListAllAccounts_RejectsOversizedPage() {
	w := s.do(http.MethodGet, "/api/v1/accounts/all?limit=5000", "admin-token", nil)
	s.Equal(http.StatusBadRequest, w.Code)
	s.accounts.AssertNotCalled(s.T(), "ListAllAccounts", mock.Anything, mock.Anything, mock.Anything)
}

func (s *HandlerTestSuite) TestTopUp() {
	s.ledger.On("TopUp", mock.Anything, clientCaller, "acc-1", decEq("25")).
		Return(&domain.Account{AccountID: "acc-1", Balance: decimal.RequireFromString("25")}, nil).Once()

	w := s.do(http.MethodPost, "/api/v1/accounts/acc-1/top-up", "client-token", map[string]string{"amount": "25.00"})
	s.Equal(http.StatusOK, w.Code)
	s.ledger.AssertExpectations(s.T())
}

func (s *HandlerTestSuite) TestTransfer() {
	toBalance := decimal.RequireFromString("30")
	s.ledger.On("Transfer", mock.Anything, clientCaller, "", "acc-2", decEq("30")).
		Return(&domain.TransferResult{
			TransferID:    "t-1",
			FromAccountID: "acc-1",
			ToAccountID:   "acc-2",
			Amount:        decimal.RequireFromString("30"),
			FromBalance:   decimal.RequireFromString("20"),
			ToBalance:     &toBalance,
		}, nil).Once()

	w := s.do(http.MethodPost, "/api/v1/payments", "client-token", map[string]string{"toAccountID": "acc-2", "amount": "30"})
	s.Equal(http.StatusCreated, w.Code)

	var resp dto.TransferResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	s.Equal("t-1", resp.TransferID)
	s.True(decimal.RequireFromString("20").Equal(resp.FromAccountBalance))
	s.Require().NotNil(resp.ToAccountBalance)
	s.True(toBalance.Equal(*resp.ToAccountBalance))
}

func (s *HandlerTestSuite) TestTransfer_ErrorStatuses() {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid amount", apperrors.ErrInvalidAmount, http.StatusBadRequest},
		{"insufficient funds", apperrors.ErrInsufficientFunds, http.StatusUnprocessableEntity},
		{"blocked", apperrors.ErrAccountBlocked, http.StatusConflict},
		{"not owner", fmt.Errorf("%w: not your account", apperrors.ErrForbidden), http.StatusForbidden},
		{"unknown receiver", fmt.Errorf("receiver: %w", apperrors.ErrNotFound), http.StatusNotFound},
		{"contention", apperrors.ErrContention, http.StatusConflict},
		{"owner down", apperrors.ErrUpstreamUnavailable, http.StatusServiceUnavailable},
		{"app error", apperrors.NewAppError(http.StatusTeapot, "odd", nil), http.StatusTeapot},
		{"unexpected", errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			s.SetupTest()
			s.ledger.On("Transfer", mock.Anything, clientCaller, "acc-1", "acc-2", mock.Anything).Return(nil, tt.err).Once()

			w := s.do(http.MethodPost, "/api/v1/payments", "client-token",
				map[string]string{"fromAccountID": "acc-1", "toAccountID": "acc-2", "amount": "5"})
			s.Equal(tt.want, w.Code)
		})
	}
}

func (s *HandlerTestSuite) TestTransfer_InternalErrorHidesDetail() {
	s.ledger.On("Transfer", mock.Anything, clientCaller, "acc-1", "acc-2", mock.Anything).
		Return(nil, errors.New("pq: password authentication failed")).Once()

	w := s.do(http.MethodPost, "/api/v1/payments", "client-token",
		map[string]string{"fromAccountID": "acc-1", "toAccountID": "acc-2", "amount": "5"})
	s.Equal(http.StatusInternalServerError, w.Code)
	s.NotContains(w.Body.String(), "password")
}

func (s *HandlerTestSuite) TestTransfer_PartialFailure() {
	partial := &apperrors.PartialFailureError{
		TransferID:  "t-9",
		FailedLeg:   apperrors.LegCredit,
		Compensated: true,
		Cause:       apperrors.ErrUpstreamUnavailable,
	}
	s.ledger.On("Transfer", mock.Anything, clientCaller, "acc-1", "remote-1", mock.Anything).Return(nil, partial).Once()

	w := s.do(http.MethodPost, "/api/v1/payments", "client-token",
		map[string]string{"fromAccountID": "acc-1", "toAccountID": "remote-1", "amount": "5"})
	s.Equal(http.StatusBadGateway, w.Code)

	var resp dto.PartialFailureResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	s.Equal("t-9", resp.TransferID)
	s.Equal("CREDIT", resp.FailedLeg)
	s.True(resp.Compensated)
}

func (s *HandlerTestSuite) TestTransfer_MissingReceiver() {
	w := s.do(http.MethodPost, "/api/v1/payments", "client-token", map[string]string{"amount": "5"})
	s.Equal(http.StatusBadRequest, w.Code)
	s.ledger.AssertNotCalled(s.T(), "Transfer", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (s *HandlerTestSuite) TestListPayments_PassesCursor() {
	next := "cursor-2"
	s.payments.On("ListPayments", mock.Anything, clientCaller, mock.MatchedBy(func(p dto.ListPaymentsParams) bool {
		return p.Limit == 2 && p.NextToken != nil && *p.NextToken == "cursor-1"
	})).Return(&dto.ListPaymentsResponse{Payments: []dto.PaymentResponse{{PaymentID: "p-1"}}, NextToken: &next}, nil).Once()

	w := s.do(http.MethodGet, "/api/v1/payments?limit=2&nextToken=cursor-1", "client-token", nil)
	s.Equal(http.StatusOK, w.Code)

	var resp dto.ListPaymentsResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	s.Require().NotNil(resp.NextToken)
	s.Equal("cursor-2", *resp.NextToken)
	s.payments.AssertExpectations(s.T())
}

func (s *HandlerTestSuite) TestCreditCards_MaskedForCallerRevealedForSnapshot() {
	card := domain.CreditCard{CardID: "card-1", AccountID: "acc-1", Number: "4111111111111111", Expiry: "09/28"}
	s.cards.On("CreateCard", mock.Anything, clientCaller, mock.Anything).Return(&card, nil).Once()
	s.cards.On("ListAllCards", mock.Anything, adminCaller, mock.Anything).Return([]domain.CreditCard{card}, nil).Once()

	w := s.do(http.MethodPost, "/api/v1/credit-cards", "client-token",
		dto.CreateCreditCardRequest{AccountID: "acc-1", Number: "4111111111111111", Expiry: "09/28", CVV: "123"})
	s.Equal(http.StatusCreated, w.Code)
	var created dto.CreditCardResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &created))
	s.Equal("************1111", created.Number)
	s.NotContains(w.Body.String(), "123\"")

	w = s.do(http.MethodGet, "/api/v1/credit-cards/all", "admin-token", nil)
	s.Equal(http.StatusOK, w.Code)
	var snapshot dto.ListCreditCardsResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &snapshot))
	s.Require().Len(snapshot.CreditCards, 1)
	s.Equal("4111111111111111", snapshot.CreditCards[0].Number)
}

func (s *HandlerTestSuite) TestCreditCards_InvalidBody() {
	w := s.do(http.MethodPost, "/api/v1/credit-cards", "client-token",
		dto.CreateCreditCardRequest{AccountID: "acc-1", Number: "12ab", Expiry: "09/28", CVV: "1"})
	s.Equal(http.StatusBadRequest, w.Code)
	s.cards.AssertNotCalled(s.T(), "CreateCard", mock.Anything, mock.Anything, mock.Anything)
}

func (s *HandlerTestSuite) TestClients() {
	s.identity.On("GetClient", mock.Anything, clientCaller).
		Return(&domain.Client{ClientID: "client-1", Username: "alice", Role: domain.RoleClient}, nil).Once()
	s.identity.On("DeleteClient", mock.Anything, adminCaller, "client-1").Return(nil).Once()

	w := s.do(http.MethodGet, "/api/v1/clients/me", "client-token", nil)
	s.Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), `"username":"alice"`)

	w = s.do(http.MethodDelete, "/api/v1/clients/client-1", "admin-token", nil)
	s.Equal(http.StatusNoContent, w.Code)
	s.identity.AssertExpectations(s.T())
}

func (s *HandlerTestSuite) TestAdminSync() {
	report := &domain.SyncReport{Collections: []domain.CollectionSyncResult{
		{Collection: domain.CollectionClients, Upserted: 3},
		{Collection: domain.CollectionAccounts, Error: "upstream service unavailable"},
	}}
	s.syncer.On("SyncAll", mock.Anything, adminCaller).Return(report, nil).Once()

	w := s.do(http.MethodPost, "/api/v1/admin/sync", "admin-token", nil)
	s.Equal(http.StatusOK, w.Code)

	var resp dto.SyncReportResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	s.True(resp.Partial)
	s.Len(resp.Collections, 2)
}

func (s *HandlerTestSuite) TestAdminSyncCollection() {
	s.replicas.On("Refresh", mock.Anything, domain.CollectionPayments, adminCaller).
		Return(domain.CollectionSyncResult{Collection: domain.CollectionPayments, Upserted: 4}, nil).Once()

	w := s.do(http.MethodPost, "/api/v1/admin/sync/payments", "admin-token", nil)
	s.Equal(http.StatusOK, w.Code)

	w = s.do(http.MethodPost, "/api/v1/admin/sync/journals", "admin-token", nil)
	s.Equal(http.StatusBadRequest, w.Code)
	s.replicas.AssertExpectations(s.T())
}

func (s *HandlerTestSuite) TestLedgerCheckAndCorrection() {
	s.ledger.On("VerifyBalance", mock.Anything, adminCaller, "acc-1").Return(&domain.BalanceCheck{
		AccountID:     "acc-1",
		StoredBalance: decimal.RequireFromString("20"),
		LedgerBalance: decimal.RequireFromString("20"),
		PaymentCount:  2,
	}, nil).Once()
	s.ledger.On("CorrectPayment", mock.Anything, adminCaller, "p-404").Return(nil, apperrors.ErrNotFound).Once()

	w := s.do(http.MethodGet, "/api/v1/admin/accounts/acc-1/ledger-check", "admin-token", nil)
	s.Equal(http.StatusOK, w.Code)
	var check dto.LedgerCheckResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &check))
	s.True(check.Consistent)

	w = s.do(http.MethodDelete, "/api/v1/admin/payments/p-404", "admin-token", nil)
	s.Equal(http.StatusNotFound, w.Code)
}

func (s *HandlerTestSuite) TestInternalCredit() {
	s.ledger.On("CreditFromTransfer", mock.Anything, adminCaller, "acc-1", "t-1", decEq("20")).
		Return(&domain.Payment{PaymentID: "p-1", AccountID: "acc-1", Kind: domain.PaymentTransferCredit, TransferID: "t-1"}, nil).Once()

	w := s.do(http.MethodPost, "/api/v1/internal/accounts/acc-1/credit", "admin-token",
		dto.InternalCreditRequest{TransferID: "t-1", Amount: decimal.RequireFromString("20")})
	s.Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), `"transferID":"t-1"`)
	s.ledger.AssertExpectations(s.T())
}

func mustField(s *HandlerTestSuite, body []byte, field string) json.RawMessage {
	var m map[string]json.RawMessage
	s.Require().NoError(json.Unmarshal(body, &m))
	v, ok := m[field]
	s.Require().True(ok, "missing field %q", field)
	return v
}

func TestHandlers(t *testing.T) {
	suite.Run(t, new(HandlerTestSuite))
}
