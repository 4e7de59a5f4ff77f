package upstream

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/SscSPs/bank_mesh/internal/apperrors"
	"github.com/SscSPs/bank_mesh/internal/core/domain"
	portsup "github.com/SscSPs/bank_mesh/internal/core/ports/upstream"
	"github.com/SscSPs/bank_mesh/internal/dto"
	"github.com/shopspring/decimal"
	"golang.org/x/oauth2"
)

const (
	snapshotPageSize = 1000
	paymentPageSize  = 500
	// maxPages stops a misbehaving owner from paging forever.
	maxPages = 1000
)

// OwnerClient reads collections from the services that own them and
// forwards transfer credits.
type OwnerClient struct {
	http          *httpClient
	bases         map[domain.Collection]string
	origins       map[domain.Collection]string
	byOrigin      map[string]string
	serviceTokens oauth2.TokenSource
}

// OwnerOption is a functional option for configuring the owner client.
type OwnerOption func(*OwnerClient)

// WithServiceTokens sets the credentials used for service-to-service calls
// that are not made on behalf of a caller.
func WithServiceTokens(src oauth2.TokenSource) OwnerOption {
	return func(c *OwnerClient) {
		c.serviceTokens = src
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) OwnerOption {
	return func(c *OwnerClient) {
		c.http.base = hc
	}
}

// NewOwnerClient creates a client for the given owner base URLs. Collections
// with an empty URL are treated as not configured. The clients collection is
// owned by the identity service; the others are served under /api/v1.
func NewOwnerClient(urls map[domain.Collection]string, timeout time.Duration, opts ...OwnerOption) *OwnerClient {
	c := &OwnerClient{
		http:     newHTTPClient(timeout, nil),
		bases:    make(map[domain.Collection]string),
		origins:  make(map[domain.Collection]string),
		byOrigin: make(map[string]string),
	}
	for col, raw := range urls {
		base := strings.TrimRight(raw, "/")
		if base == "" {
			continue
		}
		origin := domain.IdentityOrigin
		if col != domain.CollectionClients {
			origin = originOf(base)
			c.byOrigin[origin] = base
		}
		c.bases[col] = base
		c.origins[col] = origin
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ portsup.OwnerClient = (*OwnerClient)(nil)

// originOf names an owner by the host part of its URL.
func originOf(base string) string {
	if u, err := url.Parse(base); err == nil && u.Host != "" {
		return u.Host
	}
	return base
}

func (c *OwnerClient) Origin(collection domain.Collection) (string, bool) {
	origin, ok := c.origins[collection]
	return origin, ok
}

func (c *OwnerClient) FetchCollection(ctx context.Context, collection domain.Collection, scope portsup.FetchScope) (domain.ReplicaBatch, error) {
	base, ok := c.bases[collection]
	if !ok {
		return domain.ReplicaBatch{}, fmt.Errorf("%w: no owner configured for %s", apperrors.ErrUpstreamUnavailable, collection)
	}
	batch := domain.ReplicaBatch{Collection: collection, Origin: c.origins[collection]}
	target := batch.Origin

	var err error
	switch collection {
	case domain.CollectionClients:
		batch.Clients, err = c.fetchClients(ctx, base, scope)
	case domain.CollectionAccounts:
		batch.Accounts, err = fetchSnapshot(ctx, c, target, base+"/api/v1/accounts", scope,
			func(r dto.ListAccountsResponse) []dto.AccountResponse { return r.Accounts },
			func(r dto.AccountResponse) (domain.Account, bool) { return r.ToDomain(), r.IsReplica })
	case domain.CollectionCreditCards:
		batch.CreditCards, err = fetchSnapshot(ctx, c, target, base+"/api/v1/credit-cards", scope,
			func(r dto.ListCreditCardsResponse) []dto.CreditCardResponse { return r.CreditCards },
			func(r dto.CreditCardResponse) (domain.CreditCard, bool) { return r.ToDomain(), r.IsReplica })
	case domain.CollectionPayments:
		batch.Payments, err = c.fetchPayments(ctx, base, scope)
	default:
		err = fmt.Errorf("unknown collection %q", collection)
	}
	if err != nil {
		return domain.ReplicaBatch{}, err
	}
	return batch, nil
}

func (c *OwnerClient) fetchClients(ctx context.Context, base string, scope portsup.FetchScope) ([]domain.Client, error) {
	if scope.All {
		var resp dto.ListClientsResponse
		if err := c.http.do(ctx, identityTarget, http.MethodGet, base+"/clients/all", scope.Token, nil, &resp); err != nil {
			return nil, err
		}
		valid := validRecords(ctx, c.http.validate, identityTarget, resp.Clients)
		out := make([]domain.Client, len(valid))
		for i, r := range valid {
			out[i] = r.ToDomain()
		}
		return out, nil
	}

	var me dto.ClientResponse
	if err := c.http.do(ctx, identityTarget, http.MethodGet, base+"/clients/me", scope.Token, nil, &me); err != nil {
		return nil, err
	}
	if err := c.http.validate.Struct(me); err != nil {
		return nil, fmt.Errorf("%w: malformed client profile: %v", apperrors.ErrUpstreamUnavailable, err)
	}
	return []domain.Client{me.ToDomain()}, nil
}

// fetchSnapshot reads a list endpoint. Admin scope pages through /all with
// limit/offset; caller scope reads the caller's own list in one call.
// Records the owner itself holds as replicas are dropped: they belong to a
// third service.
func fetchSnapshot[Resp any, Rec any, D any](
	ctx context.Context,
	c *OwnerClient,
	target, endpoint string,
	scope portsup.FetchScope,
	records func(Resp) []Rec,
	convert func(Rec) (D, bool),
) ([]D, error) {
	var out []D
	keep := func(recs []Rec) {
		for _, r := range validRecords(ctx, c.http.validate, target, recs) {
			d, replica := convert(r)
			if !replica {
				out = append(out, d)
			}
		}
	}

	if !scope.All {
		var resp Resp
		if err := c.http.do(ctx, target, http.MethodGet, endpoint, scope.Token, nil, &resp); err != nil {
			return nil, err
		}
		keep(records(resp))
		return out, nil
	}

	for page := 0; page < maxPages; page++ {
		q := url.Values{}
		q.Set("limit", strconv.Itoa(snapshotPageSize))
		q.Set("offset", strconv.Itoa(page*snapshotPageSize))
		if scope.IncludeDeleted {
			q.Set("includeDeleted", "true")
		}
		var resp Resp
		if err := c.http.do(ctx, target, http.MethodGet, endpoint+"/all?"+q.Encode(), scope.Token, nil, &resp); err != nil {
			return nil, err
		}
		recs := records(resp)
		keep(recs)
		if len(recs) < snapshotPageSize {
			return out, nil
		}
	}
	return nil, fmt.Errorf("%w: %s returned more than %d pages", apperrors.ErrUpstreamUnavailable, endpoint, maxPages)
}

// fetchPayments follows nextToken until the owner reports the last page.
func (c *OwnerClient) fetchPayments(ctx context.Context, base string, scope portsup.FetchScope) ([]domain.Payment, error) {
	target := c.origins[domain.CollectionPayments]
	endpoint := base + "/api/v1/payments"
	if scope.All {
		endpoint += "/all"
	}

	var out []domain.Payment
	var next string
	for range maxPages {
		q := url.Values{}
		q.Set("limit", strconv.Itoa(paymentPageSize))
		if next != "" {
			q.Set("nextToken", next)
		}
		var resp dto.ListPaymentsResponse
		if err := c.http.do(ctx, target, http.MethodGet, endpoint+"?"+q.Encode(), scope.Token, nil, &resp); err != nil {
			return nil, err
		}
		for _, r := range validRecords(ctx, c.http.validate, target, resp.Payments) {
			if !r.IsReplica {
				out = append(out, r.ToDomain())
			}
		}
		if resp.NextToken == nil || *resp.NextToken == "" {
			return out, nil
		}
		next = *resp.NextToken
	}
	return nil, fmt.Errorf("%w: %s returned more than %d pages", apperrors.ErrUpstreamUnavailable, endpoint, maxPages)
}

// CreditAccount posts the credit leg of a transfer to the account's owner
// using the service credentials.
func (c *OwnerClient) CreditAccount(ctx context.Context, origin string, accountID string, transferID string, amount decimal.Decimal) error {
	base, ok := c.byOrigin[origin]
	if !ok {
		base, ok = c.bases[domain.CollectionAccounts]
	}
	if !ok {
		return fmt.Errorf("%w: no owner known for origin %q", apperrors.ErrForbidden, origin)
	}
	if c.serviceTokens == nil {
		return fmt.Errorf("%w: no service credentials configured", apperrors.ErrForbidden)
	}
	tok, err := c.serviceTokens.Token()
	if err != nil {
		return fmt.Errorf("%w: service token: %v", apperrors.ErrForbidden, err)
	}

	endpoint := base + "/api/v1/internal/accounts/" + url.PathEscape(accountID) + "/credit"
	body := dto.InternalCreditRequest{TransferID: transferID, Amount: amount}
	return c.http.do(ctx, originOf(base), http.MethodPost, endpoint, tok.AccessToken, body, nil)
}
