package dto

import (
	"time"

	"github.com/SscSPs/bank_mesh/internal/core/domain"
)

// ClientResponse defines the data returned for a client. The identity
// provider's /clients/me and /clients/all use the same shape.
type ClientResponse struct {
	ClientID      string      `json:"clientID" validate:"required"`
	Username      string      `json:"username" validate:"required"`
	Role          domain.Role `json:"role" validate:"required,oneof=client admin"`
	IsReplica     bool        `json:"isReplica"`
	OriginService string      `json:"originService,omitempty"`
	Version       int64       `json:"version" validate:"gte=0"`
	CreatedAt     time.Time   `json:"createdAt"`
	DeletedAt     *time.Time  `json:"deletedAt,omitempty"`
}

// ToClientResponse converts a domain.Client to its DTO.
func ToClientResponse(c *domain.Client) ClientResponse {
	return ClientResponse{
		ClientID:      c.ClientID,
		Username:      c.Username,
		Role:          c.Role,
		IsReplica:     c.IsReplica,
		OriginService: c.OriginService,
		Version:       c.Version,
		CreatedAt:     c.CreatedAt,
		DeletedAt:     c.DeletedAt,
	}
}

// ToDomain converts a wire record back into a client.
func (r ClientResponse) ToDomain() domain.Client {
	return domain.Client{
		ClientID:    r.ClientID,
		Username:    r.Username,
		Role:        r.Role,
		ReplicaMeta: domain.ReplicaMeta{Version: r.Version},
		AuditFields: domain.AuditFields{CreatedAt: r.CreatedAt, LastUpdatedAt: r.CreatedAt},
		DeletedAt:   r.DeletedAt,
	}
}

// ListClientsResponse wraps the list of clients.
type ListClientsResponse struct {
	Clients []ClientResponse `json:"clients"`
}

// ToListClientResponse converts a slice of domain.Client to ListClientsResponse DTO
func ToListClientResponse(clients []domain.Client) ListClientsResponse {
	res := make([]ClientResponse, len(clients))
	for i, c := range clients {
		res[i] = ToClientResponse(&c)
	}
	return ListClientsResponse{Clients: res}
}

// VerifyResponse is the identity provider's answer to GET /verify.
type VerifyResponse struct {
	Username string `json:"username" validate:"required"`
	Role     string `json:"role" validate:"required"`
}
