package domain

import "time"

// Collection names a replicated entity class.
type Collection string

const (
	CollectionClients     Collection = "clients"
	CollectionAccounts    Collection = "accounts"
	CollectionCreditCards Collection = "credit-cards"
	CollectionPayments    Collection = "payments"
)

// SyncOrder is the order in which the sync coordinator pulls collections;
// parents before children.
var SyncOrder = []Collection{CollectionClients, CollectionAccounts, CollectionCreditCards, CollectionPayments}

// CollectionSyncResult reports what happened to one collection during a sync.
type CollectionSyncResult struct {
	Collection Collection `json:"collection"`
	Fetched    int        `json:"fetched"`
	Upserted   int        `json:"upserted"`
	Skipped    string     `json:"skipped,omitempty"` // Reason the collection was not pulled
	Error      string     `json:"error,omitempty"`
}

// Failed reports whether the collection failed to sync.
func (r CollectionSyncResult) Failed() bool {
	return r.Error != ""
}

// SyncReport aggregates a full resynchronization run.
type SyncReport struct {
	StartedAt   time.Time              `json:"startedAt"`
	FinishedAt  time.Time              `json:"finishedAt"`
	Collections []CollectionSyncResult `json:"collections"`
}

// Partial reports whether at least one collection failed.
func (r SyncReport) Partial() bool {
	for _, c := range r.Collections {
		if c.Failed() {
			return true
		}
	}
	return false
}

// FailedCollections lists the collections that failed.
func (r SyncReport) FailedCollections() []Collection {
	var out []Collection
	for _, c := range r.Collections {
		if c.Failed() {
			out = append(out, c.Collection)
		}
	}
	return out
}

// ReplicaBatch is one upstream snapshot of a collection, already decoded.
// Exactly one slice is populated, matching Collection.
type ReplicaBatch struct {
	Collection  Collection
	Origin      string
	Clients     []Client
	Accounts    []Account
	CreditCards []CreditCard
	Payments    []Payment
}

// Len returns the number of records in the batch.
func (b ReplicaBatch) Len() int {
	return len(b.Clients) + len(b.Accounts) + len(b.CreditCards) + len(b.Payments)
}

// IdentityOrigin is the origin recorded on client rows; clients are always
// owned by the identity provider.
const IdentityOrigin = "identity"
