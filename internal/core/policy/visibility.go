// Package policy decides which records a caller may see.
package policy

import "github.com/SscSPs/bank_mesh/internal/core/domain"

// Visible reports whether a caller may see a record whose owning account
// belongs to ownerID. Admins see every record of a collection.
func Visible(role domain.Role, callerID, ownerID string) bool {
	if role.IsAdmin() {
		return true
	}
	return callerID != "" && callerID == ownerID
}

// Filter keeps the records visible to the caller. ownerOf returns the owning
// account's owner for a record and false when the owner is unknown; unknown
// owners are hidden from non-admins.
func Filter[T any](caller domain.Caller, records []T, ownerOf func(T) (string, bool)) []T {
	out := make([]T, 0, len(records))
	for _, r := range records {
		if caller.IsAdmin() {
			out = append(out, r)
			continue
		}
		owner, ok := ownerOf(r)
		if ok && Visible(caller.Role, caller.ClientID, owner) {
			out = append(out, r)
		}
	}
	return out
}

// AccountOwner is an ownerOf function for accounts.
func AccountOwner(a domain.Account) (string, bool) {
	return a.OwnerID, true
}

// ByAccount builds an ownerOf function for records that reference an account
// (payments, credit cards) given the owners of the known accounts.
func ByAccount[T any](owners map[string]string, accountOf func(T) string) func(T) (string, bool) {
	return func(r T) (string, bool) {
		owner, ok := owners[accountOf(r)]
		return owner, ok
	}
}
