// Package directory resolves a person's email address from the users directory.
package directory

import (
	"context"
	"errors"
	"strings"

	"github.com/ancsystem/anc-notifier/internal/model"
	"github.com/ancsystem/anc-notifier/internal/repository"
)

// UserStore is the read side of the users directory. Implementations return
// repository.ErrNotFound when nothing matches.
type UserStore interface {
	FindFirstByName(ctx context.Context, firstname, surname, role string) (*model.User, error)
}

// Resolution is the outcome of a lookup: either an address was found or it is missing.
type Resolution struct {
	address string
}

// Found returns a resolution carrying address
func Found(address string) Resolution {
	return Resolution{address: address}
}

// Missing is the resolution for "no email available"
var Missing = Resolution{}

// Address returns the resolved address and whether one was found
func (r Resolution) Address() (string, bool) {
	return r.address, r.address != ""
}

// IsFound reports whether an address was resolved
func (r Resolution) IsFound() bool {
	return r.address != ""
}

// Directory looks up user email addresses by name.
type Directory struct {
	store UserStore
}

// New creates a Directory over store
func New(store UserStore) *Directory {
	return &Directory{store: store}
}

// Lookup finds the email of the first user named firstname surname, filtered
// by role when role is non-empty. A blank name short-circuits to Missing
// without touching the store; so do no match and a match without an email.
// Only store failures are returned as errors.
func (d *Directory) Lookup(ctx context.Context, firstname, surname, role string) (Resolution, error) {
	if strings.TrimSpace(firstname) == "" || strings.TrimSpace(surname) == "" {
		return Missing, nil
	}

	user, err := d.store.FindFirstByName(ctx, firstname, surname, role)
	if errors.Is(err, repository.ErrNotFound) {
		return Missing, nil
	}
	if err != nil {
		return Missing, err
	}

	return Found(strings.TrimSpace(user.Email)), nil
}
