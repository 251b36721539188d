// Package session stores signed-in sessions per client context.
//
// A client context (one browser profile, one API consumer) owns two scopes:
// a short one that lives as long as the client's tab session and a long one
// that survives restarts. Inside each scope, sessions are kept under a
// namespace per role so a buyer, dealer and sales agent can be signed in
// side by side.
package session

import (
	"context"
	"errors"

	"github.com/ldotspots/zuco-motors/internal/models"
)

type Scope string

const (
	ScopeShort Scope = "short"
	ScopeLong  Scope = "long"
)

const (
	NamespaceBuyer  = "zuco_session_buyer"
	NamespaceDealer = "zuco_session_dealer"
	NamespaceAgent  = "zuco_session_agent"

	RememberKey = "zuco_remember"
)

var ErrEmptyClient = errors.New("client context required")

// Namespaces lists every role namespace in lookup order.
func Namespaces() []string {
	return []string{NamespaceBuyer, NamespaceDealer, NamespaceAgent}
}

func NamespaceForRole(role models.UserRole) string {
	switch role {
	case models.UserRoleDealer:
		return NamespaceDealer
	case models.UserRoleSalesAgent:
		return NamespaceAgent
	default:
		return NamespaceBuyer
	}
}

// Store persists sessions. Get reports ok=false when nothing is stored; it
// does not check expiry.
type Store interface {
	Get(ctx context.Context, client string, scope Scope, namespace string) (models.Session, bool, error)
	Put(ctx context.Context, client string, scope Scope, namespace string, s models.Session) error
	Delete(ctx context.Context, client string, scope Scope, namespace string) error
	SetRemember(ctx context.Context, client string) error
	Remembered(ctx context.Context, client string) (bool, error)
	ClearRemember(ctx context.Context, client string) error
}

// Find returns the session for a client. With a namespace it tries the short
// scope then the long scope. With no namespace it scans every role namespace
// in order, short scope first within each.
func Find(ctx context.Context, st Store, client, namespace string) (models.Session, string, bool, error) {
	candidates := []string{namespace}
	if namespace == "" {
		candidates = Namespaces()
	}

	for _, ns := range candidates {
		for _, scope := range []Scope{ScopeShort, ScopeLong} {
			s, ok, err := st.Get(ctx, client, scope, ns)
			if err != nil {
				return models.Session{}, "", false, err
			}
			if ok {
				return s, ns, true, nil
			}
		}
	}
	return models.Session{}, "", false, nil
}

// Clear removes the given namespaces from both scopes along with the
// remember flag. No namespaces means all of them.
func Clear(ctx context.Context, st Store, client string, namespaces ...string) error {
	if len(namespaces) == 0 {
		namespaces = Namespaces()
	}
	for _, ns := range namespaces {
		for _, scope := range []Scope{ScopeShort, ScopeLong} {
			if err := st.Delete(ctx, client, scope, ns); err != nil {
				return err
			}
		}
	}
	return st.ClearRemember(ctx, client)
}
