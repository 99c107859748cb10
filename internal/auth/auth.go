package auth

import (
	"context"
	"net/http"
	"strings"
)

// Identity supplies the owner behind a request. An empty owner id means
// unauthenticated, which callers treat as a valid empty-result case rather
// than an error.
type Identity interface {
	OwnerID(r *http.Request) string
	SignOut(ctx context.Context) error
}

// DefaultOwnerHeader is the header the authenticating front proxy sets after
// verifying the session.
const DefaultOwnerHeader = "X-Owner-ID"

// HeaderIdentity trusts a proxy-set header. The service itself never handles
// credentials; authentication is delegated to the identity provider in front
// of it.
type HeaderIdentity struct {
	Header string
}

func NewHeaderIdentity(header string) *HeaderIdentity {
	if header == "" {
		header = DefaultOwnerHeader
	}
	return &HeaderIdentity{Header: header}
}

func (h *HeaderIdentity) OwnerID(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(h.Header))
}

// SignOut is a no-op here: the session lives at the identity provider, which
// exposes its own sign-out endpoint.
func (h *HeaderIdentity) SignOut(context.Context) error {
	return nil
}

// StaticIdentity pins every request to one owner. Used in tests and
// single-user deployments.
type StaticIdentity struct {
	Owner string
}

func (s *StaticIdentity) OwnerID(*http.Request) string {
	return s.Owner
}

func (s *StaticIdentity) SignOut(context.Context) error {
	return nil
}
