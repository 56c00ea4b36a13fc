package server

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/jacksonlee411/nullguard/internal/routing"
	"github.com/jacksonlee411/nullguard/pkg/authz"
)

const (
	headerTenantID      = "X-Tenant-ID"
	headerActorRole     = "X-Actor-Role"
	headerGatewaySecret = "X-Gateway-Secret"
)

type Principal struct {
	TenantID string
	RoleSlug string
}

type principalContextKey struct{}

func withPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

func currentPrincipal(ctx context.Context) (Principal, bool) {
	v := ctx.Value(principalContextKey{})
	if v == nil {
		return Principal{}, false
	}
	p, ok := v.(Principal)
	return p, ok
}

// principalSource decides who the caller is. X-Tenant-ID and X-Actor-Role
// are identity claims made by the gateway in front of the service, so they
// only count on requests that carry the shared gateway secret. Every other
// request runs as the fallback principal.
type principalSource struct {
	gatewaySecret string
	fallback      Principal
}

func newPrincipalSource(gatewaySecret string, defaultTenant string, defaultRole string) principalSource {
	role := strings.TrimSpace(defaultRole)
	if role == "" {
		role = authz.RoleAnonymous
	}
	return principalSource{
		gatewaySecret: gatewaySecret,
		fallback:      Principal{TenantID: strings.TrimSpace(defaultTenant), RoleSlug: role},
	}
}

// resolve reports false when the request presents a gateway secret that does
// not match.
func (s principalSource) resolve(r *http.Request) (Principal, bool) {
	presented := r.Header.Get(headerGatewaySecret)
	if presented == "" {
		return s.fallback, true
	}
	if s.gatewaySecret == "" || subtle.ConstantTimeCompare([]byte(presented), []byte(s.gatewaySecret)) != 1 {
		return Principal{}, false
	}

	p := s.fallback
	if tenantID := strings.TrimSpace(r.Header.Get(headerTenantID)); tenantID != "" {
		p.TenantID = tenantID
	}
	if role := strings.TrimSpace(r.Header.Get(headerActorRole)); role != "" {
		p.RoleSlug = role
	}
	return p, true
}

func withPrincipalHeaders(src principalSource, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := src.resolve(r)
		if !ok {
			routing.WriteError(w, r, http.StatusUnauthorized, "unauthenticated", "gateway secret mismatch")
			return
		}
		next.ServeHTTP(w, r.WithContext(withPrincipal(r.Context(), p)))
	})
}
