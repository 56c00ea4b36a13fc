package server

import (
	"net/http"
	"strings"

	"github.com/jacksonlee411/nullguard/internal/routing"
	"github.com/jacksonlee411/nullguard/pkg/authz"
	"go.uber.org/zap"
)

type authorizer interface {
	Authorize(subject string, domain string, object string, action string) (allowed bool, enforced bool, err error)
}

func withAuthz(a authorizer, logger *zap.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		object, action, shouldCheck := authzRequirementForRoute(r.Method, r.URL.Path)
		if !shouldCheck {
			next.ServeHTTP(w, r)
			return
		}

		p, _ := currentPrincipal(r.Context())
		subject := authz.SubjectFromRoleSlug(p.RoleSlug)
		domain := authz.DomainFromTenantID(p.TenantID)

		allowed, enforced, err := a.Authorize(subject, domain, object, action)
		if err != nil {
			logger.Error("authz error", zap.String("subject", subject), zap.String("object", object), zap.Error(err))
			routing.WriteError(w, r, http.StatusInternalServerError, "authz_error", "authz error")
			return
		}
		if !allowed {
			if !enforced {
				logger.Warn("authz shadow deny",
					zap.String("subject", subject),
					zap.String("domain", domain),
					zap.String("object", object),
					zap.String("action", action),
				)
			} else {
				routing.WriteError(w, r, http.StatusForbidden, "forbidden", "forbidden")
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}

func authzRequirementForRoute(method string, path string) (object string, action string, ok bool) {
	if strings.HasPrefix(path, "/api/v1/declarations/") {
		if method == http.MethodPut {
			return authz.ObjectDeclarations, authz.ActionAdmin, true
		}
		return "", "", false
	}

	switch path {
	case "/api/v1/record-types":
		if method == http.MethodGet {
			return authz.ObjectDeclarations, authz.ActionRead, true
		}
	case "/api/v1/evaluations", "/api/v1/evaluations:observations":
		if method == http.MethodPost {
			return authz.ObjectEvaluations, authz.ActionRead, true
		}
	}
	return "", "", false
}
