package server

import (
	"errors"
	"net/http"

	"github.com/jacksonlee411/nullguard/internal/routing"
	"github.com/jacksonlee411/nullguard/pkg/nullability"
	"go.uber.org/zap"
)

type HandlerOptions struct {
	Catalogs CatalogSource
	// Store enables PUT /api/v1/declarations/{record_type}. Nil for
	// file-backed deployments.
	Store           DeclarationStore
	Resolver        nullability.Resolver
	Authorizer      authorizer
	Logger          *zap.Logger
	DefaultTenantID string
	// DefaultRole is the role of callers that do not come through the
	// gateway. Empty means anonymous.
	DefaultRole string
	// GatewaySecret must accompany X-Tenant-ID and X-Actor-Role for those
	// headers to be honored. Empty means they never are.
	GatewaySecret string
}

// specCompiler is implemented by resolvers that can reject field names
// before a constraint is stored.
type specCompiler interface {
	Compile(specs ...nullability.Spec) error
}

type handler struct {
	catalogs CatalogSource
	store    DeclarationStore
	resolver nullability.Resolver
	logger   *zap.Logger
}

func NewHandler(opts HandlerOptions) (http.Handler, error) {
	if opts.Catalogs == nil {
		return nil, errors.New("server: catalog source missing")
	}
	if opts.Resolver == nil {
		return nil, errors.New("server: resolver missing")
	}
	if opts.Authorizer == nil {
		return nil, errors.New("server: authorizer missing")
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	h := &handler{
		catalogs: opts.Catalogs,
		store:    opts.Store,
		resolver: opts.Resolver,
		logger:   logger,
	}

	router := routing.NewRouter(func(r *http.Request, recovered any, stack []byte) {
		logger.Error("handler panic",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Any("panic", recovered),
			zap.ByteString("stack", stack),
		)
	})
	router.Handle(http.MethodGet, "/health", http.HandlerFunc(handleHealth))
	router.Handle(http.MethodGet, "/api/v1/record-types", http.HandlerFunc(h.handleRecordTypes))
	router.Handle(http.MethodPost, "/api/v1/evaluations", http.HandlerFunc(h.handleEvaluate))
	router.Handle(http.MethodPost, "/api/v1/evaluations:observations", http.HandlerFunc(h.handleEvaluateObservations))
	if h.store != nil {
		router.Handle(http.MethodPut, "/api/v1/declarations/{record_type}", http.HandlerFunc(h.handlePutDeclaration))
	}

	var out http.Handler = router
	out = withAuthz(opts.Authorizer, logger, out)
	out = withPrincipalHeaders(newPrincipalSource(opts.GatewaySecret, opts.DefaultTenantID, opts.DefaultRole), out)
	out = withRequestLog(logger, out)
	return out, nil
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	routing.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
