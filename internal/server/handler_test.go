package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/jacksonlee411/nullguard/internal/config"
	"github.com/jacksonlee411/nullguard/internal/declare"
	"github.com/jacksonlee411/nullguard/internal/routing"
	"github.com/jacksonlee411/nullguard/pkg/authz"
	"github.com/jacksonlee411/nullguard/pkg/httperr"
	"github.com/jacksonlee411/nullguard/pkg/nullability/fields"
	"go.uber.org/zap/zaptest"
)

const testDeclarations = `
version: 1
records:
  payment_method:
    constraints:
      - name: one_instrument
        policy: EXACTLY_ONE
        fields: [card_number, iban, wallet]
        message: exactly one payment instrument must be set
      - name: address
        policy: ALL_OR_NONE
        fields: [street, city]
  shipment:
    constraints:
      - name: carrier
        policy: AT_MOST_N
        max_not_null: 1
        fields: [billing.carrier, shipping.carrier]
`

func testCatalog(t *testing.T) *declare.Catalog {
	t.Helper()
	d, err := declare.ParseDeclarationsYAML([]byte(testDeclarations))
	if err != nil {
		t.Fatal(err)
	}
	c, err := declare.NewCatalog(d)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

type allowAll struct{}

func (allowAll) Authorize(string, string, string, string) (bool, bool, error) { return true, true, nil }

func newTestHandler(t *testing.T, mutate func(*HandlerOptions)) http.Handler {
	t.Helper()
	catalog := testCatalog(t)
	resolver, err := NewResolver(config.ResolverMap, fields.MissingFieldFatal, catalog)
	if err != nil {
		t.Fatal(err)
	}
	opts := HandlerOptions{
		Catalogs:        NewStaticCatalog(catalog),
		Resolver:        resolver,
		Authorizer:      allowAll{},
		Logger:          zaptest.NewLogger(t),
		DefaultTenantID: "00000000-0000-0000-0000-000000000001",
		GatewaySecret:   testGatewaySecret,
	}
	if mutate != nil {
		mutate(&opts)
	}
	h, err := NewHandler(opts)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	return h
}

const testGatewaySecret = "gw-secret"

// asCaller returns the headers the gateway sends for an authenticated caller.
func asCaller(tenantID string, role string) []string {
	h := []string{"X-Gateway-Secret", testGatewaySecret}
	if tenantID != "" {
		h = append(h, "X-Tenant-ID", tenantID)
	}
	if role != "" {
		h = append(h, "X-Actor-Role", role)
	}
	return h
}

func do(t *testing.T, h http.Handler, method string, path string, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("unmarshal: %v body=%s", err, rec.Body.String())
	}
	return v
}

func TestNewHandler_RequiresDependencies(t *testing.T) {
	t.Parallel()

	catalog := NewStaticCatalog(testCatalog(t))
	resolver := fields.NewMapResolver(fields.Options{})
	cases := []HandlerOptions{
		{Resolver: resolver, Authorizer: allowAll{}},
		{Catalogs: catalog, Authorizer: allowAll{}},
		{Catalogs: catalog, Resolver: resolver},
	}
	for _, opts := range cases {
		if _, err := NewHandler(opts); err == nil {
			t.Fatalf("opts=%+v expected error", opts)
		}
	}
}

func TestHealth(t *testing.T) {
	t.Parallel()

	rec := do(t, newTestHandler(t, nil), http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
}

func TestRecordTypes(t *testing.T) {
	t.Parallel()

	rec := do(t, newTestHandler(t, nil), http.MethodGet, "/api/v1/record-types", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	body := decodeBody[recordTypesResponse](t, rec)
	var got []string
	for _, e := range body.RecordTypes {
		got = append(got, e.RecordType)
	}
	if diff := cmp.Diff([]string{"payment_method", "shipment"}, got); diff != "" {
		t.Fatalf("record types mismatch (-want +got):\n%s", diff)
	}
	if len(body.RecordTypes[0].Constraints) != 2 || body.RecordTypes[0].Constraints[0].Policy != "EXACTLY_ONE" {
		t.Fatalf("constraints=%+v", body.RecordTypes[0].Constraints)
	}
}

func TestEvaluate(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t, nil)

	t.Run("valid", func(t *testing.T) {
		rec := do(t, h, http.MethodPost, "/api/v1/evaluations",
			`{"record_type":"payment_method","record":{"card_number":null,"iban":"DE00","wallet":null,"street":"Main","city":"Berlin"}}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
		}
		body := decodeBody[evaluateResponse](t, rec)
		if !body.Valid || body.EvaluationID == "" || body.EvaluatedAt.IsZero() {
			t.Fatalf("body=%+v", body)
		}
	})

	t.Run("invalid", func(t *testing.T) {
		rec := do(t, h, http.MethodPost, "/api/v1/evaluations",
			`{"record_type":"payment_method","record":{"card_number":"4111","iban":"DE00","wallet":null,"street":"Main","city":null}}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
		}
		body := decodeBody[evaluateResponse](t, rec)
		want := []constraintResult{
			{Name: "one_instrument", Policy: "EXACTLY_ONE", Fields: []string{"card_number", "iban", "wallet"}, Verdict: "invalid", Message: "exactly one payment instrument must be set"},
			{Name: "address", Policy: "ALL_OR_NONE", Fields: []string{"street", "city"}, Verdict: "invalid"},
		}
		if body.Valid {
			t.Fatal("expected invalid")
		}
		if diff := cmp.Diff(want, body.Results); diff != "" {
			t.Fatalf("results mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("null record is valid", func(t *testing.T) {
		rec := do(t, h, http.MethodPost, "/api/v1/evaluations", `{"record_type":"payment_method","record":null}`)
		body := decodeBody[evaluateResponse](t, rec)
		if rec.Code != http.StatusOK || !body.Valid {
			t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
		}
		for _, r := range body.Results {
			if r.Verdict != "valid" {
				t.Fatalf("result=%+v", r)
			}
		}
	})

	cases := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"bad json", `{`, http.StatusBadRequest, "bad_json"},
		{"unknown field", `{"record_type":"payment_method","extra":1}`, http.StatusBadRequest, "bad_json"},
		{"record type missing", `{"record":{}}`, http.StatusBadRequest, "invalid_request"},
		{"unknown record type", `{"record_type":"invoice","record":{}}`, http.StatusNotFound, "record_type_not_found"},
		{"missing field", `{"record_type":"payment_method","record":{"iban":"DE00"}}`, http.StatusUnprocessableEntity, "field_resolution_failed"},
		{"record not an object", `{"record_type":"payment_method","record":[1,2]}`, http.StatusUnprocessableEntity, "field_resolution_failed"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/api/v1/evaluations", tc.body)
			if rec.Code != tc.status {
				t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
			}
			if env := decodeBody[routing.ErrorEnvelope](t, rec); env.Code != tc.code {
				t.Fatalf("code=%q", env.Code)
			}
		})
	}
}

func TestEvaluate_CELPaths(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t, func(o *HandlerOptions) {
		r, err := NewResolver(config.ResolverCEL, fields.MissingFieldAbsent, testCatalog(t))
		if err != nil {
			t.Fatal(err)
		}
		o.Resolver = r
	})

	rec := do(t, h, http.MethodPost, "/api/v1/evaluations",
		`{"record_type":"shipment","record":{"billing":{"carrier":"dhl"},"shipping":{"carrier":"ups"}}}`)
	body := decodeBody[evaluateResponse](t, rec)
	if rec.Code != http.StatusOK || body.Valid {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	if body.Results[0].MaxNotNull == nil || *body.Results[0].MaxNotNull != 1 {
		t.Fatalf("result=%+v", body.Results[0])
	}

	rec = do(t, h, http.MethodPost, "/api/v1/evaluations",
		`{"record_type":"shipment","record":{"billing":{"carrier":"dhl"}}}`)
	body = decodeBody[evaluateResponse](t, rec)
	if rec.Code != http.StatusOK || !body.Valid {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
}

func TestEvaluateObservations(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t, nil)
	cases := []struct {
		body    string
		status  int
		verdict string
	}{
		{`{"policy":"ALL_OR_NONE","fields":["a","b","c"],"observations":[true,true,true]}`, http.StatusOK, "valid"},
		{`{"policy":"EXACTLY_ONE","fields":["a","b","c"],"observations":[false,false,false]}`, http.StatusOK, "invalid"},
		{`{"policy":"AT_MOST_N","max_not_null":2,"fields":["a","b","c"],"observations":[true,false,true]}`, http.StatusOK, "valid"},
		{`{"policy":"AT_MOST_N","max_not_null":0,"fields":["a","b"],"observations":[true,false]}`, http.StatusBadRequest, ""},
		{`{"policy":"ALL_OR_NONE","fields":["a"],"observations":[true]}`, http.StatusBadRequest, ""},
		{`{"policy":"ALL_OR_NONE","fields":["a","b"],"observations":[true]}`, http.StatusBadRequest, ""},
	}
	for _, tc := range cases {
		rec := do(t, h, http.MethodPost, "/api/v1/evaluations:observations", tc.body)
		if rec.Code != tc.status {
			t.Fatalf("body=%s status=%d resp=%s", tc.body, rec.Code, rec.Body.String())
		}
		if tc.status != http.StatusOK {
			if env := decodeBody[routing.ErrorEnvelope](t, rec); env.Code != "invalid_constraint" {
				t.Fatalf("code=%q", env.Code)
			}
			continue
		}
		if got := decodeBody[observationsResponse](t, rec); got.Verdict != tc.verdict || got.Valid != (tc.verdict == "valid") {
			t.Fatalf("body=%s got=%+v", tc.body, got)
		}
	}
}

type fakeStore struct {
	byTenant map[string]map[string][]declare.Constraint
	putErr   error
}

func (s *fakeStore) ListDeclarations(_ context.Context, tenantID string) (map[string][]declare.Constraint, error) {
	return s.byTenant[tenantID], nil
}

func (s *fakeStore) PutConstraint(_ context.Context, tenantID string, recordType string, c declare.Constraint) error {
	if s.putErr != nil {
		return s.putErr
	}
	if s.byTenant[tenantID] == nil {
		s.byTenant[tenantID] = make(map[string][]declare.Constraint)
	}
	s.byTenant[tenantID][recordType] = append(s.byTenant[tenantID][recordType], c)
	return nil
}

func TestPutDeclaration(t *testing.T) {
	t.Parallel()

	store := &fakeStore{byTenant: map[string]map[string][]declare.Constraint{}}
	h := newTestHandler(t, func(o *HandlerOptions) {
		o.Store = store
		o.Catalogs = NewStoreCatalog(store)
	})

	rec := do(t, h, http.MethodPut, "/api/v1/declarations/contact",
		`{"name":"one_channel","policy":"exactly_one","fields":["email","phone"]}`, asCaller("t1", "")...)
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	want := []declare.Constraint{{Name: "one_channel", Policy: "EXACTLY_ONE", Fields: []string{"email", "phone"}}}
	if diff := cmp.Diff(want, store.byTenant["t1"]["contact"], cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("stored mismatch (-want +got):\n%s", diff)
	}

	rec = do(t, h, http.MethodPost, "/api/v1/evaluations", `{"record_type":"contact","record":{"email":"a@b","phone":"1"}}`, asCaller("t1", "")...)
	if body := decodeBody[evaluateResponse](t, rec); rec.Code != http.StatusOK || body.Valid {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}

	rec = do(t, h, http.MethodPost, "/api/v1/evaluations", `{"record_type":"contact","record":{}}`, asCaller("t2", "")...)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}

	for _, body := range []string{
		`{"policy":"EXACTLY_ONE","fields":["a","b"]}`,
		`{"name":"x","policy":"EXACTLY_ONE","fields":["a"]}`,
		`{`,
	} {
		if rec := do(t, h, http.MethodPut, "/api/v1/declarations/contact", body); rec.Code != http.StatusBadRequest {
			t.Fatalf("body=%s status=%d", body, rec.Code)
		}
	}

	store.putErr = errors.New("db down")
	rec = do(t, h, http.MethodPut, "/api/v1/declarations/contact", `{"name":"x","policy":"ALL_OR_NONE","fields":["a","b"]}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d", rec.Code)
	}
}

func TestPutDeclaration_NotRoutedWithoutStore(t *testing.T) {
	t.Parallel()

	rec := do(t, newTestHandler(t, nil), http.MethodPut, "/api/v1/declarations/contact", `{}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status=%d", rec.Code)
	}
}

func TestAuthz(t *testing.T) {
	t.Parallel()

	a, err := authz.NewAuthorizer("", "", authz.ModeEnforce)
	if err != nil {
		t.Fatal(err)
	}
	store := &fakeStore{byTenant: map[string]map[string][]declare.Constraint{}}
	h := newTestHandler(t, func(o *HandlerOptions) {
		o.Authorizer = a
		o.Store = store
	})
	eval := `{"record_type":"payment_method","record":null}`
	put := `{"name":"x","policy":"ALL_OR_NONE","fields":["a","b"]}`

	if rec := do(t, h, http.MethodPost, "/api/v1/evaluations", eval); rec.Code != http.StatusForbidden {
		t.Fatalf("status=%d", rec.Code)
	}
	if rec := do(t, h, http.MethodPost, "/api/v1/evaluations", eval, asCaller("", "evaluator")...); rec.Code != http.StatusOK {
		t.Fatalf("status=%d", rec.Code)
	}
	if rec := do(t, h, http.MethodPut, "/api/v1/declarations/contact", put, asCaller("", "evaluator")...); rec.Code != http.StatusForbidden {
		t.Fatalf("status=%d", rec.Code)
	}
	if rec := do(t, h, http.MethodPut, "/api/v1/declarations/contact", put, asCaller("", "tenant-admin")...); rec.Code != http.StatusOK {
		t.Fatalf("status=%d", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/health", ""); rec.Code != http.StatusOK {
		t.Fatalf("status=%d", rec.Code)
	}

	shadow, err := authz.NewAuthorizer("", "", authz.ModeShadow)
	if err != nil {
		t.Fatal(err)
	}
	hs := newTestHandler(t, func(o *HandlerOptions) { o.Authorizer = shadow })
	if rec := do(t, hs, http.MethodPost, "/api/v1/evaluations", eval); rec.Code != http.StatusOK {
		t.Fatalf("status=%d", rec.Code)
	}
}

type failingAuthorizer struct{}

func (failingAuthorizer) Authorize(string, string, string, string) (bool, bool, error) {
	return false, true, errors.New("boom")
}

func TestAuthz_Error(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t, func(o *HandlerOptions) { o.Authorizer = failingAuthorizer{} })
	rec := do(t, h, http.MethodGet, "/api/v1/record-types", "")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d", rec.Code)
	}
}

func TestAuthzRequirementForRoute(t *testing.T) {
	t.Parallel()

	cases := []struct {
		method, path, object, action string
		ok                           bool
	}{
		{http.MethodGet, "/health", "", "", false},
		{http.MethodGet, "/api/v1/record-types", authz.ObjectDeclarations, authz.ActionRead, true},
		{http.MethodPost, "/api/v1/evaluations", authz.ObjectEvaluations, authz.ActionRead, true},
		{http.MethodPost, "/api/v1/evaluations:observations", authz.ObjectEvaluations, authz.ActionRead, true},
		{http.MethodPut, "/api/v1/declarations/x", authz.ObjectDeclarations, authz.ActionAdmin, true},
		{http.MethodGet, "/api/v1/declarations/x", "", "", false},
		{http.MethodGet, "/api/v1/evaluations", "", "", false},
	}
	for _, tc := range cases {
		object, action, ok := authzRequirementForRoute(tc.method, tc.path)
		if object != tc.object || action != tc.action || ok != tc.ok {
			t.Fatalf("%s %s => %q %q %v", tc.method, tc.path, object, action, ok)
		}
	}
}

type errCatalogSource struct{}

func (errCatalogSource) Catalog(context.Context, string) (*declare.Catalog, error) {
	return nil, errors.New("db down")
}

func TestCatalogSourceError(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t, func(o *HandlerOptions) { o.Catalogs = errCatalogSource{} })
	rec := do(t, h, http.MethodPost, "/api/v1/evaluations", `{"record_type":"payment_method","record":{}}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d", rec.Code)
	}
	if env := decodeBody[routing.ErrorEnvelope](t, rec); env.Code != "internal_error" {
		t.Fatalf("code=%q", env.Code)
	}
}

func TestStoreCatalog_MisconfiguredRows(t *testing.T) {
	t.Parallel()

	store := &fakeStore{byTenant: map[string]map[string][]declare.Constraint{
		"t1": {"contact": {{Name: "bad", Policy: "ALL_OR_NONE", Fields: []string{"email"}}}},
	}}
	h := newTestHandler(t, func(o *HandlerOptions) { o.Catalogs = NewStoreCatalog(store) })
	rec := do(t, h, http.MethodPost, "/api/v1/evaluations", `{"record_type":"contact","record":{}}`, asCaller("t1", "")...)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d", rec.Code)
	}
	if env := decodeBody[routing.ErrorEnvelope](t, rec); env.Code != "constraint_misconfigured" {
		t.Fatalf("code=%q", env.Code)
	}
}

func TestPrincipal_GatewayTrust(t *testing.T) {
	t.Parallel()

	a, err := authz.NewAuthorizer("", "", authz.ModeEnforce)
	if err != nil {
		t.Fatal(err)
	}
	store := &fakeStore{byTenant: map[string]map[string][]declare.Constraint{}}
	h := newTestHandler(t, func(o *HandlerOptions) {
		o.Authorizer = a
		o.Store = store
		o.DefaultRole = authz.RoleEvaluator
	})
	put := `{"name":"x","policy":"ALL_OR_NONE","fields":["a","b"]}`
	const otherTenant = "00000000-0000-0000-0000-000000000002"

	rec := do(t, h, http.MethodPut, "/api/v1/declarations/contact", put,
		"X-Actor-Role", "tenant-admin", "X-Tenant-ID", otherTenant)
	if rec.Code != http.StatusForbidden || len(store.byTenant) != 0 {
		t.Fatalf("status=%d stored=%v", rec.Code, store.byTenant)
	}

	rec = do(t, h, http.MethodPut, "/api/v1/declarations/contact", put,
		"X-Gateway-Secret", "guess", "X-Actor-Role", "tenant-admin", "X-Tenant-ID", otherTenant)
	if rec.Code != http.StatusUnauthorized || len(store.byTenant) != 0 {
		t.Fatalf("status=%d stored=%v", rec.Code, store.byTenant)
	}
	if env := decodeBody[routing.ErrorEnvelope](t, rec); env.Code != "unauthenticated" {
		t.Fatalf("code=%q", env.Code)
	}

	rec = do(t, h, http.MethodPut, "/api/v1/declarations/contact", put, asCaller(otherTenant, "tenant-admin")...)
	if rec.Code != http.StatusOK || len(store.byTenant[otherTenant]["contact"]) != 1 {
		t.Fatalf("status=%d stored=%v", rec.Code, store.byTenant)
	}

	eval := `{"record_type":"payment_method","record":null}`
	if rec := do(t, h, http.MethodPost, "/api/v1/evaluations", eval); rec.Code != http.StatusOK {
		t.Fatalf("status=%d", rec.Code)
	}

	noGateway := newTestHandler(t, func(o *HandlerOptions) {
		o.Authorizer = a
		o.GatewaySecret = ""
	})
	if rec := do(t, noGateway, http.MethodPost, "/api/v1/evaluations", eval, asCaller("", "evaluator")...); rec.Code != http.StatusUnauthorized {
		t.Fatalf("status=%d", rec.Code)
	}
	if rec := do(t, noGateway, http.MethodPost, "/api/v1/evaluations", eval, "X-Actor-Role", "evaluator"); rec.Code != http.StatusForbidden {
		t.Fatalf("status=%d", rec.Code)
	}
}

func TestPutDeclaration_RejectsPathsTheResolverCannotCompile(t *testing.T) {
	t.Parallel()

	store := &fakeStore{byTenant: map[string]map[string][]declare.Constraint{}}
	h := newTestHandler(t, func(o *HandlerOptions) {
		r, err := NewResolver(config.ResolverCEL, fields.MissingFieldFatal, nil)
		if err != nil {
			t.Fatal(err)
		}
		o.Resolver = r
		o.Store = store
		o.Catalogs = NewStoreCatalog(store)
	})

	rec := do(t, h, http.MethodPut, "/api/v1/declarations/shipment",
		`{"name":"carrier","policy":"ALL_OR_NONE","fields":["billing..iban","b"]}`)
	if rec.Code != http.StatusBadRequest || len(store.byTenant) != 0 {
		t.Fatalf("status=%d stored=%v", rec.Code, store.byTenant)
	}
	if env := decodeBody[routing.ErrorEnvelope](t, rec); env.Code != "invalid_constraint" {
		t.Fatalf("code=%q", env.Code)
	}

	rec = do(t, h, http.MethodPut, "/api/v1/declarations/shipment",
		`{"name":"carrier","policy":"ALL_OR_NONE","fields":["billing.iban","b"]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	rec = do(t, h, http.MethodPost, "/api/v1/evaluations", `{"record_type":"shipment","record":{"billing":{"iban":null},"b":null}}`)
	if body := decodeBody[evaluateResponse](t, rec); rec.Code != http.StatusOK || !body.Valid {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
}

func TestPutDeclaration_InvalidTenant(t *testing.T) {
	t.Parallel()

	store := &fakeStore{
		byTenant: map[string]map[string][]declare.Constraint{},
		putErr:   httperr.NewBadRequestCode("invalid_tenant", "tenant_id must be a uuid: acme"),
	}
	h := newTestHandler(t, func(o *HandlerOptions) { o.Store = store })
	rec := do(t, h, http.MethodPut, "/api/v1/declarations/contact",
		`{"name":"x","policy":"ALL_OR_NONE","fields":["a","b"]}`, asCaller("acme", "")...)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status=%d", rec.Code)
	}
	if env := decodeBody[routing.ErrorEnvelope](t, rec); env.Code != "invalid_tenant" {
		t.Fatalf("code=%q", env.Code)
	}
}
