package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/jacksonlee411/nullguard/internal/declare"
	"github.com/jacksonlee411/nullguard/internal/routing"
	"github.com/jacksonlee411/nullguard/pkg/httperr"
	"github.com/jacksonlee411/nullguard/pkg/nullability"
	"github.com/jacksonlee411/nullguard/pkg/uuidv7"
	"go.uber.org/zap"
)

type evaluateRequest struct {
	RecordType string          `json:"record_type"`
	Record     json.RawMessage `json:"record"`
}

type constraintResult struct {
	Name       string   `json:"name,omitempty"`
	Policy     string   `json:"policy"`
	Fields     []string `json:"fields"`
	MaxNotNull *int     `json:"max_not_null,omitempty"`
	Verdict    string   `json:"verdict"`
	Message    string   `json:"message,omitempty"`
}

type evaluateResponse struct {
	EvaluationID string             `json:"evaluation_id"`
	EvaluatedAt  time.Time          `json:"evaluated_at"`
	RecordType   string             `json:"record_type"`
	Valid        bool               `json:"valid"`
	Results      []constraintResult `json:"results"`
}

type observationsRequest struct {
	Policy       string   `json:"policy"`
	Fields       []string `json:"fields"`
	MaxNotNull   *int     `json:"max_not_null,omitempty"`
	Observations []bool   `json:"observations"`
}

type observationsResponse struct {
	Verdict string `json:"verdict"`
	Valid   bool   `json:"valid"`
}

type recordTypeEntry struct {
	RecordType  string               `json:"record_type"`
	Constraints []declare.Constraint `json:"constraints"`
}

type recordTypesResponse struct {
	RecordTypes []recordTypeEntry `json:"record_types"`
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return httperr.NewBadRequestCode("bad_json", "bad json")
	}
	return nil
}

// decodeRecord turns the raw record into what the resolvers work on:
// map[string]any for objects, nil for a missing or null record.
func decodeRecord(raw json.RawMessage) (any, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, nil
	}
	var record any
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, httperr.NewBadRequestCode("bad_json", "bad record json")
	}
	return record, nil
}

func (h *handler) handleRecordTypes(w http.ResponseWriter, r *http.Request) {
	p, _ := currentPrincipal(r.Context())
	catalog, err := h.catalogs.Catalog(r.Context(), p.TenantID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp := recordTypesResponse{RecordTypes: []recordTypeEntry{}}
	for _, t := range catalog.RecordTypes() {
		specs, _ := catalog.Specs(t)
		entry := recordTypeEntry{RecordType: t, Constraints: make([]declare.Constraint, 0, len(specs))}
		for _, s := range specs {
			entry.Constraints = append(entry.Constraints, declare.FromSpec(s))
		}
		resp.RecordTypes = append(resp.RecordTypes, entry)
	}
	routing.WriteJSON(w, http.StatusOK, resp)
}

func (h *handler) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req evaluateRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	req.RecordType = strings.TrimSpace(req.RecordType)
	if req.RecordType == "" {
		routing.WriteError(w, r, http.StatusBadRequest, "invalid_request", "record_type required")
		return
	}
	record, err := decodeRecord(req.Record)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	p, _ := currentPrincipal(r.Context())
	catalog, err := h.catalogs.Catalog(r.Context(), p.TenantID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	specs, ok := catalog.Specs(req.RecordType)
	if !ok {
		h.writeError(w, r, httperr.NewNotFound("record_type_not_found", "record type not found: "+req.RecordType))
		return
	}

	id, err := uuidv7.New()
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	evaluatedAt, _ := uuidv7.Timestamp(id)

	resp := evaluateResponse{
		EvaluationID: id.String(),
		EvaluatedAt:  evaluatedAt,
		RecordType:   req.RecordType,
		Valid:        true,
		Results:      make([]constraintResult, 0, len(specs)),
	}
	for _, s := range specs {
		verdict, err := nullability.Evaluate(s, record, h.resolver)
		if err != nil {
			h.logger.Warn("evaluation failed",
				zap.String("evaluation_id", resp.EvaluationID),
				zap.String("record_type", req.RecordType),
				zap.Stringer("constraint", s),
				zap.Error(err),
			)
			h.writeError(w, r, err)
			return
		}
		c := declare.FromSpec(s)
		result := constraintResult{
			Name:       c.Name,
			Policy:     c.Policy,
			Fields:     c.Fields,
			MaxNotNull: c.MaxNotNull,
			Verdict:    verdict.String(),
		}
		if verdict == nullability.Invalid {
			resp.Valid = false
			result.Message = c.Message
		}
		resp.Results = append(resp.Results, result)
	}

	h.logger.Info("evaluation",
		zap.String("evaluation_id", resp.EvaluationID),
		zap.String("tenant_id", p.TenantID),
		zap.String("record_type", req.RecordType),
		zap.Bool("valid", resp.Valid),
		zap.Int("constraints", len(specs)),
	)
	routing.WriteJSON(w, http.StatusOK, resp)
}

func (h *handler) handleEvaluateObservations(w http.ResponseWriter, r *http.Request) {
	var req observationsRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	spec, err := declare.Constraint{Policy: req.Policy, Fields: req.Fields, MaxNotNull: req.MaxNotNull}.Spec()
	if err != nil {
		routing.WriteError(w, r, http.StatusBadRequest, "invalid_constraint", err.Error())
		return
	}
	observations := make([]nullability.Observation, len(req.Observations))
	for i, set := range req.Observations {
		observations[i] = nullability.ObservationOf(set)
	}
	verdict, err := nullability.EvaluateObservations(spec, observations)
	if err != nil {
		routing.WriteError(w, r, http.StatusBadRequest, "invalid_constraint", err.Error())
		return
	}
	routing.WriteJSON(w, http.StatusOK, observationsResponse{Verdict: verdict.String(), Valid: verdict == nullability.Valid})
}

func (h *handler) handlePutDeclaration(w http.ResponseWriter, r *http.Request) {
	recordType := strings.TrimSpace(routing.PathParam(r, "record_type"))
	p, _ := currentPrincipal(r.Context())
	if p.TenantID == "" {
		routing.WriteError(w, r, http.StatusBadRequest, "tenant_missing", "tenant missing")
		return
	}

	var c declare.Constraint
	if err := decodeJSON(r, &c); err != nil {
		h.writeError(w, r, err)
		return
	}
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		routing.WriteError(w, r, http.StatusBadRequest, "invalid_constraint", "name required")
		return
	}
	spec, err := c.Spec()
	if err != nil {
		routing.WriteError(w, r, http.StatusBadRequest, "invalid_constraint", err.Error())
		return
	}
	if compiler, ok := h.resolver.(specCompiler); ok {
		if err := compiler.Compile(spec); err != nil {
			routing.WriteError(w, r, http.StatusBadRequest, "invalid_constraint", err.Error())
			return
		}
	}
	stored := declare.FromSpec(spec)
	if err := h.store.PutConstraint(r.Context(), p.TenantID, recordType, stored); err != nil {
		if httperr.IsBadRequest(err) {
			h.writeError(w, r, err)
			return
		}
		h.logger.Error("put declaration failed",
			zap.String("tenant_id", p.TenantID),
			zap.String("record_type", recordType),
			zap.String("name", c.Name),
			zap.Error(err),
		)
		routing.WriteError(w, r, http.StatusInternalServerError, "declarations_store_error", "declarations store error")
		return
	}

	h.logger.Info("declaration stored",
		zap.String("tenant_id", p.TenantID),
		zap.String("record_type", recordType),
		zap.Stringer("constraint", spec),
	)
	routing.WriteJSON(w, http.StatusOK, recordTypeEntry{RecordType: recordType, Constraints: []declare.Constraint{stored}})
}

func (h *handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case httperr.IsBadRequest(err):
		code, _ := httperr.Code(err)
		routing.WriteError(w, r, http.StatusBadRequest, code, err.Error())
	case httperr.IsNotFound(err):
		code, _ := httperr.Code(err)
		routing.WriteError(w, r, http.StatusNotFound, code, err.Error())
	case nullability.IsFieldResolutionError(err):
		routing.WriteError(w, r, http.StatusUnprocessableEntity, "field_resolution_failed", err.Error())
	case nullability.IsConfigurationError(err):
		routing.WriteError(w, r, http.StatusInternalServerError, "constraint_misconfigured", err.Error())
	default:
		h.logger.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
		routing.WriteError(w, r, http.StatusInternalServerError, "internal_error", "internal error")
	}
}
