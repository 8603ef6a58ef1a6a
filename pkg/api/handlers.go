package api

import (
	"errors"
	"net/http"

	"github.com/schemaflow/schemaflow/pkg/compatibility"
	"github.com/schemaflow/schemaflow/pkg/evolution"
	"github.com/schemaflow/schemaflow/pkg/httputil"
	"github.com/schemaflow/schemaflow/pkg/migration"
	"github.com/schemaflow/schemaflow/pkg/schema"
	"github.com/schemaflow/schemaflow/pkg/storage"
)

// SchemaPairRequest carries the two snapshots of a transition. OldSchema may
// be null for a brand-new schema.
type SchemaPairRequest struct {
	OldSchema *schema.Schema `json:"old_schema"`
	NewSchema *schema.Schema `json:"new_schema"`
}

// PlanRequest asks for a migration plan for one dialect.
type PlanRequest struct {
	Dialect   string         `json:"dialect"`
	OldSchema *schema.Schema `json:"old_schema"`
	NewSchema *schema.Schema `json:"new_schema"`
}

// ExecuteRequest applies a previously generated plan. TargetSchema is the
// snapshot recorded in history alongside the plan.
type ExecuteRequest struct {
	Plan         *migration.Plan `json:"plan"`
	TargetSchema *schema.Schema  `json:"target_schema"`
}

// compareSchemas handles POST /api/v1/compare
func (s *Server) compareSchemas(w http.ResponseWriter, r *http.Request) {
	var req SchemaPairRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.NewSchema == nil {
		httputil.WriteBadRequest(w, "new_schema is required")
		return
	}

	changes := s.service.Compare(req.OldSchema, req.NewSchema)
	httputil.WriteSuccess(w, struct {
		Changes []compatibility.Change `json:"changes"`
	}{Changes: changes})
}

// validateSchemas handles POST /api/v1/validate
func (s *Server) validateSchemas(w http.ResponseWriter, r *http.Request) {
	var req SchemaPairRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	result := s.service.Validate(req.OldSchema, req.NewSchema)

	// An invalid transition is a well-formed answer, not a server error;
	// 422 lets callers distinguish it without parsing the body.
	status := http.StatusOK
	if !result.Valid {
		status = http.StatusUnprocessableEntity
	}
	httputil.WriteJSON(w, status, result)
}

// generatePlan handles POST /api/v1/plan
func (s *Server) generatePlan(w http.ResponseWriter, r *http.Request) {
	var req PlanRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.NewSchema == nil {
		httputil.WriteBadRequest(w, "new_schema is required")
		return
	}

	dialect, err := schema.ParseDialect(req.Dialect)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	plan, err := s.service.GeneratePlan(dialect, req.OldSchema, req.NewSchema)
	if err != nil {
		var unsupported *migration.UnsupportedDialectError
		if errors.As(err, &unsupported) {
			httputil.WriteBadRequest(w, unsupported.Error())
			return
		}
		httputil.WriteInternalError(w, err)
		return
	}

	httputil.WriteSuccess(w, plan)
}

// executePlan handles POST /api/v1/execute
func (s *Server) executePlan(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		httputil.WriteErrorMessage(w, http.StatusServiceUnavailable, "no migration target database configured")
		return
	}

	var req ExecuteRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.Plan == nil {
		httputil.WriteBadRequest(w, "plan is required")
		return
	}

	result, err := s.service.Execute(r.Context(), s.db, req.Plan, req.TargetSchema)
	if err != nil {
		var stepErr *evolution.StepFailureError
		if errors.As(err, &stepErr) {
			// The transaction was rolled back; the result body carries the
			// step-level detail.
			httputil.WriteJSON(w, http.StatusConflict, result)
			return
		}
		httputil.WriteInternalError(w, err)
		return
	}

	httputil.WriteSuccess(w, result)
}

// listDialects handles GET /api/v1/dialects
func (s *Server) listDialects(w http.ResponseWriter, r *http.Request) {
	dialects := s.service.Dialects()
	names := make([]string, 0, len(dialects))
	for _, d := range dialects {
		names = append(names, d.String())
	}
	httputil.WriteSuccess(w, struct {
		Dialects []string `json:"dialects"`
	}{Dialects: names})
}

// getHistory handles GET /api/v1/history/{sourceId}
func (s *Server) getHistory(w http.ResponseWriter, r *http.Request) {
	sourceID, ok := httputil.ParsePathStringOrError(w, r, "sourceId")
	if !ok {
		return
	}

	entries, err := s.service.GetHistory(r.Context(), sourceID)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, struct {
		SourceID string                  `json:"source_id"`
		Entries  []*storage.HistoryEntry `json:"entries"`
	}{SourceID: sourceID, Entries: entries})
}

// getHistoryVersion handles GET /api/v1/history/{sourceId}/{version}
func (s *Server) getHistoryVersion(w http.ResponseWriter, r *http.Request) {
	sourceID, ok := httputil.ParsePathStringOrError(w, r, "sourceId")
	if !ok {
		return
	}
	version, ok := httputil.ParsePathIntOrError(w, r, "version")
	if !ok {
		return
	}

	entry, err := s.service.GetVersion(r.Context(), sourceID, version)
	if err != nil {
		if errors.Is(err, storage.ErrVersionNotFound) {
			httputil.WriteNotFoundError(w, err.Error())
			return
		}
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, entry)
}
