package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/GoCodeAlone/modgraph"
	"github.com/GoCodeAlone/modgraph/surrogate"
)

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

type healthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "healthy",
		Timestamp: s.now().UTC().Format("2006-01-02T15:04:05Z07:00"),
		Version:   Version,
	})
}

func (s *Server) handleListModules(w http.ResponseWriter, r *http.Request) {
	modules, err := s.gateway.GetAll(r.Context())
	if err != nil {
		s.fail(w, "load", "", err)
		return
	}
	writeJSON(w, http.StatusOK, modules)
}

func (s *Server) handleGetModule(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	modules, err := s.gateway.GetAll(r.Context())
	if err != nil {
		s.fail(w, "load", name, err)
		return
	}
	m, ok := modules[name]
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("Module %s not found", name))
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleCreateModule(w http.ResponseWriter, r *http.Request) {
	var m modgraph.Module
	if !decodeJSON(w, r, &m) {
		return
	}
	created, err := s.gateway.Create(r.Context(), m)
	s.observe("create", err)
	if err != nil {
		s.fail(w, "create", m.Name, err)
		return
	}
	s.logger.Info("Module created", "module", created.Name)
	s.emit(r.Context(), modgraph.EventTypeModuleCreated, modgraph.ModuleEventData{Name: created.Name, Module: &created})
	writeJSON(w, http.StatusCreated, created)
}

type updateRequest struct {
	Name *string `json:"name,omitempty"`
	modgraph.ModulePatch
}

func (s *Server) handleUpdateModule(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	var req updateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Name != nil && *req.Name != name {
		writeError(w, http.StatusBadRequest, "Module name cannot be changed")
		return
	}
	if req.IsEmpty() {
		writeError(w, http.StatusBadRequest, "No JSON data provided")
		return
	}

	updated, err := s.gateway.Update(r.Context(), name, req.ModulePatch)
	s.observe("update", err)
	if err != nil {
		s.fail(w, "update", name, err)
		return
	}
	s.logger.Info("Module updated", "module", name, "fields", req.Fields())
	s.emit(r.Context(), modgraph.EventTypeModuleUpdated, modgraph.ModuleEventData{Name: name, Module: &updated})
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteModule(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	err := s.gateway.Delete(r.Context(), name)
	s.observe("delete", err)
	if err != nil {
		s.fail(w, "delete", name, err)
		return
	}
	s.logger.Info("Module deleted", "module", name)
	s.emit(r.Context(), modgraph.EventTypeModuleDeleted, modgraph.ModuleEventData{Name: name})
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	statuses, err := parseStatuses(r.URL.Query().Get("statuses"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	modules, err := s.list(r)
	if err != nil {
		s.fail(w, "load", "", err)
		return
	}
	writeJSON(w, http.StatusOK, modgraph.BuildGraph(modules, statuses))
}

func (s *Server) handleStatistics(w http.ResponseWriter, r *http.Request) {
	modules, err := s.list(r)
	if err != nil {
		s.fail(w, "load", "", err)
		return
	}
	writeJSON(w, http.StatusOK, modgraph.ComputeStats(modules))
}

// handleExport writes the modules matching ?q=, ?statuses= and repeated
// ?filter=type:value parameters as CSV.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	query, err := parseQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	modules, err := s.list(r)
	if err != nil {
		s.fail(w, "load", "", err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="modules.csv"`)
	if err := modgraph.WriteCSV(w, modgraph.FilterModules(modules, query)); err != nil {
		s.logger.Error("CSV export failed", "error", err)
	}
}

func (s *Server) list(r *http.Request) ([]modgraph.Module, error) {
	all, err := s.gateway.GetAll(r.Context())
	if err != nil {
		return nil, err
	}
	modules := make([]modgraph.Module, 0, len(all))
	for _, m := range all {
		modules = append(modules, m)
	}
	return modules, nil
}

func (s *Server) observe(op string, err error) {
	if s.metrics != nil {
		s.metrics.observeMutation(op, err)
	}
}

// fail maps gateway errors onto status codes.
func (s *Server) fail(w http.ResponseWriter, op, name string, err error) {
	switch {
	case errors.Is(err, modgraph.ErrValidation):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Validation failed", Details: err.Error()})
	case errors.Is(err, modgraph.ErrNotFound):
		writeError(w, http.StatusNotFound, fmt.Sprintf("Module %s not found", name))
	case errors.Is(err, modgraph.ErrConflict):
		writeError(w, http.StatusConflict, fmt.Sprintf("Module already exists: %s", name))
	default:
		s.logger.Error("Request failed", "op", op, "module", name, "error", err)
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to %s module: %v", op, err))
	}
}

func parseStatuses(raw string) ([]modgraph.Status, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var statuses []modgraph.Status
	for _, part := range strings.Split(raw, ",") {
		status, err := modgraph.ParseStatus(part)
		if err != nil {
			return nil, fmt.Errorf("invalid status: %s", strings.TrimSpace(part))
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

func parseQuery(r *http.Request) (modgraph.Query, error) {
	values := r.URL.Query()
	statuses, err := parseStatuses(values.Get("statuses"))
	if err != nil {
		return modgraph.Query{}, err
	}
	q := modgraph.Query{Text: values.Get("q"), Statuses: statuses}
	for _, raw := range values["filter"] {
		typ, value, ok := strings.Cut(raw, ":")
		if !ok {
			return modgraph.Query{}, fmt.Errorf("invalid filter: %s", raw)
		}
		f, err := modgraph.NewSearchFilter(modgraph.FilterType(typ), value)
		if err != nil {
			return modgraph.Query{}, fmt.Errorf("invalid filter: %s", raw)
		}
		q.Filters = append(q.Filters, f)
	}
	return q, nil
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if ct := r.Header.Get("Content-Type"); ct != "" {
		mediaType, _, err := mime.ParseMediaType(ct)
		if err != nil || mediaType != "application/json" {
			writeError(w, http.StatusBadRequest, "Request must be JSON")
			return false
		}
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON data")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func (s *Server) handleMetadata(w http.ResponseWriter, r *http.Request) {
	modules, err := s.list(r)
	if err != nil {
		s.fail(w, "load", "", err)
		return
	}
	writeJSON(w, http.StatusOK, modgraph.ComputeMetadata(modules))
}

func (s *Server) handleListSurrogates(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.surrogates.List())
}

type runRequest struct {
	ModuleName    string         `json:"module_name"`
	SurrogateType string         `json:"surrogate_type"`
	Inputs        map[string]any `json:"inputs"`
}

// handleRunSurrogate runs a surrogate in place of a module. It reads the
// module but never writes it.
func (s *Server) handleRunSurrogate(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.ModuleName) == "" {
		writeError(w, http.StatusBadRequest, "module_name is required")
		return
	}

	modules, err := s.gateway.GetAll(r.Context())
	if err != nil {
		s.fail(w, "load", req.ModuleName, err)
		return
	}
	m, ok := modules[req.ModuleName]
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("Module %s not found", req.ModuleName))
		return
	}

	result, err := s.surrogates.Execute(r.Context(), m, req.SurrogateType, req.Inputs)
	switch {
	case errors.Is(err, surrogate.ErrUnknownSurrogate):
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Unknown surrogate type: %s", req.SurrogateType))
		return
	case err != nil:
		s.logger.Error("Surrogate run failed", "module", m.Name, "error", err)
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Surrogate execution failed: %v", err))
		return
	}
	s.logger.Info("Surrogate executed", "module", m.Name, "surrogate", result.SurrogateType)
	s.emit(r.Context(), modgraph.EventTypeSurrogateExecuted, result)
	writeJSON(w, http.StatusOK, result)
}
