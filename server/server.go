package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/Kevin180791/dob-mvp-enhanced/workflow"
)

// Server is the HTTP front of the workflow engine. It is a thin layer:
// request decoding, engine calls, error mapping. All domain logic lives
// in the workflow package.
type Server struct {
	engine  *workflow.Engine
	log     *zap.Logger
	metrics http.Handler
}

// New creates a server. metrics, when non-nil, is mounted at /metrics
// (pass a promhttp handler bound to the engine's registry).
func New(engine *workflow.Engine, log *zap.Logger, metrics http.Handler) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{engine: engine, log: log, metrics: metrics}
}

// Router builds the HTTP route table.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.logRequests)

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics).Methods(http.MethodGet)
	}

	api := r.PathPrefix("/api/workflow").Subrouter()

	api.HandleFunc("/templates", s.handleCreateTemplate).Methods(http.MethodPost)
	api.HandleFunc("/templates", s.handleListTemplates).Methods(http.MethodGet)
	api.HandleFunc("/templates/{template_id}", s.handleGetTemplate).Methods(http.MethodGet)

	api.HandleFunc("/workflows", s.handleCreateWorkflow).Methods(http.MethodPost)
	api.HandleFunc("/workflows", s.handleListWorkflows).Methods(http.MethodGet)
	api.HandleFunc("/workflows/import", s.handleImport).Methods(http.MethodPost)
	api.HandleFunc("/workflows/saved", s.handleListSaved).Methods(http.MethodGet)
	api.HandleFunc("/workflows/{workflow_id}", s.handleGetWorkflow).Methods(http.MethodGet)
	api.HandleFunc("/workflows/{workflow_id}/start", s.handleStart).Methods(http.MethodPost)
	api.HandleFunc("/workflows/{workflow_id}/cancel", s.handleCancel).Methods(http.MethodPost)
	api.HandleFunc("/workflows/{workflow_id}/history", s.handleHistory).Methods(http.MethodGet)
	api.HandleFunc("/workflows/{workflow_id}/export", s.handleExport).Methods(http.MethodPost)
	api.HandleFunc("/workflows/{workflow_id}/save", s.handleSave).Methods(http.MethodPost)
	api.HandleFunc("/workflows/{workflow_id}/restore", s.handleRestore).Methods(http.MethodPost)
	api.HandleFunc("/workflows/{workflow_id}/snapshot", s.handleDeleteSnapshot).Methods(http.MethodDelete)

	api.HandleFunc("/workflows/{workflow_id}/participants", s.handleListParticipants).Methods(http.MethodGet)
	api.HandleFunc("/workflows/{workflow_id}/participants", s.handleAddParticipant).Methods(http.MethodPost)
	api.HandleFunc("/workflows/{workflow_id}/participants/{participant_id}", s.handleRemoveParticipant).Methods(http.MethodDelete)

	api.HandleFunc("/workflows/{workflow_id}/tasks/{task_id}", s.handleGetTask).Methods(http.MethodGet)
	api.HandleFunc("/workflows/{workflow_id}/tasks/{task_id}/complete", s.handleCompleteTask).Methods(http.MethodPost)
	api.HandleFunc("/workflows/{workflow_id}/tasks/{task_id}/input", s.handleProvideInput).Methods(http.MethodPost)
	api.HandleFunc("/workflows/{workflow_id}/tasks/{task_id}/approvals/{approval_id}/approve", s.handleApprove).Methods(http.MethodPost)
	api.HandleFunc("/workflows/{workflow_id}/tasks/{task_id}/approvals/{approval_id}/delegate", s.handleDelegate).Methods(http.MethodPost)

	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCreateTemplate(w http.ResponseWriter, r *http.Request) {
	var tpl workflow.Template
	if !s.decode(w, r, &tpl) {
		return
	}
	id := s.engine.Templates().Register(tpl)
	writeJSON(w, http.StatusCreated, map[string]string{"template_id": id})
}

func (s *Server) handleListTemplates(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Templates().List())
}

func (s *Server) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	tpl, err := s.engine.Templates().Get(mux.Vars(r)["template_id"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tpl)
}

func (s *Server) handleCreateWorkflow(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TemplateID string         `json:"template_id"`
		Data       map[string]any `json:"data"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	id, err := s.engine.CreateWorkflow(req.TemplateID, req.Data)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"workflow_id": id})
}

func (s *Server) handleListWorkflows(w http.ResponseWriter, r *http.Request) {
	f := workflow.Filter{
		Status:     workflow.WorkflowStatus(r.URL.Query().Get("status")),
		TemplateID: r.URL.Query().Get("template_id"),
	}
	writeJSON(w, http.StatusOK, s.engine.ListWorkflows(f))
}

func (s *Server) handleGetWorkflow(w http.ResponseWriter, r *http.Request) {
	wf, err := s.engine.GetWorkflow(mux.Vars(r)["workflow_id"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, wf)
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["workflow_id"]
	if err := s.engine.StartWorkflow(r.Context(), id); err != nil {
		s.writeError(w, err)
		return
	}
	s.respondWorkflow(w, id)
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Reason string `json:"reason"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	id := mux.Vars(r)["workflow_id"]
	if err := s.engine.CancelWorkflow(id, req.Reason); err != nil {
		s.writeError(w, err)
		return
	}
	s.respondWorkflow(w, id)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	events, err := s.engine.History(mux.Vars(r)["workflow_id"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	t, err := s.engine.GetTask(vars["workflow_id"], vars["task_id"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleCompleteTask(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Result map[string]any `json:"result"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	vars := mux.Vars(r)
	if err := s.engine.CompleteTask(r.Context(), vars["workflow_id"], vars["task_id"], req.Result); err != nil {
		s.writeError(w, err)
		return
	}
	s.respondWorkflow(w, vars["workflow_id"])
}

func (s *Server) handleProvideInput(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Input map[string]any `json:"input"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	vars := mux.Vars(r)
	if err := s.engine.ProvideInput(r.Context(), vars["workflow_id"], vars["task_id"], req.Input); err != nil {
		s.writeError(w, err)
		return
	}
	s.respondWorkflow(w, vars["workflow_id"])
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Approved bool   `json:"approved"`
		Comment  string `json:"comment"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	vars := mux.Vars(r)
	err := s.engine.ApproveTask(r.Context(), vars["workflow_id"], vars["task_id"], vars["approval_id"], req.Approved, req.Comment)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.respondWorkflow(w, vars["workflow_id"])
}

func (s *Server) handleDelegate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Delegate string `json:"delegate"`
		Comment  string `json:"comment"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	if req.Delegate == "" {
		s.writeErrorStatus(w, http.StatusBadRequest, "delegate is required")
		return
	}
	vars := mux.Vars(r)
	err := s.engine.DelegateApproval(r.Context(), vars["workflow_id"], vars["task_id"], vars["approval_id"], req.Delegate, req.Comment)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.respondWorkflow(w, vars["workflow_id"])
}

func (s *Server) handleListParticipants(w http.ResponseWriter, r *http.Request) {
	parts, err := s.engine.Participants(mux.Vars(r)["workflow_id"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, parts)
}

func (s *Server) handleAddParticipant(w http.ResponseWriter, r *http.Request) {
	var p workflow.Participant
	if !s.decode(w, r, &p) {
		return
	}
	id := mux.Vars(r)["workflow_id"]
	if err := s.engine.AddParticipant(id, p); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"participant_id": p.ID})
}

func (s *Server) handleRemoveParticipant(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := s.engine.RemoveParticipant(vars["workflow_id"], vars["participant_id"]); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"removed": vars["participant_id"]})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	snapshot, err := s.engine.ExportWorkflow(mux.Vars(r)["workflow_id"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	var snapshot map[string]any
	if !s.decode(w, r, &snapshot) {
		return
	}
	id, err := s.engine.ImportWorkflow(snapshot)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"workflow_id": id})
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["workflow_id"]
	if err := s.engine.SaveWorkflow(r.Context(), id); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"saved": id})
}

func (s *Server) handleRestore(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["workflow_id"]
	if err := s.engine.RestoreWorkflow(r.Context(), id); err != nil {
		s.writeError(w, err)
		return
	}
	s.respondWorkflow(w, id)
}

func (s *Server) handleDeleteSnapshot(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["workflow_id"]
	if err := s.engine.DeleteSnapshot(r.Context(), id); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"deleted": id})
}

func (s *Server) handleListSaved(w http.ResponseWriter, r *http.Request) {
	ids, err := s.engine.SavedWorkflows(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ids)
}

// respondWorkflow writes the workflow's current state after a mutating
// call, so clients see the effect of cascades immediately.
func (s *Server) respondWorkflow(w http.ResponseWriter, workflowID string) {
	wf, err := s.engine.GetWorkflow(workflowID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, wf)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, into any) bool {
	if err := json.NewDecoder(r.Body).Decode(into); err != nil {
		s.writeErrorStatus(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	switch {
	case workflow.IsNotFound(err):
		s.writeErrorStatus(w, http.StatusNotFound, err.Error())
	case workflow.IsInvalidState(err):
		s.writeErrorStatus(w, http.StatusConflict, err.Error())
	case errors.Is(err, workflow.ErrNoStore):
		s.writeErrorStatus(w, http.StatusNotImplemented, err.Error())
	default:
		s.log.Error("request failed", zap.Error(err))
		s.writeErrorStatus(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) writeErrorStatus(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
