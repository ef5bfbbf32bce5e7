package main

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/qti-testengine/internal/testdriver"
	"github.com/mind-engage/qti-testengine/pkg/qerr"
	"github.com/mind-engage/qti-testengine/pkg/session"
	"github.com/mind-engage/qti-testengine/pkg/variable"
)

// Handler ties HTTP routes to the Engine, the cmd/qtiengine counterpart of
// the teacher's handlers.Handler wrapping a qti.Engine.
type Handler struct {
	engine *Engine
}

func NewHandler(engine *Engine) *Handler {
	return &Handler{engine: engine}
}

type beginSessionRequest struct {
	TestID string `json:"testId"`
}

type endAttemptRequest struct {
	Responses map[string]string `json:"responses"`
}

type jumpRequest struct {
	Position int `json:"position"`
}

type itemView struct {
	ItemRefID        string         `json:"itemRefId"`
	Occurrence       int            `json:"occurrence"`
	State            string         `json:"state"`
	NumAttempts      int            `json:"numAttempts"`
	CompletionStatus string         `json:"completionStatus"`
	Variables        map[string]any `json:"variables"`
}

type sessionView struct {
	SessionID     string         `json:"sessionId"`
	TestID        string         `json:"testId"`
	State         string         `json:"state"`
	RoutePosition int            `json:"routePosition"`
	RouteCount    int            `json:"routeCount"`
	CurrentItem   *itemView      `json:"currentItem,omitempty"`
	Outcomes      map[string]any `json:"outcomes"`
}

func stateName(s testdriver.State) string {
	switch s {
	case testdriver.Initial:
		return "initial"
	case testdriver.Interacting:
		return "interacting"
	case testdriver.ModalFeedback:
		return "modalFeedback"
	case testdriver.Suspended:
		return "suspended"
	case testdriver.Closed:
		return "closed"
	default:
		return "unknown"
	}
}

func itemStateName(s session.State) string {
	switch s {
	case session.NotSelected:
		return "notSelected"
	case session.Initial:
		return "initial"
	case session.Interacting:
		return "interacting"
	case session.Suspended:
		return "suspended"
	case session.Closed:
		return "closed"
	case session.Solution:
		return "solution"
	case session.Review:
		return "review"
	case session.ModalFeedback:
		return "modalFeedback"
	default:
		return "unknown"
	}
}

func (h *Handler) view(ts *testdriver.TestSession) sessionView {
	v := sessionView{
		SessionID:     ts.SessionID,
		TestID:        ts.Test.Identifier,
		State:         stateName(ts.State),
		RoutePosition: ts.Route.Position(),
		RouteCount:    ts.Route.Count(),
		Outcomes:      make(map[string]any),
	}
	for _, d := range ts.Test.OutcomeDeclarations {
		if val, ok := ts.Outcomes.GetVariable(d.Identifier); ok {
			v.Outcomes[d.Identifier] = valueToJSON(val.Value)
		}
	}
	if cur, ok := ts.Route.Current(); ok {
		iv := &itemView{ItemRefID: cur.ItemRef.Identifier, Occurrence: cur.Occurrence, Variables: make(map[string]any)}
		if sess, ok := ts.Items.GetSession(cur.ItemRef.Identifier, cur.Occurrence); ok {
			iv.State = itemStateName(sess.State)
			iv.NumAttempts = sess.NumAttempts
			iv.CompletionStatus = string(sess.CompletionStatus)
			for _, d := range cur.ItemRef.ResponseDeclarations {
				if val, ok := sess.Vars.GetVariable(d.Identifier); ok {
					iv.Variables[d.Identifier] = valueToJSON(val.Value)
				}
			}
			for _, d := range cur.ItemRef.OutcomeDeclarations {
				if val, ok := sess.Vars.GetVariable(d.Identifier); ok {
					iv.Variables[d.Identifier] = valueToJSON(val.Value)
				}
			}
		}
		v.CurrentItem = iv
	}
	return v
}

// BeginTestSession handles POST /sessions.
func (h *Handler) BeginTestSession(w http.ResponseWriter, r *http.Request) {
	var req beginSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, err)
		return
	}
	ts, err := h.engine.BeginSession(r.Context(), req.TestID)
	if err != nil {
		h.respondError(w, statusForErr(err), err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(h.view(ts))
}

// BeginAttempt handles POST /sessions/{id}/attempts.
func (h *Handler) BeginAttempt(w http.ResponseWriter, r *http.Request) {
	ts, err := h.engine.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, http.StatusNotFound, err)
		return
	}
	if err := ts.BeginAttempt(); err != nil {
		h.respondError(w, statusForErr(err), err)
		return
	}
	h.respondAfterMutation(w, r, ts)
}

// EndAttempt handles POST /sessions/{id}/attempts/current.
func (h *Handler) EndAttempt(w http.ResponseWriter, r *http.Request) {
	ts, err := h.engine.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, http.StatusNotFound, err)
		return
	}
	var req endAttemptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, err)
		return
	}

	responses := make(map[string]variable.Value, len(req.Responses))
	if cur, ok := ts.Route.Current(); ok {
		for name, raw := range req.Responses {
			bt := variable.BaseTypeIdentifier
			for _, d := range cur.ItemRef.ResponseDeclarations {
				if d.Identifier == name {
					bt = d.BaseType
					break
				}
			}
			v, err := parseResponseValue(bt, raw)
			if err != nil {
				h.respondError(w, http.StatusBadRequest, err)
				return
			}
			responses[name] = v
		}
	}

	if err := ts.EndAttempt(responses); err != nil {
		h.respondError(w, statusForErr(err), err)
		return
	}
	h.respondAfterMutation(w, r, ts)
}

// Next handles POST /sessions/{id}/next.
func (h *Handler) Next(w http.ResponseWriter, r *http.Request) {
	ts, err := h.engine.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, http.StatusNotFound, err)
		return
	}
	if err := ts.MoveNext(); err != nil {
		h.respondError(w, statusForErr(err), err)
		return
	}
	h.respondAfterMutation(w, r, ts)
}

// Back handles POST /sessions/{id}/back.
func (h *Handler) Back(w http.ResponseWriter, r *http.Request) {
	ts, err := h.engine.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, http.StatusNotFound, err)
		return
	}
	if err := ts.MoveBack(); err != nil {
		h.respondError(w, statusForErr(err), err)
		return
	}
	h.respondAfterMutation(w, r, ts)
}

// Jump handles POST /sessions/{id}/jump.
func (h *Handler) Jump(w http.ResponseWriter, r *http.Request) {
	ts, err := h.engine.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, http.StatusNotFound, err)
		return
	}
	var req jumpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, err)
		return
	}
	if err := ts.JumpTo(req.Position); err != nil {
		h.respondError(w, statusForErr(err), err)
		return
	}
	h.respondAfterMutation(w, r, ts)
}

// GetSession handles GET /sessions/{id}.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	ts, err := h.engine.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, http.StatusNotFound, err)
		return
	}
	json.NewEncoder(w).Encode(h.view(ts))
}

func (h *Handler) respondAfterMutation(w http.ResponseWriter, r *http.Request, ts *testdriver.TestSession) {
	if err := h.engine.Persist(r.Context(), ts); err != nil {
		h.respondError(w, http.StatusInternalServerError, err)
		return
	}
	json.NewEncoder(w).Encode(h.view(ts))
}

func (h *Handler) respondError(w http.ResponseWriter, code int, err error) {
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

// statusForErr maps the closed error taxonomy (core.v1 §7) onto HTTP status
// codes for this demonstration surface.
func statusForErr(err error) int {
	code, ok := qerr.CodeOf(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch code {
	case qerr.StateViolation, qerr.NavigationModeViolation, qerr.ForbiddenJump,
		qerr.SkippingForbidden, qerr.AttemptsOverflow:
		return http.StatusConflict
	case qerr.UnknownVariable, qerr.MalformedIdentifier, qerr.OutOfRange,
		qerr.OutOfScope, qerr.InvalidResponse, qerr.RouteOutOfBounds:
		return http.StatusBadRequest
	case qerr.TestDurationOverflow, qerr.TestPartDurationOverflow, qerr.SectionDurationOverflow,
		qerr.ItemDurationOverflow, qerr.TestDurationUnderflow, qerr.TestPartDurationUnderflow,
		qerr.SectionDurationUnderflow, qerr.ItemDurationUnderflow:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
