package http

import (
	"fmt"
	"net/http"

	"github.com/aretw0/joule"
	"github.com/aretw0/joule/pkg/session"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
)

// ChatResponse is the body of a successful POST /api/chat.
type ChatResponse struct {
	Answer string `json:"answer"`
}

// ErrorResponse carries a user facing error message.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// SessionList is the body of GET /api/sessions.
type SessionList struct {
	Sessions []string `json:"sessions"`
}

// SessionView is the body of GET /api/sessions/{sessionId}.
type SessionView = session.View

// ListSessionsParams defines parameters for ListSessions.
type ListSessionsParams struct {
	Limit *int `form:"limit,omitempty" json:"limit,omitempty"`
}

// SubscribeEventsParams defines parameters for SubscribeEvents.
type SubscribeEventsParams struct {
	Types *string `form:"types,omitempty" json:"types,omitempty"`
}

// ServerInterface represents all server handlers.
type ServerInterface interface {
	// Process one chat turn
	// (POST /api/chat)
	PostChat(w http.ResponseWriter, r *http.Request)
	// List stored session IDs
	// (GET /api/sessions)
	ListSessions(w http.ResponseWriter, r *http.Request, params ListSessionsParams)
	// Inspect a session
	// (GET /api/sessions/{sessionId})
	GetSession(w http.ResponseWriter, r *http.Request, sessionId string)
	// Delete a session
	// (DELETE /api/sessions/{sessionId})
	DeleteSession(w http.ResponseWriter, r *http.Request, sessionId string)
	// Stream lifecycle events of a session (SSE)
	// (GET /api/sessions/{sessionId}/events)
	SubscribeEvents(w http.ResponseWriter, r *http.Request, sessionId string, params SubscribeEventsParams)
	// (GET /health)
	GetHealth(w http.ResponseWriter, r *http.Request)
	// (GET /info)
	GetInfo(w http.ResponseWriter, r *http.Request)
}

// InvalidParamFormatError is reported when a parameter cannot be bound.
type InvalidParamFormatError struct {
	ParamName string
	Err       error
}

func (e *InvalidParamFormatError) Error() string {
	return fmt.Sprintf("Invalid format for parameter %s: %s", e.ParamName, e.Err.Error())
}

func (e *InvalidParamFormatError) Unwrap() error {
	return e.Err
}

// serverWrapper binds path and query parameters before calling the handlers.
type serverWrapper struct {
	handler          ServerInterface
	errorHandlerFunc func(w http.ResponseWriter, r *http.Request, err error)
}

func (siw *serverWrapper) ListSessions(w http.ResponseWriter, r *http.Request) {
	var params ListSessionsParams
	if err := runtime.BindQueryParameter("form", true, false, "limit", r.URL.Query(), &params.Limit); err != nil {
		siw.errorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "limit", Err: err})
		return
	}
	siw.handler.ListSessions(w, r, params)
}

func (siw *serverWrapper) sessionID(w http.ResponseWriter, r *http.Request) (string, bool) {
	var sessionId string
	err := runtime.BindStyledParameterWithOptions("simple", "sessionId", chi.URLParam(r, "sessionId"), &sessionId,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		siw.errorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "sessionId", Err: err})
		return "", false
	}
	return sessionId, true
}

func (siw *serverWrapper) GetSession(w http.ResponseWriter, r *http.Request) {
	if id, ok := siw.sessionID(w, r); ok {
		siw.handler.GetSession(w, r, id)
	}
}

func (siw *serverWrapper) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if id, ok := siw.sessionID(w, r); ok {
		siw.handler.DeleteSession(w, r, id)
	}
}

func (siw *serverWrapper) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	id, ok := siw.sessionID(w, r)
	if !ok {
		return
	}
	var params SubscribeEventsParams
	if err := runtime.BindQueryParameter("form", true, false, "types", r.URL.Query(), &params.Types); err != nil {
		siw.errorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "types", Err: err})
		return
	}
	siw.handler.SubscribeEvents(w, r, id, params)
}

// HandlerFromMux registers the API routes on r.
func HandlerFromMux(si ServerInterface, r chi.Router) http.Handler {
	wrapper := &serverWrapper{
		handler: si,
		errorHandlerFunc: func(w http.ResponseWriter, r *http.Request, err error) {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Detail: err.Error()})
		},
	}

	r.Post("/api/chat", si.PostChat)
	r.Get("/api/sessions", wrapper.ListSessions)
	r.Get("/api/sessions/{sessionId}", wrapper.GetSession)
	r.Delete("/api/sessions/{sessionId}", wrapper.DeleteSession)
	r.Get("/api/sessions/{sessionId}/events", wrapper.SubscribeEvents)
	r.Get("/health", si.GetHealth)
	r.Get("/info", si.GetInfo)
	return r
}

// GetSwagger parses the embedded OpenAPI document.
func GetSwagger() (*openapi3.T, error) {
	return openapi3.NewLoader().LoadFromData(joule.OpenAPISpec)
}
