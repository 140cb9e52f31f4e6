package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"strings"

	"github.com/aretw0/joule"
	"github.com/aretw0/joule/internal/logging"
	"github.com/aretw0/joule/pkg/chat"
	"github.com/aretw0/joule/pkg/domain"
	"github.com/aretw0/joule/pkg/ports"
	"github.com/aretw0/joule/pkg/session"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// GenericFailure is the only detail a client sees when a turn fails.
const GenericFailure = "An error occurred while processing your request. Please try again later."

const maxFormMemory = 1 << 20

// Sessions is the read side of the session manager used by the adapter.
type Sessions interface {
	Load(ctx context.Context, sessionID string) (*domain.Session, error)
	List(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, sessionID string) error
}

// Server implements ServerInterface on top of the chat service.
type Server struct {
	Chat     ports.ChatService
	Sessions Sessions
	Streams  *StreamManager
	Logger   *slog.Logger
}

// Ensure Server implements ServerInterface
var _ ServerInterface = (*Server)(nil)

type handlerOptions struct {
	streams *StreamManager
	metrics http.Handler
	logger  *slog.Logger
}

// Option configures NewHandler.
type Option func(*handlerOptions)

// WithStreams shares a StreamManager whose Hooks feed the SSE endpoint.
func WithStreams(sm *StreamManager) Option {
	return func(o *handlerOptions) { o.streams = sm }
}

// WithMetrics mounts a Prometheus handler on /metrics.
func WithMetrics(h http.Handler) Option {
	return func(o *handlerOptions) { o.metrics = h }
}

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *handlerOptions) { o.logger = logger }
}

// NewHandler creates the HTTP handler of the agent.
func NewHandler(svc ports.ChatService, sessions Sessions, opts ...Option) http.Handler {
	o := handlerOptions{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.streams == nil {
		o.streams = NewStreamManager(o.logger)
	}

	server := &Server{
		Chat:     svc,
		Sessions: sessions,
		Streams:  o.streams,
		Logger:   o.logger,
	}
	r := chi.NewRouter()
	r.Use(requestID(o.logger))

	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		w.Write(joule.OpenAPISpec)
	})
	r.Get("/swagger", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(swaggerHTML))
	})
	if o.metrics != nil {
		r.Handle("/metrics", o.metrics)
	}

	handler := HandlerFromMux(server, r)
	return enableCORS(handler)
}

// requestID tags every request with an X-Request-ID and logs its completion.
func requestID(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get("X-Request-ID")
			if id == "" {
				id = uuid.NewString()
			}
			w.Header().Set("X-Request-ID", id)
			next.ServeHTTP(w, r)
			logger.Debug("HTTP request", "method", r.Method, "path", r.URL.Path, "request_id", id)
		})
	}
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")
		w.Header().Set("Access-Control-Expose-Headers", "set-cookie")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

const swaggerHTML = `
<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <title>Joule API Documentation</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui.css" />
</head>
<body>
<div id="swagger-ui"></div>
<script src="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui-bundle.js" crossorigin></script>
<script>
    window.onload = () => {
    window.ui = SwaggerUIBundle({
        url: '/openapi.yaml',
        dom_id: '#swagger-ui',
    });
    };
</script>
</body>
</html>
`

// PostChat handles the POST /api/chat request.
func (s *Server) PostChat(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxFormMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{Detail: "invalid form body"})
		s.Logger.Warn("PostChat: Invalid form body", "err", err)
		return
	}

	form := r.PostForm
	var missing []string
	for _, field := range []string{"query", "session_id"} {
		if strings.TrimSpace(form.Get(field)) == "" {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{Detail: "field required: " + strings.Join(missing, ", ")})
		return
	}

	req := ports.TurnRequest{
		Query:        form.Get("query"),
		SessionID:    form.Get("session_id"),
		Timezone:     form.Get("timezone"),
		UserMail:     form.Get("user_mail"),
		MessageFiles: form["message_files"],
	}

	resp, err := s.Chat.HandleTurn(r.Context(), req)
	if err != nil {
		if errors.Is(err, chat.ErrInvalidRequest) {
			writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{Detail: err.Error()})
			return
		}
		s.Logger.Error("Error handling chat request", "session_id", req.SessionID, "err", err)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Detail: GenericFailure})
		return
	}
	writeJSON(w, http.StatusOK, ChatResponse{Answer: resp.Answer})
}

// ListSessions handles the GET /api/sessions request.
func (s *Server) ListSessions(w http.ResponseWriter, r *http.Request, params ListSessionsParams) {
	ids, err := s.Sessions.List(r.Context())
	if err != nil {
		s.Logger.Error("List sessions failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Detail: GenericFailure})
		return
	}
	sort.Strings(ids)
	if params.Limit != nil && *params.Limit > 0 && *params.Limit < len(ids) {
		ids = ids[:*params.Limit]
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, SessionList{Sessions: ids})
}

// GetSession handles the GET /api/sessions/{sessionId} request.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request, sessionId string) {
	sess, err := s.Sessions.Load(r.Context(), sessionId)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			writeJSON(w, http.StatusNotFound, ErrorResponse{Detail: "session not found"})
			return
		}
		s.Logger.Error("Load session failed", "session_id", sessionId, "err", err)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Detail: GenericFailure})
		return
	}
	writeJSON(w, http.StatusOK, session.NewView(sess))
}

// DeleteSession handles the DELETE /api/sessions/{sessionId} request.
func (s *Server) DeleteSession(w http.ResponseWriter, r *http.Request, sessionId string) {
	if err := s.Sessions.Delete(r.Context(), sessionId); err != nil {
		s.Logger.Error("Delete session failed", "session_id", sessionId, "err", err)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Detail: GenericFailure})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	apiVersion := "unknown"
	if swagger, err := GetSwagger(); err == nil && swagger.Info != nil {
		apiVersion = swagger.Info.Version
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"app":         "joule-http",
		"version":     strings.TrimSpace(joule.Version),
		"api_version": apiVersion,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
