package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"time"

	"github.com/gorilla/csrf"
	"github.com/payback159/passwordanalyzer/pkg/analyzer"
	"github.com/payback159/passwordanalyzer/pkg/logging"
	"github.com/payback159/passwordanalyzer/pkg/middleware"
	"github.com/payback159/passwordanalyzer/pkg/models"
	"github.com/payback159/passwordanalyzer/pkg/security"
	"github.com/payback159/passwordanalyzer/pkg/session"
)

// Options tune request handling
type Options struct {
	Production        bool
	MaxPasswordLength int
	// TrustedOrigins are extra hosts allowed to post forms in production
	TrustedOrigins    []string
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	Templates    *template.Template
	SessionStore *session.Store
	Cookies      *session.Cookies
	Options      Options
}

// NewHandler creates a new handler with dependencies
func NewHandler(templates *template.Template, sessionStore *session.Store, cookies *session.Cookies, opts Options) *Handler {
	if opts.MaxPasswordLength <= 0 {
		opts.MaxPasswordLength = models.MaxPasswordLength
	}
	return &Handler{
		Templates:    templates,
		SessionStore: sessionStore,
		Cookies:      cookies,
		Options:      opts,
	}
}

// csrfField returns the CSRF field in production, empty HTML in development
func (h *Handler) csrfField(r *http.Request) template.HTML {
	if h.Options.Production {
		return csrf.TemplateField(r)
	}
	return template.HTML("")
}

// render executes a template with the implicit 200 status
func (h *Handler) render(w http.ResponseWriter, r *http.Request, name string, data models.PageData) {
	h.renderStatus(w, r, 0, name, data)
}

// renderStatus executes a template into a buffer so a failing template never sends half a page.
// A zero status leaves the status line to whoever already wrote it.
func (h *Handler) renderStatus(w http.ResponseWriter, r *http.Request, status int, name string, data models.PageData) {
	var buf bytes.Buffer
	if err := h.Templates.ExecuteTemplate(&buf, name, data); err != nil {
		logging.LogError("Template rendering failed", err,
			"template", name,
			"request_id", middleware.RequestIDFromContext(r.Context()))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if status != 0 {
		w.WriteHeader(status)
	}
	if _, err := w.Write(buf.Bytes()); err != nil {
		logging.LogError("Failed to write response", err, "template", name)
	}
}

// HandleHome serves the landing page
func (h *Handler) HandleHome(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	h.render(w, r, "index.html", models.PageData{
		Title:     "Password Analyzer",
		CSRFField: h.csrfField(r),
	})
}

// HandlePrivacy serves the privacy page
func (h *Handler) HandlePrivacy(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	h.render(w, r, "privacy.html", models.PageData{Title: "Privacy"})
}

// HandleError renders the error page with the request ID.
// The status code is left to the caller.
func (h *Handler) HandleError(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "error.html", models.PageData{
		Title:     "Error",
		RequestID: middleware.RequestIDFromContext(r.Context()),
	})
}

// HandleCSRFFailure renders the error page for rejected CSRF tokens
func (h *Handler) HandleCSRFFailure(w http.ResponseWriter, r *http.Request) {
	logging.LogSecurityEvent("CSRF validation failed", "medium",
		"ip", security.GetClientIP(r),
		"path", r.URL.Path,
		"reason", csrf.FailureReason(r))

	h.renderStatus(w, r, http.StatusForbidden, "error.html", models.PageData{
		Title:     "Error",
		RequestID: middleware.RequestIDFromContext(r.Context()),
		Message: &models.Message{
			Type: models.MessageError,
			Text: "Your form has expired. Please reload the page and try again.",
		},
	})
}

// HandleHealth reports liveness
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": h.SessionStore.GetSessionCount(),
	})
}

// HandleAnalyze shows the analysis form (GET) and analyzes a submitted password (POST)
func (h *Handler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet, http.MethodHead:
		h.render(w, r, "analyze.html", models.PageData{
			Title:     "Analyze Password",
			CSRFField: h.csrfField(r),
		})
	case http.MethodPost:
		h.HandleAnalysis(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandleAnalysis processes the submitted form
func (h *Handler) HandleAnalysis(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ip := security.GetClientIP(r)
	requestID := middleware.RequestIDFromContext(r.Context())

	logging.LogInfo("HTTP request processing initiated",
		"method", r.Method,
		"content_length", r.ContentLength,
		"request_id", requestID,
		"ip", ip)

	r.Body = http.MaxBytesReader(w, r.Body, models.MaxFormSize)
	if err := r.ParseForm(); err != nil {
		logging.LogError("Form parsing failed", err,
			"content_length", r.ContentLength,
			"content_type", r.Header.Get("Content-Type"),
			"ip", ip)
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}

	pageData := models.PageData{
		Title:     "Analyze Password",
		CSRFField: h.csrfField(r),
	}

	password := r.PostFormValue("password")
	if err := security.ValidatePassword(password, h.Options.MaxPasswordLength); err != nil {
		logging.LogWarn("Invalid form input detected",
			"field", "password",
			"validation_error", err.Error(),
			"ip", ip)
		text := "The password could not be read"
		if errors.Is(err, security.ErrPasswordTooLong) {
			text = "The password is too long to analyze"
		}
		pageData.Message = &models.Message{Type: models.MessageError, Text: text}
		h.render(w, r, "analyze.html", pageData)
		return
	}

	result := analyzer.Analyze(password)
	pageData.Result = &result
	pageData.HasResults = true

	sessionID := h.Cookies.SessionID(r)
	if sessionID == "" {
		var err error
		sessionID, err = session.GenerateSessionID()
		if err != nil {
			logging.LogError("Session ID generation failed", err,
				"operation", "session_management",
				"ip", ip)
		}
	}

	if sessionID != "" {
		h.SessionStore.Set(sessionID, result)
		if err := h.Cookies.Set(w, sessionID); err != nil {
			logging.LogError("Session cookie could not be set", err, "ip", ip)
		} else {
			pageData.SessionID = sessionID
		}
	} else {
		pageData.Message = &models.Message{
			Type: models.MessageWarning,
			Text: "Downloads are unavailable for this analysis",
		}
	}

	duration := time.Since(start)
	logging.LogAnalysis(result.Length, result.Score, string(result.Strength), result.IsCommonPassword, duration,
		"request_id", requestID,
		"ip", ip)

	h.render(w, r, "analyze.html", pageData)
}

// apiRequest is the JSON body accepted by HandleAPIAnalyze
type apiRequest struct {
	Password *string `json:"password"`
}

// apiError is the JSON body returned on failure
type apiError struct {
	Error     string `json:"error"`
	RequestID string `json:"requestId,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.LogError("Failed to encode JSON response", err)
	}
}

// HandleAPIAnalyze analyzes a password posted as JSON and returns the result without the password
func (h *Handler) HandleAPIAnalyze(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ip := security.GetClientIP(r)
	requestID := middleware.RequestIDFromContext(r.Context())

	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeJSON(w, http.StatusMethodNotAllowed, apiError{Error: "method not allowed", RequestID: requestID})
		return
	}

	var req apiRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, models.MaxFormSize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		logging.LogWarn("Invalid JSON body", "error", err.Error(), "ip", ip, "request_id", requestID)
		writeJSON(w, http.StatusBadRequest, apiError{Error: "invalid JSON body", RequestID: requestID})
		return
	}

	// A missing field is treated like an empty password
	password := ""
	if req.Password != nil {
		password = *req.Password
	}

	if err := security.ValidatePassword(password, h.Options.MaxPasswordLength); err != nil {
		logging.LogWarn("Invalid API input detected", "validation_error", err.Error(), "ip", ip)
		writeJSON(w, http.StatusBadRequest, apiError{Error: err.Error(), RequestID: requestID})
		return
	}

	result := analyzer.Analyze(password)

	logging.LogAnalysis(result.Length, result.Score, string(result.Strength), result.IsCommonPassword, time.Since(start),
		"request_id", requestID,
		"ip", ip,
		"api", true)

	writeJSON(w, http.StatusOK, result.Redacted())
}
