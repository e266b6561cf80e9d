package handlers

import (
	"net/http"
	"strings"

	"github.com/gorilla/csrf"
	"github.com/payback159/passwordanalyzer/pkg/downloads"
	"github.com/payback159/passwordanalyzer/pkg/middleware"
	"github.com/payback159/passwordanalyzer/pkg/security"
)

// Routes wires all pages, the JSON API and the downloads behind the shared middleware.
// csrfKey is only used in production.
func (h *Handler) Routes(dl *downloads.Handler, limiter *security.RateLimiter, csrfKey []byte) http.Handler {
	app := http.NewServeMux()
	app.HandleFunc("/", h.HandleHome)
	app.HandleFunc("/password/analyze", h.HandleAnalyze)
	app.HandleFunc("/api/analyze", h.HandleAPIAnalyze)
	app.HandleFunc("/privacy", h.HandlePrivacy)
	app.HandleFunc("/error", h.HandleError)
	app.HandleFunc("/download/report.csv", dl.HandleReportCSV)
	app.HandleFunc("/download/report.xlsx", dl.HandleReportExcel)

	var handler http.Handler = app
	if h.Options.Production {
		protect := csrf.Protect(csrfKey,
			csrf.Secure(true),
			csrf.Path("/"),
			csrf.SameSite(csrf.SameSiteStrictMode),
			csrf.TrustedOrigins(h.Options.TrustedOrigins),
			csrf.ErrorHandler(http.HandlerFunc(h.HandleCSRFFailure)))
		handler = skipCSRFForAPI(protect(app))
	}

	handler = middleware.Chain(handler,
		middleware.RequestID,
		middleware.Logging,
		middleware.Recovery(h.HandleError),
		middleware.SecurityHeaders,
		limiter.Middleware,
	)

	root := http.NewServeMux()
	root.HandleFunc("/healthz", h.HandleHealth)
	root.Handle("/", handler)
	return root
}

// skipCSRFForAPI exempts the JSON API, which uses neither cookies nor sessions
func skipCSRFForAPI(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") {
			r = csrf.UnsafeSkipCheck(r)
		}
		next.ServeHTTP(w, r)
	})
}
