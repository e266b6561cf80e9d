package downloads

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/payback159/passwordanalyzer/pkg/analyzer"
	"github.com/payback159/passwordanalyzer/pkg/logging"
	"github.com/payback159/passwordanalyzer/pkg/models"
	"github.com/payback159/passwordanalyzer/pkg/session"
	"github.com/xuri/excelize/v2"
)

func init() {
	logging.InitLogger()
}

// --- sanitizeCSVField ---

func TestSanitizeCSVField_Normal(t *testing.T) {
	cases := []struct {
		input, want string
	}{
		{"Alice", "Alice"},
		{"Bob Smith", "Bob Smith"},
		{"", ""},
	}
	for _, tc := range cases {
		got := sanitizeCSVField(tc.input)
		if got != tc.want {
			t.Errorf("sanitizeCSVField(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestSanitizeCSVField_FormulaInjection(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{"=CMD()", "'=CMD()"},
		{"+1+1", "'+1+1"},
		{"-1-1", "'-1-1"},
		{"@SUM(A1)", "'@SUM(A1)"},
		{"\tmalicious", "'\tmalicious"},
		{"\rmalicious", "'\rmalicious"},
	}
	for _, tc := range cases {
		got := sanitizeCSVField(tc.input)
		if got != tc.want {
			t.Errorf("sanitizeCSVField(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestSanitizeCSVField_QuotesAndCommas(t *testing.T) {
	cases := []struct {
		input, want string
	}{
		{`He said "hi"`, `"He said ""hi"""`},
		{"a,b,c", `"a,b,c"`},
		{"line1\nline2", `"line1` + "\n" + `line2"`},
	}
	for _, tc := range cases {
		got := sanitizeCSVField(tc.input)
		if got != tc.want {
			t.Errorf("sanitizeCSVField(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestSanitizeCSVField_InjectionAndQuotes(t *testing.T) {
	// Formula prefix AND quotes: should get both protections
	got := sanitizeCSVField(`=CMD("evil")`)
	want := `"'=CMD(""evil"")"`
	if got != want {
		t.Errorf("sanitizeCSVField with injection+quotes: got %q, want %q", got, want)
	}
}

// --- setDownloadHeaders ---

func TestSetDownloadHeaders(t *testing.T) {
	w := httptest.NewRecorder()
	setDownloadHeaders(w, "text/csv", "test.csv")

	if w.Header().Get("Content-Type") != "text/csv" {
		t.Errorf("Content-Type: got %s", w.Header().Get("Content-Type"))
	}
	if w.Header().Get("Content-Disposition") != "attachment; filename=test.csv" {
		t.Errorf("Content-Disposition: got %s", w.Header().Get("Content-Disposition"))
	}
	if w.Header().Get("Cache-Control") != "no-store" {
		t.Errorf("Cache-Control: got %s", w.Header().Get("Cache-Control"))
	}
	if w.Header().Get("Pragma") != "no-cache" {
		t.Errorf("Pragma: got %s", w.Header().Get("Pragma"))
	}
}

// --- Report builders ---

func TestBuildCSV_Content(t *testing.T) {
	body := BuildCSV(analyzer.Analyze("password")).String()

	for _, want := range []string{
		"Report,Value\n",
		"Length,8\n",
		"Score,1\n",
		"Max score,100\n",
		"Strength,Weak\n",
		"Common password,yes\n",
		"Requirement,Status\n",
		"Lowercase letter,met\n",
		"Avoid common passwords,missing\n",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("CSV missing %q:\n%s", want, body)
		}
	}
}

func TestBuildCSV_EmptyPassword(t *testing.T) {
	body := BuildCSV(analyzer.Analyze("")).String()
	if !strings.HasSuffix(body, "Requirement,Status\n") {
		t.Errorf("empty analysis should have an empty checklist, got:\n%s", body)
	}
}

func TestBuildExcel_Content(t *testing.T) {
	f, err := BuildExcel(analyzer.Analyze("Passw0rd!"), "sid", "127.0.0.1")
	if err != nil {
		t.Fatalf("BuildExcel: %v", err)
	}
	defer f.Close()

	if got := f.GetSheetList(); len(got) != 1 || got[0] != sheetName {
		t.Fatalf("sheets: want [%s], got %v", sheetName, got)
	}

	cells := map[string]string{
		"A1": "Report",
		"A3": "Score",
		"B3": "78",
		"A5": "Strength",
		"B5": "Medium",
		"A8": "Requirement",
		"A9": analyzer.LabelUpperCase,
		"B9": "met",
	}
	for axis, want := range cells {
		got, err := f.GetCellValue(sheetName, axis)
		if err != nil {
			t.Fatalf("GetCellValue(%s): %v", axis, err)
		}
		if got != want {
			t.Errorf("cell %s: want %q, got %q", axis, want, got)
		}
	}
}

// --- Download handlers ---

func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	store := session.NewStoreWithTimeout(time.Hour)
	t.Cleanup(store.Close)
	cookies, err := session.NewCookies([]byte("0123456789abcdef0123456789abcdef"), false, time.Hour)
	if err != nil {
		t.Fatalf("NewCookies: %v", err)
	}
	return NewHandler(store, cookies)
}

// requestWithSession stores result under sid and returns a request carrying the signed cookie
func requestWithSession(t *testing.T, h *Handler, path, sid string, result models.AnalysisResult) *http.Request {
	t.Helper()
	h.Store.Set(sid, result)

	rec := httptest.NewRecorder()
	if err := h.Cookies.Set(rec, sid); err != nil {
		t.Fatalf("set cookie: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	return req
}

func TestHandleReportCSV_NoSession(t *testing.T) {
	h := newTestHandler(t)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/download/report.csv", nil)

	h.HandleReportCSV(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("want 400, got %d", w.Code)
	}
}

func TestHandleReportCSV_UnsignedCookie(t *testing.T) {
	h := newTestHandler(t)
	h.Store.Set("known-id", analyzer.Analyze("Passw0rd!"))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/download/report.csv", nil)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: "known-id"})

	h.HandleReportCSV(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("unsigned cookie must not unlock a session, got %d", w.Code)
	}
}

func TestHandleReportCSV_WithData(t *testing.T) {
	h := newTestHandler(t)
	req := requestWithSession(t, h, "/download/report.csv", "sid-csv", analyzer.Analyze("Passw0rd!"))

	w := httptest.NewRecorder()
	h.HandleReportCSV(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", w.Code)
	}
	if w.Header().Get("Content-Type") != "text/csv" {
		t.Errorf("Content-Type: got %s", w.Header().Get("Content-Type"))
	}
	if !strings.HasPrefix(w.Body.String(), "Report,Value\n") {
		t.Error("CSV header row missing")
	}
	if strings.Contains(w.Body.String(), "Passw0rd!") {
		t.Error("download must not contain the password")
	}
}

func TestHandleReportExcel_NoSession(t *testing.T) {
	h := newTestHandler(t)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/download/report.xlsx", nil)

	h.HandleReportExcel(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("want 400, got %d", w.Code)
	}
}

func TestHandleReportExcel_WithData(t *testing.T) {
	h := newTestHandler(t)
	req := requestWithSession(t, h, "/download/report.xlsx", "sid-xlsx", analyzer.Analyze("Tr0ub4dor&3xtra"))

	w := httptest.NewRecorder()
	h.HandleReportExcel(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", w.Code)
	}
	ct := w.Header().Get("Content-Type")
	if ct != "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet" {
		t.Errorf("Content-Type: got %s", ct)
	}

	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	if err != nil {
		t.Fatalf("response is not a workbook: %v", err)
	}
	defer f.Close()

	got, _ := f.GetCellValue(sheetName, "B5")
	if got != string(models.StrengthStrong) {
		t.Errorf("strength cell: want Strong, got %q", got)
	}
}

func TestHandleReports_LogSessionReferenceOnly(t *testing.T) {
	var logs bytes.Buffer
	logging.InitLoggerWithWriter(&logs, "debug")
	t.Cleanup(logging.InitLogger)

	h := newTestHandler(t)
	sid := "f00dfacef00dfacef00dfacef00dface"
	result := analyzer.Analyze("Passw0rd!")

	h.HandleReportCSV(httptest.NewRecorder(), requestWithSession(t, h, "/download/report.csv", sid, result))
	h.HandleReportExcel(httptest.NewRecorder(), requestWithSession(t, h, "/download/report.xlsx", sid, result))

	out := logs.String()
	if strings.Contains(out, sid) {
		t.Errorf("session ID must not appear in logs:\n%s", out)
	}
	if !strings.Contains(out, session.LogID(sid)) {
		t.Errorf("logs should reference the session by LogID:\n%s", out)
	}
}
