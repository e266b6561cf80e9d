package web

import (
	"bytes"
	"strings"
	"testing"

	"github.com/payback159/passwordanalyzer/pkg/analyzer"
	"github.com/payback159/passwordanalyzer/pkg/models"
)

func TestTemplates_AllPagesRender(t *testing.T) {
	tmpl, err := Templates()
	if err != nil {
		t.Fatalf("Templates: %v", err)
	}

	result := analyzer.Analyze("Passw0rd!")
	pages := map[string]models.PageData{
		"index.html":   {Title: "Password Analyzer"},
		"analyze.html": {Title: "Analyze", Result: &result, HasResults: true, SessionID: "sid"},
		"privacy.html": {Title: "Privacy"},
		"error.html":   {Title: "Error", RequestID: "req-1"},
	}
	for name, data := range pages {
		var buf bytes.Buffer
		if err := tmpl.ExecuteTemplate(&buf, name, data); err != nil {
			t.Errorf("render %s: %v", name, err)
		}
	}
}

func TestTemplates_AnalyzeShowsChecklist(t *testing.T) {
	tmpl, err := Templates()
	if err != nil {
		t.Fatalf("Templates: %v", err)
	}

	result := analyzer.Analyze("password")
	var buf bytes.Buffer
	err = tmpl.ExecuteTemplate(&buf, "analyze.html", models.PageData{Result: &result, HasResults: true})
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	body := buf.String()
	for _, want := range []string{"Strength: Weak", "Score: 1 / 100", analyzer.LabelAvoidCommon, analyzer.LabelLowerCase} {
		if !strings.Contains(body, want) {
			t.Errorf("analyze page missing %q", want)
		}
	}
	if strings.Contains(body, "/download/report.csv") {
		t.Error("download links need a session")
	}
}

func TestTemplates_ErrorShowsRequestID(t *testing.T) {
	tmpl, _ := Templates()

	var buf bytes.Buffer
	_ = tmpl.ExecuteTemplate(&buf, "error.html", models.PageData{RequestID: "abc-123"})
	if !strings.Contains(buf.String(), "abc-123") {
		t.Error("error page should show the request ID")
	}

	buf.Reset()
	_ = tmpl.ExecuteTemplate(&buf, "error.html", models.PageData{})
	if strings.Contains(buf.String(), "Request ID") {
		t.Error("request ID block should be hidden without an ID")
	}
}

func TestTemplatesFromDir_Missing(t *testing.T) {
	if _, err := TemplatesFromDir(t.TempDir()); err == nil {
		t.Error("expected error for a directory without templates")
	}
}
