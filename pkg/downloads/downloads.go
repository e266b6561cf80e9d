package downloads

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/payback159/passwordanalyzer/pkg/logging"
	"github.com/payback159/passwordanalyzer/pkg/models"
	"github.com/payback159/passwordanalyzer/pkg/security"
	"github.com/payback159/passwordanalyzer/pkg/session"
	"github.com/xuri/excelize/v2"
)

const (
	csvFilename   = "password_report.csv"
	excelFilename = "password_report.xlsx"
	excelMIME     = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	sheetName     = "Analysis"
)

// Status labels written next to each requirement
const (
	statusMet     = "met"
	statusMissing = "missing"
)

// Handler serves report downloads for the analysis cached in the caller's session
type Handler struct {
	Store   *session.Store
	Cookies *session.Cookies
}

// NewHandler creates a download handler
func NewHandler(store *session.Store, cookies *session.Cookies) *Handler {
	return &Handler{Store: store, Cookies: cookies}
}

// setCellValueSafe safely sets a cell value with error handling
func setCellValueSafe(f *excelize.File, sheet, axis string, value interface{}, sessionRef, ip string) error {
	if err := f.SetCellValue(sheet, axis, value); err != nil {
		logging.LogError("Failed to set cell value", err,
			"sheet", sheet,
			"axis", axis,
			"session_ref", sessionRef,
			"ip", ip)
		return err
	}
	return nil
}

// setCellStyleSafe safely sets a cell style with error handling
func setCellStyleSafe(f *excelize.File, sheet, hCell, vCell string, styleID int, sessionRef, ip string) {
	if err := f.SetCellStyle(sheet, hCell, vCell, styleID); err != nil {
		logging.LogError("Failed to set cell style", err,
			"sheet", sheet,
			"range", fmt.Sprintf("%s:%s", hCell, vCell),
			"session_ref", sessionRef,
			"ip", ip)
		// Non-critical error for styles, continue execution
	}
}

// newStyleSafe registers a style, falling back to the default style on error
func newStyleSafe(f *excelize.File, style *excelize.Style, sessionRef, ip string) int {
	id, err := f.NewStyle(style)
	if err != nil {
		logging.LogError("Failed to create cell style", err,
			"session_ref", sessionRef,
			"ip", ip)
		// Non-critical error for styles, continue with the default style
		return 0
	}
	return id
}

// writeResponseSafe safely writes response with error handling
func writeResponseSafe(w http.ResponseWriter, buffer *bytes.Buffer, sessionRef, ip string) {
	if _, err := w.Write(buffer.Bytes()); err != nil {
		logging.LogError("Failed to write response", err,
			"session_ref", sessionRef,
			"ip", ip)
		// Response already started, can't send error status
	}
}

// sanitizeCSVField prevents CSV injection and properly escapes fields
func sanitizeCSVField(field string) string {
	// Prevent formula injection: prefix dangerous first characters
	if len(field) > 0 {
		first := field[0]
		if first == '=' || first == '+' || first == '-' || first == '@' || first == '\t' || first == '\r' {
			field = "'" + field
		}
	}
	// Properly quote fields containing commas, quotes, or newlines
	if strings.ContainsAny(field, ",\"\n") {
		field = "\"" + strings.ReplaceAll(field, "\"", "\"\"") + "\""
	}
	return field
}

// setDownloadHeaders sets common security and caching headers for downloads
func setDownloadHeaders(w http.ResponseWriter, contentType, filename string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
}

// summaryRows lists the headline figures of a report in display order
func summaryRows(result models.AnalysisResult) [][2]any {
	common := "no"
	if result.IsCommonPassword {
		common = "yes"
	}
	return [][2]any{
		{"Length", result.Length},
		{"Score", result.Score},
		{"Max score", result.MaxScore},
		{"Strength", string(result.Strength)},
		{"Common password", common},
	}
}

// checklistRows pairs each requirement with its status, met first
func checklistRows(result models.AnalysisResult) [][2]string {
	rows := make([][2]string, 0, len(result.RequirementsMet)+len(result.RequirementsMissing))
	for _, req := range result.RequirementsMet {
		rows = append(rows, [2]string{req, statusMet})
	}
	for _, req := range result.RequirementsMissing {
		rows = append(rows, [2]string{req, statusMissing})
	}
	return rows
}

// lookup returns the cached result for the caller's session
func (h *Handler) lookup(r *http.Request) (models.AnalysisResult, string, bool) {
	sessionID := h.Cookies.SessionID(r)
	if sessionID == "" {
		return models.AnalysisResult{}, "", false
	}
	result, ok := h.Store.Get(sessionID)
	return result, session.LogID(sessionID), ok
}

// BuildCSV renders the report as CSV
func BuildCSV(result models.AnalysisResult) *bytes.Buffer {
	var buffer bytes.Buffer
	buffer.WriteString("Report,Value\n")
	for _, row := range summaryRows(result) {
		buffer.WriteString(fmt.Sprintf("%s,%s\n", row[0], sanitizeCSVField(fmt.Sprint(row[1]))))
	}

	// Empty line separator
	buffer.WriteString("\n")

	buffer.WriteString("Requirement,Status\n")
	for _, row := range checklistRows(result) {
		buffer.WriteString(fmt.Sprintf("%s,%s\n", sanitizeCSVField(row[0]), row[1]))
	}
	return &buffer
}

// HandleReportCSV handles CSV download of the last analysis
func (h *Handler) HandleReportCSV(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ip := security.GetClientIP(r)

	result, sessionRef, exists := h.lookup(r)

	logging.LogInfo("Report CSV download requested",
		"session_ref", sessionRef,
		"ip", ip)

	if !exists {
		logging.LogWarn("Report download requested but no data available",
			"session_ref", sessionRef,
			"ip", ip)
		http.Error(w, "No analysis available for download", http.StatusBadRequest)
		return
	}

	buffer := BuildCSV(result)

	setDownloadHeaders(w, "text/csv", csvFilename)
	writeResponseSafe(w, buffer, sessionRef, ip)

	duration := time.Since(start)
	logging.LogFileOperation("csv_download", csvFilename, int64(buffer.Len()), duration, true,
		"session_ref", sessionRef,
		"ip", ip,
		"requirement_count", len(result.RequirementsMet)+len(result.RequirementsMissing))
}

// createStatusStyles creates coloured styles for met/missing cells
func createStatusStyles(f *excelize.File, sessionRef, ip string) map[string]int {
	styles := make(map[string]int)
	colors := map[string]string{
		statusMet:     "#c6f6d5",
		statusMissing: "#f8d7da",
	}
	for status, color := range colors {
		styles[status] = newStyleSafe(f, &excelize.Style{
			Fill:   excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
			Border: thinBorder(),
		}, sessionRef, ip)
	}
	return styles
}

// createStrengthStyles creates coloured styles for each strength category
func createStrengthStyles(f *excelize.File, sessionRef, ip string) map[models.Strength]int {
	styles := make(map[models.Strength]int)
	colors := map[models.Strength]string{
		models.StrengthStrong: "#c6f6d5",
		models.StrengthMedium: "#fff3cd",
		models.StrengthWeak:   "#f8d7da",
	}
	for strength, color := range colors {
		styles[strength] = newStyleSafe(f, &excelize.Style{
			Font:   &excelize.Font{Bold: true},
			Fill:   excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
			Border: thinBorder(),
		}, sessionRef, ip)
	}
	return styles
}

func thinBorder() []excelize.Border {
	return []excelize.Border{
		{Type: "left", Color: "#000000", Style: 1},
		{Type: "top", Color: "#000000", Style: 1},
		{Type: "right", Color: "#000000", Style: 1},
		{Type: "bottom", Color: "#000000", Style: 1},
	}
}

// BuildExcel renders the report as a workbook with one sheet.
// sessionRef only appears in logs. The caller must Close the returned file.
func BuildExcel(result models.AnalysisResult, sessionRef, ip string) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		logging.LogError("Failed to rename sheet", err, "session_ref", sessionRef, "ip", ip)
		_ = f.Close()
		return nil, err
	}

	headerStyle := newStyleSafe(f, &excelize.Style{
		Font:   &excelize.Font{Bold: true},
		Fill:   excelize.Fill{Type: "pattern", Color: []string{"#f2f2f2"}, Pattern: 1},
		Border: thinBorder(),
	}, sessionRef, ip)
	statusStyles := createStatusStyles(f, sessionRef, ip)
	strengthStyles := createStrengthStyles(f, sessionRef, ip)

	set := func(axis string, value any) error {
		return setCellValueSafe(f, sheetName, axis, value, sessionRef, ip)
	}

	if err := set("A1", "Report"); err != nil {
		_ = f.Close()
		return nil, err
	}
	if err := set("B1", "Value"); err != nil {
		_ = f.Close()
		return nil, err
	}
	setCellStyleSafe(f, sheetName, "A1", "B1", headerStyle, sessionRef, ip)

	row := 2
	for _, entry := range summaryRows(result) {
		if err := set(fmt.Sprintf("A%d", row), entry[0]); err != nil {
			_ = f.Close()
			return nil, err
		}
		if err := set(fmt.Sprintf("B%d", row), entry[1]); err != nil {
			_ = f.Close()
			return nil, err
		}
		if entry[0] == "Strength" {
			if style, ok := strengthStyles[result.Strength]; ok {
				setCellStyleSafe(f, sheetName, fmt.Sprintf("B%d", row), fmt.Sprintf("B%d", row), style, sessionRef, ip)
			}
		}
		row++
	}

	// Empty row separator
	row++

	checklistHeader := row
	if err := set(fmt.Sprintf("A%d", row), "Requirement"); err != nil {
		_ = f.Close()
		return nil, err
	}
	if err := set(fmt.Sprintf("B%d", row), "Status"); err != nil {
		_ = f.Close()
		return nil, err
	}
	setCellStyleSafe(f, sheetName, fmt.Sprintf("A%d", checklistHeader), fmt.Sprintf("B%d", checklistHeader), headerStyle, sessionRef, ip)
	row++

	for _, entry := range checklistRows(result) {
		if err := set(fmt.Sprintf("A%d", row), entry[0]); err != nil {
			_ = f.Close()
			return nil, err
		}
		if err := set(fmt.Sprintf("B%d", row), entry[1]); err != nil {
			_ = f.Close()
			return nil, err
		}
		if style, ok := statusStyles[entry[1]]; ok {
			setCellStyleSafe(f, sheetName, fmt.Sprintf("A%d", row), fmt.Sprintf("B%d", row), style, sessionRef, ip)
		}
		row++
	}

	if err := f.SetColWidth(sheetName, "A", "A", 28); err != nil {
		logging.LogWarn("Failed to set column width", "error", err.Error(), "session_ref", sessionRef)
	}

	return f, nil
}

// HandleReportExcel handles Excel download of the last analysis
func (h *Handler) HandleReportExcel(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ip := security.GetClientIP(r)

	result, sessionRef, exists := h.lookup(r)

	logging.LogInfo("Report Excel download requested",
		"session_ref", sessionRef,
		"ip", ip)

	if !exists {
		logging.LogWarn("Excel report download requested but no data available",
			"session_ref", sessionRef,
			"ip", ip)
		http.Error(w, "No analysis available for download", http.StatusBadRequest)
		return
	}

	f, err := BuildExcel(result, sessionRef, ip)
	if err != nil {
		http.Error(w, "Failed to generate Excel file", http.StatusInternalServerError)
		return
	}
	defer func() {
		if err := f.Close(); err != nil {
			logging.LogError("Failed to close Excel file", err, "session_ref", sessionRef, "ip", ip)
		}
	}()

	var buffer bytes.Buffer
	if err := f.Write(&buffer); err != nil {
		logging.LogError("Failed to write Excel file", err, "session_ref", sessionRef, "ip", ip)
		http.Error(w, "Failed to generate Excel file", http.StatusInternalServerError)
		return
	}

	setDownloadHeaders(w, excelMIME, excelFilename)
	writeResponseSafe(w, &buffer, sessionRef, ip)

	duration := time.Since(start)
	logging.LogFileOperation("excel_download", excelFilename, int64(buffer.Len()), duration, true,
		"session_ref", sessionRef,
		"ip", ip,
		"strength", string(result.Strength))
}
