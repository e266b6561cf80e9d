package models

import "html/template"

// Strength is the coarse bucket derived from a score
type Strength string

const (
	StrengthWeak   Strength = "Weak"
	StrengthMedium Strength = "Medium"
	StrengthStrong Strength = "Strong"
)

// MaxScore is the upper bound of every analysis score
const MaxScore = 100

// AnalysisResult holds the outcome of a single password analysis.
// It is built once per request and never modified afterwards.
type AnalysisResult struct {
	Password            string   `json:"password,omitempty"`
	// Length counts Unicode code points, so an emoji is one character
	// even where UTF-16 would need two units.
	Length              int      `json:"length"`
	HasUpperCase        bool     `json:"hasUpperCase"`
	HasLowerCase        bool     `json:"hasLowerCase"`
	HasNumbers          bool     `json:"hasNumbers"`
	HasSpecialChars     bool     `json:"hasSpecialChars"`
	IsCommonPassword    bool     `json:"isCommonPassword"`
	RequirementsMet     []string `json:"requirementsMet"`
	RequirementsMissing []string `json:"requirementsMissing"`
	Score               int      `json:"score"`
	MaxScore            int      `json:"maxScore"`
	Strength            Strength `json:"strength"`
}

// Percent returns the score as a percentage of MaxScore
func (r AnalysisResult) Percent() int {
	if r.MaxScore <= 0 {
		return 0
	}
	return r.Score * 100 / r.MaxScore
}

// Redacted returns a copy without the plaintext password.
// Anything that outlives the request (session cache, exports, JSON) uses this copy.
func (r AnalysisResult) Redacted() AnalysisResult {
	r.Password = ""
	r.RequirementsMet = append([]string(nil), r.RequirementsMet...)
	r.RequirementsMissing = append([]string(nil), r.RequirementsMissing...)
	return r
}

// MessageType defines the type of message (success, error, warning)
type MessageType string

const (
	MessageSuccess MessageType = "success"
	MessageError   MessageType = "error"
	MessageWarning MessageType = "warning"
)

// Message represents a user feedback message
type Message struct {
	Type MessageType
	Text string
}

// PageData holds all data needed to render the HTML templates
type PageData struct {
	Title      string
	Result     *AnalysisResult
	HasResults bool
	Message    *Message
	SessionID  string
	RequestID  string
	CSRFField  template.HTML
}

// ShowRequestID reports whether the error page should print the request ID
func (p PageData) ShowRequestID() bool {
	return p.RequestID != ""
}

// Constants for security limits
const (
	MaxPasswordLength = 1024
	MaxFormSize       = 64 << 10     // 64KB
	SessionTimeout    = 24 * 60 * 60 // 24 hours in seconds
	RateLimit         = 30           // requests per minute
	RateBurst         = 20           // burst capacity
)
