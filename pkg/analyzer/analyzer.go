// Package analyzer scores passwords against a fixed checklist of rules.
package analyzer

import (
	"strings"
	"unicode/utf8"

	"github.com/payback159/passwordanalyzer/pkg/models"
)

// Requirement labels shown in the checklist, in check order
const (
	LabelUpperCase   = "Uppercase letter"
	LabelLowerCase   = "Lowercase letter"
	LabelNumber      = "Number"
	LabelSpecialChar = "Special character"
	LabelMinLength   = "Minimum 8 characters"
	LabelNotCommon   = "Not a common password"
	LabelAvoidCommon = "Avoid common passwords"
)

// Scoring constants
const (
	MinLength       = 8
	LongLength      = 12
	pointsPerChar   = 2
	maxLengthPoints = 30
	pointsPerClass  = 15
	commonPenalty   = 30
	longLengthBonus = 10
	strongThreshold = 80
	mediumThreshold = 50
)

var commonPasswords = map[string]struct{}{
	"password":  {},
	"123456":    {},
	"12345678":  {},
	"123456789": {},
	"12345":     {},
	"qwerty":    {},
	"abc123":    {},
	"password1": {},
	"admin":     {},
	"welcome":   {},
}

// traits are the raw observations made about a password
type traits struct {
	length  int
	upper   bool
	lower   bool
	digit   bool
	special bool
	common  bool
}

// check pairs a requirement with its outcome
type check struct {
	ok    bool
	label string
}

// Analyze evaluates password and returns a fully populated result.
// An empty password short-circuits to the zero result without running any check.
func Analyze(password string) models.AnalysisResult {
	if password == "" {
		return models.AnalysisResult{
			RequirementsMet:     []string{},
			RequirementsMissing: []string{},
			MaxScore:            models.MaxScore,
			Strength:            models.StrengthWeak,
		}
	}

	t := detect(password)
	met, missing := partition(checks(t))
	score := computeScore(t)

	return models.AnalysisResult{
		Password:            password,
		Length:              t.length,
		HasUpperCase:        t.upper,
		HasLowerCase:        t.lower,
		HasNumbers:          t.digit,
		HasSpecialChars:     t.special,
		IsCommonPassword:    t.common,
		RequirementsMet:     met,
		RequirementsMissing: missing,
		Score:               score,
		MaxScore:            models.MaxScore,
		Strength:            Classify(score),
	}
}

// IsCommon reports whether password is on the denylist, ignoring case
func IsCommon(password string) bool {
	_, ok := commonPasswords[strings.ToLower(password)]
	return ok
}

// Classify maps a score onto its strength category
func Classify(score int) models.Strength {
	switch {
	case score >= strongThreshold:
		return models.StrengthStrong
	case score >= mediumThreshold:
		return models.StrengthMedium
	default:
		return models.StrengthWeak
	}
}

func detect(password string) traits {
	t := traits{
		length: utf8.RuneCountInString(password),
		common: IsCommon(password),
	}
	for _, r := range password {
		switch {
		case r >= 'A' && r <= 'Z':
			t.upper = true
		case r >= 'a' && r <= 'z':
			t.lower = true
		case r >= '0' && r <= '9':
			t.digit = true
		default:
			t.special = true
		}
	}
	return t
}

func checks(t traits) []check {
	common := check{ok: true, label: LabelNotCommon}
	if t.common {
		common = check{ok: false, label: LabelAvoidCommon}
	}
	return []check{
		{ok: t.upper, label: LabelUpperCase},
		{ok: t.lower, label: LabelLowerCase},
		{ok: t.digit, label: LabelNumber},
		{ok: t.special, label: LabelSpecialChar},
		{ok: t.length >= MinLength, label: LabelMinLength},
		common,
	}
}

func partition(cs []check) (met, missing []string) {
	met = make([]string, 0, len(cs))
	missing = make([]string, 0, len(cs))
	for _, c := range cs {
		if c.ok {
			met = append(met, c.label)
		} else {
			missing = append(missing, c.label)
		}
	}
	return met, missing
}

func computeScore(t traits) int {
	score := min(t.length*pointsPerChar, maxLengthPoints)
	for _, has := range []bool{t.upper, t.lower, t.digit, t.special} {
		if has {
			score += pointsPerClass
		}
	}
	if t.common {
		score = max(0, score-commonPenalty)
	}
	if t.length > LongLength {
		score += longLengthBonus
	}
	return min(score, models.MaxScore)
}
