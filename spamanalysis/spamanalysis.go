// Package spamanalysis models the gateway's content analysis verdict for
// an email.
package spamanalysis

// Verdict values.
const (
	VerdictClean      = "clean"
	VerdictSuspicious = "suspicious"
	VerdictSpam       = "spam"
)

// SpamAnalysis is the aggregate spam score and the rules that fired.
type SpamAnalysis struct {
	Score   float64 `json:"score"`
	Verdict string  `json:"verdict"`
	Rules   []Rule  `json:"rules,omitempty"`
}

// Rule is one matched analysis rule and its score contribution.
type Rule struct {
	Name        string  `json:"name"`
	Score       float64 `json:"score"`
	Description string  `json:"description,omitempty"`
}

// IsSpam reports whether the verdict classifies the email as spam.
func (s *SpamAnalysis) IsSpam() bool {
	return s != nil && s.Verdict == VerdictSpam
}
