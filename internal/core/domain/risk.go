package domain

import "time"

// RiskLevel is the coarse health-risk signal derived from chat history.
type RiskLevel string

// Recognised risk levels.
const (
	RiskNone     RiskLevel = "None"
	RiskLow      RiskLevel = "Low"
	RiskModerate RiskLevel = "Moderate"
	RiskHigh     RiskLevel = "High"
	RiskCritical RiskLevel = "Critical"
)

// Fixed assessment summaries.
const (
	SummaryNoHistory   = "no history"
	SummaryNoConcerns  = "No serious health concerns detected"
	SummaryUnavailable = "Unable to analyze at this time"
	SummaryNoChats     = "No chat history found"
)

// IsAlerting returns true for every level that should raise an alert.
func (l RiskLevel) IsAlerting() bool {
	switch l {
	case RiskLow, RiskModerate, RiskHigh, RiskCritical:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (l RiskLevel) String() string {
	return string(l)
}

// ParseAlertingLevel matches s exactly (case-sensitive) against the
// alerting levels. Anything else, including "None", is rejected.
func ParseAlertingLevel(s string) (RiskLevel, bool) {
	level := RiskLevel(s)
	if !level.IsAlerting() {
		return RiskNone, false
	}
	return level, true
}

// RiskAssessment is recomputed on demand and never persisted.
type RiskAssessment struct {
	Level     RiskLevel
	Summary   string
	ShowAlert bool
}

// NewRiskAssessment builds an assessment whose alert flag follows the level.
func NewRiskAssessment(level RiskLevel, summary string) RiskAssessment {
	return RiskAssessment{
		Level:     level,
		Summary:   summary,
		ShowAlert: level != RiskNone,
	}
}

// NoRisk returns the conservative default assessment with the given summary.
func NoRisk(summary string) RiskAssessment {
	return NewRiskAssessment(RiskNone, summary)
}

// TwinReport is the digital twin view of a user.
type TwinReport struct {
	UserID     string
	Assessment RiskAssessment
	TotalChats int

	// LastChat is the creation time of the newest entry, nil without history.
	LastChat *time.Time
}
