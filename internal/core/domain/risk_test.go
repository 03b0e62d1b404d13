package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseAlertingLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected RiskLevel
		ok       bool
	}{
		{"Low", RiskLow, true},
		{"Moderate", RiskModerate, true},
		{"High", RiskHigh, true},
		{"Critical", RiskCritical, true},
		{"None", RiskNone, false},
		{"moderate", RiskNone, false},
		{"HIGH", RiskNone, false},
		{"Unknown", RiskNone, false},
		{"", RiskNone, false},
		{"High risk", RiskNone, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			level, ok := ParseAlertingLevel(tt.input)
			assert.Equal(t, tt.expected, level)
			assert.Equal(t, tt.ok, ok)
		})
	}
}

func TestNewRiskAssessment_ShowAlertFollowsLevel(t *testing.T) {
	assert.True(t, NewRiskAssessment(RiskModerate, "elevated reports").ShowAlert)
	assert.False(t, NewRiskAssessment(RiskNone, "fine").ShowAlert)
}

func TestNoRisk(t *testing.T) {
	a := NoRisk(SummaryUnavailable)
	assert.Equal(t, RiskNone, a.Level)
	assert.Equal(t, "Unable to analyze at this time", a.Summary)
	assert.False(t, a.ShowAlert)
}
