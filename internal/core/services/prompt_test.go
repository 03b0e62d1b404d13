package services

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulseiq/pulseiq-rag/internal/core/domain"
)

func TestAssembleMedicalPrompt_Deterministic(t *testing.T) {
	tel := &domain.Telemetry{HeartRate: "72", Sleep: "7"}
	a := AssembleMedicalPrompt("Why am I tired?", []string{"u1", "u2"}, []string{"g1"}, tel)
	b := AssembleMedicalPrompt("Why am I tired?", []string{"u1", "u2"}, []string{"g1"}, tel)

	assert.Equal(t, a, b)
}

func TestAssembleMedicalPrompt_Placeholders(t *testing.T) {
	prompt := AssembleMedicalPrompt("q", nil, []string{}, nil)

	assert.Contains(t, prompt, "User Medical History:\n"+NoUserHistory+"\n")
	assert.Contains(t, prompt, "General Medical Knowledge:\n"+NoGlobalKnowledge+"\n")
	assert.NotContains(t, prompt, telemetryHeader)
}

func TestAssembleMedicalPrompt_SectionOrder(t *testing.T) {
	prompt := AssembleMedicalPrompt(
		"Is my heart rate normal?",
		[]string{"history one", "history two"},
		[]string{"knowledge"},
		&domain.Telemetry{HeartRate: "90"},
	)

	order := []string{
		medicalPreamble,
		"User Question:\nIs my heart rate normal?",
		"User Medical History:\nhistory one\n\nhistory two",
		"General Medical Knowledge:\nknowledge",
		telemetryHeader + "\n- Heart Rate: 90 bpm",
		"Instructions:",
		"- Do NOT provide diagnosis.",
		medicalClosingLine,
	}
	last := -1
	for _, part := range order {
		at := strings.Index(prompt, part)
		require.GreaterOrEqual(t, at, 0, "missing %q", part)
		assert.Greater(t, at, last, "%q out of order", part)
		last = at
	}
}

func TestAssembleMedicalPrompt_EmptyQuestion(t *testing.T) {
	prompt := AssembleMedicalPrompt("", nil, nil, nil)

	assert.Contains(t, prompt, "User Question:\n\n\nUser Medical History:")
}

func TestAssembleMedicalPrompt_NoTruncation(t *testing.T) {
	long := strings.Repeat("x", 100000)

	prompt := AssembleMedicalPrompt("q", []string{long}, nil, nil)

	assert.Contains(t, prompt, long)
}

func TestTelemetryLines_FixedOrder(t *testing.T) {
	var tel domain.Telemetry
	require.NoError(t, json.Unmarshal([]byte(`{"sleep": 7, "heartRate": 72}`), &tel))

	lines := TelemetryLines(&tel)

	assert.Equal(t, []string{"- Heart Rate: 72 bpm", "- Sleep: 7 hours"}, lines)
}

func TestTelemetryLines_AllFields(t *testing.T) {
	tel := &domain.Telemetry{
		Temperature:   "36.8",
		SpO2:          "98",
		BloodPressure: "120/80",
		Sleep:         "6.5",
		Calories:      "2100",
		Steps:         "8000",
		HeartRate:     "68",
	}

	assert.Equal(t, []string{
		"- Heart Rate: 68 bpm",
		"- Steps: 8000",
		"- Calories Burned: 2100 kcal",
		"- Sleep: 6.5 hours",
		"- Blood Pressure: 120/80",
		"- SpO2: 98%",
		"- Temperature: 36.8°C",
	}, TelemetryLines(tel))
}

func TestTelemetryLines_AbsentReadings(t *testing.T) {
	tests := []struct {
		name string
		tel  *domain.Telemetry
	}{
		{"nil", nil},
		{"empty", &domain.Telemetry{}},
		{"blank", &domain.Telemetry{HeartRate: "", BloodPressure: "  "}},
		{"numeric zero", decodeTelemetry(t, `{"heartRate": 0, "steps": 0.0}`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Empty(t, TelemetryLines(tt.tel))
			assert.NotContains(t, AssembleMedicalPrompt("q", nil, nil, tt.tel), telemetryHeader)
		})
	}
}

func TestTelemetryLines_ZeroText(t *testing.T) {
	tel := decodeTelemetry(t, `{"heartRate": 0, "steps": "0"}`)

	assert.Equal(t, []string{"- Steps: 0"}, TelemetryLines(tel))
}

func decodeTelemetry(t *testing.T, payload string) *domain.Telemetry {
	t.Helper()
	var tel domain.Telemetry
	require.NoError(t, json.Unmarshal([]byte(payload), &tel))
	return &tel
}
