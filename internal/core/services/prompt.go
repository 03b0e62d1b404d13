package services

import (
	"strings"

	"github.com/pulseiq/pulseiq-rag/internal/core/domain"
)

// Placeholders used when a retrieval leg returns nothing.
const (
	NoUserHistory      = "No previous medical history found."
	NoGlobalKnowledge  = "No general medical knowledge found."
	telemetryHeader    = "Real-time Watch/Fitness Data:"
	medicalPreamble    = "You are a medical AI assistant providing personalized health guidance."
	medicalClosingLine = "Provide a helpful, personalized response based on all available information."
)

var medicalInstructions = []string{
	"Consider the user's real-time watch/fitness data when analyzing the question.",
	"Personalize the response based on current health metrics and past medical history.",
	"If no past history, give general guidance.",
	"Be medically accurate and consider the current vital signs.",
	"Do NOT provide diagnosis.",
	"Encourage consulting a healthcare professional when necessary.",
	"Keep answer clear and structured.",
}

// AssembleMedicalPrompt builds the generation prompt from the question,
// both retrieval results and optional live telemetry. It is pure and
// never truncates its input.
func AssembleMedicalPrompt(question string, userCtx, globalCtx []string, telemetry *domain.Telemetry) string {
	var b strings.Builder

	b.WriteString(medicalPreamble)
	b.WriteString("\n\nUser Question:\n")
	b.WriteString(question)

	b.WriteString("\n\nUser Medical History:\n")
	b.WriteString(joinOr(userCtx, NoUserHistory))

	b.WriteString("\n\nGeneral Medical Knowledge:\n")
	b.WriteString(joinOr(globalCtx, NoGlobalKnowledge))

	if lines := TelemetryLines(telemetry); len(lines) > 0 {
		b.WriteString("\n\n")
		b.WriteString(telemetryHeader)
		for _, line := range lines {
			b.WriteString("\n")
			b.WriteString(line)
		}
	}

	b.WriteString("\n\nInstructions:")
	for _, line := range medicalInstructions {
		b.WriteString("\n- ")
		b.WriteString(line)
	}

	b.WriteString("\n\n")
	b.WriteString(medicalClosingLine)
	b.WriteString("\n")
	return b.String()
}

// TelemetryLines renders the present readings, one labelled line each,
// always in the same field order regardless of how they were sent.
func TelemetryLines(t *domain.Telemetry) []string {
	if t.IsEmpty() {
		return nil
	}

	fields := []struct {
		reading domain.Reading
		label   string
		unit    string
	}{
		{t.HeartRate, "Heart Rate", " bpm"},
		{t.Steps, "Steps", ""},
		{t.Calories, "Calories Burned", " kcal"},
		{t.Sleep, "Sleep", " hours"},
		{t.BloodPressure, "Blood Pressure", ""},
		{t.SpO2, "SpO2", "%"},
		{t.Temperature, "Temperature", "°C"},
	}

	lines := make([]string, 0, len(fields))
	for _, f := range fields {
		if !f.reading.Present() {
			continue
		}
		lines = append(lines, "- "+f.label+": "+f.reading.String()+f.unit)
	}
	return lines
}

func joinOr(parts []string, placeholder string) string {
	if len(parts) == 0 {
		return placeholder
	}
	return strings.Join(parts, "\n\n")
}
