package services

import (
	"strings"

	"github.com/apnedoctors/minirag/internal/disclaimer"
	"github.com/apnedoctors/minirag/internal/models"
)

// EmergencyConditionName labels the single condition of an emergency response.
const EmergencyConditionName = "Emergency - seek care immediately"

// EmergencyKeywords trigger the short-circuit when found anywhere in the
// lower-cased symptom text.
var EmergencyKeywords = []string{
	"chest pain",
	"difficulty breathing",
	"severe bleeding",
	"unconscious",
	"stroke",
	"heart attack",
}

var emergencySuggestions = []string{
	"Call emergency services (911) immediately",
	"Go to the nearest emergency room",
	"Do not drive yourself to the hospital",
	"Stay with someone until help arrives",
}

// DetectEmergency returns the matched keywords in list order.
func DetectEmergency(symptoms string) []string {
	text := strings.ToLower(symptoms)
	var matched []string
	for _, kw := range EmergencyKeywords {
		if strings.Contains(text, kw) {
			matched = append(matched, kw)
		}
	}
	return matched
}

// EmergencyResponse is the fixed answer for keyword hits. It never depends on
// patient details.
func EmergencyResponse(matched []string) *models.SymptomResponse {
	return &models.SymptomResponse{
		PossibleConditions: []models.MedicalCondition{{
			Name:        EmergencyConditionName,
			Probability: 1.0,
			Description: "Your symptoms include warning signs that may indicate a medical emergency. Seek immediate in-person care.",
			Symptoms:    append([]string(nil), matched...),
		}},
		Urgency:         models.UrgencyHigh,
		Suggestions:     append([]string{disclaimer.ForUrgency(string(models.UrgencyHigh))}, emergencySuggestions...),
		ConfidenceScore: 1.0,
		RedFlags:        append([]string(nil), matched...),
		Disclaimer:      disclaimer.Emergency,
	}
}

// IsEmergency reports whether resp came from the emergency short-circuit.
func IsEmergency(resp *models.SymptomResponse) bool {
	return resp != nil && len(resp.PossibleConditions) == 1 &&
		resp.PossibleConditions[0].Name == EmergencyConditionName
}
