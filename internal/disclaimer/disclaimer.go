// Package disclaimer holds the static safety texts returned with every answer.
package disclaimer

// Medical is the full disclaimer served by GET /disclaimer and /health.
const Medical = `IMPORTANT MEDICAL DISCLAIMER:

The information provided by ApneDoctors is for educational and informational purposes only and is not intended to be a substitute for professional medical advice, diagnosis, or treatment.

ALWAYS SEEK PROFESSIONAL MEDICAL ADVICE:
- Consult qualified healthcare providers for any medical concerns
- Do not disregard professional medical advice based on information from this service
- Never delay seeking medical care because of information provided here

EMERGENCY SITUATIONS:
- Call emergency services (911) immediately for life-threatening conditions
- Go to the nearest emergency room for urgent medical situations
- This service cannot replace emergency medical care

LIMITATIONS:
- This AI system provides general information only
- Individual medical situations vary greatly
- Diagnosis requires proper medical examination and testing
- Treatment plans must be developed by qualified medical professionals

By using this service, you acknowledge that you understand these limitations and agree to consult healthcare professionals for any medical decisions.`

// Emergency replaces the short disclaimer on the emergency short-circuit.
const Emergency = `MEDICAL EMERGENCY WARNING

If you are experiencing a medical emergency, DO NOT use this service.

CALL 911 IMMEDIATELY or go to the nearest emergency room if you have:
- Chest pain or pressure
- Difficulty breathing
- Severe bleeding
- Loss of consciousness
- Stroke symptoms (face drooping, arm weakness, speech problems)
- Severe abdominal pain
- High fever with confusion
- Thoughts of harming yourself or others

This service is NOT a substitute for emergency medical care.`

// Short is the default disclaimer attached to regular responses.
const Short = "This is for educational purposes only and should not replace professional medical advice. Please consult a healthcare provider for proper diagnosis and treatment."

var byUrgency = map[string]string{
	"high":     "HIGH URGENCY: Seek immediate medical attention. Call 911 or go to the emergency room.",
	"moderate": "MODERATE URGENCY: Contact a healthcare provider within 24 hours, or sooner if symptoms worsen.",
	"low":      "LOW URGENCY: Monitor symptoms and consider consulting a healthcare provider if they persist or worsen.",
}

// ForUrgency returns the guidance line for an urgency level, or "" if unknown.
func ForUrgency(level string) string {
	return byUrgency[level]
}
