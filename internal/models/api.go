package models

// SymptomQuery is the body of POST /ask.
type SymptomQuery struct {
	Symptoms       string   `json:"symptoms" binding:"required,notblank,min=3,max=1000"`
	PatientAge     *int     `json:"patient_age,omitempty" binding:"omitempty,gte=0,lte=120"`
	PatientGender  *string  `json:"patient_gender,omitempty" binding:"omitempty,oneof=male female other prefer_not_to_say"`
	MedicalHistory []string `json:"medical_history,omitempty"`
	Severity       *string  `json:"severity,omitempty" binding:"omitempty,oneof=mild moderate severe"`
	Duration       *string  `json:"duration,omitempty"`
}

// FeedbackRequest is the body of POST /feedback.
type FeedbackRequest struct {
	QueryID      string  `json:"query_id" binding:"required,notblank,max=64"`
	Rating       int     `json:"rating" binding:"required,gte=1,lte=5"`
	FeedbackText *string `json:"feedback_text,omitempty" binding:"omitempty,max=500"`
	WasHelpful   *bool   `json:"was_helpful" binding:"required"`
}

type RootResponse struct {
	Service string `json:"service"`
	Status  string `json:"status"`
	Version string `json:"version"`
}

type DisclaimerResponse struct {
	Disclaimer string `json:"disclaimer"`
}

// RetrieverHealth is the knowledge retriever snapshot reported by /health.
type RetrieverHealth struct {
	Initialized bool   `json:"initialized"`
	Status      string `json:"status"`
	Collection  string `json:"collection,omitempty"`
	Documents   int    `json:"documents"`
}

type DependencyHealth struct {
	Name         string `json:"name"`
	Status       string `json:"status"`
	ResponseTime int    `json:"response_time_ms"`
	Error        string `json:"error,omitempty"`
	LastChecked  string `json:"last_checked"`
}

type HealthCheckResponse struct {
	Status       string             `json:"status"`
	Version      string             `json:"version"`
	RAGService   RetrieverHealth    `json:"rag_service"`
	Dependencies []DependencyHealth `json:"dependencies,omitempty"`
	Uptime       float64            `json:"uptime"`
	Disclaimer   string             `json:"disclaimer"`
}

type FeedbackResponse struct {
	Status  string `json:"status"`
	QueryID string `json:"query_id"`
}
