package models

import (
	"fmt"
)

type UrgencyLevel string

const (
	UrgencyLow      UrgencyLevel = "low"
	UrgencyModerate UrgencyLevel = "moderate"
	UrgencyHigh     UrgencyLevel = "high"
)

const (
	MinConditions = 1
	MaxConditions = 5
)

// ParseUrgency accepts the three enumerated levels only.
func ParseUrgency(s string) (UrgencyLevel, error) {
	switch UrgencyLevel(s) {
	case UrgencyLow, UrgencyModerate, UrgencyHigh:
		return UrgencyLevel(s), nil
	}
	return "", fmt.Errorf("invalid urgency level: %q", s)
}

// Rank orders levels so the most urgent compares highest.
func (u UrgencyLevel) Rank() int {
	switch u {
	case UrgencyLow:
		return 1
	case UrgencyModerate:
		return 2
	case UrgencyHigh:
		return 3
	}
	return 0
}

type MedicalCondition struct {
	Name        string   `json:"name"`
	Probability float64  `json:"probability"`
	Description string   `json:"description"`
	Symptoms    []string `json:"symptoms"`
	RiskFactors []string `json:"risk_factors,omitempty"`
}

type SymptomResponse struct {
	PossibleConditions  []MedicalCondition `json:"possible_conditions"`
	Urgency             UrgencyLevel       `json:"urgency"`
	Suggestions         []string           `json:"suggestions"`
	ConfidenceScore     float64            `json:"confidence_score"`
	ClarifyingQuestions []string           `json:"clarifying_questions,omitempty"`
	RedFlags            []string           `json:"red_flags,omitempty"`
	Disclaimer          string             `json:"disclaimer"`
	QueryID             string             `json:"query_id,omitempty"`
}

func (mc *MedicalCondition) Validate() error {
	if mc.Name == "" {
		return fmt.Errorf("condition name is required")
	}
	if mc.Probability < 0 || mc.Probability > 1 {
		return fmt.Errorf("condition %q probability %.3f outside [0,1]", mc.Name, mc.Probability)
	}
	if len(mc.Symptoms) == 0 {
		return fmt.Errorf("condition %q has no symptoms", mc.Name)
	}
	return nil
}

// Validate checks the response invariants before it leaves the processor.
func (sr *SymptomResponse) Validate() error {
	n := len(sr.PossibleConditions)
	if n < MinConditions || n > MaxConditions {
		return fmt.Errorf("possible_conditions must hold %d-%d entries, got %d", MinConditions, MaxConditions, n)
	}
	for i := range sr.PossibleConditions {
		if err := sr.PossibleConditions[i].Validate(); err != nil {
			return err
		}
		if i > 0 && sr.PossibleConditions[i].Probability > sr.PossibleConditions[i-1].Probability {
			return fmt.Errorf("possible_conditions not ordered by probability at index %d", i)
		}
	}
	if _, err := ParseUrgency(string(sr.Urgency)); err != nil {
		return err
	}
	if sr.ConfidenceScore < 0 || sr.ConfidenceScore > 1 {
		return fmt.Errorf("confidence_score %.3f outside [0,1]", sr.ConfidenceScore)
	}
	if sr.Disclaimer == "" {
		return fmt.Errorf("disclaimer is required")
	}
	return nil
}
