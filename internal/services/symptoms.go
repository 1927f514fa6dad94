// internal/services/symptoms.go
package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/apnedoctors/minirag/internal/disclaimer"
	"github.com/apnedoctors/minirag/internal/knowledge"
	"github.com/apnedoctors/minirag/internal/metrics"
	"github.com/apnedoctors/minirag/internal/models"
	"github.com/apnedoctors/minirag/internal/retry"
	"github.com/apnedoctors/minirag/pkg/utils"
	"github.com/sirupsen/logrus"
)

const (
	historyBoost     = 0.1
	minSimilarity    = 0.05
	likelyThreshold  = 0.5
	maxSuggestions   = 6
	maxRedFlags      = 5
	unclassifiedName = "Unclassified symptoms"
	unclassifiedProb = 0.3
	confidenceTopN   = 3
)

// KnowledgeBase is the retrieval side of the processor.
type KnowledgeBase interface {
	Initialize(ctx context.Context) error
	Initialized() bool
	Encode(ctx context.Context, text string) ([]float32, error)
	Query(ctx context.Context, vector []float32, k int) ([]knowledge.Hit, error)
}

type SymptomProcessor struct {
	kb     KnowledgeBase
	retry  retry.Config
	topK   int
	logger *logrus.Logger
}

func NewSymptomProcessor(kb KnowledgeBase, retryConfig retry.Config, topK int, logger *logrus.Logger) *SymptomProcessor {
	if topK <= 0 {
		topK = knowledge.DefaultTopK
	}
	if retryConfig.OnRetry == nil {
		retryConfig.OnRetry = func(int, error) {
			metrics.RetryAttempts.WithLabelValues("process_symptoms").Inc()
		}
	}
	return &SymptomProcessor{
		kb:     kb,
		retry:  retryConfig,
		topK:   topK,
		logger: logger,
	}
}

// Process runs the emergency check and retrieval under the retry policy.
// Errors are wrapped in models.ErrProcessing.
func (p *SymptomProcessor) Process(ctx context.Context, query *models.SymptomQuery) (*models.SymptomResponse, error) {
	started := time.Now()
	path := "retrieval"

	var resp *models.SymptomResponse
	err := retry.Do(ctx, p.retry, p.logger, func(attempt int) error {
		r, emergency, err := p.processOnce(ctx, query)
		if err != nil {
			return err
		}
		if emergency {
			path = "emergency"
		}
		resp = r
		return nil
	})
	metrics.ProcessingDuration.WithLabelValues(path).Observe(time.Since(started).Seconds())

	if err != nil {
		p.logger.WithError(err).WithField("symptoms", utils.Truncate(query.Symptoms, 100)).Error("Symptom processing failed")
		return nil, fmt.Errorf("%w: %w", models.ErrProcessing, err)
	}

	resp.QueryID = utils.NewQueryID()

	p.logger.WithFields(logrus.Fields{
		"query_id":   resp.QueryID,
		"urgency":    resp.Urgency,
		"conditions": len(resp.PossibleConditions),
		"path":       path,
		"duration":   time.Since(started),
	}).Info("Symptoms processed")

	return resp, nil
}

func (p *SymptomProcessor) processOnce(ctx context.Context, query *models.SymptomQuery) (*models.SymptomResponse, bool, error) {
	if !p.kb.Initialized() {
		if err := p.kb.Initialize(ctx); err != nil {
			return nil, false, err
		}
	}

	if matched := DetectEmergency(query.Symptoms); len(matched) > 0 {
		metrics.EmergencyShortCircuits.Inc()
		p.logger.WithField("keywords", matched).Warn("Emergency keywords detected")
		return EmergencyResponse(matched), true, nil
	}

	vector, err := p.kb.Encode(ctx, preprocessQuery(query.Symptoms))
	if err != nil {
		return nil, false, fmt.Errorf("encode symptoms: %w", err)
	}

	hits, err := p.kb.Query(ctx, vector, p.topK)
	if err != nil {
		return nil, false, fmt.Errorf("query knowledge: %w", err)
	}

	p.logger.WithField("hits", len(hits)).Debug("Retrieved knowledge entries")

	resp := BuildResponse(query, hits)
	if err := resp.Validate(); err != nil {
		return nil, false, fmt.Errorf("assemble response: %w", err)
	}
	return resp, false, nil
}

// preprocessQuery strips filler words that carry no clinical signal.
func preprocessQuery(query string) string {
	noiseWords := map[string]bool{
		"i": true, "have": true, "has": true, "had": true, "been": true, "having": true,
		"my": true, "me": true, "the": true, "a": true, "an": true, "and": true,
		"feel": true, "feeling": true, "some": true, "really": true, "very": true,
		"please": true, "help": true, "since": true, "for": true, "with": true,
	}

	words := strings.Fields(strings.ToLower(query))
	filtered := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.Trim(w, ".,;:!?\"'()")
		if w != "" && !noiseWords[w] {
			filtered = append(filtered, w)
		}
	}

	processed := strings.Join(filtered, " ")
	// If filtering removed too much, use original
	if len(processed) < len(query)/3 {
		return query
	}
	return processed
}

type scoredCondition struct {
	condition models.MedicalCondition
	urgency   models.UrgencyLevel
	entry     knowledge.Entry
}

// BuildResponse maps nearest-neighbour hits onto a SymptomResponse. Hits
// below minSimilarity are dropped; when none remain the response is unclassified.
func BuildResponse(query *models.SymptomQuery, hits []knowledge.Hit) *models.SymptomResponse {
	scored := rankConditions(query, hits)
	if len(scored) == 0 {
		return unclassifiedResponse(query)
	}

	conditions := make([]models.MedicalCondition, len(scored))
	for i, s := range scored {
		conditions[i] = s.condition
	}

	urgency := deriveUrgency(scored, query)

	suggestions := []string{disclaimer.ForUrgency(string(urgency))}
	var redFlags []string
	for _, s := range scored {
		suggestions = appendUnique(suggestions, s.entry.Suggestions...)
		redFlags = appendUnique(redFlags, s.entry.RedFlags...)
	}

	return &models.SymptomResponse{
		PossibleConditions:  conditions,
		Urgency:             urgency,
		Suggestions:         capList(suggestions, maxSuggestions),
		ConfidenceScore:     confidence(conditions),
		ClarifyingQuestions: clarifyingQuestions(query),
		RedFlags:            capList(redFlags, maxRedFlags),
		Disclaimer:          disclaimer.Short,
	}
}

func rankConditions(query *models.SymptomQuery, hits []knowledge.Hit) []scoredCondition {
	best := make(map[string]scoredCondition, len(hits))
	for _, hit := range hits {
		entry := hit.Entry()
		if entry.Name == "" {
			continue
		}

		prob := clamp01(hit.Similarity)
		// no signal; history must not lift it into the ranking
		if prob < minSimilarity {
			continue
		}
		if historyMatches(query.MedicalHistory, entry.RiskFactors) {
			prob = clamp01(prob + historyBoost)
		}
		prob = math.Round(prob*1000) / 1000

		symptoms := entry.Symptoms
		if len(symptoms) == 0 {
			symptoms = []string{query.Symptoms}
		}
		urgency, err := models.ParseUrgency(entry.Urgency)
		if err != nil {
			urgency = models.UrgencyModerate
		}

		key := strings.ToLower(entry.Name)
		if prev, ok := best[key]; ok && prev.condition.Probability >= prob {
			continue
		}
		best[key] = scoredCondition{
			condition: models.MedicalCondition{
				Name:        entry.Name,
				Probability: prob,
				Description: entry.Description,
				Symptoms:    symptoms,
				RiskFactors: entry.RiskFactors,
			},
			urgency: urgency,
			entry:   entry,
		}
	}

	scored := make([]scoredCondition, 0, len(best))
	for _, s := range best {
		scored = append(scored, s)
	}
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].condition.Probability != scored[j].condition.Probability {
			return scored[i].condition.Probability > scored[j].condition.Probability
		}
		return scored[i].condition.Name < scored[j].condition.Name
	})
	if len(scored) > models.MaxConditions {
		scored = scored[:models.MaxConditions]
	}
	return scored
}

// deriveUrgency takes the most urgent likely condition, falling back to the
// top-ranked one. Severe self-reported severity lifts low to moderate.
func deriveUrgency(scored []scoredCondition, query *models.SymptomQuery) models.UrgencyLevel {
	urgency := scored[0].urgency
	for _, s := range scored {
		if s.condition.Probability >= likelyThreshold && s.urgency.Rank() > urgency.Rank() {
			urgency = s.urgency
		}
	}
	if query.Severity != nil && *query.Severity == "severe" && urgency == models.UrgencyLow {
		urgency = models.UrgencyModerate
	}
	return urgency
}

func confidence(conditions []models.MedicalCondition) float64 {
	n := len(conditions)
	if n > confidenceTopN {
		n = confidenceTopN
	}
	var sum float64
	for _, c := range conditions[:n] {
		sum += c.Probability
	}
	return math.Round(sum/float64(n)*1000) / 1000
}

func unclassifiedResponse(query *models.SymptomQuery) *models.SymptomResponse {
	return &models.SymptomResponse{
		PossibleConditions: []models.MedicalCondition{{
			Name:        unclassifiedName,
			Probability: unclassifiedProb,
			Description: "No close match was found in the knowledge base. A healthcare provider can help evaluate these symptoms.",
			Symptoms:    []string{query.Symptoms},
		}},
		Urgency: models.UrgencyModerate,
		Suggestions: []string{
			disclaimer.ForUrgency(string(models.UrgencyModerate)),
			"Keep a record of when your symptoms started and how they change",
		},
		ConfidenceScore:     unclassifiedProb,
		ClarifyingQuestions: clarifyingQuestions(query),
		Disclaimer:          disclaimer.Short,
	}
}

func clarifyingQuestions(query *models.SymptomQuery) []string {
	var questions []string
	if query.Duration == nil || strings.TrimSpace(*query.Duration) == "" {
		questions = append(questions, "How long have you had these symptoms?")
	}
	questions = append(questions, "Any fever or other symptoms?")
	if query.Severity == nil {
		questions = append(questions, "How severe are your symptoms: mild, moderate or severe?")
	}
	if query.PatientAge == nil {
		questions = append(questions, "What is your age?")
	}
	return questions
}

// historyMatches is a case-insensitive substring match in either direction.
func historyMatches(history, riskFactors []string) bool {
	for _, h := range history {
		h = strings.ToLower(strings.TrimSpace(h))
		if h == "" {
			continue
		}
		for _, rf := range riskFactors {
			rf = strings.ToLower(rf)
			if strings.Contains(rf, h) || strings.Contains(h, rf) {
				return true
			}
		}
	}
	return false
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func appendUnique(list []string, items ...string) []string {
	for _, item := range items {
		dup := false
		for _, existing := range list {
			if strings.EqualFold(existing, item) {
				dup = true
				break
			}
		}
		if !dup && item != "" {
			list = append(list, item)
		}
	}
	return list
}

func capList(list []string, max int) []string {
	if len(list) > max {
		return list[:max]
	}
	return list
}
