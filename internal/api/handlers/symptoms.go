// internal/api/handlers/symptoms.go
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/apnedoctors/minirag/internal/disclaimer"
	"github.com/apnedoctors/minirag/internal/health"
	"github.com/apnedoctors/minirag/internal/metrics"
	"github.com/apnedoctors/minirag/internal/models"
	"github.com/apnedoctors/minirag/internal/repository"
	"github.com/apnedoctors/minirag/internal/services"
	"github.com/apnedoctors/minirag/pkg/utils"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const (
	ServiceName    = "ApneDoctors Mini RAG API"
	Version        = "1.0.0"
	processTimeout = 60 * time.Second
	recordTimeout  = 5 * time.Second
)

// Processor turns a validated query into a response.
type Processor interface {
	Process(ctx context.Context, query *models.SymptomQuery) (*models.SymptomResponse, error)
}

// Readiness exposes the retriever state to /health.
type Readiness interface {
	Initialized() bool
	Health(ctx context.Context) models.RetrieverHealth
}

type SymptomHandler struct {
	processor Processor
	retriever Readiness
	store     repository.Store
	checker   *health.Checker
	logger    *logrus.Logger

	pending sync.WaitGroup
}

// NewSymptomHandler wires the endpoints. store and checker may be nil.
func NewSymptomHandler(
	processor Processor,
	retriever Readiness,
	store repository.Store,
	checker *health.Checker,
	logger *logrus.Logger,
) *SymptomHandler {
	return &SymptomHandler{
		processor: processor,
		retriever: retriever,
		store:     store,
		checker:   checker,
		logger:    logger,
	}
}

// HandleRoot is a dependency-free liveness payload.
func (h *SymptomHandler) HandleRoot(c *gin.Context) {
	utils.JSONResponse(c, http.StatusOK, models.RootResponse{
		Service: ServiceName,
		Status:  "running",
		Version: Version,
	})
}

// HandleHealth answers 503 until the retriever is initialized.
func (h *SymptomHandler) HandleHealth(c *gin.Context) {
	if !h.retriever.Initialized() {
		utils.ErrorResponse(c, http.StatusServiceUnavailable, "RAG service not initialized")
		return
	}

	resp := models.HealthCheckResponse{
		Status:     health.StatusHealthy,
		Version:    Version,
		RAGService: h.retriever.Health(c.Request.Context()),
		Disclaimer: disclaimer.Medical,
	}
	if h.checker != nil {
		resp.Dependencies, resp.Status = h.checker.CheckAll(c.Request.Context())
		resp.Uptime = h.checker.Uptime()
	}

	utils.JSONResponse(c, http.StatusOK, resp)
}

// HandleAsk validates the query and runs the symptom processor.
func (h *SymptomHandler) HandleAsk(c *gin.Context) {
	startTime := time.Now()

	var req models.SymptomQuery
	if err := c.ShouldBindJSON(&req); err != nil {
		verr := models.NewValidationError(err)
		h.logger.WithField("fields", verr.FieldNames()).Info("Invalid symptom query")
		metrics.SymptomRequests.WithLabelValues("invalid", "").Inc()
		utils.ValidationResponse(c, http.StatusUnprocessableEntity, "Validation error", verr.Fields)
		return
	}

	h.logger.WithFields(logrus.Fields{
		"symptoms":   utils.Truncate(req.Symptoms, 100),
		"request_id": c.GetString("request_id"),
	}).Info("Processing symptom query")

	ctx, cancel := context.WithTimeout(c.Request.Context(), processTimeout)
	defer cancel()

	resp, err := h.processor.Process(ctx, &req)
	if err != nil {
		h.logger.WithError(err).Error("Error processing symptoms")
		metrics.SymptomRequests.WithLabelValues("error", "").Inc()
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to process symptoms")
		return
	}

	elapsed := time.Since(startTime)
	metrics.SymptomRequests.WithLabelValues("ok", string(resp.Urgency)).Inc()

	h.recordQuery(queryRecord(&req, resp, elapsed))

	utils.JSONResponse(c, http.StatusOK, resp)
}

// HandleDisclaimer returns the full medical disclaimer.
func (h *SymptomHandler) HandleDisclaimer(c *gin.Context) {
	utils.JSONResponse(c, http.StatusOK, models.DisclaimerResponse{Disclaimer: disclaimer.Medical})
}

// HandleFeedback stores a rating for a previous answer.
func (h *SymptomHandler) HandleFeedback(c *gin.Context) {
	if h.store == nil {
		utils.ErrorResponse(c, http.StatusServiceUnavailable, "Feedback storage is not configured")
		return
	}

	var req models.FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		verr := models.NewValidationError(err)
		utils.ValidationResponse(c, http.StatusUnprocessableEntity, "Validation error", verr.Fields)
		return
	}

	rec := models.NewFeedbackRecord(&req, h.getUserSession(c))
	if err := h.store.SaveFeedback(c.Request.Context(), rec); err != nil {
		h.logger.WithError(err).Error("Failed to save feedback")
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to save feedback")
		return
	}

	metrics.FeedbackReceived.WithLabelValues(strconv.Itoa(req.Rating)).Inc()
	h.logger.WithFields(logrus.Fields{
		"query_id":    req.QueryID,
		"rating":      req.Rating,
		"was_helpful": rec.WasHelpful,
	}).Info("Feedback recorded")

	utils.JSONResponse(c, http.StatusCreated, models.FeedbackResponse{
		Status:  "recorded",
		QueryID: req.QueryID,
	})
}

// Wait blocks until background query logging has finished.
func (h *SymptomHandler) Wait() {
	h.pending.Wait()
}

// Helper methods

func queryRecord(req *models.SymptomQuery, resp *models.SymptomResponse, elapsed time.Duration) *models.QueryRecord {
	rec := &models.QueryRecord{
		QueryID:        resp.QueryID,
		SymptomsHash:   utils.NormalizedHash(req.Symptoms),
		Urgency:        string(resp.Urgency),
		Emergency:      services.IsEmergency(resp),
		ConditionCount: len(resp.PossibleConditions),
		Confidence:     resp.ConfidenceScore,
		ResponseTimeMs: int(elapsed.Milliseconds()),
	}
	if len(resp.PossibleConditions) > 0 {
		rec.TopCondition = resp.PossibleConditions[0].Name
	}
	return rec
}

func (h *SymptomHandler) recordQuery(rec *models.QueryRecord) {
	if h.store == nil {
		return
	}

	h.pending.Add(1)
	go func() {
		defer h.pending.Done()

		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		defer cancel()

		if err := h.store.RecordQuery(ctx, rec); err != nil && !errors.Is(err, context.Canceled) {
			h.logger.WithError(err).WithField("query_id", rec.QueryID).Warn("Failed to record query")
		}
	}()
}

func (h *SymptomHandler) getUserSession(c *gin.Context) string {
	if session := c.GetHeader("X-Session-ID"); session != "" {
		return utils.Truncate(session, 64)
	}
	return utils.MD5Hash(c.ClientIP() + c.GetHeader("User-Agent"))[:16]
}
