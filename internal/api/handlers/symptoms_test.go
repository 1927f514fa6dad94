package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/apnedoctors/minirag/internal/disclaimer"
	"github.com/apnedoctors/minirag/internal/embedding"
	"github.com/apnedoctors/minirag/internal/health"
	"github.com/apnedoctors/minirag/internal/knowledge"
	"github.com/apnedoctors/minirag/internal/models"
	"github.com/apnedoctors/minirag/internal/retry"
	"github.com/apnedoctors/minirag/internal/services"
	"github.com/apnedoctors/minirag/pkg/utils"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeProcessor struct {
	mu    sync.Mutex
	calls int
	resp  *models.SymptomResponse
	err   error
}

func (f *fakeProcessor) Process(_ context.Context, q *models.SymptomQuery) (*models.SymptomResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.resp != nil {
		return f.resp, nil
	}
	if m := services.DetectEmergency(q.Symptoms); len(m) > 0 {
		r := services.EmergencyResponse(m)
		r.QueryID = utils.NewQueryID()
		return r, nil
	}
	return services.BuildResponse(q, nil), nil
}

type fakeReadiness struct {
	ready bool
}

func (f *fakeReadiness) Initialized() bool { return f.ready }
func (f *fakeReadiness) Health(context.Context) models.RetrieverHealth {
	return models.RetrieverHealth{Initialized: f.ready, Status: "ready", Collection: "medical_knowledge", Documents: 18}
}

type fakeStore struct {
	mu       sync.Mutex
	feedback []*models.FeedbackRecord
	queries  []*models.QueryRecord
	err      error
}

func (s *fakeStore) SaveFeedback(_ context.Context, rec *models.FeedbackRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.feedback = append(s.feedback, rec)
	return nil
}

func (s *fakeStore) RecordQuery(_ context.Context, rec *models.QueryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries = append(s.queries, rec)
	return nil
}

func (s *fakeStore) CountFeedback(context.Context, string) (int64, error) { return 0, nil }
func (s *fakeStore) Ping(context.Context) error                           { return nil }
func (s *fakeStore) Close() error                                         { return nil }

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

func newEngine(h *SymptomHandler) *gin.Engine {
	r := gin.New()
	r.GET("/", h.HandleRoot)
	r.GET("/health", h.HandleHealth)
	r.GET("/disclaimer", h.HandleDisclaimer)
	r.POST("/ask", h.HandleAsk)
	r.POST("/feedback", h.HandleFeedback)
	return r
}

func doJSON(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) utils.ErrorBody {
	t.Helper()
	var body utils.ErrorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func errorFields(body utils.ErrorBody) []string {
	var fields []string
	for _, f := range body.Errors {
		fields = append(fields, f.Field)
	}
	return fields
}

func TestHandleRoot(t *testing.T) {
	h := NewSymptomHandler(&fakeProcessor{}, &fakeReadiness{}, nil, nil, quietLogger())
	w := doJSON(newEngine(h), "GET", "/", "")

	assert.Equal(t, http.StatusOK, w.Code)
	var body models.RootResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "running", body.Status)
	assert.Equal(t, Version, body.Version)
}

func TestHandleAsk_ValidationNeverReachesProcessor(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"symptoms too short", `{"symptoms":"ab"}`, "symptoms"},
		{"age out of range", `{"symptoms":"fever and cough","patient_age":150}`, "patient_age"},
		{"bad gender", `{"symptoms":"fever and cough","patient_gender":"unknown"}`, "patient_gender"},
		{"bad severity", `{"symptoms":"fever and cough","severity":"extreme"}`, "severity"},
		{"wrong type", `{"symptoms":"fever and cough","patient_age":"old"}`, "patient_age"},
		{"missing symptoms", `{}`, "symptoms"},
		{"malformed json", `{"symptoms":`, "body"},
		{"empty body", ``, "body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			proc := &fakeProcessor{}
			h := NewSymptomHandler(proc, &fakeReadiness{ready: true}, nil, nil, quietLogger())

			w := doJSON(newEngine(h), "POST", "/ask", tt.body)
			assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
			assert.Contains(t, errorFields(decodeError(t, w)), tt.field)
			assert.Equal(t, 0, proc.calls)
		})
	}
}

func TestHandleAsk_Emergency(t *testing.T) {
	proc := &fakeProcessor{}
	store := &fakeStore{}
	h := NewSymptomHandler(proc, &fakeReadiness{ready: true}, store, nil, quietLogger())

	w := doJSON(newEngine(h), "POST", "/ask", `{"symptoms":"I have chest pain and difficulty breathing"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp models.SymptomResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, models.UrgencyHigh, resp.Urgency)
	assert.Equal(t, services.EmergencyConditionName, resp.PossibleConditions[0].Name)
	assert.Contains(t, resp.Disclaimer, "EMERGENCY")

	h.Wait()
	require.Len(t, store.queries, 1)
	rec := store.queries[0]
	assert.True(t, rec.Emergency)
	assert.Equal(t, "high", rec.Urgency)
	assert.Equal(t, resp.QueryID, rec.QueryID)
	assert.Equal(t, utils.NormalizedHash("I have chest pain and difficulty breathing"), rec.SymptomsHash)
}

func TestHandleAsk_ProcessorFailureIs500(t *testing.T) {
	proc := &fakeProcessor{err: errors.New("vector store exploded: secret internals")}
	h := NewSymptomHandler(proc, &fakeReadiness{ready: true}, nil, nil, quietLogger())

	w := doJSON(newEngine(h), "POST", "/ask", `{"symptoms":"fever and cough"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	body := decodeError(t, w)
	assert.Equal(t, "Failed to process symptoms", body.Detail)
	assert.NotContains(t, w.Body.String(), "secret")
}

func TestHandleAsk_EndToEndWithRetriever(t *testing.T) {
	entries, err := knowledge.SeedCorpus()
	require.NoError(t, err)
	retriever := knowledge.NewRetriever(knowledge.Config{}, embedding.NewHashEncoder(256), entries, quietLogger())
	proc := services.NewSymptomProcessor(retriever, retry.Config{MaxAttempts: 1}, 5, quietLogger())
	h := NewSymptomHandler(proc, retriever, nil, nil, quietLogger())
	r := newEngine(h)

	assert.Equal(t, http.StatusServiceUnavailable, doJSON(r, "GET", "/health", "").Code)

	w := doJSON(r, "POST", "/ask", `{"symptoms":"fever chills and body aches","patient_age":40,"medical_history":["asthma"]}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp models.SymptomResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NoError(t, resp.Validate())
	assert.Equal(t, disclaimer.Short, resp.Disclaimer)

	w = doJSON(r, "GET", "/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	var hc models.HealthCheckResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &hc))
	assert.True(t, hc.RAGService.Initialized)
	assert.Equal(t, len(entries), hc.RAGService.Documents)
}

func TestHandleHealth(t *testing.T) {
	ready := &fakeReadiness{}
	checker := health.NewChecker(time.Second, quietLogger())
	checker.Register("feedback_store", func(context.Context) error { return errors.New("locked") })
	h := NewSymptomHandler(&fakeProcessor{}, ready, nil, checker, quietLogger())
	r := newEngine(h)

	w := doJSON(r, "GET", "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	ready.ready = true
	w = doJSON(r, "GET", "/health", "")
	require.Equal(t, http.StatusOK, w.Code)

	var body models.HealthCheckResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.RAGService.Initialized)
	assert.Equal(t, health.StatusDegraded, body.Status)
	assert.Equal(t, Version, body.Version)
	assert.Equal(t, disclaimer.Medical, body.Disclaimer)
	require.Len(t, body.Dependencies, 1)
	assert.Equal(t, "locked", body.Dependencies[0].Error)
}

func TestHandleDisclaimer_Stable(t *testing.T) {
	h := NewSymptomHandler(&fakeProcessor{}, &fakeReadiness{}, nil, nil, quietLogger())
	r := newEngine(h)

	first := doJSON(r, "GET", "/disclaimer", "")
	second := doJSON(r, "GET", "/disclaimer", "")
	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())

	var body models.DisclaimerResponse
	require.NoError(t, json.Unmarshal(first.Body.Bytes(), &body))
	assert.NotEmpty(t, body.Disclaimer)
}

func TestHandleFeedback(t *testing.T) {
	store := &fakeStore{}
	h := NewSymptomHandler(&fakeProcessor{}, &fakeReadiness{ready: true}, store, nil, quietLogger())
	r := newEngine(h)

	w := doJSON(r, "POST", "/feedback", `{"query_id":"query_abc","rating":4,"feedback_text":"clear","was_helpful":true}`)
	require.Equal(t, http.StatusCreated, w.Code)
	var body models.FeedbackResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "query_abc", body.QueryID)
	require.Len(t, store.feedback, 1)
	assert.Equal(t, "clear", store.feedback[0].FeedbackText)
	assert.NotEmpty(t, store.feedback[0].UserSession)

	w = doJSON(r, "POST", "/feedback", `{"query_id":"query_abc","rating":7}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.ElementsMatch(t, []string{"rating", "was_helpful"}, errorFields(decodeError(t, w)))

	store.err = errors.New("disk full")
	w = doJSON(r, "POST", "/feedback", `{"query_id":"query_abc","rating":2,"was_helpful":false}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "disk full")
}

func TestHandleFeedback_NoStore(t *testing.T) {
	h := NewSymptomHandler(&fakeProcessor{}, &fakeReadiness{ready: true}, nil, nil, quietLogger())
	w := doJSON(newEngine(h), "POST", "/feedback", `{"query_id":"q","rating":4,"was_helpful":true}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
