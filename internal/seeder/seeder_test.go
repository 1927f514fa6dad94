package seeder

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/apnedoctors/minirag/internal/knowledge"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sinusPage = `<!DOCTYPE html>
<html><body>
<h1>Sinusitis</h1>
<div id="topic-summary">
  <h3>What is sinusitis?</h3>
  <p>Sinusitis is inflammation of the sinuses.<sup>[1]</sup> It often follows a cold.</p>
  <h3>What are the symptoms of sinusitis?</h3>
  <ul>
    <li>Facial pain, which may get worse when bending over</li>
    <li>Stuffy nose.</li>
    <li>Thick yellow or green mucus</li>
    <li>Stuffy nose</li>
    <li>A long description of a symptom that goes on and on well past what anyone would call a short phrase</li>
  </ul>
  <h3>Who is more likely to develop sinusitis?</h3>
  <ul><li>Allergies</li><li>Smoking</li></ul>
  <h3>What are the treatments for sinusitis?</h3>
  <ul><li>Use a saline nasal spray</li><li>Drink plenty of fluids</li></ul>
  <p>If you have a high fever and a stiff neck, seek immediate medical care. Most people get better on their own.</p>
</div>
</body></html>`

const emptyPage = `<html><body><h1>Nothing</h1><div id="topic-summary"><p>No lists here.</p></div></body></html>`

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/sinusitis.html", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(sinusPage))
	})
	mux.HandleFunc("/empty.html", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(emptyPage))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testCrawler() *Crawler {
	cfg := DefaultCrawlerConfig()
	cfg.AllowedDomains = []string{"127.0.0.1"}
	cfg.Delay = 0
	return NewCrawler(cfg, quietLogger())
}

func TestFetchTopic(t *testing.T) {
	srv := newTestServer(t)

	entry, err := testCrawler().FetchTopic(TopicConfig{
		Title:    "Sinusitis",
		URL:      srv.URL + "/sinusitis.html",
		Category: "respiratory",
	})
	require.NoError(t, err)

	assert.Equal(t, "medlineplus_sinusitis", entry.ID)
	assert.Equal(t, "Sinusitis", entry.Name)
	assert.Equal(t, "Sinusitis is inflammation of the sinuses. It often follows a cold.", entry.Description)
	assert.Equal(t, []string{"facial pain", "stuffy nose", "thick yellow or green mucus"}, entry.Symptoms)
	assert.Equal(t, []string{"allergies", "smoking"}, entry.RiskFactors)
	assert.Equal(t, []string{"Use a saline nasal spray", "Drink plenty of fluids"}, entry.Suggestions)
	require.Len(t, entry.RedFlags, 1)
	assert.Contains(t, entry.RedFlags[0], "seek immediate medical care")
	assert.Equal(t, "moderate", entry.Urgency)

	// crawled entries must load as a corpus
	_, err = knowledge.MarshalCorpus("crawl", []knowledge.Entry{entry})
	assert.NoError(t, err)
}

func TestFetchTopic_Errors(t *testing.T) {
	srv := newTestServer(t)
	c := testCrawler()

	_, err := c.FetchTopic(TopicConfig{Title: "Empty", URL: srv.URL + "/empty.html", Category: "x"})
	assert.ErrorContains(t, err, "no symptoms")

	_, err = c.FetchTopic(TopicConfig{Title: "Missing", URL: srv.URL + "/missing.html", Category: "x"})
	assert.Error(t, err)

	_, err = c.FetchTopic(TopicConfig{Title: "Elsewhere", URL: "http://example.com/page.html", Category: "x"})
	assert.Error(t, err)
}

func TestCrawl_PriorityLimitAndOverride(t *testing.T) {
	srv := newTestServer(t)
	topics := []TopicConfig{
		{Title: "Empty", URL: srv.URL + "/empty.html", Category: "x", Priority: 1},
		{Title: "Sinusitis", URL: srv.URL + "/sinusitis.html", Category: "respiratory", Priority: 9, Urgency: "high"},
		{Title: "Missing", URL: srv.URL + "/missing.html", Category: "x", Priority: 5},
	}

	entries, errs := testCrawler().Crawl(context.Background(), topics, 2)
	require.Len(t, entries, 1)
	assert.Equal(t, "high", entries[0].Urgency)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "Missing")
}

func TestCrawl_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	entries, errs := testCrawler().Crawl(ctx, MedlinePlusTopics, 0)
	assert.Empty(t, entries)
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], context.Canceled)
}

func TestMedlinePlusTopics_IDsAreValid(t *testing.T) {
	cp := NewContentProcessor()
	seen := map[string]bool{}
	for _, topic := range MedlinePlusTopics {
		id := idPrefix + cp.Slugify(topic.Title)
		assert.Regexp(t, `^[a-z0-9_]+$`, id)
		assert.False(t, seen[id], id)
		seen[id] = true
		assert.True(t, strings.HasPrefix(topic.URL, "https://medlineplus.gov/"), topic.URL)
	}
}

func TestContentProcessor(t *testing.T) {
	cp := NewContentProcessor()

	assert.Equal(t, "a b c", cp.CleanContent("  a <b>b</b>[12]\n\n c "))
	assert.Equal(t, "sprains_and_strains", cp.Slugify("Sprains and Strains"))
	assert.Equal(t, "covid_19", cp.Slugify("COVID-19"))
	assert.Equal(t, 3, cp.CountWords("fever, chills & aches"))

	assert.Equal(t, "high", cp.InferUrgency("This can be a medical emergency."))
	assert.Equal(t, "moderate", cp.InferUrgency("Call 911 if you faint."))
	assert.Equal(t, "low", cp.InferUrgency("Rest at home."))

	flags := cp.ExtractRedFlags("Rest. Go to the emergency room if you cannot drink. Call 911 for seizures! Eat well.")
	assert.Equal(t, []string{"Go to the emergency room if you cannot drink", "Call 911 for seizures"}, flags)
}

func TestSplitIntoChunks(t *testing.T) {
	cp := NewContentProcessor()

	assert.Nil(t, cp.SplitIntoChunks("   ", 10))
	assert.Equal(t, []string{"short"}, cp.SplitIntoChunks("short", 10))

	chunks := cp.SplitIntoChunks("First paragraph here.\n\nSecond paragraph here.", 25)
	assert.Equal(t, []string{"First paragraph here.", "Second paragraph here."}, chunks)

	long := "One sentence here. Two sentence here. Three sentence here."
	for _, chunk := range cp.SplitIntoChunks(long, 40) {
		assert.LessOrEqual(t, len(chunk), 40, chunk)
	}

	summary := cp.Summarize(strings.Repeat("word ", 100), 50)
	assert.LessOrEqual(t, len(summary), 50)
	assert.NotEmpty(t, summary)
}
