package seeder

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/apnedoctors/minirag/internal/knowledge"
	"github.com/gocolly/colly/v2"
	"github.com/sirupsen/logrus"
)

const (
	idPrefix       = "medlineplus_"
	maxDescription = 600
)

// TopicConfig is one MedlinePlus health topic page.
type TopicConfig struct {
	Title    string
	URL      string
	Category string
	Priority int
	// Urgency overrides the level inferred from page text when set.
	Urgency string
}

// MedlinePlusTopics are crawled in priority order.
var MedlinePlusTopics = []TopicConfig{
	{Title: "Bronchitis", URL: "https://medlineplus.gov/acutebronchitis.html", Category: "respiratory", Priority: 10},
	{Title: "Sore Throat", URL: "https://medlineplus.gov/sorethroat.html", Category: "respiratory", Priority: 10},
	{Title: "Ear Infections", URL: "https://medlineplus.gov/earinfections.html", Category: "ent", Priority: 9},
	{Title: "Conjunctivitis", URL: "https://medlineplus.gov/pinkeye.html", Category: "eye", Priority: 9},
	{Title: "Heartburn", URL: "https://medlineplus.gov/heartburn.html", Category: "digestive", Priority: 8},
	{Title: "Constipation", URL: "https://medlineplus.gov/constipation.html", Category: "digestive", Priority: 8},
	{Title: "Diarrhea", URL: "https://medlineplus.gov/diarrhea.html", Category: "digestive", Priority: 8},
	{Title: "Insomnia", URL: "https://medlineplus.gov/insomnia.html", Category: "mental_health", Priority: 7},
	{Title: "Anxiety", URL: "https://medlineplus.gov/anxiety.html", Category: "mental_health", Priority: 7},
	{Title: "Hives", URL: "https://medlineplus.gov/hives.html", Category: "skin", Priority: 6},
	{Title: "Sprains and Strains", URL: "https://medlineplus.gov/sprainsandstrains.html", Category: "musculoskeletal", Priority: 6},
	{Title: "Kidney Stones", URL: "https://medlineplus.gov/kidneystones.html", Category: "urinary", Priority: 6},
	{Title: "Anemia", URL: "https://medlineplus.gov/anemia.html", Category: "blood", Priority: 5},
	{Title: "Vertigo", URL: "https://medlineplus.gov/dizzinessandvertigo.html", Category: "neurological", Priority: 5},
	{Title: "Meningitis", URL: "https://medlineplus.gov/meningitis.html", Category: "neurological", Priority: 5, Urgency: "high"},
}

type CrawlerConfig struct {
	AllowedDomains []string
	UserAgent      string
	Delay          time.Duration
	Timeout        time.Duration
}

func DefaultCrawlerConfig() CrawlerConfig {
	return CrawlerConfig{
		AllowedDomains: []string{"medlineplus.gov"},
		UserAgent:      "ApneDoctors-Seeder/1.0",
		Delay:          2 * time.Second,
		Timeout:        30 * time.Second,
	}
}

// Crawler turns health topic pages into knowledge entries.
type Crawler struct {
	config    CrawlerConfig
	processor *ContentProcessor
	logger    *logrus.Logger
}

func NewCrawler(config CrawlerConfig, logger *logrus.Logger) *Crawler {
	return &Crawler{
		config:    config,
		processor: NewContentProcessor(),
		logger:    logger,
	}
}

// topicPage accumulates what the collector callbacks extract from one page.
type topicPage struct {
	title       string
	paragraphs  []string
	symptoms    []string
	riskFactors []string
	suggestions []string
	fullText    strings.Builder
}

func (c *Crawler) newCollector() *colly.Collector {
	collector := colly.NewCollector(
		colly.UserAgent(c.config.UserAgent),
		colly.AllowedDomains(c.config.AllowedDomains...),
	)
	collector.SetRequestTimeout(c.config.Timeout)
	return collector
}

// Crawl fetches topics in priority order, at most limit of them when limit > 0.
// Pages that fail are reported in the error slice and skipped.
func (c *Crawler) Crawl(ctx context.Context, topics []TopicConfig, limit int) ([]knowledge.Entry, []error) {
	pages := make([]TopicConfig, len(topics))
	copy(pages, topics)
	sort.SliceStable(pages, func(i, j int) bool { return pages[i].Priority > pages[j].Priority })

	if limit > 0 && limit < len(pages) {
		pages = pages[:limit]
		c.logger.WithField("limit", limit).Info("Limited topics to process")
	}

	var entries []knowledge.Entry
	var errs []error

	for i, topic := range pages {
		if i > 0 && c.config.Delay > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(c.config.Delay):
			}
		}
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		c.logger.WithFields(logrus.Fields{
			"topic":    topic.Title,
			"priority": topic.Priority,
			"progress": fmt.Sprintf("%d/%d", i+1, len(pages)),
		}).Info("Processing topic")

		entry, err := c.FetchTopic(topic)
		if err != nil {
			c.logger.WithError(err).WithField("topic", topic.Title).Error("Failed to process topic")
			errs = append(errs, fmt.Errorf("failed to process %s: %w", topic.Title, err))
			continue
		}
		entries = append(entries, entry)
	}

	c.logger.WithFields(logrus.Fields{
		"processed": len(entries),
		"errors":    len(errs),
	}).Info("Crawl completed")

	return entries, errs
}

// FetchTopic downloads one topic page and maps it onto a knowledge entry.
func (c *Crawler) FetchTopic(topic TopicConfig) (knowledge.Entry, error) {
	page := &topicPage{}
	var fetchErr error

	collector := c.newCollector()

	collector.OnHTML("h1", func(e *colly.HTMLElement) {
		if page.title == "" {
			page.title = strings.TrimSpace(e.Text)
		}
	})

	collector.OnHTML("#topic-summary", func(e *colly.HTMLElement) {
		c.extractSummary(e.DOM, page)
	})

	collector.OnError(func(r *colly.Response, err error) {
		fetchErr = err
	})

	if err := collector.Visit(topic.URL); err != nil {
		return knowledge.Entry{}, fmt.Errorf("failed to visit page: %w", err)
	}
	collector.Wait()

	if fetchErr != nil {
		return knowledge.Entry{}, fmt.Errorf("processing error: %w", fetchErr)
	}

	return c.buildEntry(topic, page)
}

type section int

const (
	sectionOther section = iota
	sectionOverview
	sectionSymptoms
	sectionRisks
	sectionTreatment
)

// classifyHeading maps a lowercased summary heading onto the entry field its
// content feeds. Text before the first heading is overview.
func classifyHeading(heading string) section {
	switch {
	case heading == "":
		return sectionOverview
	case strings.Contains(heading, "symptom"), strings.Contains(heading, "signs"):
		return sectionSymptoms
	case strings.Contains(heading, "risk"), strings.Contains(heading, "more likely"):
		return sectionRisks
	case strings.Contains(heading, "treat"), strings.Contains(heading, "prevent"), strings.Contains(heading, "self-care"):
		return sectionTreatment
	case strings.HasPrefix(heading, "what is"), strings.HasPrefix(heading, "what are"):
		return sectionOverview
	}
	return sectionOther
}

// extractSummary walks the summary block and buckets list items by the
// heading above them.
func (c *Crawler) extractSummary(summary *goquery.Selection, page *topicPage) {
	current := sectionOverview

	summary.Children().Each(func(_ int, s *goquery.Selection) {
		switch goquery.NodeName(s) {
		case "h2", "h3", "h4":
			heading := strings.TrimSpace(s.Text())
			current = classifyHeading(strings.ToLower(heading))
			page.appendText(heading)
		case "p":
			text := strings.TrimSpace(s.Text())
			if current == sectionOverview && text != "" {
				page.paragraphs = append(page.paragraphs, text)
			}
			page.appendText(text)
		case "ul", "ol":
			var items []string
			s.Find("li").Each(func(_ int, li *goquery.Selection) {
				if item := strings.TrimSpace(li.Text()); item != "" {
					items = append(items, item)
					page.appendText(item)
				}
			})
			switch current {
			case sectionSymptoms:
				page.symptoms = append(page.symptoms, items...)
			case sectionRisks:
				page.riskFactors = append(page.riskFactors, items...)
			case sectionTreatment:
				page.suggestions = append(page.suggestions, items...)
			}
		}
	})
}

// appendText adds a block to the page text, closing it as a sentence so
// red flag extraction never joins two blocks.
func (p *topicPage) appendText(text string) {
	if text == "" {
		return
	}
	p.fullText.WriteString(text)
	if !strings.ContainsAny(text[len(text)-1:], ".!?:") {
		p.fullText.WriteString(".")
	}
	p.fullText.WriteString("\n\n")
}

func (c *Crawler) buildEntry(topic TopicConfig, page *topicPage) (knowledge.Entry, error) {
	name := topic.Title
	if page.title != "" {
		name = page.title
	}

	symptoms := c.processor.NormalizePhrases(page.symptoms)
	if len(symptoms) == 0 {
		return knowledge.Entry{}, fmt.Errorf("no symptoms found on %s", topic.URL)
	}

	description := c.processor.Summarize(strings.Join(page.paragraphs, "\n\n"), maxDescription)
	if description == "" {
		return knowledge.Entry{}, fmt.Errorf("no summary found on %s", topic.URL)
	}

	fullText := page.fullText.String()
	urgency := topic.Urgency
	if urgency == "" {
		urgency = c.processor.InferUrgency(fullText)
	}

	var suggestions []string
	for _, s := range page.suggestions {
		if s = c.processor.CleanContent(s); s != "" && len(s) <= 200 {
			suggestions = append(suggestions, s)
		}
	}

	entry := knowledge.Entry{
		ID:          idPrefix + c.processor.Slugify(topic.Title),
		Name:        name,
		Category:    topic.Category,
		Description: description,
		Symptoms:    symptoms,
		RiskFactors: c.processor.NormalizePhrases(page.riskFactors),
		Suggestions: c.processor.removeDuplicates(suggestions),
		RedFlags:    c.processor.ExtractRedFlags(fullText),
		Urgency:     urgency,
		Source:      topic.URL,
	}

	c.logger.WithFields(logrus.Fields{
		"id":       entry.ID,
		"symptoms": len(entry.Symptoms),
		"urgency":  entry.Urgency,
		"words":    c.processor.CountWords(fullText),
	}).Debug("Topic extracted")

	return entry, nil
}
