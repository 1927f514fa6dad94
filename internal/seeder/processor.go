package seeder

import (
	"regexp"
	"strings"
	"unicode"
)

const (
	maxPhraseWords  = 8
	maxPhraseLength = 80
	maxRedFlags     = 5
)

// phrases MedlinePlus uses when a reader should get care now
const emergencyPattern = `(?i)(call 911|emergency room|medical emergency|` +
	`seek (immediate|urgent|emergency) (medical )?(care|help|attention)|get medical help right away)`

// ContentProcessor handles text cleanup for crawled health topics
type ContentProcessor struct {
	multiWhitespace *regexp.Regexp
	htmlTags        *regexp.Regexp
	footnotes       *regexp.Regexp
	sentenceEnd     *regexp.Regexp
	emergency       *regexp.Regexp
	slugInvalid     *regexp.Regexp
}

func NewContentProcessor() *ContentProcessor {
	return &ContentProcessor{
		multiWhitespace: regexp.MustCompile(`\s+`),
		htmlTags:        regexp.MustCompile(`<[^>]*>`),
		footnotes:       regexp.MustCompile(`\[\d+\]`),
		sentenceEnd:     regexp.MustCompile(`[.!?]+\s+`),
		emergency:       regexp.MustCompile(emergencyPattern),
		slugInvalid:     regexp.MustCompile(`[^a-z0-9]+`),
	}
}

// CleanContent strips markup and footnote markers and normalizes whitespace.
func (cp *ContentProcessor) CleanContent(content string) string {
	content = cp.htmlTags.ReplaceAllString(content, " ")
	content = cp.footnotes.ReplaceAllString(content, "")
	content = cp.multiWhitespace.ReplaceAllString(content, " ")
	return strings.TrimSpace(content)
}

// NormalizePhrases turns list items into short lowercase phrases suitable
// for symptom, risk factor and suggestion lists. Long prose items are dropped.
func (cp *ContentProcessor) NormalizePhrases(items []string) []string {
	var phrases []string
	for _, item := range items {
		p := strings.ToLower(cp.CleanContent(item))
		p = strings.TrimRight(p, ".,;:")
		// "fever, which may be high" -> "fever"
		if i := strings.IndexAny(p, ",("); i > 0 {
			p = strings.TrimSpace(p[:i])
		}
		if p == "" || len(p) > maxPhraseLength || cp.CountWords(p) > maxPhraseWords {
			continue
		}
		phrases = append(phrases, p)
	}
	return cp.removeDuplicates(phrases)
}

// ExtractRedFlags returns sentences that tell the reader to seek urgent care.
func (cp *ContentProcessor) ExtractRedFlags(content string) []string {
	var flags []string
	for _, sentence := range cp.sentenceEnd.Split(cp.CleanContent(content), -1) {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" || !cp.emergency.MatchString(sentence) {
			continue
		}
		if len(sentence) > 200 {
			sentence = sentence[:200]
		}
		flags = append(flags, strings.TrimRight(sentence, ".!?"))
		if len(flags) == maxRedFlags {
			break
		}
	}
	return cp.removeDuplicates(flags)
}

// InferUrgency guesses a triage level from topic text.
func (cp *ContentProcessor) InferUrgency(content string) string {
	lower := strings.ToLower(content)
	switch {
	case strings.Contains(lower, "medical emergency"), strings.Contains(lower, "life-threatening"):
		return "high"
	case cp.emergency.MatchString(content):
		return "moderate"
	default:
		return "low"
	}
}

// Summarize returns the first chunk of content, at most maxLen bytes.
func (cp *ContentProcessor) Summarize(content string, maxLen int) string {
	chunks := cp.SplitIntoChunks(cp.CleanContent(content), maxLen)
	if len(chunks) == 0 {
		return ""
	}
	return chunks[0]
}

// Slugify builds a corpus id from a topic title.
func (cp *ContentProcessor) Slugify(title string) string {
	return strings.Trim(cp.slugInvalid.ReplaceAllString(strings.ToLower(title), "_"), "_")
}

// SplitIntoChunks splits content into pieces of at most maxChunkSize,
// breaking on paragraphs first and sentences second.
func (cp *ContentProcessor) SplitIntoChunks(content string, maxChunkSize int) []string {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil
	}
	if len(content) <= maxChunkSize {
		return []string{content}
	}

	paragraphs := strings.Split(content, "\n\n")
	var chunks []string
	var currentChunk strings.Builder

	for _, paragraph := range paragraphs {
		paragraph = strings.TrimSpace(paragraph)
		if paragraph == "" {
			continue
		}

		if currentChunk.Len() > 0 && currentChunk.Len()+len(paragraph)+2 > maxChunkSize {
			chunks = append(chunks, strings.TrimSpace(currentChunk.String()))
			currentChunk.Reset()
		}

		if currentChunk.Len() > 0 {
			currentChunk.WriteString("\n\n")
		}
		currentChunk.WriteString(paragraph)
	}

	if currentChunk.Len() > 0 {
		chunks = append(chunks, strings.TrimSpace(currentChunk.String()))
	}

	var finalChunks []string
	for _, chunk := range chunks {
		if len(chunk) <= maxChunkSize {
			finalChunks = append(finalChunks, chunk)
		} else {
			finalChunks = append(finalChunks, cp.splitBySentences(chunk, maxChunkSize)...)
		}
	}

	return finalChunks
}

// splitBySentences splits text by sentences when paragraphs are too long.
// A single sentence longer than maxSize is cut at a word boundary.
func (cp *ContentProcessor) splitBySentences(text string, maxSize int) []string {
	sentences := cp.sentenceEnd.Split(text, -1)
	var chunks []string
	var currentChunk strings.Builder

	for _, sentence := range sentences {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" {
			continue
		}
		sentence = strings.TrimRight(sentence, ".!?")

		// room for ". " plus the closing period
		if currentChunk.Len() > 0 && currentChunk.Len()+len(sentence)+3 > maxSize {
			chunks = append(chunks, currentChunk.String()+".")
			currentChunk.Reset()
		}

		if len(sentence)+1 > maxSize {
			chunks = append(chunks, cutAtWord(sentence, maxSize))
			continue
		}

		if currentChunk.Len() > 0 {
			currentChunk.WriteString(". ")
		}
		currentChunk.WriteString(sentence)
	}

	if currentChunk.Len() > 0 {
		chunks = append(chunks, currentChunk.String()+".")
	}

	return chunks
}

func cutAtWord(s string, max int) string {
	if len(s) <= max {
		return s
	}
	s = s[:max]
	if i := strings.LastIndexByte(s, ' '); i > 0 {
		s = s[:i]
	}
	return s
}

// removeDuplicates removes duplicate strings from a slice
func (cp *ContentProcessor) removeDuplicates(items []string) []string {
	seen := make(map[string]bool)
	var result []string

	for _, item := range items {
		if !seen[item] {
			seen[item] = true
			result = append(result, item)
		}
	}

	return result
}

// CountWords estimates word count in text
func (cp *ContentProcessor) CountWords(text string) int {
	if text == "" {
		return 0
	}

	words := strings.FieldsFunc(text, func(c rune) bool {
		return unicode.IsSpace(c) || unicode.IsPunct(c)
	})

	// Filter out very short "words"
	count := 0
	for _, word := range words {
		if len(strings.TrimSpace(word)) > 1 {
			count++
		}
	}

	return count
}
