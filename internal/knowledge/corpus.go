package knowledge

import (
	"embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed corpus/medical_knowledge.json corpus/schema.json
var corpusFS embed.FS

// listSep joins list fields inside string-only vector metadata.
const listSep = "|"

// Entry is one condition in the knowledge corpus.
type Entry struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Category    string   `json:"category"`
	Description string   `json:"description"`
	Symptoms    []string `json:"symptoms"`
	RiskFactors []string `json:"risk_factors,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
	RedFlags    []string `json:"red_flags,omitempty"`
	Urgency     string   `json:"urgency"`
	Source      string   `json:"source,omitempty"`
}

type corpusFile struct {
	Version string  `json:"version"`
	Entries []Entry `json:"entries"`
}

// Content is the text that gets embedded for an entry.
func (e Entry) Content() string {
	var b strings.Builder
	b.WriteString(e.Name)
	b.WriteString(". ")
	b.WriteString(e.Description)
	if len(e.Symptoms) > 0 {
		b.WriteString(" Symptoms: ")
		b.WriteString(strings.Join(e.Symptoms, ", "))
		b.WriteString(".")
	}
	return b.String()
}

func (e Entry) Metadata() map[string]string {
	md := map[string]string{
		"name":        e.Name,
		"category":    e.Category,
		"description": e.Description,
		"symptoms":    strings.Join(e.Symptoms, listSep),
		"urgency":     e.Urgency,
	}
	if len(e.RiskFactors) > 0 {
		md["risk_factors"] = strings.Join(e.RiskFactors, listSep)
	}
	if len(e.Suggestions) > 0 {
		md["suggestions"] = strings.Join(e.Suggestions, listSep)
	}
	if len(e.RedFlags) > 0 {
		md["red_flags"] = strings.Join(e.RedFlags, listSep)
	}
	if e.Source != "" {
		md["source"] = e.Source
	}
	return md
}

// EntryFromMetadata rebuilds an Entry from stored metadata.
func EntryFromMetadata(id string, md map[string]string) Entry {
	return Entry{
		ID:          id,
		Name:        md["name"],
		Category:    md["category"],
		Description: md["description"],
		Symptoms:    splitList(md["symptoms"]),
		RiskFactors: splitList(md["risk_factors"]),
		Suggestions: splitList(md["suggestions"]),
		RedFlags:    splitList(md["red_flags"]),
		Urgency:     md["urgency"],
		Source:      md["source"],
	}
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, listSep)
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ParseCorpus validates raw corpus JSON against the embedded schema and decodes it.
func ParseCorpus(data []byte) ([]Entry, error) {
	schema, err := corpusFS.ReadFile("corpus/schema.json")
	if err != nil {
		return nil, fmt.Errorf("failed to read corpus schema: %w", err)
	}

	result, err := gojsonschema.Validate(gojsonschema.NewBytesLoader(schema), gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to validate corpus: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return nil, fmt.Errorf("corpus does not match schema: %s", strings.Join(msgs, "; "))
	}

	var file corpusFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to decode corpus: %w", err)
	}

	seen := make(map[string]bool, len(file.Entries))
	for _, e := range file.Entries {
		if seen[e.ID] {
			return nil, fmt.Errorf("duplicate corpus entry id %q", e.ID)
		}
		seen[e.ID] = true
	}
	return file.Entries, nil
}

// SeedCorpus returns the built-in medical knowledge entries.
func SeedCorpus() ([]Entry, error) {
	data, err := corpusFS.ReadFile("corpus/medical_knowledge.json")
	if err != nil {
		return nil, fmt.Errorf("failed to read seed corpus: %w", err)
	}
	return ParseCorpus(data)
}

// MarshalCorpus encodes entries in the corpus file format. The output is
// checked against the schema, so it can be loaded back with ParseCorpus.
func MarshalCorpus(version string, entries []Entry) ([]byte, error) {
	data, err := json.MarshalIndent(corpusFile{Version: version, Entries: entries}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode corpus: %w", err)
	}
	if _, err := ParseCorpus(data); err != nil {
		return nil, err
	}
	return data, nil
}
