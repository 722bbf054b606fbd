package parser

import (
	"fmt"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/vanderheijden86/conductor-dashboard/pkg/model"
)

// Metadata is the union of the per-track metadata formats.
type Metadata struct {
	Name         string
	Status       model.Status // StatusUnknown when absent or unrecognized
	Priority     model.Priority
	HasPriority  bool
	Type         model.TrackType
	CreatedAt    *time.Time
	UpdatedAt    *time.Time
	Tags         []string
	Branch       string
	Dependencies []model.TrackID
	Description  string
}

// metadata.json comes in two shapes; the union of their fields is decoded.
//
//	{id, name, status, owner, start_date, end_date, description, dependencies, tags}
//	{track_id, type, status, created_at, updated_at, description}
type rawJSONMetadata struct {
	ID           string   `json:"id"`
	TrackID      string   `json:"track_id"`
	Name         string   `json:"name"`
	Title        string   `json:"title"`
	Status       string   `json:"status"`
	Priority     string   `json:"priority"`
	Type         string   `json:"type"`
	CreatedAt    string   `json:"created_at"`
	UpdatedAt    string   `json:"updated_at"`
	StartDate    string   `json:"start_date"`
	EndDate      string   `json:"end_date"`
	Dependencies []string `json:"dependencies"`
	Tags         []string `json:"tags"`
	Branch       string   `json:"branch"`
	Description  string   `json:"description"`
}

type rawYAMLMetadata struct {
	Name         string   `yaml:"name"`
	Status       string   `yaml:"status"`
	Priority     string   `yaml:"priority"`
	Type         string   `yaml:"type"`
	Created      string   `yaml:"created"`
	Completed    string   `yaml:"completed"`
	Updated      string   `yaml:"updated"`
	Branch       string   `yaml:"branch"`
	Tags         []string `yaml:"tags"`
	Dependencies []string `yaml:"dependencies"`
	Description  string   `yaml:"description"`
}

// ParseMetadataJSON decodes metadata.json.
func ParseMetadataJSON(src []byte) (Metadata, error) {
	var raw rawJSONMetadata
	if err := json.Unmarshal(src, &raw); err != nil {
		return Metadata{}, fmt.Errorf("decoding metadata.json: %w", err)
	}
	m := Metadata{
		Name:         firstNonEmpty(raw.Name, raw.Title),
		Type:         model.ParseTrackType(raw.Type),
		CreatedAt:    parseDate(firstNonEmpty(raw.CreatedAt, raw.StartDate)),
		UpdatedAt:    parseDate(firstNonEmpty(raw.UpdatedAt, raw.EndDate)),
		Tags:         raw.Tags,
		Branch:       strings.TrimSpace(raw.Branch),
		Dependencies: toIDs(raw.Dependencies),
		Description:  strings.TrimSpace(raw.Description),
	}
	m.Status, _ = model.ParseStatus(raw.Status)
	if raw.Priority != "" {
		m.Priority, m.HasPriority = model.ParsePriority(raw.Priority), true
	}
	return m, nil
}

// ParseMetadataYAML decodes meta.yaml.
func ParseMetadataYAML(src []byte) (Metadata, error) {
	var raw rawYAMLMetadata
	if err := yaml.Unmarshal(src, &raw); err != nil {
		return Metadata{}, fmt.Errorf("decoding meta.yaml: %w", err)
	}
	m := Metadata{
		Name:         raw.Name,
		Type:         model.ParseTrackType(raw.Type),
		CreatedAt:    parseDate(raw.Created),
		UpdatedAt:    parseDate(firstNonEmpty(raw.Updated, raw.Completed)),
		Tags:         raw.Tags,
		Branch:       strings.TrimSpace(raw.Branch),
		Dependencies: toIDs(raw.Dependencies),
		Description:  strings.TrimSpace(raw.Description),
	}
	m.Status, _ = model.ParseStatus(raw.Status)
	if raw.Priority != "" {
		m.Priority, m.HasPriority = model.ParsePriority(raw.Priority), true
	}
	return m, nil
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseDate accepts RFC 3339, bare dates, and either wrapped in parentheses.
func parseDate(s string) *time.Time {
	s = strings.TrimSpace(strings.Trim(strings.TrimSpace(s), "()"))
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

func toIDs(ss []string) []model.TrackID {
	var out []model.TrackID
	for _, s := range ss {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, model.TrackID(s))
		}
	}
	return out
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
