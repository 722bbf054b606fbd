// Package parser turns the markdown and metadata files of a track directory
// into a model.Track.
package parser

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"time"

	"github.com/yuin/goldmark/ast"

	"github.com/vanderheijden86/conductor-dashboard/pkg/model"
)

// Track file names.
const (
	IndexFile        = "tracks.md"
	PlanFile         = "plan.md"
	SpecFile         = "spec.md"
	MetadataJSONFile = "metadata.json"
	MetaYAMLFile     = "meta.yaml"
)

// TrackFiles lists the files the parser reads from a track directory.
var TrackFiles = []string{PlanFile, SpecFile, MetadataJSONFile, MetaYAMLFile}

// ErrTrackGone is returned when a track directory no longer exists.
var ErrTrackGone = errors.New("track directory is gone")

// Files is the raw content of one track directory. A nil slice means the
// file was absent.
type Files struct {
	Plan         []byte
	Spec         []byte
	MetadataJSON []byte
	MetaYAML     []byte
	// ModTime is the newest modification time among the files read.
	ModTime time.Time
}

// Build assembles a Track from raw file content. It is pure and never fails;
// problems are recorded in Track.Warnings.
//
// Status is decided, in order, by an explicit marker in the plan's headings,
// the metadata file, the tracks.md entry, and finally task completion.
func Build(id model.TrackID, dir string, files Files, entry *IndexEntry) model.Track {
	t := model.Track{
		ID:          id,
		Path:        dir,
		Priority:    model.PriorityMedium,
		LastUpdated: files.ModTime,
		Spec:        string(files.Spec),
	}

	var plan Plan
	if files.Plan != nil {
		plan = ParsePlan(files.Plan)
		t.Phases = plan.Phases
	} else {
		t.Warnings = append(t.Warnings, "no plan.md")
	}
	t.Recount()

	var meta *Metadata
	switch {
	case files.MetadataJSON != nil:
		m, err := ParseMetadataJSON(files.MetadataJSON)
		if err != nil {
			t.Warnings = append(t.Warnings, err.Error())
		} else {
			meta = &m
		}
	case files.MetaYAML != nil:
		m, err := ParseMetadataYAML(files.MetaYAML)
		if err != nil {
			t.Warnings = append(t.Warnings, err.Error())
		} else {
			meta = &m
		}
	}

	specTitle, specDesc := specSummary(files.Spec)

	// Title.
	switch {
	case meta != nil && meta.Name != "":
		t.Title = meta.Name
	case entry != nil && entry.Title != "":
		t.Title = entry.Title
	case plan.Title != "":
		t.Title = plan.Title
	case specTitle != "":
		t.Title = specTitle
	default:
		t.Title = string(id)
	}

	// Attributes. Metadata wins over the index for every field it sets.
	if entry != nil {
		if entry.HasPriority {
			t.Priority = entry.Priority
		}
		t.Tags = entry.Tags
		t.Branch = entry.Branch
		t.Dependencies = entry.Dependencies
	}
	if meta != nil {
		if meta.HasPriority {
			t.Priority = meta.Priority
		}
		t.Type = meta.Type
		t.CreatedAt = meta.CreatedAt
		t.UpdatedAt = meta.UpdatedAt
		if len(meta.Tags) > 0 {
			t.Tags = meta.Tags
		}
		if meta.Branch != "" {
			t.Branch = meta.Branch
		}
		if len(meta.Dependencies) > 0 {
			t.Dependencies = meta.Dependencies
		}
		t.Description = meta.Description
	}
	if t.Description == "" {
		t.Description = specDesc
	}

	t.Status, t.StatusSource = inferStatus(t, plan, meta, entry)
	return t
}

func inferStatus(t model.Track, plan Plan, meta *Metadata, entry *IndexEntry) (model.Status, model.StatusSource) {
	if st := markerStatus(plan); st != model.StatusUnknown {
		return st, model.SourceMarker
	}
	if meta != nil && meta.Status != model.StatusUnknown {
		return meta.Status, model.SourceMetadata
	}
	if entry != nil {
		if entry.Status != model.StatusUnknown {
			return entry.Status, model.SourceIndex
		}
		if st, ok := entry.Checkbox.Status(); ok {
			return st, model.SourceIndex
		}
	}
	if len(t.Phases) == 0 {
		return model.StatusUnknown, model.SourceNone
	}
	allDone := t.TasksTotal > 0
	for _, p := range t.Phases {
		if !p.Completed() {
			allDone = false
			break
		}
	}
	if allDone {
		return model.StatusComplete, model.SourceDerived
	}
	return model.StatusActive, model.SourceDerived
}

// markerStatus resolves explicit heading markers. The title marker wins.
// Otherwise any blocked phase blocks the track, phases that are all marked
// complete complete it, and an active marker makes it active.
func markerStatus(plan Plan) model.Status {
	if plan.Marker != model.StatusUnknown {
		return plan.Marker
	}
	if len(plan.Phases) == 0 {
		return model.StatusUnknown
	}
	allComplete, anyActive := true, false
	for _, p := range plan.Phases {
		switch p.Marker {
		case model.StatusBlocked:
			return model.StatusBlocked
		case model.StatusActive:
			anyActive = true
		}
		if p.Marker != model.StatusComplete {
			allComplete = false
		}
	}
	switch {
	case allComplete:
		return model.StatusComplete
	case anyActive:
		return model.StatusActive
	default:
		return model.StatusUnknown
	}
}

// specSummary returns the spec's cleaned H1 and its first paragraph.
func specSummary(src []byte) (title, desc string) {
	if len(src) == 0 {
		return "", ""
	}
	doc := parseMarkdown(src)
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		switch v := n.(type) {
		case *ast.Heading:
			if v.Level == 1 && title == "" {
				_, h := statusMarker(plainText(v, src))
				title = cleanPlanTitle(h)
			}
		case *ast.Paragraph:
			if desc == "" {
				desc = plainText(v, src)
			}
		}
		if title != "" && desc != "" {
			break
		}
	}
	return title, desc
}

// ReadFiles loads a track directory's files from fsys. dir is slash-separated
// and relative to fsys. It returns ErrTrackGone when dir does not exist.
func ReadFiles(fsys fs.FS, dir string) (Files, error) {
	info, err := fs.Stat(fsys, dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Files{}, fmt.Errorf("%s: %w", dir, ErrTrackGone)
		}
		return Files{}, fmt.Errorf("reading track %s: %w", dir, err)
	}
	if !info.IsDir() {
		return Files{}, fmt.Errorf("%s: %w", dir, ErrTrackGone)
	}

	var files Files
	files.ModTime = info.ModTime()
	targets := map[string]*[]byte{
		PlanFile:         &files.Plan,
		SpecFile:         &files.Spec,
		MetadataJSONFile: &files.MetadataJSON,
		MetaYAMLFile:     &files.MetaYAML,
	}
	for _, name := range TrackFiles {
		p := path.Join(dir, name)
		fi, err := fs.Stat(fsys, p)
		if err != nil || fi.IsDir() {
			continue
		}
		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			continue
		}
		if data == nil {
			data = []byte{}
		}
		*targets[name] = data
		if fi.ModTime().After(files.ModTime) {
			files.ModTime = fi.ModTime()
		}
	}
	return files, nil
}

// Reader parses tracks below a tracks directory.
type Reader struct {
	fsys  fs.FS
	root  string
	index map[model.TrackID]IndexEntry
}

// NewReader returns a Reader over fsys whose entries live under root on disk.
// root is only used to fill Track.Path.
func NewReader(fsys fs.FS, root string) *Reader {
	return &Reader{fsys: fsys, root: root, index: map[model.TrackID]IndexEntry{}}
}

// SetIndex replaces the tracks.md entries used for titles and attributes.
func (r *Reader) SetIndex(entries []IndexEntry) {
	idx := make(map[model.TrackID]IndexEntry, len(entries))
	for _, e := range entries {
		idx[e.ID] = e
	}
	r.index = idx
}

// Index returns the entry for id, if tracks.md lists it.
func (r *Reader) Index(id model.TrackID) (IndexEntry, bool) {
	e, ok := r.index[id]
	return e, ok
}

// Parse reads and builds one track.
func (r *Reader) Parse(id model.TrackID) (model.Track, error) {
	files, err := ReadFiles(r.fsys, string(id))
	if err != nil {
		return model.Track{}, err
	}
	var entry *IndexEntry
	if e, ok := r.index[id]; ok {
		entry = &e
	}
	return Build(id, filepath.Join(r.root, string(id)), files, entry), nil
}
