// Package testutil provides deterministic track fixtures and the helpers to
// write them to disk as a conductor directory.
package testutil

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/vanderheijden86/conductor-dashboard/pkg/model"
)

// GeneratorConfig controls track generation.
type GeneratorConfig struct {
	Seed          int64          // Random seed for determinism (0 = use current time)
	IDPrefix      string         // Prefix for track IDs (default: "track")
	BaseTime      time.Time      // LastUpdated of the first track (default: fixed time)
	StatusMix     []model.Status // Status distribution (nil = all active)
	MaxPhases     int            // Upper bound on phases per track (default: 3)
	MaxTasks      int            // Upper bound on tasks per phase (default: 4)
	WithSubtasks  bool           // Nest subtasks under some tasks
	IncludeLabels bool           // Generate tags
}

// DefaultConfig returns a config suitable for most tests.
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		Seed:      42,
		IDPrefix:  "track",
		BaseTime:  time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC),
		StatusMix: []model.Status{model.StatusActive},
		MaxPhases: 3,
		MaxTasks:  4,
	}
}

// Generator produces tracks whose status is consistent with their tasks, so
// that writing them with PlanMarkdown and parsing them back yields the same
// status and progress.
type Generator struct {
	cfg GeneratorConfig
	rng *rand.Rand
}

// New creates a Generator with the given config.
func New(cfg GeneratorConfig) *Generator {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if cfg.BaseTime.IsZero() {
		cfg.BaseTime = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	}
	if cfg.IDPrefix == "" {
		cfg.IDPrefix = "track"
	}
	if len(cfg.StatusMix) == 0 {
		cfg.StatusMix = []model.Status{model.StatusActive}
	}
	if cfg.MaxPhases <= 0 {
		cfg.MaxPhases = 3
	}
	if cfg.MaxTasks <= 0 {
		cfg.MaxTasks = 4
	}
	return &Generator{cfg: cfg, rng: rand.New(rand.NewSource(seed))}
}

// NewDefault creates a Generator with default config.
func NewDefault() *Generator {
	return New(DefaultConfig())
}

var labelPool = []string{"backend", "frontend", "infra", "data", "urgent", "api"}

// Tracks generates n tracks with IDs <prefix>_<NNN>. Track i was last
// updated i hours after BaseTime.
func (g *Generator) Tracks(n int) []model.Track {
	out := make([]model.Track, n)
	for i := range out {
		out[i] = g.Track(i)
	}
	return out
}

// Track generates the i-th track.
func (g *Generator) Track(i int) model.Track {
	status := g.cfg.StatusMix[g.rng.Intn(len(g.cfg.StatusMix))]
	id := model.TrackID(fmt.Sprintf("%s_%03d", g.cfg.IDPrefix, i))
	t := model.Track{
		ID:          id,
		Title:       fmt.Sprintf("Track %03d", i),
		Priority:    model.PriorityMedium,
		LastUpdated: g.cfg.BaseTime.Add(time.Duration(i) * time.Hour),
	}

	nPhases := 1 + g.rng.Intn(g.cfg.MaxPhases)
	for p := 0; p < nPhases; p++ {
		phase := model.Phase{Name: fmt.Sprintf("Phase %d: Step %d", p+1, p+1)}
		nTasks := 1 + g.rng.Intn(g.cfg.MaxTasks)
		for k := 0; k < nTasks; k++ {
			task := model.Task{Text: fmt.Sprintf("Task %d.%d", p+1, k+1)}
			if g.cfg.WithSubtasks && g.rng.Intn(3) == 0 {
				task.Subtasks = []model.Task{
					{Text: fmt.Sprintf("Sub %d.%d.1", p+1, k+1)},
					{Text: fmt.Sprintf("Sub %d.%d.2", p+1, k+1)},
				}
			}
			phase.Tasks = append(phase.Tasks, task)
		}
		t.Phases = append(t.Phases, phase)
	}

	switch status {
	case model.StatusComplete:
		for p := range t.Phases {
			checkAll(t.Phases[p].Tasks, true)
		}
	case model.StatusBlocked:
		t.Phases[len(t.Phases)-1].Marker = model.StatusBlocked
		g.checkSome(&t)
	default:
		g.checkSome(&t)
	}

	if g.cfg.IncludeLabels {
		t.Tags = []string{labelPool[g.rng.Intn(len(labelPool))]}
	}

	t.Recount()
	t.Status = status
	if t.Status == model.StatusUnknown {
		t.Status = model.StatusActive
	}
	t.StatusSource = model.SourceDerived
	if status == model.StatusBlocked {
		t.StatusSource = model.SourceMarker
	}
	return t
}

// checkSome checks a random prefix of the tasks but always leaves the last
// leaf unchecked, so the track never derives to Complete.
func (g *Generator) checkSome(t *model.Track) {
	var leaves []*model.Task
	for p := range t.Phases {
		leaves = collectLeaves(t.Phases[p].Tasks, leaves)
	}
	n := g.rng.Intn(len(leaves))
	for _, l := range leaves[:n] {
		l.Checked = true
	}
	// Parents of fully checked subtasks are checked too, as authors do.
	for p := range t.Phases {
		for k := range t.Phases[p].Tasks {
			task := &t.Phases[p].Tasks[k]
			if len(task.Subtasks) > 0 {
				task.Checked = task.Subtasks[0].Done() && task.Subtasks[1].Done()
			}
		}
	}
}

func collectLeaves(tasks []model.Task, acc []*model.Task) []*model.Task {
	for i := range tasks {
		if len(tasks[i].Subtasks) == 0 {
			acc = append(acc, &tasks[i])
			continue
		}
		acc = collectLeaves(tasks[i].Subtasks, acc)
	}
	return acc
}

func checkAll(tasks []model.Task, v bool) {
	for i := range tasks {
		tasks[i].Checked = v
		checkAll(tasks[i].Subtasks, v)
	}
}

// PlanMarkdown renders t as a plan.md document the parser understands.
func PlanMarkdown(t model.Track) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", t.Title)
	for _, p := range t.Phases {
		sb.WriteString("## ")
		sb.WriteString(p.Name)
		if p.Marker != model.StatusUnknown {
			fmt.Fprintf(&sb, " (%s)", strings.ToUpper(p.Marker.String()))
		}
		sb.WriteString("\n\n")
		writeTasks(&sb, p.Tasks, 0)
		sb.WriteString("\n")
	}
	return sb.String()
}

func writeTasks(sb *strings.Builder, tasks []model.Task, depth int) {
	for _, task := range tasks {
		box := " "
		if task.Checked {
			box = "x"
		}
		fmt.Fprintf(sb, "%s- [%s] %s\n", strings.Repeat("  ", depth), box, task.Text)
		writeTasks(sb, task.Subtasks, depth+1)
	}
}

// Named returns tracks with the given titles, IDs derived from the titles.
// Handy for search tests.
func Named(titles ...string) []model.Track {
	out := make([]model.Track, len(titles))
	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	for i, title := range titles {
		id := strings.ToLower(strings.ReplaceAll(title, " ", "_"))
		out[i] = model.Track{
			ID:          model.TrackID(fmt.Sprintf("%s_%03d", id, i)),
			Title:       title,
			Status:      model.StatusActive,
			Priority:    model.PriorityMedium,
			LastUpdated: base.Add(time.Duration(i) * time.Hour),
		}
		out[i].Recount()
	}
	return out
}

// WithStatus returns n tracks with the given status, IDs <prefix>_<NNN>.
func WithStatus(prefix string, status model.Status, n int) []model.Track {
	g := New(GeneratorConfig{Seed: 7, IDPrefix: prefix, StatusMix: []model.Status{status}})
	return g.Tracks(n)
}
