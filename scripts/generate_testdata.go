//go:build ignore

// generate_testdata.go creates conductor directories for benchmarking and demos.
// Usage: go run scripts/generate_testdata.go [output-dir]
//
// Creates:
//   <output-dir>/small/conductor   (20 tracks)
//   <output-dir>/medium/conductor  (200 tracks)
//   <output-dir>/large/conductor   (1000 tracks)
//
// The default output dir is testdata/bench.
package main

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/conductor-dashboard/pkg/model"
	"github.com/vanderheijden86/conductor-dashboard/pkg/testutil"
)

type datasetSpec struct {
	name    string
	size    int
	maxDeps int
}

var datasets = []datasetSpec{
	{"small", 20, 2},
	{"medium", 200, 3},
	{"large", 1000, 3},
}

type metadata struct {
	Name         string          `json:"name"`
	Priority     string          `json:"priority"`
	Tags         []string        `json:"tags,omitempty"`
	Dependencies []model.TrackID `json:"dependencies,omitempty"`
	Description  string          `json:"description"`
}

var descriptions = []string{
	"Rework the session token lifecycle and key rotation.",
	"Ship the versioned public API with pagination.",
	"Move the nightly batch jobs onto the new scheduler.",
	"Replace the legacy settings screens.",
}

func main() {
	outputDir := "testdata/bench"
	if len(os.Args) > 1 {
		outputDir = os.Args[1]
	}

	for _, ds := range datasets {
		fmt.Printf("Generating %s dataset (%d tracks)...\n", ds.name, ds.size)
		root := filepath.Join(outputDir, ds.name, "conductor")
		if err := os.RemoveAll(root); err != nil {
			fail(err)
		}

		cfg := testutil.DefaultConfig()
		cfg.Seed = int64(ds.size) // reproducible per size
		cfg.IDPrefix = "bench"
		cfg.StatusMix = []model.Status{model.StatusActive, model.StatusActive, model.StatusBlocked, model.StatusComplete}
		cfg.WithSubtasks = true
		cfg.IncludeLabels = true
		tracks := testutil.New(cfg).Tracks(ds.size)

		rng := rand.New(rand.NewSource(cfg.Seed))
		edges := 0
		for i, tr := range tracks {
			dir := filepath.Join(root, "tracks", string(tr.ID))
			if err := os.MkdirAll(dir, 0o755); err != nil {
				fail(err)
			}
			plan := filepath.Join(dir, "plan.md")
			if err := os.WriteFile(plan, []byte(testutil.PlanMarkdown(tr)), 0o644); err != nil {
				fail(err)
			}

			// Only depend on earlier tracks so the graph stays acyclic.
			var deps []model.TrackID
			if i > 0 {
				for n := rng.Intn(ds.maxDeps + 1); n > 0; n-- {
					dep := tracks[rng.Intn(i)].ID
					if !contains(deps, dep) {
						deps = append(deps, dep)
					}
				}
			}
			edges += len(deps)

			meta, err := json.MarshalIndent(metadata{
				Name:         tr.Title,
				Priority:     []string{"critical", "high", "medium", "low"}[rng.Intn(4)],
				Tags:         tr.Tags,
				Dependencies: deps,
				Description:  descriptions[i%len(descriptions)],
			}, "", "  ")
			if err != nil {
				fail(err)
			}
			if err := os.WriteFile(filepath.Join(dir, "metadata.json"), meta, 0o644); err != nil {
				fail(err)
			}
			if err := os.Chtimes(plan, tr.LastUpdated, tr.LastUpdated); err != nil {
				fail(err)
			}
		}

		fmt.Printf("  Written %s (%d edges)\n", root, edges)
	}

	fmt.Println("\nDone! Try: conductor-dashboard --conductor-dir", filepath.Join(outputDir, "medium", "conductor"))
}

func contains(ids []model.TrackID, id model.TrackID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "generate_testdata: %v\n", err)
	os.Exit(1)
}
