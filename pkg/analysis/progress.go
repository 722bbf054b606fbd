package analysis

import (
	"slices"

	"gonum.org/v1/gonum/stat"

	"github.com/vanderheijden86/conductor-dashboard/pkg/model"
)

// ProgressStats summarizes a set of tracks.
type ProgressStats struct {
	Tracks   int `json:"tracks"`
	Active   int `json:"active"`
	New      int `json:"new"` // active with nothing done yet, also counted in Active
	Blocked  int `json:"blocked"`
	Complete int `json:"complete"`
	Unknown  int `json:"unknown"`

	TasksTotal     int `json:"tasks_total"`
	TasksCompleted int `json:"tasks_completed"`
	// OverallPercent weighs every task equally, unlike MeanPercent which
	// weighs every track equally.
	OverallPercent int `json:"overall_percent"`

	MeanPercent   float64 `json:"mean_percent"`
	MedianPercent float64 `json:"median_percent"`
	StdDevPercent float64 `json:"stddev_percent"`
}

// Progress computes status counts and progress statistics.
func Progress(tracks []model.Track) ProgressStats {
	var ps ProgressStats
	ps.Tracks = len(tracks)
	pcts := make([]float64, 0, len(tracks))
	for _, t := range tracks {
		switch t.Status {
		case model.StatusActive:
			ps.Active++
			if t.TasksCompleted == 0 {
				ps.New++
			}
		case model.StatusBlocked:
			ps.Blocked++
		case model.StatusComplete:
			ps.Complete++
		default:
			ps.Unknown++
		}
		ps.TasksTotal += t.TasksTotal
		ps.TasksCompleted += t.TasksCompleted
		pcts = append(pcts, float64(t.ProgressPercent))
	}
	ps.OverallPercent = model.Percent(ps.TasksCompleted, ps.TasksTotal)

	if len(pcts) == 0 {
		return ps
	}
	slices.Sort(pcts)
	ps.MeanPercent = stat.Mean(pcts, nil)
	ps.MedianPercent = stat.Quantile(0.5, stat.LinInterp, pcts, nil)
	if len(pcts) > 1 {
		ps.StdDevPercent = stat.StdDev(pcts, nil)
	}
	return ps
}
