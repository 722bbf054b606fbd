// Package analysis computes cross-track facts: the dependency graph between
// tracks and aggregate progress statistics.
package analysis

import (
	"slices"
	"sort"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/network"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/vanderheijden86/conductor-dashboard/pkg/model"
)

// GraphStats holds the results of dependency analysis.
type GraphStats struct {
	NodeCount int
	EdgeCount int

	// InDegree counts the tracks that depend on a track; OutDegree counts
	// the dependencies it declares on known tracks.
	InDegree  map[model.TrackID]int
	OutDegree map[model.TrackID]int

	// TopologicalOrder lists dependencies before their dependents. It is nil
	// when the graph has a cycle.
	TopologicalOrder []model.TrackID

	// Cycles are the strongly connected components with more than one
	// track, plus tracks that depend on themselves. Each is sorted by id.
	Cycles [][]model.TrackID

	// PageRank scores flow from dependents to dependencies, so tracks that
	// gate a lot of work score high.
	PageRank map[model.TrackID]float64

	// Missing maps a track to the dependencies it names that do not exist.
	Missing map[model.TrackID][]model.TrackID
}

// Analyzer encapsulates the dependency graph. An edge u -> v means track u
// depends on track v.
type Analyzer struct {
	g        *simple.DirectedGraph
	idToNode map[model.TrackID]int64
	nodeToID map[int64]model.TrackID
	tracks   map[model.TrackID]model.Track

	selfLoops []model.TrackID
	missing   map[model.TrackID][]model.TrackID
}

// NewAnalyzer builds the graph from the tracks' Dependencies.
func NewAnalyzer(tracks []model.Track) *Analyzer {
	g := simple.NewDirectedGraph()
	a := &Analyzer{
		g:        g,
		idToNode: make(map[model.TrackID]int64, len(tracks)),
		nodeToID: make(map[int64]model.TrackID, len(tracks)),
		tracks:   make(map[model.TrackID]model.Track, len(tracks)),
		missing:  make(map[model.TrackID][]model.TrackID),
	}

	for _, t := range tracks {
		if _, dup := a.idToNode[t.ID]; dup {
			continue
		}
		a.tracks[t.ID] = t
		n := g.NewNode()
		g.AddNode(n)
		a.idToNode[t.ID] = n.ID()
		a.nodeToID[n.ID()] = t.ID
	}

	for _, t := range tracks {
		u := a.idToNode[t.ID]
		for _, dep := range t.Dependencies {
			if dep == t.ID {
				// simple.DirectedGraph rejects self edges.
				a.selfLoops = append(a.selfLoops, t.ID)
				continue
			}
			v, ok := a.idToNode[dep]
			if !ok {
				a.missing[t.ID] = append(a.missing[t.ID], dep)
				continue
			}
			g.SetEdge(g.NewEdge(g.Node(u), g.Node(v)))
		}
	}
	return a
}

// Analyze computes every graph metric. Graphs here are small (one node per
// track directory) so nothing is deferred or sampled.
func (a *Analyzer) Analyze() GraphStats {
	stats := GraphStats{
		NodeCount: len(a.tracks),
		EdgeCount: a.g.Edges().Len(),
		InDegree:  make(map[model.TrackID]int, len(a.tracks)),
		OutDegree: make(map[model.TrackID]int, len(a.tracks)),
		PageRank:  make(map[model.TrackID]float64, len(a.tracks)),
		Missing:   a.missing,
	}

	nodes := a.g.Nodes()
	for nodes.Next() {
		n := nodes.Node()
		id := a.nodeToID[n.ID()]
		stats.InDegree[id] = a.g.To(n.ID()).Len()
		stats.OutDegree[id] = a.g.From(n.ID()).Len()
	}

	if sorted, err := topo.Sort(a.g); err == nil && len(a.selfLoops) == 0 {
		stats.TopologicalOrder = make([]model.TrackID, 0, len(sorted))
		for i := len(sorted) - 1; i >= 0; i-- {
			stats.TopologicalOrder = append(stats.TopologicalOrder, a.nodeToID[sorted[i].ID()])
		}
	}

	stats.Cycles = a.cycles()

	if stats.NodeCount > 0 {
		for id, score := range network.PageRank(a.g, 0.85, 1e-6) {
			stats.PageRank[a.nodeToID[id]] = score
		}
	}
	return stats
}

func (a *Analyzer) cycles() [][]model.TrackID {
	var out [][]model.TrackID
	for _, scc := range topo.TarjanSCC(a.g) {
		if len(scc) < 2 {
			continue
		}
		out = append(out, a.ids(scc))
	}
	for _, id := range a.selfLoops {
		out = append(out, []model.TrackID{id})
	}
	slices.SortFunc(out, slices.Compare[[]model.TrackID])
	return slices.CompactFunc(out, slices.Equal[[]model.TrackID])
}

func (a *Analyzer) ids(nodes []graph.Node) []model.TrackID {
	ids := make([]model.TrackID, 0, len(nodes))
	for _, n := range nodes {
		ids = append(ids, a.nodeToID[n.ID()])
	}
	slices.Sort(ids)
	return ids
}

// Dependents returns the tracks that depend on id, sorted.
func (a *Analyzer) Dependents(id model.TrackID) []model.TrackID {
	n, ok := a.idToNode[id]
	if !ok {
		return nil
	}
	return a.ids(graph.NodesOf(a.g.To(n)))
}

// OpenBlockers returns the dependencies of id that are not complete yet.
// Unknown dependency ids count as open.
func (a *Analyzer) OpenBlockers(id model.TrackID) []model.TrackID {
	t, ok := a.tracks[id]
	if !ok {
		return nil
	}
	var open []model.TrackID
	for _, dep := range t.Dependencies {
		if dep == id {
			continue
		}
		if d, ok := a.tracks[dep]; ok && d.Status == model.StatusComplete {
			continue
		}
		open = append(open, dep)
	}
	return open
}

// TopBlockers returns up to n tracks that something depends on, ranked by
// PageRank and then by dependent count, ties broken by id.
func (s GraphStats) TopBlockers(n int) []model.TrackID {
	var ids []model.TrackID
	for id, in := range s.InDegree {
		if in > 0 {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool {
		pi, pj := s.PageRank[ids[i]], s.PageRank[ids[j]]
		if pi != pj {
			return pi > pj
		}
		if s.InDegree[ids[i]] != s.InDegree[ids[j]] {
			return s.InDegree[ids[i]] > s.InDegree[ids[j]]
		}
		return ids[i] < ids[j]
	})
	if n >= 0 && len(ids) > n {
		ids = ids[:n]
	}
	return ids
}

// HasCycles reports whether any dependency cycle exists.
func (s GraphStats) HasCycles() bool { return len(s.Cycles) > 0 }
