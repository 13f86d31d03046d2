package planner

import (
	"math"

	"github.com/avnav/fleetsim/internal/geo"
	"github.com/avnav/fleetsim/pkg/core"
	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"
)

// FindPathDijkstra is a reference implementation that runs uniform-cost
// search over the whole lattice anchored at the origin, using the same move
// rules and edge costs as FindPath. It is much slower and exists to check
// the A* search.
func (p *Planner) FindPathDijkstra(req Request) []core.Position {
	res, ok := p.dijkstra(req)
	if !ok {
		return nil
	}
	if res.path[0] != req.Start {
		res.path = append([]core.Position{req.Start}, res.path...)
	}
	return p.finish(res.path, req)
}

func (p *Planner) dijkstra(req Request) (searchResult, bool) {
	layout := p.Layout(req.Map)
	nx := int(math.Ceil(layout.Width / p.step))
	ny := int(math.Ceil(layout.Height / p.step))

	id := func(i, j int) int64 { return int64(i*ny + j) }
	at := func(id int64) core.Position {
		return core.Position{X: float64(int(id)/ny) * p.step, Y: float64(int(id)%ny) * p.step}
	}
	cell := func(v float64, n int) (int, bool) {
		i := int(math.Round(v / p.step))
		return i, i >= 0 && i < n
	}

	g := simple.NewWeightedDirectedGraph(0, math.Inf(1))
	for i := 0; i < nx; i++ {
		for j := 0; j < ny; j++ {
			from := core.Position{X: float64(i) * p.step, Y: float64(j) * p.step}
			if !geo.InBounds(from, layout.Width, layout.Height) {
				continue
			}
			if g.Node(id(i, j)) == nil {
				g.AddNode(simple.Node(id(i, j)))
			}
			for _, to := range p.neighbors(from, layout) {
				ti, okI := cell(to.X, nx)
				tj, okJ := cell(to.Y, ny)
				if !okI || !okJ {
					continue
				}
				g.SetWeightedEdge(g.NewWeightedEdge(
					simple.Node(id(i, j)),
					simple.Node(id(ti, tj)),
					p.edgeCost(from, to, req, layout),
				))
			}
		}
	}

	si, okI := cell(req.Start.X, nx)
	sj, okJ := cell(req.Start.Y, ny)
	if !okI || !okJ {
		return searchResult{}, false
	}
	start := g.Node(id(si, sj))
	if start == nil {
		return searchResult{}, false
	}
	shortest := path.DijkstraFrom(start, g)

	// Pick the goal-region node A* would pop first: lowest g + h.
	tolerance := goalTolerance * p.step
	bestID, bestF, bestG := int64(-1), math.Inf(1), 0.0
	nodes := g.Nodes()
	for nodes.Next() {
		nid := nodes.Node().ID()
		pos := at(nid)
		if !p.reachesGoal(pos, req.Goal, tolerance, layout) {
			continue
		}
		w := shortest.WeightTo(nid)
		if math.IsInf(w, 1) {
			continue
		}
		if f := w + geo.Heuristic(pos, req.Goal); f < bestF {
			bestID, bestF, bestG = nid, f, w
		}
	}
	if bestID < 0 {
		return searchResult{}, false
	}

	route, _ := shortest.To(bestID)
	out := make([]core.Position, len(route))
	for i, n := range route {
		out[i] = at(n.ID())
	}
	return searchResult{path: out, g: bestG, f: bestF}, true
}
