package tree

import "sort"

// FanoutBucket is one bucket in the child count histogram
type FanoutBucket struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// DepthLevel counts the nodes stored at one depth
type DepthLevel struct {
	Depth int `json:"depth"`
	Count int `json:"count"`
}

// CrowdedParent is a parent ranked by how many more children it can take
// before its next child path overflows the segment width.
type CrowdedParent struct {
	ID       string `json:"id"`
	Path     string `json:"path"`
	Label    string `json:"label"`
	Children int    `json:"children"`
	LastStep int64  `json:"last_step"`
	Headroom int64  `json:"headroom"`
}

// StatsReport describes the shape of one scope and its remaining path capacity
type StatsReport struct {
	Scope           string          `json:"scope"`
	TotalNodes      int             `json:"total_nodes"`
	Roots           int             `json:"roots"`
	Leaves          int             `json:"leaves"`
	MaxDepth        int             `json:"max_depth"`
	DepthHeadroom   int             `json:"depth_headroom"`
	RootHeadroom    int64           `json:"root_headroom"`
	DepthHistogram  []DepthLevel    `json:"depth_histogram"`
	FanoutHistogram []FanoutBucket  `json:"fanout_histogram"`
	Crowded         []CrowdedParent `json:"crowded"`
	Fingerprint     string          `json:"fingerprint"`
}

// ComputeStats summarizes depth and fan-out of a snapshot. Steps are never
// reused, so headroom is measured from the last child's step rather than the
// child count: deleted siblings still consume their slot.
func ComputeStats(snap *Snapshot, topN int) *StatsReport {
	codec := snap.codec
	report := &StatsReport{
		Scope:           snap.Scope,
		TotalNodes:      len(snap.Nodes),
		RootHeadroom:    codec.MaxSiblings(),
		DepthHeadroom:   codec.MaxDepth(),
		FanoutHistogram: defaultFanoutHistogram(),
		Fingerprint:     Fingerprint(snap),
	}
	if len(snap.Nodes) == 0 {
		return report
	}

	depths := make(map[int]int)
	lastRoot := ""
	var crowded []CrowdedParent
	for _, n := range snap.Nodes {
		if codec.ValidatePath(n.Path) != nil {
			continue
		}
		depth := codec.Depth(n.Path)
		depths[depth]++
		if depth > report.MaxDepth {
			report.MaxDepth = depth
		}
		if depth == 1 {
			report.Roots++
			lastRoot = n.Path
		}

		children := snap.Children[n.Path]
		report.FanoutHistogram[fanoutBucket(len(children))].Count++
		if len(children) == 0 {
			report.Leaves++
			continue
		}
		last, err := codec.Step(children[len(children)-1])
		if err != nil {
			continue
		}
		crowded = append(crowded, CrowdedParent{
			ID:       n.ID,
			Path:     n.Path,
			Label:    n.Label,
			Children: len(children),
			LastStep: last,
			Headroom: codec.MaxSiblings() - last,
		})
	}

	if lastRoot != "" {
		if step, err := codec.Step(lastRoot); err == nil {
			report.RootHeadroom = codec.MaxSiblings() - step
		}
	}
	report.DepthHeadroom = codec.MaxDepth() - report.MaxDepth

	for d := 1; d <= report.MaxDepth; d++ {
		report.DepthHistogram = append(report.DepthHistogram, DepthLevel{Depth: d, Count: depths[d]})
	}

	sort.Slice(crowded, func(i, j int) bool {
		if crowded[i].Headroom != crowded[j].Headroom {
			return crowded[i].Headroom < crowded[j].Headroom
		}
		return crowded[i].Path < crowded[j].Path
	})
	if len(crowded) > topN {
		crowded = crowded[:topN]
	}
	report.Crowded = crowded

	return report
}

func defaultFanoutHistogram() []FanoutBucket {
	return []FanoutBucket{
		{Label: "0"}, {Label: "1"}, {Label: "2-3"},
		{Label: "4-7"}, {Label: "8-15"}, {Label: "16-31"}, {Label: "32+"},
	}
}

func fanoutBucket(n int) int {
	switch {
	case n == 0:
		return 0
	case n == 1:
		return 1
	case n <= 3:
		return 2
	case n <= 7:
		return 3
	case n <= 15:
		return 4
	case n <= 31:
		return 5
	default:
		return 6
	}
}
