package sweep

import (
	"fmt"
	"strings"

	"gossip-sim/pkg/logic"
	"gossip-sim/pkg/topology"
)

// replaced by the description of each output file
const descriptionMarker = "[DESCRIPTION]"

// everything the header of a result file documents
type HeaderData struct {
	Info         logic.HeaderInfo
	Sources      int
	Topology     *topology.Topology
	Replications int
	Steps        float64
	Suppression  logic.Suppressor
}

func headerLine(b *strings.Builder, key, format string, args ...interface{}) {
	fmt.Fprintf(b, "# %-15s: %s\n", key, fmt.Sprintf(format, args...))
}

// FormatHeader returns the header with the description marker left in place
func FormatHeader(h *HeaderData) string {
	var b strings.Builder
	topo := h.Topology

	fmt.Fprintf(&b, "# %s: %s\n\n", h.Info.Title, descriptionMarker)
	if h.Info.Sources {
		headerLine(&b, "sources", "%d", h.Sources)
	}
	headerLine(&b, "mode", "%s", topo.Type)
	headerLine(&b, "graphs", "%d", len(topo.Graphs))
	for _, f := range topo.Fields {
		headerLine(&b, f.Key, "%s", f.Value)
	}
	headerLine(&b, "nodes", "%d", topo.Nodes)

	if topo.Diameter != nil {
		headerLine(&b, "dimensions", "%d", topo.Dimensions)
		headerLine(&b, "diameter", "%d", *topo.Diameter)
	} else {
		d, partitioned := meanDiameter(topo.Graphs)
		info := ""
		if partitioned {
			info = " (partitioned!)"
		}
		headerLine(&b, "mean diameter", "%d%s", int(d), info)
	}

	if topo.Degree != nil {
		headerLine(&b, "degree", "%f", *topo.Degree)
	}
	headerLine(&b, "mean degree", "%f", meanDegree(topo.Graphs))
	headerLine(&b, "replications", "%d", h.Replications)
	headerLine(&b, "steps", "%f", h.Steps)

	suppression := h.Suppression
	if suppression == nil {
		suppression = logic.NoSuppression{}
	}
	if params := suppression.Params(); len(params) > 0 {
		headerLine(&b, "suppression", "%s, params=[%s]", suppression.Mode(), logic.FormatParams(params))
	} else {
		headerLine(&b, "suppression", "%s", suppression.Mode())
		b.WriteString("\n")
	}

	b.WriteString("\n# column 0: number of run (ignore or use as key)\n")
	for i, c := range h.Info.Columns {
		fmt.Fprintf(&b, "# column %d: %s\n", i+1, c)
	}
	b.WriteString("\n")
	return b.String()
}

// Describe fills the description marker in
func Describe(header, description string) string {
	return strings.Replace(header, descriptionMarker, description, 1)
}

func meanDiameter(graphs []*topology.Graph) (float64, bool) {
	if len(graphs) == 0 {
		return 0, false
	}
	total := 0
	partitioned := false
	for _, g := range graphs {
		d, p := g.Diameter()
		total += d
		partitioned = partitioned || p
	}
	return float64(total) / float64(len(graphs)), partitioned
}

func meanDegree(graphs []*topology.Graph) float64 {
	if len(graphs) == 0 {
		return 0
	}
	total := 0.0
	for _, g := range graphs {
		total += g.MeanDegree()
	}
	return total / float64(len(graphs))
}
