package sweep

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	model "gossip-sim/pkg/datamodel"
	"gossip-sim/pkg/logic"
	"gossip-sim/pkg/metrics"
	"gossip-sim/pkg/stats"
	"gossip-sim/pkg/topology"

	"github.com/prometheus/client_golang/prometheus/testutil"
	logger "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ring(n int) *topology.Graph {
	g := topology.NewGraph(false, false)
	for i := 0; i < n; i++ {
		g.AddEdge(fmt.Sprint(i), fmt.Sprint((i+1)%n), 1.0)
	}
	return g
}

func quietLogger() *logger.Logger {
	log := logger.New()
	log.SetLevel(logger.WarnLevel)
	return log
}

func TestValues(t *testing.T) {
	t.Run("even step", func(t *testing.T) {
		v, err := Values(0.25)
		require.NoError(t, err)
		assert.Equal(t, []float64{0.25, 0.5, 0.75, 1.0}, v)
	})

	t.Run("uneven step is clipped", func(t *testing.T) {
		v, err := Values(0.3)
		require.NoError(t, err)
		assert.Equal(t, []float64{0.3, 0.6, 0.9, 1.0}, v)
	})

	t.Run("small step", func(t *testing.T) {
		v, err := Values(0.01)
		require.NoError(t, err)
		assert.Len(t, v, 100)
		assert.Equal(t, 1.0, v[len(v)-1])
		for _, x := range v {
			assert.LessOrEqual(t, x, 1.0)
		}
	})

	t.Run("idempotent", func(t *testing.T) {
		a, _ := Points(0.07, Full)
		b, _ := Points(0.07, Full)
		assert.Equal(t, a, b)
	})

	t.Run("invalid", func(t *testing.T) {
		for _, s := range []float64{0, -0.1, 1.5} {
			_, err := Values(s)
			assert.ErrorIs(t, err, ErrInvalidStep)
		}
	})
}

func TestPoints(t *testing.T) {
	full, err := Points(0.5, Full)
	require.NoError(t, err)
	assert.Equal(t, []logic.Point{{Ps: 0.5, Pb: 0.5}, {Ps: 0.5, Pb: 1}, {Ps: 1, Pb: 0.5}, {Ps: 1, Pb: 1}}, full)

	fixed, err := Points(0.5, ModeFor("dw"))
	require.NoError(t, err)
	assert.Equal(t, []logic.Point{{Ps: 0.5, Pb: 1}, {Ps: 1, Pb: 1}}, fixed)

	assert.Equal(t, Full, ModeFor(""))
}

func TestBuildTasks(t *testing.T) {
	graphs := []*topology.Graph{ring(3), ring(4)}
	points := []logic.Point{{Ps: 0.5, Pb: 1}, {Ps: 1, Pb: 1}}
	tasks := BuildTasks(graphs, points)
	require.Len(t, tasks, 4)
	for i, task := range tasks {
		assert.Equal(t, i, task.Run)
		assert.Same(t, graphs[i%2], task.Graph)
		assert.Equal(t, points[i/2], task.Point)
	}
}

func TestHeader(t *testing.T) {
	degree := 2.0
	topo := &topology.Topology{Type: "random", Graphs: []*topology.Graph{ring(10)}, Nodes: 10, Degree: &degree}
	header := FormatHeader(&HeaderData{
		Info:         (&logic.Percolation{}).Header(),
		Topology:     topo,
		Replications: 5,
		Steps:        0.1,
		Suppression:  logic.NoSuppression{},
	})

	expected := `# Combined bond-site percolation process: [DESCRIPTION]

# mode           : random
# graphs         : 1
# nodes          : 10
# mean diameter  : 5
# degree         : 2.000000
# mean degree    : 2.000000
# replications   : 5
# steps          : 0.100000
# suppression    : none


# column 0: number of run (ignore or use as key)
# column 1: Site occupation probability
# column 2: Bond occupation probability
# column 3: Mean cluster size calculated over all replications
# column 4: Calculated standard deviation of the cluster sizes
# column 5: Calculated 95% confidence interval (0.0 if missing)
# column 6: Number of data points/replications

`
	assert.Equal(t, expected, header)
	assert.True(t, strings.HasPrefix(Describe(header, "maximum cluster size"), "# Combined bond-site percolation process: maximum cluster size\n"))

	t.Run("gossip on a grid", func(t *testing.T) {
		diameter := 6
		grid := &topology.Topology{Type: "grid", Graphs: []*topology.Graph{topology.Lattice(4, 2)}, Nodes: 16, Dimensions: 2, Diameter: &diameter}
		s, _ := logic.ParseSuppression("linear", []float64{4})
		header := FormatHeader(&HeaderData{
			Info:         (&logic.GossipProcess{}).Header(),
			Sources:      3,
			Topology:     grid,
			Replications: 2,
			Steps:        0.5,
			Suppression:  s,
		})
		assert.Contains(t, header, "# sources        : 3\n# mode           : grid\n")
		assert.Contains(t, header, "# dimensions     : 2\n# diameter       : 6\n")
		assert.Contains(t, header, "# suppression    : linear, params=[4]\n\n# column 0")
		assert.Contains(t, header, "# column 6: Number of data points/replications*sources\n\n")
	})

	t.Run("partitioned", func(t *testing.T) {
		g := ring(4)
		g.AddEdge("x", "y", 1)
		header := FormatHeader(&HeaderData{
			Info:     (&logic.Percolation{}).Header(),
			Topology: &topology.Topology{Type: "files", Graphs: []*topology.Graph{g}, Nodes: 6},
		})
		assert.Contains(t, header, "# mean diameter  : 2 (partitioned!)\n")
	})
}

func TestRecord(t *testing.T) {
	r := &Record{Run: 7, Point: logic.Point{Ps: 0.1, Pb: 1}, Summary: stats.Summary{Mean: 0.5, Std: 0.5, Conf95: 0.692965}, Count: 2}
	assert.Equal(t, "RUN7: 0.100000, 1.000000, 0.500000, 0.500000, 0.692965, 2", r.String())

	r.Extra = &stats.Summary{Mean: 3, Std: 1, Conf95: 0.2}
	line := r.String()
	assert.Equal(t, "RUN7: 0.100000, 1.000000, 0.500000, 0.500000, 0.692965, 2, 3.000000, 1.000000, 0.200000", line)

	parsed, err := ParseRecord(line)
	require.NoError(t, err)
	assert.Equal(t, 7, parsed.Run)
	assert.Equal(t, 2, parsed.Count)
	assert.InDelta(t, 0.692965, parsed.Summary.Conf95, 1e-9)
	require.NotNil(t, parsed.Extra)
	assert.InDelta(t, 3.0, parsed.Extra.Mean, 1e-9)

	for _, bad := range []string{"RUN: 1, 2", "foo", "RUN1: 1, 2, 3", "RUN1: a, 2, 3, 4, 5, 6"} {
		_, err := ParseRecord(bad)
		assert.ErrorIs(t, err, ErrMalformedRecord, bad)
	}
}

// sorted data lines of a result file
func dataLines(t *testing.T, path string) []string {
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var lines []string
	for _, l := range strings.Split(string(data), "\n") {
		if strings.HasPrefix(l, "RUN") {
			lines = append(lines, l)
		}
	}
	sort.Strings(lines)
	return lines
}

func simulateConfig(dir string, process string, workers int) *model.Config {
	config := model.MakeDefaultConfig()
	config.Simulation.Process = process
	config.Simulation.Outdir = dir
	config.Simulation.Processes = workers
	config.Simulation.Replications = 4
	config.Simulation.Steps = 0.5
	config.Simulation.Sources = 2
	return config
}

func TestSimulate(t *testing.T) {
	logic.ProcessInit(quietLogger())
	topo := &topology.Topology{Type: "random", Graphs: []*topology.Graph{ring(8), ring(6)}, Nodes: 8}

	t.Run("percolation writes both files", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, Simulate(simulateConfig(dir, "percolation", 2), topo, quietLogger(), nil))

		for _, file := range []string{"results-max", "results-mean"} {
			records, err := ReadRecords(filepath.Join(dir, file))
			require.NoError(t, err)
			assert.Len(t, records, 8)
		}
		// ps = pb = 1 keeps the rings intact
		records, _ := ReadRecords(filepath.Join(dir, "results-max"))
		for _, r := range records {
			if r.Point.Ps == 1 && r.Point.Pb == 1 {
				assert.Equal(t, 1.0, r.Summary.Mean)
			}
		}
	})

	t.Run("deterministic for any worker count", func(t *testing.T) {
		one, four := t.TempDir(), t.TempDir()
		require.NoError(t, Simulate(simulateConfig(one, "gossip", 1), topo, quietLogger(), nil))
		require.NoError(t, Simulate(simulateConfig(four, "gossip", 4), topo, quietLogger(), nil))

		a := dataLines(t, filepath.Join(one, "results-mean"))
		b := dataLines(t, filepath.Join(four, "results-mean"))
		assert.Len(t, a, 8)
		assert.Equal(t, a, b)
	})

	t.Run("too many sources", func(t *testing.T) {
		dir := t.TempDir()
		config := simulateConfig(dir, "gossip", 1)
		config.Simulation.Sources = 7
		err := Simulate(config, topo, quietLogger(), nil)
		assert.ErrorIs(t, err, logic.ErrTooManySources)
		_, statErr := os.Stat(filepath.Join(dir, "results-mean"))
		assert.True(t, os.IsNotExist(statErr))
	})

	t.Run("resume skips completed runs", func(t *testing.T) {
		dir := t.TempDir()
		config := simulateConfig(dir, "percolation", 2)
		require.NoError(t, Simulate(config, topo, quietLogger(), nil))

		// drop the last line of both files, as a killed run would
		for _, file := range []string{"results-max", "results-mean"} {
			path := filepath.Join(dir, file)
			data, err := os.ReadFile(path)
			require.NoError(t, err)
			lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
			require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines[:len(lines)-1], "\n")+"\n"), 0o644))
		}

		m := metrics.NewRegistry()
		config.Simulation.Resume = true
		require.NoError(t, Simulate(config, topo, quietLogger(), m))
		assert.Equal(t, 1.0, testutil.ToFloat64(m.TasksTotal.WithLabelValues("percolation", "ok")))

		for _, file := range []string{"results-max", "results-mean"} {
			records, err := ReadRecords(filepath.Join(dir, file))
			require.NoError(t, err)
			assert.Len(t, records, 8)
		}
	})

	t.Run("resume completes a partly written run", func(t *testing.T) {
		dir := t.TempDir()
		config := simulateConfig(dir, "percolation", 2)
		require.NoError(t, Simulate(config, topo, quietLogger(), nil))

		// the run reached results-max but not results-mean
		path := filepath.Join(dir, "results-mean")
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
		require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines[:len(lines)-1], "\n")+"\n"), 0o644))

		m := metrics.NewRegistry()
		config.Simulation.Resume = true
		require.NoError(t, Simulate(config, topo, quietLogger(), m))
		assert.Equal(t, 0.0, testutil.ToFloat64(m.RecordsWrittenTotal.WithLabelValues("results-max")))
		assert.Equal(t, 1.0, testutil.ToFloat64(m.RecordsWrittenTotal.WithLabelValues("results-mean")))

		for _, file := range []string{"results-max", "results-mean"} {
			records, err := ReadRecords(filepath.Join(dir, file))
			require.NoError(t, err)
			require.Len(t, records, 8, file)
			runs := map[int]bool{}
			for _, r := range records {
				assert.False(t, runs[r.Run], "run %d written twice to %s", r.Run, file)
				runs[r.Run] = true
			}
		}
	})
}

// panics at ps=1, pb=0.5
type flakyProcess struct {
	logic.Percolation
}

func (f *flakyProcess) Evaluate(g *topology.Graph, pt logic.Point, params *logic.Params, rng *model.Rand) []logic.Outcome {
	if pt.Ps == 1 && pt.Pb == 0.5 {
		panic("boom")
	}
	return f.Percolation.Evaluate(g, pt, params, rng)
}

func TestDispatcherIsolatesFailures(t *testing.T) {
	dir := t.TempDir()
	sink := NewSink(dir)
	process := &flakyProcess{}
	params := &logic.Params{Replications: 2, Suppression: logic.NoSuppression{}}
	points, err := Points(0.5, Full)
	require.NoError(t, err)

	m := metrics.NewRegistry()
	d := NewDispatcher(process, params, sink, 3, 1, quietLogger())
	d.SetMetrics(m)
	err = d.Run(BuildTasks([]*topology.Graph{ring(5)}, points))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")

	records, err := ReadRecords(filepath.Join(dir, "results-max"))
	require.NoError(t, err)
	assert.Len(t, records, 3)
	for _, r := range records {
		assert.NotEqual(t, 2, r.Run)
	}
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TasksTotal.WithLabelValues("percolation", "failed")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.RecordsWrittenTotal.WithLabelValues("results-mean")))
}

func TestSinkErrors(t *testing.T) {
	dir := t.TempDir()
	// a directory where the result file should be
	require.NoError(t, os.Mkdir(filepath.Join(dir, "results-mean"), 0o755))

	sink := NewSink(dir)
	err := sink.Append(map[string]string{"results-mean": "RUN0: 1, 1, 1, 0, 0, 1"}, []string{"results-mean"})
	assert.Error(t, err)
}
