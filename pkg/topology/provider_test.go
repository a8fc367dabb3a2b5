package topology

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	model "gossip-sim/pkg/datamodel"

	logger "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *model.Config {
	config := model.MakeDefaultConfig()
	config.Topology.Nodes = 50
	config.Topology.Degree = 6
	config.Topology.Graphs = 2
	return config
}

func TestRegistry(t *testing.T) {
	ProviderInit(logger.New())
	assert.Equal(t, "db,file,geometric,grid,random", GetInstalledProviders())

	_, err := GetProvider("smallworld")
	assert.ErrorIs(t, err, ErrUnknownProvider)
}

func TestGenerators(t *testing.T) {
	ProviderInit(logger.New())

	t.Run("grid", func(t *testing.T) {
		config := testConfig()
		config.Topology.Provider = "grid"
		config.Topology.Nodes = 16
		topo, err := Build(config, model.NewRand(1, 0))
		require.NoError(t, err)
		assert.Equal(t, "grid", topo.Type)
		require.Len(t, topo.Graphs, 1)
		assert.Equal(t, 16, topo.Graphs[0].Len())
		assert.Equal(t, 6, *topo.Diameter)
	})

	t.Run("random", func(t *testing.T) {
		config := testConfig()
		config.Topology.Provider = "random"
		topo, err := Build(config, model.NewRand(1, 0))
		require.NoError(t, err)
		assert.Equal(t, "random", topo.Type)
		require.Len(t, topo.Graphs, 2)
		for _, g := range topo.Graphs {
			assert.Equal(t, 50, g.Len())
			assert.True(t, g.IsConnected())
		}
		assert.Equal(t, 6.0, *topo.Degree)
	})

	t.Run("random graphs are reproducible", func(t *testing.T) {
		a := ErdosRenyi(30, 0.2, model.NewRand(7, 0))
		b := ErdosRenyi(30, 0.2, model.NewRand(7, 0))
		assert.Equal(t, a.Edges(), b.Edges())
	})

	t.Run("random graph extremes", func(t *testing.T) {
		empty := ErdosRenyi(5, 0, model.NewRand(7, 0))
		assert.Equal(t, 5, empty.Len())
		assert.Empty(t, empty.Edges())

		complete := ErdosRenyi(6, 1, model.NewRand(7, 0))
		assert.Equal(t, 6, complete.Len())
		assert.Len(t, complete.Edges(), 15)

		// mean degrees above n-1 are capped at the complete graph
		assert.Len(t, ErdosRenyi(4, 3, model.NewRand(7, 0)).Edges(), 6)
	})

	t.Run("random graphs follow the stream", func(t *testing.T) {
		a := ErdosRenyi(40, 0.3, model.NewRand(7, 0))
		b := ErdosRenyi(40, 0.3, model.NewRand(7, 1))
		assert.NotEqual(t, a.Edges(), b.Edges())
	})

	t.Run("unreachable connectivity", func(t *testing.T) {
		config := testConfig()
		config.Topology.Provider = "random"
		config.Topology.Degree = 0
		_, err := Build(config, model.NewRand(1, 0))
		assert.ErrorIs(t, err, ErrNotConnected)
	})

	t.Run("geometric", func(t *testing.T) {
		config := testConfig()
		config.Topology.Provider = "geometric"
		config.Topology.Range = 400
		config.Topology.Size = 1000
		topo, err := Build(config, model.NewRand(1, 0))
		require.NoError(t, err)
		assert.Equal(t, "random geometric", topo.Type)
		assert.Equal(t, []Field{{Key: "range", Value: "400.000000"}, {Key: "size", Value: "1000.000000"}}, topo.Fields)
		for _, g := range topo.Graphs {
			assert.True(t, g.IsConnected())
		}
	})
}

func TestTopologyFiles(t *testing.T) {
	ProviderInit(logger.New())
	dir := t.TempDir()

	g := ring(5)
	var buf bytes.Buffer
	require.NoError(t, WriteTopology(&buf, g, []Field{{Key: "mode", Value: "random"}, {Key: "nodes", Value: "5"}, {Key: "degree", Value: "2.000000"}}))
	assert.True(t, strings.HasPrefix(buf.String(), "# mode : random\n# nodes : 5\n# degree : 2.000000\n0;1\n"))

	read, err := ReadTopology(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 5, read.Len())
	assert.Len(t, read.Edges(), 5)

	first := filepath.Join(dir, "g0")
	second := filepath.Join(dir, "g1")
	require.NoError(t, os.WriteFile(first, buf.Bytes(), 0o644))
	require.NoError(t, os.WriteFile(second, buf.Bytes(), 0o644))

	config := testConfig()
	config.Topology.Provider = "file"
	config.Topology.Files = []string{first, second}
	topo, err := Build(config, model.NewRand(1, 0))
	require.NoError(t, err)
	assert.Equal(t, "random", topo.Type)
	assert.Equal(t, 5, topo.Nodes)
	assert.Equal(t, 2.0, *topo.Degree)
	assert.Len(t, topo.Graphs, 2)

	t.Run("mismatched metadata", func(t *testing.T) {
		other := filepath.Join(dir, "g2")
		require.NoError(t, os.WriteFile(other, []byte("# nodes : 6\na;b\n"), 0o644))
		config.Topology.Files = []string{first, other}
		_, err := Build(config, model.NewRand(1, 0))
		assert.ErrorIs(t, err, model.ErrInvalidConfig)
	})

	t.Run("malformed line", func(t *testing.T) {
		_, err := ReadTopology(strings.NewReader("a;b;c\n"))
		assert.Error(t, err)
	})
}

func measuredDB(t *testing.T) string {
	path := filepath.Join(t.TempDir(), "topology.db")
	db, err := model.Open("sqlite", path)
	require.NoError(t, err)
	require.NoError(t, model.MigrateTopology(db))

	for _, h := range []string{"a", "b", "c"} {
		require.NoError(t, db.Create(&model.Addr{Host: h}).Error)
	}
	require.NoError(t, db.Create(&model.Tag{Key: 1, ID: "exp1", HelloSize: 64}).Error)
	require.NoError(t, db.Create(&model.Tag{Key: 2, ID: "exp2", HelloSize: 128}).Error)
	links := []model.HelloPDR{
		{TagKey: 1, Src: "a", Host: "b", PDR: 0.9},
		{TagKey: 1, Src: "b", Host: "a", PDR: 0.8},
		{TagKey: 1, Src: "b", Host: "c", PDR: 0.5},
		{TagKey: 1, Src: "b", Host: "z", PDR: 1.0},
		{TagKey: 2, Src: "a", Host: "c", PDR: 0.3},
	}
	require.NoError(t, db.Create(&links).Error)
	return path
}

func TestDBProvider(t *testing.T) {
	ProviderInit(logger.New())
	config := testConfig()
	config.Topology.Provider = "db"
	config.TopLevel.DataBase = "sqlite"
	config.TopLevel.DBFile = measuredDB(t)
	config.Topology.HelloSize = 64
	config.Topology.Mode = "dw"

	topo, err := Build(config, model.NewRand(1, 0))
	require.NoError(t, err)
	assert.Equal(t, "DES-Testbed", topo.Type)
	assert.Equal(t, 3, topo.Nodes)
	assert.Equal(t, []Field{
		{Key: "db", Value: config.TopLevel.DBFile},
		{Key: "helloSize", Value: "64"},
		{Key: "mode", Value: "dw"},
	}, topo.Fields)

	require.Len(t, topo.Graphs, 1)
	g := topo.Graphs[0]
	assert.True(t, g.Directed())
	a, _ := g.ID("a")
	b, _ := g.ID("b")
	c, _ := g.ID("c")
	w, ok := g.Weight(a, b)
	assert.True(t, ok)
	assert.InDelta(t, 0.9, w, 1e-12)
	assert.True(t, g.HasEdge(b, c))
	assert.False(t, g.HasEdge(c, b))
	_, ok = g.ID("z")
	assert.False(t, ok)

	t.Run("undirected", func(t *testing.T) {
		config.Topology.Mode = "uu"
		topo, err := Build(config, model.NewRand(1, 0))
		require.NoError(t, err)
		assert.False(t, topo.Graphs[0].Directed())
		assert.True(t, topo.Graphs[0].HasEdge(c, b))
	})

	t.Run("unknown hello size", func(t *testing.T) {
		config.Topology.HelloSize = 32
		_, err := Build(config, model.NewRand(1, 0))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "available: [64, 128]")
	})
}
