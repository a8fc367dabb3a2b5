package main

import (
	"testing"

	model "gossip-sim/pkg/datamodel"

	"github.com/akamensky/argparse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimFlags(t *testing.T) {
	parser := argparse.NewParser("gossipsim", "test")
	cmd := parser.NewCommand("sim", "test")
	f := addSimFlags(cmd)

	args := []string{"gossipsim", "sim", "-r", "5", "--suppression", "triangular 3 8", "--process", "gossip", "-k", "0", "--steps", "0.1", "--resume"}
	require.NoError(t, parser.Parse(args))

	config := model.MakeDefaultConfig()
	require.NoError(t, f.apply(config))
	assert.Equal(t, 5, config.Simulation.Replications)
	assert.Equal(t, "triangular", config.Simulation.Suppression)
	assert.Equal(t, []float64{3, 8}, config.Simulation.SuppressionParams)
	assert.Equal(t, "gossip", config.Simulation.Process)
	assert.Equal(t, 0, config.Simulation.FloodHops)
	assert.Equal(t, 0.1, config.Simulation.Steps)
	assert.True(t, config.Simulation.Resume)

	// untouched values keep their defaults
	assert.Equal(t, 100, config.Topology.Nodes)
	assert.Equal(t, 2, config.Simulation.Processes)
	assert.Equal(t, "random", config.Topology.Provider)
}

func TestParseSuppression(t *testing.T) {
	mode, params, err := parseSuppression("linear,4")
	require.NoError(t, err)
	assert.Equal(t, "linear", mode)
	assert.Equal(t, []float64{4}, params)

	_, _, err = parseSuppression("linear x")
	assert.ErrorIs(t, err, model.ErrInvalidConfig)

	_, _, err = parseSuppression(" ")
	assert.ErrorIs(t, err, model.ErrInvalidConfig)
}

func TestReplayFlags(t *testing.T) {
	parser := argparse.NewParser("gossipsim", "test")
	cmd := parser.NewCommand("replay", "test")
	f := addReplayFlags(cmd)

	args := []string{"gossipsim", "replay", "--gossip", "3", "--probability", "0.5", "--probability", "0.7", "-m", "2", "--pkg-num", "20", "--no-loss"}
	require.NoError(t, parser.Parse(args))

	config := model.MakeDefaultConfig()
	f.apply(config)
	assert.Equal(t, []string{"3"}, config.Replay.Variants)
	assert.Equal(t, []float64{0.5, 0.7}, config.Replay.Probabilities)
	assert.Equal(t, []int{2}, config.Replay.Retries)
	assert.Equal(t, []int{1}, config.Replay.FloodHops)
	assert.Equal(t, 20, config.Replay.Packets)
	assert.True(t, config.Replay.NoLoss)
}

func TestUnquotedSuppression(t *testing.T) {
	parser := argparse.NewParser("gossipsim", "test")
	cmd := parser.NewCommand("sim", "test")
	f := addSimFlags(cmd)

	args := joinSuppression([]string{"gossipsim", "sim", "--suppression", "triangular", "3", "8", "-r", "5"})
	assert.Equal(t, []string{"gossipsim", "sim", "--suppression", "triangular 3 8", "-r", "5"}, args)
	require.NoError(t, parser.Parse(args))

	config := model.MakeDefaultConfig()
	require.NoError(t, f.apply(config))
	assert.Equal(t, "triangular", config.Simulation.Suppression)
	assert.Equal(t, []float64{3, 8}, config.Simulation.SuppressionParams)
	assert.Equal(t, 5, config.Simulation.Replications)

	t.Run("mode without params", func(t *testing.T) {
		args := joinSuppression([]string{"gossipsim", "sim", "--suppression", "none", "--resume"})
		assert.Equal(t, []string{"gossipsim", "sim", "--suppression", "none", "--resume"}, args)
	})
}

func TestSetSeed(t *testing.T) {
	seed := int64(12345)
	require.NoError(t, setSeed(&seed, ""))
	assert.Equal(t, int64(12345), seed)

	require.NoError(t, setSeed(&seed, "-1"))
	assert.Equal(t, int64(-1), seed)

	require.NoError(t, setSeed(&seed, "0"))
	assert.Equal(t, int64(0), seed)

	assert.ErrorIs(t, setSeed(&seed, "abc"), model.ErrInvalidConfig)
}
