package topology

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	model "gossip-sim/pkg/datamodel"

	logger "github.com/sirupsen/logrus"
)

// FileProvider reads topology files.  A file holds `# key : value` metadata
// lines followed by one `a;b` line per (undirected) edge.  All files of a run
// must agree on their metadata.
type FileProvider struct {
	log *logger.Logger
}

func (fp *FileProvider) Init(log *logger.Logger) {
	fp.log = log
}

// metadata collected over all files
type fileMeta struct {
	typ       string
	nodes     int
	degree    *float64
	db        string
	helloSize int
}

func (fp *FileProvider) Build(config *model.Config, rng *model.Rand) (*Topology, error) {
	files := config.Topology.Files
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no files specified", model.ErrInvalidConfig)
	}

	meta := &fileMeta{typ: "files"}
	graphs := make([]*Graph, 0, len(files))
	for _, name := range files {
		f, err := os.Open(name)
		if err != nil {
			return nil, err
		}
		g, err := parseTopology(f, meta)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("%v: %w", name, err)
		}
		fp.log.Infof("read graph from '%v': %d nodes", name, g.Len())
		graphs = append(graphs, g)
	}

	topology := &Topology{
		Type:   meta.typ,
		Graphs: graphs,
		Nodes:  meta.nodes,
		Degree: meta.degree,
	}
	if topology.Nodes == 0 {
		topology.Nodes = graphs[0].Len()
	}
	if meta.db != "" {
		topology.Fields = append(topology.Fields, Field{Key: "db", Value: meta.db})
		topology.Fields = append(topology.Fields, Field{Key: "helloSize", Value: strconv.Itoa(meta.helloSize)})
	}
	return topology, nil
}

// ReadTopology reads a single topology file, ignoring its metadata
func ReadTopology(r io.Reader) (*Graph, error) {
	return parseTopology(r, &fileMeta{typ: "files"})
}

// reads one topology file; the metadata is checked against (and merged into) meta
func parseTopology(r io.Reader, meta *fileMeta) (*Graph, error) {
	g := NewGraph(false, false)
	scanner := bufio.NewScanner(r)
	lineCounter := 0

	for scanner.Scan() {
		lineCounter++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}

		if strings.HasPrefix(line, "#") {
			key, value, ok := strings.Cut(line[1:], ":")
			if !ok {
				continue
			}
			if err := meta.merge(strings.TrimSpace(key), strings.TrimSpace(value)); err != nil {
				return nil, err
			}
			continue
		}

		pair := strings.Split(line, ";")
		if len(pair) != 2 {
			return nil, fmt.Errorf("line %d: expected 'a;b', got %q", lineCounter, line)
		}
		ends := []string{strings.TrimSpace(pair[0]), strings.TrimSpace(pair[1])}
		sort.Strings(ends)
		g.AddEdge(ends[0], ends[1], 1.0)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return g, nil
}

func (m *fileMeta) merge(key, value string) error {
	switch key {
	case "mode":
		if m.typ != "files" && m.typ != value {
			return fmt.Errorf("%w: files with different graph types [%s, %s]", model.ErrInvalidConfig, m.typ, value)
		}
		m.typ = value
	case "nodes":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid node count %q: %w", value, err)
		}
		if m.nodes != 0 && m.nodes != n {
			return fmt.Errorf("%w: files with different number of nodes", model.ErrInvalidConfig)
		}
		m.nodes = n
	case "degree":
		d, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid degree %q: %w", value, err)
		}
		if m.degree != nil && *m.degree != d {
			return fmt.Errorf("%w: files with different degrees", model.ErrInvalidConfig)
		}
		m.degree = &d
	case "db":
		m.db = value
	case "helloSize":
		s, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid helloSize %q: %w", value, err)
		}
		if m.helloSize != 0 && m.helloSize != s {
			return fmt.Errorf("%w: files with different helloSizes", model.ErrInvalidConfig)
		}
		m.helloSize = s
	}
	return nil
}

// WriteTopology writes g in the format ReadTopology reads.  Extra metadata
// lines are written in the given order before the edges.
func WriteTopology(w io.Writer, g *Graph, fields []Field) error {
	bw := bufio.NewWriter(w)
	for _, f := range fields {
		if _, err := fmt.Fprintf(bw, "# %s : %s\n", f.Key, f.Value); err != nil {
			return err
		}
	}
	for _, e := range g.Edges() {
		if _, err := fmt.Fprintf(bw, "%s;%s\n", g.Name(e.From), g.Name(e.To)); err != nil {
			return err
		}
	}
	return bw.Flush()
}
