package topology

import (
	"fmt"
	"strconv"
	"strings"

	model "gossip-sim/pkg/datamodel"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// DBProvider builds the measured topologies of the testbed, one graph per
// measurement tag with the configured hello packet size.  Links are src -> host
// weighted with the packet delivery ratio of the hellos.
type DBProvider struct {
	log *logger.Logger
}

func (dp *DBProvider) Init(log *logger.Logger) {
	dp.log = log
}

func (dp *DBProvider) Build(config *model.Config, rng *model.Rand) (*Topology, error) {
	db, err := model.Open(config.TopLevel.DataBase, config.TopLevel.DBFile)
	if err != nil {
		return nil, err
	}
	mode := config.Topology.Mode
	if mode == "" {
		mode = "uu"
	}
	graphs, err := LoadMeasured(db, config.Topology.HelloSize, mode, nil)
	if err != nil {
		return nil, err
	}
	dp.log.Infof("loaded %d measured topologies with helloSize=%d", len(graphs), config.Topology.HelloSize)

	return &Topology{
		Type:   "DES-Testbed",
		Graphs: graphs,
		Fields: []Field{
			{Key: "db", Value: config.TopLevel.DBFile},
			{Key: "helloSize", Value: strconv.Itoa(config.Topology.HelloSize)},
			{Key: "mode", Value: mode},
		},
		Nodes: graphs[0].Len(),
	}, nil
}

// LoadMeasured reads every tag with the given hello size from db.  In mode "uu"
// the graphs are undirected, otherwise directed.  When hosts is not empty only
// those routers are part of the graphs.
func LoadMeasured(db *gorm.DB, helloSize int, mode string, hosts []string) ([]*Graph, error) {
	var addrs []model.Addr
	if r := db.Order("host").Find(&addrs); r.Error != nil {
		return nil, r.Error
	}
	keep := make(map[string]bool)
	for _, h := range hosts {
		keep[h] = true
	}
	selected := make([]string, 0, len(addrs))
	for _, a := range addrs {
		if len(keep) == 0 || keep[a.Host] {
			selected = append(selected, a.Host)
		}
	}

	var tags []model.Tag
	if r := db.Where("helloSize = ?", helloSize).Order("`key`").Find(&tags); r.Error != nil {
		return nil, r.Error
	}
	if len(tags) == 0 {
		var sizes []int
		db.Model(&model.Tag{}).Distinct("helloSize").Order("helloSize").Pluck("helloSize", &sizes)
		available := make([]string, len(sizes))
		for i, s := range sizes {
			available[i] = strconv.Itoa(s)
		}
		return nil, fmt.Errorf("packet size %d not found in db; available: [%s]", helloSize, strings.Join(available, ", "))
	}

	isHost := make(map[string]bool, len(selected))
	for _, h := range selected {
		isHost[h] = true
	}

	directed := mode != "uu"
	graphs := make([]*Graph, 0, len(tags))
	for _, tag := range tags {
		g := NewGraph(directed, true)
		for _, h := range selected {
			g.AddNode(h)
		}

		var links []model.HelloPDR
		if r := db.Where("tag_key = ?", tag.Key).Order("src").Order("host").Find(&links); r.Error != nil {
			return nil, r.Error
		}
		for _, l := range links {
			if isHost[l.Src] && isHost[l.Host] {
				g.AddEdge(l.Src, l.Host, l.PDR)
			}
		}
		graphs = append(graphs, g)
	}
	return graphs, nil
}
