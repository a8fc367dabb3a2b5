// This package defines the data model for the simulator: run configuration,
// random number streams and the database tables of the testbed.
// It uses gorm (https://gorm.io/) an ORM model for Golang.
package datamodel

import (
	"errors"
	"fmt"
	"sync"

	logger "github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite" // Sqlite driver based on GGO
	"gorm.io/gorm"
)

var ErrUnsupportedDB = errors.New("invalid or unsupported database type")

// our logger
var log *logger.Logger = logger.StandardLogger()

// sets the package logger
func Init(mainLogger *logger.Logger) {
	log = mainLogger
}

// A router of the testbed.  Hosts are the node identifiers of measured
// topologies.
type Addr struct {
	Host string `gorm:"primaryKey;column:host"`
}

func (Addr) TableName() string { return "addr" }

// A `Tag` identifies one measurement run on the testbed; the hello packets of a
// run all have the same size.
type Tag struct {
	Key       uint   `gorm:"primaryKey;column:key"`
	ID        string `gorm:"column:id"`
	HelloSize int    `gorm:"column:helloSize"`
}

func (Tag) TableName() string { return "tag" }

// packet delivery ratio of the link src -> host measured with hello packets
type HelloPDR struct {
	TagKey uint    `gorm:"column:tag_key;index"`
	Src    string  `gorm:"column:src"`
	Host   string  `gorm:"column:host"`
	PDR    float64 `gorm:"column:pdr"`
}

func (HelloPDR) TableName() string { return "eval_helloPDR" }

// one gossip configuration replayed on a measured topology
type ReplayTag struct {
	Key        uint `gorm:"primaryKey;autoIncrement;column:key"`
	Experiment string
	Gossip     string
	P          float64
	M          int
	K          int
	HelloSize  int `gorm:"column:helloSize"`
	Packets    int
}

func (ReplayTag) TableName() string { return "replay_tag" }

// fraction of nodes that received one replayed packet
type RxFraction struct {
	Src    string  `gorm:"column:src;index"`
	TagKey uint    `gorm:"column:tag_key;index"`
	Frac   float64 `gorm:"column:frac"`
}

func (RxFraction) TableName() string { return "eval_rx_fracs_for_tag" }

// reception statistics of one host for all packets of a source and tag.  Total
// counts duplicates, Frac only distinct packets.
type HostFraction struct {
	Src    string  `gorm:"primaryKey;column:src"`
	TagKey uint    `gorm:"primaryKey;column:tag_key"`
	Host   string  `gorm:"primaryKey;column:host"`
	Total  float64 `gorm:"column:total"`
	Frac   float64 `gorm:"column:frac"`
}

func (HostFraction) TableName() string { return "eval_fracsOfHosts" }

// opens a database of the given type ("sqlite" or "mysql")
func Open(dbType, dbFileOrDSN string) (*gorm.DB, error) {
	var db *gorm.DB
	var err error

	cfg := &gorm.Config{
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
	}

	switch dbType {
	case "sqlite":
		db, err = gorm.Open(sqlite.Open(dbFileOrDSN), cfg)
	case "mysql":
		db, err = gorm.Open(mysql.Open(dbFileOrDSN), cfg)
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedDB, dbType)
	}

	if err != nil {
		return nil, err
	}
	if dbType == "sqlite" {
		// sqlite allows a single writer; recorders share the handle with the caller
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	log.Infof("using database '%v'", dbFileOrDSN)
	return db, nil
}

// creates the tables of a measured topology
func MigrateTopology(db *gorm.DB) error {
	return migrate(db, &Addr{}, &Tag{}, &HelloPDR{})
}

// creates the tables the replay writes to
func MigrateReplay(db *gorm.DB) error {
	return migrate(db, &Addr{}, &ReplayTag{}, &RxFraction{}, &HostFraction{})
}

func migrate(db *gorm.DB, tablesToMigrate ...interface{}) error {
	// use GORM to create a DB table for each of the above structs
	for _, table := range tablesToMigrate {
		if err := db.AutoMigrate(table); err != nil {
			return err
		}
	}
	return nil
}

// Record reached fractions.  This function should be started as a goroutine.
// It waits for incoming fractions and records them in the database, in batches
// for efficiency
func RecordRxFractions(db *gorm.DB, fracChan chan *RxFraction, barrier *sync.WaitGroup) {
	defer barrier.Done()
	const batchsize = 1024 // an arbitrary choice
	fractions := make([]*RxFraction, 0, batchsize)

	for f := range fracChan {
		fractions = append(fractions, f)

		// if we've reached our batch size, send them to the DB
		if len(fractions) >= batchsize {
			if r := db.Create(&fractions); r.Error != nil {
				log.Warnf("failed to record rx fractions: %v", r.Error)
			}
			fractions = fractions[:0]
		}
	}

	// the channel has been closed; flush what is left over
	if len(fractions) > 0 {
		if r := db.Create(&fractions); r.Error != nil {
			log.Warnf("failed to record rx fractions: %v", r.Error)
		}
	}
}
