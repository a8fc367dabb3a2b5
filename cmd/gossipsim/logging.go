package main

import (
	"fmt"
	"os"

	logger "github.com/sirupsen/logrus"
)

type UTCFormatter struct {
	logger.Formatter
}

func (u UTCFormatter) Format(e *logger.Entry) ([]byte, error) {
	e.Time = e.Time.UTC()
	return u.Formatter.Format(e)
}

// sets up the logger at the given level; exits on an unknown level
func newLogger(level, timeFormat string) *logger.Logger {
	log := logger.New()
	l, err := logger.ParseLevel(level)
	if err != nil {
		fmt.Fprint(os.Stderr, err)
		os.Exit(1)
	}
	log.SetLevel(l)

	customFormatter := new(logger.TextFormatter)
	customFormatter.TimestampFormat = timeFormat
	customFormatter.FullTimestamp = true
	log.SetFormatter(UTCFormatter{customFormatter})
	return log
}
