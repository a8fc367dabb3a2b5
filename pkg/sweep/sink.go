package sweep

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"gossip-sim/pkg/logic"
	"gossip-sim/pkg/stats"
)

var ErrMalformedRecord = errors.New("malformed result line")

// Record is one line of a result file
type Record struct {
	Run     int
	Point   logic.Point
	Summary stats.Summary
	Count   int
	Extra   *stats.Summary
}

// RUN<run>: <ps>, <pb>, <mean>, <std>, <conf95>, <count>[, <mean>, <std>, <conf95>]
func (r *Record) String() string {
	line := fmt.Sprintf("RUN%d: %f, %f, %f, %f, %f, %d", r.Run, r.Point.Ps, r.Point.Pb,
		r.Summary.Mean, r.Summary.Std, r.Summary.Conf95, r.Count)
	if r.Extra != nil {
		line += fmt.Sprintf(", %f, %f, %f", r.Extra.Mean, r.Extra.Std, r.Extra.Conf95)
	}
	return line
}

// ParseRecord is the inverse of Record.String, up to the printed precision
func ParseRecord(line string) (*Record, error) {
	head, body, ok := strings.Cut(strings.TrimSpace(line), ":")
	if !ok || !strings.HasPrefix(head, "RUN") {
		return nil, fmt.Errorf("%w: %q", ErrMalformedRecord, line)
	}
	run, err := strconv.Atoi(head[len("RUN"):])
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrMalformedRecord, line)
	}

	fields := strings.Split(body, ",")
	if len(fields) != 6 && len(fields) != 9 {
		return nil, fmt.Errorf("%w: %d columns in %q", ErrMalformedRecord, len(fields), line)
	}
	values := make([]float64, len(fields))
	for i, f := range fields {
		if values[i], err = strconv.ParseFloat(strings.TrimSpace(f), 64); err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrMalformedRecord, line, err)
		}
	}

	r := &Record{
		Run:     run,
		Point:   logic.Point{Ps: values[0], Pb: values[1]},
		Summary: stats.Summary{Mean: values[2], Std: values[3], Conf95: values[4], N: int(values[5])},
		Count:   int(values[5]),
	}
	if len(values) == 9 {
		r.Extra = &stats.Summary{Mean: values[6], Std: values[7], Conf95: values[8], N: int(values[5])}
	}
	return r, nil
}

// ReadRecords reads every record of a result file, skipping the header
func ReadRecords(path string) ([]*Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var records []*Record
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		r, err := ParseRecord(line)
		if err != nil {
			return nil, fmt.Errorf("%v: %w", path, err)
		}
		records = append(records, r)
	}
	return records, scanner.Err()
}

// Sink appends records to the result files of one output directory.  Every
// append opens, writes and closes the file under one lock, so a killed run
// leaves only complete lines behind.
type Sink struct {
	dir string
	mu  sync.Mutex
}

func NewSink(dir string) *Sink {
	return &Sink{dir: dir}
}

func (s *Sink) Path(file string) string {
	return filepath.Join(s.dir, file)
}

// WriteHeaders truncates the result files and writes their headers
func (s *Sink) WriteHeaders(header string, outputs []logic.Output) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	for _, out := range outputs {
		if err := os.WriteFile(s.Path(out.File), []byte(Describe(header, out.Description)), 0o644); err != nil {
			return err
		}
	}
	return nil
}

// Append writes one line per file.  The lines of one task are written under a
// single lock acquisition.
func (s *Sink) Append(lines map[string]string, order []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, file := range order {
		line, ok := lines[file]
		if !ok {
			continue
		}
		if err := appendLine(s.Path(file), line); err != nil {
			return err
		}
	}
	return nil
}

func appendLine(path, line string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(line + "\n"); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// CompletedRuns returns, per file, the run indices already written to it.  A
// missing file has no completed runs.
func (s *Sink) CompletedRuns(outputs []logic.Output) (map[string]map[int]bool, error) {
	done := make(map[string]map[int]bool, len(outputs))
	for _, out := range outputs {
		runs := map[int]bool{}
		records, err := ReadRecords(s.Path(out.File))
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		for _, r := range records {
			runs[r.Run] = true
		}
		done[out.File] = runs
	}
	return done, nil
}
