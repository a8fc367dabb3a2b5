package sweep

import (
	"errors"
	"fmt"
	"sync"
	"time"

	model "gossip-sim/pkg/datamodel"
	"gossip-sim/pkg/logic"
	"gossip-sim/pkg/metrics"
	"gossip-sim/pkg/topology"

	logger "github.com/sirupsen/logrus"
)

// Task is one (graph, grid point) combination.  Graph is the shared base graph.
type Task struct {
	Run        int
	GraphIndex int
	Graph      *topology.Graph
	Point      logic.Point
}

// BuildTasks cycles through the graphs for every point: task i uses graph
// i mod |graphs| and point i div |graphs|
func BuildTasks(graphs []*topology.Graph, points []logic.Point) []Task {
	total := len(points) * len(graphs)
	tasks := make([]Task, 0, total)
	for i := 0; i < total; i++ {
		tasks = append(tasks, Task{
			Run:        i,
			GraphIndex: i % len(graphs),
			Graph:      graphs[i%len(graphs)],
			Point:      points[i/len(graphs)],
		})
	}
	return tasks
}

// Dispatcher runs tasks on a fixed number of workers.  Workers report nothing
// back; every result goes through the sink.
type Dispatcher struct {
	process logic.Process
	params  *logic.Params
	sink    *Sink
	workers int
	seed    int64
	log     *logger.Logger
	metrics *metrics.Registry
	// runs already written, per result file
	done map[string]map[int]bool
}

func NewDispatcher(process logic.Process, params *logic.Params, sink *Sink, workers int, seed int64, log *logger.Logger) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}
	return &Dispatcher{
		process: process,
		params:  params,
		sink:    sink,
		workers: workers,
		seed:    seed,
		log:     log,
		done:    map[string]map[int]bool{},
	}
}

// metrics are optional
func (d *Dispatcher) SetMetrics(m *metrics.Registry) {
	d.metrics = m
}

// Skip takes the runs already present in each result file.  Runs found in
// every file are not run again; the others only append to the files that
// miss them.
func (d *Dispatcher) Skip(done map[string]map[int]bool) {
	d.done = done
}

// whether every output file holds the run
func (d *Dispatcher) complete(run int) bool {
	for _, out := range d.process.Outputs() {
		if !d.done[out.File][run] {
			return false
		}
	}
	return true
}

// Check verifies what has to hold before any worker is started
func (d *Dispatcher) Check(tasks []Task) error {
	if !d.process.Header().Sources {
		return nil
	}
	for _, t := range tasks {
		if d.params.Sources > t.Graph.Len() {
			return fmt.Errorf("%w: %d sources, graph %d has %d nodes", logic.ErrTooManySources, d.params.Sources, t.GraphIndex, t.Graph.Len())
		}
	}
	return nil
}

// Run blocks until every task is done.  Failed tasks do not stop the others;
// their errors are joined into the returned error.
func (d *Dispatcher) Run(tasks []Task) error {
	if err := d.Check(tasks); err != nil {
		return err
	}
	if d.observations(nil) == 1 {
		d.log.Warn("a single observation per point has no spread; conf95 is written as 0")
	}

	pending := make([]Task, 0, len(tasks))
	for _, t := range tasks {
		if d.complete(t.Run) {
			continue
		}
		pending = append(pending, t)
	}
	if skipped := len(tasks) - len(pending); skipped > 0 {
		d.log.Infof("skipping %d runs found in the result files", skipped)
	}
	if d.metrics != nil {
		d.metrics.SetPending(len(pending))
	}

	taskChan := make(chan Task, d.workers*2)
	var errsMu sync.Mutex
	var errs []error
	var barrier sync.WaitGroup

	d.log.Infof("starting %d workers for %d tasks", d.workers, len(pending))
	for w := 0; w < d.workers; w++ {
		barrier.Add(1)
		go func() {
			defer barrier.Done()
			for task := range taskChan {
				if err := d.runSafe(task); err != nil {
					d.log.Errorf("run %d failed: %v", task.Run, err)
					errsMu.Lock()
					errs = append(errs, err)
					errsMu.Unlock()
				}
			}
		}()
	}

	for _, t := range pending {
		taskChan <- t
	}
	close(taskChan)
	barrier.Wait()

	d.log.Infof("all workers done; %d of %d tasks failed", len(errs), len(pending))
	return errors.Join(errs...)
}

// a panicking task only loses its own record
func (d *Dispatcher) runSafe(task Task) (err error) {
	start := time.Now()
	if d.metrics != nil {
		d.metrics.TaskStarted()
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("run %d: panic: %v", task.Run, r)
		}
		if d.metrics != nil {
			d.metrics.TaskFinished()
			status := "ok"
			if err != nil {
				status = "failed"
			}
			d.metrics.RecordTask(d.process.Name(), status, time.Since(start), d.observations(err))
		}
	}()
	return d.runTask(task)
}

func (d *Dispatcher) observations(err error) int {
	if err != nil {
		return 0
	}
	if d.process.Header().Sources {
		return d.params.Replications * d.params.Sources
	}
	return d.params.Replications
}

func (d *Dispatcher) runTask(task Task) error {
	d.log.Debugf("run %d: graph %d, ps=%f, pb=%f", task.Run, task.GraphIndex, task.Point.Ps, task.Point.Pb)

	rng := model.NewRand(d.seed, uint64(task.Run))
	outcomes := d.process.Evaluate(task.Graph, task.Point, d.params, rng)

	lines := make(map[string]string, len(outcomes))
	order := make([]string, 0, len(outcomes))
	for _, o := range outcomes {
		if d.done[o.File][task.Run] {
			continue
		}
		r := &Record{Run: task.Run, Point: task.Point, Summary: o.Summary, Count: o.Count, Extra: o.Extra}
		lines[o.File] = r.String()
		order = append(order, o.File)
	}

	if err := d.sink.Append(lines, order); err != nil {
		if d.metrics != nil {
			d.metrics.RecordSinkError()
		}
		return fmt.Errorf("run %d: %w", task.Run, err)
	}
	if d.metrics != nil {
		for _, file := range order {
			d.metrics.RecordWrite(file)
		}
	}
	return nil
}
