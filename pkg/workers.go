package merger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
)

// EventSource yields input events in order and io.EOF after the last one.
type EventSource interface {
	Next() (InputEvent, error)
}

// RecordSink receives output records in input order.
type RecordSink interface {
	WriteRecord(rec *OutputRecord) error
	Close() error
}

type RunStats struct {
	Events     int
	Records    int
	Identified int
	Discarded  int
}

type RunOptions struct {
	NumWorkers int
	// Drop events whose processing panicked instead of aborting the run.
	Discard bool
}

type workerJob struct {
	index int
	event InputEvent
}

type workerResult struct {
	index   int
	entry   int64
	records []OutputRecord
	err     error
}

func (m *Merger) processSafely(job workerJob) (res workerResult) {
	res = workerResult{index: job.index, entry: job.event.Entry}
	defer func() {
		if r := recover(); r != nil {
			res.records = nil
			res.err = fmt.Errorf("recovered from panic on entry %d: %v", job.event.Entry, r)
		}
	}()
	res.records = m.ProcessEvent(job.event)
	return res
}

func (m *Merger) worker(ctx context.Context, id int, jobs <-chan workerJob, results chan<- workerResult) {
	for job := range jobs {
		if configuration.Verbosity > 2 {
			logger.Info(fmt.Sprintf("Worker %d processing entry %d", id, job.event.Entry), "worker")
		}
		select {
		case results <- m.processSafely(job):
		case <-ctx.Done():
			return
		}
	}
}

func sendEventsToWorkers(ctx context.Context, source EventSource, jobs chan<- workerJob) error {
	defer close(jobs)
	for index := 0; ; index++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		event, err := source.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("error reading event %d: %w", index, err)
		}
		select {
		case jobs <- workerJob{index: index, event: event}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Run reconstructs every event of source with a pool of workers and writes
// the records to sink in input order. The sink is not closed.
func (m *Merger) Run(ctx context.Context, source EventSource, sink RecordSink, opts RunOptions) (RunStats, error) {
	nWorkers := opts.NumWorkers
	if nWorkers < 1 {
		nWorkers = 1
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan workerJob, nWorkers*2)
	results := make(chan workerResult, nWorkers*2)

	readDone := make(chan error, 1)
	var wg sync.WaitGroup
	go func() {
		readDone <- sendEventsToWorkers(ctx, source, jobs)
	}()
	for id := 0; id < nWorkers; id++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			m.worker(ctx, id, jobs, results)
		}(id)
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	stats := RunStats{}
	pending := make(map[int]workerResult)
	next := 0
	var runErr error

	for res := range results {
		if runErr != nil {
			continue
		}
		pending[res.index] = res
		for {
			res, ok := pending[next]
			if !ok {
				break
			}
			delete(pending, next)
			next++
			if err := m.collect(res, sink, opts, &stats); err != nil {
				runErr = err
				cancel()
				break
			}
		}
	}

	readErr := <-readDone
	if runErr != nil {
		return stats, runErr
	}
	if readErr != nil {
		return stats, readErr
	}
	return stats, ctx.Err()
}

func (m *Merger) collect(res workerResult, sink RecordSink, opts RunOptions, stats *RunStats) error {
	stats.Events++
	if res.err != nil {
		if !opts.Discard {
			return res.err
		}
		logger.Error(res.err.Error())
		logger.Error(fmt.Sprintf("discarding entry %d", res.entry))
		stats.Discarded++
		return nil
	}
	for i := range res.records {
		if err := sink.WriteRecord(&res.records[i]); err != nil {
			return fmt.Errorf("error writing entry %d: %w", res.entry, err)
		}
		stats.Records++
		if res.records[i].Identified() {
			stats.Identified++
		}
	}
	if configuration.Verbosity > 1 && stats.Events%100000 == 0 {
		logger.Info(fmt.Sprintf("Processed %d events", stats.Events), "worker")
	}
	return nil
}
