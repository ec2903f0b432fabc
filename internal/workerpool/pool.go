// Package workerpool provides the generic n-worker job consumer shared by
// the scanner, downloader, modpack copy fallback and the resolve command.
package workerpool

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// minWorkers and maxWorkersCap bound the sizing heuristic below.
const (
	minWorkers    = 4
	maxWorkersCap = 64
	cpuMultiplier = 8
)

// Size computes the worker count for a batch of taskCount jobs, following
// the heuristic shared across every pool in this package:
//
//	workers = clamp(taskCount, 4, min(cpus*8, 64))
func Size(taskCount int) int {
	ceiling := runtime.NumCPU() * cpuMultiplier
	if ceiling > maxWorkersCap {
		ceiling = maxWorkersCap
	}
	if ceiling < minWorkers {
		ceiling = minWorkers
	}

	workers := taskCount
	if workers < minWorkers {
		workers = minWorkers
	}
	if workers > ceiling {
		workers = ceiling
	}
	return workers
}

// Run reads jobs until the channel is closed and runs handler for each one
// on an errgroup limited to n concurrent goroutines (one goroutine per
// job). Run blocks until every handler has returned. handler must be safe
// for concurrent use by multiple goroutines.
func Run[T any](n int, jobs <-chan T, handler func(T)) {
	if n < 1 {
		n = 1
	}

	g, _ := errgroup.WithContext(context.Background())
	g.SetLimit(n)
	for job := range jobs {
		job := job
		g.Go(func() error {
			handler(job)
			return nil
		})
	}
	_ = g.Wait()
}

// SpawnPool launches n workers against jobs sized by Size(taskCount), and
// is the convenience entrypoint every caller in this module uses.
func SpawnPool[T any](taskCount int, jobs <-chan T, handler func(T)) {
	Run(Size(taskCount), jobs, handler)
}
