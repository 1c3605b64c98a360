/*
Copyright © 2025 the larray authors.
This file is part of larray.

larray is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

larray is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with larray.  If not, see <http://www.gnu.org/licenses/>.
*/

package larray

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/ctessum/sparse"
	"github.com/sirupsen/logrus"
)

// Event reports scheduler progress during a Compute call.
type Event struct {
	// Done and Total count finished and scheduled tasks.
	Done, Total int
	// Label names the operation of the task that just finished.
	Label string
}

// ComputeOption adjusts how Compute runs the task graph.
type ComputeOption func(*computeConfig)

type computeConfig struct {
	workers    int
	onProgress func(Event)
	log        *logrus.Logger
}

// Workers sets the number of concurrent worker goroutines.
// The default is runtime.GOMAXPROCS(0).
func Workers(n int) ComputeOption {
	return func(c *computeConfig) { c.workers = n }
}

// OnProgress registers a callback invoked after each task finishes.
// The callback runs on a scheduler goroutine and must not block.
func OnProgress(f func(Event)) ComputeOption {
	return func(c *computeConfig) { c.onProgress = f }
}

// Log sets the logger used for scheduler debug output. The default
// is the logrus standard logger.
func Log(l *logrus.Logger) ComputeOption {
	return func(c *computeConfig) { c.log = l }
}

// execNode is the per-run scheduling state of one task.
type execNode struct {
	task       *Task
	depCount   int32
	dependents []*execNode
}

// executor runs a set of tasks on a pool of workers, respecting the
// dependency order. A fresh executor is built for every Compute
// call; chunk results live on the tasks, so tasks that already
// finished in an earlier run are not scheduled again.
type executor struct {
	cfg     computeConfig
	ready   chan *execNode
	wg      sync.WaitGroup
	done    int32
	total   int
	errOnce sync.Once
	err     error
	cancel  context.CancelFunc
}

func newComputeConfig(options []ComputeOption) computeConfig {
	cfg := computeConfig{
		workers: runtime.GOMAXPROCS(0),
		log:     logrus.StandardLogger(),
	}
	for _, o := range options {
		o(&cfg)
	}
	if cfg.workers < 1 {
		cfg.workers = 1
	}
	return cfg
}

// execute runs the pending dependency closure of roots.
func execute(ctx context.Context, roots []*Task, options ...ComputeOption) error {
	cfg := newComputeConfig(options)
	todo := pending(roots)
	if len(todo) == 0 {
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ex := &executor{
		cfg:    cfg,
		ready:  make(chan *execNode, len(todo)),
		total:  len(todo),
		cancel: cancel,
	}
	cfg.log.WithFields(logrus.Fields{
		"tasks":   len(todo),
		"workers": cfg.workers,
	}).Debug("larray: starting computation")

	// Wire up the per-run scheduling state. Dependencies that
	// already hold results don't count toward readiness.
	nodes := make(map[*Task]*execNode, len(todo))
	for _, t := range todo {
		nodes[t] = &execNode{task: t}
	}
	for _, t := range todo {
		n := nodes[t]
		for _, d := range t.deps {
			dn, ok := nodes[d]
			if !ok {
				continue // already computed
			}
			n.depCount++
			dn.dependents = append(dn.dependents, n)
		}
	}

	ex.wg.Add(len(todo))
	for _, n := range nodes {
		if atomic.LoadInt32(&n.depCount) == 0 {
			ex.ready <- n
		}
	}

	var workers sync.WaitGroup
	for i := 0; i < cfg.workers; i++ {
		workers.Add(1)
		go func() {
			defer workers.Done()
			for n := range ex.ready {
				ex.runNode(ctx, n)
			}
		}()
	}
	ex.wg.Wait()
	close(ex.ready)
	workers.Wait()

	if ex.err != nil {
		return ex.err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("larray: computation canceled: %v", err)
	}
	return nil
}

// runNode executes one task and releases its dependents.
func (ex *executor) runNode(ctx context.Context, n *execNode) {
	defer ex.wg.Done()
	t := n.task

	if ctx.Err() != nil {
		ex.skip(n)
		return
	}

	deps := make([]*sparse.DenseArray, len(t.deps))
	for i, d := range t.deps {
		res, err, ok := d.result()
		if err != nil {
			// A dependency failed, possibly in an earlier run.
			ex.fail(err)
			ex.skip(n)
			return
		}
		if !ok {
			// The dependency was skipped after a failure elsewhere.
			ex.skip(n)
			return
		}
		deps[i] = res
	}

	res, err := t.run(ctx, deps)
	if err != nil {
		err = fmt.Errorf("larray: running %s task: %v", t.label, err)
		t.setResult(nil, err)
		ex.fail(err)
		ex.skip(n)
		return
	}
	t.setResult(res, nil)

	done := atomic.AddInt32(&ex.done, 1)
	if ex.cfg.onProgress != nil {
		ex.cfg.onProgress(Event{Done: int(done), Total: ex.total, Label: t.label})
	}
	ex.release(n)
}

// release decrements the dependency counts of n's dependents and
// queues any that become ready.
func (ex *executor) release(n *execNode) {
	for _, dn := range n.dependents {
		if atomic.AddInt32(&dn.depCount, -1) == 0 {
			ex.ready <- dn
		}
	}
}

// skip marks a node as not runnable but still releases its
// dependents so the run drains instead of deadlocking.
func (ex *executor) skip(n *execNode) {
	ex.release(n)
}

// fail records the first error and cancels the rest of the run.
func (ex *executor) fail(err error) {
	ex.errOnce.Do(func() {
		ex.err = err
		ex.cfg.log.WithError(err).Debug("larray: computation failed")
		ex.cancel()
	})
}

// Compute executes the tasks the array depends on and returns the
// materialized result as a single dense array. Chunks computed by an
// earlier call are reused, so calling Compute twice does no
// additional chunk work.
func (a *Array) Compute(ctx context.Context, options ...ComputeOption) (*sparse.DenseArray, error) {
	roots, err := tasksOf(a)
	if err != nil {
		return nil, err
	}
	if err := execute(ctx, roots, options...); err != nil {
		return nil, err
	}
	return a.assemble()
}

// Persist executes the tasks the array depends on, leaving the
// chunks stored on their tasks without concatenating them.
// Subsequent operations on the array start from the stored chunks.
func (a *Array) Persist(ctx context.Context, options ...ComputeOption) error {
	roots, err := tasksOf(a)
	if err != nil {
		return err
	}
	return execute(ctx, roots, options...)
}

// ComputeAll executes several arrays in one scheduler run, sharing
// any common tasks between them.
func ComputeAll(ctx context.Context, arrays []*Array, options ...ComputeOption) ([]*sparse.DenseArray, error) {
	roots, err := tasksOf(arrays...)
	if err != nil {
		return nil, err
	}
	if err := execute(ctx, roots, options...); err != nil {
		return nil, err
	}
	out := make([]*sparse.DenseArray, len(arrays))
	for i, a := range arrays {
		if out[i], err = a.assemble(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// assemble concatenates the computed chunks along the leading axis.
func (a *Array) assemble() (*sparse.DenseArray, error) {
	out := sparse.ZerosDense(a.shape...)
	stride := rowSize(a.shape)
	for _, c := range a.chunks {
		d, err, ok := c.task.result()
		if !ok {
			return nil, fmt.Errorf("larray: chunk at row %d has not been computed", c.off)
		}
		if err != nil {
			return nil, err
		}
		copy(out.Elements[c.off*stride:], d.Elements)
	}
	return out, nil
}

// Scalar is a deferred single number, produced by total reductions.
type Scalar struct {
	a *Array
}

// Value computes the scalar and returns it.
func (s *Scalar) Value(ctx context.Context, options ...ComputeOption) (float64, error) {
	d, err := s.a.Compute(ctx, options...)
	if err != nil {
		return 0, err
	}
	return d.Elements[0], nil
}

// Array returns the underlying one-element array, for graph
// inspection.
func (s *Scalar) Array() *Array { return s.a }
