// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package main

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"time"

	"github.com/cockroachdb/ash/pkg/util/ash"
	"github.com/cockroachdb/ash/pkg/util/log"
	"github.com/cockroachdb/ash/pkg/util/timeutil"
	"github.com/cockroachdb/errors"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// Statuses reported by the simulated workload.
const (
	rpcHandler      ash.Code = 0xEF000001
	replicationWait ash.Code = 0xED000001
	lockWait        ash.Code = 0xEC000001
	diskRead        ash.Code = 0xEB000001
	clientLookup    ash.Code = 0xCD000001
)

func init() {
	ash.RegisterCodeName(rpcHandler, "RpcHandler")
	ash.RegisterCodeName(replicationWait, "ReplicationWait")
	ash.RegisterCodeName(lockWait, "LockWait")
	ash.RegisterCodeName(diskRead, "DiskRead")
	ash.RegisterCodeName(clientLookup, "ClientLookup")
}

// phases are the statuses a request may go through while it is handled,
// in order. Each request visits a random subset.
var phases = []ash.Code{clientLookup, lockWait, diskRead, replicationWait}

const maxPhaseDuration = 50 * time.Millisecond

// run serves simulated requests on cfg.workers goroutines, sampling their
// wait states to out every cfg.interval, until ctx is canceled or
// cfg.duration elapses.
func run(ctx context.Context, cfg config, out io.Writer) error {
	render, err := makeRenderer(cfg.format)
	if err != nil {
		return err
	}
	if cfg.duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.duration)
		defer cancel()
	}
	seed := cfg.seed
	if seed == 0 {
		seed = timeutil.Now().UnixNano()
	}
	log.Infof(ctx, "starting %d workers with seed %d", cfg.workers, seed)

	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(statusEventLogger{}))
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			log.Warningf(ctx, "shutting down tracer provider: %v", err)
		}
	}()

	registry := ash.NewRegistry()
	g, gCtx := errgroup.WithContext(ctx)
	for i := 0; i < cfg.workers; i++ {
		w := &worker{
			id:       i + 1,
			registry: registry,
			tracer:   tp.Tracer("ash-sample"),
			opts:     cfg.waitStateOptions(),
			rng:      rand.New(rand.NewSource(seed + int64(i))),
		}
		g.Go(func() error { return w.run(gCtx) })
	}
	g.Go(func() error { return sample(gCtx, registry, cfg.interval, out, render) })

	err = g.Wait()
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

// sample renders a snapshot of registry every interval until ctx is done.
func sample(
	ctx context.Context, registry *ash.Registry, interval time.Duration, out io.Writer, render renderer,
) error {
	var timer timeutil.Timer
	defer timer.Stop()
	for {
		timer.Reset(interval)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			timer.Read = true
		}
		if err := render(out, timeutil.Now(), registry.Snapshot()); err != nil {
			return err
		}
	}
}

// worker serves simulated requests one at a time.
type worker struct {
	id       int
	registry *ash.Registry
	tracer   trace.Tracer
	opts     ash.Options
	rng      *rand.Rand
	timer    timeutil.Timer
}

func (w *worker) run(ctx context.Context) error {
	ctx, unregister := w.registry.Register(ctx, fmt.Sprintf("worker-%d", w.id))
	defer unregister()
	defer w.timer.Stop()
	for reqID := uint64(1); ; reqID++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.serve(ctx, reqID); err != nil {
			return err
		}
	}
}

// serve handles one request, adopting a fresh wait state for its duration.
func (w *worker) serve(ctx context.Context, reqID uint64) error {
	ctx, sp := w.tracer.Start(ctx, "request")
	defer sp.End()

	ws := ash.NewWaitStateInfoWithOptions(ash.Metadata{
		QueryID:          w.rng.Int63n(1 << 20),
		CurrentRequestID: int64(reqID),
	}, w.opts)
	ws.SetTopLevelRequestID(uint64(w.id)<<32 | reqID)
	ws.SetTopLevelNodeID([]uint64{1, uint64(w.id)})
	ws.UpdateAuxInfo(ash.AuxInfo{
		TabletID: fmt.Sprintf("tablet-%d", w.rng.Intn(16)),
		TableID:  fmt.Sprintf("table-%d", w.rng.Intn(4)),
		Method:   "Read",
	})
	client := fmt.Sprintf("10.0.%d.%d:%d", w.id%256, w.rng.Intn(254)+1, 26257)
	if err := ws.SetClientNodeIP(client); err != nil {
		return errors.Wrap(err, "simulating request")
	}

	adopt := ash.MakeScopedWaitState(ctx, ws)
	defer adopt.Release()
	handling := ash.MakeScopedWaitStatusCurrent(ctx, rpcHandler)
	defer handling.Release()

	for _, phase := range phases {
		if w.rng.Intn(2) == 0 {
			continue
		}
		status := ash.MakeScopedWaitStatusCurrent(ctx, phase)
		err := w.sleep(ctx, time.Duration(w.rng.Int63n(int64(maxPhaseDuration))))
		status.Release()
		if err != nil {
			return err
		}
	}
	log.VEventf(ctx, 2, "served request %d: %s", reqID, ws)
	return nil
}

func (w *worker) sleep(ctx context.Context, d time.Duration) error {
	w.timer.Reset(d)
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-w.timer.C:
		w.timer.Read = true
		return nil
	}
}
