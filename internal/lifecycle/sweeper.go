package lifecycle

import (
	"context"
	"log"
	"time"
)

// Sweeper reclaims storage for objects that expired without ever being
// fetched. It is time-only: it has no password to evaluate, and quota
// exhaustion is destroyed opportunistically by Retrieve. A secondary
// orphan sweep deletes blobs no metadata record references.
type Sweeper struct {
	service  *Service
	interval time.Duration
}

// NewSweeper returns a sweeper over the given service's stores.
func NewSweeper(service *Service, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Sweeper{service: service, interval: interval}
}

// Run sweeps once immediately, then on every tick until ctx is
// cancelled. Cancelling the context is the stop signal; Run returns once
// the in-flight sweep finishes.
func (sw *Sweeper) Run(ctx context.Context) {
	log.Printf("service=sweeper msg=%q interval=%s", "starting", sw.interval)

	ticker := time.NewTicker(sw.interval)
	defer ticker.Stop()

	sw.Sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Printf("service=sweeper msg=%q", "shutting_down")
			return
		case <-ticker.C:
			sw.Sweep(ctx)
		}
	}
}

// Sweep runs one full pass: expired records first, then orphaned blobs.
func (sw *Sweeper) Sweep(ctx context.Context) {
	start := time.Now()

	expired := sw.sweepExpired(ctx)
	orphans := sw.sweepOrphans(ctx)

	log.Printf("service=sweeper msg=%q expired=%d orphans=%d duration_ms=%d",
		"sweep_complete", expired, orphans, time.Since(start).Milliseconds())
}

func (sw *Sweeper) sweepExpired(ctx context.Context) int {
	objects, err := sw.service.store.ListObjects(ctx)
	if err != nil {
		log.Printf("service=sweeper msg=%q err=%v", "list_objects_failed", err)
		return 0
	}

	now := sw.service.now()
	purged := 0
	for _, obj := range objects {
		if Evaluate(obj, now, "").Decision != Expired {
			continue
		}
		sw.service.purge(ctx, obj)
		purged++
	}
	return purged
}

// orphanGrace is how old a blob must be before the orphan sweep will
// touch it. Ingest writes the blob before the metadata row, so a fresh
// unreferenced blob may belong to an ingest still in flight.
const orphanGrace = 15 * time.Minute

// sweepOrphans deletes blobs on the medium that no metadata row points
// at, e.g. leftovers from a purge whose metadata delete succeeded but
// whose blob delete did not. Blobs are listed before the referenced
// paths: an ingest that completes between the two calls then has its
// path listed but not its blob, so it is never a candidate.
func (sw *Sweeper) sweepOrphans(ctx context.Context) int {
	blobs, err := sw.service.blobs.List(ctx)
	if err != nil {
		log.Printf("service=sweeper msg=%q err=%v", "list_blobs_failed", err)
		return 0
	}

	paths, err := sw.service.store.ListStoragePaths(ctx)
	if err != nil {
		log.Printf("service=sweeper msg=%q err=%v", "list_paths_failed", err)
		return 0
	}
	referenced := make(map[string]bool, len(paths))
	for _, p := range paths {
		referenced[p] = true
	}

	now := sw.service.now()
	deleted := 0
	for _, b := range blobs {
		if referenced[b.Path] {
			continue
		}
		if now.Sub(b.ModTime) < orphanGrace {
			continue
		}
		if err := sw.service.blobs.Delete(ctx, b.Path); err != nil {
			log.Printf("service=sweeper msg=%q path=%s err=%v", "orphan_delete_failed", b.Path, err)
			continue
		}
		deleted++
	}
	return deleted
}
