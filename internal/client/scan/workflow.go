// Package scan implements the scan-triggered lookup workflow: validate the
// code's syntax, resolve it in the local store, and hand back the record
// immediately while a background reconciliation check runs. The synchronous
// lookup never waits on the network.
package scan

import (
	"context"
	"time"

	"github.com/memoria-app/memoria/internal/client/cache"
	"github.com/memoria-app/memoria/internal/client/models"
	"github.com/memoria-app/memoria/internal/client/repositories/records"
	"github.com/memoria-app/memoria/internal/common"
	"github.com/memoria-app/memoria/internal/logging"
	"github.com/memoria-app/memoria/internal/timex"
)

const maxCodeLength = 64

// Reconciler is the slice of the sync coordinator the workflow needs.
type Reconciler interface {
	NeedsSync(ctx context.Context, kind models.Kind) (bool, error)
	Trigger(ctx context.Context, kind models.Kind) bool
}

// ConnectivityProbe reports whether the remote source is reachable.
type ConnectivityProbe interface {
	IsOnline(ctx context.Context) bool
}

// Result is a validated scan resolution. Degraded marks results served
// from cache while the remote source could not be consulted; they are
// never silently presented as fresh.
type Result struct {
	Record   *models.MemorialRecord
	Degraded bool
	CachedAt time.Time
}

// Workflow wires the lookup path together. Construct one per process.
type Workflow struct {
	records records.Repository
	recon   Reconciler
	probe   ConnectivityProbe
	cache   *cache.Cache[Result]
	clock   timex.Clock
	log     logging.Logger

	// baseCtx scopes background triggers to the process lifetime rather
	// than to the scan call that spawned them.
	baseCtx context.Context
}

func New(
	baseCtx context.Context,
	recordRepo records.Repository,
	recon Reconciler,
	probe ConnectivityProbe,
	validationCache *cache.Cache[Result],
	clock timex.Clock,
	log logging.Logger,
) *Workflow {
	return &Workflow{
		records: recordRepo,
		recon:   recon,
		probe:   probe,
		cache:   validationCache,
		clock:   clock,
		log:     log.With("component", "scan"),
		baseCtx: baseCtx,
	}
}

// ValidateCode checks the surface syntax of a scanned code: non-empty,
// bounded length, uppercase letters, digits and dashes only.
func ValidateCode(code string) error {
	if code == "" || len(code) > maxCodeLength {
		return common.ErrInvalidCode
	}
	for i := 0; i < len(code); i++ {
		ch := code[i]
		if (ch < 'A' || ch > 'Z') && (ch < '0' || ch > '9') && ch != '-' {
			return common.ErrInvalidCode
		}
	}
	return nil
}

// LookupByCode resolves a scanned code. The answer is always definite and
// always synchronous: a malformed code or a miss is terminal, and a hit is
// returned before — and regardless of — any reconciliation. When the hit
// suggests staleness, a background sync is fired and never awaited.
func (w *Workflow) LookupByCode(ctx context.Context, code string) (Result, error) {
	if err := ValidateCode(code); err != nil {
		return Result{}, err
	}

	online := w.probe.IsOnline(ctx)

	if online {
		if cached, ok := w.cache.Get(code); ok {
			w.log.Debug(ctx, "scan served from cache", "code", code)
			return cached, nil
		}
	} else {
		// Offline degraded mode: anything cached — expired included — is
		// better than nothing, but it must carry the degraded flag.
		if cached, _, ok := w.cache.GetStale(code); ok {
			cached.Degraded = true
			w.log.Debug(ctx, "scan served from cache, degraded", "code", code)
			return cached, nil
		}
	}

	rec, err := w.records.GetByScanCode(ctx, code)
	if err != nil {
		// A miss is terminal; no sync is triggered for unknown codes.
		return Result{}, err
	}

	res := Result{Record: rec, CachedAt: w.clock.Now()}
	w.cache.Put(code, res)

	w.triggerReconciliation(code)
	return res, nil
}

// triggerReconciliation asks the coordinator, off the caller's goroutine,
// whether the record kind is due for a sync, and fires one if so. The
// result is logged and discarded.
func (w *Workflow) triggerReconciliation(code string) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				w.log.Error(w.baseCtx, "background reconciliation check panicked", "panic", r)
			}
		}()

		needed, err := w.recon.NeedsSync(w.baseCtx, models.KindRecord)
		if err != nil {
			w.log.Warn(w.baseCtx, "staleness check failed", "code", code, "error", err)
			return
		}
		if !needed {
			return
		}
		if w.recon.Trigger(w.baseCtx, models.KindRecord) {
			w.log.Info(w.baseCtx, "background sync triggered by scan", "code", code)
		}
	}()
}
