// Package closure runs the idempotent day-closure job: claim the date,
// finalize the day's records, report the outcome exactly once.
package closure

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"viajes/internal/core"
)

const Modulo = "cierre_dia"

var (
	// ErrClosureFailed marks a finalization failure. It is logged to the
	// operational log and surfaced as a non-zero completion signal; the job
	// itself never retries.
	ErrClosureFailed = errors.New("closure failed")
)

// Outcome is the tri-state completion signal handed to the invoking
// scheduler.
type Outcome int

const (
	OutcomeSucceeded Outcome = iota
	OutcomeFailed
	OutcomeAlreadyDone
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSucceeded:
		return "COMPLETADO"
	case OutcomeFailed:
		return "FALLIDO"
	case OutcomeAlreadyDone:
		return "YA-REALIZADO"
	}
	return "DESCONOCIDO"
}

// ExitCode maps the outcome to a process exit code for the scheduler.
// Already-done is a success: re-running a closed day is a safe no-op.
func (o Outcome) ExitCode() int {
	if o == OutcomeFailed {
		return 1
	}
	return 0
}

// Config is the runner's explicit configuration. The runner never reads the
// environment itself.
type Config struct {
	// StorePath locates the backing store file; the default finalizer audits
	// it as the day's local backup.
	StorePath string
	// ScheduleWindow is the scheduler cadence. A RUNNING claim older than
	// this is a crashed run and may be reclaimed.
	ScheduleWindow time.Duration
	// NotifyThreshold is how many undelivered critical entries warrant an
	// alert nudge on the process log.
	NotifyThreshold int
	// BackupDir receives the day's copy of the store file. Empty means audit
	// the store file in place without copying.
	BackupDir string
	// TopRoutes caps the route aggregate read during finalization.
	TopRoutes int
	// Force re-runs a day that already closed successfully. Finalizer
	// sub-steps are idempotent, so a forced re-run overwrites rather than
	// duplicates.
	Force bool
}

// Store is the persistence surface of the claim protocol.
type Store interface {
	ClaimClosure(ctx context.Context, fecha core.Date) (bool, core.EstadoCierre, error)
	FinishClosure(ctx context.Context, fecha core.Date, estado core.EstadoCierre, senal int) error
	ExpireClosure(ctx context.Context, fecha core.Date, expected core.EstadoCierre, before time.Time) (bool, error)
}

// OperationalLog receives the critical entry written on failure.
type OperationalLog interface {
	Critical(ctx context.Context, modulo, mensaje string) error
	PendingAlerts(ctx context.Context, limit int) ([]core.CriticalLog, error)
}

// Finalizer is the extension point executed once the day is claimed.
// Implementations should keep sub-steps idempotent so a FAILED day can be
// re-run safely.
type Finalizer interface {
	Finalize(ctx context.Context, fecha core.Date) error
}

// FinalizerFunc adapts a function to the Finalizer interface.
type FinalizerFunc func(ctx context.Context, fecha core.Date) error

func (f FinalizerFunc) Finalize(ctx context.Context, fecha core.Date) error {
	return f(ctx, fecha)
}

type Runner struct {
	cfg       Config
	store     Store
	oplog     OperationalLog
	finalizer Finalizer
	status    io.Writer
	now       func() time.Time
}

func NewRunner(cfg Config, store Store, oplog OperationalLog, finalizer Finalizer) *Runner {
	return &Runner{
		cfg:       cfg,
		store:     store,
		oplog:     oplog,
		finalizer: finalizer,
		status:    os.Stdout,
		now:       time.Now,
	}
}

// Run executes one closure invocation for today and returns the tri-state
// outcome. Exactly one status line is written per invocation. Running twice
// on an already closed day is a no-op; the second call reports already-done.
func (r *Runner) Run(ctx context.Context) (Outcome, error) {
	fecha := core.DateOf(r.now())

	claimed, prior, err := r.store.ClaimClosure(ctx, fecha)
	if err != nil {
		// Store unreachable before RUNNING: nothing was mutated.
		r.statusLine(fecha, OutcomeFailed, err)
		return OutcomeFailed, fmt.Errorf("claim closure: %w", err)
	}

	if !claimed {
		switch prior {
		case core.CierreSucceeded:
			if !r.cfg.Force {
				slog.InfoContext(ctx, "Day already closed", "fecha", fecha.ISO())
				r.statusLine(fecha, OutcomeAlreadyDone, nil)
				return OutcomeAlreadyDone, nil
			}
			slog.WarnContext(ctx, "Forcing re-run of closed day", "fecha", fecha.ISO())
			if err := r.releaseClaim(ctx, fecha); err != nil {
				r.statusLine(fecha, OutcomeFailed, err)
				return OutcomeFailed, err
			}
		case core.CierreRunning:
			reclaimed, rerr := r.reclaimStale(ctx, fecha)
			if rerr != nil {
				r.statusLine(fecha, OutcomeFailed, rerr)
				return OutcomeFailed, rerr
			}
			if !reclaimed {
				// A concurrent run holds the claim; losing is a no-op success.
				slog.WarnContext(ctx, "Closure already running, treating as no-op",
					"fecha", fecha.ISO())
				r.statusLine(fecha, OutcomeAlreadyDone, nil)
				return OutcomeAlreadyDone, nil
			}
		default:
			err := fmt.Errorf("unexpected closure state %q for %s", prior, fecha.ISO())
			r.statusLine(fecha, OutcomeFailed, err)
			return OutcomeFailed, err
		}
	}

	slog.InfoContext(ctx, "Starting day closure", "fecha", fecha.ISO(), "prior_estado", string(prior))

	if err := r.finalizer.Finalize(ctx, fecha); err != nil {
		return r.fail(ctx, fecha, err)
	}

	if err := r.store.FinishClosure(ctx, fecha, core.CierreSucceeded, 0); err != nil {
		return r.fail(ctx, fecha, err)
	}

	slog.InfoContext(ctx, "Day closure completed", "fecha", fecha.ISO())
	r.statusLine(fecha, OutcomeSucceeded, nil)
	return OutcomeSucceeded, nil
}

// releaseClaim reopens a successfully closed day. The flip to FAILED is
// guarded on the SUCCEEDED state, so of several forced runs only one wins it
// and proceeds to claim.
func (r *Runner) releaseClaim(ctx context.Context, fecha core.Date) error {
	released, err := r.store.ExpireClosure(ctx, fecha, core.CierreSucceeded, time.Time{})
	if err != nil {
		return fmt.Errorf("release closure claim: %w", err)
	}
	if !released {
		return fmt.Errorf("closure for %s reopened by a concurrent run", fecha.ISO())
	}
	claimed, _, err := r.store.ClaimClosure(ctx, fecha)
	if err != nil {
		return fmt.Errorf("reclaim closure: %w", err)
	}
	if !claimed {
		return fmt.Errorf("closure for %s claimed by a concurrent run", fecha.ISO())
	}
	return nil
}

// reclaimStale expires a crashed RUNNING claim once it is older than the
// schedule window, then claims again. Expiry is a single statement guarded on
// state and age, so of several runners observing the same stale claim exactly
// one proceeds.
func (r *Runner) reclaimStale(ctx context.Context, fecha core.Date) (bool, error) {
	cutoff := r.now().Add(-r.cfg.ScheduleWindow)
	expired, err := r.store.ExpireClosure(ctx, fecha, core.CierreRunning, cutoff)
	if err != nil {
		return false, fmt.Errorf("expire stale claim: %w", err)
	}
	if !expired {
		// Fresh claim, or another runner expired it first.
		return false, nil
	}

	slog.WarnContext(ctx, "Reclaiming stale closure claim", "fecha", fecha.ISO())

	claimed, _, err := r.store.ClaimClosure(ctx, fecha)
	if err != nil {
		return false, fmt.Errorf("reclaim closure: %w", err)
	}
	return claimed, nil
}

func (r *Runner) fail(ctx context.Context, fecha core.Date, cause error) (Outcome, error) {
	slog.ErrorContext(ctx, "Day closure failed", "fecha", fecha.ISO(), "error", cause)

	if err := r.store.FinishClosure(ctx, fecha, core.CierreFailed, 1); err != nil {
		slog.ErrorContext(ctx, "Failed to persist FAILED closure state",
			"fecha", fecha.ISO(), "error", err)
	}

	mensaje := fmt.Sprintf("cierre de dia %s fallido: %v", fecha.ISO(), cause)
	if err := r.oplog.Critical(ctx, Modulo, mensaje); err != nil {
		slog.ErrorContext(ctx, "Failed to write critical log entry", "error", err)
	}

	r.checkAlertBacklog(ctx)

	r.statusLine(fecha, OutcomeFailed, cause)
	return OutcomeFailed, fmt.Errorf("%w: %v", ErrClosureFailed, cause)
}

func (r *Runner) checkAlertBacklog(ctx context.Context) {
	if r.cfg.NotifyThreshold <= 0 {
		return
	}
	pending, err := r.oplog.PendingAlerts(ctx, r.cfg.NotifyThreshold)
	if err != nil {
		return
	}
	if len(pending) >= r.cfg.NotifyThreshold {
		slog.WarnContext(ctx, "Unnotified critical log backlog at threshold",
			"pending", len(pending), "threshold", r.cfg.NotifyThreshold)
	}
}

// statusLine emits the single terminal line the scheduler scrapes.
func (r *Runner) statusLine(fecha core.Date, outcome Outcome, cause error) {
	ts := r.now().UTC().Format(time.RFC3339)
	if cause != nil {
		fmt.Fprintf(r.status, "%s [CIERRE] %s fecha=%s error=%q\n", ts, outcome, fecha.ISO(), cause.Error())
		return
	}
	fmt.Fprintf(r.status, "%s [CIERRE] %s fecha=%s\n", ts, outcome, fecha.ISO())
}
