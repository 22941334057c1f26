package settlement

import (
	"context"
	"time"

	"go.uber.org/multierr"

	"github.com/osandoval-dev/storefront-backend/internal/ledger"
	"github.com/osandoval-dev/storefront-backend/pkg/config"
	"github.com/osandoval-dev/storefront-backend/pkg/enums"
	pkgerrors "github.com/osandoval-dev/storefront-backend/pkg/errors"
	"github.com/osandoval-dev/storefront-backend/pkg/gateway"
	"github.com/osandoval-dev/storefront-backend/pkg/logger"
	"github.com/osandoval-dev/storefront-backend/pkg/metrics"
)

// sweepBatchSize bounds how many pending transactions one sweep touches.
const sweepBatchSize = 500

// InvoiceLookup is the slice of the gateway client the poller needs.
type InvoiceLookup interface {
	LookupInvoice(ctx context.Context, invoiceID string) (*gateway.InvoiceStatus, error)
}

// Poller re-observes pending transactions on a fixed interval and feeds each
// gateway answer into the reconciler. The sweep runs sequentially inside the
// tick loop, so a new tick can never overlap a sweep still in flight.
type Poller struct {
	txns       ledger.Repository
	gateway    InvoiceLookup
	reconciler *Reconciler
	lock       SweepLock
	log        *logger.Logger
	metrics    *metrics.SettlementMetrics

	interval   time.Duration
	minLatency time.Duration
	now        func() time.Time
}

// NewPoller wires the background settlement producer.
func NewPoller(
	txns ledger.Repository,
	gw InvoiceLookup,
	reconciler *Reconciler,
	lock SweepLock,
	cfg config.SettlementConfig,
	log *logger.Logger,
	m *metrics.SettlementMetrics,
) *Poller {
	return &Poller{
		txns:       txns,
		gateway:    gw,
		reconciler: reconciler,
		lock:       lock,
		log:        log,
		metrics:    m,
		interval:   cfg.PollInterval,
		minLatency: cfg.MinSettlementLatency,
		now:        time.Now,
	}
}

// Run blocks until ctx is cancelled, sweeping once per interval.
func (p *Poller) Run(ctx context.Context) error {
	p.log.Info(ctx, "settlement poller started")
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.log.Info(ctx, "settlement poller stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := p.sweepLocked(ctx); err != nil {
				p.log.Error(ctx, "settlement sweep failed", err)
			}
		}
	}
}

func (p *Poller) sweepLocked(ctx context.Context) error {
	acquired, err := p.lock.Acquire(ctx)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquire sweep lock")
	}
	if !acquired {
		p.log.Info(ctx, "sweep lock held elsewhere, skipping tick")
		return nil
	}
	defer func() {
		if err := p.lock.Release(context.WithoutCancel(ctx)); err != nil {
			p.log.Error(ctx, "release sweep lock", err)
		}
	}()

	return p.Sweep(ctx)
}

// Sweep enumerates pending transactions past the gateway's minimum settlement
// latency and reconciles each. A single lookup failure is recorded and does
// not abort the rest of the sweep.
func (p *Poller) Sweep(ctx context.Context) error {
	start := p.now()
	cutoff := start.Add(-p.minLatency)

	pending, err := p.txns.FindPendingBefore(ctx, cutoff, sweepBatchSize)
	if err != nil {
		p.metrics.ObserveSweep("error", p.now().Sub(start))
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "enumerate pending transactions")
	}
	if len(pending) == 0 {
		p.metrics.ObserveSweep("empty", p.now().Sub(start))
		return nil
	}

	var errs error
	for _, txn := range pending {
		if err := ctx.Err(); err != nil {
			errs = multierr.Append(errs, err)
			break
		}
		if txn.GatewayInvoiceID == nil {
			continue
		}
		if err := p.observeOne(ctx, *txn.GatewayInvoiceID); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	result := "ok"
	if errs != nil {
		result = "partial"
	}
	p.metrics.ObserveSweep(result, p.now().Sub(start))
	return errs
}

func (p *Poller) observeOne(ctx context.Context, invoiceID string) error {
	lctx := p.log.WithInvoiceID(ctx, invoiceID)

	status, err := p.gateway.LookupInvoice(ctx, invoiceID)
	if err != nil {
		p.metrics.IncLookupError()
		p.log.Error(lctx, "gateway lookup failed", err)
		return err
	}

	report, err := enums.MapGatewayStatus(status.Status)
	if err != nil {
		p.log.Warn(lctx, "unrecognized gateway status, skipping")
		return nil
	}
	if !report.IsTerminal() {
		// Still awaiting payment; the next sweep will look again.
		return nil
	}

	obs := Observation{
		GatewayInvoiceID: invoiceID,
		ReportedAmount:   status.Amount,
		ReportedStatus:   report,
		RawTransactionID: status.TransactionID,
		ObservedAt:       p.now().UTC(),
	}

	// Shutdown must not tear down a reconcile mid-commit.
	outcome, err := p.reconciler.Reconcile(context.WithoutCancel(ctx), obs)
	if err != nil {
		p.log.Error(lctx, "reconcile failed", err)
		return err
	}
	lctx = p.log.WithField(lctx, "outcome", outcome.String())
	p.log.Info(lctx, "poll observation reconciled")
	return nil
}
