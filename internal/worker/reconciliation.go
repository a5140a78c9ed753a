package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"restaurant-orders/internal/domain"
	"restaurant-orders/internal/repo"
)

// StatusReconciler rewrites stored order statuses that are outside the
// canonical set, such as legacy "preparing" or upper-case "NEW", to their
// normalized value. Every rewrite is logged for audit.
type StatusReconciler struct {
	tx        repo.Transactor
	orderRepo repo.OrderRepo
	log       logrus.FieldLogger
	interval  time.Duration
}

// Rewrite is one corrective update applied by the reconciler.
type Rewrite struct {
	From string
	To   domain.OrderStatus
	Rows int64
}

func NewStatusReconciler(
	tx repo.Transactor,
	orderRepo repo.OrderRepo,
	log logrus.FieldLogger,
	interval time.Duration,
) *StatusReconciler {
	return &StatusReconciler{
		tx:        tx,
		orderRepo: orderRepo,
		log:       log,
		interval:  interval,
	}
}

// Run repeats RunOnce every interval until ctx is cancelled.
func (sr *StatusReconciler) Run(ctx context.Context) {
	if sr.interval <= 0 {
		return
	}
	ticker := time.NewTicker(sr.interval)
	defer ticker.Stop()

	sr.log.WithFields(logrus.Fields{"action": "status_reconcile", "interval": sr.interval.String()}).
		Info("status reconciler started")

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := sr.RunOnce(ctx); err != nil {
				sr.log.WithField("action", "status_reconcile").WithError(err).Error("status reconciliation failed")
			}
		}
	}
}

// RunOnce normalizes every non-canonical status currently stored. Each
// distinct value is rewritten in its own transaction.
func (sr *StatusReconciler) RunOnce(ctx context.Context) ([]Rewrite, error) {
	statuses, err := sr.orderRepo.FindNonCanonicalStatuses(ctx)
	if err != nil {
		return nil, fmt.Errorf("find non-canonical statuses: %w", err)
	}
	if len(statuses) == 0 {
		return nil, nil
	}

	sr.log.WithFields(logrus.Fields{"action": "status_reconcile", "values": len(statuses)}).
		Info("found non-canonical order statuses, fixing")

	rewrites := make([]Rewrite, 0, len(statuses))
	for _, from := range statuses {
		if domain.OrderStatus(from).IsCanonical() {
			continue
		}
		rw := Rewrite{From: from, To: domain.NormalizeStatus(from)}

		err := sr.tx.WithinTx(ctx, func(tx *sqlx.Tx) error {
			n, err := sr.orderRepo.RewriteStatus(ctx, tx, rw.From, rw.To)
			rw.Rows = n
			return err
		})
		if err != nil {
			return rewrites, fmt.Errorf("rewrite status %q: %w", from, err)
		}

		sr.log.WithFields(logrus.Fields{
			"action": "status_rewrite",
			"from":   rw.From,
			"to":     rw.To,
			"rows":   rw.Rows,
		}).Info("normalized stored order status")
		rewrites = append(rewrites, rw)
	}
	return rewrites, nil
}
