package service

import (
	"context"
	"time"

	"github.com/splitshare/splitshare-system/internal/gateway"
)

// StartExpirySweep запускает фоновое завершение истёкших временных участий.
// Каждый проход идемпотентен, поэтому интервал может быть любым.
func (s *Service) StartExpirySweep(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.opts.SweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.sweepExpiredMemberships(ctx)
			}
		}
	}()
}

func (s *Service) sweepExpiredMemberships(ctx context.Context) {
	expired, err := s.repo.ExpireMemberships(ctx, time.Now())
	if err != nil {
		return
	}

	if s.notifier == nil {
		return
	}
	for i := range expired {
		s.notifier.MembershipExpired(ctx, &expired[i])
	}
}

// StartPaymentSync запускает фоновую сверку неподтверждённых платежей со шлюзом.
// Страхует от потерянных вебхуков: оплаченные поручения зачисляются,
// зависшие дольше суток помечаются неуспешными.
func (s *Service) StartPaymentSync(ctx context.Context) {
	if s.gateway == nil {
		return
	}

	go func() {
		ticker := time.NewTicker(s.opts.SyncInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.syncPendingPayments(ctx)
			}
		}
	}()
}

func (s *Service) syncPendingPayments(ctx context.Context) {
	// Свежие поручения пропускаем: вебхук обычно приходит раньше.
	cutoff := time.Now().Add(-s.opts.SyncInterval)
	payments, err := s.repo.ListPendingPayments(ctx, cutoff, 100)
	if err != nil {
		return
	}

	for _, p := range payments {
		order, err := s.gateway.GetOrderStatus(ctx, p.OrderID)
		if err != nil {
			continue
		}

		switch order.Status {
		case gateway.OrderStatusPaid:
			_, _ = s.repo.ConfirmPayment(ctx, p.OrderID)
		default:
			if time.Since(p.CreatedAt) > 24*time.Hour {
				_ = s.repo.MarkPaymentFailed(ctx, p.OrderID)
			}
		}
	}
}
