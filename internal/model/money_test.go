package model

import (
	"testing"
	"time"

	"pgregory.net/rapid"
)

func TestJoinShareCents(t *testing.T) {
	tests := []struct {
		name       string
		totalPrice int64
		slots      int32
		mtype      MembershipType
		days       int
		want       int64
	}{
		{
			name:       "monthly share is price divided by slots",
			totalPrice: 120000,
			slots:      4,
			mtype:      MembershipMonthly,
			want:       30000,
		},
		{
			name:       "temporary share prorated by days",
			totalPrice: 120000,
			slots:      4,
			mtype:      MembershipTemporary,
			days:       10,
			want:       10000,
		},
		{
			name:       "temporary for full month equals monthly",
			totalPrice: 120000,
			slots:      4,
			mtype:      MembershipTemporary,
			days:       30,
			want:       30000,
		},
		{
			name:       "division truncates",
			totalPrice: 10000,
			slots:      3,
			mtype:      MembershipMonthly,
			want:       3333,
		},
		{
			name:       "zero slots yields zero",
			totalPrice: 10000,
			slots:      0,
			mtype:      MembershipMonthly,
			want:       0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := JoinShareCents(tt.totalPrice, tt.slots, tt.mtype, tt.days)
			if got != tt.want {
				t.Fatalf("JoinShareCents = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestRemainingDays(t *testing.T) {
	now := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		end  time.Time
		want int64
	}{
		{"exactly five days", now.Add(5 * 24 * time.Hour), 5},
		{"partial day rounds up", now.Add(4*24*time.Hour + time.Hour), 5},
		{"already expired", now.Add(-time.Hour), 0},
		{"expires right now", now, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RemainingDays(tt.end, now); got != tt.want {
				t.Fatalf("RemainingDays = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestLeaveRefundCents(t *testing.T) {
	now := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)

	tempMembership := func(share int64, totalDays, usedDays int64) *Membership {
		joined := now.Add(-time.Duration(usedDays) * 24 * time.Hour)
		end := joined.Add(time.Duration(totalDays) * 24 * time.Hour)
		return &Membership{
			Type:       MembershipTemporary,
			ShareCents: share,
			JoinedAt:   joined,
			EndDate:    &end,
		}
	}

	t.Run("monthly membership is never refunded", func(t *testing.T) {
		end := now.Add(20 * 24 * time.Hour)
		m := &Membership{Type: MembershipMonthly, ShareCents: 30000, JoinedAt: now, EndDate: &end}
		if got := LeaveRefundCents(m, now); got != 0 {
			t.Fatalf("refund = %d, want 0", got)
		}
	})

	t.Run("temporary refund is 80 percent of remaining days", func(t *testing.T) {
		// 30 дней за 10000, использовано 15: остаток 5000, возврат 4000.
		m := tempMembership(10000, 30, 15)
		if got := LeaveRefundCents(m, now); got != 4000 {
			t.Fatalf("refund = %d, want 4000", got)
		}
	})

	t.Run("expired temporary membership is not refunded", func(t *testing.T) {
		m := tempMembership(10000, 10, 20)
		if got := LeaveRefundCents(m, now); got != 0 {
			t.Fatalf("refund = %d, want 0", got)
		}
	})

	t.Run("temporary without end date is not refunded", func(t *testing.T) {
		m := &Membership{Type: MembershipTemporary, ShareCents: 10000, JoinedAt: now}
		if got := LeaveRefundCents(m, now); got != 0 {
			t.Fatalf("refund = %d, want 0", got)
		}
	})
}

func TestMoneyProperties(t *testing.T) {
	now := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)

	t.Run("prorated share never exceeds full share within a month", func(t *testing.T) {
		rapid.Check(t, func(t *rapid.T) {
			price := rapid.Int64Range(0, 1_000_000_00).Draw(t, "price")
			slots := rapid.Int32Range(1, 100).Draw(t, "slots")
			days := rapid.IntRange(1, DaysPerMonth).Draw(t, "days")

			full := JoinShareCents(price, slots, MembershipMonthly, 0)
			prorated := JoinShareCents(price, slots, MembershipTemporary, days)

			if prorated < 0 || prorated > full {
				t.Fatalf("prorated share %d out of range [0, %d]", prorated, full)
			}
		})
	})

	t.Run("refund never exceeds the paid share", func(t *testing.T) {
		rapid.Check(t, func(t *rapid.T) {
			share := rapid.Int64Range(0, 1_000_000_00).Draw(t, "share")
			totalDays := rapid.Int64Range(1, 365).Draw(t, "totalDays")
			usedDays := rapid.Int64Range(0, 400).Draw(t, "usedDays")

			joined := now.Add(-time.Duration(usedDays) * 24 * time.Hour)
			end := joined.Add(time.Duration(totalDays) * 24 * time.Hour)
			m := &Membership{
				Type:       MembershipTemporary,
				ShareCents: share,
				JoinedAt:   joined,
				EndDate:    &end,
			}

			refund := LeaveRefundCents(m, now)
			if refund < 0 || refund > share {
				t.Fatalf("refund %d out of range [0, %d]", refund, share)
			}
		})
	})
}
