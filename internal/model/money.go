package model

import "time"

// DaysPerMonth — расчётная длина месяца для пропорциональной оплаты.
// Тарификация использует фиксированный 30-дневный месяц, а не календарный.
const DaysPerMonth = 30

// refundPercent — доля остатка, возвращаемая при досрочном выходе из группы.
const refundPercent = 80

// SharePriceCents возвращает стоимость одного слота группы в сотых долях кредита.
// Деление целочисленное, остаток отбрасывается.
func SharePriceCents(totalPriceCents int64, slotsTotal int32) int64 {
	if slotsTotal <= 0 {
		return 0
	}
	return totalPriceCents / int64(slotsTotal)
}

// JoinShareCents возвращает сумму списания при вступлении в группу.
// Для временного участия цена слота масштабируется пропорционально числу дней.
func JoinShareCents(totalPriceCents int64, slotsTotal int32, membershipType MembershipType, days int) int64 {
	share := SharePriceCents(totalPriceCents, slotsTotal)
	if membershipType == MembershipTemporary && days > 0 {
		return share * int64(days) / DaysPerMonth
	}
	return share
}

// RemainingDays возвращает число полных и неполных дней до окончания участия.
// Неполный день округляется вверх; для истёкшего участия результат не положителен.
func RemainingDays(endDate, now time.Time) int64 {
	left := endDate.Sub(now)
	if left <= 0 {
		return 0
	}
	days := int64(left / (24 * time.Hour))
	if left%(24*time.Hour) != 0 {
		days++
	}
	return days
}

// LeaveRefundCents возвращает сумму возврата при досрочном выходе из группы.
// Возврат положен только временному участию: остаток дней оплачивается по
// дневной ставке с удержанием штрафа за досрочный выход. Месячное участие
// не компенсируется.
func LeaveRefundCents(m *Membership, now time.Time) int64 {
	if m.Type != MembershipTemporary || m.EndDate == nil {
		return 0
	}

	remaining := RemainingDays(*m.EndDate, now)
	if remaining <= 0 {
		return 0
	}

	totalDays := int64(m.EndDate.Sub(m.JoinedAt) / (24 * time.Hour))
	if totalDays <= 0 {
		return 0
	}
	if remaining > totalDays {
		remaining = totalDays
	}

	return m.ShareCents * remaining * refundPercent / (totalDays * 100)
}
