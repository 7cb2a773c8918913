package model

// Пороги автоматического повышения уровня при депозите, в копейках.
const (
	// PremiumDepositCents — разовый депозит, дающий повышение до premium.
	PremiumDepositCents int64 = 700_00
	// PremiumBalanceCents — суммарный баланс, дающий повышение до premium.
	PremiumBalanceCents int64 = 2000_00
)

// ComputeTier вычисляет уровень аккаунта после депозита.
// Правило действует только в сторону повышения: достигнутый уровень
// никогда не понижается, vip выставляется только администратором.
func ComputeTier(current Tier, depositCents, newBalanceCents int64) Tier {
	if current == TierPremium || current == TierVIP {
		return current
	}

	if depositCents >= PremiumDepositCents || newBalanceCents >= PremiumBalanceCents {
		return TierPremium
	}

	return current
}
