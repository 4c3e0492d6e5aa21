// Wellbeing and credit recomputation, applied once per month after all
// money has moved.
package agents

// Stress weights. Each component saturates at its weight.
const (
	debtStressWeight    = 50.0
	bufferStressWeight  = 20.0
	utilStressWeight    = 30.0
	debtIncomeMonths    = 6
	highStressThreshold = 70
	midStressThreshold  = 40
)

// Monthly drift for happiness and health.
const (
	happinessDecay      = 2.0
	healthDecay         = 1.0
	highStressHappiness = 5.0
	highStressHealth    = 3.0
	midStressHappiness  = 2.0
	midStressHealth     = 1.0

	// RecentPurchaseWindow is how many months a purchase keeps boosting wellbeing.
	RecentPurchaseWindow = 3
	purchaseFadePerMonth = 0.3
	purchaseBoostWeight  = 0.3
	subscriptionWeight   = 0.5
)

// Credit score movements.
const (
	scoreDebtFree        = 2
	scorePaidOnTime      = 1
	scoreMissedPayment   = -50
	scoreHighUtilization = -3
	scoreLowUtilization  = 1
	scoreAnniversary     = 5
	highUtilization      = 0.8
	lowUtilization       = 0.3
)

// RecomputeStress derives stress from debt load, cash buffer and card
// utilization.
func (s *Snapshot) RecomputeStress() {
	debt := float64(s.TotalDebt())
	cash := float64(s.Cash)
	income := float64(s.MonthlyIncome)

	var debtPart, bufferPart float64
	if income > 0 {
		debtPart = min(debt/(income*debtIncomeMonths)*debtStressWeight, debtStressWeight)
		bufferPart = max(0, 1-cash/income) * bufferStressWeight
	} else {
		if debt > 0 {
			debtPart = debtStressWeight
		}
		if cash <= 0 {
			bufferPart = bufferStressWeight
		}
	}
	utilPart := min(s.Revolving.Utilization(), 1) * utilStressWeight

	s.Stress = clampWellbeing(debtPart + bufferPart + utilPart)
}

// RecomputeWellbeing applies the monthly decay, the stress penalty, fading
// boosts from recent purchases and steady boosts from subscriptions.
// Stress must already be current.
func (s *Snapshot) RecomputeWellbeing() {
	s.Happiness = max(0, s.Happiness-happinessDecay)
	s.Health = max(0, s.Health-healthDecay)

	switch {
	case s.Stress > highStressThreshold:
		s.Happiness = max(0, s.Happiness-highStressHappiness)
		s.Health = max(0, s.Health-highStressHealth)
	case s.Stress > midStressThreshold:
		s.Happiness = max(0, s.Happiness-midStressHappiness)
		s.Health = max(0, s.Health-midStressHealth)
	}

	for _, p := range s.Purchases {
		age := s.Month - p.Month
		if age < 0 || age > RecentPurchaseWindow {
			continue
		}
		fade := 1 - float64(age)*purchaseFadePerMonth
		if p.HappinessBoost != 0 {
			s.Happiness = min(MaxWellbeing, s.Happiness+p.HappinessBoost*fade*purchaseBoostWeight)
		}
		if p.HealthBoost != 0 {
			s.Health = min(MaxWellbeing, s.Health+p.HealthBoost*fade*purchaseBoostWeight)
		}
	}

	for _, sub := range s.Subscriptions {
		if sub.HappinessBoost != 0 {
			s.Happiness = min(MaxWellbeing, s.Happiness+sub.HappinessBoost*subscriptionWeight)
		}
		if sub.HealthBoost != 0 {
			s.Health = min(MaxWellbeing, s.Health+sub.HealthBoost*subscriptionWeight)
		}
	}

	s.Happiness = clampWellbeing(s.Happiness)
	s.Health = clampWellbeing(s.Health)
}

// RecomputeCreditScore moves the score after the month's card payment.
// covered reports whether the cash left after paying still meets the
// minimum due on the remaining balance; anniversary grants the yearly
// positive-history bonus.
func (s *Snapshot) RecomputeCreditScore(covered, anniversary bool) {
	delta := 0
	switch {
	case s.Revolving.Balance == 0:
		delta += scoreDebtFree
	case covered:
		delta += scorePaidOnTime
	default:
		delta += scoreMissedPayment
	}

	util := s.Revolving.Utilization()
	if util > highUtilization {
		delta += scoreHighUtilization
	} else if util < lowUtilization {
		delta += scoreLowUtilization
	}
	if anniversary {
		delta += scoreAnniversary
	}

	s.CreditScore = min(MaxCreditScore, max(MinCreditScore, s.CreditScore+delta))
}

// ApplyImmediateBoost adds a purchase's wellbeing boosts on the spot.
func (s *Snapshot) ApplyImmediateBoost(happiness, health float64) {
	s.Happiness = clampWellbeing(s.Happiness + happiness)
	s.Health = clampWellbeing(s.Health + health)
}

func clampWellbeing(v float64) float64 {
	return min(MaxWellbeing, max(MinWellbeing, v))
}
