package engine

import (
	"slices"

	"github.com/talgya/finsim/internal/agents"
	"github.com/talgya/finsim/internal/economy"
	"github.com/talgya/finsim/internal/money"
)

func (p *monthPass) creditIncome() {
	p.s.Cash += p.s.MonthlyIncome
}

func (p *monthPass) payLivingExpenses() {
	p.s.Spend(p.s.LivingExpenses)
}

func (p *monthPass) paySubscriptions() {
	for _, sub := range p.s.Subscriptions {
		p.s.Spend(sub.MonthlyCost)
	}
}

func (p *monthPass) serviceVehicleLoan() {
	loan := p.s.VehicleLoan
	if loan == nil {
		return
	}
	p.s.Spend(loan.MonthlyPayment)

	interest := money.InterestForPeriod(loan.RemainingBalance, loan.APR)
	principal := loan.MonthlyPayment - interest
	loan.RemainingBalance = money.Max(0, loan.RemainingBalance-principal)
	loan.RemainingMonths--
	p.s.LifetimeInterest += interest

	if loan.RemainingMonths <= 0 || loan.RemainingBalance == 0 {
		p.s.VehicleLoan = nil
		p.record("vehicle", "paid off %s vehicle loan", loan.Tier)
	}
}

// liquidate sells purchases back. A sale never pays more than the item's
// current value; an asking price outside (0, value] is replaced and noted.
func (p *monthPass) liquidate(sales []agents.Liquidation) {
	for _, l := range sales {
		if l.Index < 0 || l.Index >= len(p.s.Purchases) {
			p.skip("sale index %d out of range", l.Index)
			continue
		}
		item := &p.s.Purchases[l.Index]
		if item.CurrentValue <= 0 {
			p.skip("%s has no value left to sell", item.Name)
			continue
		}
		price := l.SalePrice
		switch {
		case price == 0:
			price = item.CurrentValue
		case price < 0 || price > item.CurrentValue:
			p.record("adjusted", "sale price %s for %s adjusted to its current value %s", price, item.Name, item.CurrentValue)
			price = item.CurrentValue
		}
		p.s.Cash += price
		item.CurrentValue = 0
		p.record("sale", "sold %s for %s", item.Name, price)
	}
}

func (p *monthPass) applyOffers(decisions agents.DecisionSet) {
	accepted := decisions.Accepted()
	seen := make(map[string]bool, len(accepted))
	for _, d := range accepted {
		if seen[d.OfferID] {
			p.skip("offer %s accepted twice", d.OfferID)
			continue
		}
		seen[d.OfferID] = true

		offer, ok := economy.Find(p.offers, d.OfferID)
		if !ok {
			p.skip("unknown offer %s", d.OfferID)
			continue
		}
		switch offer.Kind {
		case economy.KindSubscription:
			p.subscribe(offer)
		case economy.KindOneTime:
			p.buy(offer, d.Payment)
		default:
			p.skip("offer %s is not a one-time or subscription offer", d.OfferID)
		}
	}
}

func (p *monthPass) subscribe(o economy.Offer) {
	if p.s.HasSubscription(o.Name) {
		return
	}
	p.s.Subscriptions = append(p.s.Subscriptions, agents.Subscription{
		Name:           o.Name,
		MonthlyCost:    o.Cost,
		Category:       o.Category,
		Icon:           o.Icon,
		HappinessBoost: o.HappinessBoost,
		HealthBoost:    o.HealthBoost,
		Lane:           o.Lane,
	})
	p.record("subscription", "subscribed to %s at %s/mo", o.Name, o.Cost)
}

func (p *monthPass) buy(o economy.Offer, method agents.PaymentMethod) {
	if method == agents.PayCredit {
		p.s.ChargeRevolving(o.Cost)
	} else {
		method = agents.PayCash
		p.s.Spend(o.Cost)
	}
	p.s.Purchases = append(p.s.Purchases, agents.Purchase{
		Month:            p.s.Month,
		Name:             o.Name,
		Category:         o.Category,
		Icon:             economy.CategoryIcon(o.Category),
		Cost:             o.Cost,
		PaymentMethod:    method,
		CurrentValue:     o.Cost,
		DepreciationRate: o.DepreciationRate,
		HappinessBoost:   o.HappinessBoost,
		HealthBoost:      o.HealthBoost,
		StressImpact:     o.StressImpact,
		ExperienceScore:  o.ExperienceScore,
		InvestmentScore:  o.InvestmentScore,
		Lane:             o.Lane,
	})
	p.s.ApplyImmediateBoost(o.HappinessBoost, o.HealthBoost)
	p.record("purchase", "bought %s for %s with %s", o.Name, o.Cost, method)
}

func (p *monthPass) applyVehicle(d *agents.VehicleDecision) {
	if d == nil || d.Action != agents.Accept {
		return
	}
	if p.s.VehicleLoan != nil {
		p.skip("already financing a vehicle")
		return
	}
	offer, ok := economy.FindVehicle(p.offers, d.Tier)
	if !ok {
		p.skip("no %q vehicle on offer", d.Tier)
		return
	}
	term := d.TermMonths
	if term == 0 {
		term = economy.DefaultLoanTerm
	}
	if !economy.ValidTerm(term) {
		p.skip("unsupported loan term %d", term)
		return
	}

	down := economy.DownPayment(offer.Cost)
	principal := offer.Cost - down
	apr := economy.VehicleAPR(p.s.CreditScore)
	payment, err := money.AmortizedPayment(principal, apr, term)
	if err != nil {
		p.skip("cannot finance %s vehicle: %v", offer.Tier, err)
		return
	}

	p.s.Spend(down)
	p.s.VehicleLoan = &agents.VehicleLoan{
		RemainingBalance: principal,
		MonthlyPayment:   payment,
		APR:              apr,
		RemainingMonths:  term,
		Tier:             offer.Tier,
	}
	p.record("vehicle", "financed %s vehicle: %s down, %s/mo for %d months at %.1f%%",
		offer.Tier, down, payment, term, apr*100)
}

func (p *monthPass) accrueRevolvingInterest() {
	interest := money.InterestForPeriod(p.s.Revolving.Balance, p.s.Revolving.APR)
	if interest <= 0 {
		return
	}
	p.s.Revolving.Balance += interest
	p.s.LifetimeInterest += interest
}

// payRevolving applies the payment instruction and reports whether the cash
// left afterwards still covers the minimum due on the remaining balance.
func (p *monthPass) payRevolving(instr agents.RevolvingPayment) bool {
	balance := p.s.Revolving.Balance
	if balance <= 0 {
		return true
	}
	required := money.Min(p.minimumDue(balance), balance)

	var amount money.Cents
	switch instr.Kind {
	case agents.PaymentFull:
		amount = balance
	case agents.PaymentCustom:
		amount = money.Max(0, instr.Amount)
	case agents.PaymentMinimum:
		amount = required
	default:
		p.skip("unknown payment kind %q, paying minimum", instr.Kind)
		amount = required
	}
	amount = money.Min(amount, money.Min(p.s.Cash, balance))

	p.s.Cash -= amount
	p.s.Revolving.Balance -= amount
	if amount < required {
		p.record("payment", "paid %s of the %s minimum", amount, required)
	}

	left := p.s.Revolving.Balance
	return left == 0 || p.s.Cash >= p.minimumDue(left)
}

func (p *monthPass) minimumDue(balance money.Cents) money.Cents {
	return money.MinimumPayment(balance, p.rules.MinimumPaymentRate, p.rules.MinimumPaymentFloor)
}

func (p *monthPass) updateCreditScore(covered bool) {
	every := p.rules.AnniversaryEvery
	anniversary := every > 0 && p.s.Month%every == 0

	before := p.s.CreditScore
	p.s.RecomputeCreditScore(covered, anniversary)
	if !covered {
		p.record("credit", "credit score fell from %d to %d: cash left %s does not cover the next minimum",
			before, p.s.CreditScore, p.s.Cash)
	}
}

// depreciate wears down items bought in earlier months.
func (p *monthPass) depreciate() {
	for i := range p.s.Purchases {
		item := &p.s.Purchases[i]
		if item.DepreciationRate <= 0 || item.CurrentValue <= 0 || item.Month >= p.s.Month {
			continue
		}
		loss := money.Floor(item.Cost, item.DepreciationRate, p.rules.DepreciationPace)
		item.CurrentValue = money.Max(0, item.CurrentValue-loss)
	}
}

func (p *monthPass) applyMilestoneRaise() {
	if !slices.Contains(p.rules.Milestones, p.s.Month) {
		return
	}
	rate := p.growth.Rate(p.s.Month)
	raise := money.Floor(p.s.MonthlyIncome, rate)
	p.s.MonthlyIncome += raise
	p.record("raise", "income up %.1f%% to %s", rate*100, p.s.MonthlyIncome)
}
