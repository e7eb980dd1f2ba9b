package service

import (
	"sort"

	"anoa.com/gamification/internal/config"
	"anoa.com/gamification/internal/entity"
)

type Milestone struct {
	Length  int
	BonusXP int
}

type MultiplierTier struct {
	MinStreak int
	Factor    float64
}

// Policy is the immutable streak rule set shared by all users.
type Policy struct {
	periods     map[string]string
	milestones  []Milestone      // ascending by Length
	multipliers []MultiplierTier // ascending by MinStreak
}

func DefaultMilestones() []Milestone {
	return []Milestone{
		{Length: 7, BonusXP: 50},
		{Length: 14, BonusXP: 100},
		{Length: 30, BonusXP: 250},
		{Length: 60, BonusXP: 500},
		{Length: 100, BonusXP: 1000},
		{Length: 365, BonusXP: 5000},
	}
}

func DefaultMultipliers() []MultiplierTier {
	return []MultiplierTier{
		{MinStreak: 3, Factor: 1.1},
		{MinStreak: 7, Factor: 1.25},
		{MinStreak: 14, Factor: 1.5},
		{MinStreak: 30, Factor: 2.0},
	}
}

func NewPolicy(periods map[string]string, milestones []Milestone, multipliers []MultiplierTier) Policy {
	p := Policy{
		periods:     make(map[string]string, len(periods)),
		milestones:  append([]Milestone(nil), milestones...),
		multipliers: append([]MultiplierTier(nil), multipliers...),
	}
	for k, v := range periods {
		p.periods[k] = v
	}
	sort.Slice(p.milestones, func(i, j int) bool { return p.milestones[i].Length < p.milestones[j].Length })
	sort.Slice(p.multipliers, func(i, j int) bool { return p.multipliers[i].MinStreak < p.multipliers[j].MinStreak })
	return p
}

// PolicyFromRules falls back to the defaults for every table the rules file leaves empty.
func PolicyFromRules(rules config.StreakRules) Policy {
	milestones := DefaultMilestones()
	if len(rules.Milestones) > 0 {
		milestones = milestones[:0]
		for _, m := range rules.Milestones {
			milestones = append(milestones, Milestone{Length: m.Length, BonusXP: m.BonusXP})
		}
	}

	multipliers := DefaultMultipliers()
	if len(rules.Multipliers) > 0 {
		multipliers = multipliers[:0]
		for _, m := range rules.Multipliers {
			multipliers = append(multipliers, MultiplierTier{MinStreak: m.MinStreak, Factor: m.Factor})
		}
	}

	return NewPolicy(rules.Periods, milestones, multipliers)
}

// PeriodFor returns the period configured for streakType, daily by default.
func (p Policy) PeriodFor(streakType string) string {
	if period, ok := p.periods[streakType]; ok {
		return period
	}
	return entity.PeriodDaily
}

func (p Policy) MultiplierFor(current int) float64 {
	factor := 1.0
	for _, tier := range p.multipliers {
		if current >= tier.MinStreak {
			factor = tier.Factor
		}
	}
	return factor
}

// NextMilestone returns the smallest milestone above current, or nil.
func (p Policy) NextMilestone(current int) *int {
	for _, m := range p.milestones {
		if m.Length > current {
			length := m.Length
			return &length
		}
	}
	return nil
}

func (p Policy) BonusFor(length int) int {
	for _, m := range p.milestones {
		if m.Length == length {
			return m.BonusXP
		}
	}
	return 0
}
