package service

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"anoa.com/gamification/internal/config"
)

const (
	TierBronze   = "Bronze"
	TierSilver   = "Silver"
	TierGold     = "Gold"
	TierPlatinum = "Platinum"
	TierDiamond  = "Diamond"
)

// LevelDefinition is one row of the XP threshold table.
type LevelDefinition struct {
	Level int
	Name  string
	Tier  string
	MinXP int64
}

// Status is everything derived from a total XP value.
type Status struct {
	TotalXP        int64   `json:"total_xp"`
	Level          int     `json:"level"`
	LevelName      string  `json:"level_name"`
	LevelTier      string  `json:"level_tier"`
	CurrentLevelXP int64   `json:"current_level_xp"` // XP earned since entering the level
	NextLevelXP    int64   `json:"next_level_xp"`    // cumulative XP the next level starts at
	XPToNextLevel  int64   `json:"xp_to_next_level"`
	Progress       float64 `json:"progress"` // 0-100
	IsMaxLevel     bool    `json:"is_max_level"`
}

// Calculator maps cumulative XP to a level. Implementations must be pure.
type Calculator interface {
	LevelForXP(totalXP int64) Status
	MaxLevel() int
}

type curveCalculator struct {
	levels []LevelDefinition
}

// NewCalculator validates the threshold table and returns a calculator over a private copy of it.
func NewCalculator(levels []LevelDefinition) (Calculator, error) {
	if len(levels) == 0 {
		return nil, errors.New("level curve is empty")
	}
	if levels[0].MinXP != 0 {
		return nil, fmt.Errorf("level curve must start at 0 XP, got %d", levels[0].MinXP)
	}

	owned := make([]LevelDefinition, len(levels))
	copy(owned, levels)

	for i, def := range owned {
		if def.Level != i+1 {
			return nil, fmt.Errorf("level %d out of order at position %d", def.Level, i)
		}
		if i > 0 && def.MinXP <= owned[i-1].MinXP {
			return nil, fmt.Errorf("level %d threshold %d is not above level %d threshold %d",
				def.Level, def.MinXP, owned[i-1].Level, owned[i-1].MinXP)
		}
		if def.Name == "" {
			owned[i].Name = fmt.Sprintf("Level %d", def.Level)
		}
		if def.Tier == "" {
			owned[i].Tier = TierBronze
		}
	}

	return &curveCalculator{levels: owned}, nil
}

// NewCalculatorFromRules builds the curve from the rules file, falling back to DefaultCurve.
func NewCalculatorFromRules(rules []config.LevelRule) (Calculator, error) {
	if len(rules) == 0 {
		return NewCalculator(DefaultCurve())
	}

	levels := make([]LevelDefinition, 0, len(rules))
	for _, r := range rules {
		levels = append(levels, LevelDefinition{Level: r.Level, Name: r.Name, Tier: r.Tier, MinXP: r.MinXP})
	}
	return NewCalculator(levels)
}

func (c *curveCalculator) MaxLevel() int {
	return len(c.levels)
}

func (c *curveCalculator) LevelForXP(totalXP int64) Status {
	if totalXP < 0 {
		totalXP = 0
	}

	// index of the first level whose threshold is above totalXP, minus one
	idx := sort.Search(len(c.levels), func(i int) bool {
		return c.levels[i].MinXP > totalXP
	}) - 1

	current := c.levels[idx]
	status := Status{
		TotalXP:        totalXP,
		Level:          current.Level,
		LevelName:      current.Name,
		LevelTier:      current.Tier,
		CurrentLevelXP: totalXP - current.MinXP,
	}

	if idx == len(c.levels)-1 {
		status.IsMaxLevel = true
		status.NextLevelXP = current.MinXP
		status.Progress = 100
		return status
	}

	next := c.levels[idx+1]
	status.NextLevelXP = next.MinXP
	status.XPToNextLevel = next.MinXP - totalXP

	span := float64(next.MinXP - current.MinXP)
	status.Progress = math.Round(float64(status.CurrentLevelXP)/span*10000) / 100

	return status
}

// DefaultCurve is the built-in 20 level table used when no rules file is configured.
func DefaultCurve() []LevelDefinition {
	return []LevelDefinition{
		{Level: 1, Name: "Newcomer", Tier: TierBronze, MinXP: 0},
		{Level: 2, Name: "Apprentice", Tier: TierBronze, MinXP: 100},
		{Level: 3, Name: "Explorer", Tier: TierBronze, MinXP: 250},
		{Level: 4, Name: "Adventurer", Tier: TierBronze, MinXP: 500},
		{Level: 5, Name: "Contributor", Tier: TierSilver, MinXP: 900},
		{Level: 6, Name: "Achiever", Tier: TierSilver, MinXP: 1400},
		{Level: 7, Name: "Specialist", Tier: TierSilver, MinXP: 2000},
		{Level: 8, Name: "Veteran", Tier: TierSilver, MinXP: 2800},
		{Level: 9, Name: "Expert", Tier: TierSilver, MinXP: 3800},
		{Level: 10, Name: "Champion", Tier: TierGold, MinXP: 5000},
		{Level: 11, Name: "Vanguard", Tier: TierGold, MinXP: 6500},
		{Level: 12, Name: "Strategist", Tier: TierGold, MinXP: 8200},
		{Level: 13, Name: "Mentor", Tier: TierGold, MinXP: 10200},
		{Level: 14, Name: "Master", Tier: TierGold, MinXP: 12500},
		{Level: 15, Name: "Grandmaster", Tier: TierPlatinum, MinXP: 15000},
		{Level: 16, Name: "Sage", Tier: TierPlatinum, MinXP: 18000},
		{Level: 17, Name: "Luminary", Tier: TierPlatinum, MinXP: 21500},
		{Level: 18, Name: "Titan", Tier: TierPlatinum, MinXP: 25500},
		{Level: 19, Name: "Mythic", Tier: TierPlatinum, MinXP: 30000},
		{Level: 20, Name: "Legend", Tier: TierDiamond, MinXP: 35000},
	}
}
