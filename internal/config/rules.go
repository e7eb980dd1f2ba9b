package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Rules holds the tunable gamification tables. Loaded once at startup.
type Rules struct {
	Levels  []LevelRule `toml:"levels"`
	Streaks StreakRules `toml:"streaks"`
}

type LevelRule struct {
	Level int    `toml:"level"`
	Name  string `toml:"name"`
	Tier  string `toml:"tier"`
	MinXP int64  `toml:"min_xp"`
}

type StreakRules struct {
	// Period per streak type, "daily" or "weekly". Unlisted types are daily.
	Periods     map[string]string `toml:"periods"`
	Milestones  []MilestoneRule   `toml:"milestones"`
	Multipliers []MultiplierRule  `toml:"multipliers"`
}

type MilestoneRule struct {
	Length  int `toml:"length"`
	BonusXP int `toml:"bonus_xp"`
}

type MultiplierRule struct {
	MinStreak int     `toml:"min_streak"`
	Factor    float64 `toml:"factor"`
}

// LoadRules decodes the TOML rules file at path. An empty path yields empty rules,
// which the consumers replace with their built-in defaults.
func LoadRules(path string) (*Rules, error) {
	rules := &Rules{}
	if path == "" {
		return rules, nil
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open rules file: %w", err)
	}
	defer file.Close()

	if err := toml.NewDecoder(file).Decode(rules); err != nil {
		return nil, fmt.Errorf("failed to decode rules file %s: %w", path, err)
	}

	for streakType, period := range rules.Streaks.Periods {
		if period != "daily" && period != "weekly" {
			return nil, fmt.Errorf("streak type %q has unknown period %q", streakType, period)
		}
	}

	return rules, nil
}
