package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Params holds the tunable strategy and filter parameters, loaded from a
// YAML file so they can be changed without rebuilding. Zero values fall
// back to each component's defaults.
type Params struct {
	Fakeout struct {
		SwingPeriod        int     `yaml:"swing_period"`
		MaxStructureLevels int     `yaml:"max_structure_levels"`
		StructureValidBars int     `yaml:"structure_valid_bars"`
		MinStrength        float64 `yaml:"min_strength"`
	} `yaml:"fakeout"`

	FVG struct {
		MinSizePercent float64 `yaml:"min_size_percent"`
		MaxAgeMinutes  int     `yaml:"max_age_minutes"`
		MinRiskReward  float64 `yaml:"min_risk_reward"`
	} `yaml:"fvg"`

	LiquiditySweep struct {
		MinStrength   float64 `yaml:"min_strength"`
		SweepLookback int     `yaml:"sweep_lookback"`
		MaxSweepAge   int     `yaml:"max_sweep_age"`
	} `yaml:"liquidity_sweep"`

	WorthTrading struct {
		MinExpectedMove float64 `yaml:"min_expected_move"`
		MinRiskReward   float64 `yaml:"min_risk_reward"`
	} `yaml:"worth_trading"`

	MarketState struct {
		EnableSleepFilter *bool   `yaml:"enable_sleep_filter"`
		MinATRRatio       float64 `yaml:"min_atr_ratio"`
		MaxATRRatio       float64 `yaml:"max_atr_ratio"`
	} `yaml:"market_state"`

	Confluence struct {
		Weights  map[string]float64 `yaml:"weights"`
		MinScore float64            `yaml:"min_score"`
	} `yaml:"confluence"`
}

// LoadParams reads strategy parameters from a YAML file. An empty path
// returns empty params, meaning all defaults.
func LoadParams(path string) (*Params, error) {
	params := &Params{}
	if path == "" {
		return params, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read strategy params file '%s': %w", path, err)
	}
	if err := yaml.Unmarshal(data, params); err != nil {
		return nil, fmt.Errorf("failed to parse strategy params file '%s': %w", path, err)
	}
	return params, nil
}
