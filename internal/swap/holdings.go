package swap

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Holding is one income position eligible for a swing swap, as declared in
// the holdings YAML file.
type Holding struct {
	Symbol          string  `yaml:"symbol"`
	Shares          float64 `yaml:"shares"`
	AvgCost         float64 `yaml:"avg_cost"`
	MonthlyDividend float64 `yaml:"monthly_dividend"` // USD per month, whole position
}

// LoadHoldings reads the holdings file. A missing file means no holdings
// to advise on and is not an error.
func LoadHoldings(path string) ([]Holding, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read holdings: %w", err)
	}

	var holdings []Holding
	if err := yaml.Unmarshal(data, &holdings); err != nil {
		return nil, fmt.Errorf("parse holdings %s: %w", path, err)
	}
	for i, h := range holdings {
		if h.Symbol == "" || h.Shares <= 0 || h.AvgCost <= 0 {
			return nil, fmt.Errorf("holdings %s: entry %d invalid (symbol %q, shares %v, avg cost %v)",
				path, i, h.Symbol, h.Shares, h.AvgCost)
		}
	}
	return holdings, nil
}
