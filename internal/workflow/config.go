package workflow

import (
	"os"
	"strconv"
	"strings"
)

// Config holds the workflow knobs that historically varied between
// deployments: the selectable LTV ratios, the loan-leg networks offered,
// and the fixed exchange mode sent with every estimate.
type Config struct {
	LTVOptions   []int
	LoanNetworks []string
	Exchange     string
}

// DefaultConfig mirrors the partner API defaults.
func DefaultConfig() Config {
	return Config{
		LTVOptions:   []int{30, 40, 50, 60, 70},
		LoanNetworks: []string{"ETH", "TRX", "BSC"},
		Exchange:     "direct",
	}
}

// ConfigFromEnv reads LOAN_LTV_OPTIONS, LOAN_NETWORKS and
// LOAN_EXCHANGE_MODE, falling back to defaults for anything unset or
// unparsable.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()

	if raw := os.Getenv("LOAN_LTV_OPTIONS"); raw != "" {
		var options []int
		for _, part := range strings.Split(raw, ",") {
			if v, err := strconv.Atoi(strings.TrimSpace(part)); err == nil && v > 0 && v < 100 {
				options = append(options, v)
			}
		}
		if len(options) > 0 {
			cfg.LTVOptions = options
		}
	}

	if raw := os.Getenv("LOAN_NETWORKS"); raw != "" {
		var networks []string
		for _, part := range strings.Split(raw, ",") {
			if n := strings.ToUpper(strings.TrimSpace(part)); n != "" {
				networks = append(networks, n)
			}
		}
		if len(networks) > 0 {
			cfg.LoanNetworks = networks
		}
	}

	if mode := os.Getenv("LOAN_EXCHANGE_MODE"); mode != "" {
		cfg.Exchange = mode
	}

	return cfg
}
