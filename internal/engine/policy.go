package engine

import (
	"log/slog"

	"github.com/shopspring/decimal"

	"invoiceproc/internal/common"
)

// PolicyFromConfig builds the rule policy from environment configuration.
// Values that are empty or fail to parse fall back to the defaults.
func PolicyFromConfig(ec common.EngineConfig, logger *slog.Logger) Policy {
	if logger == nil {
		logger = slog.Default()
	}
	policy := DefaultPolicy()
	if len(ec.Currencies) > 0 {
		policy.Currencies = ec.Currencies
	}
	if ec.MinConfidence > 0 {
		policy.MinConfidence = ec.MinConfidence
	}
	if ec.MaxAmount != "" {
		if d, err := decimal.NewFromString(ec.MaxAmount); err == nil {
			policy.MaxAmount = d
		} else {
			logger.Warn("invalid MAX_INVOICE_AMOUNT, using default", "value", ec.MaxAmount)
		}
	}
	if ec.AmountTolerance != "" {
		if d, err := decimal.NewFromString(ec.AmountTolerance); err == nil {
			policy.AmountTolerance = d
		} else {
			logger.Warn("invalid AMOUNT_TOLERANCE, using default", "value", ec.AmountTolerance)
		}
	}
	return policy
}
