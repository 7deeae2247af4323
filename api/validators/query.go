package validators

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/escrowdesk/internal/fees"
	pkgerrors "github.com/angelmondragon/escrowdesk/pkg/errors"
)

func ParseQueryInt(r *http.Request, key string, defaultVal, min, max int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return defaultVal, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "query parameter must be numeric").WithDetails(map[string]any{"field": key})
	}
	if value < min || value > max {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "query parameter out of range").WithDetails(map[string]any{"field": key, "min": min, "max": max})
	}
	return value, nil
}

// ParseAmount parses a positive money amount in whole cents.
func ParseAmount(raw, field string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Decimal{}, pkgerrors.New(pkgerrors.CodeValidation, field+" is required").WithDetails(map[string]any{"field": field})
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, pkgerrors.New(pkgerrors.CodeValidation, field+" must be a decimal number").WithDetails(map[string]any{"field": field})
	}
	if !amount.IsPositive() {
		return decimal.Decimal{}, pkgerrors.New(pkgerrors.CodeValidation, field+" must be greater than zero").WithDetails(map[string]any{"field": field})
	}
	if !fees.IsWholeCents(amount) {
		return decimal.Decimal{}, pkgerrors.New(pkgerrors.CodeValidation, field+" cannot have more than two decimal places").WithDetails(map[string]any{"field": field})
	}
	return amount, nil
}
