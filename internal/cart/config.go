package cart

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/nikolayk812/cartsaga/internal/domain"
	"github.com/nikolayk812/cartsaga/internal/retry"
)

// QuantityLimit caps how many units of a product, matched by name regardless
// of case, a single cart may hold.
type QuantityLimit struct {
	ProductName string
	Max         int
}

type Config struct {
	Limits []QuantityLimit
	// FaultProduct makes adds of the named product fail with
	// domain.ErrInjectedFault. Empty disables it.
	FaultProduct string
	Retry        retry.Policy
}

func DefaultConfig() Config {
	return Config{
		Limits: []QuantityLimit{{ProductName: "Keyboard", Max: 5}},
		Retry:  retry.Linear(3, 50*time.Millisecond),
	}
}

// ParseQuantityLimits reads "Keyboard=5,Mouse=10".
func ParseQuantityLimits(s string) ([]QuantityLimit, error) {
	var limits []QuantityLimit

	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		name, value, ok := strings.Cut(part, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("limit %q is not name=max: %w", part, domain.ErrInvalidInput)
		}

		maxQty, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil || maxQty < 1 {
			return nil, fmt.Errorf("limit %q has invalid max: %w", part, domain.ErrInvalidInput)
		}

		limits = append(limits, QuantityLimit{ProductName: name, Max: maxQty})
	}

	return limits, nil
}

func (c Config) limitFor(productName string) (QuantityLimit, bool) {
	for _, l := range c.Limits {
		if strings.EqualFold(l.ProductName, productName) {
			return l, true
		}
	}
	return QuantityLimit{}, false
}
