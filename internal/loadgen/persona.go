// Package loadgen drives synthetic shopper journeys through the gateway.
package loadgen

import (
	"fmt"
	"strings"
)

type Persona string

const (
	PersonaBrowseOnly  Persona = "browse_only"
	PersonaAddAbandon  Persona = "add_abandon"
	PersonaViewAbandon Persona = "view_abandon"
	PersonaBuyer       Persona = "buyer"
)

// PersonaFor assigns a fixed persona to the 1-based user index: the first 40%
// of users only browse, the next 20% add and abandon, the next 15% view the
// cart and abandon, the rest buy.
func PersonaFor(index, users int) Persona {
	browse := users * 40 / 100
	addAbandon := users * 20 / 100
	viewAbandon := users * 15 / 100

	switch {
	case index <= browse:
		return PersonaBrowseOnly
	case index <= browse+addAbandon:
		return PersonaAddAbandon
	case index <= browse+addAbandon+viewAbandon:
		return PersonaViewAbandon
	default:
		return PersonaBuyer
	}
}

type Intensity string

const (
	IntensityLow    Intensity = "low"
	IntensityMedium Intensity = "medium"
	IntensityHigh   Intensity = "high"
)

func ParseIntensity(s string) (Intensity, error) {
	switch i := Intensity(strings.ToLower(strings.TrimSpace(s))); i {
	case IntensityLow, IntensityMedium, IntensityHigh:
		return i, nil
	default:
		return "", fmt.Errorf("unknown intensity %q, use low, medium or high", s)
	}
}

// Concurrency is the number of journeys started per tick.
func (i Intensity) Concurrency() int {
	switch i {
	case IntensityLow:
		return 1
	case IntensityHigh:
		return 5
	default:
		return 3
	}
}
