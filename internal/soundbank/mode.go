package soundbank

import (
	"strings"

	"github.com/treeguard/woodpecker-go/internal/errors"
)

// Mode is the client-selected reaction policy deciding which category
// pool a triggered detection draws from.
type Mode string

const (
	ModePredators   Mode = "predators"   // deterrent predator calls
	ModeWoodpeckers Mode = "woodpeckers" // attractant woodpecker sounds
	ModeMixed       Mode = "mixed"       // any category
	ModeSilent      Mode = "silent"      // no reaction audio
)

// DefaultMode is the mode of a fresh session.
const DefaultMode = ModePredators

// Category name prefixes binding categories to grouped modes. Categories
// outside both groups are reachable through mixed mode only.
const (
	predatorPrefix   = "predator_"
	woodpeckerPrefix = "woodpecker_"
)

// ParseMode validates a client-supplied mode string.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(s)) {
	case ModePredators:
		return ModePredators, nil
	case ModeWoodpeckers:
		return ModeWoodpeckers, nil
	case ModeMixed:
		return ModeMixed, nil
	case ModeSilent:
		return ModeSilent, nil
	default:
		return "", errors.Newf("unknown reaction mode %q", s).
			Component("soundbank").
			Category(errors.CategoryValidation).
			Build()
	}
}

// inGroup reports whether the category belongs to the mode's pool.
func (m Mode) inGroup(category string) bool {
	switch m {
	case ModePredators:
		return strings.HasPrefix(category, predatorPrefix)
	case ModeWoodpeckers:
		return strings.HasPrefix(category, woodpeckerPrefix)
	case ModeMixed:
		return true
	default:
		return false
	}
}
