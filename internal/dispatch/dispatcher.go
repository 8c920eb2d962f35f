// Package dispatch turns triggered detections into play instructions by
// consulting the sound catalog and the session's reaction mode.
package dispatch

import (
	"fmt"
	"log/slog"
	"net/url"

	"github.com/treeguard/woodpecker-go/internal/logging"
	"github.com/treeguard/woodpecker-go/internal/soundbank"
)

// Instruction tells the client to play one asset. URL points at the
// single-asset retrieval endpoint.
type Instruction struct {
	Category string `json:"category"`
	Asset    string `json:"asset"`
	URL      string `json:"url"`
}

// Dispatcher selects reaction sounds. Stateless besides its catalog
// reference; safe for concurrent use across sessions.
type Dispatcher struct {
	catalog *soundbank.Catalog
	baseURL string // path prefix of the asset retrieval endpoint
	logger  *slog.Logger
}

// New creates a dispatcher serving asset URLs under baseURL.
func New(catalog *soundbank.Catalog, baseURL string) *Dispatcher {
	return &Dispatcher{
		catalog: catalog,
		baseURL: baseURL,
		logger:  logging.ForService("dispatch"),
	}
}

// React resolves a reaction for a triggered detection. Silent mode emits
// nothing and returns (nil, nil). An empty category pool is surfaced to
// the caller; the reaction is skipped but the detection still counts.
func (d *Dispatcher) React(mode soundbank.Mode) (*Instruction, error) {
	if mode == soundbank.ModeSilent {
		return nil, nil
	}

	category, err := d.catalog.Resolve(mode)
	if err != nil {
		return nil, err
	}
	asset, err := d.catalog.Pick(category)
	if err != nil {
		return nil, err
	}

	instr := d.instruction(category, asset)
	if d.logger != nil {
		d.logger.Debug("reaction selected", "mode", string(mode), "category", category, "asset", asset)
	}
	return instr, nil
}

// TestSound picks an asset for an explicit client test request. It
// bypasses the detection state machine and cooldown entirely and draws
// from the whole catalog, so it succeeds whenever any asset exists.
func (d *Dispatcher) TestSound() (*Instruction, error) {
	category, err := d.catalog.Resolve(soundbank.ModeMixed)
	if err != nil {
		return nil, err
	}
	asset, err := d.catalog.Pick(category)
	if err != nil {
		return nil, err
	}
	return d.instruction(category, asset), nil
}

func (d *Dispatcher) instruction(category, asset string) *Instruction {
	return &Instruction{
		Category: category,
		Asset:    asset,
		URL: fmt.Sprintf("%s/%s/%s", d.baseURL,
			url.PathEscape(category), url.PathEscape(asset)),
	}
}
