package biome

import (
	"errors"
	"fmt"

	"github.com/lucasb-eyer/go-colorful"
)

var ErrInvalidTable = errors.New("invalid biome table")

// AltitudeRegion colours every sample at or below MaxHeight that an earlier
// region did not already claim.
type AltitudeRegion struct {
	Name      string         `json:"name"`
	MaxHeight float64        `json:"max_height"`
	Color     colorful.Color `json:"-"`
}

// Definition describes one biome. Definitions are read-only once the table
// has been normalised and are shared by every generation goroutine.
type Definition struct {
	Name             string           `json:"name"`
	Commonness       float64          `json:"commonness"`
	Regions          []AltitudeRegion `json:"regions"`
	HeightMultiplier float64          `json:"height_multiplier"`
	HeightCurve      HeightCurve      `json:"height_curve"`
}

// RegionColor returns the colour of the first region whose MaxHeight is at
// least h. ok is false when no region covers h.
func (d *Definition) RegionColor(h float64) (colorful.Color, bool) {
	for _, r := range d.Regions {
		if h <= r.MaxHeight {
			return r.Color, true
		}
	}
	return colorful.Color{}, false
}

// Table is the ordered biome list. Order is significant for selection.
type Table []*Definition

// Usable reports whether generation can run against the table. An empty
// table or one with a nil entry is misconfigured.
func (t Table) Usable() bool {
	if len(t) == 0 {
		return false
	}
	for _, d := range t {
		if d == nil {
			return false
		}
	}
	return true
}

// Normalize rescales Commonness so the non-nil definitions sum to 1.
func (t Table) Normalize() {
	sum := 0.0
	for _, d := range t {
		if d != nil {
			sum += d.Commonness
		}
	}
	if sum <= 0 {
		return
	}
	for _, d := range t {
		if d != nil {
			d.Commonness /= sum
		}
	}
}

// Weights returns the commonness values in table order. Nil entries weigh 0.
func (t Table) Weights() []float64 {
	w := make([]float64, len(t))
	for i, d := range t {
		if d != nil {
			w[i] = d.Commonness
		}
	}
	return w
}

// Snapshot deep-copies the table so background work never shares curve or
// region slices with a writer.
func (t Table) Snapshot() Table {
	out := make(Table, len(t))
	for i, d := range t {
		if d == nil {
			continue
		}
		c := *d
		c.Regions = append([]AltitudeRegion(nil), d.Regions...)
		c.HeightCurve = d.HeightCurve.Clone()
		out[i] = &c
	}
	return out
}

// Validate checks semantic constraints the schema cannot express.
func (t Table) Validate() error {
	if len(t) == 0 {
		return fmt.Errorf("%w: no biomes defined", ErrInvalidTable)
	}
	total := 0.0
	for i, d := range t {
		if d == nil {
			return fmt.Errorf("%w: biome %d is nil", ErrInvalidTable, i)
		}
		if d.Commonness < 0 {
			return fmt.Errorf("%w: biome %q has negative commonness", ErrInvalidTable, d.Name)
		}
		total += d.Commonness
		for j, r := range d.Regions {
			if r.MaxHeight < 0 || r.MaxHeight > 1 {
				return fmt.Errorf("%w: biome %q region %d max_height %v outside [0,1]", ErrInvalidTable, d.Name, j, r.MaxHeight)
			}
		}
	}
	if total <= 0 {
		return fmt.Errorf("%w: commonness sums to zero", ErrInvalidTable)
	}
	return nil
}
