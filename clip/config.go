package clip

import (
	"errors"
	"fmt"

	"github.com/soypat/meshclip"
	"github.com/soypat/meshclip/implicit"
)

// DefaultBatchSize is the number of cells per work unit when Config.BatchSize is zero.
const DefaultBatchSize = 1000

// ClipScalarsName is the name of the point array added to the output when
// Config.GenerateClipScalars is set.
const ClipScalarsName = "ClipDataSetScalars"

var (
	// ErrNoScalars is returned when neither a function nor a point scalar array is available.
	ErrNoScalars = errors.New("clip: no scalars to clip with")
	// ErrClipScalarsNeedFunction is returned when clip scalars are requested without a function.
	ErrClipScalarsNeedFunction = errors.New("clip: cannot generate clip scalars if no clip function defined")
	// ErrBadScalars is returned for scalar arrays of the wrong shape.
	ErrBadScalars = errors.New("clip: bad scalar array")
)

// Config controls a clip.
type Config struct {
	// Value is the threshold. Points with scalar >= Value are above it.
	Value float64
	// InsideOut keeps the part below the threshold instead of the part above.
	InsideOut bool
	// BatchSize is the number of cells per parallel work unit. Zero selects DefaultBatchSize.
	BatchSize int
	// GenerateClipScalars attaches the sampled Function values to the output
	// as point array ClipScalarsName.
	GenerateClipScalars bool
	// Function, when set, is sampled at every point to obtain the scalars.
	Function implicit.Function
	// Scalars names the point array to clip by when Function is nil.
	// Empty selects the active point scalars.
	Scalars string
	// IgnoreValueOffset clips Function at zero instead of Value.
	IgnoreValueOffset bool
	// Workers is the number of goroutines. Zero uses GOMAXPROCS.
	Workers int
}

func (cfg Config) batchSize() int {
	if cfg.BatchSize <= 0 {
		return DefaultBatchSize
	}
	return cfg.BatchSize
}

func (cfg Config) threshold() float64 {
	if cfg.Function != nil && cfg.IgnoreValueOffset {
		return 0
	}
	return cfg.Value
}

// keptColor is the side of the threshold the output covers.
func (cfg Config) keptColor() color {
	if cfg.InsideOut {
		return below
	}
	return above
}

func colorOf(diff float64) color {
	if diff >= 0 {
		return above
	}
	return below
}

// scalarArray returns the point array to clip by, or nil when a Function is set.
func (cfg Config) scalarArray(ds meshclip.Dataset) (*meshclip.Array, error) {
	if cfg.GenerateClipScalars && cfg.Function == nil {
		return nil, ErrClipScalarsNeedFunction
	}
	if cfg.Function != nil {
		return nil, nil
	}
	pd := ds.PointAttributes()
	var arr *meshclip.Array
	if cfg.Scalars != "" {
		arr = pd.Get(cfg.Scalars)
	} else {
		arr = pd.Scalars()
	}
	switch {
	case arr == nil:
		return nil, ErrNoScalars
	case arr.Components != 1:
		return nil, fmt.Errorf("%w: %q has %d components", ErrBadScalars, arr.Name, arr.Components)
	case arr.Len() != ds.NumPoints():
		return nil, fmt.Errorf("%w: %q has %d values for %d points", ErrBadScalars, arr.Name, arr.Len(), ds.NumPoints())
	}
	return arr, nil
}
