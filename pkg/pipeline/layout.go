package pipeline

import (
	"github.com/matzehuels/tracemap/pkg/layout"
	"github.com/matzehuels/tracemap/pkg/layout/clustered"
	"github.com/matzehuels/tracemap/pkg/layout/columnar"
)

// Layouters maps each strategy to its implementation.
var Layouters = map[layout.Strategy]layout.Layouter{
	layout.StrategyClustered: clustered.Layouter{},
	layout.StrategyColumnar:  columnar.Layouter{},
}

// layouterFor returns the layouter for cfg.Strategy, which has already
// been validated and defaulted.
func layouterFor(cfg layout.Config) layout.Layouter {
	if l, ok := Layouters[cfg.Strategy]; ok {
		return l
	}
	return clustered.Layouter{}
}
