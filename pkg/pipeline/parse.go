package pipeline

import (
	"encoding/json"

	"github.com/matzehuels/tracemap/pkg/cache"
	"github.com/matzehuels/tracemap/pkg/collect"
	"github.com/matzehuels/tracemap/pkg/diag"
	"github.com/matzehuels/tracemap/pkg/entity"
	"github.com/matzehuels/tracemap/pkg/layout"
)

// Prepare runs the collection and relationship stages.
func Prepare(snap entity.Snapshot, sink diag.Sink) layout.Input {
	return layout.NewInput(collect.Collect(snap.Groups, sink), sink)
}

// SnapshotHash returns the content hash of snap. Field order is fixed by
// the struct definitions, so equal snapshots hash equally.
func SnapshotHash(snap entity.Snapshot) (string, error) {
	data, err := json.Marshal(snap)
	if err != nil {
		return "", err
	}
	return cache.Hash(data), nil
}
