package cache

// keyVersion is bumped whenever the cached diagram format changes.
const keyVersion = "v1"

// Keyer builds cache keys.
type Keyer interface {
	// DiagramKey keys a pipeline result by snapshot hash and the
	// effective layout options.
	DiagramKey(snapshotHash, options string) string

	// ArtifactKey keys a rendered artifact by diagram hash and format.
	ArtifactKey(diagramHash, format string) string
}

// DefaultKeyer produces "diagram:<hash>" and "artifact:<hash>" keys.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// DiagramKey implements [Keyer].
func (DefaultKeyer) DiagramKey(snapshotHash, options string) string {
	return hashKey("diagram", keyVersion, snapshotHash, options)
}

// ArtifactKey implements [Keyer].
func (DefaultKeyer) ArtifactKey(diagramHash, format string) string {
	return hashKey("artifact", keyVersion, diagramHash, format)
}
