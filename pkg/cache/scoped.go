package cache

// ScopedKeyer prefixes every key of an inner keyer, so several
// deployments (or the CLI and a server) can share one Redis database:
//
//	keyer := cache.NewScopedKeyer(nil, "tracemap:serve:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer wraps inner, or [DefaultKeyer] when inner is nil.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

// DiagramKey implements [Keyer].
func (k *ScopedKeyer) DiagramKey(snapshotHash, options string) string {
	return k.prefix + k.inner.DiagramKey(snapshotHash, options)
}

// ArtifactKey implements [Keyer].
func (k *ScopedKeyer) ArtifactKey(diagramHash, format string) string {
	return k.prefix + k.inner.ArtifactKey(diagramHash, format)
}
