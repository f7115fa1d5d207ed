package model

import (
	"fmt"
	"sync"
)

// Loader caches Artifacts by (vehicleId, version) under a model root
// directory, so a predictor processing many trips for the same model
// doesn't re-read and re-deserialize the artifact per job.
type Loader struct {
	root string

	mu    sync.Mutex
	cache map[string]*Artifact
}

// NewLoader returns a Loader rooted at root ({root}/{vehicleId}/{version}/).
func NewLoader(root string) *Loader {
	return &Loader{root: root, cache: make(map[string]*Artifact)}
}

// Load returns the cached Artifact for (vehicleId, version), loading and
// caching it from disk on first use. Returns ErrNotFound if either
// required artifact file is missing.
func (l *Loader) Load(vehicleID, version string) (*Artifact, error) {
	key := cacheKey(vehicleID, version)

	l.mu.Lock()
	if a, ok := l.cache[key]; ok {
		l.mu.Unlock()
		return a, nil
	}
	l.mu.Unlock()

	a, err := Load(Dir(l.root, vehicleID, version))
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	l.cache[key] = a
	l.mu.Unlock()
	return a, nil
}

// Invalidate drops any cached entry for (vehicleId, version), for callers
// that need to force a re-read after a re-train.
func (l *Loader) Invalidate(vehicleID, version string) {
	l.mu.Lock()
	delete(l.cache, cacheKey(vehicleID, version))
	l.mu.Unlock()
}

func cacheKey(vehicleID, version string) string {
	return fmt.Sprintf("%s@%s", vehicleID, version)
}
