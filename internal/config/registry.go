package config

import (
	"fmt"
)

// Registry is the immutable library lookup constructed once at startup and
// passed into every engine component. Multiple isolated registries can
// coexist, which the tests rely on.
type Registry struct {
	libraries map[string]Library
	ordered   []Library
	limits    Limits
	upload    string
	dam       DAM
}

// NewRegistry builds a registry from a validated configuration.
func NewRegistry(cfg *Config) (*Registry, error) {
	if len(cfg.Libraries) == 0 {
		return nil, fmt.Errorf("no libraries configured")
	}
	byID := make(map[string]Library, len(cfg.Libraries))
	ordered := make([]Library, len(cfg.Libraries))
	copy(ordered, cfg.Libraries)
	for _, lib := range cfg.Libraries {
		if _, dup := byID[lib.ID]; dup {
			return nil, fmt.Errorf("duplicate library id %q", lib.ID)
		}
		byID[lib.ID] = lib
	}
	return &Registry{
		libraries: byID,
		ordered:   ordered,
		limits:    cfg.Limits,
		upload:    cfg.UploadRoot,
		dam:       cfg.DAM,
	}, nil
}

// Library returns the library with the given id.
func (r *Registry) Library(id string) (Library, bool) {
	lib, ok := r.libraries[id]
	return lib, ok
}

// Libraries returns the configured libraries in configuration order.
func (r *Registry) Libraries() []Library {
	out := make([]Library, len(r.ordered))
	copy(out, r.ordered)
	return out
}

// Limits returns the configured operation bounds.
func (r *Registry) Limits() Limits {
	return r.limits
}

// UploadRoot returns the directory that receives upload batches.
func (r *Registry) UploadRoot() string {
	return r.upload
}

// DAM returns the digital asset manager configuration.
func (r *Registry) DAM() DAM {
	return r.dam
}
