package profile

import "sort"

// Resolver holds the validated profile set for one evaluation cycle.
// Profiles that fail validation are remembered with their ConfigError so the
// failure stays isolated to that asset.
type Resolver struct {
	profiles map[string]AssetProfile
	bad      map[string]error
}

// NewResolver validates each record and indexes it by asset id. A later
// record for the same asset replaces the earlier one.
func NewResolver(records []AssetProfile) *Resolver {
	r := &Resolver{
		profiles: make(map[string]AssetProfile, len(records)),
		bad:      make(map[string]error),
	}
	for _, rec := range records {
		if err := rec.Validate(); err != nil {
			if rec.Asset != "" {
				r.bad[rec.Asset] = err
			}
			continue
		}
		r.profiles[rec.Asset] = rec
		delete(r.bad, rec.Asset)
	}
	return r
}

// Resolve returns the profile for an asset, or a ConfigError when the asset
// is unknown or its record failed validation.
func (r *Resolver) Resolve(asset string) (AssetProfile, error) {
	if p, ok := r.profiles[asset]; ok {
		return p, nil
	}
	if err, ok := r.bad[asset]; ok {
		return AssetProfile{}, err
	}
	return AssetProfile{}, &ConfigError{Asset: asset, Reason: "no profile configured"}
}

// Assets returns the valid asset ids in lexical order. The fixed order keeps
// every per-day loop deterministic.
func (r *Resolver) Assets() []string {
	out := make([]string, 0, len(r.profiles))
	for asset := range r.profiles {
		out = append(out, asset)
	}
	sort.Strings(out)
	return out
}

// Invalid returns the asset ids whose records failed validation, lexically
// ordered, so callers can report them once per cycle.
func (r *Resolver) Invalid() []string {
	out := make([]string, 0, len(r.bad))
	for asset := range r.bad {
		out = append(out, asset)
	}
	sort.Strings(out)
	return out
}
