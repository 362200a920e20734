// Package profile defines the static per-asset configuration that selects
// which guards and features apply to an asset. One engine, many profiles:
// every downstream branch keys off explicit profile fields, never off type
// identity.
package profile

import "fmt"

// Class is the asset class of a profile.
type Class string

const (
	Equity            Class = "EQUITY"
	CommodityHaven    Class = "COMMODITY_HAVEN"
	CommodityCyclical Class = "COMMODITY_CYCLICAL"
	Forex             Class = "FOREX"
)

func (c Class) valid() bool {
	switch c {
	case Equity, CommodityHaven, CommodityCyclical, Forex:
		return true
	}
	return false
}

// IsForex reports whether the class trades around the clock. Forex assets
// skip the VIX/event guards and use clock-hour order TTLs.
func (c Class) IsForex() bool { return c == Forex }

// Direction is the regime side an asset wants its regime index on.
type Direction string

const (
	Bull Direction = "BULL"
	Bear Direction = "BEAR"
	Any  Direction = "ANY"
)

func (d Direction) valid() bool {
	switch d {
	case Bull, Bear, Any:
		return true
	}
	return false
}

// Feature-vector sizes implied by the profile. Forex profiles drop the two
// volume features (OBV, volume ratio).
const (
	FeatureSizeFull     = 14
	FeatureSizeNoVolume = 12
)

// AssetProfile is the immutable per-asset configuration record.
type AssetProfile struct {
	Asset          string    `yaml:"asset"`
	Class          Class     `yaml:"class"`
	RegimeIndex    string    `yaml:"regime_index"`
	RegimeDir      Direction `yaml:"regime_direction"`
	VIXGuard       bool      `yaml:"vix_guard"`
	EventGuard     bool      `yaml:"event_guard"`
	VolumeFeatures bool      `yaml:"volume_features"`
	Benchmark      string    `yaml:"benchmark,omitempty"`
	Group          string    `yaml:"group"`
}

// FeatureSize returns the feature-vector length the scoring model expects
// for this profile.
func (p AssetProfile) FeatureSize() int {
	if !p.VolumeFeatures {
		return FeatureSizeNoVolume
	}
	return FeatureSizeFull
}

// ConfigError marks a malformed or missing profile. It aborts evaluation for
// that asset only; other assets in the cycle are unaffected.
type ConfigError struct {
	Asset  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("profile %s: %s", e.Asset, e.Reason)
}

// Validate checks structural validity plus the forex invariant: forex assets
// never evaluate the VIX or event guards and never pin a regime direction.
func (p AssetProfile) Validate() error {
	fail := func(reason string) error {
		return &ConfigError{Asset: p.Asset, Reason: reason}
	}

	if p.Asset == "" {
		return fail("missing asset id")
	}
	if !p.Class.valid() {
		return fail(fmt.Sprintf("unknown class %q", p.Class))
	}
	if !p.RegimeDir.valid() {
		return fail(fmt.Sprintf("unknown regime direction %q", p.RegimeDir))
	}
	if p.RegimeDir != Any && p.RegimeIndex == "" {
		return fail("regime direction set without a regime index")
	}
	if p.Group == "" {
		return fail("missing concentration group")
	}
	if p.Class == Forex {
		if p.VIXGuard {
			return fail("forex profile must not enable the vix guard")
		}
		if p.EventGuard {
			return fail("forex profile must not enable the event guard")
		}
		if p.RegimeDir != Any {
			return fail("forex profile must use regime direction ANY")
		}
		if p.VolumeFeatures {
			return fail("forex profile must not enable volume features")
		}
	}
	return nil
}
