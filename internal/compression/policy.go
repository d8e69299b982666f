// Package compression maps a quality tier to concrete PDF codec knobs.
package compression

import (
	"strings"

	"github.com/local/docsuite/internal/domain"
)

// MaxImageComponents is the exclusive upper bound on colour channels (alpha
// excluded) for an embedded image to be re-encoded as JPEG.
const MaxImageComponents = 4

// Params are the codec settings for one tier.
type Params struct {
	Tier domain.QualityTier
	// ImageQuality is the JPEG quality for embedded images; 0 leaves images untouched.
	ImageQuality int
	// GarbageLevel grows with aggressiveness: 2 drops unreferenced objects,
	// 3 also merges duplicate resources, 4 also packs objects into object streams.
	GarbageLevel int
	Deflate      bool
	Clean        bool
	Pretty       bool
}

// DedupeResources reports whether duplicate fonts, images and content streams are merged.
func (p Params) DedupeResources() bool { return p.GarbageLevel >= 3 }

// ObjectStreams reports whether objects and the xref table are packed into streams.
func (p Params) ObjectStreams() bool { return p.GarbageLevel >= 4 }

// ReencodesImages reports whether any embedded image may be rewritten.
func (p Params) ReencodesImages() bool { return p.ImageQuality > 0 }

// ShouldReencode reports whether an image with the given channel count
// (alpha excluded) is compatible with JPEG re-encoding under p.
func (p Params) ShouldReencode(components int) bool {
	return p.ReencodesImages() && components > 0 && components < MaxImageComponents
}

var tiers = map[domain.QualityTier]Params{
	domain.QualityLow:    {Tier: domain.QualityLow, ImageQuality: 30, GarbageLevel: 4, Deflate: true, Clean: true},
	domain.QualityMedium: {Tier: domain.QualityMedium, ImageQuality: 60, GarbageLevel: 3, Deflate: true, Clean: true},
	domain.QualityHigh:   {Tier: domain.QualityHigh, ImageQuality: 0, GarbageLevel: 2, Deflate: true, Clean: true},
}

// ParseTier validates a raw quality value. An empty value selects medium.
func ParseTier(raw string) (domain.QualityTier, error) {
	v := strings.ToLower(strings.TrimSpace(raw))
	if v == "" {
		return domain.QualityMedium, nil
	}
	if _, ok := tiers[domain.QualityTier(v)]; !ok {
		return "", domain.InvalidQualityTierError(raw)
	}
	return domain.QualityTier(v), nil
}

// For returns the codec settings for tier.
func For(tier domain.QualityTier) (Params, error) {
	p, ok := tiers[tier]
	if !ok {
		return Params{}, domain.InvalidQualityTierError(string(tier))
	}
	return p, nil
}
