package compression

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/local/docsuite/internal/domain"
)

func TestParseTier(t *testing.T) {
	tests := []struct {
		raw     string
		want    domain.QualityTier
		wantErr bool
	}{
		{"low", domain.QualityLow, false},
		{"MEDIUM", domain.QualityMedium, false},
		{" high ", domain.QualityHigh, false},
		{"", domain.QualityMedium, false},
		{"invalid", "", true},
		{"max", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseTier(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, domain.IsValidation(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTierKnobs(t *testing.T) {
	low, err := For(domain.QualityLow)
	require.NoError(t, err)
	medium, err := For(domain.QualityMedium)
	require.NoError(t, err)
	high, err := For(domain.QualityHigh)
	require.NoError(t, err)

	assert.Equal(t, 30, low.ImageQuality)
	assert.Equal(t, 60, medium.ImageQuality)
	assert.False(t, high.ReencodesImages())

	assert.Greater(t, low.GarbageLevel, medium.GarbageLevel)
	assert.Greater(t, medium.GarbageLevel, high.GarbageLevel)
	assert.True(t, low.ObjectStreams())
	assert.False(t, medium.ObjectStreams())
	assert.True(t, medium.DedupeResources())
	assert.False(t, high.DedupeResources())

	for _, p := range []Params{low, medium, high} {
		assert.True(t, p.Deflate)
		assert.True(t, p.Clean)
		assert.False(t, p.Pretty)
	}

	_, err = For("ultra")
	assert.Error(t, err)
}

func TestShouldReencode(t *testing.T) {
	low, _ := For(domain.QualityLow)
	high, _ := For(domain.QualityHigh)

	assert.True(t, low.ShouldReencode(1))
	assert.True(t, low.ShouldReencode(3))
	assert.False(t, low.ShouldReencode(4), "CMYK is left alone")
	assert.False(t, low.ShouldReencode(0))
	assert.False(t, high.ShouldReencode(3))
}
