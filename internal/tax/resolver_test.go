package tax

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestResolveIntraRegion(t *testing.T) {
	resolver := NewDefaultResolver()

	split := resolver.Resolve("Karnataka", "Karnataka")

	assert.True(t, split.CGST.Equal(decimal.NewFromFloat(1.5)))
	assert.True(t, split.SGST.Equal(decimal.NewFromFloat(1.5)))
	assert.True(t, split.IGST.IsZero())
	assert.False(t, split.ReviewRequired)
	assert.True(t, split.RateSum().Equal(decimal.NewFromInt(3)))
}

func TestResolveInterRegion(t *testing.T) {
	resolver := NewDefaultResolver()

	split := resolver.Resolve("Karnataka", "Maharashtra")

	assert.True(t, split.CGST.IsZero())
	assert.True(t, split.SGST.IsZero())
	assert.True(t, split.IGST.Equal(decimal.NewFromInt(3)))
	assert.False(t, split.ReviewRequired)
}

func TestResolveRegionComparisonIsCaseInsensitive(t *testing.T) {
	resolver := NewDefaultResolver()

	split := resolver.Resolve("  karnataka ", "KARNATAKA")

	assert.True(t, split.CGST.Equal(decimal.NewFromFloat(1.5)))
	assert.True(t, split.IGST.IsZero())
}

func TestResolveBlankRegionFlagsReview(t *testing.T) {
	resolver := NewDefaultResolver()

	for _, pair := range [][2]string{
		{"", "Karnataka"},
		{"Karnataka", ""},
		{"", ""},
		{"   ", "Karnataka"},
	} {
		split := resolver.Resolve(pair[0], pair[1])
		assert.True(t, split.ReviewRequired, "pair %v", pair)
		assert.True(t, split.IGST.Equal(decimal.NewFromInt(3)), "pair %v", pair)
		assert.True(t, split.CGST.IsZero(), "pair %v", pair)
		assert.False(t, split.RateSum().IsZero(), "blank regions must never tax at zero")
	}
}
