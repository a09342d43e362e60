package phone

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDefault(t *testing.T) *Normalizer {
	t.Helper()
	return NewNormalizer(DefaultPlan(), DefaultOptions())
}

func TestNormalizeMobile(t *testing.T) {
	n := newDefault(t)

	num, ok := n.Normalize("077 123 4567")
	require.True(t, ok)
	assert.Equal(t, "+94771234567", num.International)
	assert.Equal(t, "0771234567", num.Local)
	assert.True(t, num.IsMobile)
	assert.Empty(t, num.Region)
	assert.Equal(t, "077 123 4567", num.Raw)
}

func TestNormalizeLandlineRegion(t *testing.T) {
	n := newDefault(t)

	num, ok := n.Normalize("011 234 5678")
	require.True(t, ok)
	assert.Equal(t, "+94112345678", num.International)
	assert.Equal(t, "0112345678", num.Local)
	assert.False(t, num.IsMobile)
	assert.Equal(t, "Colombo", num.Region)
}

func TestNormalizeInternationalPassthrough(t *testing.T) {
	n := newDefault(t)

	num, ok := n.Normalize("+94 81 223 4455")
	require.True(t, ok)
	assert.Equal(t, "+94812234455", num.International)
	assert.Equal(t, "0812234455", num.Local)
	assert.Equal(t, "Kandy", num.Region)
}

func TestNormalizeIdempotent(t *testing.T) {
	n := newDefault(t)

	first, ok := n.Normalize("077-123-4567")
	require.True(t, ok)

	second, ok := n.Normalize(first.International)
	require.True(t, ok)
	assert.Equal(t, first.International, second.International)
	assert.Equal(t, first.Local, second.Local)
	assert.Equal(t, first.IsMobile, second.IsMobile)
	assert.Equal(t, first.Region, second.Region)
}

func TestNormalizeRejectsWrongLength(t *testing.T) {
	n := newDefault(t)

	for _, raw := range []string{
		"077 123 456",      // too short
		"077 123 45678",    // too long
		"+4477 1234 5678",  // wrong country code
		"hello",            // no digits at all
		"",                 // empty
		"+94",              // country code only
	} {
		_, ok := n.Normalize(raw)
		assert.False(t, ok, "expected %q to be rejected", raw)
	}
}

func TestNormalizeUnknownLandlinePrefix(t *testing.T) {
	n := newDefault(t)

	// 94 is not in the area-code table and not mobile.
	num, ok := n.Normalize("094 123 4567")
	require.True(t, ok)
	assert.False(t, num.IsMobile)
	assert.Empty(t, num.Region)
}

func TestNormalizeBareNationalNumber(t *testing.T) {
	n := newDefault(t)

	// No trunk digit, no plus: treated as a national number.
	num, ok := n.Normalize("771234567")
	require.True(t, ok)
	assert.Equal(t, "+94771234567", num.International)
	assert.True(t, num.IsMobile)
}

func TestPermissiveMode(t *testing.T) {
	opts := DefaultOptions()
	opts.Validate = false
	n := NewNormalizer(DefaultPlan(), opts)

	num, ok := n.Normalize(" 123-abc ")
	require.True(t, ok)
	assert.Equal(t, "123-abc", num.International)

	_, ok = n.Normalize("   ")
	assert.False(t, ok)
}

func TestLocalReconstructsInternational(t *testing.T) {
	n := newDefault(t)
	plan := DefaultPlan()

	for _, raw := range []string{"0771234567", "+94112345678", "0452223334"} {
		num, ok := n.Normalize(raw)
		require.True(t, ok)
		assert.Len(t, num.International, 1+len(plan.CountryCode)+plan.NationalLength)
		assert.Equal(t, "+"+plan.CountryCode+num.Local[1:], num.International)
	}
}

func TestExtractCandidates(t *testing.T) {
	n := newDefault(t)

	text := "Phone: 011 234 5678 / 077 123 4567"
	got := n.ExtractCandidates(text)
	require.Len(t, got, 2)

	first, ok := n.Normalize(got[0])
	require.True(t, ok)
	assert.Equal(t, "+94112345678", first.International)

	second, ok := n.Normalize(got[1])
	require.True(t, ok)
	assert.Equal(t, "+94771234567", second.International)
}
