package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseQuantity(t *testing.T) {
	cases := []struct {
		name     string
		quantity string
		unit     string
		want     *float64
		wantRaw  string
		wantUnit string
	}{
		{name: "embedded unit", quantity: "200g", want: FloatPtr(200), wantRaw: "200g", wantUnit: "g"},
		{name: "embedded unit with space", quantity: "1.5 kg", want: FloatPtr(1.5), wantRaw: "1.5 kg", wantUnit: "kg"},
		{name: "fraction stays opaque", quantity: "1/2", wantRaw: "1/2"},
		{name: "words pass through", quantity: "少々", wantRaw: "少々"},
		{name: "unit given", quantity: "2", unit: "l", want: FloatPtr(2), wantRaw: "2", wantUnit: "l"},
		{name: "unit given, unit trimmed", quantity: " 3 ", unit: " cup ", want: FloatPtr(3), wantRaw: " 3 ", wantUnit: "cup"},
		{name: "words pass through, unit trimmed", quantity: "abc", unit: " l", wantRaw: "abc", wantUnit: "l"},
		{name: "unit given, no inference", quantity: "200g", unit: "個", wantRaw: "200g", wantUnit: "個"},
		{name: "yen and thousands", quantity: "¥1,200", want: FloatPtr(1200), wantRaw: "¥1,200"},
		{name: "yen suffix", quantity: "3,500円", want: FloatPtr(3500), wantRaw: "3,500円"},
		{name: "dollar decimal", quantity: "$3.50", want: FloatPtr(3.5), wantRaw: "$3.50"},
		{name: "full width digits", quantity: "２００ｇ", want: FloatPtr(200), wantRaw: "２００ｇ", wantUnit: "g"},
		{name: "empty", quantity: "", wantRaw: ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ParseQuantity(tc.quantity, tc.unit)
			if tc.want == nil {
				assert.Nil(t, got.Quantity)
			} else {
				require.NotNil(t, got.Quantity)
				assert.Equal(t, *tc.want, *got.Quantity)
			}
			assert.Equal(t, tc.wantRaw, got.Raw)
			assert.Equal(t, tc.wantUnit, got.Unit)
		})
	}
}

func TestParseQuantityPassthroughKeepsUnit(t *testing.T) {
	got := ParseQuantity("ひとつまみ", "g")
	assert.Nil(t, got.Quantity)
	assert.Equal(t, "ひとつまみ", got.Text())
	assert.Equal(t, "g", got.Unit)
}

func TestParseQuantityPassthroughUnitCanonicalizes(t *testing.T) {
	table := DefaultUnitTable()
	opaque := table.Apply(ParseQuantity("適量", " l"))
	numeric := table.Apply(ParseQuantity("2", " l"))

	assert.Equal(t, "ml", opaque.Unit)
	assert.Equal(t, "適量", opaque.Text())
	assert.Equal(t, "ml", numeric.Unit)
}

func TestParsePrice(t *testing.T) {
	v, ok := ParsePrice("¥12,345")
	require.True(t, ok)
	assert.Equal(t, 12345.0, v)

	v, ok = ParsePrice("$3.505")
	require.True(t, ok)
	assert.Equal(t, 3.51, v)

	v, ok = ParsePrice("1,200円")
	require.True(t, ok)
	assert.Equal(t, 1200.0, v)

	_, ok = ParsePrice("12個")
	assert.False(t, ok)
}
