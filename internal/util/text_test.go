package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripControl(t *testing.T) {
	assert.Equal(t, "ab c", StripControl("a\x00b\tc\u200b"))
	assert.Equal(t, "伝票", StripControl("\ufeff伝票\x07"))
	assert.Equal(t, "", StripControl(""))
}

func TestFoldWidth(t *testing.T) {
	assert.Equal(t, "10001", FoldWidth("１０００１"))
	assert.Equal(t, "伝票No.:", FoldWidth("伝票Ｎｏ．："))
	assert.Equal(t, "トマト", FoldWidth("ﾄﾏﾄ"))
}

func TestIsBareNumber(t *testing.T) {
	for _, s := range []string{"10001", "1,200", "-3", "2.5", " 42 "} {
		assert.True(t, IsBareNumber(s), s)
	}
	for _, s := range []string{"", "200g", "1/2", "No.1", "1.2.3"} {
		assert.False(t, IsBareNumber(s), s)
	}
}

func TestNormalizeSpaces(t *testing.T) {
	assert.Equal(t, "トマト 10 kg", NormalizeSpaces("  トマト \t 10   kg "))
}
