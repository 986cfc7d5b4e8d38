package parser

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalizeTags_SortedAndDeduped(t *testing.T) {
	canon, count, ok := canonicalizeTags([]tagPair{
		{key: "tagY", value: "20"},
		{key: "tagX", value: "10"},
	})
	require.True(t, ok)
	assert.Equal(t, `{"tagX":"10","tagY":"20"}`, canon)
	assert.Equal(t, 2, count)
}

// The canonical tags string is order-independent; duplicate keys collapse
// to the right-most value, and the key count equals distinct keys.
func TestCanonicalizeTags_OrderIndependentRightmostWins(t *testing.T) {
	a, _, _ := canonicalizeTags([]tagPair{{"a", "1"}, {"b", "2"}})
	b, _, _ := canonicalizeTags([]tagPair{{"b", "2"}, {"a", "1"}})
	assert.Equal(t, a, b)

	canon, count, ok := canonicalizeTags([]tagPair{
		{key: "a", value: "first"},
		{key: "a", value: "second"},
	})
	require.True(t, ok)
	assert.Equal(t, `{"a":"second"}`, canon)
	assert.Equal(t, 1, count)
}

func TestCanonicalizeTags_Empty(t *testing.T) {
	canon, count, ok := canonicalizeTags(nil)
	require.True(t, ok)
	assert.Equal(t, "", canon)
	assert.Equal(t, 0, count)
}

func TestCanonicalizeTags_TooLongRejects(t *testing.T) {
	var pairs []tagPair
	for i := 0; i < 600; i++ {
		pairs = append(pairs, tagPair{key: fmt.Sprintf("key%04d", i), value: "v"})
	}
	_, _, ok := canonicalizeTags(pairs)
	assert.False(t, ok)
}

func TestScanNumber(t *testing.T) {
	cases := []struct {
		in      string
		sign    Sign
		numeric string
		ok      bool
	}{
		{"1", SignNone, "1", true},
		{"+1", SignPlus, "1", true},
		{"-2", SignMinus, "2", true},
		{"3.14", SignNone, "3.14", true},
		{"1e10", SignNone, "1e10", true},
		{"-1.5e-3", SignMinus, "1.5e-3", true},
		{"", SignNone, "", false},
		{"abc", SignNone, "", false},
		{"1.2.3", SignNone, "", false},
		{"1e", SignNone, "", false},
		{".", SignNone, "", false},
	}
	for _, c := range cases {
		sign, numeric, ok := scanNumber(c.in)
		assert.Equal(t, c.ok, ok, "input %q", c.in)
		if c.ok {
			assert.Equal(t, c.sign, sign, "input %q", c.in)
			assert.Equal(t, c.numeric, numeric, "input %q", c.in)
		}
	}
}

func TestValidName(t *testing.T) {
	assert.True(t, validName("example"))
	assert.True(t, validName("a.b_c1"))
	assert.False(t, validName(""))
	assert.False(t, validName("1abc"))
	assert.False(t, validName("a-b"))
}
