package diff

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFirstDivergence_Prefix(t *testing.T) {
	d, ok := FirstDivergence("abc", "ab")
	require.True(t, ok)
	assert.Equal(t, ExpectedLonger, d.Kind)
	assert.Equal(t, "the expectation is longer than the actual output", d.String())

	d, ok = FirstDivergence("ab", "abc")
	require.True(t, ok)
	assert.Equal(t, ExpectedShorter, d.Kind)
	assert.Equal(t, "the expectation is shorter than the actual output", d.String())
}

func TestFirstDivergence_ContentMismatch(t *testing.T) {
	d, ok := FirstDivergence("line1\nAB", "line1\nAC")
	require.True(t, ok)
	assert.Equal(t, Divergence{Kind: Mismatch, Line: 1, Column: 1, Expected: 'B', Actual: 'C'}, d)
	assert.Equal(t, "1:1: expected 'B', got 'C'", d.String())
}

func TestFirstDivergence_Equal(t *testing.T) {
	for _, s := range []string{"", "a", "line1\nline2\n", "äöü"} {
		d, ok := FirstDivergence(s, s)
		assert.False(t, ok, "texts %q should be equal", s)
		assert.Equal(t, Divergence{}, d)
		assert.Equal(t, "no difference", d.String())
	}
}

func TestFirstDivergence_FirstLine(t *testing.T) {
	d, ok := FirstDivergence("hello", "hallo")
	require.True(t, ok)
	assert.Equal(t, Divergence{Kind: Mismatch, Line: 0, Column: 1, Expected: 'e', Actual: 'a'}, d)
}

// Boundary cases around text lengths and newlines are pinned explicitly
// because the position reported there depends on counter ordering.
func TestFirstDivergence_Boundaries(t *testing.T) {
	testCases := []struct {
		name     string
		expected string
		actual   string
		want     Divergence
	}{
		{
			name:     "empty expected",
			expected: "",
			actual:   "x",
			want:     Divergence{Kind: ExpectedShorter},
		},
		{
			name:     "empty actual",
			expected: "x",
			actual:   "",
			want:     Divergence{Kind: ExpectedLonger},
		},
		{
			name:     "missing trailing newline",
			expected: "out\n",
			actual:   "out",
			want:     Divergence{Kind: ExpectedLonger},
		},
		{
			name:     "extra trailing newline",
			expected: "out",
			actual:   "out\n",
			want:     Divergence{Kind: ExpectedShorter},
		},
		{
			name:     "newline replaced",
			expected: "ab\ncd",
			actual:   "ab cd",
			want:     Divergence{Kind: Mismatch, Line: 0, Column: 2, Expected: '\n', Actual: ' '},
		},
		{
			name:     "first char after newline",
			expected: "ab\ncd",
			actual:   "ab\nxd",
			want:     Divergence{Kind: Mismatch, Line: 1, Column: 0, Expected: 'c', Actual: 'x'},
		},
		{
			name:     "lines counted in expected frame",
			expected: "a\nb\nc\nZ",
			actual:   "a\nb\nc\nY",
			want:     Divergence{Kind: Mismatch, Line: 3, Column: 0, Expected: 'Z', Actual: 'Y'},
		},
		{
			name:     "multi-byte runes count once",
			expected: "äöx",
			actual:   "äöy",
			want:     Divergence{Kind: Mismatch, Line: 0, Column: 2, Expected: 'x', Actual: 'y'},
		},
		{
			name:     "mismatch preferred over later length difference",
			expected: "abc",
			actual:   "xbcdef",
			want:     Divergence{Kind: Mismatch, Line: 0, Column: 0, Expected: 'a', Actual: 'x'},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := FirstDivergence(tc.expected, tc.actual)
			require.True(t, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "mismatch", Mismatch.String())
	assert.Equal(t, "shorter", ExpectedShorter.String())
	assert.Equal(t, "longer", ExpectedLonger.String())
	assert.Equal(t, "Kind(0)", Kind(0).String())
}

func TestMismatchStringQuotesControlCharacters(t *testing.T) {
	d := Divergence{Kind: Mismatch, Line: 2, Column: 5, Expected: '\n', Actual: '\t'}
	assert.Equal(t, `2:5: expected '\n', got '\t'`, d.String())
}

func TestFirstDivergence_InvalidUTF8(t *testing.T) {
	testCases := []struct {
		name     string
		expected string
		actual   string
		want     Divergence
		message  string
	}{
		{
			name:     "different invalid bytes",
			expected: "a\xfeb",
			actual:   "a\xffb",
			want: Divergence{Kind: Mismatch, Line: 0, Column: 1, Expected: '\uFFFD', Actual: '\uFFFD',
				ExpectedByte: "\xfe", ActualByte: "\xff"},
			message: `0:1: expected "\xfe", got "\xff"`,
		},
		{
			name:     "invalid byte against replacement character",
			expected: "ok \xff\n",
			actual:   "ok \uFFFD\n",
			want:     Divergence{Kind: Mismatch, Line: 0, Column: 3, Expected: '\uFFFD', Actual: '\uFFFD', ExpectedByte: "\xff"},
			message:  "0:3: expected \"\\xff\", got '\uFFFD'",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := FirstDivergence(tc.expected, tc.actual)
			require.True(t, ok)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.message, got.String())
		})
	}

	_, ok := FirstDivergence("ok \xff\n", "ok \xff\n")
	assert.False(t, ok)
}
