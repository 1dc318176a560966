package mpath

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildPath_Length(t *testing.T) {
	c := DefaultCodec()
	parents := []string{"", "0001", "00010002", "0001000200030004"}
	for _, p := range parents {
		for depth := 1; depth <= c.Depth(p)+1; depth++ {
			for _, step := range []int64{1, 2, 36, 1000, c.MaxSiblings()} {
				got, err := c.BuildPath(p, depth, step)
				require.NoError(t, err)
				require.Len(t, got, depth*c.StepLen)
				require.Equal(t, p[:(depth-1)*c.StepLen], got[:(depth-1)*c.StepLen])
			}
		}
	}
}

func TestBuildPath_KnownValues(t *testing.T) {
	c := DefaultCodec()

	root, err := c.BuildPath("", 1, 1)
	require.NoError(t, err)
	require.Equal(t, "0001", root)

	child, err := c.BuildPath(root, 2, 1)
	require.NoError(t, err)
	require.Equal(t, "00010001", child)

	// A deeper path is truncated to the requested ancestry.
	sibling, err := c.BuildPath("000100020003", 2, 11)
	require.NoError(t, err)
	require.Equal(t, "0001000B", sibling)
}

func TestBuildPath_SegmentOverflow(t *testing.T) {
	c := DefaultCodec()
	_, err := c.BuildPath("0001", 2, c.MaxSiblings()+1)
	require.ErrorIs(t, err, ErrPathOverflow)
}

func TestBuildPath_ColumnOverflow(t *testing.T) {
	c, err := NewCodec(DefaultAlphabet, 4, 8)
	require.NoError(t, err)

	p, err := c.BuildPath("00010001", 2, 2)
	require.NoError(t, err)
	require.Equal(t, "00010002", p)

	_, err = c.BuildPath("00010001", 3, 1)
	require.ErrorIs(t, err, ErrPathOverflow)
}

func TestBuildPath_Malformed(t *testing.T) {
	c := DefaultCodec()
	_, err := c.BuildPath("", 0, 1)
	require.ErrorIs(t, err, ErrMalformedPath)
	_, err = c.BuildPath("0001", 3, 1)
	require.ErrorIs(t, err, ErrMalformedPath)
}

func TestIncrement(t *testing.T) {
	c := DefaultCodec()
	tests := []struct {
		in, want string
	}{
		{"0001", "0002"},
		{"0009", "000A"},
		{"000Z", "0010"},
		{"00010001", "00010002"},
		{"0001000Z00ZZ", "0001000Z0100"},
	}
	for _, tt := range tests {
		got, err := c.Increment(tt.in)
		require.NoError(t, err)
		require.Equal(t, tt.want, got)
	}
}

func TestIncrement_PreservesAncestors(t *testing.T) {
	c := DefaultCodec()
	path := "0003000700ZZ"
	for i := 0; i < 200; i++ {
		next, err := c.Increment(path)
		require.NoError(t, err)
		require.Equal(t, c.ParentPath(path), c.ParentPath(next))

		before, err := c.Step(path)
		require.NoError(t, err)
		after, err := c.Step(next)
		require.NoError(t, err)
		require.Equal(t, before+1, after)
		require.Less(t, path, next)
		path = next
	}
}

func TestIncrement_Overflow(t *testing.T) {
	c := DefaultCodec()
	_, err := c.Increment("0001ZZZZ")
	require.ErrorIs(t, err, ErrPathOverflow)
}

func TestIncrement_BadInput(t *testing.T) {
	c := DefaultCodec()
	_, err := c.Increment("001")
	require.ErrorIs(t, err, ErrMalformedPath)
	_, err = c.Increment("00a1")
	require.ErrorIs(t, err, ErrInvalidSymbol)
}

func TestLexicographicOrderIsPreorder(t *testing.T) {
	c := DefaultCodec()
	// Pre-order: A, A.1, A.1.1, A.2, B
	a, _ := c.BuildPath("", 1, 1)
	a1, _ := c.BuildPath(a, 2, 1)
	a11, _ := c.BuildPath(a1, 3, 1)
	a2, _ := c.BuildPath(a, 2, 2)
	b, _ := c.BuildPath("", 1, 2)
	want := []string{a, a1, a11, a2, b}

	got := []string{b, a2, a11, a, a1}
	sort.Strings(got)
	require.Equal(t, want, got)
}

func TestPathHelpers(t *testing.T) {
	c := DefaultCodec()
	path := "000100020003"

	require.Equal(t, 3, c.Depth(path))
	require.Equal(t, "00010002", c.ParentPath(path))
	require.Equal(t, "", c.ParentPath("0001"))
	require.Equal(t, []string{"0001", "00010002"}, c.AncestorPaths(path))
	require.Nil(t, c.AncestorPaths("0001"))
	require.Equal(t, []string{"0001", "0002", "0003"}, c.Segments(path))

	step, err := c.Step(path)
	require.NoError(t, err)
	require.Equal(t, int64(3), step)

	require.True(t, IsDescendant(path, "0001"))
	require.False(t, IsDescendant("0001", "0001"))
	require.False(t, IsDescendant("00020001", "0001"))
	require.Equal(t, 63, c.MaxDepth())
}

func TestValidatePath(t *testing.T) {
	c := DefaultCodec()
	require.NoError(t, c.ValidatePath("0001000Z"))
	require.ErrorIs(t, c.ValidatePath(""), ErrMalformedPath)
	require.ErrorIs(t, c.ValidatePath("00010"), ErrMalformedPath)
	require.ErrorIs(t, c.ValidatePath("0001000z"), ErrInvalidSymbol)

	narrow, err := NewCodec(DefaultAlphabet, 4, 4)
	require.NoError(t, err)
	require.ErrorIs(t, narrow.ValidatePath("00010001"), ErrPathOverflow)
}
