package locator

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseReaderURL(t *testing.T) {
	loc, err := Parse("https://ranobelib.me/ru/book/195738--mushoku-tensei/v1/c1")
	require.NoError(t, err)

	require.Equal(t, "https://ranobelib.me/ru/book/195738--mushoku-tensei", loc.Base)
	require.Equal(t, "1", loc.Volume)
	require.Equal(t, 1, loc.Chapter)
	require.False(t, loc.IsOpaque())
	require.Equal(t, "https://ranobelib.me/ru/book/195738--mushoku-tensei/v1/c1", loc.URL())
}

func TestParseTrailingSlash(t *testing.T) {
	loc, err := Parse("https://ranobe.org/r/42--some-novel/v2/c17/")
	require.NoError(t, err)

	require.Equal(t, 17, loc.Chapter)
	require.Equal(t, "https://ranobe.org/r/42--some-novel/v2/c17", loc.URL())
}

func TestZeroPaddingPreserved(t *testing.T) {
	loc, err := Parse("https://ranobelib.me/ru/book/1--test/v01/c09")
	require.NoError(t, err)
	require.Equal(t, "01", loc.Volume)

	next, err := loc.Next()
	require.NoError(t, err)
	require.Equal(t, 10, next.Chapter)
	require.Equal(t, "https://ranobelib.me/ru/book/1--test/v01/c10", next.URL())

	wide, err := loc.WithChapter(5)
	require.NoError(t, err)
	require.Equal(t, "https://ranobelib.me/ru/book/1--test/v01/c05", wide.URL())
}

func TestParseOpaque(t *testing.T) {
	loc, err := Parse("https://example.com/novels/chapter-five")
	require.ErrorIs(t, err, ErrNoPattern)

	require.True(t, loc.IsOpaque())
	require.Equal(t, "https://example.com/novels/chapter-five", loc.URL())

	_, err = loc.Next()
	require.ErrorIs(t, err, ErrNoPattern)
}

func TestParseEmpty(t *testing.T) {
	_, err := Parse("   ")
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrNoPattern)
}

func TestWithChapterInvalid(t *testing.T) {
	loc, err := Parse("https://ranobelib.me/ru/book/1--test/v1/c1")
	require.NoError(t, err)

	_, err = loc.WithChapter(0)
	require.Error(t, err)
}

func TestOpaqueConstructor(t *testing.T) {
	loc := Opaque("  https://example.com/next  ")
	require.True(t, loc.IsOpaque())
	require.Equal(t, "https://example.com/next", loc.URL())
}

func TestNovelSlug(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://ranobelib.me/ru/book/195738--mushoku-tensei/v1/c1", "mushoku-tensei"},
		{"https://ranobe.org/r/42--overlord/v3/c12", "overlord"},
		{"https://example.com/some/other/path", "unknown-novel"},
	}

	for _, tt := range tests {
		require.Equal(t, tt.want, NovelSlug(tt.url), tt.url)
	}
}
