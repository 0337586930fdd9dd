package errors

import (
	"log/slog"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAnnotatedError(t *testing.T) {
	err := New("test error", slog.String("id", "123"))
	require.Equal(t, "test error", err.Error())

	// Assert that wrapping sentinel errors work as expected.
	sentinel := NewSentinel("test error")
	require.NotErrorIs(t, err, NewSentinel("test error"))
	wrapped := err.Wrap(sentinel)
	require.ErrorIs(t, wrapped, sentinel)

	// Ensure log values are coming through.
	group := err.LogValue().Group()
	require.Contains(t, group, slog.String("id", "123"))

	// Assert there's a valid source
	sourceIdx := slices.IndexFunc(group, func(attr slog.Attr) bool {
		return attr.Key == "source"
	})
	source := group[sourceIdx]
	require.Contains(t, source.Value.String(), "annotatederror_test.go")
}

func TestWrap(t *testing.T) {
	sentinel := NewSentinel("not found")

	require.NoError(t, Wrap(nil, "lookup"))

	err := Wrap(sentinel, "lookup character", slog.String("id", "chr-1"))
	require.ErrorIs(t, err, sentinel)
	require.Equal(t, "lookup character: not found", err.Error())

	outer := Wrap(err, "remove character")
	require.ErrorIs(t, outer, sentinel)
	require.Equal(t, "remove character: lookup character: not found", outer.Error())

	attr := SlogError(outer)
	require.Equal(t, "error", attr.Key)
	group := attr.Value.Group()
	require.Equal(t, slog.String("msg", outer.Error()), group[0])
	keys := make([]string, 0, len(group))
	for _, a := range group {
		keys = append(keys, a.Key)
	}
	require.Equal(t, []string{"msg", "remove character", "lookup character"}, keys)
	inner := group[2].Value.Group()
	require.Contains(t, inner, slog.String("id", "chr-1"))
}
