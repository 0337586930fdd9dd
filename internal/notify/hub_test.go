package notify_test

import (
	"testing"

	"github.com/myrjola/turnabout/internal/notify"
	"github.com/stretchr/testify/require"
)

func TestHub(t *testing.T) {
	type testCase struct {
		name     string
		testFunc func(h *notify.Hub[string])
	}
	tests := []testCase{
		{
			name: "subscribers receive values in subscription order",
			testFunc: func(h *notify.Hub[string]) {
				var got []string
				h.Subscribe(func(v string) { got = append(got, "first:"+v) })
				h.Subscribe(func(v string) { got = append(got, "second:"+v) })
				h.Publish("a")
				h.Publish("b")
				require.Equal(t, []string{"first:a", "second:a", "first:b", "second:b"}, got)
			},
		},
		{
			name: "unsubscribed functions stop receiving",
			testFunc: func(h *notify.Hub[string]) {
				var got []string
				unsubscribe := h.Subscribe(func(v string) { got = append(got, v) })
				h.Publish("a")
				unsubscribe()
				unsubscribe()
				h.Publish("b")
				require.Equal(t, []string{"a"}, got)
				require.Zero(t, h.Len())
			},
		},
		{
			name: "unsubscribe during publish applies to the next publish",
			testFunc: func(h *notify.Hub[string]) {
				count := 0
				var unsubscribe func()
				unsubscribe = h.Subscribe(func(string) {
					count++
					unsubscribe()
				})
				h.Subscribe(func(string) { count++ })
				h.Publish("a")
				h.Publish("b")
				require.Equal(t, 3, count)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.testFunc(notify.NewHub[string]())
		})
	}
}
