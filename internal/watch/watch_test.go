package watch

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCommonAncestor(t *testing.T) {
	cases := []struct {
		name  string
		paths []string
		want  string
	}{
		{
			name:  "single path",
			paths: []string{"/a/b/c.d"},
			want:  "/a/b",
		},
		{
			name:  "shared parent",
			paths: []string{"/a/b/c.d", "/a/b/e.f"},
			want:  "/a/b",
		},
		{
			name:  "diverging at root",
			paths: []string{"/a/b/c.d", "/x/y/e.f"},
			want:  "/",
		},
		{
			name:  "nested divergence",
			paths: []string{"/a/b/c/d.e", "/a/b/f.g", "/a/b/c/h.i"},
			want:  "/a/b",
		},
		{
			name:  "empty",
			paths: nil,
			want:  "",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, commonAncestor(tc.paths))
		})
	}
}

func TestReadChangesDrainsAndResets(t *testing.T) {
	w := &Watcher{
		files:   map[string]struct{}{"/a": {}},
		pending: map[string]struct{}{"/a": {}},
		changed: make(chan struct{}, 1),
	}

	require.True(t, w.hasPending(), "expected pending change before drain")

	got := w.ReadChanges()
	require.Equal(t, []string{"/a"}, got)

	require.False(t, w.hasPending(), "expected no pending changes after drain")
	require.Nil(t, w.ReadChanges())
}

func TestWaitForChildReturnsImmediatelyWhenPending(t *testing.T) {
	w := &Watcher{
		files:   map[string]struct{}{"/a": {}},
		pending: map[string]struct{}{"/a": {}},
		changed: make(chan struct{}, 1),
	}

	childDone := make(chan struct{})
	exited, err := w.WaitForChild(childDone)
	require.NoError(t, err)
	require.False(t, exited, "expected childExited=false when a file change is already pending")
}

func TestWaitForChildObservesChildExit(t *testing.T) {
	w := &Watcher{
		files:   map[string]struct{}{},
		pending: map[string]struct{}{},
		changed: make(chan struct{}, 1),
	}

	childDone := make(chan struct{})
	close(childDone)

	exited, err := w.WaitForChild(childDone)
	require.NoError(t, err)
	require.True(t, exited, "expected childExited=true when childDone is already closed")
}

func TestWakeIsNonBlockingWhenNoWaiter(t *testing.T) {
	w := &Watcher{changed: make(chan struct{}, 1)}
	w.wake()
	w.wake() // second call must not block even though the buffer is full
}
