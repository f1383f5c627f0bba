package core

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// catchSevere runs fn and requires that it unwinds with a severe error.
func catchSevere(t *testing.T, fn func()) (se *SevereError) {
	t.Helper()
	defer func() {
		t.Helper()
		r := recover()
		require.NotNil(t, r, "expected a severe error")
		var ok bool
		se, ok = AsSevere(r)
		require.True(t, ok, "expected a severe error, got %v", r)
	}()
	fn()
	return
}

// catchFatal runs fn and requires that it unwinds with a fatal error.
func catchFatal(t *testing.T, fn func()) (fe *FatalError) {
	t.Helper()
	defer func() {
		t.Helper()
		r := recover()
		require.NotNil(t, r, "expected a fatal error")
		err, ok := r.(error)
		require.True(t, ok, "expected a fatal error, got %v", r)
		fe, ok = err.(*FatalError)
		require.True(t, ok, "expected a fatal error, got %v", r)
	}()
	fn()
	return
}

// recordingHandler captures error-channel events for inspection.
type recordingHandler struct {
	severes []string
	fatals  []string
}

func (h *recordingHandler) Fatal(msg string)           { h.fatals = append(h.fatals, msg) }
func (h *recordingHandler) Severe(msg string, _ *Node) { h.severes = append(h.severes, msg) }

// freeKindCount scans every block and counts nodes tagged free.
func freeKindCount() int {
	count := 0
	for _, block := range blocks {
		for i := range block.nodes {
			if block.nodes[i].kind == KindFree {
				count++
			}
		}
	}
	return count
}

// freeListLength walks the free list.
func freeListLength() int {
	count := 0
	for p := freeNodeList; !Nullp(p); p = p.next {
		count++
	}
	return count
}
