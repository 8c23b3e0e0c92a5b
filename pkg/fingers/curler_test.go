package fingers

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/teslashibe/go-vrrig/pkg/xr"
)

type stubSource struct {
	curls map[xr.Hand]Curls
	calls int
}

func (s *stubSource) FingerCurls(h xr.Hand) (Curls, bool) {
	s.calls++
	c, ok := s.curls[h]
	return c, ok
}

func TestCurler_Update(t *testing.T) {
	src := &stubSource{curls: map[xr.Hand]Curls{
		xr.Right: {0.1, 0.5, 1.4, -0.2, 0.9},
	}}
	c := NewCurler(xr.Right)

	if !c.Update(src, false) {
		t.Fatal("first sample should change curls")
	}
	want := Curls{0.1, 0.5, 1, 0, 0.9}
	if diff := cmp.Diff(want, c.Curls()); diff != "" {
		t.Errorf("Curls() mismatch (-want +got):\n%s", diff)
	}
	if c.Update(src, false) {
		t.Error("identical sample reported as change")
	}
}

func TestCurler_HoldsWhileHolding(t *testing.T) {
	src := &stubSource{curls: map[xr.Hand]Curls{xr.Right: {1, 1, 1, 1, 1}}}
	c := NewCurler(xr.Right)
	c.Update(src, false)

	src.curls[xr.Right] = Curls{}
	if c.Update(src, true) {
		t.Error("holding hand should not update")
	}
	if src.calls != 1 {
		t.Errorf("source sampled %d times, want 1", src.calls)
	}
	if got := c.Scalar(); got != 1 {
		t.Errorf("Scalar() = %v, want 1", got)
	}
}

func TestCurler_MissingData(t *testing.T) {
	src := &stubSource{curls: map[xr.Hand]Curls{xr.Right: {0.2, 0.2, 0.2, 0.2, 0.2}}}
	c := NewCurler(xr.Left)

	if c.Update(src, false) {
		t.Error("missing data should keep previous curls")
	}
	if c.Update(nil, false) {
		t.Error("nil source should keep previous curls")
	}
	if diff := cmp.Diff(Curls{}, c.Curls()); diff != "" {
		t.Errorf("Curls() mismatch (-want +got):\n%s", diff)
	}
	if c.Hand() != xr.Left {
		t.Errorf("Hand() = %v, want left", c.Hand())
	}
}

func TestCurler_Scalar(t *testing.T) {
	src := &stubSource{curls: map[xr.Hand]Curls{xr.Left: {0, 0.25, 0.5, 0.75, 1}}}
	c := NewCurler(xr.Left)
	c.Update(src, false)
	if got := c.Scalar(); got != 0.5 {
		t.Errorf("Scalar() = %v, want 0.5", got)
	}
}
