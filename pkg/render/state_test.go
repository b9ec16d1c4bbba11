package render

import (
	"testing"

	"github.com/novvoo/go-pdfrender/pkg/pdf"
)

// TestStateStackPointers tests that the current state pointer survives
// pushes and pops made while it is held
func TestStateStackPointers(t *testing.T) {
	s := NewStateStack(NewGraphicsState(pdf.IdentityMatrix()))
	gs := s.Current()
	for range 64 {
		s.Push()
	}
	s.Current().LineWidth = 7
	for range 64 {
		s.Pop()
	}
	gs.LineWidth = 3

	if s.Current() != gs {
		t.Fatal("Expected the held pointer to be the current state again")
	}
	if s.Current().LineWidth != 3 {
		t.Errorf("Expected line width 3, got %v", s.Current().LineWidth)
	}
	if s.Depth() != 0 {
		t.Errorf("Expected depth 0, got %d", s.Depth())
	}
}

// TestStateStackPop tests that the initial state is never popped
func TestStateStackPop(t *testing.T) {
	s := NewStateStack(NewGraphicsState(pdf.IdentityMatrix()))
	s.Push()
	s.Current().FontSize = 12
	if !s.Pop() {
		t.Error("Expected Pop to succeed")
	}
	if s.Current().FontSize != 0 {
		t.Errorf("Expected the saved font size 0, got %v", s.Current().FontSize)
	}
	if s.Pop() {
		t.Error("Expected Pop on the initial state to fail")
	}
}
