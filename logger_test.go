package vellum

import "testing"

func TestNoopLoggerDiscardsWithoutPanicking(t *testing.T) {
	l := NewNoopLogger()
	l.Print("hello", 1)
	l.Printf("hello %d", 1)
}
