package domain

import (
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	got, err := ParseDate(" 2025-03-03 ")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if want := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC); !got.Equal(want) {
		t.Fatalf("got %s, want %s", got, want)
	}
	if got, err := ParseDate(""); err != nil || got != nil {
		t.Fatalf("blank date: got %v, %v", got, err)
	}
	if _, err := ParseDate("03/03/2025"); err == nil {
		t.Fatal("expected error for wrong layout")
	}
}
