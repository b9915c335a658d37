package utils

import (
	"testing"
)

func TestTruncate(t *testing.T) {
	if Truncate("hello", 10) != "hello" {
		t.Error("short string unchanged")
	}
	if Truncate("hello world", 5) != "hello..." {
		t.Errorf("got %s", Truncate("hello world", 5))
	}
	if Truncate("x", 0) != "x" {
		t.Error("maxLen 0 returns as-is")
	}
	if got := Truncate("東京物語です", 2); got != "東京..." {
		t.Errorf("rune truncation: got %s", got)
	}
	if got := Truncate("東京", 3); got != "東京" {
		t.Errorf("multi-byte string within rune limit should be unchanged, got %s", got)
	}
}
