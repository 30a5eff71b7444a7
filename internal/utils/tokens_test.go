package utils_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/AyushAagrwal/DataStatX/internal/utils"
)

func TestCountTokens(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want int
	}{
		{"empty", "", 0},
		{"short", "hi", 1},
		{"rounds up", "hello world", 3},
		{"exact", strings.Repeat("a", 4000), 1000},
		{"runes", "héllo", 2},
	}
	for _, c := range cases {
		if got := utils.CountTokens(c.in); got != c.want {
			t.Errorf("%s: got %d, want %d", c.name, got, c.want)
		}
	}
}

func TestTruncateToTokenLimit(t *testing.T) {
	text := strings.Repeat("abcd ", 1000)
	trunc := utils.TruncateToTokenLimit(text, 300)
	if n := utils.CountTokens(trunc); n > 300 {
		t.Fatalf("tokens=%d exceeds limit", n)
	}
	if len(trunc) == 0 {
		t.Fatalf("expected non-empty truncation")
	}
	if !strings.HasSuffix(trunc, utils.Ellipsis) {
		t.Fatalf("truncated text should end with an ellipsis: %q", trunc[len(trunc)-8:])
	}
	if got := utils.TruncateToTokenLimit("north east south west", 3); got != "north east…" {
		t.Fatalf("word boundary cut = %q", got)
	}
	if utils.TruncateToTokenLimit("short", 10) != "short" {
		t.Fatalf("text under the limit must be kept")
	}
	if utils.TruncateToTokenLimit("anything", 0) != "" {
		t.Fatalf("zero limit keeps nothing")
	}
}

func TestSafeWriteFileCreatesDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "chart.png")
	if err := utils.SafeWriteFile(path, []byte("png")); err != nil {
		t.Fatalf("SafeWriteFile: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil || string(b) != "png" {
		t.Fatalf("read back %q, %v", b, err)
	}
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil || len(entries) != 1 {
		t.Fatalf("temp file left behind: %v %v", entries, err)
	}
	if err := utils.SafeWriteFile(path, []byte("v2")); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if b, _ := os.ReadFile(path); string(b) != "v2" {
		t.Fatalf("overwrite not applied: %q", b)
	}
}
