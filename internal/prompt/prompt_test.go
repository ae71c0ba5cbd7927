package prompt

import (
	"bytes"
	"strings"
	"testing"
)

func TestConfirm_Answers(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected bool
	}{
		{"lowercase y", "y\n", true},
		{"uppercase Y", "Y\n", true},
		{"yes", "yes\n", true},
		{"YES", "YES\n", true},
		{"yes with spaces", "  yes  \n", true},
		{"n", "n\n", false},
		{"no", "no\n", false},
		{"empty line", "\n", false},
		{"garbage", "maybe\n", false},
		{"eof without input", "", false},
		{"yesterday is not yes", "yesterday\n", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			got := confirm("run the thing?", strings.NewReader(tt.input), &out)
			if got != tt.expected {
				t.Errorf("confirm(%q) = %v, expected %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestConfirm_PromptFormat(t *testing.T) {
	var out bytes.Buffer
	confirm("generate statistics report?", strings.NewReader("n\n"), &out)

	want := "generate statistics report? [y/N]: "
	if out.String() != want {
		t.Errorf("prompt = %q, expected %q", out.String(), want)
	}
}

func TestConfirm_FirstLineOnly(t *testing.T) {
	// Only the first line is consumed as the answer.
	var out bytes.Buffer
	got := confirm("proceed?", strings.NewReader("n\ny\n"), &out)
	if got {
		t.Error("expected first line to decide the answer")
	}
}

func TestWipe(t *testing.T) {
	secret := []byte("hunter2")
	Wipe(secret)
	for i, b := range secret {
		if b != 0 {
			t.Errorf("byte %d not zeroed: %v", i, b)
		}
	}
}

func TestWipe_Empty(t *testing.T) {
	// Must not panic on nil or empty buffers.
	Wipe(nil)
	Wipe([]byte{})
}
