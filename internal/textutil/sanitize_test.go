package textutil_test

import (
	"testing"

	"reel/internal/textutil"
)

func TestSanitizeFileName(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{"unsafe characters", `Video: The "Best" <Clip>?`, "Video_ The _Best_ _Clip__"},
		{"path separators", `a/b\c|d`, "a_b_c_d"},
		{"accents fold to ascii", "Café Vidéo", "Cafe Video"},
		{"non-ascii dropped", "日本語タイトル", "video"},
		{"surrounding spaces and dots", "  .hidden name.. ", "hidden name"},
		{"control characters", "tab\tname", "tab_name"},
		{"empty input", "", "video"},
		{"already clean", "Some_Title.mp4", "Some_Title.mp4"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := textutil.SanitizeFileName(tc.input); got != tc.want {
				t.Fatalf("SanitizeFileName(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}
