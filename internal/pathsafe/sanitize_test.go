package pathsafe

import (
	"strings"
	"testing"
)

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"Plain", "img001.jpg", "img001.jpg"},
		{"UnixPath", "/tmp/evil/img001.jpg", "img001.jpg"},
		{"WindowsPath", `C:\photos\img001.jpg`, "img001.jpg"},
		{"UnsafeChars", `im*g:00?1.jpg`, "im_g_00_1.jpg"},
		{"LeadingDots", "..hidden.jpg", "hidden.jpg"},
		{"TrailingSpaces", "img001.jpg  ", "img001.jpg"},
		{"Empty", "", ""},
		{"OnlyDots", "...", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeFilename(tt.in); got != tt.want {
				t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSanitizeFilenameLength(t *testing.T) {
	long := strings.Repeat("a", 300) + ".jpg"
	got := SanitizeFilename(long)
	if len(got) > 255 {
		t.Errorf("SanitizeFilename produced %d bytes, want <= 255", len(got))
	}
	if !strings.HasSuffix(got, ".jpg") {
		t.Errorf("SanitizeFilename dropped the extension: %q", got)
	}
}

func TestSanitizeUploadName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"SpacesToHyphens", "Grandma Box 1", "grandma-box-1"},
		{"Lowercased", "FAMILY", "family"},
		{"StripUnsafe", "trip: paris & rome!", "trip-paris--rome"},
		{"TrimHyphens", "--trip--", "trip"},
		{"EmptyFallback", "", "upload"},
		{"OnlyUnsafeFallback", "!!!", "upload"},
		{"Underscores", "box_2", "box_2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeUploadName(tt.in); got != tt.want {
				t.Errorf("SanitizeUploadName(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSanitizeUploadNameLength(t *testing.T) {
	got := SanitizeUploadName(strings.Repeat("x", 200))
	if len(got) != 100 {
		t.Errorf("SanitizeUploadName length = %d, want 100", len(got))
	}
}
