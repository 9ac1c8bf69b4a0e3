package constants

import "testing"

func TestMapExtToFormat(t *testing.T) {
	tests := []struct {
		ext  string
		want string
	}{
		{"pdf", PDF},
		{".PDF", PDF},
		{"jpg", IMAGE},
		{".JPEG", IMAGE},
		{"png", IMAGE},
		{"txt", ""},
		{"", ""},
	}
	for _, tc := range tests {
		if got := MapExtToFormat(tc.ext); got != tc.want {
			t.Errorf("MapExtToFormat(%q) = %q, want %q", tc.ext, got, tc.want)
		}
	}
}

func TestIsAllowedExt(t *testing.T) {
	for _, ext := range []string{"pdf", ".pdf", "JPG", ".Jpeg", "png"} {
		if !IsAllowedExt(ext) {
			t.Errorf("IsAllowedExt(%q) = false, want true", ext)
		}
	}
	for _, ext := range []string{"txt", ".gif", "heic", ""} {
		if IsAllowedExt(ext) {
			t.Errorf("IsAllowedExt(%q) = true, want false", ext)
		}
	}
}
