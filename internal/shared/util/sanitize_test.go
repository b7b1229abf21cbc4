package util

import "testing"

func TestSanitizeObjectName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "already safe", in: "id1.png", want: "id1.png"},
		{name: "spaces", in: "my pan card.pdf", want: "my_pan_card.pdf"},
		{name: "separators", in: "a/b\\c.jpg", want: "a_b_c.jpg"},
		{name: "dash and underscore kept", in: "scan-01_final.jpeg", want: "scan-01_final.jpeg"},
		{name: "unicode replaced per rune", in: "résumé.pdf", want: "r_sum_.pdf"},
		{name: "empty", in: "", want: ""},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := SanitizeObjectName(tt.in); got != tt.want {
				t.Fatalf("SanitizeObjectName(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSanitizeFileNameRejectsTraversal(t *testing.T) {
	for _, in := range []string{"", "   ", ".", "../etc/passwd", "a..b"} {
		if _, err := SanitizeFileName(in); err == nil {
			t.Fatalf("expected error for %q", in)
		}
	}
	got, err := SanitizeFileName(" passport scan.png ")
	if err != nil {
		t.Fatalf("SanitizeFileName: %v", err)
	}
	if got != "passport_scan.png" {
		t.Fatalf("unexpected sanitized name %q", got)
	}
}
