package utils

import "testing"

func TestDeriveNamespace(t *testing.T) {
	tests := []struct {
		name    string
		fileKey string
		want    string
	}{
		{"plain key", "uploads/report.pdf", "uploadsreportpdf"},
		{"spaces become underscores", "my file key", "my_file_key"},
		{"non-ascii stripped", "résumé.pdf", "rsumpdf"},
		{"uppercase lowered", "Report-2024.PDF", "report-2024pdf"},
		{"punctuation stripped", "a,b;c!d.pdf", "abcdpdf"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DeriveNamespace(tt.fileKey); got != tt.want {
				t.Errorf("DeriveNamespace(%q) = %q, want %q", tt.fileKey, got, tt.want)
			}
		})
	}
}

func TestDeriveNamespaceDeterministic(t *testing.T) {
	key := "1693526400-ab12cd34-quarterly_report.pdf"
	first := DeriveNamespace(key)
	for i := 0; i < 5; i++ {
		if got := DeriveNamespace(key); got != first {
			t.Fatalf("DeriveNamespace not deterministic: %q vs %q", got, first)
		}
	}
}

func TestDeriveNamespaceDistinctKeys(t *testing.T) {
	a := DeriveNamespace("1693526400-aaaa1111-report.pdf")
	b := DeriveNamespace("1693526401-bbbb2222-report.pdf")
	if a == b {
		t.Errorf("distinct file keys collided on namespace %q", a)
	}
}
