package mariadb

import "testing"

func TestRemoveDiacritics(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Jiří", "Jiri"},
		{"Tomáš Novák", "Tomas Novak"},
		{"Žaneta Šťastná", "Zaneta Stastna"},
		{"François", "Francois"},
		{"plain ascii", "plain ascii"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := RemoveDiacritics(tt.input); got != tt.want {
			t.Errorf("RemoveDiacritics(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Jiří Novák", "jiri novak"},
		{"  Anna   Marie  ", "anna marie"},
		{"Šťastná-Dvořáková", "stastna dvorakova"},
		{"JAN ŽELEZNÝ", "jan zelezny"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := NormalizeName(tt.input); got != tt.want {
			t.Errorf("NormalizeName(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestNormalizeName_MatchesAcrossVariants(t *testing.T) {
	// HRIS rows and kiosk input spell names differently; both must
	// normalize to the same key.
	pairs := [][2]string{
		{"Jiří Novák", "jiri novak"},
		{"Anna-Marie Dvořáková", "ANNA MARIE DVORAKOVA"},
	}
	for _, p := range pairs {
		if NormalizeName(p[0]) != NormalizeName(p[1]) {
			t.Errorf("%q and %q should normalize identically", p[0], p[1])
		}
	}
}
