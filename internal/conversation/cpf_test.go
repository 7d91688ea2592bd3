package conversation

import "testing"

func TestValidateCPF(t *testing.T) {
	tests := []struct {
		cpf  string
		want bool
	}{
		{"52998224725", true},
		{"91963214234", true},
		{"91963214235", false}, // wrong check digit
		{"11111111111", false}, // passes checksum but denylisted
		{"00000000000", false},
		{"123", false},
		{"529982247250", false}, // too long
		{"5299822472a", false},  // non-digit
		{"", false},
	}
	for _, tc := range tests {
		if got := ValidateCPF(tc.cpf); got != tc.want {
			t.Errorf("ValidateCPF(%q) = %v, want %v", tc.cpf, got, tc.want)
		}
	}
}
