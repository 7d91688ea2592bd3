package conversation

// knownInvalidCPFs are all-repeated-digit sequences that satisfy the CPF
// checksum but are rejected by the Receita Federal.
var knownInvalidCPFs = map[string]bool{
	"00000000000": true,
	"11111111111": true,
	"22222222222": true,
	"33333333333": true,
	"44444444444": true,
	"55555555555": true,
	"66666666666": true,
	"77777777777": true,
	"88888888888": true,
	"99999999999": true,
}

// ValidateCPF implements the standard two-check-digit CPF validation plus
// the repeated-digit denylist. Input must be exactly 11 digits; anything
// else is invalid.
func ValidateCPF(cpf string) bool {
	if len(cpf) != 11 {
		return false
	}
	digits := make([]int, 11)
	for i, r := range cpf {
		if r < '0' || r > '9' {
			return false
		}
		digits[i] = int(r - '0')
	}
	if knownInvalidCPFs[cpf] {
		return false
	}
	if checkDigit(digits, 9) != digits[9] {
		return false
	}
	return checkDigit(digits, 10) == digits[10]
}

// checkDigit computes the CPF verification digit over the first n digits.
func checkDigit(digits []int, n int) int {
	sum := 0
	for i := 0; i < n; i++ {
		sum += digits[i] * (n + 1 - i)
	}
	rest := (sum * 10) % 11
	if rest == 10 {
		return 0
	}
	return rest
}
