package conversation

import (
	"testing"

	"github.com/imobia/leadpipe/internal/models"
)

func TestExtractCPF(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"bare digits", "meu cpf é 91963214234", "91963214234"},
		{"punctuated", "cpf: 529.982.247-25 segue", "52998224725"},
		{"too short", "código 123", ""},
		{"too long run", "telefone 5511999998888", ""},
		{"no cpf", "quero um apartamento", ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := ExtractCPF(tc.text); got != tc.want {
				t.Errorf("ExtractCPF(%q) = %q, want %q", tc.text, got, tc.want)
			}
		})
	}
}

func TestExtractCPFIsIdempotent(t *testing.T) {
	text := "cpf 529.982.247-25"
	first := ExtractCPF(text)
	second := ExtractCPF(text)
	if first != second {
		t.Errorf("extraction not idempotent: %q vs %q", first, second)
	}
}

func TestExtractEmail(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"meu email é Joao.Silva@Gmail.COM obrigado", "joao.silva@gmail.com"},
		{"mandar para maria_22@empresa.com.br", "maria_22@empresa.com.br"},
		{"sem email aqui", ""},
	}
	for _, tc := range tests {
		if got := ExtractEmail(tc.text); got != tc.want {
			t.Errorf("ExtractEmail(%q) = %q, want %q", tc.text, got, tc.want)
		}
	}
}

func TestExtractBudget(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		wantMin float64
		wantMax float64
		hasMin  bool
		hasMax  bool
	}{
		{"range with mil", "quero algo entre 300 mil e 500 mil", 300000, 500000, true, true},
		{"range de a", "de 200 mil a 350 mil", 200000, 350000, true, true},
		{"range millions", "entre 1 milhão e 2 milhões", 1000000, 2000000, true, true},
		{"ceiling ate", "posso pagar até 450 mil", 0, 450000, false, true},
		{"ceiling maximo", "máximo 600 mil", 0, 600000, false, true},
		{"ceiling k", "até 800k", 0, 800000, false, true},
		{"plain number ceiling", "até 350.000", 0, 350000, false, true},
		{"no budget", "procuro apartamento no centro", 0, 0, false, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := ExtractBudget(tc.text)
			if (got.Min != nil) != tc.hasMin {
				t.Fatalf("min presence = %v, want %v", got.Min != nil, tc.hasMin)
			}
			if (got.Max != nil) != tc.hasMax {
				t.Fatalf("max presence = %v, want %v", got.Max != nil, tc.hasMax)
			}
			if tc.hasMin && *got.Min != tc.wantMin {
				t.Errorf("min = %v, want %v", *got.Min, tc.wantMin)
			}
			if tc.hasMax && *got.Max != tc.wantMax {
				t.Errorf("max = %v, want %v", *got.Max, tc.wantMax)
			}
		})
	}
}

func TestExtractBudgetRangeBeatsCeiling(t *testing.T) {
	// Both patterns present: the range must win.
	got := ExtractBudget("entre 300 mil e 500 mil, até 600 mil no máximo")
	if got.Min == nil || got.Max == nil {
		t.Fatal("expected full range")
	}
	if *got.Min != 300000 || *got.Max != 500000 {
		t.Errorf("got {%v, %v}, want {300000, 500000}", *got.Min, *got.Max)
	}
}

func TestExtractMonthlyIncome(t *testing.T) {
	tests := []struct {
		name string
		text string
		want float64
		ok   bool
	}{
		{"explicit renda", "minha renda é de 8.500,00", 8500, true},
		{"renda with mil", "renda de 12 mil", 12000, true},
		{"isolated number in range", "ganho 7500 por mês", 7500, true},
		{"isolated number too small", "moro no 250", 0, false},
		{"phone number rejected", "me liga 11999998888", 0, false},
		{"nothing", "trabalho com vendas", 0, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := ExtractMonthlyIncome(tc.text)
			if (got != nil) != tc.ok {
				t.Fatalf("presence = %v, want %v", got != nil, tc.ok)
			}
			if tc.ok && *got != tc.want {
				t.Errorf("income = %v, want %v", *got, tc.want)
			}
		})
	}
}

func TestExtractRooms(t *testing.T) {
	tests := []struct {
		text string
		want int
		ok   bool
	}{
		{"procuro 3 quartos", 3, true},
		{"apartamento com 2 dormitórios", 2, true},
		{"quero 1 suíte", 1, true},
		{"sem número de quartos", 0, false},
	}
	for _, tc := range tests {
		got := ExtractRooms(tc.text)
		if (got != nil) != tc.ok {
			t.Fatalf("ExtractRooms(%q) presence = %v, want %v", tc.text, got != nil, tc.ok)
		}
		if tc.ok && *got != tc.want {
			t.Errorf("ExtractRooms(%q) = %d, want %d", tc.text, *got, tc.want)
		}
	}
}

func TestNormalizeNumericValue(t *testing.T) {
	tests := []struct {
		raw  string
		want float64
		ok   bool
	}{
		{"R$ 450.000,00", 450000, true},
		{"1.234.567", 1234567, true},
		{"8500,50", 8500.5, true},
		{"300", 300, true},
		{"", 0, false},
		{"abc", 0, false},
	}
	for _, tc := range tests {
		got := NormalizeNumericValue(tc.raw)
		if (got != nil) != tc.ok {
			t.Fatalf("NormalizeNumericValue(%q) presence = %v, want %v", tc.raw, got != nil, tc.ok)
		}
		if tc.ok && *got != tc.want {
			t.Errorf("NormalizeNumericValue(%q) = %v, want %v", tc.raw, *got, tc.want)
		}
	}
}

func TestExtractPreferredName(t *testing.T) {
	tests := []struct {
		full string
		want string
	}{
		{"Maria Clara dos Santos", "Maria"},
		{"  João  ", "João"},
		{"", ""},
		{"   ", ""},
	}
	for _, tc := range tests {
		if got := ExtractPreferredName(tc.full); got != tc.want {
			t.Errorf("ExtractPreferredName(%q) = %q, want %q", tc.full, got, tc.want)
		}
	}
}

func TestDetectMessageType(t *testing.T) {
	tests := []struct {
		name      string
		url       string
		mediaType string
		want      models.MessageKind
	}{
		{"no url", "", "", models.MessageKindText},
		{"mime audio", "https://cdn.example/abc", "audio/ogg", models.MessageKindAudio},
		{"mime image", "https://cdn.example/abc", "image/jpeg", models.MessageKindImage},
		{"mime video", "https://cdn.example/abc", "video/mp4", models.MessageKindVideo},
		{"mime other", "https://cdn.example/abc", "application/pdf", models.MessageKindDocument},
		{"ogg extension", "https://cdn.example/voice.ogg", "", models.MessageKindAudio},
		{"jpg extension with query", "https://cdn.example/foto.JPG?t=1", "", models.MessageKindImage},
		{"mov extension", "https://cdn.example/tour.mov", "", models.MessageKindVideo},
		{"unknown extension", "https://cdn.example/planta.dwg", "", models.MessageKindDocument},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := DetectMessageType(tc.url, tc.mediaType); got != tc.want {
				t.Errorf("DetectMessageType(%q, %q) = %q, want %q", tc.url, tc.mediaType, got, tc.want)
			}
		})
	}
}

func TestExtractFacts(t *testing.T) {
	update := ExtractFacts("procuro 3 quartos no Centro, entre 300 mil e 500 mil, cpf 529.982.247-25, email ana@imail.com")
	if update.BudgetMin == nil || *update.BudgetMin != 300000 {
		t.Error("expected budget min 300000")
	}
	if update.BudgetMax == nil || *update.BudgetMax != 500000 {
		t.Error("expected budget max 500000")
	}
	if update.Rooms == nil || *update.Rooms != 3 {
		t.Error("expected 3 rooms")
	}
	if update.CPF == nil || *update.CPF != "52998224725" {
		t.Error("expected valid CPF extracted")
	}
	if update.Email == nil || *update.Email != "ana@imail.com" {
		t.Error("expected email extracted")
	}
	if update.MonthlyIncome != nil {
		t.Errorf("budget figures must not be misread as income, got %v", *update.MonthlyIncome)
	}
}

func TestExtractFactsRejectsInvalidCPF(t *testing.T) {
	update := ExtractFacts("cpf 11111111111")
	if update.CPF != nil {
		t.Errorf("repeated-digit CPF must be rejected, got %q", *update.CPF)
	}
}
