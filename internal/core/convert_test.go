package core

import "testing"

func TestParseCurrency(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"$7.942", 7942},
		{"$1.234,56", 1234.56},
		{"100,50", 100.5},
		{"$ 45.000", 45000},
		{"$45.000.-", 45000},
		{"1.234.567", 1234567},
		{"1,234,567", 1234567},
		{"1234.5678", 1234.5678},
		{"US$ 1.500", 1500},
		{"CLP 2.990", 2990},
		{`="7.942"`, 7942},
		{"45000", 45000},
		{"", 0},
		{"abc", 0},
		{"$", 0},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseCurrency(tt.in); got != tt.want {
				t.Errorf("ParseCurrency(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseStock(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"15", 15},
		{"15 un.", 15},
		{"1.200", 1200},
		{"", 0},
		{"sin stock", 0},
		{"99999999999999999999999", 0},
	}
	for _, tt := range tests {
		if got := ParseStock(tt.in); got != tt.want {
			t.Errorf("ParseStock(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeDimension(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"1.05", "1,05m"},
		{"2.9", "2,9m"},
		{"2,10", "2,1m"},
		{"3", "3m"},
		{"0.5", "50cm"},
		{"0.005", "5mm"},
		{"1,05m", "1,05m"},
		{"105 CM", "105cm"},
		{"a medida", "a medida"},
		{"0", "0mm"},
		{"-1", ""},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := NormalizeDimension(tt.in); got != tt.want {
				t.Errorf("NormalizeDimension(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeThickness(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"6", "6mm"},
		{"4,5", "4,5mm"},
		{"0.006", "6mm"},
		{"10mm", "10mm"},
		{"10 MM", "10mm"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeThickness(tt.in); got != tt.want {
			t.Errorf("NormalizeThickness(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatDimension_Idempotent(t *testing.T) {
	inputs := []string{"1.05", "0.5", "0.004", "2,9m", "6mm", "50cm", "a medida", "", "3"}
	for _, in := range inputs {
		once := FormatDimension(in)
		if twice := FormatDimension(once); twice != once {
			t.Errorf("FormatDimension not idempotent for %q: %q then %q", in, once, twice)
		}
	}

	// Persisted values are never converted again.
	for _, stored := range []string{"6mm", "1,05m", "50cm"} {
		if got := FormatDimension(stored); got != stored {
			t.Errorf("FormatDimension(%q) = %q, want unchanged", stored, got)
		}
	}
}

func TestFormatMeters_Thresholds(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0.004, "4mm"},
		{0.0099, "10mm"},
		{0.01, "1cm"},
		{0.99, "99cm"},
		{1, "1m"},
		{1.5, "1,5m"},
	}
	for _, tt := range tests {
		if got := FormatMeters(tt.in); got != tt.want {
			t.Errorf("FormatMeters(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestHasUnit(t *testing.T) {
	tests := map[string]bool{
		"2m":    true,
		"2 M":   true,
		"10mm":  true,
		"50 cm": true,
		"mm":    false,
		"12":    false,
		"":      false,
	}
	for in, want := range tests {
		if got := HasUnit(in); got != want {
			t.Errorf("HasUnit(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestCleanCell(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{`="123456"`, "123456"},
		{"=123456", "123456"},
		{"  Panel  ", "Panel"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := CleanCell(tt.input); got != tt.want {
			t.Errorf("CleanCell(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
