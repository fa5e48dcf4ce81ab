package importer

import (
	"testing"

	"github.com/ougirez/muniportal/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestNormalizeMunicipality(t *testing.T) {
	tests := [][2]string{
		{"Елецкий муниципальный район", "елецкий"},
		{"Елецкий район", "елецкий"},
		{"г. Елец", "елец"},
		{"г.Липецк", "липецк"},
		{"город  Липецк", "липецк"},
		{"Тербунский муниципальный округ", "тербунский"},
		{"  Лев-Толстовский   район ", "лев-толстовский"},
		{"Ёлкинский район", "елкинский"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt[1], NormalizeMunicipality(tt[0]), tt[0])
	}
}

func TestNormalizeItem(t *testing.T) {
	assert.Equal(t, "число обращений", NormalizeItem("1.2. Число  обращений"))
	assert.Equal(t, "число обращений", NormalizeItem("3 Число обращений"))
}

func TestSummary(t *testing.T) {
	s := NewSummary(defaultSummary)
	assert.True(t, s.Match("Липецкая область"))
	assert.True(t, s.Match("ИТОГО:"))
	assert.True(t, s.Match("Всего по районам"))
	assert.False(t, s.Match("Елецкий район"))
}

func TestParsePeriod(t *testing.T) {
	tests := []struct {
		in   string
		want domain.Period
		ok   bool
	}{
		{"Август 2025", domain.Period{Year: 2025, Month: 8}, true},
		{"  январь   2024 ", domain.Period{Year: 2024, Month: 1}, true},
		{"Сведения за декабря 2023 г.", domain.Period{Year: 2023, Month: 12}, true},
		{"2025 Май", domain.Period{Year: 2025, Month: 5}, true},
		{"Лист1", domain.Period{}, false},
		{"Август", domain.Period{}, false},
		{"2025", domain.Period{}, false},
	}
	for _, tt := range tests {
		got, ok := ParsePeriod(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}
