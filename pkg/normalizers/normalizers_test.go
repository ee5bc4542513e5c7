package normalizers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeEmail(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"JOAO@ex.com", "joao@ex.com"},
		{"  joao@ex.com  ", "joao@ex.com"},
		{"Maria.Santos@Example.PT", "maria.santos@example.pt"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeEmail(tt.input))
		})
	}
}

func TestNormalizeNIF(t *testing.T) {
	assert.Equal(t, "123456789", NormalizeNIF(" 123456789 "))
	assert.Equal(t, "PT123456789", NormalizeNIF("PT123456789"))
}

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"diacritics", "João Silva", "joao silva"},
		{"plain", "Joao Silva", "joao silva"},
		{"cedilla and tilde", "Conceição Gonçalves", "conceicao goncalves"},
		{"extra whitespace", "  Maria   Santos \t", "maria santos"},
		{"accents", "José Araújo", "jose araujo"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeName(tt.input))
		})
	}
}

func TestOptional(t *testing.T) {
	assert.Equal(t, "", Optional(nil, NormalizeEmail))
	v := " A@B.PT "
	assert.Equal(t, "a@b.pt", Optional(&v, NormalizeEmail))
}
