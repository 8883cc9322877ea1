package errors

import (
	"testing"
)

func TestValidateSchemeName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid simple", "classic", false},
		{"valid with dash", "fire-2", false},
		{"valid with underscore", "my_scheme", false},

		{"empty", "", true},
		{"too long", string(make([]byte, 65)), true},
		{"uppercase", "Classic", true},
		{"space", "my scheme", true},
		{"leading dash", "-fire", true},
		{"path", "../fire", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSchemeName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateSchemeName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidParameter) {
				t.Errorf("ValidateSchemeName(%q) code = %v, want %v", tt.input, GetCode(err), ErrCodeInvalidParameter)
			}
		})
	}
}

func TestValidatePath(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid relative", "out/heatmap.png", false},
		{"valid absolute", "/tmp/heatmap.png", false},

		{"empty", "", true},
		{"too long", string(make([]byte, 501)), true},
		{"null byte", "foo\x00.png", true},
		{"newline", "foo\n.png", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePath(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePath(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"https", "https://example.com/points.csv", false},
		{"http", "http://localhost:8080/p.json", false},

		{"empty", "", true},
		{"ftp", "ftp://example.com/points.csv", true},
		{"file path", "points.csv", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateURL(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateURL(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}
