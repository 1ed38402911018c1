package language

import "testing"

func TestFromCode(t *testing.T) {
	tests := []struct {
		code string
		want string
	}{
		{"id", "Indonesian"},
		{"en", "English"},
		{"id-ID", "Indonesian"},
		{"PT_br", "Portuguese"},
		{"", "Auto-detect"},
		{"zz", "Auto-detect"},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			if got := FromCode(tt.code).Name; got != tt.want {
				t.Errorf("FromCode(%q).Name = %q, want %q", tt.code, got, tt.want)
			}
		})
	}
}

func TestIsValidCode(t *testing.T) {
	valid := []string{"", "id", "en", "en-US", "ms"}
	for _, code := range valid {
		if !IsValidCode(code) {
			t.Errorf("IsValidCode(%q) = false, want true", code)
		}
	}
	invalid := []string{"zz", "xx-YY", "english"}
	for _, code := range invalid {
		if IsValidCode(code) {
			t.Errorf("IsValidCode(%q) = true, want false", code)
		}
	}
}

func TestListAndCodes(t *testing.T) {
	list := List()
	codes := Codes()
	if len(list) != 57 || len(codes) != 57 {
		t.Fatalf("List() = %d, Codes() = %d, want 57", len(list), len(codes))
	}

	list[0].Name = "changed"
	if List()[0].Name == "changed" {
		t.Error("List() should return a copy")
	}

	seen := make(map[string]bool)
	for _, code := range codes {
		if code == "" {
			t.Error("Codes() should not contain the auto code")
		}
		if seen[code] {
			t.Errorf("duplicate code %q", code)
		}
		seen[code] = true
	}
}

func TestBase(t *testing.T) {
	tests := []struct{ in, want string }{
		{"", ""},
		{"id", "id"},
		{"id-ID", "id"},
		{"EN_us", "en"},
		{"-x", "-x"},
	}
	for _, tt := range tests {
		if got := Base(tt.in); got != tt.want {
			t.Errorf("Base(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLabel(t *testing.T) {
	tests := []struct{ in, want string }{
		{"", "Auto-detect"},
		{"id", "Indonesian (id)"},
		{"id-ID", "Indonesian (id-ID)"},
		{"zz", "zz"},
	}
	for _, tt := range tests {
		if got := Label(tt.in); got != tt.want {
			t.Errorf("Label(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
