package version

import "testing"

func TestSatisfies(t *testing.T) {
	tests := []struct {
		name      string
		rangeExpr string
		candidate string
		want      bool
	}{
		{"wildcard always matches", "*", "1.20.1", true},
		{"empty range always matches", "", "1.20.1", true},
		{"maven inclusive interval matches lower bound", "[1.20,1.21)", "1.20.0", true},
		{"maven exclusive upper bound rejects", "[1.20,1.21)", "1.21.0", false},
		{"maven inclusive upper bound accepts", "[1.20,1.21]", "1.21.0", true},
		{"plain comparator", ">=2.0.0", "2.5.0", true},
		{"plain comparator rejects below", ">=2.0.0", "1.9.9", false},
		{"unparsable range never matches", "not a range", "1.0.0", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Satisfies(tt.rangeExpr, tt.candidate); got != tt.want {
				t.Errorf("Satisfies(%q, %q) = %v, want %v", tt.rangeExpr, tt.candidate, got, tt.want)
			}
		})
	}
}
