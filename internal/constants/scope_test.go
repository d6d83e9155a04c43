package constants

import "testing"

func TestParseScope(t *testing.T) {
	tests := []struct {
		in      string
		want    Scope
		wantErr bool
	}{
		{in: "", want: ScopeLocal},
		{in: "local", want: ScopeLocal},
		{in: "global", want: ScopeGlobal},
		{in: "both", want: ScopeBoth},
		{in: "LOCAL", wantErr: true},
		{in: "everywhere", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseScope(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseScope(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseScope(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestScope_Includes(t *testing.T) {
	tests := []struct {
		scope, target Scope
		want          bool
	}{
		{ScopeLocal, ScopeLocal, true},
		{ScopeLocal, ScopeGlobal, false},
		{ScopeGlobal, ScopeGlobal, true},
		{ScopeBoth, ScopeLocal, true},
		{ScopeBoth, ScopeGlobal, true},
	}

	for _, tt := range tests {
		if got := tt.scope.Includes(tt.target); got != tt.want {
			t.Errorf("%s.Includes(%s) = %v, want %v", tt.scope, tt.target, got, tt.want)
		}
	}
}
