package module

import (
	"path/filepath"
	"testing"
)

func TestEscapePath(t *testing.T) {
	tests := []struct {
		name        string
		path        string
		wantEscaped string
		wantErr     bool
	}{
		{name: "simple name", path: "hdps-core", wantEscaped: "hdps-core"},
		{name: "nested", path: "owner/repo", wantEscaped: filepath.Join("owner", "repo")},
		{name: "empty string", path: "", wantErr: true},
		{name: "parent escape", path: "../core", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EscapePath(tt.path)
			if (err != nil) != tt.wantErr {
				t.Fatalf("EscapePath(%q) error = %v, wantErr %v", tt.path, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.wantEscaped {
				t.Errorf("EscapePath(%q) = %q, want %q", tt.path, got, tt.wantEscaped)
			}
		})
	}
}

func TestParseRequirement(t *testing.T) {
	tests := []struct {
		in      string
		want    Requirement
		wantErr bool
	}{
		{in: "hdps-core@latest", want: Requirement{Name: "hdps-core", Constraint: "latest"}},
		{in: "hdps-core@1.4.0", want: Requirement{Name: "hdps-core", Constraint: "1.4.0"}},
		{in: "qt@~6.3", want: Requirement{Name: "qt", Constraint: "~6.3"}},
		{in: "a@b@1.0.0", want: Requirement{Name: "a@b", Constraint: "1.0.0"}},
		{in: "hdps-core", wantErr: true},
		{in: "@1.0.0", wantErr: true},
		{in: "hdps-core@", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRequirement(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseRequirement(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if got != tt.want {
				t.Errorf("ParseRequirement(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
			if got.String() != tt.in {
				t.Errorf("String() = %q, want %q", got.String(), tt.in)
			}
		})
	}
}
