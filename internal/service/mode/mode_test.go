package mode

import (
	"testing"

	"github.com/ashwinyue/mnemosyne/internal/apperr"
)

func TestCatalogLookup(t *testing.T) {
	catalog := NewCatalog()

	tests := []struct {
		name     string
		mode     string
		wantTemp float32
		wantErr  bool
	}{
		{
			name:     "exploratory mode",
			mode:     Exploratory,
			wantTemp: 0.8,
			wantErr:  false,
		},
		{
			name:     "cbt mode",
			mode:     CBT,
			wantTemp: 0.6,
			wantErr:  false,
		},
		{
			name:     "narrative mode",
			mode:     Narrative,
			wantTemp: 0.7,
			wantErr:  false,
		},
		{
			name:     "trauma mode",
			mode:     Trauma,
			wantTemp: 0.7,
			wantErr:  false,
		},
		{
			name:    "unknown mode",
			mode:    "hypnosis",
			wantErr: true,
		},
		{
			name:    "empty mode",
			mode:    "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := catalog.Lookup(tt.mode)
			if tt.wantErr {
				if err == nil {
					t.Errorf("Lookup(%q) expected error, got nil", tt.mode)
					return
				}
				if !apperr.IsValidation(err) {
					t.Errorf("Lookup(%q) expected validation error, got %v", tt.mode, err)
				}
				return
			}
			if err != nil {
				t.Errorf("Lookup(%q) unexpected error: %v", tt.mode, err)
				return
			}
			if m.Temperature != tt.wantTemp {
				t.Errorf("Lookup(%q) temperature = %v, want %v", tt.mode, m.Temperature, tt.wantTemp)
			}
			if m.SystemPrompt == "" {
				t.Errorf("Lookup(%q) returned empty system prompt", tt.mode)
			}
			if m.Label == "" {
				t.Errorf("Lookup(%q) returned empty label", tt.mode)
			}
		})
	}
}

func TestCatalogNames(t *testing.T) {
	catalog := NewCatalog()

	names := catalog.Names()
	want := []string{Exploratory, CBT, Narrative, Trauma}

	if len(names) != len(want) {
		t.Fatalf("Names() returned %d names, want %d", len(names), len(want))
	}
	for i, name := range want {
		if names[i] != name {
			t.Errorf("Names()[%d] = %q, want %q", i, names[i], name)
		}
	}

	// 返回的切片是副本，修改不影响目录
	names[0] = "mutated"
	if catalog.Names()[0] != Exploratory {
		t.Error("Names() should return a copy")
	}
}

func TestCatalogList(t *testing.T) {
	catalog := NewCatalog()

	modes := catalog.List()
	if len(modes) != 4 {
		t.Fatalf("List() returned %d modes, want 4", len(modes))
	}
	for i, name := range catalog.Names() {
		if modes[i].Name != name {
			t.Errorf("List()[%d].Name = %q, want %q", i, modes[i].Name, name)
		}
	}
}
