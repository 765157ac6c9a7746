package styles

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Style is one named preset. NegativePrompt already includes the global
// negative prompt after Load.
type Style struct {
	Name           string  `json:"name"`
	Prompt         string  `json:"prompt"`
	NegativePrompt string  `json:"negative_prompt"`
	Strength       float64 `json:"strength"`
	Steps          int     `json:"steps"`
}

// DefaultName is the sentinel entry returned for unknown style lookups.
const DefaultName = "default"

type fileFormat struct {
	GlobalNegativePrompt string  `json:"global_negative_prompt"`
	Styles               []Style `json:"styles"`
}

// Table is the read-only in-memory style mapping, built once at startup.
type Table struct {
	byName   map[string]Style
	names    []string
	fallback Style
}

// Load reads the style file and fixes up each entry: empty strength/steps
// fall back to the supplied defaults, negative prompts get the global
// negative prompt appended.
func Load(path string, defaultStrength float64, defaultSteps int) (*Table, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("styles: read %s: %w", path, err)
	}
	var f fileFormat
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("styles: parse %s: %w", path, err)
	}
	return build(f, defaultStrength, defaultSteps), nil
}

func build(f fileFormat, defaultStrength float64, defaultSteps int) *Table {
	t := &Table{byName: make(map[string]Style, len(f.Styles))}
	t.fallback = Style{
		Name:           DefaultName,
		NegativePrompt: f.GlobalNegativePrompt,
		Strength:       defaultStrength,
		Steps:          defaultSteps,
	}

	for _, s := range f.Styles {
		if strings.TrimSpace(s.Name) == "" {
			continue
		}
		if s.Strength <= 0 || s.Strength > 1 {
			s.Strength = defaultStrength
		}
		if s.Steps <= 0 {
			s.Steps = defaultSteps
		}
		if f.GlobalNegativePrompt != "" {
			if s.NegativePrompt != "" {
				s.NegativePrompt = s.NegativePrompt + ", " + f.GlobalNegativePrompt
			} else {
				s.NegativePrompt = f.GlobalNegativePrompt
			}
		}
		if _, dup := t.byName[s.Name]; !dup {
			t.names = append(t.names, s.Name)
		}
		t.byName[s.Name] = s
	}
	return t
}

// Get resolves a style by name; unknown names return the sentinel default.
func (t *Table) Get(name string) Style {
	if s, ok := t.byName[name]; ok {
		return s
	}
	return t.fallback
}

// Names lists configured style names in file order.
func (t *Table) Names() []string {
	out := make([]string, len(t.names))
	copy(out, t.names)
	return out
}
