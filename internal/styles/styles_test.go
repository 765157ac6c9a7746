package styles

import (
	"os"
	"path/filepath"
	"testing"
)

const testFile = `{
  "global_negative_prompt": "blurry, low quality",
  "styles": [
    {"name": "sketch", "prompt": "pencil sketch", "negative_prompt": "color", "strength": 0.6, "steps": 40},
    {"name": "comic", "prompt": "comic drawing", "strength": 7.5}
  ]
}`

func loadTestTable(t *testing.T) *Table {
	t.Helper()
	path := filepath.Join(t.TempDir(), "styles.json")
	if err := os.WriteFile(path, []byte(testFile), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	table, err := Load(path, 0.5, 60)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	return table
}

func TestLoad_NegativePromptConcat(t *testing.T) {
	table := loadTestTable(t)

	s := table.Get("sketch")
	if s.Prompt != "pencil sketch" {
		t.Fatalf("unexpected prompt %q", s.Prompt)
	}
	if s.NegativePrompt != "color, blurry, low quality" {
		t.Fatalf("unexpected negative prompt %q", s.NegativePrompt)
	}
	if s.Strength != 0.6 || s.Steps != 40 {
		t.Fatalf("unexpected tuning %v/%d", s.Strength, s.Steps)
	}
}

func TestLoad_OutOfRangeValuesReset(t *testing.T) {
	table := loadTestTable(t)

	// comic has strength 7.5 (invalid) and no steps
	s := table.Get("comic")
	if s.Strength != 0.5 {
		t.Fatalf("expected strength reset to 0.5, got %v", s.Strength)
	}
	if s.Steps != 60 {
		t.Fatalf("expected default steps 60, got %d", s.Steps)
	}
	if s.NegativePrompt != "blurry, low quality" {
		t.Fatalf("expected global negative prompt, got %q", s.NegativePrompt)
	}
}

func TestGet_UnknownStyleFallsBackToDefault(t *testing.T) {
	table := loadTestTable(t)

	s := table.Get("does-not-exist")
	if s.Name != DefaultName {
		t.Fatalf("expected sentinel default, got %q", s.Name)
	}
	if s.Prompt != "" {
		t.Fatalf("default prompt must be empty, got %q", s.Prompt)
	}
	if s.NegativePrompt != "blurry, low quality" {
		t.Fatalf("default must carry the global negative prompt, got %q", s.NegativePrompt)
	}
	if s.Strength != 0.5 || s.Steps != 60 {
		t.Fatalf("default tuning %v/%d", s.Strength, s.Steps)
	}
}

func TestNames(t *testing.T) {
	table := loadTestTable(t)
	names := table.Names()
	if len(names) != 2 || names[0] != "sketch" || names[1] != "comic" {
		t.Fatalf("unexpected names %v", names)
	}
}
