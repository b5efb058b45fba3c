package promptprofile

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "profile.yaml")
	raw := "system_prompt: |\n  You are a travel planner.\nplaceholder: \"thinking...\"\nmodel: gpt-4o-mini\n"
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatalf("os.WriteFile() error = %v", err)
	}

	profile, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if profile.SystemPrompt != "You are a travel planner." {
		t.Fatalf("system_prompt = %q, want %q", profile.SystemPrompt, "You are a travel planner.")
	}
	if profile.Placeholder != "thinking..." {
		t.Fatalf("placeholder = %q, want %q", profile.Placeholder, "thinking...")
	}
	if profile.Model != "gpt-4o-mini" {
		t.Fatalf("model = %q, want %q", profile.Model, "gpt-4o-mini")
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatalf("Load(absent) error = nil, want read error")
	}
	if _, err := Load("  "); err == nil {
		t.Fatalf("Load(blank path) error = nil, want path error")
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "profile.yaml")
	if err := os.WriteFile(path, []byte("system_prompt: [unterminated"), 0o600); err != nil {
		t.Fatalf("os.WriteFile() error = %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("Load(invalid yaml) error = nil, want parse error")
	}
}

func TestApply(t *testing.T) {
	t.Parallel()

	prompt, placeholder, model := Profile{}.Apply(DefaultSystemPrompt, DefaultPlaceholder, "gpt-3.5-turbo")
	if prompt != DefaultSystemPrompt || placeholder != DefaultPlaceholder || model != "gpt-3.5-turbo" {
		t.Fatalf("empty profile changed values: %q %q %q", prompt, placeholder, model)
	}

	prompt, placeholder, model = Profile{SystemPrompt: "be brief", Model: "gpt-4o"}.Apply(DefaultSystemPrompt, DefaultPlaceholder, "gpt-3.5-turbo")
	if prompt != "be brief" {
		t.Fatalf("system prompt override = %q, want %q", prompt, "be brief")
	}
	if placeholder != DefaultPlaceholder {
		t.Fatalf("placeholder = %q, want default kept", placeholder)
	}
	if model != "gpt-4o" {
		t.Fatalf("model override = %q, want %q", model, "gpt-4o")
	}
}
