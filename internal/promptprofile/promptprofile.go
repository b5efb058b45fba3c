package promptprofile

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultSystemPrompt seeds every completion when no profile or config
// overrides it.
const DefaultSystemPrompt = "This is a conversation between a user and an helpful assistant. " +
	"The assistant thinks step-by-step and gives useful advise to the user, " +
	"with detailed explanation why he gives such advise."

// DefaultPlaceholder is posted into the thread while a completion is running.
const DefaultPlaceholder = "生成なう"

// Profile overrides the relay's prompt surface per deployment. Empty fields
// keep the configured values.
type Profile struct {
	SystemPrompt string `yaml:"system_prompt"`
	Placeholder  string `yaml:"placeholder"`
	Model        string `yaml:"model"`
}

func Load(path string) (Profile, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Profile{}, fmt.Errorf("profile path is required")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, fmt.Errorf("read profile: %w", err)
	}
	var profile Profile
	if err := yaml.Unmarshal(raw, &profile); err != nil {
		return Profile{}, fmt.Errorf("parse profile: %w", err)
	}
	profile.SystemPrompt = strings.TrimSpace(profile.SystemPrompt)
	profile.Placeholder = strings.TrimSpace(profile.Placeholder)
	profile.Model = strings.TrimSpace(profile.Model)
	return profile, nil
}

// Apply merges the profile over the given values and returns the effective
// system prompt, placeholder and model.
func (p Profile) Apply(systemPrompt, placeholder, model string) (string, string, string) {
	if p.SystemPrompt != "" {
		systemPrompt = p.SystemPrompt
	}
	if p.Placeholder != "" {
		placeholder = p.Placeholder
	}
	if p.Model != "" {
		model = p.Model
	}
	return systemPrompt, placeholder, model
}
