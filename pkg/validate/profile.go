package validate

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ValidationProfile configures the completeness checks.
type ValidationProfile struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	// PreambleRequired lists document types (UU, PP, ...) that are expected
	// to carry a preamble.
	PreambleRequired []string `yaml:"preamble_required" json:"preamble_required"`

	// RequiredMetadata lists metadata fields whose absence is a warning:
	// title, type, number, year, subject, authority.
	RequiredMetadata []string `yaml:"required_metadata" json:"required_metadata"`

	// MaxExamples caps the section IDs listed per issue. Zero means no cap.
	MaxExamples int `yaml:"max_examples,omitempty" json:"max_examples,omitempty"`
}

// DefaultProfile returns the profile for Indonesian national legislation.
func DefaultProfile() *ValidationProfile {
	return &ValidationProfile{
		Name:             "indonesian-statute",
		Description:      "Completeness checks for Indonesian laws and regulations",
		PreambleRequired: []string{"UU", "Perpres", "PP"},
		RequiredMetadata: []string{"title", "number", "year"},
		MaxExamples:      10,
	}
}

// ProfileFromYAML deserializes YAML bytes into a ValidationProfile. Fields
// absent from the document keep their default values.
func ProfileFromYAML(yamlData []byte) (*ValidationProfile, error) {
	profile := DefaultProfile()
	if err := yaml.Unmarshal(yamlData, profile); err != nil {
		return nil, fmt.Errorf("failed to parse YAML profile: %w", err)
	}
	return profile, nil
}

// LoadProfileFromFile reads a YAML validation profile from disk.
func LoadProfileFromFile(filePath string) (*ValidationProfile, error) {
	yamlData, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile file %s: %w", filePath, err)
	}
	return ProfileFromYAML(yamlData)
}

// ToYAML serializes the profile.
func (profile *ValidationProfile) ToYAML() ([]byte, error) {
	return yaml.Marshal(profile)
}
