package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"publish-notifier/internal/domain/entity"
)

// DestinationSeed is one entry of the destinations seed file.
type DestinationSeed struct {
	Category   string `yaml:"category"`
	Channel    string `yaml:"channel"`
	WebhookURL string `yaml:"webhook_url"`
	Enabled    *bool  `yaml:"enabled"`
}

// DestinationsFile is the seed file layout.
//
//	destinations:
//	  - category: workflow
//	    channel: "#workflows"
//	    webhook_url: ${SLACK_WEBHOOK_WORKFLOW}
type DestinationsFile struct {
	Destinations []DestinationSeed `yaml:"destinations"`
}

// LoadDestinationsFile reads and validates a destinations seed file.
// ${VAR} references are expanded from the environment so webhook secrets
// can stay out of the file.
func LoadDestinationsFile(path string) ([]DestinationSeed, error) {
	data, err := os.ReadFile(path) // #nosec G304 - path comes from operator configuration
	if err != nil {
		return nil, fmt.Errorf("failed to read destinations file: %w", err)
	}

	var file DestinationsFile
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &file); err != nil {
		return nil, fmt.Errorf("failed to parse destinations file: %w", err)
	}

	if err := file.Validate(); err != nil {
		return nil, fmt.Errorf("invalid destinations file: %w", err)
	}
	return file.Destinations, nil
}

// Validate checks every entry and rejects two enabled entries for the same
// category and channel.
func (f *DestinationsFile) Validate() error {
	var errs []error
	seen := make(map[string]int, len(f.Destinations))

	for i, d := range f.Destinations {
		if _, err := entity.ParseCategory(d.Category); err != nil {
			errs = append(errs, fmt.Errorf("destinations[%d]: %w", i, err))
		}
		if err := entity.ValidateWebhookURL(strings.TrimSpace(d.WebhookURL)); err != nil {
			errs = append(errs, fmt.Errorf("destinations[%d]: %w", i, err))
		}
		if d.Enabled != nil && !*d.Enabled {
			continue
		}
		key := d.Category + "/" + d.Channel
		if j, ok := seen[key]; ok {
			errs = append(errs, fmt.Errorf("destinations[%d]: duplicates destinations[%d] (%s)", i, j, key))
			continue
		}
		seen[key] = i
	}
	return errors.Join(errs...)
}
