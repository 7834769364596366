package fixtures

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/marcelsud/webhook-ledger/webhook"
	"gopkg.in/yaml.v3"
)

/* Loader reads seed records from a fixtures YAML file
 * Keeps file order so seeding is deterministic
 */

// Config represents the structure of fixtures.yaml
type Config struct {
	Webhooks []FixtureConfig `yaml:"webhooks"`
}

// FixtureConfig represents a single webhook in the YAML file
type FixtureConfig struct {
	Name         string `yaml:"name"`
	Payload      string `yaml:"payload"`
	Source       string `yaml:"source"`
	Status       string `yaml:"status"` // Default: pending
	ErrorMessage string `yaml:"error_message"`
	UserID       string `yaml:"user_id"`
	Age          string `yaml:"age"` // Optional Go duration, e.g. "90m"
}

// Loader holds the loaded fixtures
type Loader struct {
	fixtures []*Fixture
}

// NewLoader creates a new fixtures loader
func NewLoader() *Loader {
	return &Loader{}
}

// Load reads and parses a fixtures file
func (l *Loader) Load(filePath string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("reading fixtures file: %w", err)
	}
	return l.Parse(data)
}

// Parse decodes fixtures YAML and validates every entry
func (l *Loader) Parse(data []byte) error {
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return fmt.Errorf("parsing fixtures YAML: %w", err)
	}

	for _, fc := range config.Webhooks {
		status := webhook.Pending
		if fc.Status != "" {
			status = webhook.NewStatus(fc.Status)
		}

		var age time.Duration
		if fc.Age != "" {
			parsed, err := time.ParseDuration(fc.Age)
			if err != nil {
				return fmt.Errorf("parsing age of fixture %s: %w", fc.Name, err)
			}
			age = parsed
		}

		fixture := &Fixture{
			Name:         fc.Name,
			Payload:      fc.Payload,
			Source:       fc.Source,
			Status:       status,
			ErrorMessage: fc.ErrorMessage,
			UserID:       fc.UserID,
			Age:          age,
		}

		if err := fixture.Validate(); err != nil {
			return fmt.Errorf("validating fixture: %w", err)
		}

		l.fixtures = append(l.fixtures, fixture)
	}

	return nil
}

// List returns all loaded fixtures in file order
func (l *Loader) List() []*Fixture {
	return l.fixtures
}

// Seed inserts every loaded fixture and returns the ids in file order
func (l *Loader) Seed(ctx context.Context, writer webhook.Writer, now time.Time) ([]string, error) {
	ids := make([]string, 0, len(l.fixtures))
	for _, f := range l.fixtures {
		id, err := writer.Insert(ctx, f.Webhook(now))
		if err != nil {
			return ids, fmt.Errorf("seeding fixture %s: %w", f.Name, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
