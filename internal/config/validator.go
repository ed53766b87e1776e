package config

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/niuniu-server/niuniu-load/internal/logging"
	"github.com/niuniu-server/niuniu-load/internal/scenario"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors struct {
	Errors []*ValidationError
}

func (e *ValidationErrors) Error() string {
	if len(e.Errors) == 0 {
		return "no validation errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e.Errors)))
	for i, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// Add adds an error to the collection.
func (e *ValidationErrors) Add(field, message string) {
	e.Errors = append(e.Errors, &ValidationError{Field: field, Message: message})
}

// HasErrors returns true if there are any errors.
func (e *ValidationErrors) HasErrors() bool {
	return len(e.Errors) > 0
}

// Validate checks the configuration after defaults have been applied.
func (c *Config) Validate() error {
	errs := &ValidationErrors{}

	validateHost(c.Host, errs)

	if c.Users < 1 {
		errs.Add("users", fmt.Sprintf("must be at least 1, got %d", c.Users))
	}
	if c.SpawnRate <= 0 {
		errs.Add("spawnRate", fmt.Sprintf("must be positive, got %v", c.SpawnRate))
	}
	if c.RunTime < 0 {
		errs.Add("runTime", "must not be negative")
	}
	if c.Timeout < 0 {
		errs.Add("timeout", "must not be negative")
	}
	if c.LogLevel != "" {
		if _, err := logging.ParseLevel(c.LogLevel); err != nil {
			errs.Add("logLevel", err.Error())
		}
	}

	validateProfiles(c.Profiles, errs)

	if errs.HasErrors() {
		return errs
	}
	return nil
}

func validateHost(host string, errs *ValidationErrors) {
	if host == "" {
		errs.Add("host", "is required")
		return
	}
	u, err := url.Parse(host)
	if err != nil {
		errs.Add("host", fmt.Sprintf("invalid URL: %v", err))
		return
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		errs.Add("host", fmt.Sprintf("scheme must be http or https, got %q", u.Scheme))
	}
	if u.Host == "" {
		errs.Add("host", "missing host name")
	}
}

func validateProfiles(profiles map[string]ProfileConfig, errs *ValidationErrors) {
	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	sort.Strings(names)

	known := make(map[string]bool)
	for _, name := range scenario.Names() {
		known[name] = true
	}

	for _, name := range names {
		field := "profiles." + name
		if !known[name] {
			errs.Add(field, fmt.Sprintf("unknown profile, available: %s", strings.Join(scenario.Names(), ", ")))
			continue
		}
		if w := profiles[name].Weight; w != nil && *w < 0 {
			errs.Add(field+".weight", "must not be negative")
		}
	}
}

// ResolveProfiles selects the named profiles (all when empty) and applies
// weight overrides. Profiles whose weight ends up at zero are dropped.
func (c *Config) ResolveProfiles(names ...string) ([]*scenario.Profile, error) {
	selected, err := scenario.Select(names...)
	if err != nil {
		return nil, err
	}

	out := selected[:0]
	for _, p := range selected {
		if override, ok := c.Profiles[p.Name]; ok && override.Weight != nil {
			p.Weight = *override.Weight
		}
		if p.Weight > 0 {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no profile left to run: every selected profile has weight 0")
	}
	return out, nil
}
