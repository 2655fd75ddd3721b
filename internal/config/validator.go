package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/robfig/cron/v3"
)

// Drivers lists the supported browser drivers.
var Drivers = []string{"playwright", "chromedp", "rod"}

type Validator struct {
	config   *Config
	errors   []string
	warnings []string
}

func NewValidator(cfg *Config) *Validator {
	return &Validator{
		config:   cfg,
		errors:   []string{},
		warnings: []string{},
	}
}

// Validate checks the configuration and returns every problem found at once.
func (v *Validator) Validate() error {
	v.validateTarget()
	v.validateBrowser()
	v.validateScenario()
	v.validateBackend()
	v.validateWatch()

	if len(v.errors) > 0 {
		return fmt.Errorf("config validation failed:\n%s", strings.Join(v.errors, "\n"))
	}
	return nil
}

// Warnings returns non-fatal findings of the last Validate call.
func (v *Validator) Warnings() []string {
	return v.warnings
}

func (v *Validator) validateTarget() {
	u, err := url.Parse(v.config.Target.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		v.addError(fmt.Sprintf("target.base_url %q is not an absolute URL", v.config.Target.BaseURL))
	}
}

func (v *Validator) validateBrowser() {
	b := v.config.Browser
	known := false
	for _, d := range Drivers {
		if b.Driver == d {
			known = true
		}
	}
	if !known {
		v.addError(fmt.Sprintf("browser.driver %q is not one of %s", b.Driver, strings.Join(Drivers, ", ")))
	}
	if b.Timeout <= 0 {
		v.addError("browser.timeout must be positive")
	}
	if b.Width <= 0 || b.Height <= 0 {
		v.addError("browser.width and browser.height must be positive")
	}
}

func (v *Validator) validateScenario() {
	s := v.config.Scenario
	if len(s.Tasks) == 0 {
		v.addError("scenario.tasks must not be empty")
	}
	seen := map[string]bool{}
	for _, task := range s.Tasks {
		if task == "" {
			v.addError("scenario.tasks contains an empty task")
			continue
		}
		if seen[task] {
			v.addWarning(fmt.Sprintf("scenario.tasks lists %q twice", task))
		}
		seen[task] = true
		if strings.TrimSpace(task) != task {
			v.addWarning(fmt.Sprintf("task %q has surrounding whitespace; it is typed verbatim", task))
		}
	}
	if s.Repeat < 1 {
		v.addError("scenario.repeat must be at least 1")
	}
}

func (v *Validator) validateBackend() {
	if v.config.Backend.URL == "" {
		return
	}
	if _, err := url.ParseRequestURI(v.config.Backend.URL); err != nil {
		v.addError(fmt.Sprintf("backend.url %q is invalid", v.config.Backend.URL))
	}
}

func (v *Validator) validateWatch() {
	if _, err := cron.ParseStandard(v.config.Watch.Schedule); err != nil {
		v.addError(fmt.Sprintf("watch.schedule %q: %v", v.config.Watch.Schedule, err))
	}
}

func (v *Validator) addError(message string) {
	v.errors = append(v.errors, "   ❌ "+message)
}

func (v *Validator) addWarning(message string) {
	v.warnings = append(v.warnings, "   ⚠️  "+message)
}

// Validate is a shorthand for NewValidator(cfg).Validate().
func Validate(cfg *Config) error {
	return NewValidator(cfg).Validate()
}
