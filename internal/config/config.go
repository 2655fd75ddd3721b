package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. TODOE2E_TARGET_BASE_URL.
const EnvPrefix = "TODOE2E"

// Config represents the harness configuration
type Config struct {
	Target    TargetConfig    `mapstructure:"target"`
	Browser   BrowserConfig   `mapstructure:"browser"`
	Scenario  ScenarioConfig  `mapstructure:"scenario"`
	Artifacts ArtifactsConfig `mapstructure:"artifacts"`
	Backend   BackendConfig   `mapstructure:"backend"`
	Watch     WatchConfig     `mapstructure:"watch"`
}

type TargetConfig struct {
	BaseURL    string `mapstructure:"base_url"`
	Autodetect bool   `mapstructure:"autodetect"`
	// Preflight probes the base URL before a browser is started.
	Preflight bool `mapstructure:"preflight"`
}

type BrowserConfig struct {
	Driver   string        `mapstructure:"driver"`
	Headless bool          `mapstructure:"headless"`
	SlowMo   time.Duration `mapstructure:"slow_mo"`
	Timeout  time.Duration `mapstructure:"timeout"`
	Width    int           `mapstructure:"width"`
	Height   int           `mapstructure:"height"`
	// CDPURL attaches to an already running browser (chromedp and rod drivers).
	CDPURL string `mapstructure:"cdp_url"`
	// SkipInstall assumes playwright browsers are preinstalled.
	SkipInstall bool `mapstructure:"skip_install"`
	Videos      bool `mapstructure:"videos"`
}

type ScenarioConfig struct {
	Tasks         []string `mapstructure:"tasks"`
	VerifyItems   bool     `mapstructure:"verify_items"`
	Repeat        int      `mapstructure:"repeat"`
	InputSelector string   `mapstructure:"input_selector"`
	FormSelector  string   `mapstructure:"form_selector"`
}

type ArtifactsConfig struct {
	Dir         string `mapstructure:"dir"`
	Screenshots bool   `mapstructure:"screenshots"`
	Report      bool   `mapstructure:"report"`
	JUnit       bool   `mapstructure:"junit"`
	MetricsFile string `mapstructure:"metrics_file"`
}

type BackendConfig struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type WatchConfig struct {
	Schedule  string        `mapstructure:"schedule"`
	Timeout   time.Duration `mapstructure:"timeout"`
	HistoryDB string        `mapstructure:"history_db"`
	Listen    string        `mapstructure:"listen"`
}

// ScreenshotDir is where failure screenshots are written.
func (c *ArtifactsConfig) ScreenshotDir() string {
	if !c.Screenshots || c.Dir == "" {
		return ""
	}
	return strings.TrimRight(c.Dir, "/") + "/screenshots"
}

// BackendEnabled reports whether the backend API check should run.
func (c *BackendConfig) Enabled() bool {
	return c.URL != ""
}

// setDefaults registers every key so env overrides work without a config file.
func setDefaults(v *viper.Viper) {
	v.SetDefault("target.base_url", "http://127.0.0.1:5173")
	v.SetDefault("target.autodetect", false)
	v.SetDefault("target.preflight", true)

	v.SetDefault("browser.driver", "playwright")
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.slow_mo", 0)
	v.SetDefault("browser.timeout", 30*time.Second)
	v.SetDefault("browser.width", 1280)
	v.SetDefault("browser.height", 720)
	v.SetDefault("browser.cdp_url", "")
	v.SetDefault("browser.skip_install", false)
	v.SetDefault("browser.videos", false)

	v.SetDefault("scenario.tasks", []string{"play", "run", "work"})
	v.SetDefault("scenario.verify_items", true)
	v.SetDefault("scenario.repeat", 1)
	v.SetDefault("scenario.input_selector", `input[name="task"]`)
	v.SetDefault("scenario.form_selector", "form")

	v.SetDefault("artifacts.dir", "./test-results")
	v.SetDefault("artifacts.screenshots", true)
	v.SetDefault("artifacts.report", true)
	v.SetDefault("artifacts.junit", true)
	v.SetDefault("artifacts.metrics_file", "")

	v.SetDefault("backend.url", "")
	v.SetDefault("backend.timeout", 10*time.Second)

	v.SetDefault("watch.schedule", "@every 5m")
	v.SetDefault("watch.timeout", 5*time.Minute)
	v.SetDefault("watch.history_db", "./test-results/history.db")
	v.SetDefault("watch.listen", ":9464")
}

// bindLegacyEnv keeps the plain variable names used by existing e2e setups working.
func bindLegacyEnv(v *viper.Viper) {
	_ = v.BindEnv("target.base_url", EnvPrefix+"_TARGET_BASE_URL", "BASE_URL")
	_ = v.BindEnv("target.autodetect", EnvPrefix+"_TARGET_AUTODETECT", "E2E_BASEURL_AUTODETECT")
	_ = v.BindEnv("browser.headless", EnvPrefix+"_BROWSER_HEADLESS", "HEADLESS")
	_ = v.BindEnv("browser.skip_install", EnvPrefix+"_BROWSER_SKIP_INSTALL", "PLAYWRIGHT_PREINSTALLED")
	_ = v.BindEnv("artifacts.screenshots", EnvPrefix+"_ARTIFACTS_SCREENSHOTS", "SCREENSHOTS")
	_ = v.BindEnv("browser.videos", EnvPrefix+"_BROWSER_VIDEOS", "VIDEOS")
}

func newViper(configFile string) (*viper.Viper, error) {
	loadDotEnv(".env")

	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		v.SetConfigName("todo-e2e")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			// It's OK if todo-e2e.yaml doesn't exist
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	// Environment variable overrides
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindLegacyEnv(v)

	return v, nil
}

func unmarshal(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	// Comma separated env values arrive as a single element.
	if len(cfg.Scenario.Tasks) == 1 && strings.Contains(cfg.Scenario.Tasks[0], ",") {
		cfg.Scenario.Tasks = splitList(cfg.Scenario.Tasks[0])
	}
	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Load reads configuration from configFile (or ./todo-e2e.yaml when empty),
// the .env file and the environment.
func Load(configFile string) (*Config, error) {
	v, err := newViper(configFile)
	if err != nil {
		return nil, err
	}
	return unmarshal(v)
}

// Store holds the current configuration and swaps it when the file changes.
type Store struct {
	mu     sync.RWMutex
	cfg    *Config
	v      *viper.Viper
	logger *log.Logger
}

// NewStore loads configuration like Load and keeps it for hot reload.
func NewStore(configFile string, logger *log.Logger) (*Store, error) {
	v, err := newViper(configFile)
	if err != nil {
		return nil, err
	}
	cfg, err := unmarshal(v)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Store{cfg: cfg, v: v, logger: logger}, nil
}

// Get returns the current configuration (thread-safe)
func (s *Store) Get() *Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Watch reloads the configuration whenever the config file changes.
// onChange, when set, is called with the new configuration after the swap.
func (s *Store) Watch(onChange func(*Config)) {
	if s.v.ConfigFileUsed() == "" {
		return
	}
	s.v.OnConfigChange(func(e fsnotify.Event) {
		s.logger.Printf("[e2e-config] Config file changed: %s", e.Name)

		newCfg, err := unmarshal(s.v)
		if err != nil {
			s.logger.Printf("[e2e-config] Failed to reload config: %v", err)
			return
		}
		if err := Validate(newCfg); err != nil {
			s.logger.Printf("[e2e-config] Ignoring invalid config: %v", err)
			return
		}

		s.mu.Lock()
		s.cfg = newCfg
		s.mu.Unlock()
		s.logger.Println("[e2e-config] Configuration reloaded successfully")

		if onChange != nil {
			onChange(newCfg)
		}
	})
	s.v.WatchConfig()
}
