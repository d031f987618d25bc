package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Output      string  `yaml:"output"`
	Delay       float64 `yaml:"delay_seconds"`
	Timeout     float64 `yaml:"timeout_seconds"`
	RetryDelay  float64 `yaml:"retry_delay_seconds"`
	Retries     uint64  `yaml:"retries"`
	MaxChapters int     `yaml:"max_chapters"`
	Debug       bool    `yaml:"debug"`

	DefaultURL string `yaml:"default_url"`
	Start      int    `yaml:"start"`
	End        int    `yaml:"end"`

	Proxy      string `yaml:"proxy"`
	CookieFile string `yaml:"cookie_file"`
	UserAgent  string `yaml:"user_agent"`

	Headful    bool `yaml:"headful"`
	Static     bool `yaml:"static"`
	NoMerge    bool `yaml:"no_merge"`
	Epub       bool `yaml:"epub"`
	StrictNext bool `yaml:"strict_next"`
}

type Options struct {
	IgnoreConfig bool
	Debug        bool
	Output       string
	Delay        float64
	Timeout      float64
	RetryDelay   float64
	Retries      uint64
	MaxChapters  int
	DefaultURL   string
	Start        int
	End          int
	Proxy        string
	CookieFile   string
	UserAgent    string
	Headful      bool
	Static       bool
	NoMerge      bool
	Epub         bool
	StrictNext   bool
}

func DefaultConfig() *Config {
	return &Config{
		Output:      "./output",
		Delay:       2.0,
		Timeout:     30.0,
		RetryDelay:  5.0,
		Retries:     3,
		MaxChapters: 1000,
		Start:       1,
	}
}

func SaveYAML(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

func loadYAML(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}

	return &c, nil
}

func LoadMerged(opts Options) (*Config, string, error) {
	if opts.IgnoreConfig {
		cfg := DefaultConfig()
		mergeConfig(cfg, opts)
		normalizeDefaults(cfg)
		return cfg, "(ignored config)", nil
	}

	activePath, err := ActiveConfigPath()
	if err == ErrNoConfig || activePath == "" {
		cfg := DefaultConfig()
		mergeConfig(cfg, opts)
		normalizeDefaults(cfg)
		return cfg, "(default config in memory)\nRun `noveld config init` to create an actual config\n", nil
	}
	if err != nil {
		return nil, "", err
	}

	cfg, err := loadYAML(activePath)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load config %s: %w", activePath, err)
	}

	mergeConfig(cfg, opts)
	normalizeDefaults(cfg)

	return cfg, activePath, nil
}

func mergeConfig(c *Config, o Options) {
	if o.Output != "" {
		c.Output = o.Output
	}
	if o.Delay != 0 {
		c.Delay = o.Delay
	}
	if o.Timeout != 0 {
		c.Timeout = o.Timeout
	}
	if o.RetryDelay != 0 {
		c.RetryDelay = o.RetryDelay
	}
	if o.Retries != 0 {
		c.Retries = o.Retries
	}
	if o.MaxChapters != 0 {
		c.MaxChapters = o.MaxChapters
	}
	if o.Debug {
		c.Debug = true
	}
	if o.DefaultURL != "" {
		c.DefaultURL = o.DefaultURL
	}
	if o.Start != 0 {
		c.Start = o.Start
	}
	if o.End != 0 {
		c.End = o.End
	}
	if o.Proxy != "" {
		c.Proxy = o.Proxy
	}
	if o.CookieFile != "" {
		c.CookieFile = o.CookieFile
	}
	if o.UserAgent != "" {
		c.UserAgent = o.UserAgent
	}
	if o.Headful {
		c.Headful = true
	}
	if o.Static {
		c.Static = true
	}
	if o.NoMerge {
		c.NoMerge = true
	}
	if o.Epub {
		c.Epub = true
	}
	if o.StrictNext {
		c.StrictNext = true
	}
}

func normalizeDefaults(c *Config) {
	if c.Output == "" {
		c.Output = "./output"
	}
	if c.Delay <= 0 {
		c.Delay = 2.0
	}
	if c.Timeout <= 0 {
		c.Timeout = 30.0
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = 5.0
	}
	if c.Retries == 0 {
		c.Retries = 3
	}
	if c.MaxChapters <= 0 {
		c.MaxChapters = 1000
	}
	if c.Start <= 0 {
		c.Start = 1
	}
}

func (c *Config) Print() {
	fmt.Printf(" -output: %s\n", c.Output)
	fmt.Printf(" -delay_seconds: %.1f\n", c.Delay)
	fmt.Printf(" -timeout_seconds: %.1f\n", c.Timeout)
	fmt.Printf(" -retry_delay_seconds: %.1f\n", c.RetryDelay)
	fmt.Printf(" -retries: %d\n", c.Retries)
	fmt.Printf(" -max_chapters: %d\n", c.MaxChapters)
	if c.Debug {
		fmt.Printf(" -debug: %t\n", c.Debug)
	}
	if c.DefaultURL != "" {
		fmt.Printf(" -url: %s\n", c.DefaultURL)
	}
	if c.Start > 1 {
		fmt.Printf(" -start: %d\n", c.Start)
	}
	if c.End > 0 {
		fmt.Printf(" -end: %d\n", c.End)
	}
	if c.Proxy != "" {
		fmt.Printf(" -proxy: %s\n", c.Proxy)
	}
	if c.CookieFile != "" {
		fmt.Printf(" -cookie_file: %s\n", c.CookieFile)
	}
	if c.UserAgent != "" {
		fmt.Printf(" -user_agent: %s\n", c.UserAgent)
	}
	if c.Headful {
		fmt.Printf(" -headful: %t\n", c.Headful)
	}
	if c.Static {
		fmt.Printf(" -static: %t\n", c.Static)
	}
	if c.NoMerge {
		fmt.Printf(" -no_merge: %t\n", c.NoMerge)
	}
	if c.Epub {
		fmt.Printf(" -epub: %t\n", c.Epub)
	}
	if c.StrictNext {
		fmt.Printf(" -strict_next: %t\n", c.StrictNext)
	}
}
