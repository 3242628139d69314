package config // gofmt

import (
	"fmt"
	"strings"

	"spyder/internal/app/page"
	"spyder/internal/app/queue"

	"github.com/BurntSushi/toml"
)

type Config struct {
	MaxDepth   int32    `toml:"max_depth"` // 0 expands every page
	MaxResults int      `toml:"max_results"`
	URL        string   `toml:"url"`         // stylecheck
	AppTimeout int      `toml:"app_timeout"` //in seconds
	ReqTimeout int      `toml:"req_timeout"` //in seconds
	Order      string   `toml:"order"`       // lifo or fifo
	Follow     []string `toml:"follow"`      // anchors, images, stylesheets
	SameHost   bool     `toml:"same_host"`
}

func NewConfig() *Config {
	return &Config{
		MaxDepth:   3,
		MaxResults: 10,
		URL:        "https://telegram.org", // stylecheck
		AppTimeout: 10,
		ReqTimeout: 2,
		Order:      "lifo",
		Follow:     []string{"anchors"},
		SameHost:   true,
	}
}

// Load returns the defaults overridden by the toml file at path.
func Load(path string) (*Config, error) {
	cfg := NewConfig()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// Validate checks the values that have a fixed vocabulary.
func (c *Config) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("url is empty")
	}
	if _, err := c.QueueOrder(); err != nil {
		return err
	}
	if _, err := c.FollowCapability(); err != nil {
		return err
	}
	return nil
}

func (c *Config) QueueOrder() (queue.Order, error) {
	return queue.ParseOrder(c.Order)
}

// FollowCapability maps Follow to the extractor capabilities it names.
func (c *Config) FollowCapability() (page.Capability, error) {
	var caps page.Capability
	for _, f := range c.Follow {
		switch strings.ToLower(f) {
		case "anchors":
			caps |= page.Anchors
		case "images":
			caps |= page.Images
		case "stylesheets":
			caps |= page.Stylesheets
		default:
			return 0, fmt.Errorf("unknown follow value %q", f)
		}
	}
	return caps, nil
}
