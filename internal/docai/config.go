package docai

import (
	"net/http"
	"time"
)

type Config struct {
	APIKey       string
	BaseURL      string        // e.g. https://api.tensorlake.ai/documents/v2
	Timeout      time.Duration // per HTTP request
	PollInterval time.Duration
	WaitTimeout  time.Duration // 0 = wait until the job is terminal or ctx ends
	HTTPClient   *http.Client  // optional
}

func (c *Config) withDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = "https://api.tensorlake.ai/documents/v2"
	}
	if c.Timeout <= 0 {
		c.Timeout = 60 * time.Second
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 2 * time.Second
	}
}
