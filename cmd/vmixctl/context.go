package main

import (
	"strings"
	"sync"

	"vmixctl/internal/apiclient"
	"vmixctl/internal/config"
)

type commandContext struct {
	daemonFlag *string
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(daemonFlag, configFlag *string) *commandContext {
	return &commandContext{
		daemonFlag: daemonFlag,
		configFlag: configFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// daemonBaseURL resolves the daemon address from the --daemon flag, falling
// back to the configured API bind address.
func (c *commandContext) daemonBaseURL() (string, error) {
	if c.daemonFlag != nil {
		if addr := strings.TrimSpace(*c.daemonFlag); addr != "" {
			return normalizeBaseURL(addr), nil
		}
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return "", err
	}
	return normalizeBaseURL(cfg.API.Bind), nil
}

func (c *commandContext) client() (*apiclient.Client, error) {
	base, err := c.daemonBaseURL()
	if err != nil {
		return nil, err
	}
	token := ""
	if cfg, err := c.ensureConfig(); err == nil && cfg != nil {
		token = cfg.API.Token
	}
	return apiclient.New(base, token, nil), nil
}

func normalizeBaseURL(addr string) string {
	if strings.HasPrefix(addr, "http://") || strings.HasPrefix(addr, "https://") {
		return addr
	}
	return "http://" + addr
}
