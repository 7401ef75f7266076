// Package config loads the gateway configuration file.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type (
	Config struct {
		HTTP     Endpoint `yaml:"http"`
		Stream   Stream   `yaml:"stream"`
		Upstream string   `yaml:"upstream"`
		Routes   []Route  `yaml:"routes"`
		Session  Session  `yaml:"session"`
		Storage  Storage  `yaml:"storage"`
		Auth     Auth     `yaml:"auth"`
		Log      Log      `yaml:"log"`
	}

	Endpoint struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	}

	Stream struct {
		Endpoint `yaml:",inline"`
		Upstream string `yaml:"upstream"`
		TLS      TLS    `yaml:"tls"`
	}

	TLS struct {
		Cert string `yaml:"cert"`
		Key  string `yaml:"key"`
	}

	// Route sends requests under Prefix to Upstream. Routes are
	// protected unless Public is set.
	Route struct {
		Prefix   string `yaml:"prefix"`
		Upstream string `yaml:"upstream"`
		Public   bool   `yaml:"public"`
	}

	Session struct {
		Cookie string `yaml:"cookie"`
		Secure bool   `yaml:"secure"`
	}

	Storage struct {
		Path string `yaml:"path"`
	}

	Auth struct {
		RootKeyEnv string `yaml:"root_key_env"`
	}

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	}
)

var (
	envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

	ErrNoUpstream = errors.New("config: either upstream or routes must be set")
)

func Default() Config {
	return Config{
		HTTP: Endpoint{Host: "localhost", Port: 7007},
		Stream: Stream{
			Endpoint: Endpoint{Host: "localhost", Port: 7443},
			TLS: TLS{
				Cert: "certs/selfsigned.crt",
				Key:  "certs/selfsigned.key",
			},
		},
		Session: Session{Cookie: "turnstile_session"},
		Storage: Storage{Path: "turnstile.db"},
		Auth:    Auth{RootKeyEnv: "TURNSTILE_ROOTKEY"},
		Log:     Log{Level: "info", Format: "console"},
	}
}

// Load decodes the file at path on top of the values already in cfg.
// ${VAR} references are replaced with the value of the environment
// variable before decoding, unset variables expand to an empty string.
func Load(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("unable to read config file %v, cause %w", path, err)
	}
	return Decode(data, os.Getenv, cfg)
}

func Decode(data []byte, getenv func(string) string, cfg *Config) error {
	expanded := envRef.ReplaceAllStringFunc(string(data), func(ref string) string {
		return getenv(envRef.FindStringSubmatch(ref)[1])
	})
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return fmt.Errorf("unable to parse config, cause %w", err)
	}
	return nil
}

func (c *Config) Validate() error {
	if err := c.HTTP.validate("http"); err != nil {
		return err
	}
	if c.Upstream == "" && len(c.Routes) == 0 {
		return ErrNoUpstream
	}
	for i, r := range c.Routes {
		if !strings.HasPrefix(r.Prefix, "/") {
			return fmt.Errorf("config: routes[%v] prefix %q must start with /", i, r.Prefix)
		}
		if r.Upstream == "" {
			return fmt.Errorf("config: routes[%v] without upstream", i)
		}
	}
	if c.StreamEnabled() {
		if err := c.Stream.validate("stream"); err != nil {
			return err
		}
		if c.Stream.TLS.Cert == "" || c.Stream.TLS.Key == "" {
			return errors.New("config: stream endpoint requires tls.cert and tls.key")
		}
	}
	if c.Session.Cookie == "" {
		return errors.New("config: session.cookie cannot be empty")
	}
	if c.Storage.Path == "" {
		return errors.New("config: storage.path cannot be empty")
	}
	if c.Auth.RootKeyEnv == "" {
		return errors.New("config: auth.root_key_env cannot be empty")
	}
	return nil
}

// StreamEnabled reports whether the upgrade endpoint should run
func (c *Config) StreamEnabled() bool {
	return c.Stream.Upstream != ""
}

// RouteTable returns the configured routes, when none is given upstream
// becomes a single protected route for /
func (c *Config) RouteTable() []Route {
	if len(c.Routes) > 0 {
		return c.Routes
	}
	return []Route{{Prefix: "/", Upstream: c.Upstream}}
}

func (e Endpoint) Addr() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

func (e Endpoint) validate(name string) error {
	if e.Port <= 0 || e.Port > 65535 {
		return fmt.Errorf("config: %v.port %v is out of range", name, e.Port)
	}
	return nil
}
