// =============================================================================
// config.go - Console Configuration
// =============================================================================
//
// Settings come from three layers, each overriding the previous one:
//
//  1. a YAML file (--config, or ~/.config/chatobserver/config.yaml if present)
//  2. CHATOBSERVER_* environment variables
//  3. command-line flags
//
// Example file:
//
//	nickname: observer
//	token: oauth:abcdef
//	transport: tls
//	channels: [dallas, ronni]
//	send_interval: 1500ms
//
// =============================================================================

package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/chatobserver/observer/chatprotocol"
)

const (
	configDirName  = "chatobserver"
	configFileName = "config.yaml"

	// tokenPrefix is required by the service in front of OAuth tokens.
	tokenPrefix = "oauth:"
)

// minSendInterval is the lowest send interval the console accepts. Sending
// faster gets the account temporarily banned by the service.
var minSendInterval = chatprotocol.DefaultSendInterval

// config holds the console settings.
type config struct {
	Nickname     string        `yaml:"nickname" env:"CHATOBSERVER_NICKNAME"`
	Token        string        `yaml:"token" env:"CHATOBSERVER_TOKEN"`
	Transport    string        `yaml:"transport" env:"CHATOBSERVER_TRANSPORT"`
	Address      string        `yaml:"address" env:"CHATOBSERVER_ADDRESS"`
	Channels     []string      `yaml:"channels" env:"CHATOBSERVER_CHANNELS" envSeparator:","`
	SendInterval time.Duration `yaml:"send_interval" env:"CHATOBSERVER_SEND_INTERVAL"`
	PollInterval time.Duration `yaml:"poll_interval" env:"CHATOBSERVER_POLL_INTERVAL"`
	Quiet        bool          `yaml:"quiet" env:"CHATOBSERVER_QUIET"`
	Verbose      bool          `yaml:"verbose" env:"CHATOBSERVER_VERBOSE"`
}

func defaultConfig() config {
	return config{
		Transport:    string(chatprotocol.TransportTCP),
		SendInterval: chatprotocol.DefaultSendInterval,
		PollInterval: chatprotocol.DefaultPollInterval,
	}
}

// defaultConfigPath returns the config file used when --config is not given.
func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, configDirName, configFileName)
}

// loadConfig reads the file at path over the defaults and applies environ on
// top. An empty path loads the default file if it exists.
func loadConfig(path string, environ map[string]string) (config, error) {
	cfg := defaultConfig()

	explicit := path != ""
	if !explicit {
		path = defaultConfigPath()
	}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return config{}, fmt.Errorf("failed to parse %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist) && !explicit:
		default:
			return config{}, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Environment: environ}); err != nil {
		return config{}, fmt.Errorf("failed to read environment: %w", err)
	}
	return cfg, nil
}

// flagValues holds the command-line overrides.
type flagValues struct {
	configPath   string
	nickname     string
	token        string
	transport    string
	address      string
	channels     []string
	sendInterval time.Duration
	quiet        bool
	verbose      bool
}

// register binds the flags to fs.
func (f *flagValues) register(fs *pflag.FlagSet) {
	fs.StringVarP(&f.configPath, "config", "c", "", "Config file (default: "+defaultConfigPath()+")")
	fs.StringVarP(&f.nickname, "nickname", "n", "", "Login nickname")
	fs.StringVar(&f.token, "token", "", "OAuth token (prefer CHATOBSERVER_TOKEN)")
	fs.StringVarP(&f.transport, "transport", "t", "", "Transport: tcp, tls or websocket")
	fs.StringVar(&f.address, "address", "", "Server address (default: the service endpoint for the transport)")
	fs.StringSliceVarP(&f.channels, "join", "j", nil, "Channels to join on connect")
	fs.DurationVar(&f.sendInterval, "send-interval", 0, "Minimum time between outbound commands (at least the default)")
	fs.BoolVarP(&f.quiet, "quiet", "q", false, "Do not print incoming events (see /events)")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "Enable verbose logging")
}

// apply copies the flags the user set into cfg.
func (f *flagValues) apply(fs *pflag.FlagSet, cfg *config) {
	if fs.Changed("nickname") {
		cfg.Nickname = f.nickname
	}
	if fs.Changed("token") {
		cfg.Token = f.token
	}
	if fs.Changed("transport") {
		cfg.Transport = f.transport
	}
	if fs.Changed("address") {
		cfg.Address = f.address
	}
	if fs.Changed("join") {
		cfg.Channels = f.channels
	}
	if fs.Changed("send-interval") {
		cfg.SendInterval = f.sendInterval
	}
	if fs.Changed("quiet") {
		cfg.Quiet = f.quiet
	}
	if fs.Changed("verbose") {
		cfg.Verbose = f.verbose
	}
}

// validate checks the required settings and normalizes the token and the
// channel names.
func (c *config) validate() error {
	if c.Nickname == "" {
		return errors.New("nickname is required (--nickname or CHATOBSERVER_NICKNAME)")
	}
	if c.Token == "" {
		return errors.New("token is required (CHATOBSERVER_TOKEN or the config file)")
	}
	if !strings.HasPrefix(c.Token, tokenPrefix) {
		c.Token = tokenPrefix + c.Token
	}
	if _, err := chatprotocol.ParseTransportKind(c.Transport); err != nil {
		return err
	}
	if c.PollInterval < 0 {
		return errors.New("poll interval must not be negative")
	}
	if c.SendInterval < minSendInterval {
		return fmt.Errorf("send interval must be at least %s", minSendInterval)
	}

	channels := c.Channels[:0]
	for _, ch := range c.Channels {
		if ch = normalizeChannel(ch); ch != "" {
			channels = append(channels, ch)
		}
	}
	c.Channels = channels
	return nil
}

// observerOptions converts the settings into observer options. validate
// must have succeeded.
func (c *config) observerOptions(logger *zap.Logger) []chatprotocol.Option {
	kind, _ := chatprotocol.ParseTransportKind(c.Transport)
	opts := []chatprotocol.Option{
		chatprotocol.WithTransport(kind),
		chatprotocol.WithSendInterval(c.SendInterval),
		chatprotocol.WithPollInterval(c.PollInterval),
		chatprotocol.WithLogger(logger),
	}
	if c.Address != "" {
		opts = append(opts, chatprotocol.WithAddress(c.Address))
	}
	return opts
}
