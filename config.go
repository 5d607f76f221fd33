package clnet

import (
	"bytes"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// MaxInfoString is the longest userinfo string sent in a connect request.
const MaxInfoString = 512

// ErrInvalidConfig is returned by LoadConfig and Validate.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds the client settings. It is read from a YAML file, or a
// TOML file if the name ends in .toml, and written back on disconnect.
type Config struct {
	// Port is the local UDP port.
	Port int `yaml:"port" toml:"port"`

	// QPort identifies the client to the server independently of its
	// source port. 0 picks one at startup.
	QPort int `yaml:"qport" toml:"qport"`

	// Timeout is the number of seconds without a datagram from the
	// server after which a tick counts as timed out.
	Timeout float64 `yaml:"timeout" toml:"timeout"`

	RconPassword string `yaml:"rcon_password" toml:"rcon_password"`
	RconAddress  string `yaml:"rcon_address" toml:"rcon_address"`

	NoUDP bool `yaml:"noudp" toml:"noudp"`
	NoIPX bool `yaml:"noipx" toml:"noipx"`

	// LoadPaused pauses a local single player game while the client loads.
	LoadPaused bool `yaml:"load_paused" toml:"load_paused"`

	Game string `yaml:"game" toml:"game"`

	AddressBook []string          `yaml:"address_book" toml:"address_book"`
	Userinfo    map[string]string `yaml:"userinfo" toml:"userinfo"`

	MulticastGroup     string `yaml:"multicast_group" toml:"multicast_group"`
	MulticastInterface string `yaml:"multicast_interface" toml:"multicast_interface"`
	MulticastHops      int    `yaml:"multicast_hops" toml:"multicast_hops"`

	LogLevel    string `yaml:"log_level" toml:"log_level"`
	LogDir      string `yaml:"log_dir" toml:"log_dir"`
	Storage     string `yaml:"storage" toml:"storage"`
	MetricsAddr string `yaml:"metrics_addr" toml:"metrics_addr"`

	path string
}

// DefaultConfig returns the settings used for keys missing from
// the configuration file.
func DefaultConfig() *Config {
	return &Config{
		Port:           27901,
		Timeout:        120,
		NoIPX:          true,
		LoadPaused:     true,
		Userinfo:       map[string]string{"name": "unnamed", "skin": "male/grunt", "rate": "8000", "msg": "1", "hand": "0", "fov": "90"},
		MulticastGroup: "ff12::666",
		MulticastHops:  1,
		LogLevel:       "info",
		LogDir:         "log",
		Storage:        "storage/servers.sqlite",
	}
}

// LoadConfig reads the configuration file at path.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	cfg.path = path

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read config %s failed", path)
	}

	// a userinfo table in the file replaces the defaults
	defaults := cfg.Userinfo
	cfg.Userinfo = nil

	if isTOML(path) {
		_, err = toml.Decode(string(data), cfg)
	} else {
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "parse config %s failed", path)
	}

	if cfg.Userinfo == nil {
		cfg.Userinfo = defaults
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Path returns the file the Config is saved to.
func (cfg *Config) Path() string { return cfg.path }

// SetPath sets the file the Config is saved to.
// An empty path disables Save.
func (cfg *Config) SetPath(path string) { cfg.path = path }

// Validate checks the settings for values the client cannot use.
func (cfg *Config) Validate() error {
	if cfg.Timeout <= 0 {
		return errors.Wrap(ErrInvalidConfig, "timeout must be positive")
	}

	if len(cfg.AddressBook) > AddressBookSize {
		return errors.Wrapf(ErrInvalidConfig, "address book has %d entries, at most %d allowed",
			len(cfg.AddressBook), AddressBookSize)
	}

	if cfg.QPort < 0 || cfg.QPort > 0xffff {
		return errors.Wrapf(ErrInvalidConfig, "qport %d out of range", cfg.QPort)
	}

	for k, v := range cfg.Userinfo {
		if !validInfo(k) || !validInfo(v) {
			return errors.Wrapf(ErrInvalidConfig, "userinfo %q: keys and values must not contain \\, \" or ;", k)
		}
	}

	if len(cfg.UserinfoString()) > MaxInfoString {
		return errors.Wrap(ErrInvalidConfig, "userinfo too long")
	}

	return nil
}

// Save writes the Config back to its file in the format it was read in.
func (cfg *Config) Save() error {
	if cfg.path == "" {
		return nil
	}

	var data []byte
	if isTOML(cfg.path) {
		buf := &bytes.Buffer{}
		if err := toml.NewEncoder(buf).Encode(cfg); err != nil {
			return errors.Wrap(err, "encode config failed")
		}
		data = buf.Bytes()
	} else {
		var err error
		data, err = yaml.Marshal(cfg)
		if err != nil {
			return errors.Wrap(err, "encode config failed")
		}
	}

	if dir := filepath.Dir(cfg.path); dir != "" {
		if err := os.MkdirAll(dir, 0775); err != nil {
			return errors.Wrapf(err, "create %s failed", dir)
		}
	}

	return errors.Wrapf(os.WriteFile(cfg.path, data, 0664), "write config %s failed", cfg.path)
}

// UserinfoString renders the userinfo as a \key\value string
// in key order.
func (cfg *Config) UserinfoString() string {
	keys := make([]string, 0, len(cfg.Userinfo))
	for k := range cfg.Userinfo {
		if k != "" && validInfo(k) && validInfo(cfg.Userinfo[k]) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString("\\" + k + "\\" + cfg.Userinfo[k])
	}

	return b.String()
}

func validInfo(s string) bool {
	return !strings.ContainsAny(s, "\\\";")
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}
