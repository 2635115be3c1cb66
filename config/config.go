// Package config loads a Config from YAML, the format the teacher's
// own core.Spec values are authored in, with flag overrides for the
// values an operator commonly wants to set per invocation.
package config

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/ros2go/actionlib/manager"
)

// Config is everything a cmd/ binary needs to stand up a Manager for
// one action.
type Config struct {
	Node      string        `yaml:"node"`
	Namespace string        `yaml:"namespace"`
	Broker    string        `yaml:"broker"`
	ClientID  string        `yaml:"client_id"`
	KeepAlive time.Duration `yaml:"keep_alive"`
	Insecure  bool          `yaml:"insecure"`

	AuditPath string `yaml:"audit_path"`

	Feed struct {
		Enabled bool   `yaml:"enabled"`
		Addr    string `yaml:"addr"`
	} `yaml:"feed"`
}

// Topics derives the standard five-topic set from Namespace.
func (c Config) Topics() manager.Topics {
	return manager.DefaultTopics(c.Namespace)
}

// Load reads and parses a YAML config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("actionlib config: reading %q: %w", path, err)
	}
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("actionlib config: parsing %q: %w", path, err)
	}
	return &c, nil
}

// PreScanConfigPath finds the value of a "-c" (or "--c") flag in args
// without otherwise parsing it, in either "-c value" or "-c=value"
// form. Callers use it to load a config file before the file's own
// values are used as flag.FlagSet defaults; by the time flag.Parse
// itself would see "-c", RegisterFlags has already bound its defaults
// to the loaded Config, too late to change what gets loaded.
func PreScanConfigPath(args []string) string {
	for i := 0; i < len(args); i++ {
		a := args[i]
		if v, ok := strings.CutPrefix(a, "-c="); ok {
			return v
		}
		if v, ok := strings.CutPrefix(a, "--c="); ok {
			return v
		}
		if a == "-c" || a == "--c" {
			if i+1 < len(args) {
				return args[i+1]
			}
			return ""
		}
	}
	return ""
}

// RegisterFlags binds command-line overrides for the fields an
// operator most often needs to change without editing the file, in
// the same "flag as pointer, apply after parse" style the teacher's
// siomq command uses.
func RegisterFlags(fs *flag.FlagSet, c *Config) {
	fs.StringVar(&c.Broker, "broker", c.Broker, "MQTT broker URL")
	fs.StringVar(&c.ClientID, "client-id", c.ClientID, "MQTT client id")
	fs.StringVar(&c.Namespace, "namespace", c.Namespace, "action namespace")
	fs.BoolVar(&c.Insecure, "insecure", c.Insecure, "skip broker cert verification")
}
