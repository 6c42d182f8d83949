/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package config

import (
	"io"
	"strings"
	"time"

	"github.com/anixon604/bootcamp-cordapp/token/services/identity"
	"github.com/anixon604/bootcamp-cordapp/token/services/logging"
	"github.com/anixon604/bootcamp-cordapp/token/services/storage/db"
	"github.com/anixon604/bootcamp-cordapp/token/token"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"
)

// EnvPrefix prefixes the environment variables overriding the configuration, for instance BOOTCAMP_NODE_NAME
const EnvPrefix = "BOOTCAMP"

var logger = logging.MustGetLogger("token-sdk.config")

// Config is the configuration of a node
type Config struct {
	Node        Node        `mapstructure:"node" yaml:"node"`
	Logging     Logging     `mapstructure:"logging" yaml:"logging"`
	Metrics     Metrics     `mapstructure:"metrics" yaml:"metrics"`
	Persistence Persistence `mapstructure:"persistence" yaml:"persistence"`
	TTX         TTX         `mapstructure:"ttx" yaml:"ttx"`
	Notary      Notary      `mapstructure:"notary" yaml:"notary"`
	Network     Network     `mapstructure:"network" yaml:"network"`
	Cache       Cache       `mapstructure:"cache" yaml:"cache"`
}

type Node struct {
	Name token.Identity `mapstructure:"name" yaml:"name"`
	// KeyFile holds the PEM encoded ed25519 key of the node, it is created if missing
	KeyFile       string `mapstructure:"keyFile" yaml:"keyFile"`
	ListenAddress string `mapstructure:"listenAddress" yaml:"listenAddress"`
}

type Logging struct {
	Spec   string `mapstructure:"spec" yaml:"spec"`
	Format string `mapstructure:"format" yaml:"format,omitempty"`
}

type Metrics struct {
	Provider string `mapstructure:"provider" yaml:"provider"`
}

type Persistence struct {
	Type         db.Driver `mapstructure:"type" yaml:"type"`
	DataSource   string    `mapstructure:"dataSource" yaml:"dataSource"`
	TablePrefix  string    `mapstructure:"tablePrefix" yaml:"tablePrefix,omitempty"`
	MaxOpenConns int       `mapstructure:"maxOpenConns" yaml:"maxOpenConns"`
}

type TTX struct {
	SessionTimeout  time.Duration `mapstructure:"sessionTimeout" yaml:"sessionTimeout"`
	FinalityTimeout time.Duration `mapstructure:"finalityTimeout" yaml:"finalityTimeout"`
}

type Notary struct {
	Name token.Identity `mapstructure:"name" yaml:"name"`
	// Address of the remote notary, empty if this node runs the notary
	Address    string `mapstructure:"address" yaml:"address,omitempty"`
	Validating bool   `mapstructure:"validating" yaml:"validating"`
}

// Embedded returns true if this node runs the notary itself
func (n Notary) Embedded() bool {
	return len(n.Address) == 0
}

type Network struct {
	Peers []Peer `mapstructure:"peers" yaml:"peers"`
}

type Peer struct {
	Name      token.Identity `mapstructure:"name" yaml:"name"`
	Address   string         `mapstructure:"address" yaml:"address,omitempty"`
	PublicKey PublicKey      `mapstructure:"publicKey" yaml:"publicKey"`
}

type Cache struct {
	Size int64 `mapstructure:"size" yaml:"size"`
}

// SetDefaults registers the default of every key.
// Only keys with a default can be overridden from the environment.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("node.name", "")
	v.SetDefault("node.keyFile", "node.key")
	v.SetDefault("node.listenAddress", "127.0.0.1:8080")
	v.SetDefault("logging.spec", logging.DefaultSpec)
	v.SetDefault("logging.format", "")
	v.SetDefault("metrics.provider", "prometheus")
	v.SetDefault("persistence.type", string(db.SQLite))
	v.SetDefault("persistence.dataSource", "bootcamp.sqlite")
	v.SetDefault("persistence.tablePrefix", "")
	v.SetDefault("persistence.maxOpenConns", 10)
	v.SetDefault("ttx.sessionTimeout", "30s")
	v.SetDefault("ttx.finalityTimeout", "1m")
	v.SetDefault("notary.name", "")
	v.SetDefault("notary.address", "")
	v.SetDefault("notary.validating", true)
	v.SetDefault("network.peers", []interface{}{})
	v.SetDefault("cache.size", 1000)
}

// Load reads the configuration file at path, if any, and applies the environment overrides
func Load(path string) (*Config, error) {
	v := newViper()
	if len(path) != 0 {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "failed reading configuration [%s]", path)
		}
		logger.Infof("configuration loaded from [%s]", v.ConfigFileUsed())
	}
	return decode(v)
}

// Read reads a YAML configuration and applies the environment overrides
func Read(r io.Reader) (*Config, error) {
	v := newViper()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(r); err != nil {
		return nil, errors.Wrap(err, "failed reading configuration")
	}
	return decode(v)
}

// Marshal renders the configuration as YAML
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

func newViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	c := &Config{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           c,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			identityHook,
			publicKeyHook,
		),
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(v.AllSettings()); err != nil {
		return nil, errors.Wrap(err, "failed decoding configuration")
	}
	return c, nil
}

// Validate returns the first problem found in the configuration
func (c *Config) Validate() error {
	if c.Node.Name.IsNone() {
		return errors.New("node.name is required")
	}
	switch c.Persistence.Type {
	case db.SQLite, db.Postgres:
	default:
		return errors.Errorf("persistence.type must be [%s] or [%s], got [%s]", db.SQLite, db.Postgres, c.Persistence.Type)
	}
	if len(c.Persistence.DataSource) == 0 {
		return errors.New("persistence.dataSource is required")
	}
	if err := db.ValidatePrefix(c.Persistence.TablePrefix); err != nil {
		return errors.WithMessage(err, "invalid persistence.tablePrefix")
	}
	if c.Persistence.MaxOpenConns < 0 {
		return errors.New("persistence.maxOpenConns cannot be negative")
	}
	if c.TTX.SessionTimeout <= 0 || c.TTX.FinalityTimeout <= 0 {
		return errors.New("ttx timeouts must be positive")
	}
	if c.Cache.Size < 0 {
		return errors.New("cache.size cannot be negative")
	}

	peers := map[token.Identity]Peer{}
	for _, p := range c.Network.Peers {
		if p.Name.IsNone() {
			return errors.New("network.peers entry with no name")
		}
		if p.Name == c.Node.Name {
			return errors.Errorf("node [%s] cannot be its own peer", p.Name)
		}
		if _, ok := peers[p.Name]; ok {
			return errors.Errorf("peer [%s] configured twice", p.Name)
		}
		if len(p.PublicKey) == 0 {
			return errors.Errorf("peer [%s] has no public key", p.Name)
		}
		peers[p.Name] = p
	}

	if c.Notary.Name.IsNone() {
		return errors.New("notary.name is required")
	}
	if c.Notary.Embedded() {
		if c.Notary.Name != c.Node.Name {
			return errors.Errorf("notary [%s] has no address and is not this node", c.Notary.Name)
		}
	} else if _, ok := peers[c.Notary.Name]; !ok {
		return errors.Errorf("remote notary [%s] must be listed in network.peers", c.Notary.Name)
	}
	return nil
}

// Peers returns the configured peers
func (c *Config) Peers() []identity.Peer {
	res := make([]identity.Peer, 0, len(c.Network.Peers))
	for _, p := range c.Network.Peers {
		res = append(res, identity.Peer{Name: p.Name, Address: p.Address, PublicKey: p.PublicKey.Key()})
	}
	return res
}
