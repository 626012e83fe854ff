// Package config loads settings for the relay server and the transfer CLI
// from defaults, a YAML file and environment variables, in that order.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/docker/go-units"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/gostones/s3transfer/internal/transfer"
)

// Config defines configuration for the relay server and client.
type Config struct {
	Mode      string
	ChunkSize int64
	Server    ServerConfig
	S3        S3Config
	Sign      SignConfig
	Log       LogConfig
}

type ServerConfig struct {
	// Addr is the listen address of the relay server.
	Addr string `yaml:"addr"`
	// URL is where clients reach the relay server.
	URL string `yaml:"url"`
}

type S3Config struct {
	Endpoint        string `yaml:"endpoint"`
	Region          string `yaml:"region"`
	Bucket          string `yaml:"bucket"`
	Prefix          string `yaml:"prefix"`
	Delimiter       string `yaml:"delimiter"`
	ForcePathStyle  bool   `yaml:"-"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

type SignConfig struct {
	Expires time.Duration
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Mode:      transfer.Direct.String(),
		ChunkSize: transfer.MinChunkSize,
		Server: ServerConfig{
			Addr: ":4000",
			URL:  "http://localhost:4000",
		},
		S3: S3Config{
			Region:         "us-west-2",
			Delimiter:      "/",
			ForcePathStyle: true,
		},
		Sign: SignConfig{
			Expires: transfer.DefaultExpires,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// yamlConfig is used for YAML unmarshaling with string sizes and durations.
type yamlConfig struct {
	Mode      string       `yaml:"mode"`
	ChunkSize string       `yaml:"chunk_size"`
	Server    ServerConfig `yaml:"server"`
	S3        yamlS3Config `yaml:"s3"`
	Sign      struct {
		Expires string `yaml:"expires"`
	} `yaml:"sign"`
	Log LogConfig `yaml:"log"`
}

type yamlS3Config struct {
	S3Config       `yaml:",inline"`
	ForcePathStyle *bool `yaml:"force_path_style"`
}

// LoadFromFile loads configuration from a YAML file on top of the defaults.
func LoadFromFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrap(err, "read config file")
	}

	var yc yamlConfig
	if err := yaml.Unmarshal(data, &yc); err != nil {
		return Config{}, errors.Wrap(err, "parse config file")
	}

	cfg := Default()

	if yc.Mode != "" {
		cfg.Mode = yc.Mode
	}
	if yc.ChunkSize != "" {
		size, err := ParseBytes(yc.ChunkSize)
		if err != nil {
			return Config{}, errors.Wrap(err, "parse chunk_size")
		}
		cfg.ChunkSize = size
	}
	if yc.Server.Addr != "" {
		cfg.Server.Addr = yc.Server.Addr
	}
	if yc.Server.URL != "" {
		cfg.Server.URL = yc.Server.URL
	}
	if yc.S3.Endpoint != "" {
		cfg.S3.Endpoint = yc.S3.Endpoint
	}
	if yc.S3.Region != "" {
		cfg.S3.Region = yc.S3.Region
	}
	if yc.S3.Bucket != "" {
		cfg.S3.Bucket = yc.S3.Bucket
	}
	if yc.S3.Prefix != "" {
		cfg.S3.Prefix = yc.S3.Prefix
	}
	if yc.S3.Delimiter != "" {
		cfg.S3.Delimiter = yc.S3.Delimiter
	}
	if yc.S3.ForcePathStyle != nil {
		cfg.S3.ForcePathStyle = *yc.S3.ForcePathStyle
	}
	if yc.S3.AccessKeyID != "" {
		cfg.S3.AccessKeyID = yc.S3.AccessKeyID
	}
	if yc.S3.SecretAccessKey != "" {
		cfg.S3.SecretAccessKey = yc.S3.SecretAccessKey
	}
	if yc.Sign.Expires != "" {
		d, err := time.ParseDuration(yc.Sign.Expires)
		if err != nil {
			return Config{}, errors.Wrap(err, "parse sign.expires")
		}
		cfg.Sign.Expires = d
	}
	if yc.Log.Level != "" {
		cfg.Log.Level = yc.Log.Level
	}
	cfg.Log.Pretty = yc.Log.Pretty

	return cfg, nil
}

// LoadFromEnv overrides c with environment variables. Variables use the
// S3TRANSFER_ prefix; the AWS_* credential variables are honoured as well.
func (c *Config) LoadFromEnv() error {
	setString := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v := os.Getenv(k); v != "" {
				*dst = v
			}
		}
	}
	setString(&c.Mode, "S3TRANSFER_MODE")
	setString(&c.Server.Addr, "S3TRANSFER_ADDR")
	setString(&c.Server.URL, "S3TRANSFER_URL")
	setString(&c.S3.Endpoint, "S3TRANSFER_S3_ENDPOINT")
	setString(&c.S3.Region, "AWS_REGION", "S3TRANSFER_S3_REGION")
	setString(&c.S3.Bucket, "AWS_BUCKET_NAME", "S3TRANSFER_S3_BUCKET")
	setString(&c.S3.Prefix, "S3TRANSFER_S3_PREFIX")
	setString(&c.S3.Delimiter, "S3TRANSFER_S3_DELIMITER")
	setString(&c.S3.AccessKeyID, "AWS_ACCESS_KEY_ID", "S3TRANSFER_S3_ACCESS_KEY_ID")
	setString(&c.S3.SecretAccessKey, "AWS_SECRET_ACCESS_KEY", "S3TRANSFER_S3_SECRET_ACCESS_KEY")
	setString(&c.Log.Level, "S3TRANSFER_LOG_LEVEL")

	if v := os.Getenv("S3TRANSFER_CHUNK_SIZE"); v != "" {
		size, err := ParseBytes(v)
		if err != nil {
			return errors.Wrap(err, "parse S3TRANSFER_CHUNK_SIZE")
		}
		c.ChunkSize = size
	}
	if v := os.Getenv("S3TRANSFER_SIGN_EXPIRES"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return errors.Wrap(err, "parse S3TRANSFER_SIGN_EXPIRES")
		}
		c.Sign.Expires = d
	}
	if v := os.Getenv("S3TRANSFER_S3_FORCE_PATH_STYLE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return errors.Wrap(err, "parse S3TRANSFER_S3_FORCE_PATH_STYLE")
		}
		c.S3.ForcePathStyle = b
	}
	if v := os.Getenv("S3TRANSFER_LOG_PRETTY"); v != "" {
		c.Log.Pretty = v == "true" || v == "1"
	}
	return nil
}

// Validate checks the settings shared by server and client.
func (c *Config) Validate() error {
	if _, err := transfer.ParseMode(c.Mode); err != nil {
		return errors.Errorf("config: unknown mode %q", c.Mode)
	}
	if c.ChunkSize < transfer.MinChunkSize {
		return errors.Errorf("config: chunk_size must be at least %s", units.BytesSize(float64(transfer.MinChunkSize)))
	}
	if c.Sign.Expires <= 0 {
		return errors.New("config: sign.expires must be positive")
	}
	return nil
}

// ValidateServer additionally checks what the relay server needs.
func (c *Config) ValidateServer() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.S3.Bucket == "" {
		return errors.New("config: s3.bucket is required")
	}
	if c.Server.Addr == "" {
		return errors.New("config: server.addr is required")
	}
	return nil
}

// TransferMode returns the parsed mode.
func (c *Config) TransferMode() transfer.Mode {
	m, _ := transfer.ParseMode(c.Mode)
	return m
}

// ParseBytes parses sizes such as "5MB", "5MiB" or "5242880". Units are binary.
func ParseBytes(s string) (int64, error) {
	return units.RAMInBytes(s)
}
