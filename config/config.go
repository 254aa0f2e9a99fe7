package config

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/kscout/crossdomain-xmlrpc/validation"

	"github.com/kelseyhightower/envconfig"
)

// Config holds application configuration
type Config struct {
	// Port is the TCP port the HTTP server listens on
	Port int `default:"8000" validate:"min=1,max=65535"`

	// RPCPaths are the request paths which accept XML-RPC calls. If empty every
	// path accepts calls.
	RPCPaths []string `default:"/rpc" split_words:"true" validate:"dive,rpc_path"`

	// AllowNone permits nil values in XML-RPC responses
	AllowNone bool `default:"true" split_words:"true"`

	// EncodeThreshold is the response size, in bytes, above which responses are
	// gzip compressed for clients which accept it. A negative value disables
	// compression.
	EncodeThreshold int `default:"1400" split_words:"true"`

	// MaxChunkSize is the largest single read, in bytes, performed while reading a
	// request body
	MaxChunkSize int `default:"10485760" split_words:"true" validate:"min=1"`

	// MaxDecodeSize is the largest decompressed size, in bytes, of a gzip
	// request body
	MaxDecodeSize int64 `default:"20971520" split_words:"true" validate:"min=1"`

	// SendTracebackHeader adds X-exception and X-traceback headers to internal
	// server error responses. Only enable while debugging.
	SendTracebackHeader bool `default:"false" split_words:"true"`

	// Introspection registers the system.listMethods, system.methodHelp and
	// system.methodSignature methods
	Introspection bool `default:"true"`

	// DefaultService is the service which handles method names without a dot
	DefaultService string `default:"demo" split_words:"true"`

	// ReadTimeout is the HTTP server's read timeout
	ReadTimeout time.Duration `default:"30s" split_words:"true"`

	// WriteTimeout is the HTTP server's write timeout
	WriteTimeout time.Duration `default:"30s" split_words:"true"`
}

// NewConfig loads configuration values from environment variables
func NewConfig() (*Config, error) {
	var config Config

	if err := envconfig.Process("app", &config); err != nil {
		return nil, fmt.Errorf("error loading values from environment variables: %s",
			err.Error())
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate ensures configuration values are within their allowed ranges
func (c Config) Validate() error {
	if err := validation.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %s", err.Error())
	}

	return nil
}

// String returns Config in JSON form for logging
func (c Config) String() string {
	configBytes, err := json.Marshal(c)
	if err != nil {
		return fmt.Sprintf("failed to convert configuration into JSON: %s", err.Error())
	}

	return string(configBytes)
}
