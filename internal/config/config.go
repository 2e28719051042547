package config

import (
	"github.com/google/uuid"
)

// TLSConfig holds TLS configuration options
type TLSConfig struct {
	Enabled      bool
	CertFile     string
	KeyFile      string
	GenerateCert bool
	Hosts        []string
}

// CORSConfig holds CORS configuration options
type CORSConfig struct {
	Enabled          bool
	AllowOrigins     string
	AllowMethods     string
	AllowHeaders     string
	AllowCredentials bool
	MaxAge           int
}

// StoreConfig holds where documents are kept
type StoreConfig struct {
	ClusterFile string
	AuthFile    string
	Watch       bool
}

// Config holds the application configuration
type Config struct {
	Port   int
	NodeID uuid.UUID
	// EnforceContentType makes POST and PUT require application/json
	EnforceContentType bool
	Store              StoreConfig
	BlueprintRules     []string
	TLS                TLSConfig
	CORS               CORSConfig
}

// Overrides holds command line values that take precedence over the file
type Overrides struct {
	Port        int
	NodeID      string
	ClusterFile string
	AuthFile    string
}

// Apply copies every set override into c
func (o Overrides) Apply(c *Config) error {
	if o.Port != 0 {
		c.Port = o.Port
	}
	if o.NodeID != "" {
		id, err := uuid.Parse(o.NodeID)
		if err != nil {
			return err
		}
		c.NodeID = id
	}
	if o.ClusterFile != "" {
		c.Store.ClusterFile = o.ClusterFile
	}
	if o.AuthFile != "" {
		c.Store.AuthFile = o.AuthFile
	}
	return nil
}
