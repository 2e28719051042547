package config

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// FileConfig represents the structure of the configuration file
type FileConfig struct {
	Server struct {
		Port               int    `yaml:"port"`
		NodeID             string `yaml:"node_id"`
		EnforceContentType bool   `yaml:"enforce_content_type"`
	} `yaml:"server"`

	Store struct {
		ClusterFile string `yaml:"cluster_file"`
		AuthFile    string `yaml:"auth_file"`
		Watch       bool   `yaml:"watch"`
	} `yaml:"store"`

	Blueprint struct {
		Rules []string `yaml:"rules"`
	} `yaml:"blueprint"`

	TLS struct {
		Enabled      bool     `yaml:"enabled"`
		CertFile     string   `yaml:"cert_file"`
		KeyFile      string   `yaml:"key_file"`
		GenerateCert bool     `yaml:"generate_cert"`
		Hosts        []string `yaml:"hosts"`
	} `yaml:"tls"`

	CORS struct {
		Enabled          bool   `yaml:"enabled"`
		AllowOrigins     string `yaml:"allow_origins"`
		AllowMethods     string `yaml:"allow_methods"`
		AllowHeaders     string `yaml:"allow_headers"`
		AllowCredentials bool   `yaml:"allow_credentials"`
		MaxAge           int    `yaml:"max_age"`
	} `yaml:"cors"`
}

// Default returns the configuration used when no file is given. The node id
// is freshly generated.
func Default() *Config {
	return &Config{
		Port:   8080,
		NodeID: uuid.New(),
		Store: StoreConfig{
			ClusterFile: "data/cluster.json",
			AuthFile:    "data/auth.json",
		},
		TLS: TLSConfig{
			Enabled:      false,
			CertFile:     "cert/cert.pem",
			KeyFile:      "cert/key.pem",
			GenerateCert: false,
			Hosts:        []string{"localhost", "127.0.0.1"},
		},
		CORS: CORSConfig{
			Enabled:          false,
			AllowOrigins:     "*",
			AllowMethods:     "GET, POST, PUT, DELETE, OPTIONS",
			AllowHeaders:     "Content-Type, Authorization, Subscribe, Version, Parents",
			AllowCredentials: false,
			MaxAge:           86400,
		},
	}
}

// LoadConfig loads configuration from a YAML file
func LoadConfig(filePath string) (*Config, error) {
	config := Default()

	// If no config file specified, return default config
	if filePath == "" {
		return config, nil
	}

	// Read config file
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Parse YAML
	var fileConfig FileConfig
	if err := yaml.Unmarshal(data, &fileConfig); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	// Server settings
	if fileConfig.Server.Port != 0 {
		config.Port = fileConfig.Server.Port
	}
	if fileConfig.Server.NodeID != "" {
		id, err := uuid.Parse(fileConfig.Server.NodeID)
		if err != nil {
			return nil, fmt.Errorf("invalid node_id: %w", err)
		}
		config.NodeID = id
	}
	config.EnforceContentType = fileConfig.Server.EnforceContentType

	// Store settings
	if fileConfig.Store.ClusterFile != "" {
		config.Store.ClusterFile = fileConfig.Store.ClusterFile
	}
	if fileConfig.Store.AuthFile != "" {
		config.Store.AuthFile = fileConfig.Store.AuthFile
	}
	config.Store.Watch = fileConfig.Store.Watch

	config.BlueprintRules = fileConfig.Blueprint.Rules

	// TLS settings
	config.TLS.Enabled = fileConfig.TLS.Enabled
	if fileConfig.TLS.CertFile != "" {
		config.TLS.CertFile = fileConfig.TLS.CertFile
	}
	if fileConfig.TLS.KeyFile != "" {
		config.TLS.KeyFile = fileConfig.TLS.KeyFile
	}
	config.TLS.GenerateCert = fileConfig.TLS.GenerateCert
	if len(fileConfig.TLS.Hosts) > 0 {
		config.TLS.Hosts = fileConfig.TLS.Hosts
	}

	// CORS settings
	config.CORS.Enabled = fileConfig.CORS.Enabled
	if fileConfig.CORS.AllowOrigins != "" {
		config.CORS.AllowOrigins = fileConfig.CORS.AllowOrigins
	}
	if fileConfig.CORS.AllowMethods != "" {
		config.CORS.AllowMethods = fileConfig.CORS.AllowMethods
	}
	if fileConfig.CORS.AllowHeaders != "" {
		config.CORS.AllowHeaders = fileConfig.CORS.AllowHeaders
	}
	config.CORS.AllowCredentials = fileConfig.CORS.AllowCredentials
	if fileConfig.CORS.MaxAge != 0 {
		config.CORS.MaxAge = fileConfig.CORS.MaxAge
	}

	return config, nil
}

// SaveDefaultConfig saves a default configuration file. The generated node id
// is written out so restarts keep the same identity.
func SaveDefaultConfig(filePath string) error {
	def := Default()

	var fileConfig FileConfig

	// Server settings
	fileConfig.Server.Port = def.Port
	fileConfig.Server.NodeID = def.NodeID.String()
	fileConfig.Server.EnforceContentType = true

	// Store settings
	fileConfig.Store.ClusterFile = def.Store.ClusterFile
	fileConfig.Store.AuthFile = def.Store.AuthFile
	fileConfig.Store.Watch = false

	// Blueprint settings
	fileConfig.Blueprint.Rules = []string{}

	// TLS settings
	fileConfig.TLS.Enabled = def.TLS.Enabled
	fileConfig.TLS.CertFile = def.TLS.CertFile
	fileConfig.TLS.KeyFile = def.TLS.KeyFile
	fileConfig.TLS.GenerateCert = def.TLS.GenerateCert
	fileConfig.TLS.Hosts = def.TLS.Hosts

	// CORS settings
	fileConfig.CORS.Enabled = def.CORS.Enabled
	fileConfig.CORS.AllowOrigins = def.CORS.AllowOrigins
	fileConfig.CORS.AllowMethods = def.CORS.AllowMethods
	fileConfig.CORS.AllowHeaders = def.CORS.AllowHeaders
	fileConfig.CORS.AllowCredentials = def.CORS.AllowCredentials
	fileConfig.CORS.MaxAge = def.CORS.MaxAge

	// Marshal to YAML
	data, err := yaml.Marshal(fileConfig)
	if err != nil {
		return fmt.Errorf("error creating default config: %w", err)
	}

	// Add helpful comments
	yamlWithComments := "# Semilattice Metadata Server Configuration\n" +
		"# blueprint.rules are expr expressions every namespace must satisfy,\n" +
		"# e.g. 'replicas >= 1 || durability == \"hard\"'\n\n" +
		string(data)

	// Write to file
	if err := os.WriteFile(filePath, []byte(yamlWithComments), 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}
