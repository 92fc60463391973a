package config

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"
)

// packageName is used for debug and error messages
const packageName = "config"

// EnvVaultPath overrides the vault path of the config file.
const EnvVaultPath = "OTP_VAULT_PATH"

// Config holds the settings that are not given on the command line.
// Command line flags overwrite the config values (@see main).
type Config struct {

	// VaultPath is the vault root folder.
	// Example: /home/alice/otp_vault
	VaultPath string `yaml:"vault_path"`

	// PadSizeMB is the default size of generated pads (MiB).
	PadSizeMB int `yaml:"pad_size_mb"`

	// PadCount is the default number of generated pads.
	PadCount int `yaml:"pad_count"`

	Backup Backup `yaml:"backup"`
	Server Server `yaml:"server"`
}

// Backup configures the state snapshots in a Google Drive folder.
type Backup struct {

	// KeyFile is the 128 bytes key file for snapshot encryption (@see keygen).
	KeyFile string `yaml:"key_file"`

	// VaultName separates the snapshots of different vaults with the same key file.
	// Example: home
	VaultName string `yaml:"vault_name"`

	// ClientFile and TokenFile are the Google OAuth 2.0 files (@see oauth).
	ClientFile string `yaml:"client_file"`
	TokenFile  string `yaml:"token_file"`

	// CacheFile is the online index file to speed up the program start.
	CacheFile string `yaml:"cache_file"`

	// FolderID is the Google Drive folder for the snapshots.
	// Example: root
	FolderID string `yaml:"folder_id"`
}

// Server configures the pad distribution server.
type Server struct {

	// Addr is the local server address.
	// Example: 1.2.3.4:8080 or [::1]:443
	Addr string `yaml:"addr"`

	// UserFile is the file with usernames and bcrypt password hashes.
	UserFile string `yaml:"user_file"`

	// UpdateInterval is the number of seconds between two state file reloads.
	UpdateInterval int `yaml:"update_interval"`

	// Cert and CertKey enable TLS if both are set.
	Cert    string `yaml:"cert"`
	CertKey string `yaml:"cert_key"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		VaultPath: "",
		PadSizeMB: 1,
		PadCount:  1,
		Backup: Backup{
			VaultName: "default",
			FolderID:  "root",
		},
		Server: Server{
			Addr:           ":8080",
			UpdateInterval: 300,
		},
	}
}

// Load reads a YAML config file on top of the defaults.
// An empty path skips the file. The environment variable OTP_VAULT_PATH
// overwrites the vault path of the file.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			log.Errorf("%s/Load: %v", packageName, err)
			return cfg, err
		}
		if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
			log.Errorf("%s/Load: %v", packageName, err)
			return cfg, fmt.Errorf("invalid config file '%s': %w", path, err)
		}
		log.Debugf("%s/Load: config file '%s'", packageName, path)
	}

	if v := os.Getenv(EnvVaultPath); v != "" {
		cfg.VaultPath = v
	}

	cfg.fillDefaults()
	return cfg, nil
}

// fillDefaults replaces zero values that can't be right.
func (c *Config) fillDefaults() {
	def := Default()
	if c.PadSizeMB <= 0 {
		c.PadSizeMB = def.PadSizeMB
	}
	if c.PadCount <= 0 {
		c.PadCount = def.PadCount
	}
	if c.Backup.VaultName == "" {
		c.Backup.VaultName = def.Backup.VaultName
	}
	if c.Backup.FolderID == "" {
		c.Backup.FolderID = def.Backup.FolderID
	}
	if c.Server.Addr == "" {
		c.Server.Addr = def.Server.Addr
	}
	if c.Server.UpdateInterval <= 0 {
		c.Server.UpdateInterval = def.Server.UpdateInterval
	}
}

// UseTLS reports whether certificate and key are configured.
func (s Server) UseTLS() bool {
	return s.Cert != "" && s.CertKey != ""
}
