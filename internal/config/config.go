package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// ProvisionConfig holds the parameters of the container (re)provisioning
// sequence. The defaults reproduce the original deployment scripts.
type ProvisionConfig struct {
	ContainerName    string `mapstructure:"container_name"`
	ImageName        string `mapstructure:"image_name"`
	BuildContext     string `mapstructure:"build_context"`
	HostPort         uint16 `mapstructure:"host_port"`
	ContainerPort    uint16 `mapstructure:"container_port"`
	WorkDir          string `mapstructure:"work_dir"`
	RequirementsFile string `mapstructure:"requirements_file"`
	InstallDeps      bool   `mapstructure:"install_deps"`
}

// LoggingConfig holds the logging-related configuration.
type LoggingConfig struct {
	Level string `mapstructure:"log_level"`
}

// Config is the top-level configuration struct.
type Config struct {
	Provision ProvisionConfig `mapstructure:"provision"`
	Logging   LoggingConfig   `mapstructure:"log"`
}

// InitConfig performs the initial configuration: setting defaults, specifying the config file, and reading it.
func InitConfig() error {
	viper.SetDefault("provision.container_name", "lucent-server-fastapi")
	viper.SetDefault("provision.image_name", "lucent-server:latest")
	viper.SetDefault("provision.build_context", ".")
	viper.SetDefault("provision.host_port", 8000)
	viper.SetDefault("provision.container_port", 8000)
	viper.SetDefault("provision.work_dir", "/app")
	viper.SetDefault("provision.requirements_file", "requirements.txt")
	viper.SetDefault("provision.install_deps", true)
	viper.SetDefault("log.log_level", "INFO")

	// Specify the config file details.
	viper.SetConfigName("config") // Looks for config.yaml
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".") // current directory

	// Read the config file if available.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// If the file is not found, just continue with defaults and env vars.
	}

	// Enable automatic environment variable binding.
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	return nil
}

// Load unmarshals the configuration into the Config struct.
func Load() (*Config, error) {
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}
	return &config, nil
}

// Validate checks the provisioning parameters against the filesystem
// contract: a resolvable build context directory that contains a Dockerfile.
func (c *ProvisionConfig) Validate() error {
	if c.ContainerName == "" {
		return fmt.Errorf("container name must not be empty")
	}
	if c.ImageName == "" {
		return fmt.Errorf("image name must not be empty")
	}
	if c.HostPort == 0 || c.ContainerPort == 0 {
		return fmt.Errorf("ports must be non-zero")
	}
	info, err := os.Stat(c.BuildContext)
	if err != nil {
		return fmt.Errorf("build context %q: %w", c.BuildContext, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("build context %q is not a directory", c.BuildContext)
	}
	if _, err := os.Stat(filepath.Join(c.BuildContext, "Dockerfile")); err != nil {
		return fmt.Errorf("build context %q has no Dockerfile: %w", c.BuildContext, err)
	}
	return nil
}
