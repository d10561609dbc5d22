// Package config loads the recipe file and the environment into a Config.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"mvdan.cc/sh/v3/shell"
)

const (
	// RecipeName is the recipe file name, without extension, looked up in
	// the recipe directory.
	RecipeName = "plugpack"
	recipeType = "toml"

	// InstallDirEnv overrides the dependency staging directory.
	InstallDirEnv = "HDPS_INSTALL_DIR"

	envPrefix = "PLUGPACK"
)

// Identity is the published identity of the package.
type Identity struct {
	Name        string   `mapstructure:"name" toml:"name"`
	Description string   `mapstructure:"description" toml:"description"`
	Topics      []string `mapstructure:"topics" toml:"topics"`
	License     string   `mapstructure:"license" toml:"license"`
	Author      string   `mapstructure:"author" toml:"author"`
	URL         string   `mapstructure:"url" toml:"url"`
}

// Branch configures the branch naming convention.
type Branch struct {
	Kinds       []string `mapstructure:"kinds"`
	CorePackage string   `mapstructure:"core_package"`
}

// S3 locates packages in an S3-compatible bucket.
type S3 struct {
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	Bucket    string `mapstructure:"bucket"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

// Enabled reports whether an S3 store is configured.
func (s S3) Enabled() bool {
	return s.Endpoint != "" && s.Bucket != ""
}

// Store configures where required packages are located.
type Store struct {
	Dir string `mapstructure:"dir"`
	S3  S3     `mapstructure:"s3"`
}

// Config is the resolved configuration of one pipeline invocation.
type Config struct {
	Identity Identity `mapstructure:"package"`
	Settings Settings `mapstructure:"settings"`
	Branch   Branch   `mapstructure:"branch"`
	Store    Store    `mapstructure:"store"`

	// Framework is the requirement of the UI framework package holding
	// the CMake config files.
	Framework string `mapstructure:"framework"`
	// SourceSubfolder is the CMake project below the source root.
	SourceSubfolder string `mapstructure:"source_subfolder"`
	// InstallDir is the staging override; empty means <build>/install.
	InstallDir string `mapstructure:"install_dir"`
}

// Load reads the recipe file in recipeDir, a .env file in the working
// directory and the environment. A missing recipe file is not an error.
func Load(recipeDir string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigName(RecipeName)
	v.SetConfigType(recipeType)
	v.AddConfigPath(recipeDir)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("install_dir", InstallDirEnv); err != nil {
		return nil, err
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read recipe: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode recipe: %w", err)
	}
	if err := cfg.expand(); err != nil {
		return nil, err
	}
	cfg.Settings = cfg.Settings.Normalize()
	if err := cfg.Settings.Validate(); err != nil {
		return nil, fmt.Errorf("settings: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	host := HostSettings()
	v.SetDefault("settings.os", string(host.OS))
	v.SetDefault("settings.compiler", host.Compiler)
	v.SetDefault("settings.arch", host.Arch)
	v.SetDefault("settings.build_type", host.BuildType)
	v.SetDefault("settings.shared", host.Shared)
	v.SetDefault("settings.fpic", host.FPIC)

	v.SetDefault("branch.kinds", []string{"release"})
	v.SetDefault("branch.core_package", "hdps-core")
	v.SetDefault("framework", "qt@latest")
	v.SetDefault("source_subfolder", ".")
	v.SetDefault("store.s3.region", "us-east-1")
	v.SetDefault("store.s3.use_ssl", true)
}

// expand substitutes $VAR and ${VAR} references in path values.
func (c *Config) expand() error {
	for _, p := range []*string{&c.Store.Dir, &c.InstallDir, &c.SourceSubfolder} {
		if *p == "" {
			continue
		}
		s, err := shell.Expand(*p, os.Getenv)
		if err != nil {
			return fmt.Errorf("expand %q: %w", *p, err)
		}
		*p = filepath.Clean(s)
	}
	return nil
}
