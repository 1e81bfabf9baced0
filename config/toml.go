package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"path/filepath"
	"strings"
	"text/template"

	cmtconfig "github.com/cometbft/cometbft/config"
	"github.com/cometbft/cometbft/libs/os"
	"github.com/spf13/viper"
)

// DefaultDirPerm is the default permissions used when creating directories.
const DefaultDirPerm = 0o700

var appConfigTemplate *template.Template

func init() {
	var err error
	tmpl := template.New("appConfigFileTemplate").Funcs(template.FuncMap{
		"StringsJoin": strings.Join,
	})
	if appConfigTemplate, err = tmpl.Parse(defaultAppConfigTemplate); err != nil {
		panic(err)
	}
}

func ConfigFile(home string) string {
	return filepath.Join(home, "config", "config.toml")
}

func AppConfigFile(home string) string {
	return filepath.Join(home, "config", "app.toml")
}

// WriteConfigFiles writes config.toml with the CometBFT template and
// app.toml with the guild template.
func WriteConfigFiles(cfg *Config) {
	if err := os.EnsureDir(filepath.Join(cfg.RootDir, "config"), DefaultDirPerm); err != nil {
		panic(err)
	}
	cmtconfig.WriteConfigFile(ConfigFile(cfg.RootDir), cfg.Config)
	WriteAppConfigFile(AppConfigFile(cfg.RootDir), cfg)
}

// WriteAppConfigFile renders config using the template and writes it to configFilePath.
func WriteAppConfigFile(configFilePath string, config *Config) {
	var buffer bytes.Buffer

	if err := appConfigTemplate.Execute(&buffer, config); err != nil {
		panic(err)
	}

	os.MustWriteFile(configFilePath, buffer.Bytes(), 0o644)
}

// LoadConfig reads config.toml and merges app.toml over it. A missing
// app.toml leaves the app defaults in place.
func LoadConfig(home string) (cfg *Config, err error) {
	cfg = DefaultConfig(home)
	v := viper.New()
	v.SetConfigFile(ConfigFile(cfg.RootDir))
	if err = v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if os.FileExists(AppConfigFile(cfg.RootDir)) {
		v.SetConfigFile(AppConfigFile(cfg.RootDir))
		if err = v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("reading app config: %w", err)
		}
	}
	if err = v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	cfg.SetRoot(cfg.RootDir)
	cfg.App.Home = cfg.RootDir
	if err = cfg.ValidateBasic(); err != nil {
		return nil, fmt.Errorf("invalid configuration data: %w", err)
	}
	return
}

// Note: any changes to the comments/variables/mapstructure
// must be reflected in the appropriate struct in config/config.go.
//
//go:embed app.toml.tpl
var defaultAppConfigTemplate string
