// This package has database database layer. Never deal with DDL construction.
package database

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v2"
)

type Config struct {
	DbName   string
	User     string
	Password string
	Host     string
	Port     int

	// Timeout bounds every executed batch. Zero means no limit.
	Timeout time.Duration
}

// WithDbName returns a copy of the config pointing at another database of the
// same server.
func (c Config) WithDbName(name string) Config {
	c.DbName = name
	return c
}

// FileConfig is the content of the optional YAML configuration file.
type FileConfig struct {
	ExcludedCategories []string
	DataTables         string
	DataTablesExclude  string
	TableHint          string
}

func ParseFileConfig(configFile string) (FileConfig, error) {
	if configFile == "" {
		return FileConfig{}, nil
	}

	buf, err := os.ReadFile(configFile)
	if err != nil {
		return FileConfig{}, err
	}
	return parseFileConfig(buf)
}

func parseFileConfig(buf []byte) (FileConfig, error) {
	var config struct {
		ExcludedCategories string `yaml:"excluded_categories"`
		DataTables         string `yaml:"data_tables"`
		DataTablesExclude  string `yaml:"data_tables_exclude"`
		TableHint          string `yaml:"table_hint"`
	}
	if err := yaml.UnmarshalStrict(buf, &config); err != nil {
		return FileConfig{}, fmt.Errorf("invalid config: %w", err)
	}

	var excluded []string
	if config.ExcludedCategories != "" {
		for _, name := range strings.Split(strings.Trim(config.ExcludedCategories, "\n"), "\n") {
			if name = strings.TrimSpace(name); name != "" {
				excluded = append(excluded, name)
			}
		}
	}

	return FileConfig{
		ExcludedCategories: excluded,
		DataTables:         config.DataTables,
		DataTablesExclude:  config.DataTablesExclude,
		TableHint:          config.TableHint,
	}, nil
}
