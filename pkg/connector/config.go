package connector

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadConfigFile reads a YAML or JSON connector configuration. ${VAR}
// references are expanded from the environment before parsing so secrets
// can stay out of the file.
func LoadConfigFile(path string) (map[string]interface{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, ErrValidation(fmt.Sprintf("cannot read config file %s", path)).WithCause(err)
	}
	return ParseConfig(data)
}

// ParseConfig parses YAML or JSON configuration bytes after environment
// expansion.
func ParseConfig(data []byte) (map[string]interface{}, error) {
	expanded := os.ExpandEnv(string(data))

	config := make(map[string]interface{})
	if err := yaml.Unmarshal([]byte(expanded), &config); err != nil {
		return nil, ErrValidation("invalid config file").WithCause(err)
	}
	return config, nil
}
