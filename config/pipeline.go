package config

import (
	"fmt"
	"io/ioutil"
	"os"

	"github.com/relloyd/healthpipe/pipeline"
	"gopkg.in/yaml.v2"
)

// KeyPipeline is the key in the main config file that holds default pipeline settings.
const KeyPipeline = "pipeline"

// LoadPipelineConfig applies the settings found in YAML file fileName on top of cfg.
// Keys that are not present in the file leave cfg untouched. Unknown keys are an error.
func LoadPipelineConfig(fileName string, cfg *pipeline.Config) error {
	b, err := ioutil.ReadFile(fileName)
	if os.IsNotExist(err) {
		return FileNotFoundError{name: fileName}
	} else if err != nil {
		return err
	}
	return ParsePipelineConfig(b, cfg)
}

// ParsePipelineConfig applies YAML bytes b on top of cfg.
func ParsePipelineConfig(b []byte, cfg *pipeline.Config) error {
	m := make(map[string]interface{})
	if err := yaml.Unmarshal(b, &m); err != nil {
		return fmt.Errorf("unable to read pipeline settings: %w", err)
	}
	if err := decode(m, cfg, true); err != nil {
		return fmt.Errorf("invalid pipeline settings: %w", err)
	}
	return nil
}

// GetPipelineConfig applies the pipeline section of File c on top of cfg.
// There is no error if the section is missing.
func (c *File) GetPipelineConfig(cfg *pipeline.Config) error {
	if err := c.ensureLoaded(); err != nil {
		return err
	}
	c.mu.Lock()
	d, ok := c.data[KeyPipeline]
	c.mu.Unlock()
	if !ok {
		return nil
	}
	if err := decode(d, cfg, true); err != nil {
		return fmt.Errorf("invalid %v settings in config file %q: %w", KeyPipeline, c.FullPath, err)
	}
	return nil
}
