package actions

import (
	"errors"
	"fmt"
	"io"

	"github.com/relloyd/healthpipe/config"
	"github.com/relloyd/healthpipe/helper"
)

type DefaultAddConfig struct {
	ConfigFile ConfigGetterSetter `errorTxt:"config-file" mandatory:"yes"`
	Key        string             `errorTxt:"key" mandatory:"yes"`
	Value      string             `errorTxt:"value" mandatory:"yes"`
	Force      bool
	Output     io.Writer
}

type DefaultRemoveConfig struct {
	ConfigFile ConfigGetterSetter `errorTxt:"config-file" mandatory:"yes"`
	Key        string             `errorTxt:"key" mandatory:"yes"`
	Output     io.Writer
}

// RunDefaultAdd adds key+value to the given config file so it is used as the default value of the
// CLI flag of the same name.
// If cfg.Force is not set then it return an error when the key exists.
func RunDefaultAdd(cfg *DefaultAddConfig) error {
	if err := helper.ValidateStructIsPopulated(cfg); err != nil { // if the basics were not supplied...
		return err
	}
	var val string
	if err := cfg.ConfigFile.Get(cfg.Key, &val); err == nil && !cfg.Force { // if key exists and we're not allowed to overwrite...
		return fmt.Errorf("key %q exists, use force to update the value or remove it first", cfg.Key)
	} else if err != nil && !errors.As(err, &config.KeyNotFoundError{}) { // else there is an unexpected error...
		return err
	}
	if err := cfg.ConfigFile.Set(cfg.Key, cfg.Value); err != nil {
		return fmt.Errorf("error writing config file after adding: %v", err)
	}
	fmt.Fprintf(writerOrStdout(cfg.Output), "Key %q added\n", cfg.Key)
	return nil
}

// RunDefaultRemove removes a key from the given config file.
func RunDefaultRemove(cfg *DefaultRemoveConfig) error {
	if err := helper.ValidateStructIsPopulated(cfg); err != nil { // if the basics were not supplied...
		return err
	}
	if err := cfg.ConfigFile.Delete(cfg.Key); err != nil {
		return fmt.Errorf("unable to delete key %q from config: %v", cfg.Key, err)
	}
	fmt.Fprintf(writerOrStdout(cfg.Output), "Key %q removed\n", cfg.Key)
	return nil
}
