package config

import (
	"fmt"
	"os"
	"path"

	"github.com/mitchellh/go-homedir"
	"github.com/mitchellh/mapstructure"
)

// mustGetConfigHomeDir returns the full path to the home directory that stores all config files.
// Uses global variable.
func mustGetConfigHomeDir() string {
	if healthPipeHomeDir == "" {
		// Find home directory.
		home, err := homedir.Dir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		healthPipeHomeDir = path.Join(home, MainDir)
	}
	return healthPipeHomeDir
}

// makeDir wll make the given directory if it does not already exist.
// If it exist then return nil.
// An error is returned if there is a problem creating the dir.
func makeDir(dir string) error {
	// Test if config dir exists.
	_, err := os.Stat(dir)
	if os.IsNotExist(err) { // if it doesn't exist...
		// Create the directory.
		if err = os.MkdirAll(dir, 0700); err != nil { // if the dir was NOT created...
			return fmt.Errorf("error creating directory %v", dir)
		}
	} else if err != nil {
		return err
	}
	return nil
}

// decode copies in to out using mapstructure tags.
// Scalars are converted weakly since YAML numbers and booleans are read back as flag strings.
// Set strict to reject unknown keys and to replace slices rather than merge them.
func decode(in interface{}, out interface{}, strict bool) error {
	d, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: !strict,
		ErrorUnused:      strict,
		ZeroFields:       strict,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return d.Decode(in)
}
