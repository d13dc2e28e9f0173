package config

import (
	"errors"
	"fmt"
	"io/ioutil"
	"os"
	"path"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/relloyd/healthpipe/rdbms/shared"
	"gopkg.in/yaml.v2"
)

var healthPipeHomeDir string
var Main *File
var Connections *File

func init() {
	Main = NewConfigFileWithDir(mustGetConfigHomeDir(), MainFileFullName)
	Connections = NewConfigFileWithDir(mustGetConfigHomeDir(), ConnectionsConfigFileFullName)
}

const (
	MainDir                         = ".healthpipe"
	MainFileNamePrefix              = "config"
	MainFileNameExt                 = "yaml"
	MainFileFullName                = MainFileNamePrefix + "." + MainFileNameExt
	ConnectionsConfigFileNamePrefix = "connections"
	ConnectionsConfigFileNameExt    = "yaml"
	ConnectionsConfigFileFullName   = ConnectionsConfigFileNamePrefix + "." + ConnectionsConfigFileNameExt
)

// FileNotFoundError denotes failing to find configuration file.
type FileNotFoundError struct {
	name string
}

// Error returns the formatted configuration error.
func (f FileNotFoundError) Error() string {
	return fmt.Sprintf("config file %q not found", f.name)
}

type KeyNotFoundError struct {
	configFile string
	key        string
	err        error
}

func (k KeyNotFoundError) Error() string {
	if k.err != nil {
		return fmt.Sprintf("key %q not found in config file %q: %v", k.key, k.configFile, k.err)
	}
	return fmt.Sprintf("key %q not found in config file %q", k.key, k.configFile)
}

// File is a YAML map of keys to values, loaded lazily from FullPath.
type File struct {
	Dirname      string
	FileName     string
	FilePrefix   string
	FileExt      string
	FullPath     string
	data         map[string]interface{}
	dataIsLoaded bool
	mu           sync.Mutex
}

func NewConfigFileWithDir(dirName string, filename string) *File {
	c := &File{Dirname: dirName, FileName: filename}
	c.FullPath = path.Join(dirName, filename)
	c.FileExt = strings.TrimLeft(path.Ext(filename), ".")
	c.FilePrefix = strings.TrimSuffix(c.FileName, "."+c.FileExt)
	c.data = make(map[string]interface{})
	return c
}

// Get will fetch the key from the config File into variable, out.
// Supported out types are: string, ConnectionDetails and any struct that mapstructure can decode into.
// Return a KeyNotFoundError if we can't find the key.
func (c *File) Get(key string, out interface{}) error {
	val := reflect.ValueOf(out)
	if val.Kind() != reflect.Ptr {
		return errors.New("out must be a pointer")
	}
	if err := c.ensureLoaded(); err != nil {
		return err
	}
	c.mu.Lock()
	d, ok := c.data[key]
	c.mu.Unlock()
	if !ok { // if the key was not found...
		// Test the type and return appropriate error.
		switch val.Elem().Interface().(type) {
		case shared.ConnectionDetails:
			return KeyNotFoundError{c.FullPath, key, errors.New("missing connection")}
		default:
			return KeyNotFoundError{configFile: c.FullPath, key: key}
		}
	}
	// Set the value.
	if err := decode(d, out, false); err != nil {
		return fmt.Errorf("unable to decode key %q in config file %q: %w", key, c.FullPath, err)
	}
	return nil // we found the key so no error!
}

// Set saves val under key and writes the file, creating it if it's missing.
func (c *File) Set(key string, val interface{}) error {
	if err := c.ensureLoaded(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	// Store a plain map so that reading the key back via mapstructure behaves the same as after a reload.
	var m interface{}
	b, err := yaml.Marshal(val)
	if err != nil {
		return fmt.Errorf("error marshalling value for key %v in config file %v: %v", key, c.FullPath, err)
	}
	if err = yaml.Unmarshal(b, &m); err != nil {
		return err
	}
	c.data[key] = m
	return c.save()
}

func (c *File) Delete(key string) error {
	if err := c.ensureLoaded(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, keyExists := c.data[key]; !keyExists {
		return KeyNotFoundError{configFile: c.FullPath, key: key}
	}
	delete(c.data, key)
	return c.save()
}

// GetAllKeys returns the keys found in the file in sorted order.
// A missing file has no keys.
func (c *File) GetAllKeys() ([]string, error) {
	if err := c.ensureLoaded(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	retval := make([]string, 0, len(c.data))
	for k := range c.data {
		retval = append(retval, k)
	}
	c.mu.Unlock()
	sort.Strings(retval)
	return retval, nil
}

// ensureLoaded reads the file once. A missing file is treated as empty.
func (c *File) ensureLoaded() error {
	err := c.loadData()
	if err != nil && !errors.As(err, &FileNotFoundError{}) {
		return err
	}
	return nil
}

func (c *File) loadData() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dataIsLoaded {
		return nil
	}
	b, err := ioutil.ReadFile(c.FullPath)
	if os.IsNotExist(err) {
		c.dataIsLoaded = true
		return FileNotFoundError{name: c.FullPath}
	} else if err != nil {
		return err
	}
	if err = yaml.Unmarshal(b, &c.data); err != nil {
		return fmt.Errorf("unable to read config file %q: %w", c.FullPath, err)
	}
	if c.data == nil { // an empty file unmarshals to nil
		c.data = make(map[string]interface{})
	}
	c.dataIsLoaded = true
	return nil
}

// save writes all data to disk. The caller must hold the lock.
func (c *File) save() error {
	b, err := yaml.Marshal(c.data)
	if err != nil {
		return fmt.Errorf("error marshalling data for config file %v: %v", c.FullPath, err)
	}
	if err = makeDir(c.Dirname); err != nil {
		return err
	}
	// Connections hold credentials so keep the file private.
	if err = ioutil.WriteFile(c.FullPath, b, 0600); err != nil {
		return fmt.Errorf("error writing config file %v: %v", c.FullPath, err)
	}
	return nil
}
