package actions

import (
	"errors"
	"fmt"
	"io"
	"strings"

	pkgerrors "github.com/pkg/errors"
	"github.com/relloyd/healthpipe/config"
	"github.com/relloyd/healthpipe/constants"
	"github.com/relloyd/healthpipe/helper"
	"github.com/relloyd/healthpipe/rdbms/shared"
)

type ConnectionConfig struct {
	ConfigFile  ConfigGetterSetter  `errorTxt:"config file" mandatory:"yes"`
	LogicalName string              `errorTxt:"connection name" mandatory:"yes"`
	ConnDetails ConnectionValidator // not needed to remove a connection
	Force       bool
	Output      io.Writer
}

// DsnConnection adapts a generic DSN to ConnectionValidator.
type DsnConnection struct {
	shared.DsnConnectionDetails
}

func (d *DsnConnection) Parse() error {
	_, err := d.DsnConnectionDetails.Parse()
	return err
}

// GetScheme returns the generic DSN type since the database driver is chosen from the DSN itself.
func (d *DsnConnection) GetScheme() (string, error) {
	return constants.ConnectionTypeGenericDsn, nil
}

// RunConnectionAdd validates cfg.ConnDetails and saves it under cfg.LogicalName.
// An existing connection is only replaced if cfg.Force is set.
func RunConnectionAdd(cfg *ConnectionConfig) error {
	if err := helper.ValidateStructIsPopulated(cfg); err != nil { // if the basics were not supplied...
		return err
	}
	if cfg.ConnDetails == nil {
		return errors.New("please supply connection details")
	}
	// Validate connection name.
	if strings.Contains(cfg.LogicalName, ".") {
		return fmt.Errorf("connection name cannot contain period characters '.'")
	}
	if err := cfg.ConnDetails.Parse(); err != nil {
		return pkgerrors.Wrap(err, "unable to create connection")
	}
	connectionType, err := cfg.ConnDetails.GetScheme()
	if err != nil {
		return err
	}
	connection := shared.ConnectionDetails{
		LogicalName: cfg.LogicalName,
		Type:        connectionType,
		Data:        cfg.ConnDetails.GetMap(make(map[string]string)),
	}
	// Check for an existing saved connection.
	existing := shared.ConnectionDetails{}
	err = cfg.ConfigFile.Get(cfg.LogicalName, &existing)
	if err == nil && !cfg.Force { // if the connection exists, but we are not allowed to overwrite it...
		return fmt.Errorf("connection %q exists, use force to update the connection or remove it first", cfg.LogicalName)
	} else if err != nil && !errors.As(err, &config.KeyNotFoundError{}) { // else if the error is real...
		return err
	}
	// Set config (creates the file if missing).
	if err = cfg.ConfigFile.Set(cfg.LogicalName, connection); err != nil {
		return fmt.Errorf("error writing connections config file after adding: %v", err)
	}
	fmt.Fprintf(writerOrStdout(cfg.Output), "Connection %q added\n", cfg.LogicalName)
	return nil
}

func RunConnectionRemove(cfg *ConnectionConfig) error {
	if err := helper.ValidateStructIsPopulated(cfg); err != nil { // if the basics were not supplied...
		return err
	}
	if err := cfg.ConfigFile.Delete(cfg.LogicalName); err != nil {
		return fmt.Errorf("unable to delete connection %q from config: %v", cfg.LogicalName, err)
	}
	fmt.Fprintf(writerOrStdout(cfg.Output), "Connection %q removed\n", cfg.LogicalName)
	return nil
}

// ConnectionLister is implemented by config.File.
type ConnectionLister interface {
	GetAllKeys() ([]string, error)
	Get(key string, out interface{}) error
}

// RunConnectionList prints every connection in f with passwords redacted.
func RunConnectionList(f ConnectionLister, w io.Writer) error {
	keys, err := f.GetAllKeys()
	if err != nil {
		return err
	}
	w = writerOrStdout(w)
	for _, k := range keys { // for each key...
		conn := shared.ConnectionDetails{}
		if err := f.Get(k, &conn); err != nil {
			return err
		}
		fmt.Fprintf(w, "%v:\n%v\n", k, conn)
	}
	return nil
}
