package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/alphabill-org/chainauthority/keyvaluedb/boltdb"
	"github.com/alphabill-org/chainauthority/registry"
	"github.com/spf13/cobra"
)

const (
	dbFileCmdFlag = "db-file"
	// default registry database file name, relative to the home directory
	defaultDBFile = "registry.db"
)

type registryFlags struct {
	DBFile string
}

func (f *registryFlags) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.DBFile, dbFileCmdFlag, "", fmt.Sprintf("path to the ownership registry database (default is $CA_HOME/%s)", defaultDBFile))
}

func (f *registryFlags) dbFilename(base *baseConfiguration) string {
	if f.DBFile == "" {
		return filepath.Join(base.HomeDir, defaultDBFile)
	}
	return f.DBFile
}

// openRegistry opens the ownership registry, the returned function closes
// the underlying database.
func (f *registryFlags) openRegistry(base *baseConfiguration) (*registry.OwnershipRegistry, func() error, error) {
	fileName := f.dbFilename(base)
	if err := os.MkdirAll(filepath.Dir(fileName), 0700); err != nil {
		return nil, nil, fmt.Errorf("failed to create directory for %s: %w", fileName, err)
	}
	db, err := boltdb.New(fileName)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open registry database: %w", err)
	}
	reg, err := registry.New(db)
	if err != nil {
		return nil, nil, err
	}
	return reg, db.Close, nil
}
