// Copyright (c) 2025 BVK Chaitanya

package cmdutil

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/bvkgo/kv"
	"github.com/bvkgo/kvbadger"
	"github.com/dgraph-io/badger/v4"
)

// DBFlags holds the command-line flags shared by all subcommands that
// open the local datastore directly.
type DBFlags struct {
	dataDir string
}

func (f *DBFlags) SetFlags(fset *flag.FlagSet) {
	fset.StringVar(&f.dataDir, "data-dir", "", "path to the data directory")
}

// DataDir resolves the data directory path, defaulting to ~/.gembot.
func (f *DBFlags) DataDir() (string, error) {
	dir := f.dataDir
	if len(dir) == 0 {
		dir = filepath.Join(os.Getenv("HOME"), ".gembot")
	}
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("could not determine data-dir %q absolute path: %w", f.dataDir, err)
	}
	return dir, nil
}

// GetDatabase opens the badger datastore under the data directory. The
// returned closer releases the database.
func (f *DBFlags) GetDatabase(ctx context.Context) (kv.Database, func(), error) {
	dataDir, err := f.DataDir()
	if err != nil {
		return nil, nil, err
	}
	bopts := badger.DefaultOptions(dataDir)
	bdb, err := badger.Open(bopts)
	if err != nil {
		return nil, nil, fmt.Errorf("could not open the database: %w", err)
	}
	closer := func() {
		bdb.Close()
	}
	return kvbadger.New(bdb, IsGoodKey), closer, nil
}

// IsGoodKey reports whether k is an acceptable datastore key.
func IsGoodKey(k string) bool {
	return path.IsAbs(k) && k == path.Clean(k)
}
