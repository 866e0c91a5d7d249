// Copyright (c) 2025 BVK Chaitanya

package setup

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bvk/gembot/cli"
	"github.com/bvk/gembot/gemini"
	"github.com/bvk/gembot/store"
	"github.com/bvk/gembot/subcmds"
	"github.com/bvk/gembot/subcmds/cmdutil"
	"github.com/bvkgo/kvbadger"
	"github.com/dgraph-io/badger/v4"
	"golang.org/x/term"
)

type Gemini struct {
	dataDir     string
	skipTesting bool
	key         string
	secret      string
}

func (c *Gemini) Synopsis() string {
	return "Setup configures Gemini API access parameters"
}

func (c *Gemini) Command() (*flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("gemini", flag.ContinueOnError)
	fset.StringVar(&c.dataDir, "data-dir", "", "path to the data directory")
	fset.StringVar(&c.key, "access-key", "", "Gemini API access key as a string")
	fset.StringVar(&c.secret, "access-secret", "", "Gemini API access secret as a string")
	fset.BoolVar(&c.skipTesting, "skip-testing", false, "don't test the parameters")
	return fset, cli.CmdFunc(c.run)
}

func (c *Gemini) CommandHelp() string {
	return `

Command "gemini" helps users configure Gemini exchange API keys.

Gemini API keys are required to query and put buy/sell orders on the
Gemini exchange. They can be configured as follows:

  $ gembot setup gemini --access-key=xxxx

When the --access-secret flag is not given, the secret is read from the
terminal with echo turned off.

`
}

func (c *Gemini) run(ctx context.Context, args []string) error {
	if len(c.dataDir) == 0 {
		c.dataDir = filepath.Join(os.Getenv("HOME"), ".gembot")
	}
	if _, err := os.Stat(c.dataDir); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("could not stat data directory %q: %w", c.dataDir, err)
		}
		if err := os.MkdirAll(c.dataDir, 0700); err != nil {
			return fmt.Errorf("could not create data directory %q: %w", c.dataDir, err)
		}
	}
	dataDir, err := filepath.Abs(c.dataDir)
	if err != nil {
		return fmt.Errorf("could not determine data-dir %q absolute path: %w", c.dataDir, err)
	}

	if len(c.key) == 0 {
		return fmt.Errorf("--access-key flag is required")
	}
	if len(c.secret) == 0 {
		fmt.Print("Gemini API secret: ")
		data, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Println()
		if err != nil {
			return fmt.Errorf("could not read the api secret: %w", err)
		}
		c.secret = strings.TrimSpace(string(data))
	}
	if len(c.secret) == 0 {
		return fmt.Errorf("api secret cannot be empty")
	}

	secretsPath := filepath.Join(dataDir, "secrets.json")
	secrets, err := subcmds.SecretsFromFile(secretsPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}

	if secrets == nil {
		secrets = &subcmds.Secrets{}
	}

	secrets.Gemini = &gemini.Credentials{
		Key:    c.key,
		Secret: c.secret,
	}
	if err := secrets.Check(); err != nil {
		return err
	}

	if !c.skipTesting {
		// Authenticate with a heartbeat to validate the keys. The nonce
		// comes from the same datastore the run command uses, so the
		// counter stays monotonic across both.
		if err := c.testCredentials(ctx, dataDir, secrets.Gemini); err != nil {
			return fmt.Errorf("could not validate the api keys: %w", err)
		}
	}

	js, err := json.MarshalIndent(secrets, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(secretsPath, js, os.FileMode(0600)); err != nil {
		return err
	}
	return nil
}

func (c *Gemini) testCredentials(ctx context.Context, dataDir string, creds *gemini.Credentials) error {
	bdb, err := badger.Open(badger.DefaultOptions(dataDir))
	if err != nil {
		return fmt.Errorf("could not open the database: %w", err)
	}
	defer bdb.Close()

	nonces := store.NewNonceStore(kvbadger.New(bdb, cmdutil.IsGoodKey), 1)
	client, err := gemini.New(creds.Key, creds.Secret, nonces, nil /* opts */)
	if err != nil {
		return err
	}
	return client.Heartbeat(ctx)
}
