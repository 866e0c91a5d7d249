// Copyright (c) 2025 BVK Chaitanya

package main

import (
	"context"
	"log"
	"os"

	"github.com/bvk/gembot/cli"
	"github.com/bvk/gembot/subcmds"
	"github.com/bvk/gembot/subcmds/db"
	"github.com/bvk/gembot/subcmds/setup"
)

func main() {
	dbCmds := []cli.Command{
		new(db.Get),
		new(db.Delete),
		new(db.List),
	}

	setupCmds := []cli.Command{
		new(setup.Gemini),
		new(setup.Telegram),
	}

	cmds := []cli.Command{
		new(subcmds.Run),
		new(subcmds.Status),
		cli.CommandGroup("setup", "Configure exchange and notification API keys", setupCmds...),
		cli.CommandGroup("db", "View/update database directly", dbCmds...),
	}
	if err := cli.Run(context.Background(), cmds, os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}
