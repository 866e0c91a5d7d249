// Copyright (c) 2025 BVK Chaitanya

package subcmds

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/bvk/gembot/cli"
	"github.com/bvk/gembot/ctxutil"
	"github.com/bvk/gembot/currency"
	"github.com/bvk/gembot/gemini"
	"github.com/bvk/gembot/store"
	"github.com/bvk/gembot/subcmds/cmdutil"
	"github.com/bvk/gembot/telegram"
	"github.com/bvk/gembot/trader"
	"github.com/bvkgo/kvbadger"
	"github.com/dgraph-io/badger/v4"
	"github.com/nightlyone/lockfile"
	"github.com/shopspring/decimal"
	"github.com/visvasity/sglog"
	"github.com/visvasity/topic"
)

// Heartbeats are interleaved into long poll sleeps so that the session
// keys stay alive on the exchange side.
const heartbeatCutoff = 15 * time.Second

type Run struct {
	symbol string

	restart         bool
	shutdownTimeout time.Duration

	secretsPath string
	dataDir     string

	pollInterval time.Duration

	minOrderValue float64
	maxOrderValue float64

	gainRatio    float64
	lossRatio    float64
	overpayRatio float64

	maxActiveOrders int

	maxNetGains float64
	maxNetLoss  float64

	startingNonce uint64
}

func (c *Run) Command() (*flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("run", flag.ContinueOnError)
	fset.StringVar(&c.symbol, "symbol", "ethusd", "trading pair symbol")
	fset.BoolVar(&c.restart, "restart", false, "when true, kills any old instance")
	fset.DurationVar(&c.shutdownTimeout, "shutdown-timeout", 30*time.Second, "max timeout for shutdown when restarting")
	fset.StringVar(&c.secretsPath, "secrets-file", "", "path to credentials file")
	fset.StringVar(&c.dataDir, "data-dir", "", "path to the data directory")
	fset.DurationVar(&c.pollInterval, "poll-interval", 30*time.Second, "delay between ticker polls")
	fset.Float64Var(&c.minOrderValue, "min-order-value", 10, "minimum buy order notional in the quote currency")
	fset.Float64Var(&c.maxOrderValue, "max-order-value", 10, "maximum buy order notional in the quote currency")
	fset.Float64Var(&c.gainRatio, "gain-ratio", 0.01, "gain ratio at which a buy order is sold")
	fset.Float64Var(&c.lossRatio, "loss-ratio", -0.006, "loss ratio at which a buy order is sold")
	fset.Float64Var(&c.overpayRatio, "overpay-ratio", 0.005, "price adjustment ratio for quick fills")
	fset.IntVar(&c.maxActiveOrders, "max-active-orders", 3, "number of buy orders kept open")
	fset.Float64Var(&c.maxNetGains, "max-net-gains", 25, "net gains at which the bot stops with success")
	fset.Float64Var(&c.maxNetLoss, "max-net-loss", -25, "net loss at which the bot stops with failure")
	fset.Uint64Var(&c.startingNonce, "starting-nonce", 1, "lower bound for the api request nonce")
	return fset, cli.CmdFunc(c.run)
}

func (c *Run) Synopsis() string {
	return "Runs the trading bot in foreground"
}

func (c *Run) CommandHelp() string {
	return `

Command "run" starts the trading bot. The bot keeps a fixed number of
small limit buy orders open on the configured trading pair and sells
each one back once its price moves past the gain or loss thresholds. It
stops on its own when cumulative net gains cross the configured bounds.

All orders are saved in the local datastore, so the bot resumes where it
left off after a restart.

SECRETS FILE

Gemini API keys are required to place orders. Users are expected to
create a secrets file with API keys in JSON format. An example secrets
file format is given below:

    {
        "gemini":{
            "key":"111111111",
            "secret":"2222222222"
        }
    }

`
}

func (c *Run) run(ctx context.Context, args []string) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

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

	if len(c.secretsPath) == 0 {
		c.secretsPath = filepath.Join(dataDir, "secrets.json")
	}
	secrets, err := SecretsFromFile(c.secretsPath)
	if err != nil {
		return err
	}
	if err := secrets.Check(); err != nil {
		return err
	}
	if secrets.Gemini == nil {
		return fmt.Errorf("no gemini credentials in %q; run `gembot setup gemini` first", c.secretsPath)
	}

	pair, err := currency.PairBySymbol(c.symbol)
	if err != nil {
		return err
	}
	cfg := &trader.Config{
		Pair:            pair,
		MinOrderValue:   decimal.NewFromFloat(c.minOrderValue),
		MaxOrderValue:   decimal.NewFromFloat(c.maxOrderValue),
		GainRatio:       decimal.NewFromFloat(c.gainRatio),
		LossRatio:       decimal.NewFromFloat(c.lossRatio),
		OverpayRatio:    decimal.NewFromFloat(c.overpayRatio),
		MaxActiveOrders: c.maxActiveOrders,
		MaxNetGains:     decimal.NewFromFloat(c.maxNetGains),
		MaxNetLoss:      decimal.NewFromFloat(c.maxNetLoss),
		PollInterval:    c.pollInterval,
	}
	if err := cfg.Check(); err != nil {
		return err
	}

	logDir := filepath.Join(dataDir, "logs")
	if err := os.MkdirAll(logDir, 0700); err != nil {
		return fmt.Errorf("could not create log directory %q: %w", logDir, err)
	}
	backend := sglog.NewBackend(&sglog.Options{
		LogDirs: []string{logDir},
	})
	defer backend.Close()
	slog.SetDefault(slog.New(backend.Handler()))

	log.SetFlags(log.Flags() | log.Lmicroseconds)
	slog.Info("starting up", "data-dir", dataDir, "secrets-file", c.secretsPath, "symbol", pair.Symbol)

	lockPath := filepath.Join(dataDir, "gembot.lock")
	flock, err := lockfile.New(lockPath)
	if err != nil {
		return fmt.Errorf("could not create lock file %q: %w", lockPath, err)
	}
	if err := flock.TryLock(); err != nil {
		if !c.restart {
			return fmt.Errorf("could not get lock on file %q (is another instance running?): %w", lockPath, err)
		}
		owner, err := flock.GetOwner()
		if err != nil {
			return fmt.Errorf("could not get current owner of the lock file: %w", err)
		}
		if err := owner.Signal(os.Interrupt); err == nil {
			slog.Info("waiting for the previous instance to shutdown")
			if err := ctxutil.RetryTimeout(ctx, time.Second, c.shutdownTimeout, flock.TryLock); err != nil {
				if err := owner.Signal(os.Kill); err != nil {
					return fmt.Errorf("could not kill current owner of the lock file: %w", err)
				}
				ctxutil.Sleep(ctx, time.Millisecond)
			}
		}
		if err := flock.TryLock(); err != nil {
			return fmt.Errorf("could not get lock on file %q after killing previous instance: %w", lockPath, err)
		}
	}
	defer flock.Unlock()

	bopts := badger.DefaultOptions(dataDir)
	bdb, err := badger.Open(bopts)
	if err != nil {
		return fmt.Errorf("could not open the database: %w", err)
	}
	defer bdb.Close()
	db := store.New(kvbadger.New(bdb, cmdutil.IsGoodKey))

	nonces := store.NewNonceStore(db.Database(), c.startingNonce)
	ex, err := gemini.New(secrets.Gemini.Key, secrets.Gemini.Secret, nonces, nil /* opts */)
	if err != nil {
		return err
	}

	var notifier *telegram.Client
	if secrets.Telegram != nil {
		if tc, err := telegram.New(ctx, secrets.Telegram); err != nil {
			slog.Warn("could not create telegram client (notifications disabled)", "err", err)
		} else {
			notifier = tc
		}
	}
	notify := func(text string) {
		if notifier != nil {
			notifier.SendMessage(ctx, time.Now(), text)
		}
	}

	bot, err := trader.New(ctx, cfg, ex, db)
	if err != nil {
		return err
	}

	// Stream live fill updates into the logs between polls. The engine
	// stays poll driven; losing the feed never affects trading.
	var cg ctxutil.CloseGroup
	defer cg.Close()
	cg.Go(func(wctx context.Context) {
		watchOrderEvents(wctx, ex)
	})

	c.printBanner(bot)

	for ctx.Err() == nil {
		ticker, err := ex.GetTicker(ctx, pair.Symbol)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			slog.Error("could not fetch the ticker price (will retry)", "symbol", pair.Symbol, "err", err)
			ctxutil.Sleep(ctx, c.pollInterval)
			continue
		}

		fmt.Println("=================================================================")
		fmt.Printf("Current Price: %s %s\n", ticker.Price, pair.Symbol)

		decision, err := bot.Tick(ctx, ticker.Price, ticker.Volume)
		if err != nil {
			notify(fmt.Sprintf("gembot %s stopped on error: %v", pair.Symbol, err))
			return err
		}

		fmt.Print(bot.Summary())

		switch decision {
		case trader.Success:
			fmt.Println("Success! Stopping because net gains crossed the upper bound")
			notify(fmt.Sprintf("gembot %s stopped with net gains %s", pair.Symbol, bot.NetGains()))
			return nil
		case trader.Failure:
			fmt.Println("Failed! Stopping because net gains crossed the lower bound")
			notify(fmt.Sprintf("gembot %s stopped with net loss %s", pair.Symbol, bot.NetGains()))
			return nil
		}

		c.sleepWithHeartbeat(ctx, ex)
	}

	fmt.Printf("\n[√] Saved %d orders to %s\n", bot.NumActive()+bot.NumClosed(), dataDir)
	return nil
}

func (c *Run) printBanner(bot *trader.Trader) {
	if n := bot.NumActive() + bot.NumClosed(); n > 0 {
		fmt.Printf("[i] Loaded %d orders from %s\n", n, c.dataDir)
	} else {
		fmt.Printf("[+] Creating %d orders between %v and %v each.\n",
			c.maxActiveOrders, c.minOrderValue, c.maxOrderValue)
	}
	fmt.Printf("This bot buys random starting amounts, then sells if the price\n"+
		"raises by %.2f%% or lowers by %.2f%%\n"+
		"(you will probably not make any money by running this)\n",
		c.gainRatio*100, c.lossRatio*100)
}

// watchOrderEvents follows the private order events feed and logs every
// fill update it reports. Subscriptions are retried for as long as the
// watcher lives; a dropped connection resubscribes.
func watchOrderEvents(ctx context.Context, ex *gemini.Client) {
	for ctx.Err() == nil {
		var receiver *topic.Receiver[*gemini.OrderEvent]
		subscribe := func() error {
			r, err := ex.OrderEvents(ctx)
			if err != nil {
				slog.Warn("could not subscribe to the order events feed (will retry)", "err", err)
				return err
			}
			receiver = r
			return nil
		}
		if err := ctxutil.Retry(ctx, time.Minute, subscribe); err != nil {
			return
		}

		for {
			event, err := receiver.Receive()
			if err != nil {
				break
			}
			slog.Info("order event", "type", event.Type, "order", event.OrderID,
				"remaining", event.RemainingAmount)
		}
		receiver.Close()
	}
}

func (c *Run) sleepWithHeartbeat(ctx context.Context, ex *gemini.Client) {
	if c.pollInterval <= heartbeatCutoff {
		ctxutil.Sleep(ctx, c.pollInterval)
		return
	}
	ctxutil.Sleep(ctx, heartbeatCutoff)
	if ctx.Err() != nil {
		return
	}
	if err := ex.Heartbeat(ctx); err != nil {
		slog.Warn("could not send heartbeat (ignored)", "err", err)
	}
	ctxutil.Sleep(ctx, c.pollInterval-heartbeatCutoff)
}
