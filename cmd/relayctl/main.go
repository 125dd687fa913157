// relayctl drives the OTP relay API from a terminal: watch the message log,
// file and answer requests, and seed the default accounts.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/rootseed/pos-otp-relay/internal/client"
	"github.com/rootseed/pos-otp-relay/internal/domain"
	"github.com/rootseed/pos-otp-relay/internal/logging"
	"github.com/rootseed/pos-otp-relay/internal/repository/postgres"
	"github.com/rootseed/pos-otp-relay/internal/service"
	"github.com/rootseed/pos-otp-relay/internal/subscription"
)

type options struct {
	server   string
	token    string
	email    string
	password string
	interval time.Duration
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, argv []string, out io.Writer) error {
	var opts options
	flagSet := pflag.NewFlagSet("relayctl", pflag.ContinueOnError)
	flagSet.StringVar(&opts.server, "server", envOr("RELAY_URL", "http://localhost:8080"), "relay API base URL")
	flagSet.StringVar(&opts.token, "token", os.Getenv("RELAY_TOKEN"), "bearer token")
	flagSet.StringVar(&opts.email, "email", "", "sign in with this email instead of --token")
	flagSet.StringVar(&opts.password, "password", os.Getenv("RELAY_PASSWORD"), "password for --email")
	flagSet.DurationVar(&opts.interval, "interval", subscription.DefaultInterval, "poll interval for watch")
	flagSet.SetInterspersed(false)
	flagSet.Usage = func() { printHelp(flagSet) }

	if err := flagSet.Parse(argv); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	args := flagSet.Args()
	if len(args) == 0 {
		printHelp(flagSet)
		return errors.New("missing command")
	}

	cmd, rest := args[0], args[1:]
	if cmd == "seed" {
		return runSeed(ctx, rest)
	}

	c := client.New(opts.server, client.WithToken(opts.token))
	if opts.email != "" {
		if _, err := c.Login(ctx, opts.email, opts.password); err != nil {
			return fmt.Errorf("login: %w", err)
		}
	}

	switch cmd {
	case "watch":
		return watch(ctx, c, opts.interval, out)
	case "list":
		msgs, err := c.ListMessages(ctx)
		if err != nil {
			return err
		}
		return printJSON(out, msgs)
	case "request":
		msg, err := c.RequestOTP(ctx)
		if err != nil {
			return err
		}
		return printJSON(out, msg)
	case "pending":
		msgs, err := c.PendingRequests(ctx)
		if err != nil {
			return err
		}
		return printJSON(out, msgs)
	case "generate":
		if len(rest) != 1 {
			return errors.New("usage: relayctl generate <request-id>")
		}
		gen, err := c.Generate(ctx, rest[0])
		if err != nil {
			return err
		}
		return printJSON(out, gen)
	case "deliver":
		if len(rest) != 1 {
			return errors.New("usage: relayctl deliver <response-id>")
		}
		msg, err := c.Deliver(ctx, rest[0])
		if err != nil {
			return err
		}
		return printJSON(out, msg)
	}
	return fmt.Errorf("unknown command %q", cmd)
}

// watch prints every new or changed message until interrupted.
func watch(ctx context.Context, fetcher subscription.Fetcher, interval time.Duration, out io.Writer) error {
	bus := subscription.NewBus()
	enc := json.NewEncoder(out)
	unsubscribe := bus.Subscribe(func(m domain.Message) {
		_ = enc.Encode(m)
	})
	defer unsubscribe()

	logger := logging.New("warn", nil)
	defer func() { _ = logger.Sync() }()

	poller := &subscription.Poller{Fetcher: fetcher, Interval: interval, Logger: logger}
	poller.Run(ctx, bus)
	return nil
}

func runSeed(ctx context.Context, argv []string) error {
	var dsn, adminEmail, adminPass, cashierEmail, cashierPass, cashierID string
	flagSet := pflag.NewFlagSet("relayctl seed", pflag.ContinueOnError)
	flagSet.StringVar(&dsn, "database-url", os.Getenv("DATABASE_URL"), "postgres DSN")
	flagSet.StringVar(&adminEmail, "admin-email", "admin@pos.local", "default admin email")
	flagSet.StringVar(&adminPass, "admin-password", os.Getenv("SEED_ADMIN_PASSWORD"), "default admin password")
	flagSet.StringVar(&cashierEmail, "cashier-email", "cashier@pos.local", "default cashier email")
	flagSet.StringVar(&cashierPass, "cashier-password", os.Getenv("SEED_CASHIER_PASSWORD"), "default cashier password")
	flagSet.StringVar(&cashierID, "cashier-id", "CS001", "default cashier id")
	if err := flagSet.Parse(argv); err != nil {
		return err
	}
	if dsn == "" {
		return errors.New("--database-url or DATABASE_URL is required")
	}
	if adminPass == "" || cashierPass == "" {
		return errors.New("both --admin-password and --cashier-password are required")
	}

	db, err := postgres.New(dsn)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := postgres.Migrate(ctx, db); err != nil {
		return err
	}

	logger := logging.New("info", nil)
	defer func() { _ = logger.Sync() }()

	auth := service.NewAuthService(postgres.NewUserRepo(db), postgres.NewSessionRepo(db), postgres.NewPasswordResetRepo(db),
		nil, nil, nil, logger, service.AuthConfig{})
	if err := auth.SeedDefaults(ctx,
		service.SeedAccount{Email: adminEmail, Password: adminPass, Name: "Default Admin"},
		service.SeedAccount{Email: cashierEmail, Password: cashierPass, Name: "Default Cashier", CashierID: cashierID},
	); err != nil {
		return err
	}
	logger.Info("seed complete", zap.String("admin", adminEmail), zap.String("cashier", cashierEmail))
	return nil
}

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `relayctl talks to the POS OTP relay API.

Usage:
  relayctl [flags] <command> [args]

Commands:
  watch                 print new and changed messages as they appear
  list                  print the full message log
  request               file an OTP request as the signed-in cashier
  pending               list pending requests (admin)
  generate <id>         generate a code for a request (admin)
  deliver <id>          acknowledge a received code (cashier)
  seed                  create the default admin and cashier in postgres

Flags:
`)
	flagSet.PrintDefaults()
}
