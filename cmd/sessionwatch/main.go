// Command sessionwatch is a minimal driver client. It signs in, keeps the
// session snapshot on disk and polls the server; when another device takes
// over the account it prints the forced-logout notice and exits.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/iliyamo/carpool-identity/internal/logger"
	"github.com/iliyamo/carpool-identity/internal/session"
)

const exitForcedLogout = 3

func main() {
	home, _ := os.UserHomeDir()
	server := pflag.StringP("server", "s", "http://localhost:8080", "identity service base URL")
	phone := pflag.StringP("phone", "p", "", "phone number to sign in with (omit to reuse the stored session)")
	password := pflag.String("password", os.Getenv("CARPOOL_PASSWORD"), "password (defaults to $CARPOOL_PASSWORD)")
	state := pflag.String("state", filepath.Join(home, ".carpool", "session.json"), "where the session snapshot is kept")
	interval := pflag.Duration("interval", session.DefaultPollInterval, "revalidation interval")
	level := pflag.String("log-level", "info", "log level")
	pflag.Parse()

	log := logger.New(*level)
	defer func() { _ = log.Sync() }()

	client := session.NewHTTPRevalidator(*server)
	store := session.NewFileStore(*state)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *phone != "" {
		loginCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
		snap, err := client.Login(loginCtx, *phone, *password)
		cancel()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		if err := store.Save(snap); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		log.Infow("signed in", "identity_id", snap.IdentityID, "phone", logger.MaskPhone(snap.Phone))
	}

	snap, ok, err := store.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if !ok {
		fmt.Fprintln(os.Stderr, "not signed in; pass --phone")
		os.Exit(1)
	}
	if !snap.Watched() {
		fmt.Println("signed in as a non-driver account; nothing to watch")
		return
	}

	bridge := session.NewBridge()
	w := session.NewWatcher(store, client, bridge, session.WithInterval(*interval), session.WithLogger(log))
	if err := w.Sync(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log.Infow("watching session", "identity_id", snap.IdentityID, "interval", interval.String())

	select {
	case <-ctx.Done():
		w.Stop()
	case ev := <-bridge.Invalidations():
		fmt.Fprintln(os.Stderr, session.ForcedLogoutMessage)
		log.Warnw("forced logout", "identity_id", ev.IdentityID, "reason", ev.Reason)
		os.Exit(exitForcedLogout)
	}
}
