// hubd - per-site Hub daemon that syncs with the Cloud control plane.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hubward/hubd/pkg/cloudsync"
	"github.com/hubward/hubd/pkg/credentials"
	"github.com/hubward/hubd/pkg/logging"
)

// Build-time variables set via ldflags
var (
	Version = "dev"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "hubd: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("hubd", flag.ContinueOnError)

	credsFile := fs.String("credentials", "", "Path to YAML credentials file (hub_id, auth_token, cloud_url)")
	hubID := fs.String("hub-id", os.Getenv(credentials.EnvHubID), "Hub UUID (or set HUBD_HUB_ID)")
	token := fs.String("token", os.Getenv(credentials.EnvToken), "Bearer token (or set HUBD_AUTH_TOKEN)")
	cloudURL := fs.String("cloud-url", os.Getenv(credentials.EnvCloudURL), "Cloud base URL (or set HUBD_CLOUD_URL)")
	heartbeat := fs.Duration("heartbeat", cloudsync.DefaultHeartbeatInterval, "Heartbeat interval")
	logLevel := fs.String("log-level", "info", "Log level: debug, info, warn, error")
	logFormat := fs.String("log-format", "text", "Log format: text, json")

	fs.Usage = func() {
		fmt.Fprint(os.Stderr, `Usage: hubd [flags]

Run the Hub's real-time sync channel to the Cloud. Credentials come from a
YAML file (-credentials), from flags, or from the HUBD_* environment
variables. The file form is re-read on every reconnect, so a rotated token
takes effect without a restart.

Flags:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	log := logging.New(logging.Config{
		Level:  logging.ParseLevel(*logLevel),
		Format: logging.ParseFormat(*logFormat),
	})

	var provider credentials.Provider
	if *credsFile != "" {
		provider = credentials.NewFileProvider(*credsFile)
	} else {
		provider = credentials.NewStatic(credentials.Credentials{
			HubID:    *hubID,
			Token:    *token,
			CloudURL: *cloudURL,
		})
	}

	cfg := cloudsync.DefaultConfig().WithHeartbeatInterval(*heartbeat)
	cfg.OnConnect = func(sessionID string) {
		log.Info("cloud session established", "session_id", sessionID)
	}
	cfg.OnDisconnect = func(err error) {
		if err != nil {
			log.Warn("cloud session lost", "error", err)
		}
	}
	cfg.OnAuthFailure = func(consecutive int) {
		log.Error("cloud keeps rejecting our token, check hub enrollment", "attempts", consecutive)
	}

	client, err := cloudsync.NewClient(cfg, provider, newRegistry(log))
	if err != nil {
		return err
	}
	client.SetLogger(log)

	if err := client.Start(); err != nil {
		return err
	}
	log.Info("hubd started", "version", Version)

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutting down")
	client.Stop()

	stats := client.Stats()
	fmt.Printf("\nSession stats:\n")
	fmt.Printf("  Messages in:  %d\n", stats.MessagesIn)
	fmt.Printf("  Messages out: %d\n", stats.MessagesOut)
	fmt.Printf("  Heartbeats:   %d\n", stats.Heartbeats)
	fmt.Printf("  Reconnects:   %d\n", stats.Reconnects)
	return nil
}
