// Package cloudsync maintains the Hub's real-time channel to the Cloud
// control plane.
//
// The client establishes an outbound WebSocket connection to the Cloud,
// authenticates with the hub's bearer token, and keeps the channel alive
// indefinitely: heartbeats are sent at a fixed cadence, inbound commands
// (module lifecycle, user revocation, backup requests) are decoded and
// routed to registered handlers, and hub-originated events can be sent
// through the same connection. On any connection loss the client retries
// with exponential backoff until stopped.
//
// Example usage:
//
//	reg := cloudsync.NewRegistry()
//	reg.Register(cloudsync.MessageTypeUserRevoked, cloudsync.HandlerFunc(onUserRevoked))
//
//	client, err := cloudsync.NewClient(cloudsync.DefaultConfig(), provider, reg)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	if err := client.Start(); err != nil {
//		log.Fatal(err)
//	}
//
//	// Client now syncs in the background.
//	// Use client.Stop() during process shutdown.
package cloudsync
