// Package credentials supplies the Hub's Cloud connection identity: the hub
// identifier, the bearer token, and the Cloud base URL.
//
// Providers are consulted on every connection attempt, so a token rotated on
// disk (or by an external enrollment flow) takes effect on the next
// reconnect without restarting the process.
package credentials
