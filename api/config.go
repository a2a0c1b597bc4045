// Package api provides the local HTTP API over the assistant services.
package api

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., "127.0.0.1:8765")
	ListenAddr string

	// HistoryLimit is the default page size of GET /v1/history.
	HistoryLimit int
}
