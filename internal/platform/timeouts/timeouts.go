// Package timeouts defines shared timeout constants used across commands.
package timeouts

import "time"

// CampaignFetch caps a single campaign document fetch from any source.
const CampaignFetch = 10 * time.Second

// SnapshotWrite caps a single save of the session snapshot.
const SnapshotWrite = 3 * time.Second

// ReadHeader limits how long an HTTP server waits for request headers.
const ReadHeader = 5 * time.Second

// Shutdown limits how long an HTTP server waits for in-flight requests
// during graceful shutdown.
const Shutdown = 5 * time.Second

// StreamPing is the interval between keepalive frames on session streams.
const StreamPing = 30 * time.Second
