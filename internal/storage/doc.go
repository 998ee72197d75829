// Package storage defines the persistence boundary of the campaign viewer.
//
// A session consumes two collaborators: a CampaignFetcher that returns
// validated campaign documents by id, and a SnapshotStore holding the single
// saved game state slot. Implementations live in subpackages:
//   - filesystem: a directory of campaign documents and a snapshot file.
//   - httpfetch: campaign documents served over HTTP.
//   - sqlite: campaigns and the snapshot slot in a SQLite database.
//   - bbolt: campaigns and the snapshot slot in a BoltDB file.
//   - cache: an LRU and request-deduplicating decorator for fetchers.
//   - memory: in-process fakes for tests and scripted scenarios.
//
// # Error Types
//
// Fetchers report CAMPAIGN_NOT_FOUND and CAMPAIGN_MALFORMED; snapshot stores
// report PERSISTENCE_FAILURE. ErrNotFound is the raw sentinel adapters wrap.
package storage
