// Package remote reads the hosted package index and downloads app
// archives.
//
// The index is a single JSON document ({"packages": [...]}) fetched on
// every call; nothing is cached between calls. Read helpers never fail:
// network and decode problems are logged and surface as empty results.
package remote
