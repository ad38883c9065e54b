// Package engine implements the client-side state reconciliation core.
//
// The engine owns the authoritative mixer Snapshot plus the set of
// unresolved pending commands. User commands register here before they hit
// the network, so the merged view reflects intent immediately; each ingested
// snapshot then confirms, fails, or expires pending commands. All internal
// state is guarded by a single mutex, keeping snapshot ingestion linearizable
// while command submission runs concurrently with polling.
package engine
