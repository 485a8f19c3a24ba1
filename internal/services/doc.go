// Package services defines shared utilities consumed by the conversion
// processor, the bundle requester, and the remote service client.
//
// Key responsibilities:
//   - Context helpers that stamp queue item IDs, operation names, and
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper so callers can classify
//     failures with errors.Is while keeping a readable message chain.
//   - UserMessage, which extracts the plain text shown to users for a failure.
//
// The remote conversion client lives in the converter subpackage.
package services
