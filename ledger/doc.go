// Package ledger tracks which source items have been processed, by
// name and by content fingerprint, so no item is fetched, analyzed, or
// published twice. State persists as JSON Lines written atomically
// (temp file + rename) and survives process restarts.
package ledger
