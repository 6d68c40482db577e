// Package core provides the main sous vault operations.
//
// Core operations include:
//   - FetchAndDecrypt: ensure the key, sync the repository, decrypt an artifact
//   - Seal: encrypt a local keystore into the repository copy for publishing
//   - Changes: sync and report which encrypted artifacts changed upstream
//   - Status: report cache state for a remote without a passphrase
//   - Forget: drop the cached key, and optionally the repository copy
//   - Compact: compact the per-remote state database
//
// Sync, decrypt and state updates for one remote run under an exclusive
// lock on the remote's state database. Different remotes never contend.
package core
