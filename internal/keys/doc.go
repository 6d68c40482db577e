// Package keys derives and caches the per-remote key that unlocks a vault.
//
// The key is derived from a passphrase once and stored as 128 lowercase hex
// characters next to the repository copy. Later runs read the cached file
// and never ask for the passphrase again. The file is written atomically
// and with mode 0600.
//
// Supported derivations:
//   - sha512: hex(SHA-512(passphrase)), compatible with existing key files
//   - pbkdf2-sha512: PBKDF2-HMAC-SHA512 with a per-remote salt
//   - argon2id: Argon2id (64 MiB, 4 lanes) with the same salt
package keys
