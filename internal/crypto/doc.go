// Package crypto provides the cipher primitives behind sous artifacts.
//
// Two envelope formats are understood:
//
// The native envelope is authenticated:
//
//	"SOUS" | version (1 byte) | salt (32 bytes) | iterations (uint32 BE) | nonce (12) | ciphertext+tag
//
// The AES-256-GCM key is derived from the cached key material with
// PBKDF2-HMAC-SHA256 over the salt and iteration count in the header.
//
// The legacy envelope is what `openssl enc -aes-256-cbc -pbkdf2` writes:
//
//	"Salted__" | salt (8 bytes) | AES-256-CBC ciphertext with PKCS#7 padding
//
// Key and IV come from PBKDF2-HMAC-SHA256 with 10,000 iterations. The only
// integrity check is the padding, so a wrong key is detected most of the
// time but not always.
//
// Memory safety:
//   - Use ClearBytes() to zero sensitive data after use
//   - Call Encryptor.Destroy() when done with encryption operations
package crypto
