// Package artifact turns encrypted artifacts into plaintext and back.
//
// The Engine owns the file handling: it checks the encrypted input exists,
// removes any stale plaintext, has the Cipher write into a temporary file
// next to the target and renames it into place only on success. A failed
// decryption never leaves a partial plaintext behind.
//
// Ciphers:
//   - Native: in-process, reads both the authenticated sous envelope and the
//     OpenSSL "Salted__" envelope
//   - OpenSSL: runs `openssl enc -aes-256-cbc -pbkdf2`
package artifact
