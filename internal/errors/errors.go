package errors

import "errors"

// Input errors are raised before any filesystem or network work starts.
var (
	// ErrInvalidInput indicates a required request field is empty or malformed.
	ErrInvalidInput = errors.New("invalid input")

	// ErrMissingPassphrase indicates a key had to be derived but no passphrase was supplied.
	ErrMissingPassphrase = errors.New("passphrase is required to derive the key")
)

// Key errors indicate problems with the cached derived key.
var (
	// ErrCorruptKey indicates the cached key file does not hold 128 hex characters.
	ErrCorruptKey = errors.New("cached key is corrupt")
)

// Repository errors indicate the local copy could not be brought up to date.
var (
	// ErrCloneFailed indicates the initial clone of the remote failed.
	ErrCloneFailed = errors.New("failed to clone repository")

	// ErrSyncFailed indicates fetch, checkout or pull failed on an existing copy.
	ErrSyncFailed = errors.New("failed to sync repository")

	// ErrNotSynced indicates no local copy exists for the remote yet.
	ErrNotSynced = errors.New("repository has not been synced")
)

// Artifact errors indicate the encrypted keystore could not be turned into plaintext.
var (
	// ErrArtifactNotFound indicates the encrypted artifact is missing from the repository.
	ErrArtifactNotFound = errors.New("encrypted artifact not found")

	// ErrDecryptionFailed indicates the cipher rejected the artifact or the key.
	ErrDecryptionFailed = errors.New("failed to decrypt artifact")

	// ErrToolUnavailable indicates an external binary is missing or unusable.
	ErrToolUnavailable = errors.New("required tool is not available")
)

// Concurrency errors.
var (
	// ErrLocked indicates another process holds the lock for the same remote.
	ErrLocked = errors.New("vault is locked by another process")
)
