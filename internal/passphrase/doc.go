// Package passphrase resolves the secret a derived key is built from.
//
// A Request carries an optional preset value. When the preset is non-empty
// it is used as is and no Source is consulted. Otherwise the configured
// Source is asked, which may read the environment, the OS keyring or an
// interactive terminal. Chain tries several sources in order, moving on
// whenever a source reports ErrUnavailable.
package passphrase
