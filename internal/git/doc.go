// Package git runs the git binary on behalf of sous.
//
// It is the fallback transport for environments where the native go-git
// client cannot reach a remote, for example hosts that rely on credential
// helpers or ssh configuration only the system git understands.
package git
