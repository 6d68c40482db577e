// Package locator maps a remote URL and an artifact name onto the cache
// layout used by sous:
//
//	<cache>/<id>.hex                                  derived key
//	<cache>/<id>.state                                lock and sync record
//	<cache>/<id>/                                     local repository copy
//	<cache>/<id>/<app dir>/<name>.<ext>.enc           encrypted artifact
//	<cache>/<id>/<app dir>/<name>.<ext>               plaintext artifact
//
// where <id> is the lowercase hex MD5 of the URL exactly as given.
// Planning is pure and performs no I/O.
package locator
