// Package config loads sous settings from a TOML file and the environment.
//
// The file lives at <user config dir>/sous/config.toml and is optional;
// missing keys fall back to the defaults. Environment variables override
// the file:
//
//	SOUS_CACHE_DIR    cache root (default ~/.sous)
//	SOUS_GIT_BRANCH   branch to sync (default master)
//	SOUS_GIT_URL      remote URL used when no --git-url flag is given
//	SOUS_PACKAGE_NAME artifact name used when no --package flag is given
package config
