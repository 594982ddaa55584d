// Package config reads reelmatch.toml, fills in defaults and validates the
// result.
//
// Paths may use a leading ~. TMDB_API_KEY, REELMATCH_SIMILARITY_URL and
// REELMATCH_API_TOKEN fill in values the file leaves blank. Callers get back a
// *Config whose paths are absolute and whose timeouts are positive.
package config
