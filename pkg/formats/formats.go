// Package formats provides parsers for the game's legacy binary formats.
//
// SFC world saves are decoded by ParseSFC into an immutable document of map,
// rooms, agents and scenery. S16 sprite sheets are decoded by ParseS16.
// All multi-byte values are little-endian.
package formats

// Note: the SFC record decoders live in sfc_map.go and sfc_object.go
// Note: the header-or-tag protocol is implemented in sfc_archive.go
