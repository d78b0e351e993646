// Package spatial indexes driver positions for radius lookups and maps
// positions to geohash zones used to scope demand.
package spatial
