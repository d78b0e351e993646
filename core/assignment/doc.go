// Package assignment scores drivers against pending orders and picks the best
// eligible driver for each one. The engine holds only configuration and is
// safe for concurrent use.
package assignment
