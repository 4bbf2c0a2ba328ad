// Package utils holds conversion helpers for loosely typed values read from
// the Primary and Mirror drivers.
package utils
