// Package assembly joins facts to dimensions and removes facts whose keys
// do not resolve, so the published star schema has no dangling references.
package assembly
