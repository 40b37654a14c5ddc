// Package warehouse mirrors published tables into a DuckDB file for
// analytical queries by the reporting layer.
package warehouse
