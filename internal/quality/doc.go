// Package quality collects the rejected-rows report of a run.
package quality
