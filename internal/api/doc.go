// Package api serves the SongForge REST interface: plugin registry
// administration, synchronous song operations, asynchronous generation jobs,
// Prometheus metrics and a health probe.
package api
