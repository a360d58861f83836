// Package studio is the consumer of the plugin registry. It resolves the
// active plugin for each capability and assembles songs: lyrics first, then
// MIDI and cover art side by side, plus analysis, revision and evaluation.
package studio
