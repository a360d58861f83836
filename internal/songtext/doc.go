// Package songtext holds the text handling shared by plugins and the studio:
// parsing model output into lyrics, normalizing MIDI payloads, editing lyric
// sections and building filenames.
package songtext
