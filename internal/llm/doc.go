// Package llm contains the backend-neutral contracts for text and image
// generation models together with the provider adapters under its
// subpackages. Plugins talk to models only through these interfaces.
package llm
