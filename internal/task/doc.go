// Package task runs song generation asynchronously. Jobs are persisted in a
// Store, their ids travel through a Queue, and a Processor hands each claimed
// job to the studio, retrying retryable failures.
package task
