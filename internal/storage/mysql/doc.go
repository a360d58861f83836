// Package mysql opens the MySQL connection pool, applies the embedded schema
// migrations and records registry snapshots.
package mysql
