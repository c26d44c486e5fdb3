// Package database provides SQLite-based persistence for crawl results.
// Each completed crawl is stored with its page and image manifests so
// past mirrors can be listed and inspected via the history command.
package database
