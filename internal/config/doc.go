// Package config provides configuration structures and utilities for
// sitesnap. It defines the crawl options populated from CLI flags,
// per-site profile overrides loaded from the .sitesnap file, and
// report output preferences.
package config
