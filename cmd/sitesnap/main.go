// Package main provides the entry point for the sitesnap CLI.
//
// Sitesnap mirrors a website to a local directory: it crawls same-origin
// pages breadth-first within depth and page budgets, saves the HTML, and
// downloads referenced images.
//
// Usage:
//
//	sitesnap crawl <url>
//	sitesnap crawl --max-depth 3 --out mirror <url>
//
// See --help for all available options.
package main

// main is the entry point for sitesnap.
func main() {
	Execute()
}
