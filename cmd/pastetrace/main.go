// Package main provides the entry point for the pastetrace CLI.
//
// pastetrace discovers credential leaks targeting an organizational
// domain on paste sites. It fetches paste content, scores its relevance,
// extracts exposed email addresses and credential patterns, and reports
// the findings.
//
// Usage:
//
//	pastetrace scan --domain example.com <paste-url>...
//	pastetrace serve
//
// See --help for all available options.
package main

// main is the entry point for pastetrace.
func main() {
	Execute()
}
