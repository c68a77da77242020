// Package defaults holds the timeouts and bounds shared by ctd components.
package defaults

import "time"

// Submission timeouts.
const (
	// SubmissionTimeout bounds a single transport attempt. A crashing process
	// must never hang waiting on the collector.
	SubmissionTimeout = 30 * time.Second

	// FlushTimeout bounds how long the Go panic bridge waits for the
	// in-flight submission before re-panicking.
	FlushTimeout = 5 * time.Second
)

// HTTP client timeouts for the collector API.
const (
	// HTTPClientTimeout is the default total timeout for collector requests.
	HTTPClientTimeout = 30 * time.Second
)

// Capture bounds.
const (
	// MaxStackFrames bounds the stack walk so corrupted or cyclic stacks terminate.
	MaxStackFrames = 64

	// FingerprintPrefixSize is the number of leading bytes hashed per file.
	FingerprintPrefixSize = 64 * 1024
)

// Scanning and symbol loading concurrency.
const (
	// ScanConcurrency bounds concurrent file fingerprinting during inventory scans.
	ScanConcurrency = 8

	// SymbolLoadConcurrency bounds concurrent symbol file parsing in Discover.
	SymbolLoadConcurrency = 4
)
