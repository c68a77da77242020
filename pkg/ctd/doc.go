// Package ctd provides the data model of the crash-to-desktop reporting
// pipeline: stack frames, file fingerprints, add-on inventories, and the
// validated crash report sent to the collector.
//
// # Core Components
//
//   - RawFrame / ResolvedFrame: one level of a captured stack, before and after symbolication
//   - FileFingerprint: fast, size-bounded content hash identifying an add-on file
//   - Inventory: ordered, schema-versioned list of installed add-ons
//   - ReportBuilder / CrashReport: validated, immutable report record
//   - Transport: destination for reports (api, cxdb, stderr, multi, noop)
//   - Scrubber: keeps reports within bounds and strips user paths and secrets
//
// Capture, symbol resolution and submission live in the capture, symbols and
// dispatch subpackages.
//
// # Quick Start
//
//	d := dispatch.New("skyrim-se",
//	    dispatch.WithTransport(api.New(cfg.API)),
//	    dispatch.WithMetadata(meta),
//	)
//	h, err := capture.Register(host, d, capture.WithModules(mods))
//
// # Design Principles
//
//   - The crash path never fails loudly: every enrichment step degrades
//   - A built CrashReport always serializes without further validation
//   - Submission is at-most-one, detached from the faulting goroutine
package ctd
