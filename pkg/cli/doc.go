// Package cli implements the ctd command-line tool.
//
// # Commands
//
// fingerprint - Print the fingerprint of one or more files:
//
//	ctd fingerprint Data/Skyrim.esm Data/Update.esm
//
// scan - Build the fingerprinted inventory of a game directory:
//
//	ctd scan --root "C:/Games/Cyberpunk 2077" [--rules inventory.yaml]
//
// symbolize - Resolve a captured stack trace against symbol files:
//
//	ctd symbolize --symbols ./symbols trace.txt
//
// validate - Check saved crash reports against the collector's bounds:
//
//	ctd validate report.json
//
// submit - Send saved crash reports to the collector, rate limited:
//
//	ctd submit --rate 2 reports/*.json
//
// config - Print the example or effective configuration:
//
//	ctd config example
//
// # Global Flags
//
//	--config       Config file (default: search order of pkg/config)
//	--log-level    Log level: debug, info, warn, error
//	--version, -v  Show version information
package cli
