// Package inventory builds the fingerprinted load order of installed content
// by walking rule-described directories under a game root.
//
// Scanning runs once at startup, typically through
// ctd.InventoryCache.ScanAndCache, so the crash path only reads the cached
// result:
//
//	scanner := inventory.NewDirScanner(gameDir, inventory.DefaultRules())
//	n, err := ctd.DefaultInventoryCache.ScanAndCache(ctx, scanner)
//
// Files that cannot be hashed are still listed, with ctd.ZeroFingerprint.
package inventory
