// Package symbols maps module offsets to function names using offline
// Breakpad text symbol files.
//
// Symbol files are named after the module stem (game.exe → game.sym) and are
// looked up in the configured search directories first, then in the cache
// directory. Tables are loaded lazily on first use and cached for the life of
// the process. Every failure degrades to an unresolved frame: nothing in this
// package returns an error to the crash path.
//
//	r := symbols.New(cacheDir, symbols.WithSearchDirs(modDir))
//	frame := r.Resolve(`C:\Games\Skyrim\SkyrimSE.exe`, 0x1234)
package symbols
