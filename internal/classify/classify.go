// Package classify labels file paths as text or binary by extension.
package classify

import (
	"path"
	"strings"
)

// binaryExts is the fixed allowlist of binary-associated extensions.
// Anything not listed is treated as text. This is a heuristic, not
// content sniffing; the text decode path self-corrects false negatives.
var binaryExts = map[string]struct{}{
	// images
	".png": {}, ".jpg": {}, ".jpeg": {}, ".gif": {}, ".webp": {},
	".bmp": {}, ".ico": {}, ".tif": {}, ".tiff": {}, ".psd": {},
	// archives
	".zip": {}, ".tar": {}, ".gz": {}, ".tgz": {}, ".bz2": {},
	".xz": {}, ".7z": {}, ".rar": {},
	// fonts
	".woff": {}, ".woff2": {}, ".ttf": {}, ".otf": {}, ".eot": {},
	// audio / video
	".mp3": {}, ".wav": {}, ".ogg": {}, ".flac": {}, ".m4a": {},
	".mp4": {}, ".avi": {}, ".mov": {}, ".mkv": {}, ".webm": {},
	// compiled objects and bundles
	".exe": {}, ".dll": {}, ".so": {}, ".dylib": {}, ".o": {},
	".a": {}, ".lib": {}, ".class": {}, ".jar": {}, ".war": {},
	".pyc": {}, ".wasm": {},
	// binary lockfiles and data blobs
	".lockb": {}, ".pdf": {}, ".bin": {}, ".dat": {}, ".db": {},
	".sqlite": {}, ".sqlite3": {},
}

// IsBinaryPath reports whether the path carries a binary-associated
// extension.
func IsBinaryPath(p string) bool {
	ext := strings.ToLower(path.Ext(p))
	_, ok := binaryExts[ext]
	return ok
}
