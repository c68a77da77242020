// filehash.go computes fast, size-bounded fingerprints identifying add-on files.

package ctd

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"io"
	"os"

	"github.com/ezmode-games/ctd/pkg/defaults"
	cerrors "github.com/ezmode-games/ctd/pkg/errors"
)

// Fingerprint identifies a file by a hash of its leading bytes and its size.
// It is not an integrity check: two files with identical first 64 KiB and
// identical size share a fingerprint.
type Fingerprint struct {
	// Hash is 16 lowercase hex characters.
	Hash string
	Size uint64
}

// ZeroFingerprint is the placeholder recorded for files that could not be hashed.
var ZeroFingerprint = Fingerprint{Hash: "0000000000000000"}

// FileFingerprint hashes min(64 KiB, size) leading bytes of path together
// with the little-endian file size, truncated to 8 bytes.
// A short read is an error, never a smaller hash.
func FileFingerprint(path string) (Fingerprint, error) {
	f, err := os.Open(path)
	if err != nil {
		return Fingerprint{}, cerrors.WrapWithContext(cerrors.ErrCodeIO, "failed to open file", err,
			map[string]any{"path": path})
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return Fingerprint{}, cerrors.WrapWithContext(cerrors.ErrCodeIO, "failed to stat file", err,
			map[string]any{"path": path})
	}
	size := uint64(info.Size())

	n := uint64(defaults.FingerprintPrefixSize)
	if size < n {
		n = size
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(f, buf); err != nil {
		return Fingerprint{}, cerrors.WrapWithContext(cerrors.ErrCodeIO, "failed to read file", err,
			map[string]any{"path": path, "expected_bytes": n})
	}

	return Fingerprint{Hash: fingerprintBytes(buf, size), Size: size}, nil
}

// fingerprintBytes hashes prefix followed by the little-endian size.
func fingerprintBytes(prefix []byte, size uint64) string {
	h := sha256.New()
	h.Write(prefix)
	var sz [8]byte
	binary.LittleEndian.PutUint64(sz[:], size)
	h.Write(sz[:])
	sum := h.Sum(nil)
	return hex.EncodeToString(sum[:8])
}
