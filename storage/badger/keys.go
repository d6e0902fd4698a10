package badger

import (
	"encoding/binary"
)

// Key prefixes for different data types
const (
	snapshotPrefix     = "snap"
	snapshotCurrentKey = "snapshot:current"
	snapshotVersionSeq = "snapseq"

	recipeKind   = "rec"
	chunkKind    = "chk"
	vectorKind   = "vec"
	indexKind    = "idx"
	manifestKind = "manifest"
)

// makeSnapshotPrefix generates the prefix shared by every key of a version.
// Format: prefix:version:
func makeSnapshotPrefix(version uint64) []byte {
	prefix := snapshotPrefix + ":"
	buf := make([]byte, len(prefix)+8+1)
	offset := copy(buf, prefix)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], version)
	offset += 8
	buf[offset] = ':'
	return buf
}

// makeArtifactPrefix generates the prefix for all rows of one artifact.
// Format: prefix:version:kind:
func makeArtifactPrefix(version uint64, kind string) []byte {
	base := makeSnapshotPrefix(version)
	buf := make([]byte, 0, len(base)+len(kind)+1)
	buf = append(buf, base...)
	buf = append(buf, kind...)
	buf = append(buf, ':')
	return buf
}

// makeArtifactKey generates the key for one row of an artifact.
// Format: prefix:version:kind:row
func makeArtifactKey(version uint64, kind string, row int) []byte {
	prefix := makeArtifactPrefix(version, kind)
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(row))
	return buf
}

// makeManifestKey generates the key of a version's manifest.
// Format: prefix:version:manifest
func makeManifestKey(version uint64) []byte {
	base := makeSnapshotPrefix(version)
	buf := make([]byte, 0, len(base)+len(manifestKind))
	buf = append(buf, base...)
	buf = append(buf, manifestKind...)
	return buf
}
