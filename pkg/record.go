package fdup

import (
	"encoding/hex"
	"time"

	"golang.org/x/sys/unix"
)

// FileRecord is one registered regular file. The stat fields are captured
// at registration time and never refreshed.
type FileRecord struct {
	Path  string
	Size  int64
	Dev   uint64
	Ino   uint64
	Nlink uint64
	UID   uint32
	GID   uint32
	Mode  uint32
	MTime time.Time
	CTime time.Time

	seq    int    // registration order
	digest []byte // nil until hashed
}

func newFileRecord(path string, st *unix.Stat_t, seq int) *FileRecord {
	return &FileRecord{
		Path:  path,
		Size:  st.Size,
		Dev:   uint64(st.Dev),
		Ino:   uint64(st.Ino),
		Nlink: uint64(st.Nlink),
		UID:   st.Uid,
		GID:   st.Gid,
		Mode:  st.Mode,
		MTime: time.Unix(st.Mtim.Unix()),
		CTime: time.Unix(st.Ctim.Unix()),
		seq:   seq,
	}
}

// Digest returns the content digest, or nil if the file was never hashed
func (fr *FileRecord) Digest() []byte {
	return fr.digest
}

// DigestString returns the digest as a hex string
func (fr *FileRecord) DigestString() string {
	return hex.EncodeToString(fr.digest)
}

// sameInode reports whether both records name the same file on disk
func (fr *FileRecord) sameInode(other *FileRecord) bool {
	return fr.Dev == other.Dev && fr.Ino == other.Ino
}

// inodeKey identifies a file independent of the path it was reached by
type inodeKey struct {
	dev uint64
	ino uint64
}

func (fr *FileRecord) inode() inodeKey {
	return inodeKey{dev: fr.Dev, ino: fr.Ino}
}
