package fdup

import (
	"cmp"
	"strings"
)

// MatchFlags selects which stat fields, besides size, two files must share
// before their contents are compared.
type MatchFlags uint8

const (
	MatchCTime MatchFlags = 1 << iota // c: status change time
	MatchDev                          // d: device
	MatchGID                          // g: owning group
	MatchLink                         // l: hard link count
	MatchMTime                        // m: modification time
	MatchMode                         // p: permission mode
	MatchUID                          // u: owning user
)

// matchLetters lists flags in the order their letters are documented
var matchLetters = []struct {
	letter byte
	flag   MatchFlags
}{
	{'c', MatchCTime},
	{'d', MatchDev},
	{'g', MatchGID},
	{'l', MatchLink},
	{'m', MatchMTime},
	{'p', MatchMode},
	{'u', MatchUID},
}

// ParseMatchFlags parses a string of flag letters from "cdglmpu"
func ParseMatchFlags(letters string) (MatchFlags, error) {
	var flags MatchFlags
	for i := 0; i < len(letters); i++ {
		found := false
		for _, ml := range matchLetters {
			if letters[i] == ml.letter {
				flags |= ml.flag
				found = true
				break
			}
		}
		if !found {
			return 0, usageErrorf("unknown match specifier %c (supported: cdglmpu)", letters[i])
		}
	}
	return flags, nil
}

// String returns the flag letters in canonical order
func (f MatchFlags) String() string {
	var sb strings.Builder
	for _, ml := range matchLetters {
		if f&ml.flag != 0 {
			sb.WriteByte(ml.letter)
		}
	}
	return sb.String()
}

// MatchKey is the partition key: size plus the stat fields selected by
// MatchFlags. Unselected fields stay zero so they never split partitions.
type MatchKey struct {
	Size  int64
	Dev   uint64
	Nlink uint64
	MTime int64 // nanoseconds since the epoch
	CTime int64 // nanoseconds since the epoch
	Mode  uint32
	UID   uint32
	GID   uint32
}

// KeyFor builds the match key of a record under these flags
func (f MatchFlags) KeyFor(fr *FileRecord) MatchKey {
	key := MatchKey{Size: fr.Size}
	if f&MatchDev != 0 {
		key.Dev = fr.Dev
	}
	if f&MatchLink != 0 {
		key.Nlink = fr.Nlink
	}
	if f&MatchMTime != 0 {
		key.MTime = fr.MTime.UnixNano()
	}
	if f&MatchCTime != 0 {
		key.CTime = fr.CTime.UnixNano()
	}
	if f&MatchMode != 0 {
		key.Mode = fr.Mode
	}
	if f&MatchUID != 0 {
		key.UID = fr.UID
	}
	if f&MatchGID != 0 {
		key.GID = fr.GID
	}
	return key
}

// compareMatchKeys orders keys by size first, then by the remaining fields
func compareMatchKeys(a, b MatchKey) int {
	if c := cmp.Compare(a.Size, b.Size); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Dev, b.Dev); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Nlink, b.Nlink); c != 0 {
		return c
	}
	if c := cmp.Compare(a.MTime, b.MTime); c != 0 {
		return c
	}
	if c := cmp.Compare(a.CTime, b.CTime); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Mode, b.Mode); c != 0 {
		return c
	}
	if c := cmp.Compare(a.UID, b.UID); c != 0 {
		return c
	}
	return cmp.Compare(a.GID, b.GID)
}
