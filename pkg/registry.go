package fdup

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"
)

// Group is a set of two or more files with equal match keys and equal
// content digests. The first file is the keeper; the rest are duplicates.
type Group struct {
	files  []*FileRecord
	digest []byte
}

// Keeper returns the file the duplicates are linked to
func (g *Group) Keeper() *FileRecord {
	return g.files[0]
}

// Duplicates returns the files slated for replacement, in registration order
func (g *Group) Duplicates() []*FileRecord {
	return g.files[1:]
}

// Files returns a copy of all members, keeper first
func (g *Group) Files() []*FileRecord {
	return append([]*FileRecord(nil), g.files...)
}

// Len returns the number of members
func (g *Group) Len() int {
	return len(g.files)
}

// Digest returns the content digest shared by all members
func (g *Group) Digest() []byte {
	return g.digest
}

// DigestString returns the digest as a hex string
func (g *Group) DigestString() string {
	return hex.EncodeToString(g.digest)
}

// Reclaimable returns the bytes freed if every duplicate becomes a link
func (g *Group) Reclaimable() int64 {
	return g.Keeper().Size * int64(len(g.files)-1)
}

// RegistryStats summarises a registry after Finalize
type RegistryStats struct {
	Registered  int   // files admitted by Register
	Partitions  int   // distinct match keys
	Hashed      int   // files whose content was read
	Unreadable  int   // files excluded because they could not be read
	Groups      int   // duplicate groups
	Duplicates  int   // files that are not a keeper
	Reclaimable int64 // bytes freed by linking every duplicate
}

// Registry collects candidate files and, on Finalize, groups those with
// identical content. It is used by a single goroutine: Register while open,
// Finalize once, then Iterator.
type Registry struct {
	opts      *Options
	log       zerolog.Logger
	records   []*FileRecord
	paths     map[string]struct{} // registered paths, cleaned
	groups    []*Group
	finalized bool
	stats     RegistryStats
}

// NewRegistry creates an open registry
func NewRegistry(opts *Options) *Registry {
	return &Registry{
		opts:  opts,
		log:   opts.Logger.With().Str("component", "registry").Logger(),
		paths: make(map[string]struct{}),
	}
}

// Register admits a regular file whose size lies inside the configured
// window. Anything else is ignored, as is a path that is already registered
// (overlapping roots). ErrResourceExhausted means the registry is full and
// the caller must stop; earlier registrations remain valid.
func (r *Registry) Register(path string, st *unix.Stat_t) error {
	if r.finalized {
		return fmt.Errorf("register %s: %w", path, ErrRegistryFinalized)
	}
	if st.Mode&unix.S_IFMT != unix.S_IFREG {
		return nil
	}
	if !r.opts.InSizeWindow(st.Size) {
		return nil
	}
	path = filepath.Clean(path)
	if _, seen := r.paths[path]; seen {
		r.log.Debug().Str("path", path).Msg("already registered")
		return nil
	}
	if r.opts.MaxFiles > 0 && len(r.records) >= r.opts.MaxFiles {
		return fmt.Errorf("register %s: registry holds %d files: %w", path, len(r.records), ErrResourceExhausted)
	}

	r.records = append(r.records, newFileRecord(path, st, len(r.records)))
	r.paths[path] = struct{}{}
	if r.opts.debugEnabled("register") {
		r.log.Trace().Str("path", path).Int64("size", st.Size).Msg("registered")
	}
	return nil
}

// Count returns the number of registered files
func (r *Registry) Count() int {
	return len(r.records)
}

// Finalize partitions the registered files by match key, hashes every
// partition with more than one member and freezes the duplicate groups.
// Files that cannot be read are left out with a warning.
func (r *Registry) Finalize() error {
	if r.finalized {
		return fmt.Errorf("finalize: %w", ErrRegistryFinalized)
	}
	r.finalized = true

	// Step 1: partition by match key
	index := newPartitionIndex(16)
	for _, record := range r.records {
		index.Add(r.opts.Match.KeyFor(record), record)
	}
	r.stats.Registered = len(r.records)
	r.stats.Partitions = index.Length()
	r.log.Debug().
		Int("files", len(r.records)).
		Int("partitions", index.Length()).
		Str("match", r.opts.Match.String()).
		Str("size", FormatSizeWindow(r.opts.MinSize, r.opts.MaxSize, r.opts.HasMaxSize)).
		Msg("partitioned")

	// Steps 2-4: hash ambiguous partitions and split them by digest
	digests := make(map[inodeKey][]byte)
	var groups []*Group
	index.ForEachContext(HashContext, func(p *partition) bool {
		groups = append(groups, r.groupPartition(p, digests)...)
		return true
	})

	// Step 5: keeper registration order
	sort.Slice(groups, func(i, j int) bool {
		return groups[i].Keeper().seq < groups[j].Keeper().seq
	})

	r.groups = groups
	r.stats.Groups = len(groups)
	for _, g := range groups {
		r.stats.Duplicates += g.Len() - 1
		r.stats.Reclaimable += g.Reclaimable()
		if r.opts.debugEnabled("group") {
			r.log.Trace().Str("keeper", g.Keeper().Path).Str("digest", g.DigestString()).Int("files", g.Len()).Msg("group")
		}
	}
	return nil
}

// groupPartition hashes the members of one partition and returns the
// groups of two or more members that share a digest.
func (r *Registry) groupPartition(p *partition, digests map[inodeKey][]byte) []*Group {
	var order []string
	byDigest := make(map[string][]*FileRecord)

	for _, record := range p.Members {
		digest, ok := digests[record.inode()]
		if !ok {
			var err error
			digest, err = HashFile(record.Path, r.opts.Hash, r.opts.HashBufferSize)
			if err != nil {
				r.stats.Unreadable++
				r.log.Warn().Err(err).Str("path", record.Path).Msg("skipping unreadable file")
				continue
			}
			r.stats.Hashed++
			digests[record.inode()] = digest
		}
		record.digest = digest
		if r.opts.debugEnabled("hash") {
			r.log.Trace().Str("path", record.Path).Str("digest", record.DigestString()).Msg("hashed")
		}

		key := string(digest)
		if _, seen := byDigest[key]; !seen {
			order = append(order, key)
		}
		byDigest[key] = append(byDigest[key], record)
	}

	var groups []*Group
	for _, key := range order {
		members := byDigest[key]
		if len(members) < 2 {
			continue
		}

		sets := [][]*FileRecord{members}
		if r.opts.Verify {
			sets = r.confirm(members)
		}

		for _, set := range sets {
			if len(set) < 2 {
				continue
			}
			groups = append(groups, &Group{files: set, digest: set[0].digest})
		}
	}
	return groups
}

// confirm splits a digest group into sets whose members are byte-for-byte
// equal to the set's first member. Members that cannot be read are dropped.
func (r *Registry) confirm(members []*FileRecord) [][]*FileRecord {
	var sets [][]*FileRecord
	for len(members) > 1 {
		same, rest, ok := r.splitByFirst(members)
		if ok {
			sets = append(sets, same)
		}
		members = rest
	}
	return sets
}

// splitByFirst compares every member with members[0]. It returns the
// members equal to it and the ones that differ, in registration order.
// When members[0] itself cannot be read it is dropped, ok is false and rest
// holds every other member still worth comparing.
func (r *Registry) splitByFirst(members []*FileRecord) (same, rest []*FileRecord, ok bool) {
	first := members[0]
	same = []*FileRecord{first}
	var kept []*FileRecord // members[1:] seen so far and still readable

	for i, record := range members[1:] {
		if record.sameInode(first) {
			same = append(same, record)
			kept = append(kept, record)
			continue
		}

		equal, err := compareFiles(first.Path, record.Path, r.opts.HashBufferSize)
		if err != nil {
			r.stats.Unreadable++
			var pathErr *os.PathError
			if errors.As(err, &pathErr) && pathErr.Path == first.Path {
				r.log.Warn().Err(err).Str("path", first.Path).Msg("skipping file that failed confirmation")
				return nil, append(kept, members[1+i:]...), false
			}
			r.log.Warn().Err(err).Str("path", record.Path).Msg("skipping file that failed confirmation")
			continue
		}

		kept = append(kept, record)
		if equal {
			same = append(same, record)
		} else {
			r.log.Warn().Str("keeper", first.Path).Str("path", record.Path).
				Msg("digest collision: contents differ")
			rest = append(rest, record)
		}
	}
	return same, rest, true
}

// Groups returns the finalized groups in keeper registration order.
// It returns nil before Finalize.
func (r *Registry) Groups() []*Group {
	return r.groups
}

// Stats returns counters gathered by Finalize
func (r *Registry) Stats() RegistryStats {
	stats := r.stats
	stats.Registered = len(r.records)
	return stats
}

// Iterator returns a cursor over the finalized groups. Before Finalize the
// iterator is empty.
func (r *Registry) Iterator() *GroupIterator {
	return NewGroupIterator(r.groups)
}
