package fdup

import (
	zcsl "github.com/mattkeenan/zerocopyskiplist"
)

// Context constants for skiplist operations
const (
	PendingContext = "pending" // partition has a single member, nothing to hash
	HashContext    = "hash"    // partition has two or more members and is hashed
)

// partition holds every registered record that shares one MatchKey, in
// registration order.
type partition struct {
	Key     MatchKey
	Members []*FileRecord
}

// partitionIndex keeps partitions ordered by MatchKey, so hashing visits
// partitions in size order.
type partitionIndex struct {
	skiplist *zcsl.ZeroCopySkiplist[partition, MatchKey, string]
}

// newPartitionIndex creates an empty index
func newPartitionIndex(maxLevels int) *partitionIndex {
	if maxLevels < 8 {
		maxLevels = 16 // reasonable default
	}

	getKeyFromItem := func(p *partition) MatchKey {
		return p.Key
	}

	getItemSize := func(p *partition) int {
		return len(p.Members)
	}

	skiplist := zcsl.MakeZeroCopySkiplist[partition, MatchKey, string](
		maxLevels,
		getKeyFromItem,
		getItemSize,
		compareMatchKeys,
	)

	return &partitionIndex{
		skiplist: skiplist,
	}
}

// Add appends a record to the partition for key, creating it if needed.
// A partition is promoted to HashContext once it has a second member.
func (pi *partitionIndex) Add(key MatchKey, record *FileRecord) {
	if node, _ := pi.skiplist.Find(key); node != nil {
		p := node.Item()
		p.Members = append(p.Members, record)
		if len(p.Members) == 2 {
			pi.skiplist.UpdateContext(key, HashContext)
		}
		return
	}

	pi.skiplist.Insert(&partition{
		Key:     key,
		Members: []*FileRecord{record},
	}, PendingContext)
}

// ForEach iterates through partitions in key order with a callback
func (pi *partitionIndex) ForEach(callback func(*partition, string) bool) {
	for current := pi.skiplist.First(); current != nil; current = current.Next() {
		if !callback(current.Item(), current.Context()) {
			break
		}
	}
}

// ForEachContext iterates through partitions matching a specific context
func (pi *partitionIndex) ForEachContext(context string, callback func(*partition) bool) {
	pi.ForEach(func(p *partition, partitionContext string) bool {
		if partitionContext == context {
			return callback(p)
		}
		return true // Continue iteration
	})
}

// Length returns the number of partitions
func (pi *partitionIndex) Length() int {
	return pi.skiplist.Length()
}
