package fdup

// GroupIterator is a single-pass, two-level cursor over duplicate groups.
// Call NextGroup, then drain NextFile, until NextGroup reports false.
// It is not restartable and not safe for concurrent use.
type GroupIterator struct {
	groups  []*Group
	next    int    // index of the group NextGroup returns next
	current *Group // nil before the first NextGroup and after the last
	file    int    // index of the member NextFile returns next
}

// NewGroupIterator returns an iterator over groups
func NewGroupIterator(groups []*Group) *GroupIterator {
	return &GroupIterator{groups: groups}
}

// NextGroup advances to the next group and returns its keeper's path.
// It returns false when every group has been visited.
func (it *GroupIterator) NextGroup() (string, bool) {
	keeper, ok := it.nextGroupRecord()
	if !ok {
		return "", false
	}
	return keeper.Path, true
}

// NextFile returns the next duplicate in the current group. It returns false
// once the group is drained, before the first NextGroup and after the last
// group, and keeps returning false until NextGroup is called again.
func (it *GroupIterator) NextFile() (string, bool) {
	dup, ok := it.nextFileRecord()
	if !ok {
		return "", false
	}
	return dup.Path, true
}

func (it *GroupIterator) nextGroupRecord() (*FileRecord, bool) {
	for it.next < len(it.groups) {
		g := it.groups[it.next]
		it.next++
		if g.Len() == 0 {
			continue
		}
		it.current = g
		it.file = 1
		return g.Keeper(), true
	}
	it.current = nil
	return nil, false
}

func (it *GroupIterator) nextFileRecord() (*FileRecord, bool) {
	if it.current == nil || it.file >= it.current.Len() {
		return nil, false
	}
	dup := it.current.files[it.file]
	it.file++
	return dup, true
}
