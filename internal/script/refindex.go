package script

import "github.com/myrjola/turnabout/internal/entity"

// RefIndex is shared by all script documents of a case and kept current by their mutations. It
// counts, per referenced record, the blocks that refer to it, and it registers every block ID of
// the case with the script holding it, so reverse lookups and case-wide uniqueness checks are O(1).
type RefIndex struct {
	counts map[entity.Ref]int
	blocks map[BlockID]Key
}

func NewRefIndex() *RefIndex {
	return &RefIndex{counts: map[entity.Ref]int{}, blocks: map[BlockID]Key{}}
}

// References implements [entity.ReferenceCounter].
func (x *RefIndex) References(ref entity.Ref) int {
	return x.counts[ref]
}

// Locate returns the key of the script holding the block.
func (x *RefIndex) Locate(id BlockID) (Key, bool) {
	key, ok := x.blocks[id]
	return key, ok
}

func (x *RefIndex) add(key Key, b TextBlock) {
	x.blocks[b.ID] = key
	x.addRefs(b)
}

func (x *RefIndex) remove(b TextBlock) {
	delete(x.blocks, b.ID)
	x.removeRefs(b)
}

func (x *RefIndex) addRefs(b TextBlock) {
	for _, ref := range b.References() {
		x.counts[ref]++
	}
}

func (x *RefIndex) removeRefs(b TextBlock) {
	for _, ref := range b.References() {
		if x.counts[ref] <= 1 {
			delete(x.counts, ref)
			continue
		}
		x.counts[ref]--
	}
}
