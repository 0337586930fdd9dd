package script

import (
	"fmt"
	"iter"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"github.com/myrjola/turnabout/internal/errors"
)

var (
	ErrOutOfRange     = errors.NewSentinel("block index out of range")
	ErrDuplicateBlock = errors.NewSentinel("duplicate block id")
	ErrInvalidBlock   = errors.NewSentinel("invalid block")
)

type Op string

const (
	OpInserted Op = "inserted"
	OpRemoved  Op = "removed"
	OpMoved    Op = "moved"
	OpUpdated  Op = "updated"
)

// Change describes a successful mutation of a script document. To is only set for moves.
type Change struct {
	Key   Key
	Op    Op
	Index int
	To    int
	Block BlockID
}

// Document is the ordered sequence of blocks for one day and phase.
type Document struct {
	key      Key
	blocks   []TextBlock
	ids      map[BlockID]struct{}
	nextSeq  uint64
	index    *RefIndex
	onChange func(Change)
}

// NewDocument creates an empty document whose generated block IDs continue after counter. The
// reference index is shared between the documents of a case and makes block IDs unique across
// all of them; a private one is created when index is nil.
func NewDocument(key Key, counter uint64, index *RefIndex) *Document {
	if index == nil {
		index = NewRefIndex()
	}
	return &Document{
		key:      key,
		blocks:   nil,
		ids:      map[BlockID]struct{}{},
		nextSeq:  counter,
		index:    index,
		onChange: nil,
	}
}

// Restore rebuilds a document from persisted blocks. counter is the last block sequence number
// issued; it is raised when a block carries a higher generated ID.
func Restore(key Key, counter uint64, blocks []TextBlock, index *RefIndex) (*Document, error) {
	d := NewDocument(key, counter, index)
	for _, b := range blocks {
		if b.ID == "" {
			return nil, errors.Wrap(ErrInvalidBlock, "restore block without id", slog.String("key", key.String()))
		}
		if err := d.checkUnique(b.ID, "restore block"); err != nil {
			return nil, err
		}
		b = cloneBlock(b)
		d.blocks = append(d.blocks, b)
		d.ids[b.ID] = struct{}{}
		d.nextSeq = max(d.nextSeq, d.sequenceOf(b.ID))
		d.index.add(d.key, b)
	}
	return d, nil
}

// OnChange installs the hook called after every successful mutation.
func (d *Document) OnChange(fn func(Change)) {
	d.onChange = fn
}

func (d *Document) changed(c Change) {
	c.Key = d.key
	if d.onChange != nil {
		d.onChange(c)
	}
}

func (d *Document) Key() Key {
	return d.key
}

// Counter returns the last block sequence number issued by the document.
func (d *Document) Counter() uint64 {
	return d.nextSeq
}

func (d *Document) Len() int {
	return len(d.blocks)
}

// InsertBlock inserts b before the block at index, or appends it when index equals Len.
// A block without an ID gets a generated one. A supplied ID must not be used anywhere else in
// the case.
func (d *Document) InsertBlock(index int, b TextBlock) (BlockID, error) {
	if index < 0 || index > len(d.blocks) {
		return "", errors.Wrap(ErrOutOfRange, "insert block", slog.Int("index", index), slog.Int("len", len(d.blocks)))
	}
	if b.ID == "" {
		b.ID = d.mintID()
	} else if err := d.checkUnique(b.ID, "insert block"); err != nil {
		return "", err
	}
	if b.Kind == "" {
		b.Kind = BlockScript
	}
	b = cloneBlock(b)
	d.blocks = slices.Insert(d.blocks, index, b)
	d.ids[b.ID] = struct{}{}
	d.nextSeq = max(d.nextSeq, d.sequenceOf(b.ID))
	d.index.add(d.key, b)
	d.changed(Change{Op: OpInserted, Index: index, Block: b.ID})
	return b.ID, nil
}

// RemoveBlock removes and returns the block at index.
func (d *Document) RemoveBlock(index int) (TextBlock, error) {
	if err := d.checkIndex(index, "remove block"); err != nil {
		return TextBlock{}, err
	}
	b := d.blocks[index]
	d.blocks = slices.Delete(d.blocks, index, index+1)
	delete(d.ids, b.ID)
	d.index.remove(b)
	d.changed(Change{Op: OpRemoved, Index: index, Block: b.ID})
	return b, nil
}

// MoveBlock removes the block at from and inserts it so that it ends up at index to.
func (d *Document) MoveBlock(from, to int) error {
	if err := d.checkIndex(from, "move block from"); err != nil {
		return err
	}
	if err := d.checkIndex(to, "move block to"); err != nil {
		return err
	}
	if from == to {
		return nil
	}
	b := d.blocks[from]
	d.blocks = slices.Insert(slices.Delete(d.blocks, from, from+1), to, b)
	d.changed(Change{Op: OpMoved, Index: from, To: to, Block: b.ID})
	return nil
}

// UpdateBlock replaces the block at index, keeping its ID.
func (d *Document) UpdateBlock(index int, b TextBlock) error {
	if err := d.checkIndex(index, "update block"); err != nil {
		return err
	}
	old := d.blocks[index]
	b.ID = old.ID
	if b.Kind == "" {
		b.Kind = old.Kind
	}
	b = cloneBlock(b)
	d.index.removeRefs(old)
	d.index.addRefs(b)
	d.blocks[index] = b
	d.changed(Change{Op: OpUpdated, Index: index, Block: b.ID})
	return nil
}

func (d *Document) Block(index int) (TextBlock, error) {
	if err := d.checkIndex(index, "get block"); err != nil {
		return TextBlock{}, err
	}
	return cloneBlock(d.blocks[index]), nil
}

// IndexOf returns the position of the block with the given ID or -1.
func (d *Document) IndexOf(id BlockID) int {
	if _, ok := d.ids[id]; !ok {
		return -1
	}
	return slices.IndexFunc(d.blocks, func(b TextBlock) bool { return b.ID == id })
}

// Contains reports whether a block with the given ID is in the document.
func (d *Document) Contains(id BlockID) bool {
	_, ok := d.ids[id]
	return ok
}

// Blocks iterates over the blocks in order. Each call starts from the beginning and observes the
// order at the time of iteration.
func (d *Document) Blocks() iter.Seq2[int, TextBlock] {
	return func(yield func(int, TextBlock) bool) {
		for i := 0; i < len(d.blocks); i++ {
			if !yield(i, cloneBlock(d.blocks[i])) {
				return
			}
		}
	}
}

// Snapshot returns copies of the blocks in order.
func (d *Document) Snapshot() []TextBlock {
	blocks := make([]TextBlock, 0, len(d.blocks))
	for _, b := range d.Blocks() {
		blocks = append(blocks, b)
	}
	return blocks
}

func (d *Document) checkUnique(id BlockID, msg string) error {
	if key, ok := d.index.Locate(id); ok {
		return errors.Wrap(ErrDuplicateBlock, msg, slog.String("id", string(id)), slog.String("used_in", key.String()))
	}
	return nil
}

func (d *Document) checkIndex(index int, msg string) error {
	if index < 0 || index >= len(d.blocks) {
		return errors.Wrap(ErrOutOfRange, msg, slog.Int("index", index), slog.Int("len", len(d.blocks)))
	}
	return nil
}

func (d *Document) idPrefix() string {
	phase := "i"
	if d.key.Phase == PhaseTrial {
		phase = "t"
	}
	return fmt.Sprintf("d%d%s.", d.key.Day, phase)
}

func (d *Document) mintID() BlockID {
	for {
		d.nextSeq++
		id := BlockID(d.idPrefix() + strconv.FormatUint(d.nextSeq, 10))
		if _, ok := d.index.Locate(id); !ok {
			return id
		}
	}
}

// sequenceOf extracts the sequence number from IDs generated by this document, 0 otherwise.
func (d *Document) sequenceOf(id BlockID) uint64 {
	rest, ok := strings.CutPrefix(string(id), d.idPrefix())
	if !ok {
		return 0
	}
	n, err := strconv.ParseUint(rest, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
