package nif

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"

	"github.com/meigma/nif/internal/sizing"
	"github.com/meigma/nif/stream"
)

// State is the lifecycle state of a Container.
type State uint8

const (
	StateEmpty State = iota
	StateBuilding
	StateHeaderParsed
	StateLoaded
	StateFailed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateBuilding:
		return "building"
	case StateHeaderParsed:
		return "header-parsed"
	case StateLoaded:
		return "loaded"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

var (
	errNoResolver = errors.New("no resolver configured")
	errFailedLoad = errors.New("container holds a failed load")
)

// Container owns a header and its ordered block list. It is the unit of
// loading and saving.
//
// A Container is not safe for concurrent use. Independent containers may be
// used from separate goroutines and may share a Registry.
type Container struct {
	header   *Header
	blocks   []Block
	registry *Registry
	resolver *Resolver
	state    State
	logger   *slog.Logger
}

// New creates an empty container that decodes blocks through reg.
func New(reg *Registry, opts ...Option) *Container {
	c := &Container{
		header:   NewHeader(),
		registry: reg,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// log returns the logger, falling back to a discard logger if nil.
func (c *Container) log() *slog.Logger {
	if c.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return c.logger
}

// State returns the lifecycle state.
func (c *Container) State() State {
	return c.state
}

// Header returns the container header.
func (c *Container) Header() *Header {
	return c.header
}

// Len returns the number of blocks, tombstones included.
func (c *Container) Len() int {
	return len(c.blocks)
}

// Block returns block i.
func (c *Container) Block(i int) Block {
	return c.blocks[i]
}

// Object returns the decoded object of block i, or nil for a tombstone.
func (c *Container) Object(i int) Object {
	return c.blocks[i].Object
}

// Blocks returns an iterator over all blocks in index order.
func (c *Container) Blocks() iter.Seq2[int, Block] {
	return func(yield func(int, Block) bool) {
		for i, b := range c.blocks {
			if !yield(i, b) {
				return
			}
		}
	}
}

// String returns entry i of the header string table.
func (c *Container) String(i int) (string, bool) {
	return c.header.String(i)
}

// Version returns the header format version.
func (c *Container) Version() uint32 { return c.header.Version }

// SetVersion sets the header format version.
func (c *Container) SetVersion(v uint32) { c.header.Version = v }

// UserVersion returns the header user version.
func (c *Container) UserVersion() uint32 { return c.header.UserVersion }

// SetUserVersion sets the header user version.
func (c *Container) SetUserVersion(v uint32) { c.header.UserVersion = v }

// SetBSVersion sets the second user version.
func (c *Container) SetBSVersion(v uint32) { c.header.BSVersion = v }

// SetCreator sets the creator export string.
func (c *Container) SetCreator(s string) { c.header.Creator = s }

// AddBlock appends obj and registers its type in the header immediately.
// It returns the new block's index; indices start at 0 and never change.
func (c *Container) AddBlock(obj Object) int {
	if c.state == StateFailed {
		c.header = NewHeader()
		c.state = StateEmpty
	}
	// The size is recomputed on save; a zero placeholder keeps the
	// descriptor list aligned with the block list.
	var size uint32
	if n, err := encodedSize(c.header, obj); err == nil {
		size, _ = sizing.ToUint32(n, ErrSizeOverflow)
	}
	typeName := obj.TypeName()
	if err := c.header.addBlock(typeName, size); err != nil {
		c.log().Warn("block type not registered in header", "type", typeName, "error", err)
	}
	c.blocks = append(c.blocks, Block{Type: typeName, Object: obj})
	if c.state == StateEmpty {
		c.state = StateBuilding
	}
	return len(c.blocks) - 1
}

// AddString adds s to the header string table and returns its index.
func (c *Container) AddString(s string) int {
	return c.header.AddString(s)
}

// Load resolves name through the configured Resolver and decodes it.
func (c *Container) Load(ctx context.Context, name string) error {
	if c.resolver == nil {
		return c.fail(newError(KindSourceAccess, name, errNoResolver))
	}
	data, err := c.resolver.Resolve(ctx, name)
	if err != nil {
		var nerr *Error
		if !errors.As(err, &nerr) {
			nerr = newError(KindSourceAccess, name, err)
		}
		return c.fail(nerr)
	}
	return c.Decode(name, data)
}

// Decode parses data as a container, replacing any previous state.
//
// Blocks of unregistered types are skipped by their declared size and kept
// as tombstones. Any other failure is fatal: the block list is cleared, the
// state becomes StateFailed and an *Error is returned. name only labels
// errors and log messages.
func (c *Container) Decode(name string, data []byte) error {
	c.header = NewHeader()
	c.blocks = nil
	c.state = StateEmpty

	if len(data) == 0 {
		return c.fail(newError(KindHeaderParse, name, errors.New("empty source")))
	}

	r := stream.NewReader(data)
	if err := c.header.Read(r); err != nil {
		return c.fail(newError(KindHeaderParse, name, err))
	}
	c.state = StateHeaderParsed

	n := c.header.NumBlocks()
	c.blocks = make([]Block, 0, n)
	for i := range n {
		b, err := c.decodeBlock(r, i)
		if err != nil {
			err.Name = name
			return c.fail(err)
		}
		if b.IsTombstone() {
			c.log().Warn("unsupported block type skipped", "name", name, "block", i, "type", b.Type, "size", len(b.Raw))
		}
		c.blocks = append(c.blocks, b)
	}

	c.state = StateLoaded
	c.log().Debug("container loaded", "name", name, "version", VersionString(c.header.Version), "blocks", n, "trailing", r.Len())
	return nil
}

// decodeBlock decodes block i from the shared cursor.
func (c *Container) decodeBlock(r *stream.Reader, i int) (b Block, e *Error) {
	typeName := c.header.BlockType(i)
	size := int(c.header.BlockSize(i))
	b.Type = typeName

	obj, ok := c.registry.New(typeName)
	if !ok {
		raw := r.Bytes(size)
		if err := r.Err(); err != nil {
			return Block{}, &Error{Kind: KindBlockDecode, Block: i, Type: typeName, Err: err}
		}
		b.Raw = raw
		return b, nil
	}

	defer func() {
		if p := recover(); p != nil {
			b = Block{}
			e = &Error{Kind: KindBlockDecode, Block: i, Type: typeName, Err: fmt.Errorf("decoder panic: %v", p)}
		}
	}()

	start := r.Pos()
	obj.Decode(c.header, r)
	if err := r.Err(); err != nil {
		return Block{}, &Error{Kind: KindBlockDecode, Block: i, Type: typeName, Err: err}
	}
	if consumed := r.Pos() - start; consumed != size {
		return Block{}, &Error{
			Kind:  KindBlockDecode,
			Block: i,
			Type:  typeName,
			Err:   fmt.Errorf("decoder consumed %d bytes, header declares %d", consumed, size),
		}
	}
	b.Object = obj
	return b, nil
}

// fail records a fatal error: the header and block list are discarded, the
// state becomes StateFailed, and one message is logged.
func (c *Container) fail(err *Error) error {
	c.header = NewHeader()
	c.blocks = nil
	c.state = StateFailed
	c.log().Error(err.Error(), "kind", err.Kind.String(), "name", err.Name, "block", err.Block)
	return err
}
