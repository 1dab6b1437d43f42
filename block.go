package nif

import (
	"io"

	"github.com/meigma/nif/stream"
)

// Object is the in-memory representation of one block kind.
//
// Decode must consume exactly the block's encoded extent from r; Encode must
// produce the same extent. Both report failures through the sticky error of
// the reader or writer. The header is passed because some encodings depend on
// its version fields and string table.
type Object interface {
	TypeName() string
	Decode(h *Header, r *stream.Reader)
	Encode(h *Header, w *stream.Writer)
}

// TypeNamer is implemented by objects whose layout is shared by several type
// names. Objects built through an alias are told the alias name.
type TypeNamer interface {
	SetTypeName(name string)
}

// Block is one entry of a container, identified by its index.
//
// A tombstone has a nil Object. Its Raw bytes are the block's original
// encoding, kept so Save can re-emit it unchanged.
type Block struct {
	Type   string
	Object Object
	Raw    []byte
}

// IsTombstone reports whether the block's type was not recognized at load time.
func (b Block) IsTombstone() bool {
	return b.Object == nil
}

// encodedSize measures obj by encoding it into a discarding writer.
func encodedSize(h *Header, obj Object) (int64, error) {
	w := stream.NewWriter(io.Discard)
	obj.Encode(h, w)
	return w.Len(), w.Err()
}
