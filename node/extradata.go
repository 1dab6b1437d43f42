package node

import (
	"github.com/meigma/nif"
	"github.com/meigma/nif/stream"
)

// Extra data type names.
const (
	TypeNiStringExtraData  = "NiStringExtraData"
	TypeNiIntegerExtraData = "NiIntegerExtraData"
	TypeBSXFlags           = "BSXFlags"
	TypeNiBinaryExtraData  = "NiBinaryExtraData"
)

// NiStringExtraData attaches a named string to an object.
type NiStringExtraData struct {
	Name  StringRef
	Value StringRef
}

// TypeName implements nif.Object.
func (e *NiStringExtraData) TypeName() string { return TypeNiStringExtraData }

// Decode implements nif.Object.
func (e *NiStringExtraData) Decode(h *nif.Header, r *stream.Reader) {
	e.Name = readString(h, r)
	e.Value = readString(h, r)
}

// Encode implements nif.Object.
func (e *NiStringExtraData) Encode(_ *nif.Header, w *stream.Writer) {
	writeString(w, e.Name)
	writeString(w, e.Value)
}

// NiIntegerExtraData attaches a named integer to an object.
//
// BSXFlags shares the layout; BlockType records which name it is written under.
type NiIntegerExtraData struct {
	Name  StringRef
	Value uint32

	BlockType string
}

// NewBSXFlags returns BSXFlags extra data with the conventional "BSX" name.
func NewBSXFlags(name StringRef, flags uint32) *NiIntegerExtraData {
	return &NiIntegerExtraData{Name: name, Value: flags, BlockType: TypeBSXFlags}
}

// TypeName implements nif.Object.
func (e *NiIntegerExtraData) TypeName() string {
	if e.BlockType != "" {
		return e.BlockType
	}
	return TypeNiIntegerExtraData
}

// SetTypeName implements nif.TypeNamer.
func (e *NiIntegerExtraData) SetTypeName(name string) {
	e.BlockType = name
}

// Decode implements nif.Object.
func (e *NiIntegerExtraData) Decode(h *nif.Header, r *stream.Reader) {
	e.Name = readString(h, r)
	e.Value = r.U32()
}

// Encode implements nif.Object.
func (e *NiIntegerExtraData) Encode(_ *nif.Header, w *stream.Writer) {
	writeString(w, e.Name)
	w.U32(e.Value)
}

// NiBinaryExtraData attaches a named byte payload to an object.
type NiBinaryExtraData struct {
	Name StringRef
	Data []byte
}

// TypeName implements nif.Object.
func (e *NiBinaryExtraData) TypeName() string { return TypeNiBinaryExtraData }

// Decode implements nif.Object.
func (e *NiBinaryExtraData) Decode(h *nif.Header, r *stream.Reader) {
	e.Name = readString(h, r)
	e.Data = r.Bytes(r.Count(1))
}

// Encode implements nif.Object.
func (e *NiBinaryExtraData) Encode(_ *nif.Header, w *stream.Writer) {
	writeString(w, e.Name)
	w.Count(len(e.Data))
	w.Bytes(e.Data)
}
