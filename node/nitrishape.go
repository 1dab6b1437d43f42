package node

import (
	"github.com/meigma/nif"
	"github.com/meigma/nif/stream"
)

// TypeNiTriShape is the block type name of NiTriShape.
const TypeNiTriShape = "NiTriShape"

// MaterialData lists the materials attached to a geometry object.
type MaterialData struct {
	Names          []StringRef
	ExtraData      []int32
	ActiveMaterial int32
	NeedsUpdate    bool
}

func (m *MaterialData) decode(h *nif.Header, r *stream.Reader) {
	n := r.Count(8)
	if n > 0 {
		m.Names = make([]StringRef, n)
		for i := range m.Names {
			m.Names[i] = readString(h, r)
		}
		m.ExtraData = make([]int32, n)
		for i := range m.ExtraData {
			m.ExtraData[i] = r.I32()
		}
	}
	m.ActiveMaterial = r.I32()
	m.NeedsUpdate = r.Bool()
}

func (m *MaterialData) encode(w *stream.Writer) {
	if !checkLen(w, "material extra data", len(m.Names), len(m.ExtraData)) {
		return
	}
	w.Count(len(m.Names))
	for _, s := range m.Names {
		writeString(w, s)
	}
	for _, v := range m.ExtraData {
		w.I32(v)
	}
	w.I32(m.ActiveMaterial)
	w.Bool(m.NeedsUpdate)
}

// NiTriShape places triangle geometry in the scene.
//
// ShaderProperty and AlphaProperty are only present for BS versions above 34.
type NiTriShape struct {
	AVObject
	Data           Ref
	SkinInstance   Ref
	Materials      MaterialData
	ShaderProperty Ref
	AlphaProperty  Ref
}

// NewNiTriShape returns an empty shape with no data or properties.
func NewNiTriShape() *NiTriShape {
	return &NiTriShape{
		AVObject:       newAVObject(),
		Data:           NoRef,
		SkinInstance:   NoRef,
		Materials:      MaterialData{ActiveMaterial: -1},
		ShaderProperty: NoRef,
		AlphaProperty:  NoRef,
	}
}

// TypeName implements nif.Object.
func (s *NiTriShape) TypeName() string {
	return TypeNiTriShape
}

func hasBSProperties(h *nif.Header) bool {
	return h.BSVersion > 34
}

// Decode implements nif.Object.
func (s *NiTriShape) Decode(h *nif.Header, r *stream.Reader) {
	s.AVObject.decode(h, r)
	s.Data = readRef(r)
	s.SkinInstance = readRef(r)
	s.Materials.decode(h, r)
	if hasBSProperties(h) {
		s.ShaderProperty = readRef(r)
		s.AlphaProperty = readRef(r)
	} else {
		s.ShaderProperty, s.AlphaProperty = NoRef, NoRef
	}
}

// Encode implements nif.Object.
func (s *NiTriShape) Encode(h *nif.Header, w *stream.Writer) {
	s.AVObject.encode(h, w)
	writeRef(w, s.Data)
	writeRef(w, s.SkinInstance)
	s.Materials.encode(w)
	if hasBSProperties(h) {
		writeRef(w, s.ShaderProperty)
		writeRef(w, s.AlphaProperty)
	}
}
