package node

import (
	"github.com/meigma/nif"
	"github.com/meigma/nif/stream"
)

// Property type names.
const (
	TypeNiAlphaProperty      = "NiAlphaProperty"
	TypeBSShaderTextureSet   = "BSShaderTextureSet"
	DefaultAlphaFlags        = 0x00ED
	DefaultAlphaThreshold    = 128
	shaderTextureSlotsSkyrim = 9
)

// NiAlphaProperty controls blending and alpha testing.
type NiAlphaProperty struct {
	ObjectNET
	Flags     uint16
	Threshold uint8
}

// NewNiAlphaProperty returns a property with blending enabled.
func NewNiAlphaProperty() *NiAlphaProperty {
	return &NiAlphaProperty{
		ObjectNET: ObjectNET{Name: NoString, Controller: NoRef},
		Flags:     DefaultAlphaFlags,
		Threshold: DefaultAlphaThreshold,
	}
}

// TypeName implements nif.Object.
func (p *NiAlphaProperty) TypeName() string { return TypeNiAlphaProperty }

// Decode implements nif.Object.
func (p *NiAlphaProperty) Decode(h *nif.Header, r *stream.Reader) {
	p.ObjectNET.decode(h, r)
	p.Flags = r.U16()
	p.Threshold = r.U8()
}

// Encode implements nif.Object.
func (p *NiAlphaProperty) Encode(_ *nif.Header, w *stream.Writer) {
	p.ObjectNET.encode(w)
	w.U16(p.Flags)
	w.U8(p.Threshold)
}

// BSShaderTextureSet lists the texture paths used by a shader property.
type BSShaderTextureSet struct {
	Textures []string
}

// NewBSShaderTextureSet returns a set with the nine empty slots Skyrim shaders expect.
func NewBSShaderTextureSet() *BSShaderTextureSet {
	return &BSShaderTextureSet{Textures: make([]string, shaderTextureSlotsSkyrim)}
}

// TypeName implements nif.Object.
func (s *BSShaderTextureSet) TypeName() string { return TypeBSShaderTextureSet }

// Decode implements nif.Object.
func (s *BSShaderTextureSet) Decode(_ *nif.Header, r *stream.Reader) {
	n := r.Count(4)
	s.Textures = make([]string, 0, n)
	for range n {
		s.Textures = append(s.Textures, r.SizedString())
	}
}

// Encode implements nif.Object.
func (s *BSShaderTextureSet) Encode(_ *nif.Header, w *stream.Writer) {
	w.Count(len(s.Textures))
	for _, t := range s.Textures {
		w.SizedString(t)
	}
}
