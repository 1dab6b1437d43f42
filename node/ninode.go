package node

import (
	"github.com/meigma/nif"
	"github.com/meigma/nif/stream"
)

// Node type names.
const (
	TypeNiNode         = "NiNode"
	TypeBSFadeNode     = "BSFadeNode"
	TypeBSLeafAnimNode = "BSLeafAnimNode"
)

// NiNode is a scene graph node with children.
//
// BSFadeNode and BSLeafAnimNode share its layout; BlockType records which
// name the node is written under.
type NiNode struct {
	AVObject
	Children []Ref
	Effects  []Ref

	BlockType string
}

// NewNiNode returns an empty node with an identity transform.
func NewNiNode() *NiNode {
	return &NiNode{AVObject: newAVObject()}
}

// NewBSFadeNode returns an empty node written as BSFadeNode.
func NewBSFadeNode() *NiNode {
	n := NewNiNode()
	n.BlockType = TypeBSFadeNode
	return n
}

// TypeName implements nif.Object.
func (n *NiNode) TypeName() string {
	if n.BlockType != "" {
		return n.BlockType
	}
	return TypeNiNode
}

// SetTypeName implements nif.TypeNamer.
func (n *NiNode) SetTypeName(name string) {
	n.BlockType = name
}

// hasEffects reports whether the effects list is present.
func hasEffects(h *nif.Header) bool {
	return h.BSVersion < 130
}

// Decode implements nif.Object.
func (n *NiNode) Decode(h *nif.Header, r *stream.Reader) {
	n.AVObject.decode(h, r)
	n.Children = readRefs(r)
	if hasEffects(h) {
		n.Effects = readRefs(r)
	}
}

// Encode implements nif.Object.
func (n *NiNode) Encode(h *nif.Header, w *stream.Writer) {
	n.AVObject.encode(h, w)
	writeRefs(w, n.Children)
	if hasEffects(h) {
		writeRefs(w, n.Effects)
	}
}

// AddChild appends a child reference.
func (n *NiNode) AddChild(ref Ref) {
	n.Children = append(n.Children, ref)
}
