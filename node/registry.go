package node

import (
	"sync"

	"github.com/meigma/nif"
)

// Register adds every block kind in this package to b, including the
// aliases that share a layout with a more general kind.
func Register(b *nif.RegistryBuilder) *nif.RegistryBuilder {
	return b.
		Register(TypeNiNode, func() nif.Object { return NewNiNode() }).
		Alias(TypeBSFadeNode, TypeNiNode).
		Alias(TypeBSLeafAnimNode, TypeNiNode).
		Register(TypeNiTriShape, func() nif.Object { return NewNiTriShape() }).
		Register(TypeNiTriShapeData, func() nif.Object { return &NiTriShapeData{} }).
		Register(TypeNiStringExtraData, func() nif.Object { return &NiStringExtraData{} }).
		Register(TypeNiIntegerExtraData, func() nif.Object { return &NiIntegerExtraData{} }).
		Alias(TypeBSXFlags, TypeNiIntegerExtraData).
		Register(TypeNiBinaryExtraData, func() nif.Object { return &NiBinaryExtraData{} }).
		Register(TypeNiAlphaProperty, func() nif.Object { return NewNiAlphaProperty() }).
		Register(TypeBSShaderTextureSet, func() nif.Object { return &BSShaderTextureSet{} })
}

var defaultRegistry = sync.OnceValue(func() *nif.Registry {
	reg, err := Register(nif.NewRegistryBuilder()).Build()
	if err != nil {
		panic(err)
	}
	return reg
})

// Registry returns the shared registry of every block kind in this package.
func Registry() *nif.Registry {
	return defaultRegistry()
}
