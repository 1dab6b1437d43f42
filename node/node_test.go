package node_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/nif"
	"github.com/meigma/nif/node"
	"github.com/meigma/nif/stream"
)

// roundTrip saves objs under the given BS version and loads them back.
func roundTrip(t *testing.T, bsVersion uint32, strs []string, objs ...nif.Object) *nif.Container {
	t.Helper()

	c := nif.New(node.Registry())
	c.SetBSVersion(bsVersion)
	for _, s := range strs {
		c.AddString(s)
	}
	for _, obj := range objs {
		c.AddBlock(obj)
	}

	var buf bytes.Buffer
	_, err := c.WriteTo(&buf)
	require.NoError(t, err)

	loaded := nif.New(node.Registry())
	require.NoError(t, loaded.Decode("test.nif", buf.Bytes()))
	require.Equal(t, len(objs), loaded.Len())
	return loaded
}

func TestRegistry(t *testing.T) {
	t.Parallel()

	reg := node.Registry()
	assert.Same(t, reg, node.Registry())
	assert.Equal(t, 11, reg.Len())
	for _, name := range []string{
		node.TypeNiNode, node.TypeBSFadeNode, node.TypeBSLeafAnimNode,
		node.TypeNiTriShape, node.TypeNiTriShapeData,
		node.TypeNiStringExtraData, node.TypeNiIntegerExtraData, node.TypeBSXFlags, node.TypeNiBinaryExtraData,
		node.TypeNiAlphaProperty, node.TypeBSShaderTextureSet,
	} {
		obj, ok := reg.New(name)
		require.True(t, ok, name)
		assert.Equal(t, name, obj.TypeName())
	}
}

func TestRegister_ExtendsBuilder(t *testing.T) {
	t.Parallel()

	reg, err := node.Register(nif.NewRegistryBuilder()).
		Alias("BSMultiBoundNode", node.TypeNiNode).
		Build()
	require.NoError(t, err)
	assert.True(t, reg.Has("BSMultiBoundNode"))
	assert.Equal(t, 12, reg.Len())

	obj, ok := reg.New("BSMultiBoundNode")
	require.True(t, ok)
	assert.Equal(t, "BSMultiBoundNode", obj.TypeName())

	c := nif.New(reg)
	c.AddBlock(obj)
	assert.Equal(t, []string{"BSMultiBoundNode"}, c.Header().BlockTypes())
}

func TestNiNode_RoundTrip(t *testing.T) {
	t.Parallel()

	for _, bs := range []uint32{26, 34, 83, 130} {
		root := node.NewBSFadeNode()
		root.Name = 0
		root.Flags = 14
		root.Translation = node.Vec3{X: 1, Y: 2, Z: 3}
		root.Scale = 0.5
		root.ExtraData = []node.Ref{1}
		root.AddChild(2)
		root.AddChild(3)
		if bs < 130 {
			root.Effects = []node.Ref{4}
		}
		if bs <= 34 {
			root.Properties = []node.Ref{5}
		}

		child := node.NewNiNode()
		child.Name = 1

		loaded := roundTrip(t, bs, []string{"Root", "Child"}, root, child)
		assert.Equal(t, root, loaded.Object(0), "bs %d", bs)
		assert.Equal(t, child, loaded.Object(1), "bs %d", bs)
		assert.Equal(t, node.TypeBSFadeNode, loaded.Block(0).Type)
	}
}

func TestNiNode_NarrowFlags(t *testing.T) {
	t.Parallel()

	n := node.NewNiNode()
	n.Flags = 0x1_0008

	loaded := roundTrip(t, 26, nil, n)
	got, ok := loaded.Object(0).(*node.NiNode)
	require.True(t, ok)
	assert.Equal(t, uint32(0x0008), got.Flags)
}

func TestNiTriShape_RoundTrip(t *testing.T) {
	t.Parallel()

	for _, bs := range []uint32{34, 83} {
		shape := node.NewNiTriShape()
		shape.Name = 0
		shape.Data = 1
		shape.Materials = node.MaterialData{
			Names:          []node.StringRef{1},
			ExtraData:      []int32{7},
			ActiveMaterial: 0,
			NeedsUpdate:    true,
		}
		if bs > 34 {
			shape.ShaderProperty = 2
			shape.AlphaProperty = 3
		}

		loaded := roundTrip(t, bs, []string{"Shape", "Material"}, shape)
		assert.Equal(t, shape, loaded.Object(0), "bs %d", bs)
	}
}

func TestNiTriShapeData_RoundTrip(t *testing.T) {
	t.Parallel()

	verts := []node.Vec3{{X: -1}, {X: 1}, {Y: 1}, {Y: -1}}
	data := node.NewNiTriShapeData(verts, []node.Triangle{{V1: 0, V2: 1, V3: 2}, {V1: 0, V2: 2, V3: 3}})
	data.HasNormals = true
	data.Normals = []node.Vec3{{Z: 1}, {Z: 1}, {Z: 1}, {Z: 1}}
	data.VectorFlags = 2 | node.VectorFlagTangents
	data.Tangents = []node.Vec3{{X: 1}, {X: 1}, {X: 1}, {X: 1}}
	data.Bitangents = []node.Vec3{{Y: 1}, {Y: 1}, {Y: 1}, {Y: 1}}
	data.HasColors = true
	data.Colors = []node.Color4{{R: 1, A: 1}, {G: 1, A: 1}, {B: 1, A: 1}, {A: 1}}
	data.UVSets = [][]node.TexCoord{
		{{U: 0, V: 0}, {U: 1, V: 0}, {U: 1, V: 1}, {U: 0, V: 1}},
		{{U: 0.5, V: 0.5}, {U: 0.5, V: 0.5}, {U: 0.5, V: 0.5}, {U: 0.5, V: 0.5}},
	}
	data.MatchGroups = [][]uint16{{0, 3}, {1}}

	loaded := roundTrip(t, 83, nil, data)
	assert.Equal(t, data, loaded.Object(0))
}

func TestNewNiTriShapeData_BoundingSphere(t *testing.T) {
	t.Parallel()

	data := node.NewNiTriShapeData([]node.Vec3{{X: -2}, {X: 2}}, nil)
	assert.Equal(t, node.Vec3{}, data.Center)
	assert.InDelta(t, 2, data.Radius, 1e-6)
	assert.False(t, data.HasTriangles)
	assert.Equal(t, uint16(2), data.NumVertices)
}

func TestNiTriShapeData_CountMismatchFailsSave(t *testing.T) {
	t.Parallel()

	data := node.NewNiTriShapeData([]node.Vec3{{X: 1}}, nil)
	data.HasNormals = true // no normals supplied

	c := nif.New(node.Registry())
	c.AddBlock(data)
	_, err := c.WriteTo(&bytes.Buffer{})
	require.ErrorIs(t, err, nif.ErrWrite)
	require.ErrorIs(t, err, stream.ErrMalformed)
}

func TestExtraData_RoundTrip(t *testing.T) {
	t.Parallel()

	str := &node.NiStringExtraData{Name: 0, Value: 1}
	bsx := node.NewBSXFlags(2, 0x82)
	integer := &node.NiIntegerExtraData{Name: node.NoString, Value: 42}
	binary := &node.NiBinaryExtraData{Name: 0, Data: []byte{1, 2, 3}}

	loaded := roundTrip(t, 83, []string{"Prn", "NPC Head", "BSX"}, str, bsx, integer, binary)
	assert.Equal(t, str, loaded.Object(0))
	assert.Equal(t, bsx, loaded.Object(1))
	assert.Equal(t, node.TypeBSXFlags, loaded.Block(1).Type)
	assert.Equal(t, integer, loaded.Object(2))
	assert.Equal(t, node.TypeNiIntegerExtraData, loaded.Block(2).Type)
	assert.Equal(t, binary, loaded.Object(3))

	v, ok := str.Value.Resolve(loaded.Header())
	require.True(t, ok)
	assert.Equal(t, "NPC Head", v)
	_, ok = integer.Name.Resolve(loaded.Header())
	assert.False(t, ok)
}

func TestProperties_RoundTrip(t *testing.T) {
	t.Parallel()

	alpha := node.NewNiAlphaProperty()
	textures := node.NewBSShaderTextureSet()
	textures.Textures[0] = `textures\clutter\bowl.dds`
	textures.Textures[1] = `textures\clutter\bowl_n.dds`

	loaded := roundTrip(t, 83, nil, alpha, textures)
	assert.Equal(t, alpha, loaded.Object(0))
	assert.Equal(t, textures, loaded.Object(1))

	got, ok := loaded.Object(0).(*node.NiAlphaProperty)
	require.True(t, ok)
	assert.Equal(t, uint16(node.DefaultAlphaFlags), got.Flags)
	assert.Equal(t, uint8(node.DefaultAlphaThreshold), got.Threshold)
}
