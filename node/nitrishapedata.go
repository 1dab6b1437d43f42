package node

import (
	"fmt"
	"math"

	"github.com/meigma/nif"
	"github.com/meigma/nif/stream"
)

// TypeNiTriShapeData is the block type name of NiTriShapeData.
const TypeNiTriShapeData = "NiTriShapeData"

// Vector flag bits.
const (
	VectorFlagUVMask   uint16 = 0x003F
	VectorFlagTangents uint16 = 0x1000
)

// NiTriShapeData holds vertex and triangle data for NiTriShape.
//
// NumVertices and NumTriangles are kept even when the matching arrays are
// absent, because tools write counts without data for streamed geometry.
type NiTriShapeData struct {
	GroupID       int32
	NumVertices   uint16
	KeepFlags     uint8
	CompressFlags uint8
	Vertices      []Vec3
	HasVertices   bool
	VectorFlags   uint16
	HasNormals    bool
	Normals       []Vec3
	Tangents      []Vec3
	Bitangents    []Vec3
	Center        Vec3
	Radius        float32
	HasColors     bool
	Colors        []Color4
	UVSets        [][]TexCoord

	ConsistencyFlags uint16
	AdditionalData   Ref

	NumTriangles      uint16
	NumTrianglePoints uint32
	HasTriangles      bool
	Triangles         []Triangle
	MatchGroups       [][]uint16
}

// NewNiTriShapeData builds geometry from vertices and triangles and computes
// the bounding sphere.
func NewNiTriShapeData(vertices []Vec3, triangles []Triangle) *NiTriShapeData {
	d := &NiTriShapeData{
		NumVertices:       uint16(min(len(vertices), math.MaxUint16)), //nolint:gosec // clamped
		Vertices:          vertices,
		HasVertices:       len(vertices) > 0,
		NumTriangles:      uint16(min(len(triangles), math.MaxUint16)),  //nolint:gosec // clamped
		NumTrianglePoints: uint32(min(3*len(triangles), math.MaxInt32)), //nolint:gosec // clamped
		HasTriangles:      len(triangles) > 0,
		Triangles:         triangles,
		AdditionalData:    NoRef,
	}
	d.Center, d.Radius = boundingSphere(vertices)
	return d
}

// boundingSphere returns the centroid of vs and the largest distance to it.
func boundingSphere(vs []Vec3) (Vec3, float32) {
	if len(vs) == 0 {
		return Vec3{}, 0
	}
	var c Vec3
	for _, v := range vs {
		c.X += v.X
		c.Y += v.Y
		c.Z += v.Z
	}
	n := float32(len(vs))
	c = Vec3{X: c.X / n, Y: c.Y / n, Z: c.Z / n}
	var r2 float32
	for _, v := range vs {
		dx, dy, dz := v.X-c.X, v.Y-c.Y, v.Z-c.Z
		r2 = max(r2, dx*dx+dy*dy+dz*dz)
	}
	return c, float32(math.Sqrt(float64(r2)))
}

// TypeName implements nif.Object.
func (d *NiTriShapeData) TypeName() string {
	return TypeNiTriShapeData
}

// numUVSets returns the UV set count encoded in the vector flags.
func (d *NiTriShapeData) numUVSets() int {
	return int(d.VectorFlags & VectorFlagUVMask)
}

func (d *NiTriShapeData) hasTangents() bool {
	return d.HasNormals && d.VectorFlags&VectorFlagTangents != 0
}

// Decode implements nif.Object.
func (d *NiTriShapeData) Decode(_ *nif.Header, r *stream.Reader) {
	d.GroupID = r.I32()
	d.NumVertices = r.U16()
	nv := int(d.NumVertices)
	d.KeepFlags = r.U8()
	d.CompressFlags = r.U8()
	d.HasVertices = r.Bool()
	if d.HasVertices {
		d.Vertices = readVec3s(r, nv)
	}
	d.VectorFlags = r.U16()
	d.HasNormals = r.Bool()
	if d.HasNormals {
		d.Normals = readVec3s(r, nv)
	}
	if d.hasTangents() {
		d.Tangents = readVec3s(r, nv)
		d.Bitangents = readVec3s(r, nv)
	}
	d.Center = readVec3(r)
	d.Radius = r.F32()
	d.HasColors = r.Bool()
	if d.HasColors {
		if nv > r.Len()/16 {
			r.SetErr(fmt.Errorf("%w: %d colors", stream.ErrShortBuffer, nv))
			return
		}
		d.Colors = make([]Color4, nv)
		for i := range d.Colors {
			d.Colors[i] = Color4{R: r.F32(), G: r.F32(), B: r.F32(), A: r.F32()}
		}
	}
	if n := d.numUVSets(); n > 0 {
		if nv*n > r.Len()/8 {
			r.SetErr(fmt.Errorf("%w: %d uv sets", stream.ErrShortBuffer, n))
			return
		}
		d.UVSets = make([][]TexCoord, n)
		for i := range d.UVSets {
			d.UVSets[i] = make([]TexCoord, nv)
			for j := range d.UVSets[i] {
				d.UVSets[i][j] = TexCoord{U: r.F32(), V: r.F32()}
			}
		}
	}
	d.ConsistencyFlags = r.U16()
	d.AdditionalData = readRef(r)

	d.NumTriangles = r.U16()
	d.NumTrianglePoints = r.U32()
	d.HasTriangles = r.Bool()
	if d.HasTriangles {
		nt := int(d.NumTriangles)
		if nt > r.Len()/6 {
			r.SetErr(fmt.Errorf("%w: %d triangles", stream.ErrShortBuffer, nt))
			return
		}
		d.Triangles = make([]Triangle, nt)
		for i := range d.Triangles {
			d.Triangles[i] = Triangle{V1: r.U16(), V2: r.U16(), V3: r.U16()}
		}
	}
	if groups := int(r.U16()); groups > 0 {
		d.MatchGroups = make([][]uint16, 0, min(groups, r.Len()/2))
		for range groups {
			n := int(r.U16())
			if n > r.Len()/2 {
				r.SetErr(fmt.Errorf("%w: match group of %d", stream.ErrShortBuffer, n))
				return
			}
			group := make([]uint16, n)
			for j := range group {
				group[j] = r.U16()
			}
			d.MatchGroups = append(d.MatchGroups, group)
		}
	}
}

// Encode implements nif.Object.
func (d *NiTriShapeData) Encode(_ *nif.Header, w *stream.Writer) {
	nv := int(d.NumVertices)
	w.I32(d.GroupID)
	w.U16(d.NumVertices)
	w.U8(d.KeepFlags)
	w.U8(d.CompressFlags)
	w.Bool(d.HasVertices)
	if d.HasVertices && checkLen(w, "vertices", nv, len(d.Vertices)) {
		writeVec3s(w, d.Vertices)
	}
	w.U16(d.VectorFlags)
	w.Bool(d.HasNormals)
	if d.HasNormals && checkLen(w, "normals", nv, len(d.Normals)) {
		writeVec3s(w, d.Normals)
	}
	if d.hasTangents() && checkLen(w, "tangents", nv, len(d.Tangents)) && checkLen(w, "bitangents", nv, len(d.Bitangents)) {
		writeVec3s(w, d.Tangents)
		writeVec3s(w, d.Bitangents)
	}
	writeVec3(w, d.Center)
	w.F32(d.Radius)
	w.Bool(d.HasColors)
	if d.HasColors && checkLen(w, "colors", nv, len(d.Colors)) {
		for _, c := range d.Colors {
			w.F32(c.R)
			w.F32(c.G)
			w.F32(c.B)
			w.F32(c.A)
		}
	}
	if checkLen(w, "uv sets", d.numUVSets(), len(d.UVSets)) {
		for _, set := range d.UVSets {
			if !checkLen(w, "uv set", nv, len(set)) {
				return
			}
			for _, uv := range set {
				w.F32(uv.U)
				w.F32(uv.V)
			}
		}
	}
	w.U16(d.ConsistencyFlags)
	writeRef(w, d.AdditionalData)

	w.U16(d.NumTriangles)
	w.U32(d.NumTrianglePoints)
	w.Bool(d.HasTriangles)
	if d.HasTriangles && checkLen(w, "triangles", int(d.NumTriangles), len(d.Triangles)) {
		for _, t := range d.Triangles {
			w.U16(t.V1)
			w.U16(t.V2)
			w.U16(t.V3)
		}
	}
	if len(d.MatchGroups) > math.MaxUint16 {
		w.SetErr(fmt.Errorf("%w: %d match groups", stream.ErrMalformed, len(d.MatchGroups)))
		return
	}
	w.U16(uint16(len(d.MatchGroups)))
	for _, group := range d.MatchGroups {
		if len(group) > math.MaxUint16 {
			w.SetErr(fmt.Errorf("%w: match group of %d", stream.ErrMalformed, len(group)))
			return
		}
		w.U16(uint16(len(group)))
		for _, v := range group {
			w.U16(v)
		}
	}
}
