package node

import (
	"fmt"

	"github.com/meigma/nif"
	"github.com/meigma/nif/stream"
)

// Ref is the index of another block in the same container.
type Ref int32

// NoRef marks an absent block reference.
const NoRef Ref = -1

// StringRef is an index into the header string table.
type StringRef int32

// NoString marks an absent string.
const NoString StringRef = -1

// Resolve returns the referenced string.
func (s StringRef) Resolve(h *nif.Header) (string, bool) {
	if s == NoString {
		return "", false
	}
	return h.String(int(s))
}

// Vec3 is a 3D vector.
type Vec3 struct {
	X, Y, Z float32
}

// Matrix33 is a row-major 3x3 rotation matrix.
type Matrix33 [3][3]float32

// Identity returns the identity rotation.
func Identity() Matrix33 {
	return Matrix33{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
}

// Color4 is an RGBA color.
type Color4 struct {
	R, G, B, A float32
}

// TexCoord is a UV coordinate.
type TexCoord struct {
	U, V float32
}

// Triangle holds three vertex indices.
type Triangle struct {
	V1, V2, V3 uint16
}

func readRef(r *stream.Reader) Ref {
	return Ref(r.I32())
}

func writeRef(w *stream.Writer, ref Ref) {
	w.I32(int32(ref))
}

func readRefs(r *stream.Reader) []Ref {
	n := r.Count(4)
	if n == 0 {
		return nil
	}
	refs := make([]Ref, n)
	for i := range refs {
		refs[i] = readRef(r)
	}
	return refs
}

func writeRefs(w *stream.Writer, refs []Ref) {
	w.Count(len(refs))
	for _, ref := range refs {
		writeRef(w, ref)
	}
}

// readString reads a string reference and checks it against the header.
func readString(h *nif.Header, r *stream.Reader) StringRef {
	s := StringRef(r.I32())
	if r.Err() == nil && s != NoString {
		if _, ok := h.String(int(s)); !ok {
			r.SetErr(fmt.Errorf("%w: string index %d out of range", stream.ErrMalformed, s))
		}
	}
	return s
}

func writeString(w *stream.Writer, s StringRef) {
	w.I32(int32(s))
}

func readVec3(r *stream.Reader) Vec3 {
	return Vec3{X: r.F32(), Y: r.F32(), Z: r.F32()}
}

func writeVec3(w *stream.Writer, v Vec3) {
	w.F32(v.X)
	w.F32(v.Y)
	w.F32(v.Z)
}

func readVec3s(r *stream.Reader, n int) []Vec3 {
	if n > r.Len()/12 {
		r.SetErr(fmt.Errorf("%w: %d vectors", stream.ErrShortBuffer, n))
		return nil
	}
	if n == 0 {
		return nil
	}
	vs := make([]Vec3, n)
	for i := range vs {
		vs[i] = readVec3(r)
	}
	return vs
}

func writeVec3s(w *stream.Writer, vs []Vec3) {
	for _, v := range vs {
		writeVec3(w, v)
	}
}

func readMatrix33(r *stream.Reader) Matrix33 {
	var m Matrix33
	for i := range m {
		for j := range m[i] {
			m[i][j] = r.F32()
		}
	}
	return m
}

func writeMatrix33(w *stream.Writer, m Matrix33) {
	for i := range m {
		for j := range m[i] {
			w.F32(m[i][j])
		}
	}
}

// checkLen reports a mismatch between a declared count and a slice length.
func checkLen(w *stream.Writer, field string, want, got int) bool {
	if want != got {
		w.SetErr(fmt.Errorf("%w: %s has %d elements, count says %d", stream.ErrMalformed, field, got, want))
		return false
	}
	return true
}
