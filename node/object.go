package node

import (
	"github.com/meigma/nif"
	"github.com/meigma/nif/stream"
)

// ObjectNET holds the fields shared by every named scene object.
type ObjectNET struct {
	Name       StringRef
	ExtraData  []Ref
	Controller Ref
}

func (o *ObjectNET) decode(h *nif.Header, r *stream.Reader) {
	o.Name = readString(h, r)
	o.ExtraData = readRefs(r)
	o.Controller = readRef(r)
}

func (o *ObjectNET) encode(w *stream.Writer) {
	writeString(w, o.Name)
	writeRefs(w, o.ExtraData)
	writeRef(w, o.Controller)
}

// AVObject holds the transform shared by every object placed in the scene.
//
// Flags are 32 bits wide for BS versions above 26 and 16 bits otherwise.
// Properties are only present for BS versions up to 34.
type AVObject struct {
	ObjectNET
	Flags       uint32
	Translation Vec3
	Rotation    Matrix33
	Scale       float32
	Properties  []Ref
	Collision   Ref
}

func newAVObject() AVObject {
	return AVObject{
		ObjectNET: ObjectNET{Name: NoString, Controller: NoRef},
		Rotation:  Identity(),
		Scale:     1,
		Collision: NoRef,
	}
}

func wideFlags(h *nif.Header) bool {
	return h.BSVersion > 26
}

func hasProperties(h *nif.Header) bool {
	return h.BSVersion <= 34
}

func (o *AVObject) decode(h *nif.Header, r *stream.Reader) {
	o.ObjectNET.decode(h, r)
	if wideFlags(h) {
		o.Flags = r.U32()
	} else {
		o.Flags = uint32(r.U16())
	}
	o.Translation = readVec3(r)
	o.Rotation = readMatrix33(r)
	o.Scale = r.F32()
	if hasProperties(h) {
		o.Properties = readRefs(r)
	}
	o.Collision = readRef(r)
}

func (o *AVObject) encode(h *nif.Header, w *stream.Writer) {
	o.ObjectNET.encode(w)
	if wideFlags(h) {
		w.U32(o.Flags)
	} else {
		w.U16(uint16(o.Flags)) //nolint:gosec // narrow flags for old versions
	}
	writeVec3(w, o.Translation)
	writeMatrix33(w, o.Rotation)
	w.F32(o.Scale)
	if hasProperties(h) {
		writeRefs(w, o.Properties)
	}
	writeRef(w, o.Collision)
}
