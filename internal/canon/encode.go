package canon

import (
	"bytes"
	"encoding/binary"
	"math"
	"reflect"
	"sort"
)

// Encode produces the canonical byte form of v. See the package doc for
// the full equivalence table.
func Encode(v any) (CBytes, error) {
	enc := &encoder{seen: make(map[uintptr]bool)}
	var buf bytes.Buffer
	if err := enc.encode(&buf, reflect.ValueOf(v)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// MustEncode panics on error; useful in tests and for constructing map
// keys from already-validated canonical inputs.
func MustEncode(v any) CBytes {
	b, err := Encode(v)
	if err != nil {
		panic(err)
	}
	return b
}

type encoder struct {
	seen map[uintptr]bool
}

// writeFramed writes a uvarint length prefix followed by b, so that
// concatenated canonical blobs can be unambiguously split back apart by
// anything that cares to (nothing in this package needs to, but sorting
// relies on being able to compare whole frames).
func writeFramed(buf *bytes.Buffer, b []byte) {
	var lenbuf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(lenbuf[:], uint64(len(b)))
	buf.Write(lenbuf[:n])
	buf.Write(b)
}

func frame(b []byte) []byte {
	var out bytes.Buffer
	writeFramed(&out, b)
	return out.Bytes()
}

func (e *encoder) encodeToBytes(v reflect.Value) ([]byte, error) {
	var buf bytes.Buffer
	if err := e.encode(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (e *encoder) encode(buf *bytes.Buffer, v reflect.Value) error {
	if !v.IsValid() {
		buf.WriteByte(tagNil)
		return nil
	}

	// Tagged escape hatch takes priority over everything, including
	// pointer-cycle bookkeeping below: tagged values are expected to be
	// small, acyclic tokens.
	if tg, ok := v.Interface().(Tagged); ok {
		buf.WriteByte(tg.CanonTag())
		writeFramed(buf, tg.CanonPayload())
		return nil
	}

	switch v.Kind() {
	case reflect.Invalid:
		buf.WriteByte(tagNil)
		return nil

	case reflect.Bool:
		buf.WriteByte(tagBool)
		if v.Bool() {
			buf.WriteByte(1)
		} else {
			buf.WriteByte(0)
		}
		return nil

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		buf.WriteByte(tagInt)
		var b [8]byte
		binary.BigEndian.PutUint64(b[:], uint64(v.Int()))
		buf.Write(b[:])
		return nil

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		buf.WriteByte(tagUint)
		var b [8]byte
		binary.BigEndian.PutUint64(b[:], v.Uint())
		buf.Write(b[:])
		return nil

	case reflect.Float32:
		buf.WriteByte(tagFloat32)
		var b [4]byte
		binary.BigEndian.PutUint32(b[:], math.Float32bits(float32(v.Float())))
		buf.Write(b[:])
		return nil

	case reflect.Float64:
		buf.WriteByte(tagFloat64)
		var b [8]byte
		binary.BigEndian.PutUint64(b[:], math.Float64bits(v.Float()))
		buf.Write(b[:])
		return nil

	case reflect.String:
		buf.WriteByte(tagString)
		writeFramed(buf, []byte(v.String()))
		return nil

	case reflect.Interface:
		if v.IsNil() {
			buf.WriteByte(tagNil)
			return nil
		}
		return e.encode(buf, v.Elem())

	case reflect.Ptr:
		if v.IsNil() {
			buf.WriteByte(tagNil)
			return nil
		}
		return e.withCycleGuard(v.Pointer(), func() error {
			return e.encode(buf, v.Elem())
		})

	case reflect.Slice:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			buf.WriteByte(tagBytes)
			writeFramed(buf, v.Bytes())
			return nil
		}
		if v.IsNil() {
			buf.WriteByte(tagNil)
			return nil
		}
		return e.withCycleGuard(v.Pointer(), func() error {
			return e.encodeSequence(buf, v)
		})

	case reflect.Array:
		return e.encodeSequence(buf, v)

	case reflect.Map:
		if v.IsNil() {
			buf.WriteByte(tagNil)
			return nil
		}
		return e.withCycleGuard(v.Pointer(), func() error {
			return e.encodeReflectMap(buf, v)
		})

	case reflect.Struct:
		return e.encodeStruct(buf, v)

	case reflect.Func:
		if v.IsNil() {
			buf.WriteByte(tagNil)
			return nil
		}
		return ErrNotCanonicalizable

	default:
		return ErrNotCanonicalizable
	}
}

// withCycleGuard detects reference cycles by tracking pointers currently
// on the recursion stack (pushed before descending, popped after), so
// shared-but-acyclic substructure (a diamond, not a loop) is not
// mistakenly rejected.
func (e *encoder) withCycleGuard(ptr uintptr, fn func() error) error {
	if e.seen[ptr] {
		return ErrCycle
	}
	e.seen[ptr] = true
	defer delete(e.seen, ptr)
	return fn()
}

func (e *encoder) encodeSequence(buf *bytes.Buffer, v reflect.Value) error {
	buf.WriteByte(tagSlice)
	n := v.Len()
	var countBuf [binary.MaxVarintLen64]byte
	cn := binary.PutUvarint(countBuf[:], uint64(n))
	buf.Write(countBuf[:cn])
	for i := 0; i < n; i++ {
		elemBytes, err := e.encodeToBytes(v.Index(i))
		if err != nil {
			return err
		}
		writeFramed(buf, elemBytes)
	}
	return nil
}

func (e *encoder) encodeSortedFrames(buf *bytes.Buffer, tag byte, frames [][]byte) {
	sort.Slice(frames, func(i, j int) bool { return bytes.Compare(frames[i], frames[j]) < 0 })
	buf.WriteByte(tag)
	var countBuf [binary.MaxVarintLen64]byte
	cn := binary.PutUvarint(countBuf[:], uint64(len(frames)))
	buf.Write(countBuf[:cn])
	for _, f := range frames {
		buf.Write(f)
	}
}

// encodeReflectMap handles both ordinary maps (canonicalized as a sorted
// mapping) and set-shaped maps (map[K]struct{}, map[K]bool), which
// canonicalize as a sorted set of elements with duplicates collapsed.
func (e *encoder) encodeReflectMap(buf *bytes.Buffer, v reflect.Value) error {
	elemKind := v.Type().Elem().Kind()
	isSetShaped := v.Type().Elem() == reflect.TypeOf(struct{}{}) || elemKind == reflect.Bool

	iter := v.MapRange()
	if isSetShaped {
		var frames [][]byte
		for iter.Next() {
			kb, err := e.encodeToBytes(iter.Key())
			if err != nil {
				return err
			}
			frames = append(frames, frame(kb))
		}
		e.encodeSortedFrames(buf, tagSet, frames)
		return nil
	}

	var frames [][]byte
	for iter.Next() {
		kb, err := e.encodeToBytes(iter.Key())
		if err != nil {
			return err
		}
		vb, err := e.encodeToBytes(iter.Value())
		if err != nil {
			return err
		}
		var pair bytes.Buffer
		writeFramed(&pair, kb)
		writeFramed(&pair, vb)
		frames = append(frames, pair.Bytes())
	}
	e.encodeSortedFrames(buf, tagMap, frames)
	return nil
}

func (e *encoder) encodeCanonicalMapping(buf *bytes.Buffer, tag byte, m map[string]any) error {
	var frames [][]byte
	for k, val := range m {
		kb, err := e.encodeToBytes(reflect.ValueOf(k))
		if err != nil {
			return err
		}
		vb, err := e.encodeToBytes(reflect.ValueOf(val))
		if err != nil {
			return err
		}
		var pair bytes.Buffer
		writeFramed(&pair, kb)
		writeFramed(&pair, vb)
		frames = append(frames, pair.Bytes())
	}
	e.encodeSortedFrames(buf, tag, frames)
	return nil
}

// encodeStruct canonicalizes a user-defined record: the Canonicalizable,
// Set, Mapping, FuncFingerprint and Buffer capabilities are checked first
// (in that order) so a struct can opt into any of those richer forms;
// otherwise it falls back to reflecting over exported fields, which in Go
// already excludes methods (they are not struct fields) and any
// class-static-equivalent state, leaving only data members.
func (e *encoder) encodeStruct(buf *bytes.Buffer, v reflect.Value) error {
	if iface, ok := addrInterface(v); ok {
		if c, ok := iface.(Canonicalizable); ok {
			return e.encodeRecord(buf, v.Type(), c.CanonicalFields())
		}
		if s, ok := iface.(Set); ok {
			return e.encodeTaggedSet(buf, s.CanonicalElements())
		}
		if m, ok := iface.(Mapping); ok {
			return e.encodeTaggedMapping(buf, m.CanonicalPairs())
		}
		if ff, ok := iface.(FuncFingerprint); ok {
			return e.encodeFuncFingerprint(buf, ff)
		}
		if bf, ok := iface.(Buffer); ok {
			return e.encodeBuffer(buf, bf)
		}
	}

	fields := make(map[string]any, v.NumField())
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		fields[f.Name] = v.Field(i).Interface()
	}
	return e.encodeRecord(buf, t, fields)
}

// addrInterface returns v (or, if v is addressable, &v) as an any, so that
// capability interfaces implemented on pointer receivers are still found
// for addressable struct values.
func addrInterface(v reflect.Value) (any, bool) {
	if v.CanInterface() {
		if v.CanAddr() {
			return v.Addr().Interface(), true
		}
		return v.Interface(), true
	}
	return nil, false
}

func (e *encoder) encodeRecord(buf *bytes.Buffer, t reflect.Type, fields map[string]any) error {
	buf.WriteByte(tagRecord)
	typeTag := t.PkgPath() + "." + t.Name()
	writeFramed(buf, []byte(typeTag))
	return e.encodeCanonicalMapping(buf, tagMap, fields)
}

func (e *encoder) encodeTaggedSet(buf *bytes.Buffer, elems []any) error {
	var frames [][]byte
	for _, el := range elems {
		b, err := e.encodeToBytes(reflect.ValueOf(el))
		if err != nil {
			return err
		}
		frames = append(frames, frame(b))
	}
	e.encodeSortedFrames(buf, tagSet, frames)
	return nil
}

func (e *encoder) encodeTaggedMapping(buf *bytes.Buffer, pairs map[any]any) error {
	var frames [][]byte
	for k, val := range pairs {
		kb, err := e.encodeToBytes(reflect.ValueOf(k))
		if err != nil {
			return err
		}
		vb, err := e.encodeToBytes(reflect.ValueOf(val))
		if err != nil {
			return err
		}
		var pair bytes.Buffer
		writeFramed(&pair, kb)
		writeFramed(&pair, vb)
		frames = append(frames, pair.Bytes())
	}
	e.encodeSortedFrames(buf, tagMap, frames)
	return nil
}

func (e *encoder) encodeFuncFingerprint(buf *bytes.Buffer, ff FuncFingerprint) error {
	name, source := ff.FuncFingerprint()
	buf.WriteByte(tagFunc)
	writeFramed(buf, []byte(name))
	sum := sha256Sum(source)
	buf.Write(sum[:])
	return nil
}

func (e *encoder) encodeBuffer(buf *bytes.Buffer, bf Buffer) error {
	buf.WriteByte(tagBuffer)
	shapeBytes, err := e.encodeToBytes(reflect.ValueOf(bf.Shape()))
	if err != nil {
		return err
	}
	writeFramed(buf, shapeBytes)
	writeFramed(buf, []byte(bf.ElemType()))
	stridesBytes, err := e.encodeToBytes(reflect.ValueOf(bf.Strides()))
	if err != nil {
		return err
	}
	writeFramed(buf, stridesBytes)
	writeFramed(buf, bf.Bytes())
	return nil
}
