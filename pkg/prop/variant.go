// Package prop models archive metadata values as a closed, tagged Variant.
//
// The codec engine reports properties as dynamically-typed values. FromNative
// is the single place where those values become a Variant; everything above
// the engine boundary works with typed accessors that fail with
// errs.InvalidVariantType instead of coercing.
package prop

import (
	"strconv"
	"time"

	"github.com/alist-org/arkit/pkg/errs"
)

// Tag identifies the type held by a Variant.
type Tag uint8

const (
	TagEmpty Tag = iota
	TagBool
	TagString
	TagUint8
	TagUint16
	TagUint32
	TagUint64
	TagInt8
	TagInt16
	TagInt32
	TagInt64
	TagFileTime
)

var tagNames = [...]string{
	TagEmpty:    "Empty",
	TagBool:     "Bool",
	TagString:   "String",
	TagUint8:    "UInt8",
	TagUint16:   "UInt16",
	TagUint32:   "UInt32",
	TagUint64:   "UInt64",
	TagInt8:     "Int8",
	TagInt16:    "Int16",
	TagInt32:    "Int32",
	TagInt64:    "Int64",
	TagFileTime: "FileTime",
}

func (t Tag) String() string {
	if int(t) < len(tagNames) {
		return tagNames[t]
	}
	return "Tag(" + strconv.Itoa(int(t)) + ")"
}

// Variant is an immutable metadata value. The zero Variant is Empty.
type Variant struct {
	tag Tag
	u   uint64
	i   int64
	s   string
	t   time.Time
}

func Empty() Variant { return Variant{} }
func Bool(v bool) Variant { return Variant{tag: TagBool, u: b2u(v)} }
func String(v string) Variant { return Variant{tag: TagString, s: v} }
func Uint8(v uint8) Variant { return Variant{tag: TagUint8, u: uint64(v)} }
func Uint16(v uint16) Variant { return Variant{tag: TagUint16, u: uint64(v)} }
func Uint32(v uint32) Variant { return Variant{tag: TagUint32, u: uint64(v)} }
func Uint64(v uint64) Variant { return Variant{tag: TagUint64, u: v} }
func Int8(v int8) Variant { return Variant{tag: TagInt8, i: int64(v)} }
func Int16(v int16) Variant { return Variant{tag: TagInt16, i: int64(v)} }
func Int32(v int32) Variant { return Variant{tag: TagInt32, i: int64(v)} }
func Int64(v int64) Variant { return Variant{tag: TagInt64, i: v} }
func FileTime(v time.Time) Variant { return Variant{tag: TagFileTime, t: v} }

func b2u(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

// FromNative converts a value reported by the codec engine. nil and a zero
// time.Time become Empty; unsupported native types fail with
// errs.InvalidVariantType.
func FromNative(v any) (Variant, error) {
	switch x := v.(type) {
	case nil:
		return Empty(), nil
	case Variant:
		return x, nil
	case bool:
		return Bool(x), nil
	case string:
		return String(x), nil
	case uint8:
		return Uint8(x), nil
	case uint16:
		return Uint16(x), nil
	case uint32:
		return Uint32(x), nil
	case uint64:
		return Uint64(x), nil
	case int8:
		return Int8(x), nil
	case int16:
		return Int16(x), nil
	case int32:
		return Int32(x), nil
	case int64:
		return Int64(x), nil
	case time.Time:
		if x.IsZero() {
			return Empty(), nil
		}
		return FileTime(x), nil
	case *time.Time:
		if x == nil || x.IsZero() {
			return Empty(), nil
		}
		return FileTime(*x), nil
	default:
		return Empty(), errs.Newf(errs.KindInvalidVariantType, "convert", "unsupported native type %T", v)
	}
}

// MustNative is FromNative for values known to be supported; unsupported
// values yield Empty.
func MustNative(v any) Variant {
	ret, err := FromNative(v)
	if err != nil {
		return Empty()
	}
	return ret
}

func (v Variant) Tag() Tag { return v.tag }
func (v Variant) IsEmpty() bool { return v.tag == TagEmpty }

func (v Variant) mismatch(want Tag) error {
	return errs.Newf(errs.KindInvalidVariantType, "variant", "requested %s, variant holds %s", want, v.tag)
}

func (v Variant) AsBool() (bool, error) {
	if v.tag != TagBool {
		return false, v.mismatch(TagBool)
	}
	return v.u == 1, nil
}

func (v Variant) AsString() (string, error) {
	if v.tag != TagString {
		return "", v.mismatch(TagString)
	}
	return v.s, nil
}

func (v Variant) AsUint8() (uint8, error) {
	if v.tag != TagUint8 {
		return 0, v.mismatch(TagUint8)
	}
	return uint8(v.u), nil
}

func (v Variant) AsUint16() (uint16, error) {
	if v.tag != TagUint16 {
		return 0, v.mismatch(TagUint16)
	}
	return uint16(v.u), nil
}

func (v Variant) AsUint32() (uint32, error) {
	if v.tag != TagUint32 {
		return 0, v.mismatch(TagUint32)
	}
	return uint32(v.u), nil
}

func (v Variant) AsUint64() (uint64, error) {
	if v.tag != TagUint64 {
		return 0, v.mismatch(TagUint64)
	}
	return v.u, nil
}

func (v Variant) AsInt8() (int8, error) {
	if v.tag != TagInt8 {
		return 0, v.mismatch(TagInt8)
	}
	return int8(v.i), nil
}

func (v Variant) AsInt16() (int16, error) {
	if v.tag != TagInt16 {
		return 0, v.mismatch(TagInt16)
	}
	return int16(v.i), nil
}

func (v Variant) AsInt32() (int32, error) {
	if v.tag != TagInt32 {
		return 0, v.mismatch(TagInt32)
	}
	return int32(v.i), nil
}

func (v Variant) AsInt64() (int64, error) {
	if v.tag != TagInt64 {
		return 0, v.mismatch(TagInt64)
	}
	return v.i, nil
}

func (v Variant) AsFileTime() (time.Time, error) {
	if v.tag != TagFileTime {
		return time.Time{}, v.mismatch(TagFileTime)
	}
	return v.t, nil
}

// String renders the value without locale: booleans as true/false, integers
// in decimal, timestamps as RFC 3339 in UTC and Empty as "".
func (v Variant) String() string {
	switch v.tag {
	case TagBool:
		return strconv.FormatBool(v.u == 1)
	case TagString:
		return v.s
	case TagUint8, TagUint16, TagUint32, TagUint64:
		return strconv.FormatUint(v.u, 10)
	case TagInt8, TagInt16, TagInt32, TagInt64:
		return strconv.FormatInt(v.i, 10)
	case TagFileTime:
		return v.t.UTC().Format(time.RFC3339Nano)
	default:
		return ""
	}
}

// Equal reports whether both variants hold the same tag and value. Variants
// of different tags are never equal.
func (v Variant) Equal(other Variant) bool {
	if v.tag != other.tag {
		return false
	}
	switch v.tag {
	case TagEmpty:
		return true
	case TagString:
		return v.s == other.s
	case TagFileTime:
		return v.t.Equal(other.t)
	case TagInt8, TagInt16, TagInt32, TagInt64:
		return v.i == other.i
	default:
		return v.u == other.u
	}
}

// Uint returns the value of any unsigned tag widened to uint64. It is a
// convenience for size-like properties whose width differs between formats;
// ok is false for every other tag.
func (v Variant) Uint() (n uint64, ok bool) {
	switch v.tag {
	case TagUint8, TagUint16, TagUint32, TagUint64:
		return v.u, true
	}
	return 0, false
}
