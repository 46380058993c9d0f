package prop

import (
	"errors"
	"testing"
	"time"

	"github.com/alist-org/arkit/pkg/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type accessor func(Variant) (any, error)

var accessors = map[Tag]accessor{
	TagBool:     func(v Variant) (any, error) { return v.AsBool() },
	TagString:   func(v Variant) (any, error) { return v.AsString() },
	TagUint8:    func(v Variant) (any, error) { return v.AsUint8() },
	TagUint16:   func(v Variant) (any, error) { return v.AsUint16() },
	TagUint32:   func(v Variant) (any, error) { return v.AsUint32() },
	TagUint64:   func(v Variant) (any, error) { return v.AsUint64() },
	TagInt8:     func(v Variant) (any, error) { return v.AsInt8() },
	TagInt16:    func(v Variant) (any, error) { return v.AsInt16() },
	TagInt32:    func(v Variant) (any, error) { return v.AsInt32() },
	TagInt64:    func(v Variant) (any, error) { return v.AsInt64() },
	TagFileTime: func(v Variant) (any, error) { return v.AsFileTime() },
}

func TestAccessorsMatchOnlyTheirTag(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 30, 0, 500, time.UTC)
	cases := []struct {
		v    Variant
		want any
	}{
		{Bool(true), true},
		{String("a/b.txt"), "a/b.txt"},
		{Uint8(255), uint8(255)},
		{Uint16(65535), uint16(65535)},
		{Uint32(1 << 31), uint32(1 << 31)},
		{Uint64(1 << 63), uint64(1 << 63)},
		{Int8(-128), int8(-128)},
		{Int16(-300), int16(-300)},
		{Int32(-70000), int32(-70000)},
		{Int64(-1 << 62), int64(-1 << 62)},
		{FileTime(ts), ts},
	}
	for _, c := range cases {
		t.Run(c.v.Tag().String(), func(t *testing.T) {
			for tag, get := range accessors {
				got, err := get(c.v)
				if tag == c.v.Tag() {
					require.NoError(t, err)
					assert.Equal(t, c.want, got)
					continue
				}
				require.Error(t, err, "accessor %s", tag)
				assert.True(t, errors.Is(err, errs.InvalidVariantType))
			}
		})
	}
}

func TestEmptyFailsEveryAccessor(t *testing.T) {
	v := Empty()
	assert.True(t, v.IsEmpty())
	assert.Equal(t, "", v.String())
	for tag, get := range accessors {
		_, err := get(v)
		assert.ErrorIs(t, err, errs.InvalidVariantType, tag.String())
	}
}

func TestString(t *testing.T) {
	assert.Equal(t, "true", Bool(true).String())
	assert.Equal(t, "false", Bool(false).String())
	assert.Equal(t, "18446744073709551615", Uint64(^uint64(0)).String())
	assert.Equal(t, "-42", Int32(-42).String())
	loc := time.FixedZone("X", 3600)
	assert.Equal(t, "2020-01-02T02:04:05Z", FileTime(time.Date(2020, 1, 2, 3, 4, 5, 0, loc)).String())
}

func TestEqualNeverCoerces(t *testing.T) {
	assert.True(t, Uint32(7).Equal(Uint32(7)))
	assert.False(t, Uint32(7).Equal(Int64(7)))
	assert.False(t, Uint32(7).Equal(Uint64(7)))
	assert.False(t, String("7").Equal(Uint32(7)))
	assert.True(t, Empty().Equal(Variant{}))
	ts := time.Now()
	assert.True(t, FileTime(ts).Equal(FileTime(ts.In(time.UTC))))
}

func TestFromNative(t *testing.T) {
	v, err := FromNative(uint32(10))
	require.NoError(t, err)
	assert.Equal(t, TagUint32, v.Tag())

	v, err = FromNative(nil)
	require.NoError(t, err)
	assert.True(t, v.IsEmpty())

	v, err = FromNative(time.Time{})
	require.NoError(t, err)
	assert.True(t, v.IsEmpty(), "zero time is absent, not a sentinel")

	_, err = FromNative(3.14)
	assert.ErrorIs(t, err, errs.InvalidVariantType)
	assert.True(t, MustNative(3.14).IsEmpty())
}

func TestUintWidening(t *testing.T) {
	n, ok := Uint16(9).Uint()
	assert.True(t, ok)
	assert.Equal(t, uint64(9), n)
	_, ok = Int16(9).Uint()
	assert.False(t, ok)
}

func TestParsePropID(t *testing.T) {
	id, err := ParsePropID("packsize")
	require.NoError(t, err)
	assert.Equal(t, PackSize, id)
	assert.Equal(t, "PackSize", id.String())

	_, err = ParsePropID("nope")
	assert.ErrorIs(t, err, errs.UnsupportedOperation)
}
