package errs

import (
	"errors"
	"fmt"
	"testing"

	pkgerrors "github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorMatchesKindSentinel(t *testing.T) {
	err := New(KindWrongPassword, "open", "header is encrypted").WithArchive("a.7z")
	assert.True(t, errors.Is(err, WrongPassword))
	assert.False(t, errors.Is(err, InvalidIndex))
	assert.Equal(t, KindWrongPassword, KindOf(err))

	wrapped := pkgerrors.WithMessage(err, "reading backup")
	assert.True(t, errors.Is(wrapped, WrongPassword))
	assert.Equal(t, KindWrongPassword, KindOf(wrapped))
	assert.Contains(t, wrapped.Error(), "a.7z")
}

func TestErrorFormatting(t *testing.T) {
	err := New(KindEngineFailure, "extract", "crc mismatch").WithItem(3, "dir/file.txt")
	err.Status = -6
	err.Err = fmt.Errorf("checksum error")
	msg := err.Error()
	assert.Contains(t, msg, "extract: ")
	assert.Contains(t, msg, "dir/file.txt")
	assert.Contains(t, msg, "[status -6]")
	assert.Contains(t, msg, "checksum error")

	anon := New(KindInvalidIndex, "item", "").WithItem(7, "")
	assert.Contains(t, anon.Error(), "item 7")
}

func TestPartialFailure(t *testing.T) {
	p := &PartialFailure{
		Op:    "extract",
		Total: 5,
		Failures: []ItemFailure{
			{Index: 1, Path: "a", Err: New(KindWrongPassword, "extract", "")},
			{Index: 2, Path: "b", Err: New(KindEngineFailure, "extract", "")},
		},
	}
	var err error = p
	assert.True(t, errors.Is(err, ExtractionPartialFailure))
	assert.True(t, errors.Is(err, WrongPassword))
	assert.True(t, errors.Is(err, EngineFailure))
	assert.False(t, errors.Is(err, UnsafeArchivePath))
	assert.Equal(t, KindExtractionPartialFailure, KindOf(err))
	assert.Contains(t, err.Error(), "2 of 5 items failed")

	var got *PartialFailure
	require.True(t, errors.As(pkgerrors.Wrap(err, "ctx"), &got))
	assert.Len(t, got.Failures, 2)
}

func TestKindStrings(t *testing.T) {
	for k := KindUnknown; k <= KindEngineFailure; k++ {
		assert.NotEmpty(t, k.String())
		assert.Equal(t, k.String(), k.Sentinel().Error())
	}
	assert.Equal(t, "unknown", Kind(99).String())
}
