// Package format is the static catalog of archive formats the library knows
// about, together with the signature and extension based detector.
//
// Descriptors are created once at package initialisation and never mutated;
// they are safe to share between goroutines.
package format

import (
	"strings"
)

// Feature is a capability bit of a writable format.
type Feature uint32

const (
	MultipleFiles Feature = 1 << iota
	SolidArchive
	CompressionLevel
	Encryption
	HeaderEncryption
	MultipleMethods
)

// Features is a set of Feature bits.
type Features = Feature

var featureNames = []struct {
	f    Feature
	name string
}{
	{MultipleFiles, "MultipleFiles"},
	{SolidArchive, "SolidArchive"},
	{CompressionLevel, "CompressionLevel"},
	{Encryption, "Encryption"},
	{HeaderEncryption, "HeaderEncryption"},
	{MultipleMethods, "MultipleMethods"},
}

// Has reports whether every bit of f is set.
func (fs Feature) Has(f Feature) bool {
	return fs&f == f
}

func (fs Feature) String() string {
	if fs == 0 {
		return "None"
	}
	var names []string
	for _, n := range featureNames {
		if fs.Has(n.f) {
			names = append(names, n.name)
		}
	}
	return strings.Join(names, "|")
}

// Signature is a magic byte pattern expected at Offset.
type Signature struct {
	Offset int64
	Magic  []byte
}

func (s Signature) end() int64 {
	return s.Offset + int64(len(s.Magic))
}

// ID uniquely identifies a format within the catalog.
type ID uint8

// InFormat describes a readable format.
type InFormat struct {
	ID         ID
	Name       string
	Extension  string
	Signatures []Signature
}

func (f *InFormat) String() string {
	if f == nil {
		return "<nil>"
	}
	return f.Name
}

// IsAuto reports whether f is the "detect" pseudo-format.
func (f *InFormat) IsAuto() bool {
	return f == nil || f.ID == Auto.ID
}

// Writable returns the writable descriptor of f, if the format supports
// writing.
func (f *InFormat) Writable() (*InOutFormat, bool) {
	if f == nil {
		return nil, false
	}
	out, ok := outByID[f.ID]
	return out, ok
}

// InOutFormat describes a format that can be read and written.
type InOutFormat struct {
	InFormat
	DefaultMethod Method
	Methods       []Method
	Features      Features
}

// Has reports whether the format supports the feature.
func (f *InOutFormat) Has(feature Feature) bool {
	return f.Features.Has(feature)
}

// SupportsMethod reports whether m can be used to write the format.
func (f *InOutFormat) SupportsMethod(m Method) bool {
	for _, x := range f.Methods {
		if x == m {
			return true
		}
	}
	return false
}

// In returns the read side descriptor.
func (f *InOutFormat) In() *InFormat {
	return &f.InFormat
}
