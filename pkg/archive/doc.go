// Package archive is the typed front end of the codec engine.
//
// A Library is loaded once and shared. Readers list, extract and test
// existing archives; Writers create archives and edit existing ones through
// a pending edit set that is committed atomically by ApplyChanges. Every
// operation is configured by an immutable Handler carrying the format,
// password, callbacks and extraction policy.
//
// Readers and Writers are not safe for concurrent use. Handlers, format
// descriptors and property variants are immutable and may be shared.
package archive
