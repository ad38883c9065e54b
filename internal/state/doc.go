// Package state defines the immutable mixer snapshot and the parser that
// builds one from the raw vMix XML state document.
//
// Inputs are identified by the stable key vMix assigns to each input, falling
// back to the input number when no key is present. References elsewhere in the
// document (active, preview, overlays) use input numbers and are resolved to
// stable identifiers during parsing; references to inputs that no longer
// exist are normalized to empty rather than kept dangling.
package state
