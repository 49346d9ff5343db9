// Package codec owns fixed binary layouts and their JSON projection.
//
// Ownership boundary:
// - little-endian integer and fixed-byte primitives
// - ordered struct and length-prefixed vector composition
// - tagged unions with one-byte discriminants
// - the Record/Variant dynamic value model shared by typed bindings
package codec
