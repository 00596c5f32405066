// Package ir defines the structured values carried as contract call
// arguments and return values.
//
// Values are a closed set: Null, String, Int, Bool, Array and Object. Floats
// are rejected at every boundary so that an argument map always has exactly
// one canonical encoding (RFC 8785 key order, NFC strings, no HTML escaping),
// which is what the sandbox hashes into transaction and code identities.
package ir
