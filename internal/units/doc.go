// Package units converts human amounts ("10 N", "5 Tgas") into the base
// integer units the network works with.
//
// Balances are 256-bit unsigned yocto amounts (1 N = 10^24 yocto). Gas is a
// uint64 count of base gas units (1 Tgas = 10^12 gas).
package units
