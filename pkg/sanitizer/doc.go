// Package sanitizer provides input normalization for marketplace data.
//
// All normalization functions are idempotent. Invalid input degrades to an
// empty string rather than an error; validation decides whether empty is
// acceptable.
//
// Normalization includes:
//   - Phone numbers: convert to E.164 format (+[country][number])
//   - Free text: collapse whitespace, trim leading/trailing spaces
//   - Cities and categories: lowercase, strip non-letter characters
//   - Slices: remove duplicates and empty values after normalization
package sanitizer
