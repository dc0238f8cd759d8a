// Package sanitizer normalizes caller input before validation and storage.
//
// All functions are idempotent. Listing text is only trimmed: inner whitespace
// and letter case are part of what the landlord typed and are preserved.
// Usernames are trimmed and lowercased so lookups are case-insensitive.
package sanitizer
