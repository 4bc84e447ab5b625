// Package patterns holds the installed pattern set behind an atomic snapshot.
//
// Readers never take a lock: they load the current snapshot pointer and see
// either the previous or the replacement set in full.
package patterns
