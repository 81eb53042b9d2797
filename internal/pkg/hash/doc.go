// Package hash provides the keyed one-way transform used to store one-time
// passwords.
//
// There is deliberately no Verify method: matching happens through an
// equality-constrained lookup in the persistence layer, so application code
// never compares secret strings itself.
package hash
