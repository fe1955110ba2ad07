// Package platform resolves a platform-keyed configuration subtree
// (a container shaped like {linux: {...}, unix: {...}, all: {...}}) down to
// the single child that best matches the running host, given a ranked tag
// list such as ["linux", "unix", "all"].
//
// The match is rank-first: the candidate whose tag appears earliest in the
// ranked list wins, regardless of container insertion order. A tie (two
// tags of the same tier, such as the synonyms "unix" and "posix", both
// present) breaks on the lexicographically smallest tag name.
package platform
