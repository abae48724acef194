// Package resolver merges configuration layers into one immutable document.
//
// The first layer is the base: its leaf paths form the schema every resolved
// document must satisfy. Later layers override earlier ones leaf by leaf;
// objects merge recursively while arrays and scalars replace wholesale.
// String values of the form "SECRET:NAME" are substituted from a runtime
// secret source after the merge. Resolution fails with *MissingSecretError
// when a referenced secret is absent and with *IncompleteConfigError when a
// schema path is left undefined. Resolve performs no I/O and is deterministic.
package resolver
