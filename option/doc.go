// Package option implements the CLI surface from spec.md §6 and §4.14: a
// typed option parser recognizing short (-x), long (--name), grouped
// shorts (-abc), inline and separate values, a -- terminator, countable
// flags, data-unit sized values (B/K/M/G/T/P/E), per-option validators,
// and help-flag detection.
package option
