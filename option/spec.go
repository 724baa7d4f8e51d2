package option

import (
	"errors"
	"fmt"
	"regexp"
)

// longNamePattern matches spec.md §6's long-name grammar:
// [0-9A-Za-z][-._0-9A-Za-z]*
var longNamePattern = regexp.MustCompile(`^[0-9A-Za-z][-._0-9A-Za-z]*$`)

func isShortNameByte(c byte) bool {
	return c >= '0' && c <= '9' || c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z'
}

// specConfig accumulates Spec fields as SpecOptions are applied.
type specConfig struct {
	short     byte
	long      string
	hasValue  bool
	multi     bool
	count     bool
	help      bool
	dataSize  bool
	validate  func(string) error
}

// SpecOption configures one registered option via Parser.Add.
type SpecOption interface {
	applySpec(*specConfig) error
}

type specOptionFunc func(*specConfig) error

func (f specOptionFunc) applySpec(c *specConfig) error { return f(c) }

// WithShort registers the option's short name, e.g. 'x' for -x.
func WithShort(c byte) SpecOption {
	return specOptionFunc(func(cfg *specConfig) error {
		if !isShortNameByte(c) {
			return fmt.Errorf("option: invalid short name %q", c)
		}
		cfg.short = c
		return nil
	})
}

// WithLong registers the option's long name, e.g. "name" for --name.
func WithLong(name string) SpecOption {
	return specOptionFunc(func(cfg *specConfig) error {
		if !longNamePattern.MatchString(name) {
			return fmt.Errorf("option: invalid long name %q", name)
		}
		cfg.long = name
		return nil
	})
}

// WithValue marks the option as taking a single string value.
func WithValue() SpecOption {
	return specOptionFunc(func(cfg *specConfig) error {
		cfg.hasValue = true
		return nil
	})
}

// WithMulti marks the option as repeatable, collecting each occurrence's
// value into a list.
func WithMulti() SpecOption {
	return specOptionFunc(func(cfg *specConfig) error {
		cfg.hasValue = true
		cfg.multi = true
		return nil
	})
}

// WithCount marks the option as a bare, valueless flag whose occurrences
// are tallied (e.g. -vvv).
func WithCount() SpecOption {
	return specOptionFunc(func(cfg *specConfig) error {
		cfg.count = true
		return nil
	})
}

// WithHelp marks the option as the help flag: encountering it sets
// Result.Help regardless of any other options present.
func WithHelp() SpecOption {
	return specOptionFunc(func(cfg *specConfig) error {
		cfg.help = true
		cfg.count = true
		return nil
	})
}

// WithDataSize marks the option's value as a data-unit size
// (B/K/M/G/T/P/E suffix, binary multiples), validated at parse time.
func WithDataSize() SpecOption {
	return specOptionFunc(func(cfg *specConfig) error {
		cfg.hasValue = true
		cfg.dataSize = true
		return nil
	})
}

// WithValidator attaches a validator run against the option's raw value
// before it is recorded.
func WithValidator(f func(raw string) error) SpecOption {
	return specOptionFunc(func(cfg *specConfig) error {
		cfg.validate = f
		return nil
	})
}

// spec is the resolved, immutable form of a registered option.
type spec struct {
	short    byte
	long     string
	hasValue bool
	multi    bool
	count    bool
	help     bool
	dataSize bool
	validate func(string) error
}

func newSpec(opts []SpecOption) (*spec, error) {
	var cfg specConfig
	for _, o := range opts {
		if o == nil {
			continue
		}
		if err := o.applySpec(&cfg); err != nil {
			return nil, err
		}
	}
	if cfg.short == 0 && cfg.long == "" {
		return nil, errors.New("option: spec needs a short or long name")
	}
	if cfg.count && cfg.hasValue {
		return nil, errors.New("option: a flag cannot both count occurrences and take a value")
	}
	return &spec{
		short:    cfg.short,
		long:     cfg.long,
		hasValue: cfg.hasValue,
		multi:    cfg.multi,
		count:    cfg.count,
		help:     cfg.help,
		dataSize: cfg.dataSize,
		validate: cfg.validate,
	}, nil
}

// name is the canonical key under which this option's values are
// recorded in a Result: its long name if registered, else its short name.
func (s *spec) name() string {
	if s.long != "" {
		return s.long
	}
	return string(s.short)
}
