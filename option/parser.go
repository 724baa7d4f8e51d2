package option

import (
	"fmt"
	"strings"
)

// Parser holds a fixed set of registered option specs and parses argv
// slices against them (spec.md §6's CLI surface).
type Parser struct {
	specs   []*spec
	byShort map[byte]*spec
	byLong  map[string]*spec
}

// NewParser returns an empty Parser; register options with Add before
// calling Parse.
func NewParser() *Parser {
	return &Parser{
		byShort: make(map[byte]*spec),
		byLong:  make(map[string]*spec),
	}
}

// Add registers one option from a set of SpecOptions. Returns an error if
// the spec is malformed or its short/long name collides with one already
// registered.
func (p *Parser) Add(opts ...SpecOption) error {
	s, err := newSpec(opts)
	if err != nil {
		return err
	}
	if s.short != 0 {
		if _, dup := p.byShort[s.short]; dup {
			return fmt.Errorf("option: short name -%c already registered", s.short)
		}
	}
	if s.long != "" {
		if _, dup := p.byLong[s.long]; dup {
			return fmt.Errorf("option: long name --%s already registered", s.long)
		}
	}
	p.specs = append(p.specs, s)
	if s.short != 0 {
		p.byShort[s.short] = s
	}
	if s.long != "" {
		p.byLong[s.long] = s
	}
	return nil
}

// Parse walks args (excluding argv[0]) against the registered specs,
// recognizing every form in spec.md §6's CLI surface. It always returns a
// partially-populated Result, plus one of ExitOK/ExitHelp/ExitError and,
// on ExitError, the error describing why.
func (p *Parser) Parse(args []string) (*Result, int, error) {
	res := newResult()
	terminated := false

	apply := func(s *spec, raw string) error {
		if s.dataSize {
			if _, err := ParseDataSize(raw); err != nil {
				return err
			}
		}
		if s.validate != nil {
			if err := s.validate(raw); err != nil {
				return err
			}
		}
		if s.multi {
			res.Lists[s.name()] = append(res.Lists[s.name()], raw)
		} else {
			res.Values[s.name()] = raw
		}
		return nil
	}

	i := 0
	for i < len(args) {
		arg := args[i]

		switch {
		case terminated, arg == "" || arg[0] != '-' || arg == "-":
			res.Extra = append(res.Extra, arg)
			i++

		case arg == "--":
			terminated = true
			i++

		case strings.HasPrefix(arg, "--"):
			consumed, err := p.parseLong(args, i, res, apply)
			if err != nil {
				return res, ExitError, err
			}
			i += consumed

		default:
			consumed, err := p.parseShortGroup(args, i, res, apply)
			if err != nil {
				return res, ExitError, err
			}
			i += consumed
		}
	}

	if res.Help {
		return res, ExitHelp, nil
	}
	return res, ExitOK, nil
}

// parseLong handles one "--name", "--name=value", or "--name value" token
// at args[i], returning how many argv entries it consumed.
func (p *Parser) parseLong(args []string, i int, res *Result, apply func(*spec, string) error) (int, error) {
	body := args[i][2:]
	name := body
	var inline string
	hasInline := false
	if eq := strings.IndexByte(body, '='); eq >= 0 {
		name = body[:eq]
		inline = body[eq+1:]
		hasInline = true
	}

	s, ok := p.byLong[name]
	if !ok {
		return 0, fmt.Errorf("option: unknown option --%s", name)
	}
	if s.help {
		res.Help = true
	}

	if s.count {
		if hasInline {
			return 0, fmt.Errorf("option: --%s does not take a value", name)
		}
		res.Counts[s.name()]++
		return 1, nil
	}
	if !s.hasValue {
		res.Counts[s.name()]++
		return 1, nil
	}

	if hasInline {
		if err := apply(s, inline); err != nil {
			return 0, err
		}
		return 1, nil
	}
	if i+1 >= len(args) {
		return 0, fmt.Errorf("option: --%s requires a value", name)
	}
	if err := apply(s, args[i+1]); err != nil {
		return 0, err
	}
	return 2, nil
}

// parseShortGroup handles one "-x", "-xvalue", "-x=value", "-x value", or
// "-abc" token at args[i], returning how many argv entries it consumed.
//
// Scanning proceeds left to right. A flag/count short advances to the
// next character. A value-taking short at position 0 takes the rest of
// the token (if any, stripping a leading '=') or the next argv entry as
// its value, and ends the scan. A value-taking short elsewhere in the
// token must be the token's last character — its value always comes from
// the next argv entry; a value-taking short that is neither first nor
// last is rejected (spec.md §8: "rejects grouped shorts where a
// non-final short requires a value").
func (p *Parser) parseShortGroup(args []string, i int, res *Result, apply func(*spec, string) error) (int, error) {
	body := args[i][1:]
	extraConsumed := 0

	pos := 0
	for pos < len(body) {
		c := body[pos]
		s, ok := p.byShort[c]
		if !ok {
			return 0, fmt.Errorf("option: unknown option -%c", c)
		}
		if s.help {
			res.Help = true
		}

		if !s.hasValue {
			res.Counts[s.name()]++
			pos++
			continue
		}

		if pos == 0 {
			val := strings.TrimPrefix(body[1:], "=")
			if val == "" {
				if i+1 >= len(args) {
					return 0, fmt.Errorf("option: -%c requires a value", c)
				}
				val = args[i+1]
				extraConsumed = 1
			}
			if err := apply(s, val); err != nil {
				return 0, err
			}
			return 1 + extraConsumed, nil
		}

		if pos != len(body)-1 {
			return 0, fmt.Errorf("option: grouped short -%c requires a value but is not last in -%s", c, body)
		}
		if i+1 >= len(args) {
			return 0, fmt.Errorf("option: -%c requires a value", c)
		}
		if err := apply(s, args[i+1]); err != nil {
			return 0, err
		}
		return 2, nil
	}

	return 1, nil
}
