package variable

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/mind-engage/qti-testengine/pkg/qerr"
)

// identifierLexical is the QTI identifier lexical form: a letter or
// underscore followed by letters, digits, '-', '_', or '.'.
var identifierLexical = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_\-.]*$`)

// Identifier is a parsed variable reference of one of the three forms
// (core.v1 §4.2): "name", "prefix.name", or "prefix.N.name".
type Identifier struct {
	raw            string
	prefix         string
	name           string
	sequenceNumber int // 0 when absent
	hasPrefix      bool
	hasSequence    bool
}

// Parse parses s into an Identifier, failing with MalformedIdentifier if it
// matches neither the simple, prefixed, nor sequenced form.
func Parse(s string) (Identifier, error) {
	if s == "" {
		return Identifier{}, qerr.New(qerr.MalformedIdentifier, s, "empty identifier")
	}
	parts := strings.Split(s, ".")
	switch len(parts) {
	case 1:
		if !validName(parts[0]) {
			return Identifier{}, qerr.New(qerr.MalformedIdentifier, s, "invalid identifier lexical form")
		}
		return Identifier{raw: s, name: parts[0]}, nil
	case 2:
		if !validName(parts[0]) || !validName(parts[1]) {
			return Identifier{}, qerr.New(qerr.MalformedIdentifier, s, "invalid prefix.name form")
		}
		return Identifier{raw: s, prefix: parts[0], name: parts[1], hasPrefix: true}, nil
	case 3:
		n, err := strconv.Atoi(parts[1])
		if err != nil || n < 1 {
			return Identifier{}, qerr.New(qerr.MalformedIdentifier, s, "sequence number must be >= 1")
		}
		if !validName(parts[0]) || !validName(parts[2]) {
			return Identifier{}, qerr.New(qerr.MalformedIdentifier, s, "invalid prefix.N.name form")
		}
		return Identifier{raw: s, prefix: parts[0], name: parts[2], sequenceNumber: n, hasPrefix: true, hasSequence: true}, nil
	default:
		return Identifier{}, qerr.New(qerr.MalformedIdentifier, s, "too many '.' components")
	}
}

// MustParse panics on malformed input; for use with compile-time-known
// identifiers (tests, fixtures).
func MustParse(s string) Identifier {
	id, err := Parse(s)
	if err != nil {
		panic(fmt.Sprintf("variable: MustParse(%q): %v", s, err))
	}
	return id
}

func validName(s string) bool { return identifierLexical.MatchString(s) }

func (id Identifier) String() string         { return id.raw }
func (id Identifier) HasPrefix() bool         { return id.hasPrefix }
func (id Identifier) HasSequenceNumber() bool { return id.hasSequence }
func (id Identifier) Prefix() string          { return id.prefix }
func (id Identifier) Name() string            { return id.name }
func (id Identifier) SequenceNumber() int     { return id.sequenceNumber }
func (id Identifier) IsSimple() bool          { return !id.hasPrefix }
