// Package parser turns raw statsd-line-protocol datagrams into structured
// samples ready for aggregation. Two independent implementations
// (state-machine and table-driven) exist behind the same Parser interface;
// see conformance_test.go for the property that they agree.
package parser

import (
	"bytes"
	"errors"
	"sort"
)

// Kind is the type of a metric a Sample describes.
type Kind int

const (
	KindNone Kind = iota
	KindCounter
	KindGauge
	KindDuration
)

func (k Kind) String() string {
	switch k {
	case KindCounter:
		return "counter"
	case KindGauge:
		return "gauge"
	case KindDuration:
		return "duration"
	default:
		return "none"
	}
}

// Sign records whether a value carried an explicit leading +/-, which
// distinguishes "set X" from "apply a signed delta".
type Sign int

const (
	SignNone Sign = iota
	SignPlus
	SignMinus
)

// maxCanonicalTagsLen caps the rendered size of the canonical tags string.
const maxCanonicalTagsLen = 4096

// Sample is one parsed line, ready to be handed to the aggregator. It is
// discarded once submitted to the registry.
type Sample struct {
	Name  string
	Kind  Kind
	Value float64
	Sign  Sign

	// Tags is the canonical tags string ({"k1":"v1",...} sorted by key,
	// right-most duplicate wins), or "" if the line carried no tags.
	Tags string
	// TagPairCount is the number of distinct keys contributing to Tags.
	TagPairCount int
}

// HasTags reports whether the sample carried any tag.
func (s Sample) HasTags() bool {
	return s.Tags != ""
}

// DropReason explains why a line failed to parse into a Sample; it is the
// parser-level half of the drop taxonomy the registry's Reject completes.
type DropReason string

const (
	DropBadGrammar  DropReason = "bad_grammar"
	DropBadName     DropReason = "bad_name"
	DropBadValue    DropReason = "bad_value"
	DropBadType     DropReason = "bad_type"
	DropTagsTooLong DropReason = "tags_too_long"
	DropBadTags     DropReason = "bad_tags"
)

// ErrUnparseable is the sentinel error for a line that fails the grammar.
// The parsers in this package do not return it: they report every drop
// through Outcome.Reason.
var ErrUnparseable = errors.New("statsd: unparseable line")

// Outcome is what a Parser produces for one line: either a Sample or a
// reason it was dropped. Exactly one of Sample/Reason is meaningful,
// selected by Parsed.
type Outcome struct {
	Parsed bool
	Sample Sample
	Reason DropReason
}

// Parser validates and structures statsd-format lines into Samples. A
// datagram's payload may contain several newline-separated lines; ParseLine
// is called once per line by the caller (see aggregator.ParserStage).
type Parser interface {
	ParseLine(line []byte) Outcome
}

func isNameStart(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func isNameRune(b byte) bool {
	return isNameStart(b) || (b >= '0' && b <= '9') || b == '.' || b == '_'
}

func validName(s string) bool {
	if len(s) == 0 {
		return false
	}
	if !isNameStart(s[0]) {
		return false
	}
	for i := 1; i < len(s); i++ {
		if !isNameRune(s[i]) {
			return false
		}
	}
	return true
}

func validTagRune(s string) bool {
	if len(s) == 0 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isNameRune(s[i]) {
			return false
		}
	}
	return true
}

// scanNumber recognizes the value grammar: optional leading +/-, then an
// unsigned decimal with at most one '.' and at most one e|E exponent
// (optional sign, at least one digit). It returns the sign found, the
// unsigned numeric substring (for conversion), and whether the grammar
// matched all of s.
func scanNumber(s string) (sign Sign, numeric string, ok bool) {
	i := 0
	switch {
	case i < len(s) && s[i] == '+':
		sign = SignPlus
		i++
	case i < len(s) && s[i] == '-':
		sign = SignMinus
		i++
	}
	start := i
	sawDigit := false
	sawDot := false
	sawExp := false
	for i < len(s) {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
			sawDigit = true
			i++
		case c == '.' && !sawDot && !sawExp:
			sawDot = true
			i++
		case (c == 'e' || c == 'E') && !sawExp && sawDigit:
			sawExp = true
			i++
			if i < len(s) && (s[i] == '+' || s[i] == '-') {
				i++
			}
			// an exponent must be followed by at least one digit; track via a
			// nested scan below since sawDigit covers the whole number.
			sawDigit = false
			expDigit := false
			for i < len(s) && s[i] >= '0' && s[i] <= '9' {
				expDigit = true
				i++
			}
			if !expDigit {
				return sign, "", false
			}
			sawDigit = true
		default:
			return sign, "", false
		}
	}
	if i != len(s) || !sawDigit {
		return sign, "", false
	}
	return sign, s[start:], true
}

// tagPair is one key/value pair awaiting canonicalization.
type tagPair struct {
	key, value string
}

// canonicalizeTags sorts by key ascending, right-most duplicate wins, and
// emits `{"k1":"v1",...}`. Returns ("", 0, true) for an empty input (no
// tags present), and ok=false if the result would exceed
// maxCanonicalTagsLen.
func canonicalizeTags(pairs []tagPair) (canon string, pairCount int, ok bool) {
	if len(pairs) == 0 {
		return "", 0, true
	}

	// Stable sort by key preserves pairs' original relative order among
	// equal keys, so a later stable pass picking the last-seen value per
	// key yields "right-most wins".
	sort.SliceStable(pairs, func(i, j int) bool { return pairs[i].key < pairs[j].key })

	last := make(map[string]string, len(pairs))
	order := make([]string, 0, len(pairs))
	for _, p := range pairs {
		if _, seen := last[p.key]; !seen {
			order = append(order, p.key)
		}
		last[p.key] = p.value
	}
	sort.Strings(order)

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range order {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('"')
		buf.WriteString(k)
		buf.WriteString(`":"`)
		buf.WriteString(last[k])
		buf.WriteByte('"')
	}
	buf.WriteByte('}')

	if buf.Len() > maxCanonicalTagsLen {
		return "", 0, false
	}
	return buf.String(), len(order), true
}
