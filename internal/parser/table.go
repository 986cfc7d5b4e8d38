package parser

import (
	"strconv"
	"strings"
)

// tableParserStep describes one delimiter-driven split stage: split the
// remaining input on sep into exactly one "captured" segment and a
// "remainder" to feed the next step. This is the generated-recognizer
// counterpart to StateMachineParser: instead of a byte-by-byte walk it
// is table-driven over a small ordered list of split rules, mirroring how a
// Ragel-style recognizer reduces to a sequence of delimiter transitions.
type tableParserStep struct {
	sep byte
	// required reports whether the delimiter must be present for the line
	// to be well-formed.
	required bool
}

var lineSteps = []tableParserStep{
	{sep: ':', required: true}, // name(,tags) : rest
	{sep: '|', required: true}, // value | rest
}

// TableParser is the table-driven recognizer; see tableParserStep. It
// accepts exactly the same language as StateMachineParser (enforced by
// conformance_test.go).
type TableParser struct{}

// NewTableParser returns the table-driven parser implementation.
func NewTableParser() *TableParser {
	return &TableParser{}
}

// ParseLine implements Parser.
func (p *TableParser) ParseLine(line []byte) Outcome {
	s := string(line)
	if s == "" {
		return Outcome{Parsed: false, Reason: DropBadGrammar}
	}

	bucket, rest, ok := splitTable(s, lineSteps[0])
	if !ok {
		return Outcome{Parsed: false, Reason: DropBadGrammar}
	}

	bucketParts := strings.Split(bucket, ",")
	name := bucketParts[0]
	if !validName(name) {
		return Outcome{Parsed: false, Reason: DropBadName}
	}
	var prefixPairs []tagPair
	for _, part := range bucketParts[1:] {
		k, v, ok := strings.Cut(part, "=")
		if !ok || !validTagRune(k) || !validTagRune(v) {
			return Outcome{Parsed: false, Reason: DropBadTags}
		}
		prefixPairs = append(prefixPairs, tagPair{key: k, value: v})
	}

	valuePart, typeAndTags, ok := splitTable(rest, lineSteps[1])
	if !ok {
		return Outcome{Parsed: false, Reason: DropBadGrammar}
	}

	sign, numeric, ok := scanNumber(valuePart)
	if !ok {
		return Outcome{Parsed: false, Reason: DropBadValue}
	}
	value, err := strconv.ParseFloat(numeric, 64)
	if err != nil {
		return Outcome{Parsed: false, Reason: DropBadValue}
	}

	typeTok, suffixSeg, hasSuffix := strings.Cut(typeAndTags, "|")
	var suffixPairs []tagPair
	if hasSuffix {
		if !strings.HasPrefix(suffixSeg, "#") {
			return Outcome{Parsed: false, Reason: DropBadGrammar}
		}
		for _, part := range strings.Split(suffixSeg[1:], ",") {
			k, v, ok := strings.Cut(part, ":")
			if !ok || !validTagRune(k) || !validTagRune(v) {
				return Outcome{Parsed: false, Reason: DropBadTags}
			}
			suffixPairs = append(suffixPairs, tagPair{key: k, value: v})
		}
	}

	kind, ok := kindFromToken(typeTok)
	if !ok {
		return Outcome{Parsed: false, Reason: DropBadType}
	}

	allPairs := append(prefixPairs, suffixPairs...)
	canon, pairCount, ok := canonicalizeTags(allPairs)
	if !ok {
		return Outcome{Parsed: false, Reason: DropTagsTooLong}
	}

	return Outcome{
		Parsed: true,
		Sample: Sample{
			Name:         name,
			Kind:         kind,
			Value:        value,
			Sign:         sign,
			Tags:         canon,
			TagPairCount: pairCount,
		},
	}
}

func splitTable(s string, step tableParserStep) (captured, remainder string, ok bool) {
	captured, remainder, found := strings.Cut(s, string(step.sep))
	if step.required && !found {
		return "", "", false
	}
	return captured, remainder, true
}
