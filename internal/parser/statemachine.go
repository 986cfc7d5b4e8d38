package parser

import (
	"strconv"
)

// StateMachineParser is a hand-written recursive-descent recognizer for the
// statsd line grammar, in the spirit of the original PMDA's parser-basic.c:
// it walks the line byte by byte through a small number of named states
// rather than relying on a generated table (see TableParser for the
// alternative).
type StateMachineParser struct{}

// NewStateMachineParser returns the hand-written parser implementation.
func NewStateMachineParser() *StateMachineParser {
	return &StateMachineParser{}
}

// ParseLine implements Parser.
func (p *StateMachineParser) ParseLine(line []byte) Outcome {
	s := string(line)
	if len(s) == 0 {
		return Outcome{Parsed: false, Reason: DropBadGrammar}
	}

	// state: scanning the name, and any ",k=v" tag pairs that precede ':'.
	nameEnd := -1
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case ',', ':':
			nameEnd = i
		}
		if nameEnd != -1 {
			break
		}
	}
	if nameEnd == -1 {
		return Outcome{Parsed: false, Reason: DropBadGrammar}
	}

	name := s[:nameEnd]
	if !validName(name) {
		return Outcome{Parsed: false, Reason: DropBadName}
	}

	rest := s[nameEnd:]
	var prefixPairs []tagPair
	if len(rest) > 0 && rest[0] == ',' {
		colon := indexByte(rest, ':')
		if colon == -1 {
			return Outcome{Parsed: false, Reason: DropBadGrammar}
		}
		tagsSeg := rest[1:colon]
		rest = rest[colon:]
		var err bool
		prefixPairs, err = parsePairs(tagsSeg, ',', '=')
		if err {
			return Outcome{Parsed: false, Reason: DropBadTags}
		}
	}

	if len(rest) == 0 || rest[0] != ':' {
		return Outcome{Parsed: false, Reason: DropBadGrammar}
	}
	rest = rest[1:]

	pipe := indexByte(rest, '|')
	if pipe == -1 {
		return Outcome{Parsed: false, Reason: DropBadGrammar}
	}
	valueStr := rest[:pipe]
	rest = rest[pipe+1:]

	sign, numeric, ok := scanNumber(valueStr)
	if !ok {
		return Outcome{Parsed: false, Reason: DropBadValue}
	}
	value, err := strconv.ParseFloat(numeric, 64)
	if err != nil {
		return Outcome{Parsed: false, Reason: DropBadValue}
	}

	var typeTok string
	var suffixPairs []tagPair
	if nextPipe := indexByte(rest, '|'); nextPipe == -1 {
		typeTok = rest
	} else {
		typeTok = rest[:nextPipe]
		suffixSeg := rest[nextPipe+1:]
		if len(suffixSeg) == 0 || suffixSeg[0] != '#' {
			return Outcome{Parsed: false, Reason: DropBadGrammar}
		}
		var bad bool
		suffixPairs, bad = parsePairs(suffixSeg[1:], ',', ':')
		if bad {
			return Outcome{Parsed: false, Reason: DropBadTags}
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

func indexByte(s string, b byte) int {
	for i := 0; i < len(s); i++ {
		if s[i] == b {
			return i
		}
	}
	return -1
}

func kindFromToken(tok string) (Kind, bool) {
	switch tok {
	case "c":
		return KindCounter, true
	case "g":
		return KindGauge, true
	case "ms":
		return KindDuration, true
	default:
		return KindNone, false
	}
}

// parsePairs splits segment on sep into "key<kv>value" pairs. Returns
// bad=true if any pair is malformed (empty key/value, or value containing
// invalid characters). An empty segment is malformed too: the grammar
// requires at least one pair after the tag introducer.
func parsePairs(segment string, sep, kv byte) (pairs []tagPair, bad bool) {
	if segment == "" {
		return nil, true
	}
	start := 0
	for i := 0; i <= len(segment); i++ {
		if i == len(segment) || segment[i] == sep {
			part := segment[start:i]
			k, v, ok := splitOnce(part, kv)
			if !ok || !validTagRune(k) || !validTagRune(v) {
				return nil, true
			}
			pairs = append(pairs, tagPair{key: k, value: v})
			start = i + 1
		}
	}
	return pairs, false
}

func splitOnce(s string, sep byte) (before, after string, ok bool) {
	idx := indexByte(s, sep)
	if idx == -1 {
		return "", "", false
	}
	return s[:idx], s[idx+1:], true
}
