package text

import (
	"encoding/base64"
	"strconv"
	"strings"

	"github.com/ValentinKolb/wiredoc/wire"
)

func encodeBytes(b []byte) string { return base64.StdEncoding.EncodeToString(b) }

func decodeBytes(s string) ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, wire.ErrSchemaMismatch
	}
	return b, nil
}

// parseDocument parses a whole document body into top-level mapping
// entries, one per non-blank "name: value" line.
func parseDocument(data []byte) ([]wire.MapEntry, error) {
	text := strings.TrimPrefix(string(data), " ")
	lines := strings.Split(text, "\n")
	var entries []wire.MapEntry
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		idx := strings.Index(line, ": ")
		if idx < 0 {
			return nil, wire.ErrStreamCorrupted
		}
		name := strings.TrimSpace(line[:idx])
		sc := &scanner{s: line[idx+2:]}
		v, err := parseValue(sc)
		if err != nil {
			return nil, err
		}
		entries = append(entries, wire.MapEntry{Field: wire.Named(name), Value: v})
	}
	return entries, nil
}

type scanner struct {
	s string
	i int
}

func (sc *scanner) skipSpaces() {
	for sc.i < len(sc.s) && sc.s[sc.i] == ' ' {
		sc.i++
	}
}

func (sc *scanner) peek() byte {
	if sc.i >= len(sc.s) {
		return 0
	}
	return sc.s[sc.i]
}

func parseValue(sc *scanner) (wire.Value, error) {
	sc.skipSpaces()
	switch sc.peek() {
	case '"':
		s, err := parseQuoted(sc)
		return wire.Value{Kind: wire.KindString, Str: s}, err
	case '[':
		return parseSequence(sc)
	case '!':
		return parseTyped(sc)
	default:
		return parseBareScalar(sc)
	}
}

func parseQuoted(sc *scanner) (string, error) {
	sc.i++ // opening quote
	var b strings.Builder
	for sc.i < len(sc.s) {
		c := sc.s[sc.i]
		if c == '"' {
			sc.i++
			return b.String(), nil
		}
		if c == '\\' && sc.i+1 < len(sc.s) {
			sc.i++
			switch sc.s[sc.i] {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			default:
				b.WriteByte(sc.s[sc.i])
			}
			sc.i++
			continue
		}
		b.WriteByte(c)
		sc.i++
	}
	return "", wire.ErrStreamCorrupted
}

func parseBareScalar(sc *scanner) (wire.Value, error) {
	start := sc.i
	for sc.i < len(sc.s) {
		c := sc.s[sc.i]
		if c == ',' || c == ']' || c == '}' {
			break
		}
		sc.i++
	}
	raw := strings.TrimRight(sc.s[start:sc.i], " ")
	switch raw {
	case "true":
		return wire.Value{Kind: wire.KindBool, Bool: true}, nil
	case "false":
		return wire.Value{Kind: wire.KindBool, Bool: false}, nil
	case "null":
		return wire.Value{Kind: wire.KindNull}, nil
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return wire.Value{Kind: wire.KindInt64, Int: n}, nil
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return wire.Value{Kind: wire.KindFloat64, Float64: f}, nil
	}
	return wire.Value{Kind: wire.KindString, Str: raw}, nil
}

func parseSequence(sc *scanner) (wire.Value, error) {
	sc.i++ // '['
	var elems []wire.Value
	sc.skipSpaces()
	if sc.peek() == ']' {
		sc.i++
		return wire.Value{Kind: wire.KindSequence, Sequence: elems}, nil
	}
	for {
		v, err := parseValue(sc)
		if err != nil {
			return wire.Value{}, err
		}
		elems = append(elems, v)
		sc.skipSpaces()
		switch sc.peek() {
		case ',':
			sc.i++
			sc.skipSpaces()
		case ']':
			sc.i++
			return wire.Value{Kind: wire.KindSequence, Sequence: elems}, nil
		default:
			return wire.Value{}, wire.ErrStreamCorrupted
		}
	}
}

func parseTyped(sc *scanner) (wire.Value, error) {
	sc.i++ // '!'
	start := sc.i
	for sc.i < len(sc.s) && sc.s[sc.i] != ' ' {
		sc.i++
	}
	alias := sc.s[start:sc.i]
	sc.skipSpaces()
	if sc.peek() != '{' {
		return wire.Value{}, wire.ErrStreamCorrupted
	}
	sc.i++
	entries, err := parseFields(sc)
	if err != nil {
		return wire.Value{}, err
	}
	body := wire.Value{Kind: wire.KindMapping, Mapping: entries}
	return wire.Value{Kind: wire.KindTyped, TypedTag: alias, TypedValue: &body}, nil
}

func parseFields(sc *scanner) ([]wire.MapEntry, error) {
	var entries []wire.MapEntry
	sc.skipSpaces()
	if sc.peek() == '}' {
		sc.i++
		return entries, nil
	}
	for {
		sc.skipSpaces()
		nameStart := sc.i
		for sc.i < len(sc.s) && sc.s[sc.i] != ':' {
			sc.i++
		}
		if sc.i >= len(sc.s) {
			return nil, wire.ErrStreamCorrupted
		}
		name := strings.TrimSpace(sc.s[nameStart:sc.i])
		sc.i++ // ':'
		sc.skipSpaces()
		v, err := parseValue(sc)
		if err != nil {
			return nil, err
		}
		entries = append(entries, wire.MapEntry{Field: wire.Named(name), Value: v})
		sc.skipSpaces()
		switch sc.peek() {
		case ',':
			sc.i++
		case '}':
			sc.i++
			return entries, nil
		default:
			return nil, wire.ErrStreamCorrupted
		}
	}
}
