package lino

import (
	"encoding/base64"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Decode parses Links Notation text back into a value. Empty input decodes
// to nil. A bare reference outside any parens decodes to its literal
// string.
func Decode(text string) (any, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, nil
	}
	p := &parser{input: trimmed}
	link, err := p.parseLink()
	if err != nil {
		return nil, err
	}
	return decodeLink(link)
}

func decodeLink(l Link) (any, error) {
	if len(l.Values) == 0 {
		if l.HasID {
			return l.ID, nil
		}
		return nil, nil
	}

	tag := ""
	if l.Values[0].HasID {
		tag = l.Values[0].ID
	}

	switch tag {
	case tagNull:
		return nil, nil
	case tagBool:
		return secondRef(l) == "true", nil
	case tagInt:
		s := secondRef(l)
		if s == "" {
			return int64(0), nil
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("lino: invalid integer literal %q: %w", s, err)
		}
		return n, nil
	case tagFloat:
		return decodeFloat(secondRef(l))
	case tagStr:
		s := secondRef(l)
		if s == "" {
			return "", nil
		}
		raw, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return nil, fmt.Errorf("lino: invalid base64 payload %q: %w", s, err)
		}
		return string(raw), nil
	case tagArray:
		arr := make([]any, 0, len(l.Values)-1)
		for _, item := range l.Values[1:] {
			v, err := decodeLink(item)
			if err != nil {
				return nil, err
			}
			arr = append(arr, v)
		}
		return arr, nil
	case tagObject:
		obj := NewObject()
		for _, pair := range l.Values[1:] {
			if len(pair.Values) < 2 {
				continue
			}
			key, err := decodeLink(pair.Values[0])
			if err != nil {
				return nil, err
			}
			val, err := decodeLink(pair.Values[1])
			if err != nil {
				return nil, err
			}
			if k, ok := key.(string); ok {
				obj.Set(k, val)
			}
		}
		return obj, nil
	default:
		return nil, &UnknownTagError{Tag: tag}
	}
}

func decodeFloat(s string) (float64, error) {
	switch s {
	case "":
		return 0, nil
	case "NaN":
		return math.NaN(), nil
	case "Infinity":
		return math.Inf(1), nil
	case "-Infinity":
		return math.Inf(-1), nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("lino: invalid float literal %q: %w", s, err)
	}
	return f, nil
}

// secondRef returns the identifier of the second child, which carries the
// payload for scalar tags.
func secondRef(l Link) string {
	if len(l.Values) < 2 || !l.Values[1].HasID {
		return ""
	}
	return l.Values[1].ID
}

// parser is a recursive-descent parser over Unicode scalars.
type parser struct {
	input string
	pos   int
}

func (p *parser) peek() (rune, bool) {
	if p.pos >= len(p.input) {
		return 0, false
	}
	r, _ := utf8.DecodeRuneInString(p.input[p.pos:])
	return r, true
}

func (p *parser) advance() {
	if r, ok := p.peek(); ok {
		p.pos += utf8.RuneLen(r)
	}
}

func (p *parser) skipWhitespace() {
	for {
		r, ok := p.peek()
		if !ok || !unicode.IsSpace(r) {
			return
		}
		p.advance()
	}
}

func (p *parser) parseLink() (Link, error) {
	p.skipWhitespace()

	if r, ok := p.peek(); !ok || r != '(' {
		id, err := p.parseRef()
		if err != nil {
			return Link{}, err
		}
		return Ref(id), nil
	}

	p.advance() // consume '('
	p.skipWhitespace()

	if r, ok := p.peek(); ok && r == ')' {
		p.advance()
		return Link{}, nil
	}

	first, err := p.parseRefOrLink()
	if err != nil {
		return Link{}, err
	}
	p.skipWhitespace()

	link := Link{}
	if r, ok := p.peek(); ok && r == ':' {
		// First node was the identifier; the rest are children.
		p.advance()
		link.ID, link.HasID = first.ID, first.HasID
	} else {
		link.Values = append(link.Values, first)
	}

	for {
		p.skipWhitespace()
		r, ok := p.peek()
		if !ok {
			return Link{}, ErrUnexpectedEnd
		}
		if r == ')' {
			p.advance()
			return link, nil
		}
		child, err := p.parseRefOrLink()
		if err != nil {
			return Link{}, err
		}
		link.Values = append(link.Values, child)
	}
}

func (p *parser) parseRefOrLink() (Link, error) {
	p.skipWhitespace()
	if r, ok := p.peek(); ok && r == '(' {
		return p.parseLink()
	}
	id, err := p.parseRef()
	if err != nil {
		return Link{}, err
	}
	return Ref(id), nil
}

func (p *parser) parseRef() (string, error) {
	p.skipWhitespace()

	if r, ok := p.peek(); ok && (r == '"' || r == '\'') {
		return p.parseQuoted()
	}

	var b strings.Builder
	for {
		r, ok := p.peek()
		if !ok || unicode.IsSpace(r) || r == ':' || r == '(' || r == ')' {
			break
		}
		b.WriteRune(r)
		p.advance()
	}
	if b.Len() == 0 {
		return "", ErrExpectedReference
	}
	return b.String(), nil
}

func (p *parser) parseQuoted() (string, error) {
	quote, _ := p.peek()
	p.advance() // consume opening quote

	var b strings.Builder
	escaped := false
	for {
		r, ok := p.peek()
		if !ok {
			return "", ErrUnterminatedString
		}
		p.advance()
		switch {
		case escaped:
			b.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped = true
		case r == quote:
			return b.String(), nil
		default:
			b.WriteRune(r)
		}
	}
}
