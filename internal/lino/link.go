package lino

import "strings"

// Link is a node of the Links Notation parse tree: an optional reference
// identifier plus ordered child links. It only exists for the duration of a
// single Encode or Decode call.
type Link struct {
	ID     string
	HasID  bool
	Values []Link
}

// Ref returns a leaf link holding the given reference.
func Ref(id string) Link {
	return Link{ID: id, HasID: true}
}

// Group returns a link without an identifier wrapping the given children.
func Group(values ...Link) Link {
	return Link{Values: values}
}

// EscapeReference quotes a reference so it survives re-parsing.
// Quoting is only applied when the token contains structural characters;
// the quote character absent from the token is preferred, and if both kinds
// appear the token is wrapped in single quotes with embedded single quotes
// backslash-escaped.
func EscapeReference(ref string) string {
	if ref == "" {
		return ""
	}
	hasSingle := strings.ContainsRune(ref, '\'')
	hasDouble := strings.ContainsRune(ref, '"')
	needsQuoting := strings.ContainsAny(ref, ":() \t\n\r") || hasSingle || hasDouble

	switch {
	case hasSingle && hasDouble:
		return "'" + strings.ReplaceAll(ref, "'", "\\'") + "'"
	case hasDouble:
		return "'" + ref + "'"
	case hasSingle:
		return "\"" + ref + "\""
	case needsQuoting:
		return "'" + ref + "'"
	default:
		return ref
	}
}

// Format renders the link as Links Notation text.
func (l Link) Format() string {
	if !l.HasID && len(l.Values) == 0 {
		return "()"
	}
	if len(l.Values) == 0 {
		return "(" + EscapeReference(l.ID) + ")"
	}

	parts := make([]string, 0, len(l.Values))
	for _, v := range l.Values {
		if len(v.Values) == 0 {
			if v.HasID {
				parts = append(parts, EscapeReference(v.ID))
			} else {
				parts = append(parts, "()")
			}
			continue
		}
		parts = append(parts, v.Format())
	}
	body := strings.Join(parts, " ")

	if !l.HasID {
		return "(" + body + ")"
	}
	return "(" + EscapeReference(l.ID) + ": " + body + ")"
}
