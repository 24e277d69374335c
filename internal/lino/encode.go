package lino

import (
	"encoding/base64"
	"math"
	"strconv"
)

// Type tags carried as the first child of every encoded link, so decoding
// needs no external schema.
const (
	tagNull   = "null"
	tagBool   = "bool"
	tagInt    = "int"
	tagFloat  = "float"
	tagStr    = "str"
	tagArray  = "array"
	tagObject = "object"
)

// Encode renders a value as Links Notation text. Strings are carried as
// base64 of their UTF-8 bytes, so arbitrary content (control characters,
// parens, quotes) needs no escaping. Non-finite floats encode as the
// literal tokens NaN, Infinity and -Infinity; Decode maps them back to the
// IEEE values, so the round trip is symmetric.
func Encode(v any) (string, error) {
	link, err := encodeValue(v)
	if err != nil {
		return "", err
	}
	return link.Format(), nil
}

func encodeValue(v any) (Link, error) {
	switch val := v.(type) {
	case nil:
		return Group(Ref(tagNull)), nil
	case bool:
		return Group(Ref(tagBool), Ref(strconv.FormatBool(val))), nil
	case int:
		return Group(Ref(tagInt), Ref(strconv.FormatInt(int64(val), 10))), nil
	case int32:
		return Group(Ref(tagInt), Ref(strconv.FormatInt(int64(val), 10))), nil
	case int64:
		return Group(Ref(tagInt), Ref(strconv.FormatInt(val, 10))), nil
	case float64:
		return Group(Ref(tagFloat), Ref(formatFloat(val))), nil
	case string:
		b64 := base64.StdEncoding.EncodeToString([]byte(val))
		return Group(Ref(tagStr), Ref(b64)), nil
	case []any:
		parts := make([]Link, 0, len(val)+1)
		parts = append(parts, Ref(tagArray))
		for _, item := range val {
			child, err := encodeValue(item)
			if err != nil {
				return Link{}, err
			}
			parts = append(parts, child)
		}
		return Group(parts...), nil
	case *Object:
		parts := make([]Link, 0, val.Len()+1)
		parts = append(parts, Ref(tagObject))
		for _, key := range val.Keys() {
			entry, _ := val.Get(key)
			keyLink, err := encodeValue(key)
			if err != nil {
				return Link{}, err
			}
			valLink, err := encodeValue(entry)
			if err != nil {
				return Link{}, err
			}
			parts = append(parts, Group(keyLink, valLink))
		}
		return Group(parts...), nil
	default:
		return Link{}, &UnsupportedTypeError{Value: v}
	}
}

func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	default:
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
}
