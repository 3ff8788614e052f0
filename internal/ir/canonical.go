package ir

import (
	"bytes"
	"fmt"
	"math"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode/utf16"

	"golang.org/x/text/unicode/norm"
)

// MarshalCanonical produces RFC 8785 canonical JSON.
//
// Supported values: nil, bool, string, every integer and float kind,
// time.Duration (as integer milliseconds), slices and arrays, and maps with
// string keys (including named map types such as payloads).
func MarshalCanonical(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := encode(&buf, reflect.ValueOf(v)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encode(buf *bytes.Buffer, v reflect.Value) error {
	if !v.IsValid() {
		buf.WriteString("null")
		return nil
	}

	if v.Type() == reflect.TypeOf(time.Duration(0)) {
		buf.WriteString(strconv.FormatInt(time.Duration(v.Int()).Milliseconds(), 10))
		return nil
	}

	switch v.Kind() {
	case reflect.Interface, reflect.Pointer:
		if v.IsNil() {
			buf.WriteString("null")
			return nil
		}
		return encode(buf, v.Elem())
	case reflect.Bool:
		if v.Bool() {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case reflect.String:
		writeString(buf, v.String())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		buf.WriteString(strconv.FormatInt(v.Int(), 10))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		buf.WriteString(strconv.FormatUint(v.Uint(), 10))
	case reflect.Float32, reflect.Float64:
		s, err := formatNumber(v.Float())
		if err != nil {
			return err
		}
		buf.WriteString(s)
	case reflect.Slice:
		if v.IsNil() {
			buf.WriteString("null")
			return nil
		}
		return encodeArray(buf, v)
	case reflect.Array:
		return encodeArray(buf, v)
	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			return fmt.Errorf("unsupported map key type for canonical JSON: %s", v.Type().Key())
		}
		if v.IsNil() {
			buf.WriteString("null")
			return nil
		}
		return encodeObject(buf, v)
	default:
		return fmt.Errorf("unsupported type for canonical JSON: %s", v.Type())
	}
	return nil
}

func encodeArray(buf *bytes.Buffer, v reflect.Value) error {
	buf.WriteByte('[')
	for i := 0; i < v.Len(); i++ {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := encode(buf, v.Index(i)); err != nil {
			return fmt.Errorf("array[%d]: %w", i, err)
		}
	}
	buf.WriteByte(']')
	return nil
}

func encodeObject(buf *bytes.Buffer, v reflect.Value) error {
	// NFC is applied before sorting so equivalent keys order identically.
	type entry struct {
		key string
		val reflect.Value
	}
	entries := make([]entry, 0, v.Len())
	iter := v.MapRange()
	for iter.Next() {
		entries = append(entries, entry{key: canonicalText(iter.Key().String()), val: iter.Value()})
	}
	slices.SortFunc(entries, func(a, b entry) int { return CompareKeys(a.key, b.key) })

	buf.WriteByte('{')
	for i, e := range entries {
		if i > 0 {
			buf.WriteByte(',')
		}
		writeString(buf, e.key)
		buf.WriteByte(':')
		if err := encode(buf, e.val); err != nil {
			return fmt.Errorf("value for key %q: %w", e.key, err)
		}
	}
	buf.WriteByte('}')
	return nil
}

// CompareKeys orders strings by UTF-16 code units as RFC 8785 requires.
// Go's native string order is UTF-8 bytes, which differs above U+FFFF.
func CompareKeys(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))
	return slices.Compare(a16, b16)
}

// SortedKeys returns m's keys in canonical order.
func SortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, CompareKeys)
	return keys
}

const hexDigits = "0123456789abcdef"

// canonicalText replaces invalid UTF-8 with U+FFFD and applies NFC.
func canonicalText(s string) string {
	return norm.NFC.String(strings.ToValidUTF8(s, "\uFFFD"))
}

// writeString writes s as a JSON string: NFC normalized, escaping only the
// quote, the backslash and control characters below U+0020.
func writeString(buf *bytes.Buffer, s string) {
	s = canonicalText(s)
	buf.WriteByte('"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '"':
			buf.WriteString(`\"`)
		case '\\':
			buf.WriteString(`\\`)
		case '\b':
			buf.WriteString(`\b`)
		case '\f':
			buf.WriteString(`\f`)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		case '\t':
			buf.WriteString(`\t`)
		default:
			if c < 0x20 {
				buf.WriteString(`\u00`)
				buf.WriteByte(hexDigits[c>>4])
				buf.WriteByte(hexDigits[c&0xf])
				continue
			}
			buf.WriteByte(c)
		}
	}
	buf.WriteByte('"')
}

// formatNumber renders f the way ECMAScript Number.prototype.toString does:
// plain decimal for 1e-6 <= |f| < 1e21, exponent form otherwise.
func formatNumber(f float64) (string, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", fmt.Errorf("non-finite number in canonical JSON: %v", f)
	}
	if f == 0 {
		return "0", nil
	}

	abs := math.Abs(f)
	if abs >= 1e-6 && abs < 1e21 {
		return strconv.FormatFloat(f, 'f', -1, 64), nil
	}

	s := strconv.FormatFloat(f, 'e', -1, 64)
	mantissa, exp, _ := strings.Cut(s, "e")
	sign := exp[0]
	digits := strings.TrimLeft(exp[1:], "0")
	return mantissa + "e" + string(sign) + digits, nil
}
