package object

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// The byte boundary uses a line-oriented encoding: one value per line.
// Str values pass through as raw text, which is what makes
// `echo hi | wc -l` behave like an ordinary shell; every other value
// is one JSON document. The consuming side parses each line as JSON
// and falls back to Str, so arbitrary external output remains usable
// as a Stream<Str>.

// EncodeLine renders one value as a single output line, without the
// trailing newline.
func EncodeLine(v Value) []byte {
	if v.Kind == KindStr {
		return []byte(v.Str)
	}
	data, err := json.Marshal(jsonValue{v})
	if err != nil {
		// Values are a closed union; marshalling cannot fail.
		return []byte(v.String())
	}
	return data
}

// DecodeLine parses one input line back into a value.
func DecodeLine(line []byte) Value {
	trimmed := bytes.TrimSpace(line)
	if len(trimmed) == 0 {
		return NewStr(string(line))
	}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	v, err := decodeJSON(dec)
	if err != nil {
		return NewStr(string(line))
	}
	// Trailing garbage after a valid prefix means it was never JSON.
	if dec.More() {
		return NewStr(string(line))
	}
	return v
}

// EncodeJSON renders any value as a JSON document, Str included.
func EncodeJSON(v Value) ([]byte, error) {
	return json.Marshal(jsonValue{v})
}

// DecodeJSON parses a JSON document into a value, rejecting input that
// is not valid JSON rather than falling back to Str.
func DecodeJSON(text string) (Value, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()
	v, err := decodeJSON(dec)
	if err != nil {
		return Value{}, err
	}
	if dec.More() {
		return Value{}, fmt.Errorf("trailing data after JSON value")
	}
	return v, nil
}

// jsonValue adapts Value to encoding/json, preserving record field
// order (a plain map would serialize keys sorted).
type jsonValue struct{ v Value }

func (j jsonValue) MarshalJSON() ([]byte, error) {
	v := j.v
	switch v.Kind {
	case KindUnit:
		return []byte("null"), nil
	case KindBool:
		return json.Marshal(v.Bool)
	case KindInt:
		return json.Marshal(v.Int)
	case KindFloat:
		return json.Marshal(v.Float)
	case KindStr:
		return json.Marshal(v.Str)
	case KindList:
		var sb strings.Builder
		sb.WriteByte('[')
		for i, e := range v.List {
			if i > 0 {
				sb.WriteByte(',')
			}
			data, err := json.Marshal(jsonValue{e})
			if err != nil {
				return nil, err
			}
			sb.Write(data)
		}
		sb.WriteByte(']')
		return []byte(sb.String()), nil
	case KindRecord:
		var sb strings.Builder
		sb.WriteByte('{')
		for i, f := range v.Rec {
			if i > 0 {
				sb.WriteByte(',')
			}
			name, _ := json.Marshal(f.Name)
			sb.Write(name)
			sb.WriteByte(':')
			data, err := json.Marshal(jsonValue{f.Val})
			if err != nil {
				return nil, err
			}
			sb.Write(data)
		}
		sb.WriteByte('}')
		return []byte(sb.String()), nil
	}
	return nil, fmt.Errorf("unencodable value kind %d", int(v.Kind))
}

// decodeJSON reads one JSON value off the decoder's token stream,
// preserving object key order.
func decodeJSON(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return Value{}, err
	}
	return decodeToken(dec, tok)
}

func decodeToken(dec *json.Decoder, tok json.Token) (Value, error) {
	switch t := tok.(type) {
	case nil:
		return UnitVal, nil
	case bool:
		return NewBool(t), nil
	case string:
		return NewStr(t), nil
	case json.Number:
		s := t.String()
		if !strings.ContainsAny(s, ".eE") {
			if n, err := strconv.ParseInt(s, 10, 64); err == nil {
				return NewInt(n), nil
			}
		}
		f, err := t.Float64()
		if err != nil {
			return Value{}, err
		}
		return NewFloat(f), nil
	case json.Delim:
		switch t {
		case '[':
			var elems []Value
			for dec.More() {
				v, err := decodeJSON(dec)
				if err != nil {
					return Value{}, err
				}
				elems = append(elems, v)
			}
			if _, err := dec.Token(); err != nil { // ']'
				return Value{}, err
			}
			return NewList(elems), nil
		case '{':
			var fields []Field
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return Value{}, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return Value{}, fmt.Errorf("object key %v", keyTok)
				}
				v, err := decodeJSON(dec)
				if err != nil {
					return Value{}, err
				}
				fields = append(fields, Field{Name: key, Val: v})
			}
			if _, err := dec.Token(); err != nil { // '}'
				return Value{}, err
			}
			return NewRecord(fields), nil
		}
	}
	return Value{}, fmt.Errorf("unexpected token %v", tok)
}
