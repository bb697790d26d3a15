package assembler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

type kind int

const (
	kindNull kind = iota
	kindBool
	kindNumber
	kindString
	kindArray
	kindObject
)

// value is a JSON value that preserves object member order. Standard map
// decoding randomizes member order, which would break the document-order
// guarantee of span extraction.
type value struct {
	kind    kind
	members []member
	elems   []value
	str     string
	num     json.Number
	boolean bool
}

type member struct {
	key string
	val value
}

// decodeOrdered parses data as a single JSON value with ordered members.
func decodeOrdered(data []byte) (value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	v, err := parseValue(dec)
	if err != nil {
		return value{}, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return value{}, errors.New("trailing data after JSON value")
	}
	return v, nil
}

func parseValue(dec *json.Decoder) (value, error) {
	tok, err := dec.Token()
	if err != nil {
		return value{}, fmt.Errorf("read token: %w", err)
	}
	return parseToken(dec, tok)
}

func parseToken(dec *json.Decoder, tok json.Token) (value, error) {
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			return parseObject(dec)
		case '[':
			return parseArray(dec)
		default:
			return value{}, fmt.Errorf("unexpected delimiter %q", t)
		}
	case string:
		return value{kind: kindString, str: t}, nil
	case json.Number:
		return value{kind: kindNumber, num: t}, nil
	case bool:
		return value{kind: kindBool, boolean: t}, nil
	case nil:
		return value{kind: kindNull}, nil
	default:
		return value{}, fmt.Errorf("unexpected token %v", tok)
	}
}

func parseObject(dec *json.Decoder) (value, error) {
	obj := value{kind: kindObject}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return value{}, fmt.Errorf("read object key: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return value{}, fmt.Errorf("object key is not a string: %v", keyTok)
		}
		val, err := parseValue(dec)
		if err != nil {
			return value{}, err
		}
		obj.members = append(obj.members, member{key: key, val: val})
	}
	if _, err := dec.Token(); err != nil { // consume '}'
		return value{}, fmt.Errorf("read object end: %w", err)
	}
	return obj, nil
}

func parseArray(dec *json.Decoder) (value, error) {
	arr := value{kind: kindArray}
	for dec.More() {
		elem, err := parseValue(dec)
		if err != nil {
			return value{}, err
		}
		arr.elems = append(arr.elems, elem)
	}
	if _, err := dec.Token(); err != nil { // consume ']'
		return value{}, fmt.Errorf("read array end: %w", err)
	}
	return arr, nil
}

// intValue returns the value as an int when it is an integral JSON number.
func (v value) intValue() (int, bool) {
	if v.kind != kindNumber {
		return 0, false
	}
	i, err := v.num.Int64()
	if err != nil {
		return 0, false
	}
	return int(i), true
}

// stringify renders a scalar value as cell text. Nulls and containers
// render empty.
func (v value) stringify() string {
	switch v.kind {
	case kindString:
		return v.str
	case kindNumber:
		return v.num.String()
	case kindBool:
		if v.boolean {
			return "true"
		}
		return "false"
	default:
		return ""
	}
}
