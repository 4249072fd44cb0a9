package value

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// FromJSON decodes JSON into a value. Object key order is preserved, which
// is why this walks the token stream instead of unmarshalling into a map.
func FromJSON(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	v, err := decodeValue(dec)
	if err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, fmt.Errorf("trailing data after JSON value")
	}
	return v, nil
}

func decodeValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	return decodeToken(dec, tok)
}

func decodeToken(dec *json.Decoder, tok json.Token) (Value, error) {
	switch t := tok.(type) {
	case nil:
		return None{}, nil
	case bool:
		return Bool(t), nil
	case string:
		return Str(t), nil
	case json.Number:
		if i, err := strconv.ParseInt(string(t), 10, 64); err == nil {
			return Int(i), nil
		}
		f, err := t.Float64()
		if err != nil {
			return nil, err
		}
		return Float(f), nil
	case json.Delim:
		switch t {
		case '[':
			list := NewList()
			for dec.More() {
				item, err := decodeValue(dec)
				if err != nil {
					return nil, err
				}
				list.Items = append(list.Items, item)
			}
			if _, err := dec.Token(); err != nil { // closing ]
				return nil, err
			}
			return list, nil
		case '{':
			d := NewDict()
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, fmt.Errorf("non-string object key %v", keyTok)
				}
				item, err := decodeValue(dec)
				if err != nil {
					return nil, err
				}
				d.Set(key, item)
			}
			if _, err := dec.Token(); err != nil { // closing }
				return nil, err
			}
			return d, nil
		}
	}
	return nil, fmt.Errorf("unexpected JSON token %v", tok)
}

// ToJSON encodes a value as JSON, writing dict keys in insertion order.
func ToJSON(v Value) ([]byte, error) {
	var buf bytes.Buffer
	if err := encodeValue(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeValue(buf *bytes.Buffer, v Value) error {
	switch t := v.(type) {
	case None:
		buf.WriteString("null")
	case Bool:
		if t {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case Int:
		buf.WriteString(strconv.FormatInt(int64(t), 10))
	case Float:
		b, err := json.Marshal(float64(t))
		if err != nil {
			return err
		}
		buf.Write(b)
	case Str:
		b, err := json.Marshal(string(t))
		if err != nil {
			return err
		}
		buf.Write(b)
	case *List:
		buf.WriteByte('[')
		for i, item := range t.Items {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encodeValue(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case *Dict:
		buf.WriteByte('{')
		for i, k := range t.keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, err := json.Marshal(k)
			if err != nil {
				return err
			}
			buf.Write(kb)
			buf.WriteByte(':')
			if err := encodeValue(buf, t.items[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("cannot encode %s value", v.Kind())
	}
	return nil
}
