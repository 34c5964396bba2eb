package bolt

import (
	"errors"
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"

	"featnav/internal/feature"
	"featnav/internal/geom"
	"featnav/internal/source"
)

// Row wire format (protobuf encoding, no generated code):
//
//	message Row {
//	  optional int64 id = 1;
//	  optional bytes geometry = 2;   // GeoJSON geometry object
//	  repeated Attribute attrs = 3;
//	}
//	message Attribute {
//	  string name = 1;
//	  oneof value {
//	    sint64 int = 2;
//	    double float = 3;
//	    string str = 4;
//	    bool bool = 5;
//	    bool null = 6;
//	  }
//	}
const (
	rowID       protowire.Number = 1
	rowGeometry protowire.Number = 2
	rowAttr     protowire.Number = 3

	attrName  protowire.Number = 1
	attrInt   protowire.Number = 2
	attrFloat protowire.Number = 3
	attrStr   protowire.Number = 4
	attrBool  protowire.Number = 5
	attrNull  protowire.Number = 6
)

// ErrCorruptRow is wrapped by every decode failure.
var ErrCorruptRow = errors.New("corrupt dataset row")

func encodeRow(r source.Row) ([]byte, error) {
	var b []byte
	if r.ID != nil {
		b = protowire.AppendTag(b, rowID, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(*r.ID))
	}
	if r.Geometry != nil {
		g, err := geom.MarshalGeoJSON(r.Geometry)
		if err != nil {
			return nil, err
		}
		b = protowire.AppendTag(b, rowGeometry, protowire.BytesType)
		b = protowire.AppendBytes(b, g)
	}
	for _, name := range r.Attributes.Names() {
		if name == feature.IDField {
			continue
		}
		b = protowire.AppendTag(b, rowAttr, protowire.BytesType)
		b = protowire.AppendBytes(b, encodeAttr(name, r.Attributes[name]))
	}
	return b, nil
}

func encodeAttr(name string, v feature.Value) []byte {
	var b []byte
	b = protowire.AppendTag(b, attrName, protowire.BytesType)
	b = protowire.AppendString(b, name)
	switch v.Kind() {
	case feature.KindInt:
		i, _ := v.AsInt()
		b = protowire.AppendTag(b, attrInt, protowire.VarintType)
		b = protowire.AppendVarint(b, protowire.EncodeZigZag(i))
	case feature.KindFloat:
		f, _ := v.AsFloat()
		b = protowire.AppendTag(b, attrFloat, protowire.Fixed64Type)
		b = protowire.AppendFixed64(b, math.Float64bits(f))
	case feature.KindString:
		s, _ := v.AsString()
		b = protowire.AppendTag(b, attrStr, protowire.BytesType)
		b = protowire.AppendString(b, s)
	case feature.KindBool:
		t, _ := v.AsBool()
		b = protowire.AppendTag(b, attrBool, protowire.VarintType)
		b = protowire.AppendVarint(b, protowire.EncodeBool(t))
	default:
		b = protowire.AppendTag(b, attrNull, protowire.VarintType)
		b = protowire.AppendVarint(b, 1)
	}
	return b
}

func decodeRow(b []byte) (source.Row, error) {
	row := source.Row{Attributes: feature.Attributes{}}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return row, fmt.Errorf("%w: %w", ErrCorruptRow, protowire.ParseError(n))
		}
		b = b[n:]

		switch {
		case num == rowID && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return row, fmt.Errorf("%w: id: %w", ErrCorruptRow, protowire.ParseError(n))
			}
			row.ID = source.ID(int64(v))
			b = b[n:]
		case num == rowGeometry && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return row, fmt.Errorf("%w: geometry: %w", ErrCorruptRow, protowire.ParseError(n))
			}
			g, err := geom.UnmarshalGeoJSON(v)
			if err != nil {
				return row, fmt.Errorf("%w: %w", ErrCorruptRow, err)
			}
			row.Geometry = g
			b = b[n:]
		case num == rowAttr && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return row, fmt.Errorf("%w: attribute: %w", ErrCorruptRow, protowire.ParseError(n))
			}
			name, val, err := decodeAttr(v)
			if err != nil {
				return row, err
			}
			row.Attributes[name] = val
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return row, fmt.Errorf("%w: field %d: %w", ErrCorruptRow, num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	return row, nil
}

func decodeAttr(b []byte) (string, feature.Value, error) {
	var (
		name    string
		val     = feature.Null()
		hasName bool
	)
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return "", val, fmt.Errorf("%w: %w", ErrCorruptRow, protowire.ParseError(n))
		}
		b = b[n:]

		switch {
		case num == attrName && typ == protowire.BytesType:
			s, m := protowire.ConsumeString(b)
			name, hasName, n = s, true, m
		case num == attrInt && typ == protowire.VarintType:
			v, m := protowire.ConsumeVarint(b)
			val, n = feature.Int(protowire.DecodeZigZag(v)), m
		case num == attrFloat && typ == protowire.Fixed64Type:
			v, m := protowire.ConsumeFixed64(b)
			val, n = feature.Float(math.Float64frombits(v)), m
		case num == attrStr && typ == protowire.BytesType:
			s, m := protowire.ConsumeString(b)
			val, n = feature.String(s), m
		case num == attrBool && typ == protowire.VarintType:
			v, m := protowire.ConsumeVarint(b)
			val, n = feature.Bool(protowire.DecodeBool(v)), m
		case num == attrNull && typ == protowire.VarintType:
			_, m := protowire.ConsumeVarint(b)
			val, n = feature.Null(), m
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
		}
		if n < 0 {
			return "", val, fmt.Errorf("%w: attribute field %d: %w", ErrCorruptRow, num, protowire.ParseError(n))
		}
		b = b[n:]
	}
	if !hasName {
		return "", val, fmt.Errorf("%w: attribute without name", ErrCorruptRow)
	}
	return name, val, nil
}
