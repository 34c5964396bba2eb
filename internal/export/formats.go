package export

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"featnav/internal/feature"
)

func writeCSV(w io.Writer, t table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.columns); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	record := make([]string, len(t.columns))
	for _, row := range t.rows {
		for i, v := range row {
			record[i] = csvCell(v)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func csvCell(v feature.Value) string {
	if v.IsNull() {
		return ""
	}
	return v.String()
}

// writeJSON emits an array with one object per row. Objects keep column
// order, so they are assembled by hand rather than from maps.
func writeJSON(w io.Writer, t table) error {
	bw := bufio.NewWriter(w)
	keys := make([][]byte, len(t.columns))
	for i, c := range t.columns {
		k, err := json.Marshal(c)
		if err != nil {
			return err
		}
		keys[i] = k
	}

	bw.WriteString("[")
	for r, row := range t.rows {
		if r > 0 {
			bw.WriteString(",")
		}
		bw.WriteString("\n  {")
		for i, v := range row {
			if i > 0 {
				bw.WriteString(", ")
			}
			val, err := jsonValue(v)
			if err != nil {
				return fmt.Errorf("row %d column %s: %w", r, t.columns[i], err)
			}
			bw.Write(keys[i])
			bw.WriteString(": ")
			bw.Write(val)
		}
		bw.WriteString("}")
	}
	if len(t.rows) > 0 {
		bw.WriteString("\n")
	}
	bw.WriteString("]\n")
	return bw.Flush()
}

func jsonValue(v feature.Value) ([]byte, error) {
	if f, ok := v.AsFloat(); ok && (math.IsNaN(f) || math.IsInf(f, 0)) {
		return []byte("null"), nil
	}
	return json.Marshal(v.Any())
}

// writeYAML emits a sequence of mappings. Nodes are built explicitly so
// keys stay in column order and scalars keep their type.
func writeYAML(w io.Writer, t table) error {
	seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
	if len(t.rows) == 0 {
		seq.Style = yaml.FlowStyle
	}
	for _, row := range t.rows {
		m := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for i, v := range row {
			m.Content = append(m.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: t.columns[i]},
				yamlScalar(v))
		}
		seq.Content = append(seq.Content, m)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(seq); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	return enc.Close()
}

func yamlScalar(v feature.Value) *yaml.Node {
	n := &yaml.Node{Kind: yaml.ScalarNode}
	switch v.Kind() {
	case feature.KindInt:
		n.Tag, n.Value = "!!int", v.String()
	case feature.KindFloat:
		f, _ := v.AsFloat()
		n.Tag, n.Value = "!!float", yamlFloat(f)
	case feature.KindString:
		n.Tag, n.Value = "!!str", v.String()
	case feature.KindBool:
		n.Tag, n.Value = "!!bool", v.String()
	default:
		n.Tag, n.Value = "!!null", "null"
	}
	return n
}

func yamlFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return ".nan"
	case math.IsInf(f, 1):
		return ".inf"
	case math.IsInf(f, -1):
		return "-.inf"
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}
