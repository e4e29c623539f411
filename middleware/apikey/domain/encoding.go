package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"gopkg.in/yaml.v3"
)

// Formato de documento (JSON/BSON): "Unlimited" ou {"Limited": n}.
// Em YAML (arquivos de seed) aceitamos também um inteiro puro ou "unlimited".
const (
	unlimitedTag = "Unlimited"
	limitedTag   = "Limited"
)

func (l Limit) MarshalJSON() ([]byte, error) {
	if l.unlimited {
		return json.Marshal(unlimitedTag)
	}
	return json.Marshal(map[string]uint32{limitedTag: l.max})
}

func (l *Limit) UnmarshalJSON(data []byte) error {
	var tag string
	if err := json.Unmarshal(data, &tag); err == nil {
		return l.fromTag(tag)
	}

	var n uint32
	if err := json.Unmarshal(data, &n); err == nil {
		*l = Limited(n)
		return nil
	}

	var obj map[string]uint32
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("limit: unsupported json value %s", string(data))
	}
	n, ok := obj[limitedTag]
	if !ok || len(obj) != 1 {
		return fmt.Errorf("limit: expected {%q: n}, got %s", limitedTag, string(data))
	}
	*l = Limited(n)
	return nil
}

func (l Limit) MarshalBSONValue() (bsontype.Type, []byte, error) {
	if l.unlimited {
		return bson.MarshalValue(unlimitedTag)
	}
	return bson.MarshalValue(bson.D{{Key: limitedTag, Value: int64(l.max)}})
}

func (l *Limit) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	rv := bson.RawValue{Type: t, Value: data}
	switch t {
	case bsontype.String:
		return l.fromTag(rv.StringValue())
	case bsontype.EmbeddedDocument:
		v, err := rv.Document().LookupErr(limitedTag)
		if err != nil {
			return fmt.Errorf("limit: expected {%q: n} document: %w", limitedTag, err)
		}
		return l.fromInt64(v.AsInt64OK())
	default:
		return l.fromInt64(rv.AsInt64OK())
	}
}

func (l Limit) MarshalYAML() (interface{}, error) {
	if l.unlimited {
		return "unlimited", nil
	}
	return l.max, nil
}

func (l *Limit) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		if strings.EqualFold(strings.TrimSpace(node.Value), unlimitedTag) {
			*l = Unlimited()
			return nil
		}
		n, err := strconv.ParseUint(strings.TrimSpace(node.Value), 10, 32)
		if err != nil {
			return fmt.Errorf("limit: line %d: expected integer or \"unlimited\", got %q", node.Line, node.Value)
		}
		*l = Limited(uint32(n))
		return nil
	case yaml.MappingNode:
		var obj map[string]uint32
		if err := node.Decode(&obj); err != nil {
			return fmt.Errorf("limit: line %d: %w", node.Line, err)
		}
		n, ok := obj[limitedTag]
		if !ok {
			return fmt.Errorf("limit: line %d: expected %q key", node.Line, limitedTag)
		}
		*l = Limited(n)
		return nil
	default:
		return fmt.Errorf("limit: line %d: unsupported yaml node", node.Line)
	}
}

func (l *Limit) fromTag(tag string) error {
	if !strings.EqualFold(tag, unlimitedTag) {
		return fmt.Errorf("limit: unknown tag %q", tag)
	}
	*l = Unlimited()
	return nil
}

func (l *Limit) fromInt64(n int64, ok bool) error {
	if !ok || n < 0 || n > int64(^uint32(0)) {
		return fmt.Errorf("limit: invalid numeric ceiling")
	}
	*l = Limited(uint32(n))
	return nil
}
