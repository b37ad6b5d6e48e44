package catalog

import (
	"encoding/binary"
	"math"
	"strings"

	"github.com/kailas-cloud/rescuedex/internal/domain/entity"
)

// Hash field names.
const (
	fieldName       = "name"
	fieldCategory   = "category"
	fieldEmbedding  = "embedding"
	fieldKind       = "kind"
	fieldLocation   = "location"
	fieldAttributes = "attributes"
)

// attributeFields converts an Attribute into a flat map for HSET.
func attributeFields(a entity.Attribute) map[string]string {
	m := map[string]string{
		fieldName:     a.Name(),
		fieldCategory: a.Category(),
	}
	if a.HasEmbedding() {
		m[fieldEmbedding] = vectorToBytes(a.Embedding())
	}
	return m
}

// parseAttribute converts a hash back into an Attribute.
func parseAttribute(id string, m map[string]string) entity.Attribute {
	var vec []float32
	if raw, ok := m[fieldEmbedding]; ok && raw != "" {
		vec = bytesToVector(raw)
	}
	return entity.ReconstructAttribute(id, m[fieldName], m[fieldCategory], vec)
}

// entityFields converts an Entity into a flat map for HSET. Attributes are stored by id.
func entityFields(e entity.Entity) map[string]string {
	return map[string]string{
		fieldName:       e.Name(),
		fieldKind:       e.Kind(),
		fieldLocation:   e.Location(),
		fieldAttributes: strings.Join(e.AttributeIDs(), ","),
	}
}

// entityAttributeIDs splits the stored attribute id list.
func entityAttributeIDs(m map[string]string) []string {
	raw := m[fieldAttributes]
	if raw == "" {
		return nil
	}
	return strings.Split(raw, ",")
}

// vectorToBytes serializes []float32 to a binary string (4 bytes per float, little-endian).
func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}

// bytesToVector deserializes a binary string back to []float32.
func bytesToVector(s string) []float32 {
	b := []byte(s)
	if len(b)%4 != 0 {
		return nil
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}
