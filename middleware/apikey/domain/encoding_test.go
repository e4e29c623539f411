package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"gopkg.in/yaml.v3"
)

func TestLimit_JSONUsesTaggedShape(t *testing.T) {
	b, err := json.Marshal(Limits{MaxReadsPerMinute: Limited(100), MaxWritesPerMinute: Unlimited()})
	require.NoError(t, err)
	assert.JSONEq(t, `{"max_reads_per_minute":{"Limited":100},"max_writes_per_minute":"Unlimited"}`, string(b))
}

func TestLimit_JSONAcceptsBareNumber(t *testing.T) {
	var l Limit
	require.NoError(t, json.Unmarshal([]byte(`42`), &l))
	assert.Equal(t, Limited(42), l)
}

func TestLimit_JSONRejectsUnknownTag(t *testing.T) {
	var l Limit
	assert.Error(t, json.Unmarshal([]byte(`"Sometimes"`), &l))
	assert.Error(t, json.Unmarshal([]byte(`{"Bounded":3}`), &l))
}

func TestAPIKey_BSONDocumentShape(t *testing.T) {
	k := APIKey{
		Key:    "k1",
		Limits: Limits{MaxReadsPerMinute: Limited(5), MaxWritesPerMinute: Unlimited()},
		Status: StatusActive,
	}
	raw, err := bson.Marshal(k)
	require.NoError(t, err)

	reads := bson.Raw(raw).Lookup("limits", "max_reads_per_minute", "Limited")
	n, ok := reads.AsInt64OK()
	require.True(t, ok)
	assert.Equal(t, int64(5), n)
	assert.Equal(t, "Unlimited", bson.Raw(raw).Lookup("limits", "max_writes_per_minute").StringValue())

	var back APIKey
	require.NoError(t, bson.Unmarshal(raw, &back))
	assert.Equal(t, k.Limits, back.Limits)
	assert.Equal(t, k.Status, back.Status)
}

func TestLimit_YAMLAcceptsIntegerAndUnlimited(t *testing.T) {
	src := `
key: abc
limits:
  max_reads_per_minute: 30
  max_writes_per_minute: unlimited
status: Active
restrictions:
  allowed_domains: [example.com]
`
	var k APIKey
	require.NoError(t, yaml.Unmarshal([]byte(src), &k))
	assert.Equal(t, Limited(30), k.Limits.MaxReadsPerMinute)
	assert.True(t, k.Limits.MaxWritesPerMinute.IsUnlimited())
	assert.Equal(t, []string{"example.com"}, k.Restrictions.AllowedDomains)
}

func TestLimit_YAMLRejectsGarbage(t *testing.T) {
	var k APIKey
	err := yaml.Unmarshal([]byte("limits:\n  max_reads_per_minute: lots\n"), &k)
	assert.Error(t, err)
}
