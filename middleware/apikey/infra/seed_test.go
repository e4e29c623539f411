package infra

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"apikey-gateway/middleware/apikey/domain"
)

const seedYAML = `
keys:
  - key: test_key
    limits:
      max_reads_per_minute: 100
      max_writes_per_minute: unlimited
    restrictions:
      allowed_domains: [example.com]
  - key: retired
    status: Inactive
    limits:
      max_reads_per_minute: {Limited: 5}
      max_writes_per_minute: 0
`

func TestParseSeed(t *testing.T) {
	recs, err := ParseSeed(strings.NewReader(seedYAML))
	require.NoError(t, err)
	require.Len(t, recs, 2)

	assert.Equal(t, "test_key", recs[0].Key)
	assert.Equal(t, domain.StatusActive, recs[0].Status)
	assert.Equal(t, domain.Limited(100), recs[0].Limits.MaxReadsPerMinute)
	assert.True(t, recs[0].Limits.MaxWritesPerMinute.IsUnlimited())
	assert.Equal(t, []string{"example.com"}, recs[0].Restrictions.AllowedDomains)

	assert.Equal(t, domain.StatusInactive, recs[1].Status)
	assert.Equal(t, domain.Limited(5), recs[1].Limits.MaxReadsPerMinute)
	assert.Equal(t, domain.Limited(0), recs[1].Limits.MaxWritesPerMinute)
}

func TestParseSeed_Empty(t *testing.T) {
	recs, err := ParseSeed(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestParseSeed_Rejects(t *testing.T) {
	cases := map[string]string{
		"empty key":     "keys:\n  - status: Active\n",
		"unknown field": "keys:\n  - key: a\n    owner: bob\n",
		"bad limit":     "keys:\n  - key: a\n    limits:\n      max_reads_per_minute: lots\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseSeed(strings.NewReader(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadSeedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys.yaml")
	require.NoError(t, os.WriteFile(path, []byte(seedYAML), 0o600))

	recs, err := LoadSeedFile(path)
	require.NoError(t, err)
	assert.Len(t, recs, 2)

	_, err = LoadSeedFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestSeedStorage_SkipsExisting(t *testing.T) {
	recs, err := ParseSeed(strings.NewReader(seedYAML))
	require.NoError(t, err)

	st := NewMemoryStorage()
	ctx := context.Background()

	res, err := SeedStorage(ctx, st, recs)
	require.NoError(t, err)
	assert.Equal(t, SeedResult{Stored: 2}, res)

	res, err = SeedStorage(ctx, st, recs)
	require.NoError(t, err)
	assert.Equal(t, SeedResult{Skipped: 2}, res)

	got, err := st.Retrieve(ctx, "test_key")
	require.NoError(t, err)
	assert.Equal(t, domain.Limited(100), got.Limits.MaxReadsPerMinute)
}
