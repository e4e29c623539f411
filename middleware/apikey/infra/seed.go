package infra

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"apikey-gateway/middleware/apikey/domain"
)

// Arquivo de seed (YAML):
//
//	keys:
//	  - key: abc123
//	    status: Active
//	    limits:
//	      max_reads_per_minute: 100
//	      max_writes_per_minute: unlimited
//	    restrictions:
//	      allowed_domains: [example.com]
type seedFile struct {
	Keys []domain.APIKey `yaml:"keys"`
}

// ParseSeed lê registros de um YAML. Status vazio vira Active.
func ParseSeed(r io.Reader) ([]domain.APIKey, error) {
	var f seedFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("seed: %w", err)
	}
	for i := range f.Keys {
		if f.Keys[i].Key == "" {
			return nil, fmt.Errorf("seed: entry %d has empty key", i)
		}
		if f.Keys[i].Status == "" {
			f.Keys[i].Status = domain.StatusActive
		}
	}
	return f.Keys, nil
}

func LoadSeedFile(path string) ([]domain.APIKey, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("seed: %w", err)
	}
	defer f.Close()
	return ParseSeed(f)
}

// SeedResult resume o que SeedStorage fez.
type SeedResult struct {
	Stored  int
	Skipped int
}

// SeedStorage insere os registros. Chaves já existentes são contadas em
// Skipped e não interrompem o seed; qualquer outra falha interrompe.
func SeedStorage(ctx context.Context, st domain.Storage, records []domain.APIKey) (SeedResult, error) {
	var res SeedResult
	for i := range records {
		rec := &records[i]
		_, err := st.Store(ctx, rec.Key, rec)
		switch {
		case err == nil:
			res.Stored++
		case errors.Is(err, domain.ErrKeyAlreadyExists):
			res.Skipped++
		default:
			return res, fmt.Errorf("seed key %s: %w", domain.Fingerprint(rec.Key), err)
		}
	}
	return res, nil
}
