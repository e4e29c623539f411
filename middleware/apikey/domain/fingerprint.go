package domain

import (
	"crypto/sha256"
	"encoding/hex"
)

// Fingerprint devolve um identificador curto e estável da chave, seguro para
// logs e estatísticas. O valor original nunca deve ser registrado.
func Fingerprint(key string) string {
	if key == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:6])
}
