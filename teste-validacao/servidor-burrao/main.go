package main

import (
	"encoding/json"
	"net/http"
	"os"

	"apikey-gateway/middleware/apikey"
)

// Upstream burro para validar o gateway na mão: ecoa método, path e se a
// API key chegou até aqui (o gateway repassa os headers sem alterar).
func main() {
	logger := apikey.NewLogger(os.Stdout, false)

	http.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		logger.Info("request received", "method", r.Method, "path", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"method":      r.Method,
			"path":        r.URL.Path,
			"has_api_key": r.Header.Get(apikey.DefaultHeader) != "",
		})
	})

	logger.Info("upstream listening", "addr", ":8081")
	if err := http.ListenAndServe(":8081", nil); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}
