package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// LoadEnv reads KEY=VALUE pairs from path into the process environment.
// Variables already set win. A missing file is not an error.
func LoadEnv(path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load env %s: %w", path, err)
	}
	return nil
}

// SupabaseFromEnv returns the PostgREST base URL and API key. The service
// role key is preferred over the anonymous key.
func SupabaseFromEnv() (url, key string) {
	url = firstEnv("SUPABASE_URL", "VITE_SUPABASE_URL")
	key = firstEnv("SUPABASE_SERVICE_ROLE_KEY", "VITE_SUPABASE_SERVICE_ROLE_KEY", "VITE_SUPABASE_ANON_KEY")
	return url, key
}

// ApplyEnv fills REST credentials left empty in the file from the
// environment.
func (p *Pipeline) ApplyEnv() {
	url, key := SupabaseFromEnv()
	if strings.TrimSpace(p.REST.URL) == "" {
		p.REST.URL = url
	}
	if strings.TrimSpace(p.REST.APIKey) == "" {
		p.REST.APIKey = key
	}
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(os.Getenv(k)); v != "" {
			return v
		}
	}
	return ""
}
