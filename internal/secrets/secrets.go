// Package secrets resolves credential references at startup. The pipeline
// treats the backing service as an abstract capability: a reference goes
// in, a map of named secrets comes out.
package secrets

import (
	"context"
	"encoding/json"
	"os"
	"strings"

	"github.com/rotisserie/eris"
)

// Provider resolves one credential reference to its named values.
type Provider interface {
	Credentials(ctx context.Context, ref string) (map[string]string, error)
}

// Env resolves references against process environment variables. The
// reference is a prefix: ref "CAPTCHA" resolves every CAPTCHA_* variable,
// keyed by the remainder.
type Env struct{}

// Credentials implements Provider.
func (Env) Credentials(_ context.Context, ref string) (map[string]string, error) {
	prefix := ref + "_"
	values := make(map[string]string)
	for _, entry := range os.Environ() {
		key, value, ok := strings.Cut(entry, "=")
		if !ok || !strings.HasPrefix(key, prefix) {
			continue
		}
		values[strings.TrimPrefix(key, prefix)] = value
	}
	if len(values) == 0 {
		return nil, eris.Errorf("secrets: no environment values under %s", prefix)
	}
	return values, nil
}

// File resolves references as paths to JSON documents of string pairs,
// the same shape the managed secrets service stores.
type File struct{}

// Credentials implements Provider.
func (File) Credentials(_ context.Context, ref string) (map[string]string, error) {
	data, err := os.ReadFile(ref)
	if err != nil {
		return nil, eris.Wrapf(err, "secrets: read %s", ref)
	}
	var values map[string]string
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, eris.Wrapf(err, "secrets: decode %s", ref)
	}
	return values, nil
}

// Require pulls a named value out of a resolved credential set, failing
// loudly when absent. Missing startup credentials are batch-fatal.
func Require(values map[string]string, name string) (string, error) {
	v, ok := values[name]
	if !ok || v == "" {
		return "", eris.Errorf("secrets: missing required value %s", name)
	}
	return v, nil
}
