package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/equityline/caseenrich/internal/secrets"
)

var secretsRef string

func init() {
	rootCmd.PersistentFlags().StringVar(&secretsRef, "secrets-file", "",
		"path to a JSON credentials file (default: CASEENRICH_* environment variables)")
}

// applySecrets fills the named credential fields the config left empty.
// Resolution only runs when something is actually missing, so a fully
// configured environment never touches the provider.
func applySecrets(ctx context.Context, names ...string) error {
	targets := map[string]*string{
		"DATABASE_URL":       &cfg.Store.DatabaseURL,
		"CAPTCHA_KEY":        &cfg.Captcha.Key,
		"ANTHROPIC_KEY":      &cfg.Anthropic.Key,
		"OCR_KEY":            &cfg.OCR.Key,
		"STORAGE_ACCESS_KEY": &cfg.Storage.AccessKey,
		"STORAGE_SECRET_KEY": &cfg.Storage.SecretKey,
	}

	var missing []string
	for _, name := range names {
		dst, ok := targets[name]
		if !ok {
			return eris.Errorf("unknown credential %s", name)
		}
		if *dst == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	var provider secrets.Provider = secrets.Env{}
	ref := "CASEENRICH"
	if secretsRef != "" {
		provider = secrets.File{}
		ref = secretsRef
	}
	values, err := provider.Credentials(ctx, ref)
	if err != nil {
		return err
	}

	for _, name := range missing {
		v, err := secrets.Require(values, name)
		if err != nil {
			return err
		}
		*targets[name] = v
	}
	return nil
}
