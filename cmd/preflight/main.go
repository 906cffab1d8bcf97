// cmd/preflight/main.go
package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/hamed0406/uptimewatch/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "✖", err)
		os.Exit(1)
	}
	if !check(cfg, os.Stdout, os.Stderr) {
		os.Exit(1)
	}
}

// check prints findings and reports whether the deploy may proceed.
func check(cfg config.Config, stdout, stderr io.Writer) bool {
	passed := true
	fail := func(msg string) {
		fmt.Fprintln(stderr, "✖", msg)
		passed = false
	}
	warn := func(msg string) { fmt.Fprintln(stderr, "⚠", msg) }
	ok := func(msg string) { fmt.Fprintln(stdout, "✔", msg) }

	switch {
	case len(cfg.AdminAPIKeys) == 0 && len(cfg.PublicAPIKeys) > 0:
		fail("ADMIN_API_KEYS is empty while PUBLIC_API_KEYS is set; admin routes will refuse every request.")
	case len(cfg.AdminAPIKeys) == 0:
		fail("ADMIN_API_KEYS is empty (every route is open when no keys are set).")
	}
	if len(cfg.PublicAPIKeys) == 0 {
		warn("PUBLIC_API_KEYS is empty; only admin keys can read.")
	}
	for _, k := range append(append([]string{}, cfg.AdminAPIKeys...), cfg.PublicAPIKeys...) {
		if len(k) < 16 {
			warn("an API key is shorter than 16 characters")
			break
		}
	}

	ok("API_ADDR=" + cfg.Addr)
	switch cfg.Storage {
	case config.StorageMemory:
		warn("STORAGE=memory; services and history are lost on restart.")
	case config.StoragePostgres:
		ok("STORAGE=postgres (DATABASE_URL present)")
	case config.StorageRedis:
		ok("STORAGE=redis at " + cfg.RedisAddr)
	default:
		ok("STORAGE=file in " + cfg.DataDir)
	}

	if cfg.VaultSecret == "" {
		warn("VAULT_SECRET empty; notification secrets must be re-entered after every restart.")
	} else {
		if len(cfg.VaultSecret) < 16 {
			warn("VAULT_SECRET is shorter than 16 characters.")
		}
		warn("VAULT_SECRET set; anyone holding it and the data store can decrypt notification secrets.")
	}

	if len(cfg.AllowedOrigins) == 0 {
		warn("ALLOWED_ORIGINS empty; CORS allows every origin.")
	} else {
		ok("ALLOWED_ORIGINS=" + strings.Join(cfg.AllowedOrigins, ","))
	}

	if passed {
		ok("preflight passed")
	}
	return passed
}
