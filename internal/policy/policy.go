// Package policy gates which commands an embedding agent may invoke.
// An agent that can sign transactions should not get the whole CLI
// surface by default.
package policy

import (
	"strings"

	clierr "github.com/larivera/evm-agent/internal/errors"
)

// CheckCommandAllowed enforces an allowlist of command paths. An empty
// allowlist permits everything. An entry matches its own path and every
// subcommand underneath it, so "token" also allows "token report".
func CheckCommandAllowed(allowlist []string, commandPath string) error {
	if len(allowlist) == 0 {
		return nil
	}
	path := normalize(commandPath)
	for _, allowed := range allowlist {
		entry := normalize(allowed)
		if entry == "" {
			continue
		}
		if path == entry || strings.HasPrefix(path, entry+" ") {
			return nil
		}
	}
	return clierr.New(clierr.CodeBlocked, "command blocked by --enable-commands policy")
}

func normalize(v string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(v))), " ")
}
