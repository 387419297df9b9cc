// Command ecobudctl is the operator CLI: it runs syncs and analytics
// against the configured store, exports transactions, registers the Tink
// webhook and applies SQLite migrations.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
