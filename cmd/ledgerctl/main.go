// Command ledgerctl runs maintenance tasks against the ledger stores.
package main

import "os"

func main() {
	if err := newRootCmd(openStores).Execute(); err != nil {
		os.Exit(1)
	}
}
