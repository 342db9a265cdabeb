package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pscheid92/chatledger/internal/adapter/legacyfile"
)

func newImportCmd(open storeOpener) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "import-legacy",
		Short: "Import a legacy JSON export and rename it to *.migrated",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			stores, cfg, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer stores.Close()

			if file == "" {
				file = cfg.LegacyDataFile
			}
			if file == "" {
				return errors.New("no file given: pass --file or set LEGACY_DATA_FILE")
			}

			result, err := legacyfile.Import(cmd.Context(), file, stores.Records)
			if err != nil {
				return err
			}
			if !result.Imported {
				return fmt.Errorf("legacy file %s does not exist", file)
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "imported %d records (%d healed), renamed to %s%s\n",
				result.Records, result.Healed, file, legacyfile.MigratedSuffix)
			return err
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "path to the legacy JSON export (default LEGACY_DATA_FILE)")
	return cmd
}
