package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/ougirez/muniportal/internal/pkg/logger"
	"github.com/ougirez/muniportal/internal/service/importer"
	"github.com/spf13/cobra"
)

func importMunicipalitiesCmd() *cobra.Command {
	var (
		file  string
		sheet string
	)

	cmd := &cobra.Command{
		Use:   "import-municipalities",
		Short: "Upsert municipalities from an xlsx workbook",
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				return errors.New("--file is required")
			}

			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("read %s: %w", file, err)
			}

			items, err := importer.ParseMunicipalities(data, sheet)
			if err != nil {
				return err
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			db, st, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			n, err := st.UpsertMunicipalities(ctx, items)
			if err != nil {
				return err
			}

			logger.Infof(ctx, "municipalities import: %d rows from %s", n, file)
			fmt.Fprintf(cmd.OutOrStdout(), "upserted %d municipalities\n", n)
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "path to xlsx")
	cmd.Flags().StringVar(&sheet, "sheet", "", "sheet name, the first sheet by default")

	return cmd
}
