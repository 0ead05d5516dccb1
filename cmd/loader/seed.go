package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"loader/internal/config"
	"loader/internal/store"
)

var seedCmd = &cobra.Command{
	Use:   "seed [refs.yaml]",
	Short: "Заполнить справочники из YAML",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _ := loadConfig()
		path := cfg.Reference.SeedFile
		if len(args) == 1 {
			path = args[0]
		}
		if path == "" {
			return fmt.Errorf("укажите файл справочников")
		}

		data, err := store.LoadSeedFile(path)
		if err != nil {
			return err
		}
		if _, err := config.EnsureDataDir(cfg); err != nil {
			return err
		}
		st, err := store.New(config.DBPath(cfg))
		if err != nil {
			return err
		}
		defer st.Close()

		report, err := st.Seed(cmd.Context(), data)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Добавлено: справочники %d, улицы %d, модели %d, порты %d\n",
			report.Items, report.Streets, report.Devices, report.Ports)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
}
