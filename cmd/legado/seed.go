package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"legado/internal/config"
	"legado/internal/seed"
	"legado/internal/store"
)

var seedFile string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load the biography questions into the store",
	Long:  `Upserts the built-in question set (or one from --file) by order. Safe to run repeatedly.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		questions := seed.DefaultQuestions
		if seedFile != "" {
			questions, err = seed.LoadFile(seedFile)
			if err != nil {
				return err
			}
		}

		st, backend, err := store.Open(cfg.DatabaseURL, cfg.SQLitePath)
		if err != nil {
			return err
		}
		defer func() { _ = st.Close() }()
		if backend == "memory" {
			return fmt.Errorf("seeding an in-memory store is pointless; set DATABASE_URL or SQLITE_PATH")
		}

		n, err := seed.Apply(cmd.Context(), st, questions)
		if err != nil {
			return err
		}
		fmt.Printf("seeded %d questions into %s store\n", n, backend)
		return nil
	},
}

func init() {
	seedCmd.Flags().StringVar(&seedFile, "file", "", "YAML file with a custom question set")
}
