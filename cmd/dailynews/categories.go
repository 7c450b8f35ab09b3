package main

import (
	"dailynews/pkg/ui"

	"github.com/spf13/cobra"
)

// categoriesCmd represents the categories command
var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "List configured categories and what is stored for each",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd, nil)
		if err != nil {
			return err
		}
		s, err := openReader(cfg)
		if err != nil {
			return err
		}

		var rows []ui.CategoryRow
		for _, name := range s.ListCategories() {
			cat, _ := cfg.Category(name)
			rows = append(rows, ui.CategoryRow{
				Name:   name,
				URL:    cat.URL,
				Stored: len(s.ArticlesFor(name)),
				Today:  len(s.TodayArticles(name)),
			})
		}
		ui.Print(ui.RenderCategories(rows))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(categoriesCmd)
}
