package main

import (
	"encoding/json"
	"fmt"
	"os"

	"dailynews/pkg/ui"

	"github.com/spf13/cobra"
)

var (
	allArticles  bool
	articleLimit int
	asJSON       bool
)

// articlesCmd represents the articles command
var articlesCmd = &cobra.Command{
	Use:   "articles <category>",
	Short: "Show stored articles for a category",
	Long: `Show the articles stored for a category. By default only articles whose
date is today are listed; --all lists everything the store holds.`,
	Example: `  dailynews articles national
  dailynews articles world --all --limit 20
  dailynews articles business --json | jq '.[].title'`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd, nil)
		if err != nil {
			return err
		}
		cat, ok := cfg.Category(args[0])
		if !ok {
			return fmt.Errorf("unknown category %q (see 'dailynews categories')", args[0])
		}
		s, err := openReader(cfg)
		if err != nil {
			return err
		}

		articles := s.TodayArticles(cat.Name)
		if allArticles {
			articles = s.ArticlesFor(cat.Name)
		}

		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			enc.SetEscapeHTML(false)
			return enc.Encode(articles)
		}
		ui.Print(ui.RenderArticles(cat.Name, articles, articleLimit))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(articlesCmd)

	articlesCmd.Flags().BoolVar(&allArticles, "all", false, "include articles not published today")
	articlesCmd.Flags().IntVar(&articleLimit, "limit", 10, "maximum articles to print (0 for no limit)")
	articlesCmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a listing")
}
