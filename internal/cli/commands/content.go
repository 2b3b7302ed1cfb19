package commands

import (
	"strconv"
	"strings"

	"github.com/contentanonymity/backend/internal/cli/api"
	"github.com/contentanonymity/backend/internal/cli/output"
	"github.com/spf13/cobra"
)

var (
	articleQuery     api.ArticleQuery
	leaderboardLimit int
)

var articlesCmd = &cobra.Command{
	Use:   "articles",
	Short: "Browse published articles",
}

var articlesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List published articles",
	RunE: func(cmd *cobra.Command, args []string) error {
		page, err := api.ListArticles(articleQuery)
		if err != nil {
			return err
		}
		if len(page.Items) == 0 && output.GetFormat() != output.FormatJSON {
			output.PrintInfo("No articles found.")
			return nil
		}

		rows := make([][]string, 0, len(page.Items))
		for _, a := range page.Items {
			rows = append(rows, []string{
				a.Slug,
				a.Title,
				a.Category,
				strings.Join(a.Tags, ", "),
				strconv.Itoa(a.ViewCount),
			})
		}
		if err := output.PrintList([]string{"SLUG", "TITLE", "CATEGORY", "TAGS", "VIEWS"}, rows, page); err != nil {
			return err
		}
		if output.GetFormat() != output.FormatJSON && int64(page.Offset+page.Count) < page.Total {
			output.PrintInfo("Showing %d-%d of %d, use --offset for more.", page.Offset+1, page.Offset+page.Count, page.Total)
		}
		return nil
	},
}

var leaderboardCmd = &cobra.Command{
	Use:   "leaderboard",
	Short: "Show the top members by points",
	RunE: func(cmd *cobra.Command, args []string) error {
		entries, err := api.Leaderboard(leaderboardLimit)
		if err != nil {
			return err
		}
		rows := make([][]string, 0, len(entries))
		for _, e := range entries {
			rows = append(rows, []string{
				strconv.Itoa(e.Rank),
				e.Username,
				strconv.Itoa(e.Points),
				strconv.Itoa(e.Level),
			})
		}
		return output.PrintList([]string{"RANK", "USERNAME", "POINTS", "LEVEL"}, rows, entries)
	},
}

func init() {
	f := articlesListCmd.Flags()
	f.StringVar(&articleQuery.Category, "category", "", "Filter by category")
	f.StringVar(&articleQuery.Tag, "tag", "", "Filter by tag")
	f.StringVarP(&articleQuery.Query, "query", "q", "", "Match title or excerpt")
	f.StringVar(&articleQuery.Sort, "sort", "", "newest, oldest, popular or title")
	f.IntVar(&articleQuery.Limit, "limit", 20, "Page size")
	f.IntVar(&articleQuery.Offset, "offset", 0, "Rows to skip")
	articlesCmd.AddCommand(articlesListCmd)

	leaderboardCmd.Flags().IntVarP(&leaderboardLimit, "limit", "n", 10, "Number of members")
}
