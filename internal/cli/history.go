package cli

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/ppiankov/dossier/internal/pipeline"
	"github.com/ppiankov/dossier/internal/store"
)

var (
	historyCompany string
	historyLimit   int
	historyFormat  string
)

// historyCmd represents the history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Browse saved lookups",
	Long: `Browse lookups saved with --save or with store.enabled in the config file.

Example:
  dossier history list
  dossier history list --company acme --limit 10
  dossier history show <id> --format markdown`,
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved lookups, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openHistory()
		if err != nil {
			return err
		}
		defer func() { _ = st.Close() }()

		lookups, err := st.List(cmd.Context(), historyCompany, historyLimit)
		if err != nil {
			return err
		}
		if len(lookups) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No saved lookups.")
			return nil
		}

		fmt.Fprintln(cmd.OutOrStdout(), historyTable(lookups))
		return nil
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one saved lookup",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openHistory()
		if err != nil {
			return err
		}
		defer func() { _ = st.Close() }()

		l, err := st.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		out, err := pipeline.NewRenderer().Render(pipeline.FromLookup(*l), historyFormat)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)

	historyListCmd.Flags().StringVar(&historyCompany, "company", "", "only lookups for this company (case-insensitive)")
	historyListCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum number of lookups to list")
	historyShowCmd.Flags().StringVar(&historyFormat, "format", pipeline.FormatTable, "output format: table, markdown, json")
}

func openHistory() (*store.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return store.Open(cfg.Store.Path)
}

func historyTable(lookups []store.Lookup) string {
	rows := make([][]string, 0, len(lookups))
	for _, l := range lookups {
		status := "complete"
		if l.Degraded {
			status = fmt.Sprintf("degraded (%d)", len(l.Notices))
		}
		rows = append(rows, []string{
			l.ID,
			l.CreatedAt.Local().Format("2006-01-02 15:04"),
			l.Company,
			l.Country,
			status,
			fmt.Sprintf("%d/100", l.Score),
			l.Duration.Round(time.Second).String(),
		})
	}

	header := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cell := lipgloss.NewStyle().Padding(0, 1)

	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("240"))).
		Headers("ID", "Created", "Company", "Country", "Status", "Score", "Took").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			return cell
		}).
		String()
}
