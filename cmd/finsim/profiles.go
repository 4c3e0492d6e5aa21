package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/talgya/finsim/internal/report"
)

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "List difficulty profiles",
	RunE: func(_ *cobra.Command, _ []string) error {
		rows := [][]string{}
		for _, name := range cfg.Profiles.Names() {
			p := cfg.Profiles[name]
			rows = append(rows, []string{
				name,
				p.StartingCash.String(),
				p.MonthlyIncome.String(),
				p.LivingExpenses.String(),
				p.CreditLimit.String(),
				fmt.Sprintf("%.1f%%", p.CreditAPR*100),
				fmt.Sprint(p.CreditScore),
			})
		}
		fmt.Println()
		fmt.Print(report.Table("Profiles", []string{"Mode", "Cash", "Income", "Expenses", "Credit", "APR", "Score"}, rows))
		fmt.Println()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(profilesCmd)
}
