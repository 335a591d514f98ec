package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/emrekiziltepe/binge-log/internal/model"
	"github.com/emrekiziltepe/binge-log/internal/stats"
)

const barWidth = 30

func init() {
	// stats
	var period string
	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show streaks and goal progress",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			p, err := model.ParsePeriod(period)
			if err != nil {
				return err
			}
			th := application.Theme(ctx)
			out := cmd.OutOrStdout()
			now := application.Now()

			records := application.History.All(ctx)
			streak := stats.Streaks(records, now)
			fmt.Fprintln(out, th.Header().Render("Streak"))
			fmt.Fprintf(out, "current %d days, longest %d days, %d active days\n\n", streak.Current, streak.Longest, streak.ActiveDays)

			tree, err := application.Goals.GetGoals(ctx)
			if err != nil {
				return err
			}
			start, end := stats.PeriodRange(p, now)
			aggs := stats.BuildAggregates(records, p, now)
			fmt.Fprintln(out, th.Header().Render(fmt.Sprintf("%s %s to %s", p, start, end)))
			for _, c := range model.Categories {
				agg := aggs[c]
				line := fmt.Sprintf("%-20s %3d logged", th.Category(c).Render(string(c)), agg.Count)
				if progress := stats.CalculateProgress(c, p, tree, aggs, now); progress != nil {
					line += "  " + th.ProgressBar(c, *progress, barWidth)
				}
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}
	statsCmd.Flags().StringVarP(&period, "period", "p", string(model.PeriodWeekly), "weekly or monthly")
	rootCmd.AddCommand(statsCmd)

	// goal
	goalCmd := &cobra.Command{Use: "goal", Short: "Manage weekly and monthly goals"}

	var setDate string
	setCmd := &cobra.Command{
		Use:   "set PERIOD CATEGORY VALUE",
		Short: "Set a category goal for the current week or month",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, c, err := parseGoalTarget(args[0], args[1])
			if err != nil {
				return err
			}
			value, err := strconv.ParseFloat(args[2], 64)
			if err != nil {
				return &model.ValidationError{Field: "value", Message: "goal must be a number"}
			}
			date, err := goalDate(setDate)
			if err != nil {
				return err
			}
			if _, err := application.Goals.SetCategoryGoal(cmd.Context(), p, c, &value, date); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s goal set to %s\n", p, c, args[2])
			return nil
		},
	}
	setCmd.Flags().StringVar(&setDate, "date", "", "Any day of the target period (defaults to today)")
	goalCmd.AddCommand(setCmd)

	var clearDate string
	clearCmd := &cobra.Command{
		Use:   "clear PERIOD CATEGORY",
		Short: "Remove a category goal",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, c, err := parseGoalTarget(args[0], args[1])
			if err != nil {
				return err
			}
			date, err := goalDate(clearDate)
			if err != nil {
				return err
			}
			if _, err := application.Goals.DeleteCategoryGoal(cmd.Context(), p, c, date); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s goal cleared\n", p, c)
			return nil
		},
	}
	clearCmd.Flags().StringVar(&clearDate, "date", "", "Any day of the target period (defaults to today)")
	goalCmd.AddCommand(clearCmd)

	rootCmd.AddCommand(goalCmd)
}

func parseGoalTarget(period, category string) (model.Period, model.Category, error) {
	p, err := model.ParsePeriod(period)
	if err != nil {
		return "", "", err
	}
	c, err := model.ParseCategory(category)
	if err != nil {
		return "", "", err
	}
	return p, c, nil
}
