package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/emrekiziltepe/binge-log/internal/identity"
	"github.com/emrekiziltepe/binge-log/internal/model"
	"github.com/emrekiziltepe/binge-log/internal/store"
)

// seriesDetailExample shows the series detail format: season,episode,...
// rows separated by semicolons.
const seriesDetailExample = "1,1,2,3;2,1"

func init() {
	// add
	var (
		rec         model.ActivityRecord
		category    string
		interactive bool
	)
	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Log an activity",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if interactive {
				recent, err := store.Recent(ctx, application.Store, identity.UserID(application.Identity))
				if err != nil {
					application.Log.Warn().Err(err).Msg("reading recent activities failed")
				}
				filled, err := runAddForm(rec, category, recent, application.Today())
				if err != nil {
					return err
				}
				rec = filled
			} else {
				c, err := model.ParseCategory(category)
				if err != nil {
					return err
				}
				rec.Category = c
			}

			date := rec.Date
			if date == "" {
				date = application.Today()
			}
			svc, err := application.ActivitiesFor(ctx, date)
			if err != nil {
				return err
			}
			saved, err := svc.Add(ctx, rec)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatRecord(application.Theme(ctx), saved))
			return nil
		},
	}
	addCmd.Flags().StringVarP(&rec.Title, "title", "t", "", "Title of the book, series, movie, game, course or sport")
	addCmd.Flags().StringVarP(&category, "category", "k", "", "Category: book, series, movie, game, education or sport")
	addCmd.Flags().StringVarP(&rec.Detail, "detail", "d", "", "Pages, season,episodes ("+seriesDetailExample+") or duration (1h30m)")
	addCmd.Flags().IntVarP(&rec.Rating, "rating", "r", 0, "Rating from 1 to 10")
	addCmd.Flags().StringVar(&rec.Date, "date", "", "Day to log on (YYYY-MM-DD, defaults to today)")
	addCmd.Flags().BoolVar(&rec.IsCompleted, "completed", false, "Mark as finished")
	addCmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Fill in the record with a form")
	rootCmd.AddCommand(addCmd)

	// list
	var (
		listDate string
		listAll  bool
	)
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List a day's activities, or the whole history",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			th := application.Theme(ctx)
			if listAll {
				printRecords(cmd.OutOrStdout(), th, application.History.All(ctx))
				return nil
			}
			svc, err := application.ActivitiesFor(ctx, dateOrToday(listDate))
			if err != nil {
				return err
			}
			printRecords(cmd.OutOrStdout(), th, svc.Records())
			return nil
		},
	}
	listCmd.Flags().StringVar(&listDate, "date", "", "Day to list (YYYY-MM-DD, defaults to today)")
	listCmd.Flags().BoolVarP(&listAll, "all", "a", false, "List every logged day")
	rootCmd.AddCommand(listCmd)

	// delete
	var deleteDate string
	deleteCmd := &cobra.Command{
		Use:   "delete ID",
		Short: "Delete an activity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, err := application.ActivitiesFor(ctx, dateOrToday(deleteDate))
			if err != nil {
				return err
			}
			target, err := findRecord(svc, args[0])
			if err != nil {
				return err
			}
			if err := svc.Delete(ctx, target); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", target.Title)
			return nil
		},
	}
	deleteCmd.Flags().StringVar(&deleteDate, "date", "", "Day the activity is logged on (defaults to today)")
	rootCmd.AddCommand(deleteCmd)

	// complete
	var completeDate string
	completeCmd := &cobra.Command{
		Use:   "complete ID",
		Short: "Complete a planned activity, moving it to today",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if completeDate == "" {
				return fmt.Errorf("--date of the planned activity is required")
			}
			svc, err := application.ActivitiesFor(ctx, completeDate)
			if err != nil {
				return err
			}
			target, err := findRecord(svc, args[0])
			if err != nil {
				return err
			}
			done, err := svc.CompleteGoal(ctx, target)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatRecord(application.Theme(ctx), done))
			return nil
		},
	}
	completeCmd.Flags().StringVar(&completeDate, "date", "", "Day the activity was planned for (required)")
	rootCmd.AddCommand(completeCmd)

	// recent
	recentCmd := &cobra.Command{
		Use:   "recent",
		Short: "Show recently logged titles",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			th := application.Theme(ctx)
			recent, err := store.Recent(ctx, application.Store, identity.UserID(application.Identity))
			if err != nil {
				return err
			}
			for _, r := range recent {
				fmt.Fprintln(cmd.OutOrStdout(), th.Category(r.Category).Render(string(r.Category)), r.Title, r.Detail)
			}
			return nil
		},
	}
	rootCmd.AddCommand(recentCmd)
}

func dateOrToday(date string) string {
	if date == "" {
		return application.Today()
	}
	return date
}
