package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/emrekiziltepe/binge-log/internal/model"
	"github.com/emrekiziltepe/binge-log/internal/store"
)

// runAddForm asks for the fields of a new record, starting from the values
// given on the command line. A recent entry can be picked to prefill the
// title, category and detail.
func runAddForm(rec model.ActivityRecord, category string, recent []store.RecentActivity, today string) (model.ActivityRecord, error) {
	if len(recent) > 0 && rec.Title == "" {
		picked := -1
		options := []huh.Option[int]{huh.NewOption("Something new", -1)}
		for i, r := range recent {
			options = append(options, huh.NewOption(fmt.Sprintf("%s (%s)", r.Title, r.Category), i))
		}
		err := huh.NewForm(
			huh.NewGroup(
				huh.NewSelect[int]().
					Title("Recent").
					Description("Continue something you logged before").
					Options(options...).
					Value(&picked),
			),
		).Run()
		if err != nil {
			return rec, formError(err)
		}
		if picked >= 0 {
			rec.Title = recent[picked].Title
			category = string(recent[picked].Category)
			rec.Detail = recent[picked].Detail
		}
	}

	categoryOptions := make([]huh.Option[string], 0, len(model.Categories))
	for _, c := range model.Categories {
		categoryOptions = append(categoryOptions, huh.NewOption(string(c), string(c)))
	}

	rating := ""
	if rec.Rating > 0 {
		rating = strconv.Itoa(rec.Rating)
	}
	if rec.Date == "" {
		rec.Date = today
	}

	err := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Title").
				Value(&rec.Title).
				Validate(validateRequired("Title")),
			huh.NewSelect[string]().
				Title("Category").
				Options(categoryOptions...).
				Value(&category),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Detail").
				Description("Pages for books, season,episodes for series ("+seriesDetailExample+"), 1h30m for sport").
				Value(&rec.Detail).
				Validate(func(s string) error {
					if model.Category(category) != model.CategorySeries {
						return nil
					}
					_, err := model.ParseSeriesDetail(s)
					return err
				}),
			huh.NewInput().
				Title("Rating").
				Description("1-10, blank for none").
				Value(&rating).
				Validate(validateRating),
			huh.NewInput().
				Title("Date").
				Description("YYYY-MM-DD; a future date plans the activity").
				Value(&rec.Date).
				Validate(validateDate),
			huh.NewConfirm().
				Title("Finished?").
				Value(&rec.IsCompleted),
		),
	).Run()
	if err != nil {
		return rec, formError(err)
	}

	c, err := model.ParseCategory(category)
	if err != nil {
		return rec, err
	}
	rec.Category = c
	rec.Title = strings.TrimSpace(rec.Title)
	rec.Date = strings.TrimSpace(rec.Date)
	rec.Rating, _ = parseRating(rating)
	return rec, nil
}

func formError(err error) error {
	if errors.Is(err, huh.ErrUserAborted) {
		return errors.New("cancelled")
	}
	return err
}

func validateRequired(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}
}

func validateRating(s string) error {
	_, err := parseRating(s)
	return err
}

func parseRating(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 || n > 10 {
		return 0, &model.ValidationError{Field: "rating", Message: "rating must be between 0 and 10"}
	}
	return n, nil
}

func validateDate(s string) error {
	if _, err := model.ParseDate(strings.TrimSpace(s)); err != nil {
		return &model.ValidationError{Field: "date", Message: "date must be YYYY-MM-DD"}
	}
	return nil
}
