package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/emrekiziltepe/binge-log/internal/activity"
	"github.com/emrekiziltepe/binge-log/internal/model"
	"github.com/emrekiziltepe/binge-log/internal/theme"
)

func themeOrDefault() theme.Theme {
	if application == nil {
		return theme.ForName("")
	}
	return application.Theme(context.Background())
}

// printRecords writes one line per record.
func printRecords(w io.Writer, th theme.Theme, records []model.ActivityRecord) {
	if len(records) == 0 {
		fmt.Fprintln(w, th.Help().Render("nothing logged"))
		return
	}
	for _, r := range records {
		fmt.Fprintln(w, formatRecord(th, r))
	}
}

func formatRecord(th theme.Theme, r model.ActivityRecord) string {
	mark := th.Status(false).Render("[ ]")
	if r.IsCompleted {
		mark = th.Status(true).Render("[x]")
	}

	parts := []string{
		r.Date,
		mark,
		th.Category(r.Category).Render(string(r.Category)),
		r.Title,
	}
	if r.Detail != "" {
		parts = append(parts, "("+r.Detail+")")
	}
	if r.Rating > 0 {
		parts = append(parts, fmt.Sprintf("%d/10", r.Rating))
	}
	if r.IsGoal {
		parts = append(parts, th.Help().Render("planned"))
	}
	if r.LocalOnly() {
		parts = append(parts, th.Help().Render("local"))
	}
	parts = append(parts, th.Help().Render(shortID(r.ID)))
	return strings.Join(parts, " ")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[len(id)-8:]
	}
	return id
}

// findRecord locates a record of svc by full id, remote id or the short id
// printed by list.
func findRecord(svc *activity.Service, id string) (model.ActivityRecord, error) {
	var found []model.ActivityRecord
	for _, r := range svc.Records() {
		switch {
		case r.ID == id, r.RemoteID != "" && r.RemoteID == id:
			return r, nil
		case strings.HasSuffix(r.ID, id):
			found = append(found, r)
		}
	}
	switch len(found) {
	case 0:
		return model.ActivityRecord{}, fmt.Errorf("no record %q on %s", id, svc.Date())
	case 1:
		return found[0], nil
	default:
		return model.ActivityRecord{}, fmt.Errorf("id %q is ambiguous on %s", id, svc.Date())
	}
}
