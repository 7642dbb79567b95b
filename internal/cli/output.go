package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/okian/cfpulse/internal/domain/model"
	"github.com/okian/cfpulse/internal/domain/streak"
	"github.com/okian/cfpulse/internal/domain/types"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// maxBar caps the width of a heatmap bar.
const maxBar = 20

type palette struct {
	good, warn, bad, dim func(...any) string
}

func (a *app) palette() palette {
	if a.noColor {
		return palette{good: fmt.Sprint, warn: fmt.Sprint, bad: fmt.Sprint, dim: fmt.Sprint}
	}
	return palette{
		good: color.New(color.FgGreen, color.Bold).SprintFunc(),
		warn: color.New(color.FgYellow).SprintFunc(),
		bad:  color.New(color.FgRed).SprintFunc(),
		dim:  color.New(color.FgHiBlack).SprintFunc(),
	}
}

func writeStreak(w io.Writer, handle string, res streak.Result, now time.Time, days int, p palette) error {
	current := strconv.Itoa(res.CurrentStreak)
	switch {
	case res.CurrentStreak == 0:
		current = p.bad(current)
	case res.CurrentStreak == res.MaxStreak:
		current = p.good(current)
	default:
		current = p.warn(current)
	}
	if _, err := fmt.Fprintf(w, "%s\n  Current streak: %s\n  Max streak:     %d\n  Active days:    %d\n  Accepted:       %d\n\n",
		handle, current, res.MaxStreak, len(res.Heatmap), res.Heatmap.Total()); err != nil {
		return err
	}

	window := res.Heatmap.Window(streak.DayOf(now), days)
	peak := 0
	for _, c := range window {
		peak = max(peak, c.Count)
	}

	table := tablewriter.NewWriter(w)
	defer func() { _ = table.Close() }()
	table.Header([]string{"Date", "Accepted", "Activity"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	data := make([][]string, 0, len(window))
	// Most recent day first, like the streak itself.
	for i := len(window) - 1; i >= 0; i-- {
		c := window[i]
		data = append(data, []string{c.Day.String(), strconv.Itoa(c.Count), bar(c.Count, peak, p)})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

func bar(count, peak int, p palette) string {
	if count == 0 || peak == 0 {
		return p.dim(".")
	}
	n := max(1, count*maxBar/peak)
	return p.good(strings.Repeat("#", n))
}

func writeComparison(w io.Writer, rows []types.HandleStreak, p palette) error {
	table := tablewriter.NewWriter(w)
	defer func() { _ = table.Close() }()
	table.Header([]string{"Rank", "Handle", "Current", "Max", "Active days", "Accepted"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	data := make([][]string, 0, len(rows))
	for _, r := range rows {
		if !r.OK() {
			data = append(data, []string{"-", r.Handle, p.bad("error"), "-", "-", p.dim(r.Error)})
			continue
		}
		data = append(data, []string{
			strconv.Itoa(r.Rank),
			r.Handle,
			strconv.Itoa(r.CurrentStreak),
			strconv.Itoa(r.MaxStreak),
			strconv.Itoa(r.ActiveDays),
			strconv.Itoa(r.Solved),
		})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

func writeUpcoming(w io.Writer, contests []model.Contest, now time.Time) error {
	table := tablewriter.NewWriter(w)
	defer func() { _ = table.Close() }()
	table.Header([]string{"ID", "Name", "Starts (UTC)", "In", "Length"})

	data := make([][]string, 0, len(contests))
	for _, c := range contests {
		start := time.Unix(c.StartTimeSeconds, 0).UTC()
		data = append(data, []string{
			strconv.FormatInt(c.ID, 10),
			c.Name,
			start.Format("2006-01-02 15:04"),
			start.Sub(now).Truncate(time.Minute).String(),
			(time.Duration(c.DurationSeconds) * time.Second).String(),
		})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}
