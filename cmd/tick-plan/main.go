package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/xhit/go-str2duration/v2"

	"github.com/chrissnell/hydrograph/internal/ticks"
)

func main() {
	var startStr, endStr, zone, period string
	flag.StringVar(&startStr, "start", "", "Window start (RFC3339 or epoch milliseconds); defaults to end minus -period")
	flag.StringVar(&endStr, "end", "", "Window end (RFC3339 or epoch milliseconds); defaults to now")
	flag.StringVar(&zone, "tz", "UTC", "IANA time zone the ticks are aligned to, e.g. America/Chicago")
	flag.StringVar(&period, "period", "7d", "Window length when -start is not given, e.g. 36h or 2w")
	flag.Parse()

	end := time.Now().UnixMilli()
	if endStr != "" {
		var err error
		if end, err = parseMillis(endStr); err != nil {
			fmt.Fprintf(os.Stderr, "Error parsing end: %v\n", err)
			os.Exit(1)
		}
	}

	var start int64
	if startStr != "" {
		var err error
		if start, err = parseMillis(startStr); err != nil {
			fmt.Fprintf(os.Stderr, "Error parsing start: %v\n", err)
			os.Exit(1)
		}
	} else {
		d, err := str2duration.ParseDuration(period)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error parsing period: %v\n", err)
			os.Exit(1)
		}
		start = end - d.Milliseconds()
	}

	plan, err := ticks.Generate(start, end, zone)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	loc := plan.Location()
	fmt.Printf("Tick plan for %s to %s\n",
		time.UnixMilli(start).In(loc).Format(time.RFC3339),
		time.UnixMilli(end).In(loc).Format(time.RFC3339))
	fmt.Printf("  Tier:       %s\n", plan.Tier)
	fmt.Printf("  Multiplier: %d\n", plan.Multiplier)
	fmt.Println()

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"#", "Epoch ms", "Local time", "Label"})
	table.SetColumnAlignment([]int{tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT})
	for i, label := range plan.Labels() {
		table.Append([]string{
			strconv.Itoa(i + 1),
			strconv.FormatInt(plan.Ticks[i], 10),
			time.UnixMilli(plan.Ticks[i]).In(loc).Format(time.RFC3339),
			label,
		})
	}
	table.Render()
}

func parseMillis(s string) (int64, error) {
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return ms, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return 0, fmt.Errorf("%q is neither RFC3339 nor epoch milliseconds", s)
	}
	return t.UnixMilli(), nil
}
