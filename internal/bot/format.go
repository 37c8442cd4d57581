package bot

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"regwatch/internal/monitor"
)

// FormatStatus formats the monitor state for display.
func FormatStatus(st monitor.Status, destinations int, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Feeds: %s (%s tracked)\n", humanize.Comma(int64(st.Feeds)), humanize.Comma(int64(st.TrackedFeeds)))
	fmt.Fprintf(&b, "Feed list refreshed: %s\n", relative(st.LastRefresh, now))
	fmt.Fprintf(&b, "Last cycle: %s\n", relative(st.LastCycle, now))
	fmt.Fprintf(&b, "Pending entries: %d\n", st.Pending)
	fmt.Fprintf(&b, "Last batch: %s\n", relative(st.LastFlush, now))
	fmt.Fprintf(&b, "Destinations: %s", humanize.Comma(int64(destinations)))
	return b.String()
}

// FormatCategories formats the category vocabulary for display.
func FormatCategories(names []string) string {
	if len(names) == 0 {
		return "No categories configured."
	}
	var b strings.Builder
	b.WriteString("Categories:\n")
	for _, n := range names {
		fmt.Fprintf(&b, "• %s\n", n)
	}
	b.WriteString("\nEntries classified as None are not sent.")
	return b.String()
}

func relative(t, now time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return humanize.RelTime(t, now, "ago", "from now")
}
