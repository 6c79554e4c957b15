package timelock

import (
	"fmt"
	"math"
	"time"

	"github.com/dustin/go-humanize"
)

const (
	day   = 24 * time.Hour
	month = time.Duration(30.436875 * float64(day))
	year  = time.Duration(365.25 * float64(day))
)

var (
	pastMagnitudes   = relTimeMagnitudes(func(text string) string { return text + " %s" })
	futureMagnitudes = relTimeMagnitudes(func(text string) string { return "%s " + text })
)

// relTimeMagnitudes builds a rounded magnitude table: each count N covers durations up to
// N+0.5 units, so 2h40m reads "3 hours". phrase places the direction label.
func relTimeMagnitudes(phrase func(text string) string) []humanize.RelTimeMagnitude {
	var mags []humanize.RelTimeMagnitude
	add := func(d time.Duration, text string) {
		mags = append(mags, humanize.RelTimeMagnitude{D: d, Format: phrase(text), DivBy: 1})
	}
	counted := func(unit time.Duration, from, to int, noun string) {
		for n := from; n < to; n++ {
			add(time.Duration(n)*unit+unit/2, fmt.Sprintf("%d %s", n, noun))
		}
	}

	add(45*time.Second, "a few seconds")
	add(90*time.Second, "a minute")
	counted(time.Minute, 2, 45, "minutes")
	add(90*time.Minute, "an hour")
	counted(time.Hour, 2, 22, "hours")
	add(36*time.Hour, "a day")
	counted(day, 2, 26, "days")
	add(45*day, "a month")
	counted(month, 2, 11, "months")
	add(548*day, "a year")
	counted(year, 2, 100, "years")

	mags = append(mags, humanize.RelTimeMagnitude{D: math.MaxInt64, Format: phrase("%d years"), DivBy: year})

	return mags
}

// RelativeTime describes t relative to now: "in 2 days", "3 hours ago", "a few seconds ago".
func RelativeTime(t, now time.Time) string {
	if t.After(now) {
		return humanize.CustomRelTime(t, now, "ago", "in", futureMagnitudes)
	}

	return humanize.CustomRelTime(t, now, "ago", "in", pastMagnitudes)
}
