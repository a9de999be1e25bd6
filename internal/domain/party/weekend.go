package party

import "time"

// WeekendOf returns the Friday anchoring the weekend that contains t.
// Monday through Friday anchor forward to this week's Friday; Saturday
// and Sunday anchor back to the Friday that started the ongoing weekend,
// so a feed viewed on Sunday still shows that weekend's parties.
// The result is truncated to midnight in t's location.
func WeekendOf(t time.Time) time.Time {
	// Monday=0 .. Sunday=6
	weekday := (int(t.Weekday()) + 6) % 7

	daysUntilFriday := (4 - weekday + 7) % 7
	if weekday >= 5 {
		daysUntilFriday -= 7
	}

	anchor := t.AddDate(0, 0, daysUntilFriday)
	return time.Date(anchor.Year(), anchor.Month(), anchor.Day(), 0, 0, 0, 0, t.Location())
}
