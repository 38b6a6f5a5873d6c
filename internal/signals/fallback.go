package signals

import "time"

// FallbackCalendar returns the canned day view served when the live
// calendar integration is unavailable. Dates are anchored on now so the
// widget always shows a plausible today/tomorrow.
func FallbackCalendar(now time.Time) CalendarBlock {
	today := now.Format("2006-01-02")
	tomorrow := now.Add(24 * time.Hour).Format("2006-01-02")

	return CalendarBlock{
		Events: []CalendarEvent{
			{ID: "cal_001", Title: "Standup Meeting", Start: today + "T09:30:00", End: today + "T10:00:00", Type: "work", StressLevel: "low"},
			{ID: "cal_002", Title: "Product Strategy Review", Start: today + "T10:30:00", End: today + "T11:30:00", Type: "work", StressLevel: "high"},
			{ID: "cal_003", Title: "Lunch Block", Start: today + "T12:30:00", End: today + "T13:30:00", Type: "personal", StressLevel: "none"},
			{ID: "cal_004", Title: "Investor Sync", Start: today + "T14:00:00", End: today + "T15:00:00", Type: "work", StressLevel: "high"},
			{ID: "cal_005", Title: "Deep Work Block", Start: today + "T15:30:00", End: today + "T17:30:00", Type: "focus", StressLevel: "medium"},
			{ID: "cal_006", Title: "Gym", Start: today + "T18:00:00", End: today + "T18:45:00", Type: "health", StressLevel: "positive"},
			{ID: "cal_007", Title: "Free Evening Window", Start: today + "T19:00:00", End: today + "T22:00:00", Type: "free", StressLevel: "none"},
			{ID: "cal_008", Title: "Morning Planning", Start: tomorrow + "T08:30:00", End: tomorrow + "T09:00:00", Type: "work", StressLevel: "low"},
			{ID: "cal_009", Title: "Design Review", Start: tomorrow + "T11:00:00", End: tomorrow + "T12:00:00", Type: "work", StressLevel: "medium"},
			{ID: "cal_010", Title: "Friends Dinner", Start: tomorrow + "T19:30:00", End: tomorrow + "T21:30:00", Type: "social", StressLevel: "positive"},
		},
		FreeWindows: []Window{
			{Start: today + "T07:00:00", End: today + "T09:30:00", Duration: formatDuration(150 * time.Minute)},
			{Start: today + "T10:00:00", End: today + "T10:30:00", Duration: formatDuration(30 * time.Minute)},
			{Start: today + "T11:30:00", End: today + "T12:30:00", Duration: formatDuration(time.Hour)},
			{Start: today + "T13:30:00", End: today + "T14:00:00", Duration: formatDuration(30 * time.Minute)},
			{Start: today + "T19:00:00", End: today + "T22:00:00", Duration: formatDuration(3 * time.Hour)},
		},
		Source: "fallback",
	}
}

// FallbackEmailSignals returns the canned inbox served when the live
// Gmail integration is unavailable.
func FallbackEmailSignals(now time.Time) []EmailSignal {
	date := now.Format(time.RFC3339)
	return []EmailSignal{
		{ID: "mail_001", From: "OpenTable", Subject: "Dinner Reservation Confirmation", Date: date, Snippet: "Your reservation for tonight at 7:30 PM is confirmed.", Category: CategoryReservation, Confidence: 0.92, Actionable: true},
		{ID: "mail_002", From: "Team Lead", Subject: "Deck needed before Monday", Date: date, Snippet: "Please finalize the presentation deck before end of day Monday.", Category: CategoryUrgent, Confidence: 0.88, Actionable: true},
		{ID: "mail_003", From: "Amazon", Subject: "Package arriving today", Date: date, Snippet: "Your package is out for delivery and will arrive by 5 PM.", Category: CategoryDelivery, Confidence: 0.95, Actionable: true},
		{ID: "mail_004", From: "Local Deals", Subject: "Valentine Offers Nearby", Date: date, Snippet: "Check out Valentine's Day specials near you.", Category: CategoryNewsletter, Confidence: 0.65},
		{ID: "mail_005", From: "Google Flights", Subject: "Flight Price Drop Alert", Date: date, Snippet: "Prices dropped for your saved flight to NYC.", Category: CategoryGeneral, Confidence: 0.60},
		{ID: "mail_006", From: "Substack", Subject: "Weekly AI Newsletter", Date: date, Snippet: "This week in AI: latest breakthroughs and industry news.", Category: CategoryNewsletter, Confidence: 0.99},
		{ID: "mail_007", From: "Chase Bank", Subject: "Credit Card Statement Ready", Date: date, Snippet: "Your February statement is ready to view.", Category: CategoryGeneral, Confidence: 0.98, Actionable: true},
		{ID: "mail_008", From: "Google Calendar", Subject: "Added: Demo Rehearsal", Date: date, Snippet: "You've been invited to Demo Rehearsal on Feb 16.", Category: CategoryEventInvite, Confidence: 0.90, Actionable: true},
		{ID: "mail_009", From: "Wellness App", Subject: "Don't forget hydration", Date: date, Snippet: "Stay hydrated! You're behind on your daily water goal.", Category: CategoryGeneral, Confidence: 0.75},
		{ID: "mail_010", From: "DevOps Bot", Subject: "Runloop execution logs attached", Date: date, Snippet: "Execution logs for run #47 are attached.", Category: CategoryGeneral, Confidence: 0.80},
	}
}
