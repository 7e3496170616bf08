package triage

import "strings"

// Route is the single dominant category assigned to an email
type Route string

const (
	RouteCalendar Route = "calendar"
	RouteTasks    Route = "tasks"
	RouteSummary  Route = "summary"
)

// Routes lists every route in priority order
func Routes() []Route {
	return []Route{RouteCalendar, RouteTasks, RouteSummary}
}

// Valid reports whether r is one of the known routes
func (r Route) Valid() bool {
	switch r {
	case RouteCalendar, RouteTasks, RouteSummary:
		return true
	}
	return false
}

// DecideRoute picks the dominant route. Calendar signals (a weekday, a
// clock time or the word "meeting") win over task phrasing, and task
// phrasing wins over the summary fallback.
func DecideRoute(email string) Route {
	lower := strings.ToLower(email)

	if hasCalendarSignal(lower) {
		return RouteCalendar
	}
	if hasTaskSignal(lower) {
		return RouteTasks
	}
	return RouteSummary
}

func hasCalendarSignal(lower string) bool {
	return dayRE.MatchString(lower) || timeRE.MatchString(lower) || meetingRE.MatchString(lower)
}

func hasTaskSignal(lower string) bool {
	for _, re := range taskTriggerREs {
		if re.MatchString(lower) {
			return true
		}
	}
	return false
}
