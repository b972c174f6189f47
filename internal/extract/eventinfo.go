package extract

import (
	"regexp"
	"strconv"
	"strings"
)

// EventDetails holds the structured fields parsed from an event brochure.
// Fields that cannot be located are left at their zero values.
type EventDetails struct {
	Name           string      `json:"name"`
	Description    string      `json:"description"`
	ConductedDates DateRange   `json:"conducted_dates"`
	Organizer      string      `json:"organizer"`
	Audience       Audience    `json:"targeted_audience"`
	Contact        ContactInfo `json:"contact_info"`
	SubEvents      []SubEvent  `json:"sub_events"`
}

// DateRange is the event's start and end, as found in the document.
type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Audience describes who the event targets.
type Audience struct {
	Departments []string `json:"departments"`
	Courses     []string `json:"courses"`
}

// ContactInfo holds organizer contact fields.
type ContactInfo struct {
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// SubEvent is one named track within the event (hackathon, workshop, ...).
type SubEvent struct {
	Name     string      `json:"name"`
	Overview string      `json:"overview"`
	Venue    string      `json:"venue"`
	Prizes   []PrizePool `json:"prize_pools,omitempty"`
}

// PrizePool is a ranked prize amount.
type PrizePool struct {
	Rank   int     `json:"rank"`
	Amount float64 `json:"amount"`
}

var (
	eventNameRe = regexp.MustCompile(`(?m)^(.+(?:Fest|Festival|Symposium|Summit|Conference|Hackathon)\s*\d{4})`)
	overviewRe  = regexp.MustCompile(`(?s)Event Overview\n(.+?)(?:Event Details|$)`)
	dateRangeRe = regexp.MustCompile(`Date:\s*([\w\s\d,-]+?)\s+to\s+([\w\s\d,-]+)`)
	dateOnceRe  = regexp.MustCompile(`Date:\s*(\w+ \d{1,2}(?:-\d{1,2})?,? \d{4})`)
	organizerRe = regexp.MustCompile(`(?s)Organized By:\s*(.+?)\s*(?:Date:|$)`)
	audienceRe  = regexp.MustCompile(`(?s)Target Audience:\s*(.+?)\s*(?:Key Highlights|$)`)
	emailRe     = regexp.MustCompile(`Email:\s*([a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,})`)
	phoneRe     = regexp.MustCompile(`Phone:\s*([+\d][+\d\s()-]+)`)
	venueRe     = regexp.MustCompile(`Venue:\s*(.+?)(?:\n|$)`)
	prizesRe    = regexp.MustCompile(`(?s)Winner\s*-\s*\$(\d+).*?Runner-up\s*-\s*\$(\d+)`)
	subEventRe  = regexp.MustCompile(`Hackathon|Coding Competitions?|Paper Presentations?|Workshops?`)
)

// ExtractEventDetails parses structured event details out of the plain text
// of a brochure. Extraction is best-effort regex matching over expected
// section labels; missing sections leave fields empty.
func ExtractEventDetails(text string) *EventDetails {
	d := &EventDetails{}

	if m := eventNameRe.FindStringSubmatch(text); m != nil {
		d.Name = strings.TrimSpace(m[1])
	}
	if m := overviewRe.FindStringSubmatch(text); m != nil {
		d.Description = strings.TrimSpace(m[1])
	}
	if m := dateRangeRe.FindStringSubmatch(text); m != nil {
		d.ConductedDates.Start = strings.TrimSpace(m[1])
		d.ConductedDates.End = strings.TrimSpace(m[2])
	} else if m := dateOnceRe.FindStringSubmatch(text); m != nil {
		d.ConductedDates.Start = strings.TrimSpace(m[1])
		d.ConductedDates.End = strings.TrimSpace(m[1])
	}
	if m := organizerRe.FindStringSubmatch(text); m != nil {
		d.Organizer = strings.TrimSpace(m[1])
	}
	if m := audienceRe.FindStringSubmatch(text); m != nil {
		audience := m[1]
		if strings.Contains(audience, "Computer Science") {
			d.Audience.Departments = append(d.Audience.Departments, "Computer Science")
		}
		if strings.Contains(audience, "Students") {
			d.Audience.Courses = append(d.Audience.Courses, "B.Tech", "M.Tech")
		}
	}
	if m := emailRe.FindStringSubmatch(text); m != nil {
		d.Contact.Email = m[1]
	}
	if m := phoneRe.FindStringSubmatch(text); m != nil {
		d.Contact.Phone = strings.TrimSpace(m[1])
	}
	d.SubEvents = extractSubEvents(text)
	return d
}

// extractSubEvents splits the text on known sub-event headings and parses the
// section following each heading.
func extractSubEvents(text string) []SubEvent {
	locs := subEventRe.FindAllStringIndex(text, -1)
	if locs == nil {
		return nil
	}
	var out []SubEvent
	for i, loc := range locs {
		name := text[loc[0]:loc[1]]
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		section := text[loc[1]:end]

		se := SubEvent{Name: name}
		lines := nonEmptyLines(section)
		if len(lines) > 2 {
			lines = lines[:2]
		}
		se.Overview = strings.Join(lines, " ")
		if m := venueRe.FindStringSubmatch(section); m != nil {
			se.Venue = strings.TrimSpace(m[1])
		}
		if m := prizesRe.FindStringSubmatch(section); m != nil {
			winner, err1 := strconv.ParseFloat(m[1], 64)
			runnerUp, err2 := strconv.ParseFloat(m[2], 64)
			if err1 == nil && err2 == nil {
				se.Prizes = []PrizePool{
					{Rank: 1, Amount: winner},
					{Rank: 2, Amount: runnerUp},
				}
			}
		}
		out = append(out, se)
	}
	return out
}

func nonEmptyLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}
