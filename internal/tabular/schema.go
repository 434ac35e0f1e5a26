package tabular

// Sheet names used by the fieldlog service. Each sheet carries the fixed
// header row declared below; headers are written once when the sheet is first
// created and never migrated afterwards.
const (
	SheetMeetings     = "Meetings"
	SheetActionItems  = "Action Items"
	SheetWeeklyStatus = "Weekly Status"
	SheetMedia        = "Media"
)

// DefaultMeetingIDPrefix is the prefix for generated meeting identifiers.
const DefaultMeetingIDPrefix = "BCIEINM"

// MeetingHeader is the column layout of the Meetings sheet.
var MeetingHeader = []string{
	"Meeting ID",
	"Meeting Date",
	"Zone",
	"District",
	"Cold Room",
	"Meeting Title",
	"Conducted By",
	"Attendees",
	"Meeting Agenda",
	"Meeting Discussion",
	"Photo URL",
}

// ActionItemHeader is the column layout of the Action Items sheet.
var ActionItemHeader = []string{
	"Meeting ID",
	"Action Item",
	"Assigned To",
	"Deadline",
	"Status",
}

// WeeklyStatusHeader is the column layout of the Weekly Status sheet.
var WeeklyStatusHeader = []string{
	"Week",
	"Zone",
	"District",
	"Summary of This Week Activities",
	"Activities Planned for Next Week",
}

// MediaHeader is the column layout of the Media sheet.
var MediaHeader = []string{
	"Week",
	"Zone",
	"District",
	"File Name",
	"File URL",
	"File Type",
	"Uploaded On",
}
