// Package display holds the presentation rules shared by the room list
// and the chat session: room display names and conversation timestamps.
package display

import (
	"sort"
	"strings"
	"time"

	"chathub/internal/messaging/models"
)

// RoomName returns the room's stored name, or the comma-joined full
// names of the other participants when no name was set. Both the room
// list and the session header go through here so the two views cannot
// drift apart.
func RoomName(room *models.Room, currentUserID string) string {
	if room.Name != nil && *room.Name != "" {
		return *room.Name
	}

	var others []string
	for _, p := range room.Participants {
		if p.UserID == currentUserID {
			continue
		}
		others = append(others, p.User.FullName())
	}
	if len(others) == 0 {
		return "Unnamed Chat"
	}
	return strings.Join(others, ", ")
}

// DeriveName builds the persisted name for a room created without one:
// every participant's full name, sorted, joined with ", ". Computed
// once at creation time and stored, never recomputed per render.
func DeriveName(participants []models.User) string {
	names := make([]string, 0, len(participants))
	for _, u := range participants {
		names = append(names, u.FullName())
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

// FormatTimestamp renders a conversation timestamp relative to now,
// both taken as UTC:
//
//	same calendar day        "3:04 PM"
//	one calendar day before  "Yesterday 3:04 PM"
//	within the last 7 days   "Mon"
//	same year                "Jan 2"
//	otherwise                "Jan 2, 2006"
func FormatTimestamp(ts, now time.Time) string {
	ts = ts.UTC()
	now = now.UTC()

	tsDay := ts.Truncate(24 * time.Hour)
	nowDay := now.Truncate(24 * time.Hour)

	switch daysAgo := int(nowDay.Sub(tsDay).Hours() / 24); {
	case daysAgo == 0:
		return ts.Format("3:04 PM")
	case daysAgo == 1:
		return "Yesterday " + ts.Format("3:04 PM")
	case daysAgo < 7:
		return ts.Format("Mon")
	case ts.Year() == now.Year():
		return ts.Format("Jan 2")
	default:
		return ts.Format("Jan 2, 2006")
	}
}
