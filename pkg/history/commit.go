package history

import (
	"time"
	"unicode/utf8"

	"github.com/Sumatoshi-tech/timemachine/pkg/gitaccess"
)

// Defaults for signatures without a usable name or email.
const (
	UnknownAuthor = "Unknown"
	UnknownEmail  = "unknown@example.com"
)

// timestampLayout is RFC 3339 with the UTC offset spelled +00:00.
const timestampLayout = "2006-01-02T15:04:05+00:00"

// NormalizeCommit converts a commit handle into a CommitRecord. Text fields
// that are not valid UTF-8 fall back to their defaults; the message to "".
func NormalizeCommit(c gitaccess.Commit) CommitRecord {
	author := c.Author()

	return CommitRecord{
		SHA:       c.ID(),
		Message:   orDefault(c.Message(), ""),
		Author:    orDefault(author.Name, UnknownAuthor),
		Email:     orDefault(author.Email, UnknownEmail),
		Timestamp: FormatTimestamp(author.When),
	}
}

// FormatTimestamp renders the seconds of t in UTC. The signature's own
// offset is dropped. Times outside years 0-9999 render as the Unix epoch.
func FormatTimestamp(t time.Time) string {
	utc := time.Unix(t.Unix(), 0).UTC()
	if utc.Year() < 0 || utc.Year() > 9999 {
		utc = time.Unix(0, 0).UTC()
	}

	return utc.Format(timestampLayout)
}

func orDefault(value, fallback string) string {
	if value == "" || !utf8.ValidString(value) {
		return fallback
	}

	return value
}
