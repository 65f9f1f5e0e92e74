package chat

import "regexp"

var (
	// HH:MM:SS
	timePattern = regexp.MustCompile(`[0-9]{2}:[0-9]{2}:[0-9]{2}`)

	// Everything up to and including the first " : " after the first time token
	prefixPattern = regexp.MustCompile(`^.*?[0-9]{2}:[0-9]{2}:[0-9]{2}.*? : `)
)

// ExtractTimestamp finds the first HH:MM:SS token in the line and strips the
// log prefix (speaker tags, date, etc.) through the " : " separator that follows it.
// Without a time token the line is returned unchanged with an empty timestamp.
func ExtractTimestamp(line string) (stripped, timestamp string) {
	timestamp = timePattern.FindString(line)
	if timestamp == "" {
		return line, ""
	}

	loc := prefixPattern.FindStringIndex(line)
	if loc == nil {
		return line, timestamp
	}
	return line[loc[1]:], timestamp
}
