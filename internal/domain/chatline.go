package domain

// Color is a semantic display color stored as a #RRGGBB hex string
type Color string

// Colors used by the default classification rules
const (
	ColorLightRed   Color = "#FFB0B0" // looking-for-group
	ColorLightGreen Color = "#A0FFA0" // whispers
	ColorSienna     Color = "#A0522D" // shouts
	ColorDarkGray   Color = "#A9A9A9" // everything else
	ColorDimGray    Color = "#696969" // timestamp segment
)

// ClassificationResult is the outcome of running the rule list over a raw line
type ClassificationResult struct {
	Channel Channel // NoChannel = "All" only
	Color   Color
}

// LinkKind identifies the markup kind of a bracketed link token
type LinkKind int

const (
	LinkOther LinkKind = iota
	LinkItem
	LinkCharName
)

// String returns the markup prefix for the kind
func (k LinkKind) String() string {
	switch k {
	case LinkItem:
		return "item"
	case LinkCharName:
		return "charname"
	default:
		return "other"
	}
}

// LinkToken is a bracketed markup span found in a line, e.g. [item:152000001;ver5]
type LinkToken struct {
	Kind    LinkKind
	Start   int    // byte offset of '[' within the scanned line
	Length  int    // byte length of the whole bracketed token
	Raw     string // the token text including brackets
	Prefix  string // text between '[' and the first ':'
	Payload string // text after the first ':' up to the closing ']'
}

// ID returns the payload part before the first ';'
func (t LinkToken) ID() string {
	for i := 0; i < len(t.Payload); i++ {
		if t.Payload[i] == ';' {
			return t.Payload[:i]
		}
	}
	return t.Payload
}

// Segment is one colored piece of output written to a sink
type Segment struct {
	Text  string
	Color Color
}

// ProcessedLine is the terminal artifact of the line pipeline
type ProcessedLine struct {
	Text      string // message after prefix stripping and link rewriting
	Color     Color
	Timestamp string  // bare HH:MM:SS, empty if the line had none
	Channel   Channel // NoChannel = "All" only
}

// Segments returns the writes for one sink in display order:
// the dim-gray "(HH:MM:SS) " prefix (when present) followed by the message and a line break
func (l ProcessedLine) Segments() []Segment {
	segments := make([]Segment, 0, 2)
	if l.Timestamp != "" {
		segments = append(segments, Segment{
			Text:  FormatTimestamp(l.Timestamp),
			Color: ColorDimGray,
		})
	}
	segments = append(segments, Segment{
		Text:  l.Text + "\n",
		Color: l.Color,
	})
	return segments
}

// FormatTimestamp renders the display form "(HH:MM:SS) "
func FormatTimestamp(timestamp string) string {
	return "(" + timestamp + ") "
}
