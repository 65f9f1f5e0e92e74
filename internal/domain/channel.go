package domain

import (
	"fmt"
	"strings"
)

// Channel is a logical chat channel a line can be routed to
type Channel int

const (
	// NoChannel marks an unclassified line (delivered to "All" only)
	NoChannel Channel = iota
	ChannelAll
	ChannelLFG
	ChannelPM
)

var channelNames = map[Channel]string{
	NoChannel:  "",
	ChannelAll: "All",
	ChannelLFG: "LFG",
	ChannelPM:  "PM",
}

// Channels returns every named channel in display order
func Channels() []Channel {
	return []Channel{ChannelAll, ChannelLFG, ChannelPM}
}

// String returns the channel display name
func (c Channel) String() string {
	if name, ok := channelNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Channel(%d)", int(c))
}

// IsCatchAll reports whether every processed line is delivered to this channel
func (c Channel) IsCatchAll() bool {
	return c == ChannelAll
}

// IsSet reports whether the line was classified into a named channel
func (c Channel) IsSet() bool {
	return c != NoChannel
}

// ParseChannel resolves a channel by its display name (case insensitive)
// Empty string and "none" map to NoChannel
func ParseChannel(name string) (Channel, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" || strings.EqualFold(trimmed, "none") {
		return NoChannel, nil
	}
	for _, ch := range Channels() {
		if strings.EqualFold(ch.String(), trimmed) {
			return ch, nil
		}
	}
	return NoChannel, fmt.Errorf("unknown channel %q", name)
}
