package mapping

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/SteelMorgan/chatlog-notifier/internal/domain"
	"gopkg.in/yaml.v3"
)

// RuleSpec is one classification rule as written in rules.yaml
type RuleSpec struct {
	Name     string   `yaml:"name"`
	Contains []string `yaml:"contains"` // any substring matches
	Pattern  string   `yaml:"pattern"`  // optional regexp, checked when no substring matched
	Channel  string   `yaml:"channel"`  // "", "none", "LFG", "PM"
	Color    string   `yaml:"color"`    // #RRGGBB
}

// RuleFile is the root of rules.yaml
type RuleFile struct {
	Rules        []RuleSpec `yaml:"rules"`
	DefaultColor string     `yaml:"default_color"`
}

// Rule is a compiled classification rule
type Rule struct {
	Name     string
	Contains []string
	Pattern  *regexp.Regexp
	Result   domain.ClassificationResult
}

// Matches reports whether the rule applies to the line
func (r Rule) Matches(line string) bool {
	for _, s := range r.Contains {
		if strings.Contains(line, s) {
			return true
		}
	}
	if r.Pattern != nil {
		return r.Pattern.MatchString(line)
	}
	return false
}

// RuleSet is an ordered rule list plus the color applied when nothing matches
type RuleSet struct {
	Rules        []Rule
	DefaultColor domain.Color
}

// DefaultRules returns the built-in rule set. Order encodes priority.
func DefaultRules() RuleSet {
	return RuleSet{
		Rules: []Rule{
			{
				Name:     "lfg",
				Contains: []string{"[3.LFG] [charname:"},
				Result:   domain.ClassificationResult{Channel: domain.ChannelLFG, Color: domain.ColorLightRed},
			},
			{
				Name:     "whisper",
				Contains: []string{"Whispers:", "You Whisper to [charname:"},
				Result:   domain.ClassificationResult{Channel: domain.ChannelPM, Color: domain.ColorLightGreen},
			},
			{
				Name:     "shout",
				Contains: []string{"You shout \""},
				Result:   domain.ClassificationResult{Channel: domain.NoChannel, Color: domain.ColorSienna},
			},
		},
		DefaultColor: domain.ColorDarkGray,
	}
}

// LoadRules loads rules.yaml. An empty path returns the built-in rules.
func LoadRules(path string) (RuleSet, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultRules(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return RuleSet{}, fmt.Errorf("failed to read rules: %w", err)
	}

	var rf RuleFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return RuleSet{}, fmt.Errorf("failed to parse rules: %w", err)
	}

	return Compile(rf)
}

// Compile validates a rule file and turns it into a RuleSet
func Compile(rf RuleFile) (RuleSet, error) {
	set := RuleSet{DefaultColor: domain.ColorDarkGray}
	if rf.DefaultColor != "" {
		c, err := parseColor(rf.DefaultColor)
		if err != nil {
			return RuleSet{}, fmt.Errorf("default_color: %w", err)
		}
		set.DefaultColor = c
	}

	for i, rs := range rf.Rules {
		name := rs.Name
		if name == "" {
			name = fmt.Sprintf("rule[%d]", i)
		}
		if len(rs.Contains) == 0 && rs.Pattern == "" {
			return RuleSet{}, fmt.Errorf("%s: needs contains or pattern", name)
		}

		ch, err := domain.ParseChannel(rs.Channel)
		if err != nil {
			return RuleSet{}, fmt.Errorf("%s: %w", name, err)
		}
		if ch.IsCatchAll() {
			// "All" receives every line anyway
			ch = domain.NoChannel
		}

		color := set.DefaultColor
		if rs.Color != "" {
			if color, err = parseColor(rs.Color); err != nil {
				return RuleSet{}, fmt.Errorf("%s: %w", name, err)
			}
		}

		rule := Rule{
			Name:     name,
			Contains: rs.Contains,
			Result:   domain.ClassificationResult{Channel: ch, Color: color},
		}
		if rs.Pattern != "" {
			re, err := regexp.Compile(rs.Pattern)
			if err != nil {
				return RuleSet{}, fmt.Errorf("%s: invalid pattern: %w", name, err)
			}
			rule.Pattern = re
		}
		set.Rules = append(set.Rules, rule)
	}

	return set, nil
}

var colorPattern = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

func parseColor(s string) (domain.Color, error) {
	trimmed := strings.TrimSpace(s)
	if !colorPattern.MatchString(trimmed) {
		return "", fmt.Errorf("invalid color %q (want #RRGGBB)", s)
	}
	return domain.Color(strings.ToUpper(trimmed)), nil
}
