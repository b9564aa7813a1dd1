package domain

import "strings"

// Topic is one line of free text describing an interest. Identity is the exact string.
type Topic string

// ParseTopics splits caller text into ordered topics.
// Dashes and spaces are stripped from both ends of every line and blank lines
// are dropped. Repeated lines stay, one topic per line.
func ParseTopics(text string) []Topic {
	lines := strings.Split(text, "\n")
	topics := make([]Topic, 0, len(lines))

	for _, line := range lines {
		line = strings.TrimSpace(strings.Trim(strings.TrimSpace(line), "- "))
		if line == "" {
			continue
		}
		topics = append(topics, Topic(line))
	}

	return topics
}

// TopicsFromStrings converts configured strings through the same normalization as ParseTopics.
func TopicsFromStrings(values []string) []Topic {
	return ParseTopics(strings.Join(values, "\n"))
}
