package conversation

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed topics.yaml
var defaultTopicsYAML []byte

// TopicTable maps a topic label to the keyword substrings that indicate it.
// Matching is case-insensitive; keywords are stored lowercased.
type TopicTable map[string][]string

// DefaultTopics returns the built-in topic keyword table.
func DefaultTopics() TopicTable {
	table, err := ParseTopics(defaultTopicsYAML)
	if err != nil {
		// The embedded table is part of the build; a parse failure is a
		// programming error.
		panic("conversation: embedded topics.yaml is invalid: " + err.Error())
	}
	return table
}

// ParseTopics decodes a YAML topic keyword table and normalizes the keywords
// to lower case. Topics with no keywords are rejected.
func ParseTopics(data []byte) (TopicTable, error) {
	var table TopicTable
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("parse topics: %w", err)
	}
	for topic, keywords := range table {
		if len(keywords) == 0 {
			return nil, fmt.Errorf("topic %q has no keywords", topic)
		}
		for i, kw := range keywords {
			keywords[i] = strings.ToLower(strings.TrimSpace(kw))
		}
	}
	return table, nil
}

// LoadTopics reads a topic keyword table from a YAML file. Deployments use
// this to extend the default table without a rebuild.
func LoadTopics(path string) (TopicTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read topics file: %w", err)
	}
	return ParseTopics(data)
}

// Extract returns the deduplicated topic labels matched by any of the given
// messages, sorted alphabetically for deterministic output. An empty input or
// a no-match input yields an empty (nil) result.
func (t TopicTable) Extract(messages []string) []string {
	seen := make(map[string]bool)
	for _, msg := range messages {
		if msg == "" {
			continue
		}
		lower := strings.ToLower(msg)
		for topic, keywords := range t {
			if seen[topic] {
				continue
			}
			for _, kw := range keywords {
				if strings.Contains(lower, kw) {
					seen[topic] = true
					break
				}
			}
		}
	}
	if len(seen) == 0 {
		return nil
	}
	topics := make([]string, 0, len(seen))
	for topic := range seen {
		topics = append(topics, topic)
	}
	sort.Strings(topics)
	return topics
}
