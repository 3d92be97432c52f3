package models

import "sort"

// SortKey is the ordering key of a message timestamp. Zero timestamps count as epoch 0.
func SortKey(m *Message) int64 {
	if m.Timestamp.IsZero() {
		return 0
	}
	return m.Timestamp.UnixNano()
}

// SortByTimestampDesc orders messages newest first, breaking ties by ascending id
func SortByTimestampDesc(messages []Message) {
	sort.SliceStable(messages, func(i, j int) bool {
		ki, kj := SortKey(&messages[i]), SortKey(&messages[j])
		if ki != kj {
			return ki > kj
		}
		return messages[i].ID < messages[j].ID
	})
}
