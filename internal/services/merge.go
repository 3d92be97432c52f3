package services

import "github.com/welldanyogia/icd-messaging-backend/internal/models"

// MergeInbox unions the given lists, keeps the first copy of each id, drops
// what uid sent itself, and sorts newest first
func MergeInbox(uid string, lists ...[]models.Message) []models.Message {
	size := 0
	for _, l := range lists {
		size += len(l)
	}

	seen := make(map[string]struct{}, size)
	merged := make([]models.Message, 0, size)
	for _, l := range lists {
		for _, m := range l {
			if _, dup := seen[m.ID]; dup {
				continue
			}
			seen[m.ID] = struct{}{}
			if m.SenderID == uid {
				continue
			}
			merged = append(merged, m)
		}
	}

	models.SortByTimestampDesc(merged)
	return merged
}
