package gamestate

// AddItem returns items with item merged in. An item whose id is already
// held increases that entry's quantity; otherwise it is appended.
// A non-positive quantity counts as one.
func AddItem(items []InventoryItem, item InventoryItem) []InventoryItem {
	if item.Quantity <= 0 {
		item.Quantity = 1
	}
	out := cloneSlice(items, InventoryItem.clone)
	for i := range out {
		if out[i].ID == item.ID {
			out[i].Quantity += item.Quantity
			return out
		}
	}
	return append(out, item.clone())
}

// MergeInventory folds every item of add into items with AddItem.
func MergeInventory(items, add []InventoryItem) []InventoryItem {
	out := cloneSlice(items, InventoryItem.clone)
	for _, item := range add {
		out = AddItem(out, item)
	}
	return out
}

// HasItem reports whether at least one of id is held.
func HasItem(items []InventoryItem, id string) bool {
	for _, item := range items {
		if item.ID == id && item.Quantity > 0 {
			return true
		}
	}
	return false
}

// HasItemType reports whether any held item has the given type.
func HasItemType(items []InventoryItem, t ItemType) bool {
	for _, item := range items {
		if item.Type == t && item.Quantity > 0 {
			return true
		}
	}
	return false
}

// FindQuest returns the quest with id.
func FindQuest(log []Quest, id string) (Quest, bool) {
	for _, q := range log {
		if q.ID == id {
			return q, true
		}
	}
	return Quest{}, false
}

// AddQuest appends q unless a quest with the same id is already logged.
// A quest without a status starts active.
func AddQuest(log []Quest, q Quest) []Quest {
	if _, ok := FindQuest(log, q.ID); ok {
		return cloneSlice(log, Quest.clone)
	}
	if q.Status == "" {
		q.Status = QuestActive
	}
	return append(cloneSlice(log, Quest.clone), q.clone())
}

// SetQuestStatus returns log with the status of quest id replaced.
func SetQuestStatus(log []Quest, id string, status QuestStatus) ([]Quest, bool) {
	out := cloneSlice(log, Quest.clone)
	for i := range out {
		if out[i].ID == id {
			out[i].Status = status
			if status == QuestCompleted {
				for j := range out[i].Objectives {
					out[i].Objectives[j].Completed = true
				}
			}
			return out, true
		}
	}
	return out, false
}
