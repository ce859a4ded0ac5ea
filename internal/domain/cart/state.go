package cart

// Apply returns the state that results from cmd. The input state is never
// modified; the returned Items slice is always freshly allocated.
func Apply(s State, cmd Command) State {
	switch c := cmd.(type) {
	case AddItem:
		if c.Quantity < 1 {
			return s
		}
		items := cloneItems(s.Items)
		if i := Find(items, c.Item.ID); i >= 0 {
			items[i].Quantity += c.Quantity
		} else {
			item := c.Item
			item.Quantity = c.Quantity
			items = append(items, item)
		}
		return State{Items: items, LastSynced: s.LastSynced}

	case RemoveItem:
		items := make([]LineItem, 0, len(s.Items))
		for _, item := range s.Items {
			if item.ID != c.ID {
				items = append(items, item)
			}
		}
		return State{Items: items, LastSynced: s.LastSynced}

	case UpdateQuantity:
		items := cloneItems(s.Items)
		if i := Find(items, c.ID); i >= 0 {
			items[i].Quantity = c.Quantity
		}
		return State{Items: items, LastSynced: s.LastSynced}

	case Clear:
		return State{Items: []LineItem{}, LastSynced: s.LastSynced}

	case InitializeFrom:
		lastSynced := s.LastSynced
		if !c.Snapshot.LastUpdated.IsZero() {
			lastSynced = c.Snapshot.LastUpdated
		}
		return State{Items: Normalize(c.Snapshot.Items), LastSynced: lastSynced}

	case SyncFrom:
		return State{Items: Normalize(c.Snapshot.Items), LastSynced: c.Snapshot.LastUpdated}
	}
	return s
}

// Normalize merges duplicate ids in first-seen order and drops entries with
// a quantity below one, so remote data obeys the same invariants as local
// mutations.
func Normalize(items []LineItem) []LineItem {
	out := make([]LineItem, 0, len(items))
	for _, item := range items {
		if item.Quantity < 1 {
			continue
		}
		if i := Find(out, item.ID); i >= 0 {
			out[i].Quantity += item.Quantity
			continue
		}
		out = append(out, item)
	}
	return out
}

func cloneItems(items []LineItem) []LineItem {
	out := make([]LineItem, len(items), len(items)+1)
	copy(out, items)
	return out
}
