package cart

// Command is a cart state transition. The set of variants is closed.
type Command interface {
	isCommand()
}

type AddItem struct {
	Item     LineItem
	Quantity int
}

type RemoveItem struct {
	ID ItemID
}

// UpdateQuantity sets an item's quantity. It never removes the item;
// callers route a zero result to RemoveItem.
type UpdateQuantity struct {
	ID       ItemID
	Quantity int
}

type Clear struct{}

// InitializeFrom loads the remote snapshot when an identity becomes active.
type InitializeFrom struct {
	Snapshot Snapshot
}

// SyncFrom replaces local items with a newer remote snapshot.
type SyncFrom struct {
	Snapshot Snapshot
}

func (AddItem) isCommand()        {}
func (RemoveItem) isCommand()     {}
func (UpdateQuantity) isCommand() {}
func (Clear) isCommand()          {}
func (InitializeFrom) isCommand() {}
func (SyncFrom) isCommand()       {}
