package captain

import (
	"fmt"
	"math"
)

// ChecklistItem is an entry a user acknowledges, and optionally quantifies,
// before a checklist step may be left.
type ChecklistItem struct {
	ID          string  `json:"id" yaml:"id"`
	Name        string  `json:"name,omitempty" yaml:"name,omitempty"`
	Icon        string  `json:"icon,omitempty" yaml:"icon,omitempty"`
	Required    bool    `json:"required,omitempty" yaml:"required,omitempty"`
	HasQuantity bool    `json:"has_quantity,omitempty" yaml:"has_quantity,omitempty"`
	MinQuantity float64 `json:"min_quantity,omitempty" yaml:"min_quantity,omitempty"`
	MaxQuantity float64 `json:"max_quantity,omitempty" yaml:"max_quantity,omitempty"`
	Unit        string  `json:"unit,omitempty" yaml:"unit,omitempty"`
}

// ItemState is the recorded state of one checklist item.
type ItemState struct {
	Checked  bool     `json:"checked"`
	Quantity *float64 `json:"quantity,omitempty"`
}

// ChecklistState maps checklist item IDs to their recorded state. Missing
// entries are unchecked.
type ChecklistState map[string]ItemState

// Clone returns a deep copy of the state.
func (s ChecklistState) Clone() ChecklistState {
	if s == nil {
		return nil
	}
	out := make(ChecklistState, len(s))
	for id, st := range s {
		if st.Quantity != nil {
			q := *st.Quantity
			st.Quantity = &q
		}
		out[id] = st
	}
	return out
}

// IsSatisfied reports whether every required item is checked and, where the
// item tracks a quantity, a quantity of at least MinQuantity is recorded.
// Items that are not required never block.
func IsSatisfied(items []ChecklistItem, state ChecklistState) bool {
	for _, item := range items {
		if !item.Required {
			continue
		}
		st, ok := state[item.ID]
		if !ok || !st.Checked {
			return false
		}
		if item.HasQuantity && (st.Quantity == nil || !(*st.Quantity >= item.MinQuantity)) {
			return false
		}
	}
	return true
}

// Checklist is a validated, ordered list of items together with the rules
// for mutating a ChecklistState against it.
type Checklist struct {
	items      []ChecklistItem
	index      map[string]int
	sequential bool
}

// NewChecklist validates the items and returns a Checklist. When sequential
// is set an item can only be checked once the item before it is.
func NewChecklist(items []ChecklistItem, sequential bool) (*Checklist, error) {
	if len(items) == 0 {
		return nil, configError("checklist has no items")
	}
	index := make(map[string]int, len(items))
	for i, item := range items {
		if item.ID == "" {
			return nil, configError("checklist item %d has empty id", i)
		}
		if _, dup := index[item.ID]; dup {
			return nil, configError("duplicate checklist item id: %q", item.ID)
		}
		if item.MinQuantity < 0 {
			return nil, configError("checklist item %q has negative minimum quantity", item.ID)
		}
		if item.MaxQuantity > 0 && item.MaxQuantity < item.MinQuantity {
			return nil, configError("checklist item %q maximum quantity below minimum", item.ID)
		}
		index[item.ID] = i
	}
	return &Checklist{
		items:      append([]ChecklistItem(nil), items...),
		index:      index,
		sequential: sequential,
	}, nil
}

// Items returns a copy of the checklist items in order.
func (c *Checklist) Items() []ChecklistItem {
	return append([]ChecklistItem(nil), c.items...)
}

// Item returns the item with the given ID.
func (c *Checklist) Item(id string) (ChecklistItem, bool) {
	i, ok := c.index[id]
	if !ok {
		return ChecklistItem{}, false
	}
	return c.items[i], true
}

// Sequential reports whether items must be checked in order.
func (c *Checklist) Sequential() bool {
	return c.sequential
}

// IsSatisfied evaluates state against the checklist items.
func (c *Checklist) IsSatisfied(state ChecklistState) bool {
	return IsSatisfied(c.items, state)
}

// Toggle flips the checked flag of an item, keeping any recorded quantity.
func (c *Checklist) Toggle(state ChecklistState, id string) error {
	i, ok := c.index[id]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownItem, id)
	}
	st := state[id]
	if !st.Checked && c.sequential && i > 0 && !state[c.items[i-1].ID].Checked {
		return fmt.Errorf("%w: %q", ErrOutOfOrder, id)
	}
	st.Checked = !st.Checked
	state[id] = st
	return nil
}

// SetQuantity records a quantity for an item and marks it checked.
func (c *Checklist) SetQuantity(state ChecklistState, id string, quantity float64) error {
	i, ok := c.index[id]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownItem, id)
	}
	item := c.items[i]
	if !item.HasQuantity {
		return fmt.Errorf("%w: %q", ErrNoQuantity, id)
	}
	if math.IsNaN(quantity) || math.IsInf(quantity, 0) || quantity < 0 ||
		(item.MaxQuantity > 0 && quantity > item.MaxQuantity) {
		return fmt.Errorf("%w: %q: %g", ErrQuantityRange, id, quantity)
	}
	st := state[id]
	if !st.Checked && c.sequential && i > 0 && !state[c.items[i-1].ID].Checked {
		return fmt.Errorf("%w: %q", ErrOutOfOrder, id)
	}
	st.Checked = true
	st.Quantity = &quantity
	state[id] = st
	return nil
}

// Progress returns how many items are checked out of the total.
func (c *Checklist) Progress(state ChecklistState) (checked, total int) {
	for _, item := range c.items {
		if state[item.ID].Checked {
			checked++
		}
	}
	return checked, len(c.items)
}

// CheckedIDs returns the IDs of checked items in checklist order.
func (c *Checklist) CheckedIDs(state ChecklistState) []string {
	ids := []string{}
	for _, item := range c.items {
		if state[item.ID].Checked {
			ids = append(ids, item.ID)
		}
	}
	return ids
}
