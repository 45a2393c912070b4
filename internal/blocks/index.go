package blocks

// Index is an identifier lookup over one block collection.
// When an identifier repeats, the first occurrence wins.
type Index struct {
	blocks []Block
	byID   map[string]int
}

// NewIndex indexes the full, already merged block collection.
func NewIndex(bs []Block) *Index {
	byID := make(map[string]int, len(bs))
	for i, b := range bs {
		if _, seen := byID[b.ID]; !seen {
			byID[b.ID] = i
		}
	}
	return &Index{blocks: bs, byID: byID}
}

// Get returns the block with the given identifier.
func (x *Index) Get(id string) (Block, bool) {
	i, ok := x.byID[id]
	if !ok {
		return Block{}, false
	}
	return x.blocks[i], true
}

// Len returns the number of distinct identifiers.
func (x *Index) Len() int {
	return len(x.byID)
}

// Blocks returns the indexed collection in its original order.
func (x *Index) Blocks() []Block {
	return x.blocks
}
