// Package blocks models the flat block collection returned by a document
// analysis job and the identifier index used to resolve relationships
// between blocks.
//
// Blocks reference each other by identifier only. The collection is kept as
// an arena ([]Block) and relationships are resolved through an Index, so a
// dangling identifier simply resolves to nothing.
package blocks

// Type is the kind of a block as reported by the analysis service.
type Type string

const (
	TypePage             Type = "PAGE"
	TypeLine             Type = "LINE"
	TypeWord             Type = "WORD"
	TypeTable            Type = "TABLE"
	TypeCell             Type = "CELL"
	TypeMergedCell       Type = "MERGED_CELL"
	TypeTableTitle       Type = "TABLE_TITLE"
	TypeTableFooter      Type = "TABLE_FOOTER"
	TypeKeyValueSet      Type = "KEY_VALUE_SET"
	TypeSelectionElement Type = "SELECTION_ELEMENT"
	TypeQuery            Type = "QUERY"
	TypeQueryResult      Type = "QUERY_RESULT"
	TypeSignature        Type = "SIGNATURE"
)

// RelationshipType is the kind of link between two blocks.
// Table reconstruction only follows CHILD.
type RelationshipType string

const (
	RelationshipChild       RelationshipType = "CHILD"
	RelationshipValue       RelationshipType = "VALUE"
	RelationshipAnswer      RelationshipType = "ANSWER"
	RelationshipMergedCell  RelationshipType = "MERGED_CELL"
	RelationshipTitle       RelationshipType = "TITLE"
	RelationshipTableFooter RelationshipType = "TABLE_FOOTER"
)

// Relationship is an ordered list of referenced block identifiers.
type Relationship struct {
	Type RelationshipType `json:"Type"`
	IDs  []string         `json:"Ids"`
}

// BoundingBox is the axis-aligned box of a block, as page ratios.
type BoundingBox struct {
	Width  float64 `json:"Width"`
	Height float64 `json:"Height"`
	Left   float64 `json:"Left"`
	Top    float64 `json:"Top"`
}

// Point is one polygon vertex, as page ratios.
type Point struct {
	X float64 `json:"X"`
	Y float64 `json:"Y"`
}

// Geometry locates a block on its page.
type Geometry struct {
	BoundingBox *BoundingBox `json:"BoundingBox,omitempty"`
	Polygon     []Point      `json:"Polygon,omitempty"`
}

// Query is the question attached to a QUERY block.
type Query struct {
	Text  string `json:"Text"`
	Alias string `json:"Alias,omitempty"`
}

// Block is one immutable unit of analysis output.
// JSON field names follow the service wire format so saved responses
// decode without translation.
type Block struct {
	ID              string         `json:"Id"`
	Type            Type           `json:"BlockType"`
	Page            int            `json:"Page,omitempty"`
	RowIndex        int            `json:"RowIndex,omitempty"`
	ColumnIndex     int            `json:"ColumnIndex,omitempty"`
	RowSpan         int            `json:"RowSpan,omitempty"`
	ColumnSpan      int            `json:"ColumnSpan,omitempty"`
	Relationships   []Relationship `json:"Relationships,omitempty"`
	Text            string         `json:"Text,omitempty"`
	Confidence      float64        `json:"Confidence,omitempty"`
	EntityTypes     []string       `json:"EntityTypes,omitempty"`
	SelectionStatus string         `json:"SelectionStatus,omitempty"`
	Query           *Query         `json:"Query,omitempty"`
	Geometry        *Geometry      `json:"Geometry,omitempty"`
}

// ChildIDs returns the identifiers of every CHILD relationship, in the order
// the relationships list them.
func (b Block) ChildIDs() []string {
	var ids []string
	for _, rel := range b.Relationships {
		if rel.Type == RelationshipChild {
			ids = append(ids, rel.IDs...)
		}
	}
	return ids
}

// Merge concatenates paginated block pages in order.
// All pages of one analysis run must be merged before tables are assembled.
func Merge(pages ...[]Block) []Block {
	n := 0
	for _, p := range pages {
		n += len(p)
	}
	out := make([]Block, 0, n)
	for _, p := range pages {
		out = append(out, p...)
	}
	return out
}

// Stats counts blocks by type.
func Stats(bs []Block) map[Type]int {
	counts := make(map[Type]int)
	for _, b := range bs {
		counts[b.Type]++
	}
	return counts
}
