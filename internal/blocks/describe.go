package blocks

import (
	"fmt"
	"io"
	"strings"
)

// Describe writes a human-readable description of one block.
func Describe(w io.Writer, b Block) {
	fmt.Fprintf(w, "Block Id: %s\n", b.ID)
	fmt.Fprintf(w, "Type: %s\n", b.Type)

	if len(b.EntityTypes) > 0 {
		fmt.Fprintf(w, "EntityTypes: %s\n", strings.Join(b.EntityTypes, ", "))
	}
	if b.Text != "" {
		fmt.Fprintf(w, "Text: %s\n", b.Text)
	}
	if b.Type != TypePage && b.Confidence > 0 {
		fmt.Fprintf(w, "Confidence: %.2f%%\n", b.Confidence)
	}
	fmt.Fprintf(w, "Page: %d\n", b.Page)

	if b.Type == TypeCell {
		fmt.Fprintln(w, "Cell Information")
		fmt.Fprintf(w, "\tColumn: %d\n", b.ColumnIndex)
		fmt.Fprintf(w, "\tRow: %d\n", b.RowIndex)
		fmt.Fprintf(w, "\tColumn span: %d\n", b.ColumnSpan)
		fmt.Fprintf(w, "\tRow span: %d\n", b.RowSpan)
		for _, rel := range b.Relationships {
			fmt.Fprintf(w, "\tRelationship %s: %s\n", rel.Type, strings.Join(rel.IDs, ", "))
		}
	}

	if b.Geometry != nil && b.Geometry.BoundingBox != nil {
		bb := b.Geometry.BoundingBox
		fmt.Fprintln(w, "Geometry")
		fmt.Fprintf(w, "\tBounding Box: left=%.4f top=%.4f width=%.4f height=%.4f\n",
			bb.Left, bb.Top, bb.Width, bb.Height)
		if len(b.Geometry.Polygon) > 0 {
			pts := make([]string, len(b.Geometry.Polygon))
			for i, p := range b.Geometry.Polygon {
				pts[i] = fmt.Sprintf("(%.4f, %.4f)", p.X, p.Y)
			}
			fmt.Fprintf(w, "\tPolygon: %s\n", strings.Join(pts, " "))
		}
	}

	switch b.Type {
	case TypeSelectionElement:
		status := "Not selected"
		if b.SelectionStatus == "SELECTED" {
			status = "Selected"
		}
		fmt.Fprintf(w, "Selection element detected: %s\n", status)
	case TypeQuery:
		if b.Query != nil {
			fmt.Fprintln(w, "Query info:")
			fmt.Fprintf(w, "\t%s\n", b.Query.Text)
			if b.Query.Alias != "" {
				fmt.Fprintf(w, "\talias: %s\n", b.Query.Alias)
			}
		}
	case TypeQueryResult:
		fmt.Fprintln(w, "Query answer:")
		fmt.Fprintf(w, "\t%s\n", b.Text)
	}
}
