package textract

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/textract/types"

	"github.com/jackzampolin/tablescan/internal/blocks"
)

func convertBlocks(in []types.Block) []blocks.Block {
	out := make([]blocks.Block, len(in))
	for i, b := range in {
		out[i] = convertBlock(b)
	}
	return out
}

func convertBlock(b types.Block) blocks.Block {
	out := blocks.Block{
		ID:              aws.ToString(b.Id),
		Type:            blocks.Type(b.BlockType),
		Page:            int(aws.ToInt32(b.Page)),
		RowIndex:        int(aws.ToInt32(b.RowIndex)),
		ColumnIndex:     int(aws.ToInt32(b.ColumnIndex)),
		RowSpan:         int(aws.ToInt32(b.RowSpan)),
		ColumnSpan:      int(aws.ToInt32(b.ColumnSpan)),
		Text:            aws.ToString(b.Text),
		Confidence:      float64(aws.ToFloat32(b.Confidence)),
		SelectionStatus: string(b.SelectionStatus),
	}
	for _, r := range b.Relationships {
		ids := make([]string, len(r.Ids))
		copy(ids, r.Ids)
		out.Relationships = append(out.Relationships, blocks.Relationship{
			Type: blocks.RelationshipType(r.Type),
			IDs:  ids,
		})
	}
	for _, e := range b.EntityTypes {
		out.EntityTypes = append(out.EntityTypes, string(e))
	}
	if b.Query != nil {
		out.Query = &blocks.Query{
			Text:  aws.ToString(b.Query.Text),
			Alias: aws.ToString(b.Query.Alias),
		}
	}
	if g := b.Geometry; g != nil {
		geo := &blocks.Geometry{}
		if bb := g.BoundingBox; bb != nil {
			geo.BoundingBox = &blocks.BoundingBox{
				Width:  float64(bb.Width),
				Height: float64(bb.Height),
				Left:   float64(bb.Left),
				Top:    float64(bb.Top),
			}
		}
		for _, p := range g.Polygon {
			geo.Polygon = append(geo.Polygon, blocks.Point{X: float64(p.X), Y: float64(p.Y)})
		}
		out.Geometry = geo
	}
	return out
}
