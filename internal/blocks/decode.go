package blocks

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ErrUnrecognized is returned when a JSON document is neither a block, a
// block list, nor an analysis response.
var ErrUnrecognized = errors.New("unrecognized block document")

// Response is one page of an analysis response, as saved by the service CLI.
type Response struct {
	Blocks           []Block           `json:"Blocks"`
	JobStatus        string            `json:"JobStatus,omitempty"`
	NextToken        string            `json:"NextToken,omitempty"`
	DocumentMetadata *DocumentMetadata `json:"DocumentMetadata,omitempty"`
}

// DocumentMetadata carries the page count of the analysed document.
type DocumentMetadata struct {
	Pages int `json:"Pages"`
}

// probe is used to tell a block from a response without decoding twice.
type probe struct {
	BlockType *string         `json:"BlockType"`
	Blocks    json.RawMessage `json:"Blocks"`
}

// Decode reads a block collection from JSON. It accepts a JSON array of
// blocks, a single response object, or a JSON array of paginated response
// objects; response pages are concatenated in order.
func Decode(r io.Reader) ([]Block, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read blocks: %w", err)
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}

	switch data[0] {
	case '{':
		return decodeElement(data)
	case '[':
		var elems []json.RawMessage
		if err := json.Unmarshal(data, &elems); err != nil {
			return nil, fmt.Errorf("decode block list: %w", err)
		}
		var out []Block
		for i, raw := range elems {
			bs, err := decodeElement(raw)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			out = append(out, bs...)
		}
		return out, nil
	default:
		return nil, ErrUnrecognized
	}
}

func decodeElement(raw json.RawMessage) ([]Block, error) {
	var p probe
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	switch {
	case p.BlockType != nil:
		var b Block
		if err := json.Unmarshal(raw, &b); err != nil {
			return nil, fmt.Errorf("decode block: %w", err)
		}
		return []Block{b}, nil
	case p.Blocks != nil:
		var resp Response
		if err := json.Unmarshal(raw, &resp); err != nil {
			return nil, fmt.Errorf("decode response: %w", err)
		}
		return resp.Blocks, nil
	default:
		return nil, ErrUnrecognized
	}
}

// LoadFile decodes a block collection from a JSON file.
func LoadFile(path string) ([]Block, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open blocks file: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// Encode writes the collection as a single response object.
func Encode(w io.Writer, bs []Block) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(Response{Blocks: bs})
}

// SaveFile writes the collection to path, creating parent directories.
func SaveFile(path string, bs []Block) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create blocks directory: %w", err)
	}
	var buf bytes.Buffer
	if err := Encode(&buf, bs); err != nil {
		return fmt.Errorf("encode blocks: %w", err)
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}
