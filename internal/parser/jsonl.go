package parser

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/rashee1997/memgraph-mcp/pkg/types"
)

// JSONLParser treats each line of a .jsonl file as one record entity.
// Malformed lines are skipped individually, never fatally.
type JSONLParser struct{}

// NewJSONLParser creates a JSONL parser
func NewJSONLParser() *JSONLParser {
	return &JSONLParser{}
}

func (p *JSONLParser) Language() string { return "jsonl" }

func (p *JSONLParser) Extensions() []string {
	return []string{".jsonl", ".ndjson"}
}

// ParseImports always returns an empty list; JSONL records do not import.
func (p *JSONLParser) ParseImports(ctx context.Context, filePath string, content []byte) ([]types.ExtractedImport, error) {
	return []types.ExtractedImport{}, nil
}

// recordNameFields are tried in order when naming a record
var recordNameFields = []string{"name", "id", "title", "key"}

// ParseCodeEntities emits one record entity per well-formed line. The
// record name comes from a conventional identifying field when present,
// falling back to a positional name.
func (p *JSONLParser) ParseCodeEntities(ctx context.Context, filePath string, content []byte, projectRoot string, opts Options) ([]types.ExtractedCodeEntity, error) {
	relPath := projectRelative(projectRoot, filePath)
	entities := make([]types.ExtractedCodeEntity, 0)

	scanner := bufio.NewScanner(bytes.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var record map[string]interface{}
		if err := json.Unmarshal(line, &record); err != nil {
			continue
		}

		name := recordName(record, lineNo)
		keys := recordKeys(record)
		entities = append(entities, types.ExtractedCodeEntity{
			Type:                types.EntityRecord,
			Name:                name,
			FullName:            qualifyName(relPath, nil, name),
			StartLine:           lineNo,
			EndLine:             lineNo,
			FilePath:            filePath,
			ContainingDirectory: containingDir(filePath),
			Signature:           "{" + strings.Join(keys, ", ") + "}",
			IsExported:          true,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, parseErr(filePath, err)
	}
	return entities, nil
}

func recordName(record map[string]interface{}, lineNo int) string {
	for _, field := range recordNameFields {
		if v, ok := record[field]; ok {
			switch val := v.(type) {
			case string:
				if val != "" {
					return val
				}
			case float64:
				return fmt.Sprintf("%v", val)
			}
		}
	}
	return fmt.Sprintf("record_%d", lineNo)
}

func recordKeys(record map[string]interface{}) []string {
	keys := make([]string, 0, len(record))
	for k := range record {
		keys = append(keys, k)
	}
	// Stable signature regardless of map iteration order
	sort.Strings(keys)
	return keys
}
