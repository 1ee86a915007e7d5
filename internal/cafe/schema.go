package cafe

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed data/schema.json
var schemaJSON string

//go:embed data/cafe.json
var defaultData []byte

var schemaLoader = gojsonschema.NewStringLoader(schemaJSON)

// Parse validates raw against the data schema and decodes it.
func Parse(raw []byte) (*Data, error) {
	res, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, fmt.Errorf("cafe: validate data: %w", err)
	}
	if !res.Valid() {
		msgs := make([]string, 0, len(res.Errors()))
		for _, e := range res.Errors() {
			msgs = append(msgs, e.String())
		}
		return nil, fmt.Errorf("cafe: invalid data: %s", strings.Join(msgs, "; "))
	}

	var d Data
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("cafe: decode data: %w", err)
	}
	return &d, nil
}

// Default returns the built-in sample data.
func Default() *Data {
	d, err := Parse(defaultData)
	if err != nil {
		panic(fmt.Sprintf("cafe: built-in data is invalid: %v", err))
	}
	return d
}
