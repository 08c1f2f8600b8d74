package mcp

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
	"github.com/mark3labs/mcp-go/mcp"
)

// decode unmarshals MCP request arguments into a typed struct.
// Avoids unsafe type assertions and handles JSON decoding safely.
func decode[T any](req mcp.CallToolRequest) (T, error) {
	var result T
	return decodeOnto(req, result)
}

// decodeOnto is decode starting from base, so omitted arguments keep base's values.
func decodeOnto[T any](req mcp.CallToolRequest, base T) (T, error) {
	args := req.GetArguments()
	b, err := json.Marshal(args)
	if err != nil {
		return base, fmt.Errorf("marshal args: %w", err)
	}
	if err := json.Unmarshal(b, &base); err != nil {
		return base, fmt.Errorf("unmarshal args: %w", err)
	}
	return base, nil
}

// inputSchema reflects the JSON schema of a request struct.
func inputSchema[T any]() json.RawMessage {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties:  false,
		DoNotReference:             true,
		RequiredFromJSONSchemaTags: true,
	}
	var v T
	schema := reflector.Reflect(v)
	// Clients only need the object description
	schema.Version = ""
	b, err := json.Marshal(schema)
	if err != nil {
		panic(fmt.Sprintf("reflect schema for %T: %v", v, err))
	}
	return b
}
