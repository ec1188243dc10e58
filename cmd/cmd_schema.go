package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/foggy-projects/foggy-data-mcp-bridge-sub003/core"
	"github.com/foggy-projects/foggy-data-mcp-bridge-sub003/serv"
	"github.com/invopop/jsonschema"
	"github.com/spf13/cobra"
)

func schemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "schema [request|config|model]",
		Short:     "Print the JSON Schema of request, config or model files",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"request", "config", "model"},
		RunE: func(cmd *cobra.Command, args []string) error {
			kind := "request"
			if len(args) != 0 {
				kind = args[0]
			}
			return writeSchema(cmd.OutOrStdout(), kind)
		},
	}
}

func writeSchema(w io.Writer, kind string) error {
	var v interface{}

	switch kind {
	case "request":
		v = &core.QueryRequest{}
	case "config":
		v = &serv.Config{}
	case "model":
		v = &core.Model{}
	default:
		return fmt.Errorf("unknown schema %q: expected request, config or model", kind)
	}

	r := jsonschema.Reflector{
		FieldNameTag:   "mapstructure",
		ExpandedStruct: true,
	}
	if kind == "model" {
		r.FieldNameTag = "yaml"
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r.Reflect(v))
}
