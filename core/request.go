package core

import (
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// QueryRequest describes a query against the model of an engine
type QueryRequest struct {
	// Columns to select. Entries may be inline expressions such as
	// "sum(salesAmount) AS total"
	Columns []string `mapstructure:"columns" json:"columns,omitempty" yaml:"columns,omitempty" jsonschema:"title=Columns"`

	// Columns removed from the select list after defaults are applied
	ExColumns []string `mapstructure:"ex_columns" json:"ex_columns,omitempty" yaml:"ex_columns,omitempty" jsonschema:"title=Excluded Columns"`

	Slice            []SliceRequest    `mapstructure:"slice" json:"slice,omitempty" yaml:"slice,omitempty" jsonschema:"title=Conditions"`
	GroupBy          []GroupRequest    `mapstructure:"group_by" json:"group_by,omitempty" yaml:"group_by,omitempty" jsonschema:"title=Group By"`
	OrderBy          []OrderRequest    `mapstructure:"order_by" json:"order_by,omitempty" yaml:"order_by,omitempty" jsonschema:"title=Order By"`
	CalculatedFields []CalculatedField `mapstructure:"calculated_fields" json:"calculated_fields,omitempty" yaml:"calculated_fields,omitempty" jsonschema:"title=Calculated Fields"`

	Distinct bool `mapstructure:"distinct" json:"distinct,omitempty" yaml:"distinct,omitempty" jsonschema:"title=Distinct,default=false"`
	Start    int  `mapstructure:"start" json:"start,omitempty" yaml:"start,omitempty" jsonschema:"title=Offset,minimum=0"`
	Limit    int  `mapstructure:"limit" json:"limit,omitempty" yaml:"limit,omitempty" jsonschema:"title=Limit,minimum=0"`

	// Also build the summary query with the total row count
	ReturnTotal bool `mapstructure:"return_total" json:"return_total,omitempty" yaml:"return_total,omitempty" jsonschema:"title=Return Total,default=false"`
}

// SliceRequest is a condition. A condition with children is a group whose
// children are joined by their own links.
type SliceRequest struct {
	Field    string         `mapstructure:"field" json:"field,omitempty" yaml:"field,omitempty" jsonschema:"title=Field"`
	Op       string         `mapstructure:"op" json:"op,omitempty" yaml:"op,omitempty" jsonschema:"title=Operator"`
	Value    interface{}    `mapstructure:"value" json:"value,omitempty" yaml:"value,omitempty" jsonschema:"title=Value"`
	Link     string         `mapstructure:"link" json:"link,omitempty" yaml:"link,omitempty" jsonschema:"title=Link,enum=and,enum=or"`
	Children []SliceRequest `mapstructure:"children" json:"children,omitempty" yaml:"children,omitempty" jsonschema:"title=Children"`
}

type GroupRequest struct {
	Field string `mapstructure:"field" json:"field" yaml:"field" jsonschema:"title=Field"`
	Agg   string `mapstructure:"agg" json:"agg,omitempty" yaml:"agg,omitempty" jsonschema:"title=Aggregation"`
}

type OrderRequest struct {
	Field     string `mapstructure:"field" json:"field" yaml:"field" jsonschema:"title=Field"`
	Order     string `mapstructure:"order" json:"order,omitempty" yaml:"order,omitempty" jsonschema:"title=Direction,enum=asc,enum=desc"`
	NullFirst bool   `mapstructure:"null_first" json:"null_first,omitempty" yaml:"null_first,omitempty" jsonschema:"title=Nulls First"`
	NullLast  bool   `mapstructure:"null_last" json:"null_last,omitempty" yaml:"null_last,omitempty" jsonschema:"title=Nulls Last"`
}

// CalculatedField is a named expression usable like a model column
type CalculatedField struct {
	Name        string `mapstructure:"name" json:"name" yaml:"name" jsonschema:"title=Name"`
	Expression  string `mapstructure:"expression" json:"expression" yaml:"expression" jsonschema:"title=Expression"`
	Caption     string `mapstructure:"caption" json:"caption,omitempty" yaml:"caption,omitempty" jsonschema:"title=Caption"`
	Description string `mapstructure:"description" json:"description,omitempty" yaml:"description,omitempty" jsonschema:"title=Description"`
	Agg         string `mapstructure:"agg" json:"agg,omitempty" yaml:"agg,omitempty" jsonschema:"title=Aggregation"`
}

// DecodeRequest converts a generic map, as produced by JSON or YAML
// decoders, into a request. Unknown keys are an error.
func DecodeRequest(m map[string]interface{}) (*QueryRequest, error) {
	var req QueryRequest
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &req,
		ErrorUnused:      true,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(m); err != nil {
		return nil, errors.Wrap(err, "failed to decode request")
	}
	return &req, nil
}

// ParseRequest decodes a YAML or JSON request document
func ParseRequest(b []byte) (*QueryRequest, error) {
	var m map[string]interface{}
	if err := yaml.Unmarshal(b, &m); err != nil {
		return nil, errors.Wrap(err, "failed to parse request")
	}
	return DecodeRequest(m)
}

func (req *QueryRequest) clone() QueryRequest {
	r := *req
	r.Columns = append([]string(nil), req.Columns...)
	r.GroupBy = append([]GroupRequest(nil), req.GroupBy...)
	r.OrderBy = append([]OrderRequest(nil), req.OrderBy...)
	r.CalculatedFields = append([]CalculatedField(nil), req.CalculatedFields...)
	return r
}

func (req *QueryRequest) hasGroupBy() bool {
	return len(req.GroupBy) != 0
}

func (req *QueryRequest) groupFields() []string {
	fields := make([]string, 0, len(req.GroupBy))
	for _, g := range req.GroupBy {
		fields = append(fields, g.Field)
	}
	return fields
}
