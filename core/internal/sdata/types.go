package sdata

import (
	"fmt"
	"strings"
)

// ColumnType is the semantic type of a column or expression
type ColumnType int

const (
	TypeUnknown ColumnType = iota
	TypeText
	TypeInteger
	TypeNumber
	TypeMoney
	TypeBool
	TypeDatetime
	TypeDay
)

var columnTypeNames = [...]string{
	TypeUnknown:  "UNKNOWN",
	TypeText:     "TEXT",
	TypeInteger:  "INTEGER",
	TypeNumber:   "NUMBER",
	TypeMoney:    "MONEY",
	TypeBool:     "BOOL",
	TypeDatetime: "DATETIME",
	TypeDay:      "DAY",
}

func (t ColumnType) String() string {
	if int(t) < len(columnTypeNames) {
		return columnTypeNames[t]
	}
	return fmt.Sprintf("ColumnType(%d)", int(t))
}

// IsNumeric is true for INTEGER, NUMBER and MONEY
func (t ColumnType) IsNumeric() bool {
	return t == TypeInteger || t == TypeNumber || t == TypeMoney
}

// ParseColumnType maps a type name to a ColumnType. An empty name is UNKNOWN.
func ParseColumnType(s string) (ColumnType, error) {
	if s == "" {
		return TypeUnknown, nil
	}
	u := strings.ToUpper(s)
	for i, n := range columnTypeNames {
		if n == u {
			return ColumnType(i), nil
		}
	}
	switch u {
	case "STRING":
		return TypeText, nil
	case "BOOLEAN":
		return TypeBool, nil
	case "DATE":
		return TypeDay, nil
	}
	return TypeUnknown, fmt.Errorf("unknown column type %q", s)
}

// ColumnTypeOf maps a raw database type (as reported by introspection) to a ColumnType.
func ColumnTypeOf(raw string) ColumnType {
	t := strings.ToLower(raw)
	if i := strings.IndexByte(t, '('); i != -1 {
		t = t[:i]
	}
	t = strings.TrimSpace(t)

	switch t {
	case "int", "integer", "bigint", "smallint", "tinyint", "mediumint", "int2", "int4", "int8", "serial", "bigserial":
		return TypeInteger
	case "decimal", "numeric", "float", "double", "double precision", "real", "float4", "float8":
		return TypeNumber
	case "money", "smallmoney":
		return TypeMoney
	case "bool", "boolean", "bit":
		return TypeBool
	case "date":
		return TypeDay
	case "datetime", "datetime2", "timestamp", "timestamptz", "timestamp with time zone",
		"timestamp without time zone", "time", "smalldatetime", "datetimeoffset":
		return TypeDatetime
	case "":
		return TypeUnknown
	}
	return TypeText
}

// JoinKind is the kind of a join edge
type JoinKind int

const (
	JoinLeft JoinKind = iota
	JoinInner
	JoinRight
)

func (k JoinKind) String() string {
	switch k {
	case JoinInner:
		return "INNER JOIN"
	case JoinRight:
		return "RIGHT JOIN"
	default:
		return "LEFT JOIN"
	}
}

// ParseJoinKind accepts left, inner and right in any case. Empty means left.
func ParseJoinKind(s string) (JoinKind, error) {
	switch strings.ToLower(s) {
	case "", "left":
		return JoinLeft, nil
	case "inner":
		return JoinInner, nil
	case "right":
		return JoinRight, nil
	}
	return JoinLeft, fmt.Errorf("unknown join kind %q", s)
}
