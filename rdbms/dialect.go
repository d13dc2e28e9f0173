package rdbms

import (
	"fmt"
	"strings"

	"github.com/relloyd/healthpipe/constants"
)

// Column types produced by schema detection.
type ColumnType uint32

const (
	ColumnTypeString ColumnType = iota + 1
	ColumnTypeInt
	ColumnTypeFloat
	ColumnTypeBool
)

func (c ColumnType) String() string {
	switch c {
	case ColumnTypeString:
		return "STRING"
	case ColumnTypeInt:
		return "INT64"
	case ColumnTypeFloat:
		return "FLOAT64"
	case ColumnTypeBool:
		return "BOOL"
	default:
		return fmt.Sprintf("ColumnType(%d)", uint32(c))
	}
}

// Dialect renders identifiers, literals and types for a warehouse SQL flavour.
type Dialect interface {
	Name() string
	QuoteTable(t TableRef) string
	QuoteColumn(name string) string
	Literal(s string) string
	ColumnType(c ColumnType) string
	Placeholder(position int) string
}

const (
	DialectBigQuery  = "bigquery"
	DialectSnowflake = "snowflake"
)

// GetDialect returns the Dialect registered under name.
func GetDialect(name string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", DialectBigQuery:
		return BigQueryDialect{}, nil
	case DialectSnowflake:
		return SnowflakeDialect{}, nil
	default:
		return nil, fmt.Errorf("unsupported SQL dialect %q", name)
	}
}

// GetDialectForConnection returns the SQL dialect to use with a warehouse connection of type connectionType.
// Snowflake and mock warehouses speak Snowflake SQL, so requested must be empty or match it.
// Other connection types cannot be detected and need requested to be set.
func GetDialectForConnection(connectionType string, requested string) (Dialect, error) {
	var want Dialect
	if requested != "" {
		d, err := GetDialect(requested)
		if err != nil {
			return nil, err
		}
		want = d
	}
	switch connectionType {
	case constants.ConnectionTypeSnowflake, constants.ConnectionTypeMockWarehouse:
		if want != nil && want.Name() != DialectSnowflake {
			return nil, fmt.Errorf("SQL dialect %q does not match warehouse connection type %q", want.Name(), connectionType)
		}
		return SnowflakeDialect{}, nil
	default:
		if want == nil {
			return nil, fmt.Errorf("supply a SQL dialect to use warehouse connection type %q", connectionType)
		}
		return want, nil
	}
}

// BigQueryDialect renders standard SQL for BigQuery.
type BigQueryDialect struct{}

func (BigQueryDialect) Name() string { return DialectBigQuery }

func (BigQueryDialect) QuoteTable(t TableRef) string {
	return "`" + t.String() + "`"
}

// QuoteColumn leaves plain identifiers bare and wraps anything else in backticks.
func (BigQueryDialect) QuoteColumn(name string) string {
	if ValidObjectName(name) {
		return name
	}
	return "`" + strings.ReplaceAll(name, "`", "\\`") + "`"
}

func (BigQueryDialect) Literal(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return "'" + strings.ReplaceAll(s, `'`, `\'`) + "'"
}

func (BigQueryDialect) ColumnType(c ColumnType) string {
	return c.String()
}

func (BigQueryDialect) Placeholder(int) string { return "?" }

// SnowflakeDialect renders SQL for Snowflake where project is the database and dataset is the schema.
type SnowflakeDialect struct{}

func (SnowflakeDialect) Name() string { return DialectSnowflake }

// QuoteTable quotes each part of t that Snowflake would not accept bare.
func (d SnowflakeDialect) QuoteTable(t TableRef) string {
	return d.QuoteColumn(t.Project) + "." + d.QuoteColumn(t.Dataset) + "." + d.QuoteColumn(t.Table)
}

// QuoteColumn leaves plain identifiers bare so Snowflake resolves them in upper case whatever case they
// were written in. Reserved words are quoted in upper case, which resolves the same way.
// Anything else is quoted with its case preserved.
func (SnowflakeDialect) QuoteColumn(name string) string {
	if ValidObjectName(name) {
		if _, ok := snowflakeReservedWords[strings.ToUpper(name)]; !ok {
			return name
		}
		return `"` + strings.ToUpper(name) + `"`
	}
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (SnowflakeDialect) Literal(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return "'" + strings.ReplaceAll(s, `'`, `''`) + "'"
}

func (SnowflakeDialect) ColumnType(c ColumnType) string {
	switch c {
	case ColumnTypeInt:
		return "NUMBER(38,0)"
	case ColumnTypeFloat:
		return "FLOAT"
	case ColumnTypeBool:
		return "BOOLEAN"
	default:
		return "VARCHAR"
	}
}

func (SnowflakeDialect) Placeholder(int) string { return "?" }

// snowflakeReservedWords may not be used as unquoted identifiers.
var snowflakeReservedWords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(`ACCOUNT ALL ALTER AND ANY AS BETWEEN BY CASE CAST CHECK COLUMN CONNECT
CONNECTION CONSTRAINT CREATE CROSS CURRENT CURRENT_DATE CURRENT_TIME CURRENT_TIMESTAMP CURRENT_USER
DATABASE DELETE DISTINCT DROP ELSE EXISTS FALSE FOLLOWING FOR FROM FULL GRANT GROUP GSCLUSTER HAVING
ILIKE IN INCREMENT INNER INSERT INTERSECT INTO IS ISSUE JOIN LATERAL LEFT LIKE LOCALTIME LOCALTIMESTAMP
MINUS NATURAL NOT NULL OF ON OR ORDER ORGANIZATION QUALIFY REGEXP REVOKE RIGHT RLIKE ROW ROWS SAMPLE
SCHEMA SELECT SET SOME START TABLE TABLESAMPLE THEN TO TRIGGER TRUE TRY_CAST UNION UNIQUE UPDATE USING
VALUES VIEW WHEN WHENEVER WHERE WITH`) {
		snowflakeReservedWords[w] = struct{}{}
	}
}
