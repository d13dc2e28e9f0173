package pipeline

import (
	"fmt"
	"regexp"
	"strings"

	c "github.com/relloyd/healthpipe/constants"
	"github.com/relloyd/healthpipe/rdbms"
)

var rePartitionKey = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_ ]*$`)

// ReportingColumn maps a source column in the transform table to its name in the reporting view.
type ReportingColumn struct {
	Source string
	Alias  string
}

// ReportingColumns are the columns exposed by every partition view, in select list order.
var ReportingColumns = []ReportingColumn{
	{Source: "Year", Alias: "year"},
	{Source: "Disease Name", Alias: "disease_name"},
	{Source: "Disease Category", Alias: "disease_category"},
	{Source: "Prevalence Rate", Alias: "prevalence_rate"},
	{Source: "Incidence Rate", Alias: "incidence_rate"},
}

// ViewFilterColumn is the boolean column the reporting views filter on.
const ViewFilterColumn = "Availability of Vaccines Treatment"

// ValidatePartitionKey returns an error if key may not be used to name tables or filter rows.
func ValidatePartitionKey(key string) error {
	if !rePartitionKey.MatchString(key) {
		return fmt.Errorf("partition key %q must start with a letter and contain only letters, digits, underscores or spaces", key)
	}
	return nil
}

// PartitionSlug returns the lower case identifier fragment used for a partition's task ids and object names.
func PartitionSlug(key string) string {
	return strings.ReplaceAll(strings.ToLower(key), " ", "_")
}

// StagingTable returns the table the bulk load writes to.
func StagingTable(cfg Config) rdbms.TableRef {
	return rdbms.NewTableRef(cfg.ProjectID, cfg.StagingDataset, c.StagingTableName)
}

// TransformTable returns the per partition table created from the staging table.
func TransformTable(cfg Config, key string) rdbms.TableRef {
	return rdbms.NewTableRef(cfg.ProjectID, cfg.TransformDataset, PartitionSlug(key)+c.TaskSuffixTable)
}

// ReportingView returns the per partition view created over the transform table.
func ReportingView(cfg Config, key string) rdbms.TableRef {
	return rdbms.NewTableRef(cfg.ProjectID, cfg.ReportingDataset, PartitionSlug(key)+c.TaskSuffixView)
}

// TableStatement renders the CREATE OR REPLACE TABLE statement for partition key.
func TableStatement(cfg Config, key string, d rdbms.Dialect) (string, error) {
	if err := ValidatePartitionKey(key); err != nil {
		return "", err
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "CREATE OR REPLACE TABLE %v AS\n", d.QuoteTable(TransformTable(cfg, key)))
	sb.WriteString("SELECT *\n")
	fmt.Fprintf(&sb, "FROM %v\n", d.QuoteTable(StagingTable(cfg)))
	fmt.Fprintf(&sb, "WHERE %v = %v", d.QuoteColumn(c.PartitionColumnName), d.Literal(key))
	return sb.String(), nil
}

// ViewStatement renders the CREATE OR REPLACE VIEW statement for partition key.
func ViewStatement(cfg Config, key string, d rdbms.Dialect) (string, error) {
	if err := ValidatePartitionKey(key); err != nil {
		return "", err
	}
	cols := make([]string, 0, len(ReportingColumns))
	for _, col := range ReportingColumns {
		cols = append(cols, fmt.Sprintf("  %v AS %v", d.QuoteColumn(col.Source), d.QuoteColumn(col.Alias)))
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "CREATE OR REPLACE VIEW %v AS\n", d.QuoteTable(ReportingView(cfg, key)))
	sb.WriteString("SELECT\n")
	sb.WriteString(strings.Join(cols, ",\n"))
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "FROM %v\n", d.QuoteTable(TransformTable(cfg, key)))
	fmt.Fprintf(&sb, "WHERE %v = FALSE", d.QuoteColumn(ViewFilterColumn))
	return sb.String(), nil
}
