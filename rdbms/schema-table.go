package rdbms

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	reProjectName = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]*$`)
	reObjectName  = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

// TableRef is a fully qualified <project>.<dataset>.<table> reference.
// For Snowflake the project maps to the database and the dataset maps to the schema.
type TableRef struct {
	Project string `json:"project" errorTxt:"project" mandatory:"yes"`
	Dataset string `json:"dataset" errorTxt:"dataset" mandatory:"yes"`
	Table   string `json:"table" errorTxt:"table" mandatory:"yes"`
}

func NewTableRef(project string, dataset string, table string) TableRef {
	return TableRef{Project: project, Dataset: dataset, Table: table}
}

// ParseTableRef splits s of the form <project>.<dataset>.<table> into a TableRef.
// Surrounding backticks are removed.
func ParseTableRef(s string) (TableRef, error) {
	s = strings.Trim(strings.TrimSpace(s), "`")
	parts := strings.Split(s, ".")
	if len(parts) != 3 {
		return TableRef{}, fmt.Errorf("table reference %q must be of the form <project>.<dataset>.<table>", s)
	}
	t := TableRef{Project: parts[0], Dataset: parts[1], Table: parts[2]}
	return t, t.Validate()
}

// Validate checks that each component of the reference is a plain identifier, so it can be rendered into SQL
// without quoting.
func (t TableRef) Validate() error {
	if !reProjectName.MatchString(t.Project) {
		return fmt.Errorf("invalid project name %q", t.Project)
	}
	if !ValidObjectName(t.Dataset) {
		return fmt.Errorf("invalid dataset name %q", t.Dataset)
	}
	if !ValidObjectName(t.Table) {
		return fmt.Errorf("invalid table name %q", t.Table)
	}
	return nil
}

// WithTable returns a copy of t that points at another table in the same dataset.
func (t TableRef) WithTable(table string) TableRef {
	t.Table = table
	return t
}

func (t TableRef) String() string {
	return t.Project + "." + t.Dataset + "." + t.Table
}

// ValidProjectName returns true if s can be used as a project (or database) name.
func ValidProjectName(s string) bool {
	return reProjectName.MatchString(s)
}

// ValidObjectName returns true if s can be used unquoted as a dataset, table or view name.
func ValidObjectName(s string) bool {
	return reObjectName.MatchString(s)
}
