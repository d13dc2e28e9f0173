package pipeline

import (
	"encoding/json"
	"fmt"
	"strings"

	c "github.com/relloyd/healthpipe/constants"
)

// Config describes the fixed dataset shape that the pipeline graph is built from.
type Config struct {
	ProjectID        string   `json:"projectId" yaml:"projectId" mapstructure:"projectId" errorTxt:"project id" mandatory:"yes"`
	StagingDataset   string   `json:"stagingDataset" yaml:"stagingDataset" mapstructure:"stagingDataset" errorTxt:"staging dataset" mandatory:"yes"`
	TransformDataset string   `json:"transformDataset" yaml:"transformDataset" mapstructure:"transformDataset" errorTxt:"transform dataset" mandatory:"yes"`
	ReportingDataset string   `json:"reportingDataset" yaml:"reportingDataset" mapstructure:"reportingDataset" errorTxt:"reporting dataset" mandatory:"yes"`
	BucketName       string   `json:"bucketName" yaml:"bucketName" mapstructure:"bucketName" errorTxt:"bucket name" mandatory:"yes"`
	SourceObjectPath string   `json:"sourceObjectPath" yaml:"sourceObjectPath" mapstructure:"sourceObjectPath" errorTxt:"source object path" mandatory:"yes"`
	PartitionKeys    []string `json:"partitionKeys" yaml:"partitionKeys" mapstructure:"partitionKeys" errorTxt:"partition keys" mandatory:"yes"`
	DagID            string   `json:"dagId" yaml:"dagId" mapstructure:"dagId"`
	Description      string   `json:"description" yaml:"description" mapstructure:"description"`
	Tags             []string `json:"tags" yaml:"tags" mapstructure:"tags"`
	Retries          int      `json:"retries" yaml:"retries" mapstructure:"retries"`
	SqlDialect       string   `json:"sqlDialect" yaml:"sqlDialect" mapstructure:"sqlDialect"` // bigquery (default) or snowflake
}

// NewConfig returns a Config populated with the default DAG metadata and partition keys.
// Callers are expected to supply the project, datasets and source object.
func NewConfig() Config {
	return Config{
		StagingDataset:   "staging_dataset",
		TransformDataset: "transform_dataset",
		ReportingDataset: "reporting_dataset",
		PartitionKeys:    append([]string(nil), c.DefaultPartitionKeys...),
		DagID:            c.DagID,
		Description:      c.DagDescription,
		Tags:             append([]string(nil), c.DagTags...),
		Retries:          c.DefaultRetries,
	}
}

// Kind is the operator type of a TaskNode.
type Kind uint32

const (
	KindExistenceCheck Kind = iota + 1
	KindBulkLoad
	KindCreatePartitionTable
	KindCreatePartitionView
	KindMarker
)

var kindNames = map[Kind]string{
	KindExistenceCheck:       "EXISTENCE_CHECK",
	KindBulkLoad:             "BULK_LOAD",
	KindCreatePartitionTable: "CREATE_PARTITION_TABLE",
	KindCreatePartitionView:  "CREATE_PARTITION_VIEW",
	KindMarker:               "MARKER",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", uint32(k))
}

func (k Kind) MarshalJSON() ([]byte, error) {
	s, ok := kindNames[k]
	if !ok {
		return nil, fmt.Errorf("unhandled Kind value %v in custom MarshalJSON() conversion", uint32(k))
	}
	return json.Marshal(s)
}

func (k *Kind) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	for kind, name := range kindNames {
		if strings.EqualFold(name, s) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unsupported task kind %q", s)
}

// Parameter names used by TaskNode.Params.
const (
	ParamBucket              = "bucket"
	ParamObject              = "object"
	ParamPollInterval        = "poll_interval"
	ParamTimeout             = "timeout"
	ParamMode                = "mode"
	ParamSourceObjects       = "source_objects"
	ParamDestination         = "destination_project_dataset_table"
	ParamSourceFormat        = "source_format"
	ParamSkipLeadingRows     = "skip_leading_rows"
	ParamFieldDelimiter      = "field_delimiter"
	ParamWriteDisposition    = "write_disposition"
	ParamAutodetect          = "autodetect"
	ParamAllowJaggedRows     = "allow_jagged_rows"
	ParamIgnoreUnknownValues = "ignore_unknown_values"
	ParamQuery               = "query"
	ParamUseLegacySql        = "use_legacy_sql"
	ParamPartitionKey        = "partition_key"
	ParamTriggerRule         = "trigger_rule"
)

// TriggerRule decides when a node may run given the terminal states of its upstream nodes.
type TriggerRule string

const (
	TriggerAllSuccess TriggerRule = c.TriggerRuleAllSuccess
	TriggerOneSuccess TriggerRule = c.TriggerRuleOneSuccess
)

// TaskNode is an immutable task descriptor.
// Use Param and ParamsCopy to read parameters; the map must not be written after Build.
type TaskNode struct {
	ID     string            `json:"id"`
	Kind   Kind              `json:"kind"`
	Params map[string]string `json:"params"`
}

// Param returns the named parameter or "" if it isn't set.
func (n TaskNode) Param(name string) string {
	return n.Params[name]
}

// TriggerRule returns the node's join rule, defaulting to all_success.
func (n TaskNode) TriggerRule() TriggerRule {
	if r := n.Params[ParamTriggerRule]; r != "" {
		return TriggerRule(r)
	}
	return TriggerAllSuccess
}

// ParamsCopy returns a copy of the node parameters.
func (n TaskNode) ParamsCopy() map[string]string {
	m := make(map[string]string, len(n.Params))
	for k, v := range n.Params {
		m[k] = v
	}
	return m
}

func (n TaskNode) clone() TaskNode {
	n.Params = n.ParamsCopy()
	return n
}

// Edge means Downstream may not start before Upstream reports success.
type Edge struct {
	Upstream   string `json:"upstream"`
	Downstream string `json:"downstream"`
}

func (e Edge) String() string {
	return e.Upstream + " >> " + e.Downstream
}
