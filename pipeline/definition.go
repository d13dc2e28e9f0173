package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"io/ioutil"

	"github.com/ghodss/yaml"
	c "github.com/relloyd/healthpipe/constants"
	"github.com/relloyd/healthpipe/rdbms"
)

const DefinitionSchemaVersion = 1

// DefaultArgs are applied by the scheduler to every task in the definition.
type DefaultArgs struct {
	Owner          string `json:"owner"`
	DependsOnPast  bool   `json:"dependsOnPast"`
	EmailOnFailure bool   `json:"emailOnFailure"`
	EmailOnRetry   bool   `json:"emailOnRetry"`
	Retries        int    `json:"retries"`
}

// Definition is the payload submitted to a scheduler: DAG metadata plus the task graph.
type Definition struct {
	SchemaVersion int         `json:"schemaVersion"`
	DagID         string      `json:"dagId"`
	Description   string      `json:"description,omitempty"`
	Schedule      string      `json:"schedule"` // empty means manual triggering only
	StartDate     string      `json:"startDate"`
	Catchup       bool        `json:"catchup"`
	Tags          []string    `json:"tags,omitempty"`
	SqlDialect    string      `json:"sqlDialect"` // dialect the task statements were rendered in
	DefaultArgs   DefaultArgs `json:"defaultArgs"`
	Tasks         []TaskNode  `json:"tasks"`
	Edges         []Edge      `json:"edges"`
}

// NewDefinition wraps g with the DAG metadata found in cfg.
func NewDefinition(cfg Config, g *Graph) *Definition {
	dagID := cfg.DagID
	if dagID == "" {
		dagID = c.DagID
	}
	dialect := rdbms.DialectBigQuery
	if sd, err := rdbms.GetDialect(cfg.SqlDialect); err == nil {
		dialect = sd.Name()
	}
	d := &Definition{
		SchemaVersion: DefinitionSchemaVersion,
		DagID:         dagID,
		Description:   cfg.Description,
		StartDate:     "2024-01-01",
		Tags:          append([]string(nil), cfg.Tags...),
		SqlDialect:    dialect,
		DefaultArgs: DefaultArgs{
			Owner:   c.DagOwner,
			Retries: cfg.Retries,
		},
		Tasks: make([]TaskNode, 0, len(g.Nodes)),
		Edges: append([]Edge(nil), g.Edges...),
	}
	for _, n := range g.Nodes {
		d.Tasks = append(d.Tasks, n.clone())
	}
	return d
}

// Graph returns the validated task graph held in the definition.
func (d *Definition) Graph() (*Graph, error) {
	if d.SchemaVersion != DefinitionSchemaVersion {
		return nil, fmt.Errorf("unsupported definition schema version %v", d.SchemaVersion)
	}
	g := &Graph{Nodes: make([]TaskNode, 0, len(d.Tasks)), Edges: append([]Edge(nil), d.Edges...)}
	for _, n := range d.Tasks {
		g.Nodes = append(g.Nodes, n.clone())
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

// Write renders the definition to w as YAML or indented JSON.
func (d *Definition) Write(w io.Writer, useYaml bool) error {
	var data []byte
	var err error
	if useYaml {
		data, err = yaml.Marshal(d)
	} else {
		data, err = json.MarshalIndent(d, "", "  ")
		data = append(data, '\n')
	}
	if err != nil {
		return fmt.Errorf("unable to marshal the pipeline definition: %w", err)
	}
	_, err = w.Write(data)
	return err
}

// ParseDefinition reads a definition from YAML or JSON bytes.
func ParseDefinition(b []byte) (*Definition, error) {
	j, err := yaml.YAMLToJSON(b) // JSON is valid YAML so this accepts both
	if err != nil {
		return nil, fmt.Errorf("unable to read the pipeline definition: %w", err)
	}
	d := &Definition{}
	if err = json.Unmarshal(j, d); err != nil {
		return nil, fmt.Errorf("unable to parse the pipeline definition: %w", err)
	}
	return d, nil
}

// LoadDefinition reads the definition file found at fileName.
func LoadDefinition(fileName string) (*Definition, error) {
	b, err := ioutil.ReadFile(fileName)
	if err != nil {
		return nil, err
	}
	return ParseDefinition(b)
}
