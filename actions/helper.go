package actions

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/relloyd/healthpipe/aws/s3"
	"github.com/relloyd/healthpipe/components"
	"github.com/relloyd/healthpipe/logger"
	"github.com/relloyd/healthpipe/scheduler"
)

const (
	serviceName       = "healthpipe"
	OutputFormatYaml  = "yaml"
	OutputFormatJson  = "json"
	OutputFormatTable = "table"
)

func newLogger(logLevel string, jsonLogs bool, stackDumpOnPanic bool) logger.Logger {
	if jsonLogs {
		return logger.NewJsonLogger(serviceName, logLevel, stackDumpOnPanic)
	}
	return logger.NewLogger(serviceName, logLevel, stackDumpOnPanic)
}

func writerOrStdout(w io.Writer) io.Writer {
	if w == nil {
		return os.Stdout
	}
	return w
}

// isTerminal reports whether w is an interactive terminal.
var isTerminal = func(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// definitionFormat returns true if the definition should be written as YAML.
func definitionFormat(format string) (useYaml bool, err error) {
	switch strings.ToLower(format) {
	case OutputFormatYaml:
		return true, nil
	case OutputFormatJson:
		return false, nil
	default:
		return false, fmt.Errorf("unsupported output format %q, use %v or %v", format, OutputFormatYaml, OutputFormatJson)
	}
}

// reportFormat resolves the format used to print run results to w.
// Tables are used by default for terminals, JSON otherwise.
func reportFormat(format string, w io.Writer) (string, error) {
	switch f := strings.ToLower(format); f {
	case "":
		if isTerminal(w) {
			return OutputFormatTable, nil
		}
		return OutputFormatJson, nil
	case OutputFormatTable, OutputFormatJson:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported report format %q, use %v or %v", format, OutputFormatTable, OutputFormatJson)
	}
}

// printRunResult writes r to w. Tasks are listed in the supplied order for table output.
func printRunResult(w io.Writer, r *scheduler.RunResult, order []string, format string) error {
	if format == OutputFormatJson {
		b, err := json.MarshalIndent(r, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(b))
		return err
	}
	fmt.Fprintf(w, "Run %v of %v: %v (%v)\n", r.RunID, r.DagID, r.Status, r.EndTime.Sub(r.StartTime).Round(time.Millisecond))
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TASK\tSTATE\tATTEMPTS\tDURATION\tERROR")
	for _, id := range order {
		t, ok := r.Tasks[id]
		if !ok {
			continue
		}
		d := ""
		if !t.StartTime.IsZero() && !t.EndTime.IsZero() {
			d = t.EndTime.Sub(t.StartTime).Round(time.Millisecond).String()
		}
		fmt.Fprintf(tw, "%v\t%v\t%v\t%v\t%v\n", id, t.State, t.Attempts, d, t.Error)
	}
	return tw.Flush()
}

// NewStorageFactory returns a StorageFactory that creates one S3 client per bucket in region.
// Object keys are prefixed with prefix.
func NewStorageFactory(region string, prefix string) components.StorageFactory {
	mu := sync.Mutex{}
	clients := make(map[string]s3.BasicClient)
	return func(bucket string) (s3.BasicClient, error) {
		if bucket == "" {
			return nil, errors.New("missing bucket name")
		}
		if region == "" {
			return nil, fmt.Errorf("missing region for bucket %q", bucket)
		}
		mu.Lock()
		defer mu.Unlock()
		c, ok := clients[bucket]
		if !ok {
			c = s3.NewBasicClient(bucket, region, prefix)
			clients[bucket] = c
		}
		return c, nil
	}
}
