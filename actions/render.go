package actions

import (
	"bytes"
	"fmt"
	"io"
	"path"

	"github.com/pkg/errors"
	"github.com/relloyd/healthpipe/aws/s3"
	"github.com/relloyd/healthpipe/components"
	"github.com/relloyd/healthpipe/helper"
	"github.com/relloyd/healthpipe/pipeline"
	"golang.org/x/net/context"
)

type RenderConfig struct {
	LogLevel         string           `errorTxt:"log level" mandatory:"yes"`
	StackDumpOnPanic bool
	Pipeline         *pipeline.Config `errorTxt:"pipeline settings" mandatory:"yes"`
	Format           string           `errorTxt:"output format" mandatory:"yes"` // yaml|json
	Destination      string           // optional s3://<bucket>/<prefix> to publish the definition to
	Region           string           // bucket region, required with Destination
	Output           io.Writer
	Storage          components.StorageFactory // optional, replaces the default S3 client used with Destination
}

// RenderPipeline builds the task graph and writes its definition to cfg.Output.
// If a Destination is supplied the definition is uploaded there instead, so a scheduler that watches
// the bucket can pick it up.
func RenderPipeline(ctx context.Context, cfg *RenderConfig) error {
	if cfg == nil {
		return errors.New("nil pointer to render config supplied")
	}
	if err := helper.ValidateStructIsPopulated(cfg); err != nil {
		return err
	}
	log := newLogger(cfg.LogLevel, false, cfg.StackDumpOnPanic)
	useYaml, err := definitionFormat(cfg.Format)
	if err != nil {
		return err
	}
	g, err := pipeline.Build(*cfg.Pipeline)
	if err != nil {
		return err
	}
	d := pipeline.NewDefinition(*cfg.Pipeline, g)
	buf := &bytes.Buffer{}
	if err = d.Write(buf, useYaml); err != nil {
		return err
	}
	out := writerOrStdout(cfg.Output)
	if cfg.Destination == "" {
		_, err = out.Write(buf.Bytes())
		return err
	}
	// Publish to S3.
	bucket, err := s3.ParseDSN(cfg.Destination, cfg.Region)
	if err != nil {
		return err
	}
	storage := cfg.Storage
	if storage == nil {
		storage = NewStorageFactory(bucket.Region, "")
	}
	client, err := storage(bucket.Name)
	if err != nil {
		return err
	}
	ext := OutputFormatJson
	if useYaml {
		ext = OutputFormatYaml
	}
	key := path.Join(bucket.Prefix, fmt.Sprintf("%v.%v", d.DagID, ext))
	log.Debug("uploading pipeline definition to bucket ", bucket.Name, " key ", key)
	if err = client.Put(ctx, key, buf.Bytes()); err != nil {
		return errors.Wrapf(err, "unable to publish pipeline definition to %v", cfg.Destination)
	}
	log.Info("published pipeline definition with ", len(d.Tasks), " tasks")
	_, err = fmt.Fprintf(out, "Pipeline definition written to s3://%v/%v\n", bucket.Name, key)
	return err
}
