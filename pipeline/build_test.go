package pipeline_test

import (
	"strings"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/ginkgo/extensions/table"
	. "github.com/onsi/gomega"

	"github.com/relloyd/healthpipe/pipeline"
)

func testConfig(keys ...string) pipeline.Config {
	cfg := pipeline.NewConfig()
	cfg.ProjectID = "my-project"
	cfg.BucketName = "health-bucket"
	cfg.SourceObjectPath = "path_to_global_health_data.csv"
	if len(keys) > 0 {
		cfg.PartitionKeys = keys
	}
	return cfg
}

var _ = Describe("Build", func() {
	Context("with two partition keys", func() {
		var g *pipeline.Graph

		BeforeEach(func() {
			var err error
			g, err = pipeline.Build(testConfig("USA", "India"))
			Expect(err).NotTo(HaveOccurred())
		})

		It("generates the expected task ids", func() {
			var ids []string
			for _, n := range g.Nodes {
				ids = append(ids, n.ID)
			}
			Expect(ids).To(ConsistOf("file_exists", "load_csv_to_bq", "usa_health_data", "usa_view",
				"india_health_data", "india_view", "success_task"))
		})

		It("wires each partition between the load and the marker", func() {
			Expect(g.Upstream("usa_health_data")).To(Equal([]string{"load_csv_to_bq"}))
			Expect(g.Downstream("usa_health_data")).To(Equal([]string{"usa_view"}))
			Expect(g.Downstream("usa_view")).To(Equal([]string{"success_task"}))
			Expect(g.Upstream("success_task")).To(ConsistOf("usa_view", "india_view"))
			Expect(g.Upstream("load_csv_to_bq")).To(Equal([]string{"file_exists"}))
		})

		It("has one source and one sink", func() {
			Expect(g.Sources()).To(Equal([]string{"file_exists"}))
			Expect(g.Sinks()).To(Equal([]string{"success_task"}))
			Expect(g.Validate()).To(Succeed())
		})

		It("keeps partitions independent of each other", func() {
			for _, e := range g.Edges {
				isUsa := strings.HasPrefix(e.Upstream, "usa_") || strings.HasPrefix(e.Downstream, "usa_")
				isIndia := strings.HasPrefix(e.Upstream, "india_") || strings.HasPrefix(e.Downstream, "india_")
				Expect(isUsa && isIndia).To(BeFalse(), "edge %v joins two partitions", e)
			}
		})

		It("makes the marker require every view to succeed", func() {
			n, ok := g.Node("success_task")
			Expect(ok).To(BeTrue())
			Expect(n.Kind).To(Equal(pipeline.KindMarker))
			Expect(n.Param(pipeline.ParamTriggerRule)).To(Equal("all_success"))
			Expect(n.TriggerRule()).To(Equal(pipeline.TriggerAllSuccess))
		})

		It("configures the existence check to poll", func() {
			n, _ := g.Node("file_exists")
			Expect(n.Kind).To(Equal(pipeline.KindExistenceCheck))
			Expect(n.Params).To(HaveKeyWithValue(pipeline.ParamBucket, "health-bucket"))
			Expect(n.Params).To(HaveKeyWithValue(pipeline.ParamObject, "path_to_global_health_data.csv"))
			Expect(n.Params).To(HaveKeyWithValue(pipeline.ParamPollInterval, "30s"))
			Expect(n.Params).To(HaveKeyWithValue(pipeline.ParamTimeout, "5m0s"))
			Expect(n.Params).To(HaveKeyWithValue(pipeline.ParamMode, "poke"))
		})

		It("configures the bulk load to overwrite the staging table", func() {
			n, _ := g.Node("load_csv_to_bq")
			Expect(n.Kind).To(Equal(pipeline.KindBulkLoad))
			Expect(n.Params).To(HaveKeyWithValue(pipeline.ParamDestination, "my-project.staging_dataset.global_data"))
			Expect(n.Params).To(HaveKeyWithValue(pipeline.ParamWriteDisposition, "WRITE_TRUNCATE"))
			Expect(n.Params).To(HaveKeyWithValue(pipeline.ParamSkipLeadingRows, "1"))
			Expect(n.Params).To(HaveKeyWithValue(pipeline.ParamFieldDelimiter, ","))
			Expect(n.Params).To(HaveKeyWithValue(pipeline.ParamAutodetect, "true"))
			Expect(n.Params).To(HaveKeyWithValue(pipeline.ParamAllowJaggedRows, "true"))
			Expect(n.Params).To(HaveKeyWithValue(pipeline.ParamIgnoreUnknownValues, "true"))
		})

		It("renders the partition table query against the staging table", func() {
			n, _ := g.Node("usa_health_data")
			q := n.Param(pipeline.ParamQuery)
			Expect(q).To(HavePrefix("CREATE OR REPLACE TABLE `my-project.transform_dataset.usa_health_data` AS"))
			Expect(q).To(ContainSubstring("FROM `my-project.staging_dataset.global_data`"))
			Expect(q).To(ContainSubstring("WHERE country = 'USA'"))
			Expect(n.Param(pipeline.ParamUseLegacySql)).To(Equal("false"))
		})

		It("renders the partition view query with the renamed columns", func() {
			n, _ := g.Node("usa_view")
			q := n.Param(pipeline.ParamQuery)
			Expect(q).To(HavePrefix("CREATE OR REPLACE VIEW `my-project.reporting_dataset.usa_view` AS"))
			Expect(q).To(ContainSubstring("Year AS year"))
			Expect(q).To(ContainSubstring("`Disease Name` AS disease_name"))
			Expect(q).To(ContainSubstring("`Disease Category` AS disease_category"))
			Expect(q).To(ContainSubstring("`Prevalence Rate` AS prevalence_rate"))
			Expect(q).To(ContainSubstring("`Incidence Rate` AS incidence_rate"))
			Expect(strings.Count(q, " AS ")).To(Equal(len(pipeline.ReportingColumns)))
			Expect(q).To(ContainSubstring("FROM `my-project.transform_dataset.usa_health_data`"))
			Expect(q).To(HaveSuffix("WHERE `Availability of Vaccines Treatment` = FALSE"))
		})

		It("returns copies of node params", func() {
			n, _ := g.Node("usa_view")
			n.Params[pipeline.ParamQuery] = "DROP TABLE x"
			again, _ := g.Node("usa_view")
			Expect(again.Param(pipeline.ParamQuery)).NotTo(Equal("DROP TABLE x"))
		})
	})

	It("creates 2 + 2N + 1 nodes for the default keys", func() {
		cfg := testConfig()
		g, err := pipeline.Build(cfg)
		Expect(err).NotTo(HaveOccurred())
		Expect(g.Nodes).To(HaveLen(2 + 2*len(cfg.PartitionKeys) + 1))
		order, err := g.TopologicalOrder()
		Expect(err).NotTo(HaveOccurred())
		Expect(order[0]).To(Equal("file_exists"))
		Expect(order[len(order)-1]).To(Equal("success_task"))
	})

	It("maps spaces in partition keys to underscores", func() {
		g, err := pipeline.Build(testConfig("United Kingdom"))
		Expect(err).NotTo(HaveOccurred())
		n, ok := g.Node("united_kingdom_view")
		Expect(ok).To(BeTrue())
		Expect(n.Param(pipeline.ParamDestination)).To(Equal("my-project.reporting_dataset.united_kingdom_view"))
	})

	DescribeTable("rejects bad configs with a ConfigError",
		func(mutate func(*pipeline.Config)) {
			cfg := testConfig()
			mutate(&cfg)
			g, err := pipeline.Build(cfg)
			Expect(g).To(BeNil())
			Expect(err).To(HaveOccurred())
			Expect(pipeline.IsConfigError(err)).To(BeTrue())
		},
		Entry("empty partition keys", func(c *pipeline.Config) { c.PartitionKeys = nil }),
		Entry("keys differing only in case", func(c *pipeline.Config) { c.PartitionKeys = []string{"USA", "usa"} }),
		Entry("keys colliding after mapping spaces", func(c *pipeline.Config) { c.PartitionKeys = []string{"New Zealand", "new_zealand"} }),
		Entry("key with a quote", func(c *pipeline.Config) { c.PartitionKeys = []string{"USA' OR 1=1 --"} }),
		Entry("key starting with a digit", func(c *pipeline.Config) { c.PartitionKeys = []string{"1USA"} }),
		Entry("missing project", func(c *pipeline.Config) { c.ProjectID = "" }),
		Entry("missing bucket", func(c *pipeline.Config) { c.BucketName = "" }),
		Entry("bad dataset name", func(c *pipeline.Config) { c.TransformDataset = "transform.dataset" }),
		Entry("negative retries", func(c *pipeline.Config) { c.Retries = -1 }),
		Entry("unknown dialect", func(c *pipeline.Config) { c.SqlDialect = "oracle" }),
	)
})
