package logger_test

import (
	"bytes"
	"encoding/json"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"github.com/relloyd/healthpipe/logger"
)

var _ = Describe("Logger", func() {
	var (
		log       *logger.LoggerImpl
		logOutput *bytes.Buffer
	)

	decode := func() map[string]interface{} {
		var actual map[string]interface{}
		Expect(json.Unmarshal(logOutput.Bytes(), &actual)).To(Succeed())
		return actual
	}

	BeforeEach(func() {
		log = logger.NewJsonLogger("test-service", "debug", true)
		logOutput = bytes.NewBufferString("")
		log.SetOutput(logOutput)
	})

	It("Should have `test-service` as service name", func() {
		log.Info("Testing")
		Expect(decode()["service"]).To(Equal("test-service"))
	})

	It("Should have info as log level", func() {
		log.Info("Testing")
		Expect(decode()["level"]).To(Equal("info"))
	})

	It("Should have warning as log level", func() {
		log.Warn("Testing")
		Expect(decode()["level"]).To(Equal("warning"))
	})

	It("Should have error as log level with a stack trace", func() {
		log.Error("Testing")
		actual := decode()
		Expect(actual["level"]).To(Equal("error"))
		Expect(actual["stackTrace"]).ToNot(BeNil())
	})

	It("Should have `Testing` as msg", func() {
		log.Info("Testing")
		Expect(decode()["msg"]).To(Equal("Testing"))
	})

	It("Should add fields to child loggers only", func() {
		child := log.WithField("task", "file_exists")
		child.Info("Testing")
		Expect(decode()["task"]).To(Equal("file_exists"))
		logOutput.Reset()
		log.Info("Testing")
		Expect(decode()).ToNot(HaveKey("task"))
	})

	It("Should skip messages below the configured level", func() {
		quiet := logger.NewJsonLogger("test-service", "warn", false)
		quiet.SetOutput(logOutput)
		quiet.Info("Testing")
		Expect(logOutput.Len()).To(Equal(0))
	})
})
