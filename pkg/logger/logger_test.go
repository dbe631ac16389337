package logger_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/defiguard/flowbreaker/pkg/logger"
)

var _ = Describe("Logger", func() {
	Describe("New", func() {
		DescribeTable("creates a logger for every level",
			func(level string) {
				log := logger.New(level, false, "dev", "")
				Expect(log).NotTo(BeNil())
			},
			Entry("debug", "debug"),
			Entry("info", "info"),
			Entry("warn", "warn"),
			Entry("error", "error"),
			Entry("unknown defaults to info", "bogus"),
		)

		It("creates a logger for the prod environment", func() {
			log := logger.New("info", true, "prod", "")
			Expect(log).NotTo(BeNil())
		})

		It("writes to a rotating file when a path is given", func() {
			dir, err := os.MkdirTemp("", "logger-test-*")
			Expect(err).NotTo(HaveOccurred())
			defer os.RemoveAll(dir)

			file := filepath.Join(dir, "engine.log")
			log := logger.New("info", false, "prod", file)
			log.Info("hello")

			contents, err := os.ReadFile(file)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(contents)).To(ContainSubstring(`"msg":"hello"`))
		})
	})
})
