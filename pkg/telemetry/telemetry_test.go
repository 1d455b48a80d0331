package telemetry_test

import (
	"bytes"
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/papercomputeco/answerdesk/pkg/logger"
	"github.com/papercomputeco/answerdesk/pkg/telemetry"
)

var _ = Describe("Setup", func() {
	AfterEach(func() {
		otel.SetTracerProvider(noop.NewTracerProvider())
	})

	It("is a no-op when disabled", func() {
		shutdown, err := telemetry.Setup(telemetry.Config{}, logger.Nop())
		Expect(err).NotTo(HaveOccurred())
		Expect(shutdown(context.Background())).To(Succeed())
	})

	It("exports spans to the writer on shutdown", func() {
		var buf bytes.Buffer
		shutdown, err := telemetry.Setup(telemetry.Config{Enabled: true, Writer: &buf}, logger.Nop())
		Expect(err).NotTo(HaveOccurred())

		_, span := otel.Tracer("test").Start(context.Background(), "pipeline.process")
		span.End()

		Expect(shutdown(context.Background())).To(Succeed())
		Expect(buf.String()).To(ContainSubstring(`"Name":"pipeline.process"`))
		Expect(buf.String()).To(ContainSubstring("answerdesk"))
	})
})
