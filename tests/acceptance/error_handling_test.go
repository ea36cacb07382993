package acceptance_test

import (
	"net/http"
	"os"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/docfill/engine/internal/doctest"
)

var _ = Describe("Error Handling", func() {
	Context("when the upload is not a usable document", func() {
		It("should reject a file that is not a zip archive", func() {
			status, envelope, _, err := testEnv.Client.Extract("fake.docx", []byte("just plain text"))
			Expect(err).NotTo(HaveOccurred())
			Expect(status).To(Equal(400))
			Expect(envelope.Success).To(BeFalse())
		})

		It("should reject a zip without the main document part", func() {
			archive := doctest.BuildArchive(map[string]string{"other.xml": "<a/>"})

			status, _, _, err := testEnv.Client.Extract("hollow.docx", archive)
			Expect(err).NotTo(HaveOccurred())
			Expect(status).To(Equal(400))
		})

		It("should reject an empty upload", func() {
			status, _, _, err := testEnv.Client.Extract("empty.docx", []byte{})
			Expect(err).NotTo(HaveOccurred())
			Expect(status).To(Equal(400))
		})

		It("should reject a file name outside the accepted patterns", func() {
			doc := doctest.BuildDocx([]string{"{{A}}"}, nil)

			status, _, _, err := testEnv.Client.Extract("report.pdf", doc)
			Expect(err).NotTo(HaveOccurred())
			Expect(status).To(Equal(400))
		})

		It("should reject a request without a file part", func() {
			resp, err := testEnv.Client.Upload("/extract", "", nil, map[string]string{"other": "x"})
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(400))
		})
	})

	Context("routing", func() {
		It("should answer 405 for a wrong method on a known path", func() {
			resp, err := testEnv.Client.HTTP.Get(testEnv.Client.BaseURL + "/extract")
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(405))
		})

		It("should answer 404 for an unknown path", func() {
			resp, err := testEnv.Client.HTTP.Get(testEnv.Client.BaseURL + "/unknown")
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(404))
		})

		It("should set a request ID on every response", func() {
			resp, err := testEnv.Client.HTTP.Get(testEnv.Client.BaseURL + "/health")
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.Header.Get("X-Request-ID")).NotTo(BeEmpty())
		})

		It("should echo a sanitized client request ID", func() {
			req, err := http.NewRequest(http.MethodGet, testEnv.Client.BaseURL+"/health", nil)
			Expect(err).NotTo(HaveOccurred())
			req.Header.Set("X-Request-ID", "trace me 42!")

			resp, err := testEnv.Client.HTTP.Do(req)
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()

			got := resp.Header.Get("X-Request-ID")
			Expect(got).To(ContainSubstring("trace-me-42"))
			Expect(got).NotTo(ContainSubstring("!"))
		})
	})

	Context("audit events", func() {
		It("should append an event line for each processed request", func() {
			doc := doctest.BuildDocx([]string{"{{AUDIT_TAG}}"}, nil)

			status, _, _, err := testEnv.Client.Extract("audit.docx", doc)
			Expect(err).NotTo(HaveOccurred())
			Expect(status).To(Equal(200))

			Eventually(func() string {
				data, err := os.ReadFile(testEnv.EventLogPath)
				if err != nil {
					return ""
				}
				return string(data)
			}, 5*time.Second, 200*time.Millisecond).Should(SatisfyAll(
				ContainSubstring(`"extract"`),
				ContainSubstring(`"audit.docx"`),
			))

			data, err := os.ReadFile(testEnv.EventLogPath)
			Expect(err).NotTo(HaveOccurred())
			lines := strings.Split(strings.TrimSpace(string(data)), "\n")
			Expect(lines).NotTo(BeEmpty())
			Expect(lines[len(lines)-1]).To(ContainSubstring(`"success"`))
		})
	})
})

var _ = Describe("Health Endpoint", func() {
	It("should report service identity", func() {
		status, envelope, err := testEnv.Client.Health()
		Expect(err).NotTo(HaveOccurred())
		Expect(status).To(Equal(200))
		Expect(envelope.Success).To(BeTrue())
		Expect(envelope.Message).To(Equal("healthy"))
		Expect(string(envelope.Data)).To(ContainSubstring("docfill-service"))
	})
})
