package acceptance_test

import (
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/docfill/engine/internal/doctest"
	"github.com/docfill/engine/internal/docx"
)

// documentText opens generated bytes and returns the main body XML.
func documentText(data []byte) string {
	archive, err := docx.Open(data)
	Expect(err).NotTo(HaveOccurred())
	content, ok, err := archive.Part(docx.DocumentPart)
	Expect(err).NotTo(HaveOccurred())
	Expect(ok).To(BeTrue())
	return string(content)
}

var _ = Describe("Document Generation", func() {
	Context("when filling a template with values", func() {
		It("should substitute every tag occurrence and keep the result openable", func() {
			doc := doctest.BuildDocx([]string{
				"Contract date: {{DATE}}",
				"Between {{COMPANY}} and {{CLIENT_NAME}}",
				"Signed: {{CLIENT_NAME}}",
			}, nil)

			resp, body, err := testEnv.Client.Generate("contract.docx", doc, map[string]string{
				"DATE":        "2025-06-01",
				"COMPANY":     "Initech Oy",
				"CLIENT_NAME": "Jane Smith",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(200))

			By("Verifying download headers")
			Expect(resp.Header.Get("Content-Type")).To(Equal(
				"application/vnd.openxmlformats-officedocument.wordprocessingml.document"))
			Expect(resp.Header.Get("Content-Disposition")).To(Equal(
				`attachment; filename="contract_filled.docx"`))
			Expect(resp.Header.Get("X-Request-ID")).NotTo(BeEmpty())

			By("Verifying substitution in the output document")
			text := documentText(body)
			Expect(text).To(ContainSubstring("2025-06-01"))
			Expect(text).To(ContainSubstring("Initech Oy"))
			Expect(strings.Count(text, "Jane Smith")).To(Equal(2))
			Expect(text).NotTo(ContainSubstring("{{"))
		})

		It("should substitute an empty string for omitted keys", func() {
			doc := doctest.BuildDocx([]string{"Name: {{CLIENT_NAME}}."}, nil)

			resp, body, err := testEnv.Client.Generate("doc.docx", doc, map[string]string{})
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(200))

			text := documentText(body)
			Expect(text).To(ContainSubstring("Name: ."))
			Expect(text).NotTo(ContainSubstring("{{CLIENT_NAME}}"))
		})

		It("should escape XML special characters in values", func() {
			doc := doctest.BuildDocx([]string{"Company: {{COMPANY}}"}, nil)

			resp, body, err := testEnv.Client.Generate("doc.docx", doc, map[string]string{
				"COMPANY": `Smith & Sons <Ltd> "quoted"`,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(200))

			text := documentText(body)
			Expect(text).To(ContainSubstring("Smith &amp; Sons &lt;Ltd&gt; &quot;quoted&quot;"))
		})

		It("should render multiline values as line breaks", func() {
			doc := doctest.BuildDocx([]string{"Address: {{ADDRESS}}"}, nil)

			resp, body, err := testEnv.Client.Generate("doc.docx", doc, map[string]string{
				"ADDRESS": "Main St 1\n00100 Helsinki",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(200))

			text := documentText(body)
			Expect(text).To(ContainSubstring("<w:br/>"))
			Expect(text).To(ContainSubstring("Main St 1"))
			Expect(text).To(ContainSubstring("00100 Helsinki"))
		})

		It("should fill a tag split across formatting runs", func() {
			document := doctest.DocumentWithParagraphs(
				doctest.Paragraph(
					doctest.Run("Client: {{CLI"),
					doctest.StyledRun("<w:b/>", "ENT_NA"),
					doctest.Run("ME}}"),
				),
			)
			doc := doctest.BuildArchive(map[string]string{
				"word/document.xml": document,
			})

			resp, body, err := testEnv.Client.Generate("split.docx", doc, map[string]string{
				"CLIENT_NAME": "Acme Oy",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(200))

			text := documentText(body)
			Expect(text).To(ContainSubstring("Client: Acme Oy"))
			Expect(text).NotTo(ContainSubstring("{{"))
		})

		It("should carry non-text archive parts through unchanged", func() {
			image := strings.Repeat("\x89PNG-bytes", 64)
			doc := doctest.BuildDocx([]string{"{{TAG}}"}, map[string]string{
				"word/media/image1.png": image,
				"word/styles.xml":       `<w:styles><w:style w:styleId="Normal"/></w:styles>`,
			})

			resp, body, err := testEnv.Client.Generate("doc.docx", doc, map[string]string{"TAG": "x"})
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(200))

			archive, err := docx.Open(body)
			Expect(err).NotTo(HaveOccurred())

			media, ok, err := archive.Part("word/media/image1.png")
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())
			Expect(string(media)).To(Equal(image))

			styles, ok, err := archive.Part("word/styles.xml")
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())
			Expect(string(styles)).To(ContainSubstring(`w:styleId="Normal"`))
		})

		It("should derive the download name from the uploaded name", func() {
			doc := doctest.BuildDocx([]string{"{{A}}"}, nil)

			resp, _, err := testEnv.Client.Generate("Quarterly Report.docx", doc, map[string]string{"A": "x"})
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.Header.Get("Content-Disposition")).To(Equal(
				`attachment; filename="Quarterly Report_filled.docx"`))
		})
	})

	Context("when the mapping is missing or malformed", func() {
		It("should reject a request without the mapping field", func() {
			doc := doctest.BuildDocx([]string{"{{A}}"}, nil)

			resp, err := testEnv.Client.Upload("/generate", "doc.docx", doc, nil)
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(400))
		})

		It("should reject invalid mapping JSON", func() {
			doc := doctest.BuildDocx([]string{"{{A}}"}, nil)

			resp, err := testEnv.Client.Upload("/generate", "doc.docx", doc,
				map[string]string{"mapping": "{broken"})
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(400))
		})
	})
})
