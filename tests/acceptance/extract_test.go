package acceptance_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/docfill/engine/internal/doctest"
)

var _ = Describe("Tag Extraction", func() {
	Context("when uploading a document with placeholder tags", func() {
		It("should return the sorted unique tag list", func() {
			By("Building a document with duplicated and unordered tags")
			doc := doctest.BuildDocx([]string{
				"Agreement between {{COMPANY}} and {{CLIENT_NAME}}",
				"Signed on {{DATE}} by {{CLIENT_NAME}}",
			}, nil)

			By("Calling the extract endpoint")
			status, envelope, data, err := testEnv.Client.Extract("agreement.docx", doc)
			Expect(err).NotTo(HaveOccurred())
			Expect(status).To(Equal(200))
			Expect(envelope.Success).To(BeTrue())

			By("Verifying deduplication and ordering")
			Expect(data.Tags).To(Equal([]string{"CLIENT_NAME", "COMPANY", "DATE"}))
			Expect(data.Count).To(Equal(3))
			Expect(data.TemplateHash).To(HaveLen(16))
		})

		It("should find tags in headers and footers", func() {
			doc := doctest.BuildDocx([]string{"Body {{BODY_TAG}}"}, map[string]string{
				"word/header1.xml": doctest.HeaderXML("Header {{HEADER_TAG}}"),
				"word/footer1.xml": doctest.FooterXML("Footer {{FOOTER_TAG}}"),
			})

			status, _, data, err := testEnv.Client.Extract("doc.docx", doc)
			Expect(err).NotTo(HaveOccurred())
			Expect(status).To(Equal(200))
			Expect(data.Tags).To(Equal([]string{"BODY_TAG", "FOOTER_TAG", "HEADER_TAG"}))
		})

		It("should detect a tag split across formatting runs", func() {
			By("Splitting {{CLIENT_NAME}} over three runs in one paragraph")
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

			status, _, data, err := testEnv.Client.Extract("split.docx", doc)
			Expect(err).NotTo(HaveOccurred())
			Expect(status).To(Equal(200))
			Expect(data.Tags).To(Equal([]string{"CLIENT_NAME"}))
		})

		It("should treat tag names case-sensitively", func() {
			doc := doctest.BuildDocx([]string{"{{Name}} vs {{NAME}}"}, nil)

			status, _, data, err := testEnv.Client.Extract("case.docx", doc)
			Expect(err).NotTo(HaveOccurred())
			Expect(status).To(Equal(200))
			Expect(data.Tags).To(Equal([]string{"NAME", "Name"}))
		})

		It("should return the same hash for identical uploads", func() {
			doc := doctest.BuildDocx([]string{"{{A}}"}, nil)

			_, _, first, err := testEnv.Client.Extract("a.docx", doc)
			Expect(err).NotTo(HaveOccurred())
			_, _, second, err := testEnv.Client.Extract("a.docx", doc)
			Expect(err).NotTo(HaveOccurred())

			Expect(first.TemplateHash).To(Equal(second.TemplateHash))
		})
	})

	Context("when the document contains no tags", func() {
		It("should return 422 with a clear message", func() {
			doc := doctest.BuildDocx([]string{"Plain prose without placeholders"}, nil)

			status, envelope, _, err := testEnv.Client.Extract("plain.docx", doc)
			Expect(err).NotTo(HaveOccurred())
			Expect(status).To(Equal(422))
			Expect(envelope.Success).To(BeFalse())
			Expect(envelope.Message).To(ContainSubstring("no placeholder tags"))
		})

		It("should ignore malformed tag syntax", func() {
			doc := doctest.BuildDocx([]string{"{{bad name}} {single}} {{UNCLOSED"}, nil)

			status, _, _, err := testEnv.Client.Extract("malformed.docx", doc)
			Expect(err).NotTo(HaveOccurred())
			Expect(status).To(Equal(422))
		})
	})
})
