package llm_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/loom/pkg/llm"
)

// feedAll pushes the whole input through in the given piece sizes and
// flushes, collecting every chunk.
func feedAll(d *llm.StreamDecoder, input []byte, pieceSize int) []llm.StreamChunk {
	var out []llm.StreamChunk
	for i := 0; i < len(input); i += pieceSize {
		end := i + pieceSize
		if end > len(input) {
			end = len(input)
		}
		out = append(out, d.Feed(input[i:end])...)
	}
	return append(out, d.Flush()...)
}

func contents(chunks []llm.StreamChunk) []string {
	var out []string
	for _, c := range chunks {
		if !c.Done {
			out = append(out, c.Message.Content)
		}
	}
	return out
}

var _ = Describe("StreamDecoder", func() {
	var dec *llm.StreamDecoder

	stream := []byte(`{"message":{"content":"he"},"done":false}` + "\n" +
		`{"message":{"content":"llo"},"done":false}` + "\n" +
		`{"done":true}` + "\n")

	BeforeEach(func() {
		dec = llm.NewStreamDecoder(nil)
	})

	Context("with a well-formed three-frame stream", func() {
		It("yields exactly two content chunks and one terminal chunk", func() {
			chunks := dec.Feed(stream)

			Expect(contents(chunks)).To(Equal([]string{"he", "llo"}))
			Expect(chunks).To(HaveLen(3))
			Expect(chunks[2].Done).To(BeTrue())
		})

		It("marks itself done after the terminal frame", func() {
			dec.Feed(stream)

			Expect(dec.Done()).To(BeTrue())
		})

		It("emits nothing after the terminal frame", func() {
			dec.Feed(stream)
			more := dec.Feed([]byte(`{"message":{"content":"late"},"done":false}` + "\n"))

			Expect(more).To(BeEmpty())
		})
	})

	Context("when the input is split at arbitrary boundaries", func() {
		It("produces the identical chunk sequence for every piece size", func() {
			whole := feedAll(llm.NewStreamDecoder(nil), stream, len(stream))

			for pieceSize := 1; pieceSize <= 16; pieceSize++ {
				pieces := feedAll(llm.NewStreamDecoder(nil), stream, pieceSize)
				Expect(pieces).To(Equal(whole), "piece size %d diverged", pieceSize)
			}
		})

		It("buffers a line split mid-token until the rest arrives", func() {
			first := dec.Feed([]byte(`{"message":{"content":"hel`))
			Expect(first).To(BeEmpty())

			second := dec.Feed([]byte(`lo"},"done":false}` + "\n"))
			Expect(contents(second)).To(Equal([]string{"hello"}))
		})
	})

	Context("with a terminal frame carrying no content", func() {
		It("still ends the stream", func() {
			chunks := dec.Feed([]byte(`{"done":true}` + "\n"))

			Expect(chunks).To(HaveLen(1))
			Expect(chunks[0].Done).To(BeTrue())
			Expect(chunks[0].Message.Content).To(BeEmpty())
			Expect(dec.Done()).To(BeTrue())
		})
	})

	Context("with a malformed line mid-stream", func() {
		It("skips the bad line and keeps decoding", func() {
			chunks := dec.Feed([]byte(`{"message":{"content":"he"},"done":false}` + "\n" +
				`{not valid json` + "\n" +
				`{"message":{"content":"llo"},"done":false}` + "\n" +
				`{"done":true}` + "\n"))

			Expect(contents(chunks)).To(Equal([]string{"he", "llo"}))
			Expect(dec.Done()).To(BeTrue())
		})
	})

	Context("with keep-alive frames", func() {
		It("drops empty lines and empty-content frames", func() {
			chunks := dec.Feed([]byte("\n" +
				`{"message":{"content":""},"done":false}` + "\n" +
				`{"message":{"content":"hi"},"done":false}` + "\n"))

			Expect(contents(chunks)).To(Equal([]string{"hi"}))
		})
	})

	Context("when the body ends without a trailing newline", func() {
		It("decodes the final buffered line on Flush", func() {
			Expect(dec.Feed([]byte(`{"done":true}`))).To(BeEmpty())

			chunks := dec.Flush()
			Expect(chunks).To(HaveLen(1))
			Expect(chunks[0].Done).To(BeTrue())
		})
	})
})
