package worldstream

import (
	"context"
	"errors"
	"io"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

const chunkSize = 4 * 1024

// ReadChunks decodes r as UTF-8 and hands every decoded chunk to fn until
// EOF, a read error or ctx cancellation. Invalid byte sequences are replaced
// with U+FFFD and a leading BOM is dropped. EOF is not reported as an error.
//
// A chunk may end in the middle of a multi-byte rune; callers that join
// chunks byte-wise (LineAssembler does) always see complete text.
func ReadChunks(ctx context.Context, r io.Reader, fn func(string)) error {
	dec := transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
	buf := make([]byte, chunkSize)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := dec.Read(buf)
		if n > 0 {
			fn(string(buf[:n]))
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}
