package interp

import (
	"bufio"
	"context"
	"errors"
	"io"

	"github.com/anvilsh/anvil/core/object"
)

// encodeValues serializes a value channel onto a byte writer, one line
// per value. A closed downstream pipe is a graceful stop: the writer
// keeps draining the channel so the upstream sender never blocks.
func encodeValues(ctx context.Context, in <-chan object.Value, w io.WriteCloser) error {
	defer w.Close()
	var werr error
	for {
		select {
		case <-ctx.Done():
			for range in {
			}
			return ctx.Err()
		case v, ok := <-in:
			if !ok {
				if errors.Is(werr, io.ErrClosedPipe) {
					return nil
				}
				return werr
			}
			if werr != nil {
				continue
			}
			_, werr = w.Write(append(object.EncodeLine(v), '\n'))
		}
	}
}

// decodeValues parses a byte reader into values, one per line, sending
// them downstream. EOF and a closed pipe both end the stream cleanly.
func decodeValues(ctx context.Context, r io.Reader, out chan<- object.Value) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case out <- object.DecodeLine(sc.Bytes()):
		}
	}
	err := sc.Err()
	if errors.Is(err, io.ErrClosedPipe) {
		return nil
	}
	return err
}
