package vm

import (
	"bufio"
	"context"
	"io"
)

// EOF is pushed by ',' when the input is exhausted. It is never masked.
const EOF int32 = -1

// OutputFunc receives every character emitted by '.'. Errors are dropped.
type OutputFunc func(ch byte) error

// InputFunc supplies the next byte for ','. It may block; returning io.EOF
// signals end of input.
type InputFunc func(ctx context.Context) (int, error)

func discardOutput(byte) error { return nil }

func noInput(context.Context) (int, error) { return 0, io.EOF }

func WriterOutput(w io.Writer) OutputFunc {
	return func(ch byte) error {
		_, err := w.Write([]byte{ch})
		return err
	}
}

func ReaderInput(r io.Reader) InputFunc {
	br, ok := r.(io.ByteReader)
	if !ok {
		br = bufio.NewReader(r)
	}
	return func(context.Context) (int, error) {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		return int(b), nil
	}
}

// ChanInput waits for a single producer. A closed channel is end of input;
// a done context abandons the wait.
func ChanInput(ch <-chan byte) InputFunc {
	return func(ctx context.Context) (int, error) {
		select {
		case b, ok := <-ch:
			if !ok {
				return 0, io.EOF
			}
			return int(b), nil
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
}
