package cli

import (
	"bufio"
	"context"
	"io"
	"strings"
	"sync"
)

// lineReader is the only reader of the command input. A read abandoned on
// context cancel leaves the line for the next read instead of a stray goroutine
type lineReader struct {
	once sync.Once
	ch   chan lineResult
}

type lineResult struct {
	line string
	err  error
}

// read returns the next line without the line break, r is taken on the first call
func (l *lineReader) read(ctx context.Context, r io.Reader) (string, error) {
	l.once.Do(func() {
		l.ch = make(chan lineResult)
		go l.run(r)
	})
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res, ok := <-l.ch:
		if !ok {
			return "", io.EOF
		}
		return res.line, res.err
	}
}

func (l *lineReader) run(r io.Reader) {
	defer close(l.ch)
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if line != "" {
			l.ch <- lineResult{line: strings.TrimRight(line, "\r\n")}
		}
		if err != nil {
			if err != io.EOF {
				l.ch <- lineResult{err: err}
			}
			return
		}
	}
}

func (a *appState) readLine(ctx context.Context) (string, error) {
	return a.lines.read(ctx, a.in)
}
