package mcpserver

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// ServeStdio runs the line-delimited JSON-RPC loop: one request per line in,
// one response per line out. Returns when the reader is exhausted or ctx is
// cancelled.
func (s *Server) ServeStdio(ctx context.Context, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		resp := s.Handle(ctx, []byte(line))
		if resp == nil {
			continue
		}
		if _, err := fmt.Fprintf(w, "%s\n", resp); err != nil {
			return fmt.Errorf("write response: %w", err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read request: %w", err)
	}
	slog.Info("mcpserver: stdio stream closed")
	return nil
}
