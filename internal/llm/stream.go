package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"net/http"
	"strings"
)

// maxSSELineSize is the maximum size of a single SSE line. The default
// bufio.Scanner limit of 64 KiB is too small for long completions.
const maxSSELineSize = 1 * 1024 * 1024

// sseScanner reads Server-Sent Events data payloads from a stream body.
// It handles multi-line data fields, skips comments and empty lines, and
// treats the OpenAI [DONE] sentinel as end of stream.
type sseScanner struct {
	scanner *bufio.Scanner
}

func newSSEScanner(r io.Reader) *sseScanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxSSELineSize)
	return &sseScanner{scanner: scanner}
}

// next returns the next SSE data payload. io.EOF signals a normally
// terminated stream (including the [DONE] sentinel).
func (s *sseScanner) next() (string, error) {
	var dataLines []string

	for s.scanner.Scan() {
		line := s.scanner.Text()

		// Blank line terminates an event.
		if line == "" {
			if len(dataLines) > 0 {
				return strings.Join(dataLines, "\n"), nil
			}
			continue
		}

		if strings.HasPrefix(line, ":") {
			continue
		}

		if strings.HasPrefix(line, "data:") {
			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if data == "[DONE]" {
				return "", io.EOF
			}
			dataLines = append(dataLines, data)
			continue
		}

		// Other SSE fields (event:, id:, retry:) are not used by the
		// chat completions stream.
	}

	if err := s.scanner.Err(); err != nil {
		return "", fmt.Errorf("reading stream: %w", err)
	}
	if len(dataLines) > 0 {
		return strings.Join(dataLines, "\n"), nil
	}
	return "", io.EOF
}

type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// GenerateStream produces the answer as a lazy sequence of text fragments.
// The sequence is finite and not restartable: it ends when the backend
// closes its stream, or yields exactly one non-nil error on failure (before
// or mid-stream) and then stops. Fragments with empty content are
// suppressed. Stopping iteration early closes the underlying response body
// and releases the in-flight call.
func (c *Client) GenerateStream(ctx context.Context, req Request) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		apiKey, err := c.resolveKey(req)
		if err != nil {
			yield("", err)
			return
		}

		if err := c.limiter.Wait(ctx); err != nil {
			yield("", fmt.Errorf("rate limiter: %w", err))
			return
		}

		body, err := json.Marshal(c.buildChatRequest(req, true))
		if err != nil {
			yield("", fmt.Errorf("marshaling request: %w", err))
			return
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
		if err != nil {
			yield("", fmt.Errorf("creating request: %w", err))
			return
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("Accept", "text/event-stream")
		httpReq.Header.Set("Authorization", "Bearer "+apiKey)

		resp, err := c.client.Do(httpReq)
		if err != nil {
			yield("", fmt.Errorf("sending stream request: %w", err))
			return
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			yield("", fmt.Errorf("chat completions status %d: %s", resp.StatusCode, errBody))
			return
		}

		scanner := newSSEScanner(resp.Body)
		for {
			if ctx.Err() != nil {
				yield("", ctx.Err())
				return
			}

			payload, err := scanner.next()
			if err == io.EOF {
				return
			}
			if err != nil {
				yield("", err)
				return
			}

			var chunk streamChunk
			if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
				yield("", fmt.Errorf("parsing stream chunk: %w", err))
				return
			}

			for _, choice := range chunk.Choices {
				if choice.Delta.Content == "" {
					continue
				}
				if !yield(choice.Delta.Content, nil) {
					return
				}
			}
		}
	}
}
