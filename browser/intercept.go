package browser

import (
	"context"
	"encoding/base64"
	"strings"
	"sync"

	"github.com/go-rod/rod/lib/proto"
)

// maxCapturedBody caps a single intercepted response body.
const maxCapturedBody = 5 << 20

// CapturedResponse is one JSON response body collected while a page was
// loading.
type CapturedResponse struct {
	URL  string
	Body []byte
}

// ResponseCapture accumulates API responses whose URL matches a
// predicate. It is safe for concurrent use; bodies are fetched
// best-effort in the background as responses finish.
type ResponseCapture struct {
	mu     sync.Mutex
	bodies []CapturedResponse
	seen   map[string]struct{}
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// InterceptResponses registers a CDP response listener on the page.
// Call it before Navigate so no in-flight response is missed. Only
// JSON-typed responses whose URL satisfies match are kept.
func (p *Page) InterceptResponses(match func(url string) bool) *ResponseCapture {
	capCtx, cancel := context.WithCancel(context.Background())
	c := &ResponseCapture{
		seen:   make(map[string]struct{}),
		cancel: cancel,
	}

	listenPage := p.page.Context(capCtx)
	go listenPage.EachEvent(func(e *proto.NetworkResponseReceived) {
		if !isJSONResponse(e.Response.MIMEType) || !match(e.Response.URL) {
			return
		}

		// The body is only available once the response has finished;
		// fetch it off the event loop.
		c.wg.Add(1)
		go func(reqID proto.NetworkRequestID, respURL string) {
			defer c.wg.Done()
			body, err := proto.NetworkGetResponseBody{RequestID: reqID}.Call(listenPage)
			if err != nil || body == nil {
				return
			}
			raw := []byte(body.Body)
			if body.Base64Encoded {
				decoded, decErr := base64.StdEncoding.DecodeString(body.Body)
				if decErr != nil {
					return
				}
				raw = decoded
			}
			if len(raw) == 0 || len(raw) > maxCapturedBody {
				return
			}
			c.add(respURL, raw)
		}(e.RequestID, e.Response.URL)
	})()

	return c
}

// add stores a body, dropping exact URL duplicates (pagination retries
// replay the same endpoint).
func (c *ResponseCapture) add(url string, body []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, dup := c.seen[url]; dup {
		return
	}
	c.seen[url] = struct{}{}
	c.bodies = append(c.bodies, CapturedResponse{URL: url, Body: body})
}

// Stop detaches the listener and waits for in-flight body fetches.
func (c *ResponseCapture) Stop() {
	c.cancel()
	c.wg.Wait()
}

// Bodies returns a snapshot of everything captured so far.
func (c *ResponseCapture) Bodies() []CapturedResponse {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]CapturedResponse, len(c.bodies))
	copy(out, c.bodies)
	return out
}

func isJSONResponse(mimeType string) bool {
	return strings.Contains(strings.ToLower(mimeType), "json")
}
