package types

import (
	"bytes"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
)

// Response represents the result of fetching a request.
// Body holds UTF-8 text; fetchers decode legacy charsets before building it.
type Response struct {
	// StatusCode is the HTTP status code.
	StatusCode int

	// Headers are the response HTTP headers.
	Headers http.Header

	// Body is the decoded response body.
	Body []byte

	// Request is a reference to the original request.
	Request *Request

	// ContentType is the MIME type of the response.
	ContentType string

	// FinalURL is the URL after any redirects.
	FinalURL string

	// FetchDuration is how long the fetch took.
	FetchDuration time.Duration

	// FetchedAt is when this response was received.
	FetchedAt time.Time

	doc  *goquery.Document
	node *html.Node
}

// NewResponse creates a Response from an http.Response.
func NewResponse(req *Request, httpResp *http.Response, body []byte, duration time.Duration) *Response {
	return &Response{
		StatusCode:    httpResp.StatusCode,
		Headers:       httpResp.Header,
		Body:          body,
		Request:       req,
		ContentType:   httpResp.Header.Get("Content-Type"),
		FinalURL:      httpResp.Request.URL.String(),
		FetchDuration: duration,
		FetchedAt:     time.Now(),
	}
}

// NewBrowserResponse creates a Response from headless browser output.
func NewBrowserResponse(req *Request, statusCode int, body []byte, finalURL string, duration time.Duration) *Response {
	return &Response{
		StatusCode:    statusCode,
		Headers:       make(http.Header),
		Body:          body,
		Request:       req,
		ContentType:   "text/html",
		FinalURL:      finalURL,
		FetchDuration: duration,
		FetchedAt:     time.Now(),
	}
}

// Document returns a parsed goquery document, lazily initializing it.
func (r *Response) Document() (*goquery.Document, error) {
	if r.doc != nil {
		return r.doc, nil
	}
	node, err := r.Node()
	if err != nil {
		return nil, err
	}
	r.doc = goquery.NewDocumentFromNode(node)
	return r.doc, nil
}

// Node returns the parsed HTML tree for XPath queries, lazily initializing it.
// Document and Node share the same tree.
func (r *Response) Node() (*html.Node, error) {
	if r.node != nil {
		return r.node, nil
	}
	node, err := htmlquery.Parse(bytes.NewReader(r.Body))
	if err != nil {
		return nil, err
	}
	r.node = node
	return node, nil
}

// Text returns the body as a string.
func (r *Response) Text() string {
	return string(r.Body)
}

// IsSuccess returns true if the response status is 2xx.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}
