package httpserver

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"net"
	"net/http" // for http.StatusText only, the reason phrase table is not worth retyping
	"strconv"
	"strings"
)

// region Request

// Request is a parsed HTTP request head.
// The zero value is NOT valid, call NewRequest() to get a valid request.
//
// The body is NOT read during parsing: it stays in the bufio.Reader the
// request was parsed from, and the handler that needs it (file upload)
// does a length-delimited read.
type Request struct {
	Method  string
	Path    string
	Version string

	Headers map[string]string
}

func NewRequest() *Request {
	return &Request{
		Headers: make(map[string]string),
	}
}

// Parse reads the request line and the header block from br,
// up to and including the blank line that ends the headers.
func (r *Request) Parse(br *bufio.Reader) *HttpError {
	// parse the request line
	line, err := readLine(br)
	if err != nil {
		return Internal(fmt.Errorf("reading request line: %w", err))
	}
	parts := strings.SplitN(line, " ", 3)
	if len(parts) < 3 {
		return BadRequest("no method/path/standard found")
	}
	r.Method, r.Path, r.Version = parts[0], parts[1], parts[2]

	// parse the headers
	for {
		line, err := readLine(br)
		if err != nil {
			return Internal(fmt.Errorf("reading header line: %w", err))
		}

		if line == "" { // empty line, end of headers
			break
		}

		key, value, ok := lineToKV(line)
		if !ok {
			return BadRequest("invalid header format")
		}
		r.Headers[key] = value
	}

	return nil
}

// ContentLength returns the parsed Content-Length header.
// A missing or non-numeric header is a bad request, not zero.
func (r *Request) ContentLength() (int, *HttpError) {
	l, ok := r.Headers["Content-Length"]
	if !ok {
		return 0, BadRequest("no content length in request")
	}
	length, err := strconv.Atoi(l)
	if err != nil || length < 0 {
		return 0, BadRequest("invalid content length")
	}
	return length, nil
}

// readLine reads one CRLF- (or LF-) terminated line, reassembling
// lines longer than the reader's buffer.
// similar to readLineSlice() in net/textproto/reader.go
func readLine(br *bufio.Reader) (string, error) {
	var line []byte
	for {
		l, more, err := br.ReadLine()
		if err != nil {
			return "", err
		}
		if line == nil && !more {
			return string(l), nil
		}
		line = append(line, l...)
		if !more {
			break
		}
	}
	return string(line), nil
}

// lineToKV parse a header line to a key-value pair.
// For Request.Parse use only.
func lineToKV(line string) (string, string, bool) {
	parts := strings.SplitN(line, ":", 2)
	if len(parts) != 2 {
		return "", "", false
	}
	key := strings.TrimSpace(parts[0])
	value := strings.TrimSpace(parts[1])
	return key, value, true
}

// endregion Request

// region Response

// Header is one response header. Headers are kept as an ordered slice,
// not a map: they go out on the wire in the order the handler set them.
type Header struct {
	Key   string
	Value string
}

// Response is the response plan a handler produces: status, ordered
// headers, and a body that is either inline bytes, absent, or a
// streaming source (an open file).
// The zero value is NOT valid, call NewResponse() to get a valid response.
type Response struct {
	Status  int
	Headers []Header

	Body       []byte
	BodyStream io.ReadCloser
}

func NewResponse(status int) *Response {
	return &Response{Status: status}
}

// AddHeader appends a header, preserving insertion order.
func (r *Response) AddHeader(key, value string) *Response {
	r.Headers = append(r.Headers, Header{key, value})
	return r
}

// Write serializes the response onto bw and flushes it, so the bytes
// reach the peer before the connection is closed.
//
// If a Content-Length header was set, the body written here is exactly
// that many bytes: inline bodies are written in full, streamed bodies
// are copied until the source is exhausted.
func (r *Response) Write(bw *bufio.Writer) error {
	// status line
	if _, err := fmt.Fprintf(bw, "HTTP/1.1 %d %s\r\n", r.Status, http.StatusText(r.Status)); err != nil {
		return fmt.Errorf("writing status line: %w", err)
	}

	// headers, in the order the handler set them
	for _, h := range r.Headers {
		if _, err := fmt.Fprintf(bw, "%s: %s\r\n", h.Key, h.Value); err != nil {
			return fmt.Errorf("writing header line: %w", err)
		}
	}
	if _, err := fmt.Fprintf(bw, "\r\n"); err != nil {
		return fmt.Errorf("writing header terminator: %w", err)
	}

	// body
	if r.BodyStream != nil {
		defer r.BodyStream.Close()
		if _, err := io.Copy(bw, r.BodyStream); err != nil {
			return fmt.Errorf("streaming body: %w", err)
		}
	} else if len(r.Body) > 0 {
		if _, err := bw.Write(r.Body); err != nil {
			return fmt.Errorf("writing body: %w", err)
		}
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flushing stream: %w", err)
	}
	return nil
}

// endregion Response

// region HttpError

// HttpError is a failure that terminates its connection: a status code
// plus a human-readable message, written out as a minimal complete
// response. It is never retried.
type HttpError struct {
	Status  int
	Message string
}

func (e *HttpError) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

func BadRequest(msg string) *HttpError {
	return &HttpError{Status: 400, Message: "Bad request: " + msg}
}

func NotFound() *HttpError {
	return &HttpError{Status: 404, Message: "Not found"}
}

func MethodNotAllowed(method string) *HttpError {
	return &HttpError{Status: 405, Message: "Method " + method + " not allowed"}
}

func Internal(err error) *HttpError {
	return &HttpError{Status: 500, Message: err.Error()}
}

// Response converts the error into its wire form: status line plus the
// message as body, no extra headers.
func (e *HttpError) Response() *Response {
	r := NewResponse(e.Status)
	r.Body = []byte(e.Message)
	return r
}

// endregion HttpError

// region Context

// Context of one http transaction (request -> handle -> response).
//
// Body is the connection's buffered reader, positioned right after the
// header block; a handler that needs the request body reads it from
// here.
type Context struct {
	Request  *Request
	Response *Response

	// Rest is the path remainder after the matched route prefix,
	// e.g. "abc" for route "/echo/" and path "/echo/abc".
	Rest string

	Body *bufio.Reader
}

func NewContext(request *Request, body *bufio.Reader) *Context {
	return &Context{
		Request:  request,
		Response: NewResponse(200),
		Body:     body,
	}
}

// Text makes a plain text response with an exact Content-Length.
func (c *Context) Text(status int, text string) {
	c.Response.Status = status
	c.Response.AddHeader("Content-Type", "text/plain")
	c.Response.AddHeader("Content-Length", strconv.Itoa(len(text)))
	c.Response.Body = []byte(text)
}

// NoContent makes a bodyless response with the given status.
func (c *Context) NoContent(status int) {
	c.Response.Status = status
}

// endregion Context

// region Handler

type Handler interface {
	// Serve fills in c.Response, or returns an HttpError which the
	// connection supervisor turns into the error response.
	Serve(c *Context) *HttpError
}

// The HandlerFunc type is an adapter to allow the use of
// ordinary functions as HTTP handlers. If f is a function
// with the appropriate signature, HandlerFunc(f) is a
// Handler that calls f.
type HandlerFunc func(c *Context) *HttpError

func (f HandlerFunc) Serve(c *Context) *HttpError {
	return f(c)
}

// endregion Handler

// region Server

// Server accepts connections and serves exactly one request per
// connection: there is no keep-alive loop, the connection closes after
// the response is flushed.
type Server struct {
	Handler Handler

	// MaxConns caps the number of in-flight connections.
	// 0 means unbounded spawn-on-accept.
	MaxConns int
}

// ListenAndServe listens on addr and serves connections until the
// listener fails. A bind failure is returned to the caller.
func (s *Server) ListenAndServe(addr string) error {
	listen, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("opening socket: %w", err)
	}
	defer listen.Close()

	var sem chan struct{}
	if s.MaxConns > 0 {
		sem = make(chan struct{}, s.MaxConns)
	}

	for {
		conn, err := listen.Accept()
		if err != nil {
			log.Printf("error occurred during setting up the connection: %v", err)
			continue
		}
		if sem != nil {
			sem <- struct{}{}
		}
		go func() {
			defer func() {
				if sem != nil {
					<-sem
				}
			}()
			s.handleConn(conn)
		}()
	}
}

// handleConn owns one accepted connection: parse the request, route it,
// write the response, close. Any HttpError along the way becomes a
// best-effort error response; if even that write fails it is logged and
// the connection is simply dropped.
func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()

	log.Printf("accepted new connection from %v", conn.RemoteAddr())

	br := bufio.NewReader(conn)
	bw := bufio.NewWriter(conn)

	request := NewRequest()
	if herr := request.Parse(br); herr != nil {
		writeError(bw, herr)
		return
	}

	log.Printf("incoming request: %s %s [%s]", request.Method, request.Path, request.Version)

	ctx := NewContext(request, br)
	if herr := s.Handler.Serve(ctx); herr != nil {
		writeError(bw, herr)
		return
	}

	if err := ctx.Response.Write(bw); err != nil {
		log.Printf("error occurred while writing response: %v", err)
	}
}

func writeError(bw *bufio.Writer, herr *HttpError) {
	if err := herr.Response().Write(bw); err != nil {
		log.Printf("error occurred while replying with error response: %v", err)
	}
}

// endregion Server
