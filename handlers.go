package httpserver

import (
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// region Handler: root

// RootHandler answers the root ping: 200, no body.
var RootHandler HandlerFunc = rootHandler

func rootHandler(c *Context) *HttpError {
	c.NoContent(200)
	return nil
}

// endregion Handler: root

// region Handler: echo

// EchoHandler echoes the path remainder after /echo/ back verbatim.
var EchoHandler HandlerFunc = echoHandler

func echoHandler(c *Context) *HttpError {
	c.Text(200, c.Rest)
	return nil
}

// endregion Handler: echo

// region Handler: user-agent

// UserAgentHandler reflects the request's User-Agent header.
// Header keys are matched case-sensitively, as received.
var UserAgentHandler HandlerFunc = userAgentHandler

func userAgentHandler(c *Context) *HttpError {
	userAgent, ok := c.Request.Headers["User-Agent"]
	if !ok {
		return BadRequest("no user agent header in request")
	}
	c.Text(200, userAgent)
	return nil
}

// endregion Handler: user-agent

// region Handler: FileServer

// FileServer serves GET and POST under /files/ against a base
// directory fixed at startup and shared read-only across connections.
type FileServer struct {
	Dir string
}

// resolve joins name onto the base directory and confines the result
// to it: a name that escapes the base directory (e.g. "../etc/passwd")
// is answered like a missing file.
func (fs *FileServer) resolve(name string) (string, *HttpError) {
	base, err := filepath.Abs(fs.Dir)
	if err != nil {
		return "", Internal(err)
	}
	path, err := filepath.Abs(filepath.Join(fs.Dir, name))
	if err != nil {
		return "", Internal(err)
	}
	if path == base || !strings.HasPrefix(path, base+string(filepath.Separator)) {
		return "", NotFound()
	}
	return path, nil
}

// Get streams the named file: 200 with its exact size, or 404 if it
// cannot be opened (masking the underlying I/O error).
func (fs *FileServer) Get(c *Context) *HttpError {
	path, herr := fs.resolve(c.Rest)
	if herr != nil {
		return herr
	}

	file, err := os.Open(path)
	if err != nil {
		return NotFound()
	}

	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return Internal(err)
	}
	if stat.IsDir() {
		file.Close()
		return NotFound()
	}

	c.Response.Status = 200
	c.Response.AddHeader("Content-Type", "application/octet-stream")
	c.Response.AddHeader("Content-Length", strconv.FormatInt(stat.Size(), 10))
	c.Response.BodyStream = file
	return nil
}

// Post reads exactly Content-Length body bytes from the connection and
// writes them to a newly created (or truncated) file: 201, no body.
func (fs *FileServer) Post(c *Context) *HttpError {
	path, herr := fs.resolve(c.Rest)
	if herr != nil {
		return herr
	}

	length, herr := c.Request.ContentLength()
	if herr != nil {
		return herr
	}

	file, err := os.Create(path)
	if err != nil {
		return Internal(err)
	}

	if _, err := io.CopyN(file, c.Body, int64(length)); err != nil {
		file.Close()
		return Internal(err)
	}
	if err := file.Close(); err != nil {
		return Internal(err)
	}

	c.NoContent(201)
	return nil
}

// endregion Handler: FileServer

// region Routes

// Routes builds the fixed route table served by this server, with
// /files/ resolved under dir.
func Routes(dir string) Router {
	r := NewPrefixRouter()

	r.HandleFunc(MethodAny, "/", RootHandler)
	r.HandleFunc(MethodAny, "/echo/", EchoHandler)
	r.HandleFunc(MethodAny, "/user-agent", UserAgentHandler)

	files := &FileServer{Dir: dir}
	r.GET("/files/", files.Get)
	r.POST("/files/", files.Post)

	return r
}

// endregion Routes
