package tests

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"

	"github.com/go-chi/chi/v5"
)

type httpTestRequest struct {
	api http.Handler

	method   string
	endpoint string
	headers  map[string]string
	json     interface{}
	body     io.Reader
}

func newHttpTestRequest(api http.Handler, method, endpoint string) *httpTestRequest {
	return &httpTestRequest{
		api:      api,
		method:   method,
		endpoint: endpoint,
	}
}

func (r *httpTestRequest) Header(key, value string) *httpTestRequest {
	if r.headers == nil {
		r.headers = make(map[string]string)
	}
	r.headers[key] = value
	return r
}

func (r *httpTestRequest) Json(data interface{}) *httpTestRequest {
	r.json = data
	return r
}

func (r *httpTestRequest) Body(body io.Reader) *httpTestRequest {
	r.body = body
	return r
}

type multipartFile struct {
	Field       string
	FileName    string
	ContentType string
	Data        []byte
}

// Multipart builds a multipart form body from plain fields and files.
func (r *httpTestRequest) Multipart(fields map[string]string, files ...multipartFile) *httpTestRequest {
	body := new(bytes.Buffer)
	writer := multipart.NewWriter(body)

	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			panic(fmt.Sprintf("error writing multipart field %v: %v", key, err))
		}
	}

	for _, file := range files {
		header := make(map[string][]string)
		header["Content-Disposition"] = []string{fmt.Sprintf(`form-data; name=%q; filename=%q`, file.Field, file.FileName)}
		if file.ContentType != "" {
			header["Content-Type"] = []string{file.ContentType}
		}
		part, err := writer.CreatePart(header)
		if err != nil {
			panic(fmt.Sprintf("error creating multipart file part: %v", err))
		}
		if _, err := part.Write(file.Data); err != nil {
			panic(fmt.Sprintf("error writing multipart file: %v", err))
		}
	}

	if err := writer.Close(); err != nil {
		panic(fmt.Sprintf("error closing multipart writer: %v", err))
	}

	r.body = body
	return r.Header("Content-Type", writer.FormDataContentType())
}

// DoRaw runs the request and returns the raw recorder so callers can assert
// on status codes and non-json bodies.
func (r *httpTestRequest) DoRaw() *httptest.ResponseRecorder {
	if r.json != nil {
		body := new(bytes.Buffer)
		err := json.NewEncoder(body).Encode(r.json)
		if err != nil {
			panic(fmt.Sprintf("error encoding json body for endpoint %v: %v", r.endpoint, err))
		}
		r.body = body
	}

	req := httptest.NewRequest(r.method, r.endpoint, r.body)
	for k, v := range r.headers {
		req.Header.Add(k, v)
	}

	w := httptest.NewRecorder()
	r.api.ServeHTTP(w, req)
	return w
}

// response body will be parsed into result, passing nil indicates that no result is expected.
func (r *httpTestRequest) Do(result interface{}) error {
	w := r.DoRaw()

	res := w.Result()
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("%v request to endpoint %v returned status %d, content '%v'", r.method, r.endpoint, res.StatusCode, w.Body.String())
	}

	if result != nil {
		err := json.NewDecoder(res.Body).Decode(result)
		if err != nil {
			return fmt.Errorf("error parsing %v response from endpoint %v: %w", r.method, r.endpoint, err)
		}
	}

	return nil
}

type client struct {
	api chi.Router
}

func (c *client) Get(endpoint string) *httpTestRequest {
	return newHttpTestRequest(c.api, "GET", endpoint)
}

func (c *client) Post(endpoint string) *httpTestRequest {
	return newHttpTestRequest(c.api, "POST", endpoint)
}

func (c *client) Put(endpoint string) *httpTestRequest {
	return newHttpTestRequest(c.api, "PUT", endpoint)
}
