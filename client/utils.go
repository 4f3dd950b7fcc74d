package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"time"
)

type httpRequest struct {
	method      string
	baseUrl     string
	endpoint    string
	headers     map[string]string
	queryParams map[string]string
	json        interface{}
	body        io.Reader
}

func newHttpRequest(method, baseUrl, endpoint string) *httpRequest {
	return &httpRequest{
		method:   method,
		baseUrl:  baseUrl,
		endpoint: endpoint,
	}
}

func (r *httpRequest) Header(key, value string) *httpRequest {
	if r.headers == nil {
		r.headers = make(map[string]string)
	}
	r.headers[key] = value
	return r
}

func (r *httpRequest) Json(data interface{}) *httpRequest {
	r.json = data
	return r
}

func (r *httpRequest) Body(body io.Reader) *httpRequest {
	r.body = body
	return r
}

func (r *httpRequest) Param(key, value string) *httpRequest {
	if r.queryParams == nil {
		r.queryParams = make(map[string]string)
	}
	r.queryParams[key] = value
	return r
}

// File is a file attachment for a multipart request.
type File struct {
	Field       string
	Name        string
	ContentType string
	Data        []byte
}

func (r *httpRequest) Multipart(fields map[string]string, files ...File) *httpRequest {
	body := new(bytes.Buffer)
	writer := multipart.NewWriter(body)

	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			panic(fmt.Sprintf("error writing multipart field %v: %v", key, err))
		}
	}

	for _, file := range files {
		header := textproto.MIMEHeader{}
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, file.Field, file.Name))
		if file.ContentType != "" {
			header.Set("Content-Type", file.ContentType)
		}
		part, err := writer.CreatePart(header)
		if err != nil {
			panic(fmt.Sprintf("error creating request part: %v", err))
		}
		if _, err := part.Write(file.Data); err != nil {
			panic(fmt.Sprintf("error writing to multipart request: %v", err))
		}
	}

	if err := writer.Close(); err != nil {
		panic(fmt.Sprintf("error finalizing multipart request: %v", err))
	}

	r.body = body
	return r.Header("Content-Type", writer.FormDataContentType())
}

func (r *httpRequest) Process(resultHandler func(io.Reader) error) error {
	fullEndpoint, err := url.JoinPath(r.baseUrl, r.endpoint)
	if err != nil {
		return fmt.Errorf("error formatting url for endpoint %v: %w", r.endpoint, err)
	}

	if r.json != nil {
		body := new(bytes.Buffer)
		err := json.NewEncoder(body).Encode(r.json)
		if err != nil {
			return fmt.Errorf("error encoding json body for endpoint %v: %w", r.endpoint, err)
		}
		r.body = body
	}

	req, err := http.NewRequest(r.method, fullEndpoint, r.body)
	if err != nil {
		return fmt.Errorf("error creating %v request for endpoint %v: %w", r.method, r.endpoint, err)
	}

	for k, v := range r.headers {
		req.Header.Add(k, v)
	}

	if r.queryParams != nil {
		query := req.URL.Query()
		for k, v := range r.queryParams {
			query.Add(k, v)
		}
		req.URL.RawQuery = query.Encode()
	}

	start := time.Now()

	res, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("error sending %v request to endpoint %v: %w", r.method, r.endpoint, err)
	}
	defer res.Body.Close()

	end := time.Now()

	slog.Debug("foodexchange client", "method", r.method, "endpoint", r.endpoint, "status", res.StatusCode, "duration", end.Sub(start).String())

	if res.StatusCode != http.StatusOK {
		content, err := io.ReadAll(res.Body)
		if err != nil {
			return fmt.Errorf("%v request to endpoint %v returned status %d", r.method, r.endpoint, res.StatusCode)
		}
		return fmt.Errorf("%v request to endpoint %v returned status %d, content '%v'", r.method, r.endpoint, res.StatusCode, string(content))
	}

	if resultHandler != nil {
		err := resultHandler(res.Body)
		if err != nil {
			return fmt.Errorf("error processing %v response from endpoint %v: %w", r.method, r.endpoint, err)
		}
	}

	return nil
}

func (r *httpRequest) Do(result interface{}) error {
	return r.Process(func(body io.Reader) error {
		if result != nil {
			err := json.NewDecoder(body).Decode(result)
			if err != nil {
				return fmt.Errorf("error parsing %v response from endpoint %v: %w", r.method, r.endpoint, err)
			}
		}
		return nil
	})
}

// DoText runs the request and returns the plain text response body.
func (r *httpRequest) DoText() (string, error) {
	var text string
	err := r.Process(func(body io.Reader) error {
		content, err := io.ReadAll(body)
		if err != nil {
			return err
		}
		text = string(content)
		return nil
	})
	return text, err
}

type BaseClient struct {
	baseUrl string
}

func NewBaseClient(baseUrl string) BaseClient {
	return BaseClient{baseUrl: baseUrl}
}

func (c *BaseClient) Get(endpoint string) *httpRequest {
	return newHttpRequest("GET", c.baseUrl, endpoint)
}

func (c *BaseClient) Post(endpoint string) *httpRequest {
	return newHttpRequest("POST", c.baseUrl, endpoint)
}

func (c *BaseClient) Put(endpoint string) *httpRequest {
	return newHttpRequest("PUT", c.baseUrl, endpoint)
}
