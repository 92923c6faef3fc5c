package http_reporter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"sort"
	"strconv"
	"time"

	"mosn.io/ballast"
)

const defaultTimeout = 5 * time.Second

type HttpReporter struct {
	token  string
	url    string
	client *http.Client
}

type Response struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func NewReporter(token string, url string) ballast.Reporter {
	return &HttpReporter{
		token:  token,
		url:    url,
		client: &http.Client{Timeout: defaultTimeout},
	}
}

// Report posts the event as a multipart form. Event fields are sent as
// form fields of the same name.
func (r *HttpReporter) Report(ev ballast.Event) error {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	writer.WriteField("token", r.token)                           // nolint: errcheck
	writer.WriteField("event_type", ev.Type)                      // nolint: errcheck
	writer.WriteField("event_id", ev.EventID)                     // nolint: errcheck
	writer.WriteField("success", strconv.FormatBool(ev.Success))  // nolint: errcheck
	writer.WriteField("time", ev.Time.UTC().Format(time.RFC3339)) // nolint: errcheck

	keys := make([]string, 0, len(ev.Fields))
	for k := range ev.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		writer.WriteField(k, ev.Fields[k]) // nolint: errcheck
	}
	writer.Close() // nolint: errcheck

	request, err := http.NewRequest(http.MethodPost, r.url, body)
	if err != nil {
		return fmt.Errorf("NewRequest err: %w", err)
	}

	request.Header.Add("Content-Type", writer.FormDataContentType())
	response, err := r.client.Do(request)
	if err != nil {
		return fmt.Errorf("do Request err: %w", err)
	}
	defer response.Body.Close() // nolint: errcheck

	respContent, err := io.ReadAll(response.Body)
	if err != nil {
		return fmt.Errorf("read response err: %w", err)
	}

	if response.StatusCode/100 != 2 {
		return fmt.Errorf("unexpected status: %s", response.Status)
	}

	rsp := &Response{}
	if err := json.Unmarshal(respContent, rsp); err != nil {
		return fmt.Errorf("failed to decode resp json: %w", err)
	}

	if rsp.Code != 1 {
		return fmt.Errorf("code: %d, msg: %s", rsp.Code, rsp.Message)
	}
	return nil
}
