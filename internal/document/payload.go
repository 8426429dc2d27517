package document

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-lambda-go/events"
)

// SchemaExample is the payload shape quoted back to callers whose create
// request fails validation.
const SchemaExample = "{\n" +
	"  \"docsData\": {\n" +
	"    \"headers\": {\n" +
	"      \"owner\": \"senorics\",\n" +
	"      \"filename\": \"my-eqe-file.sif\",\n" +
	"      \"size\": \"1024\",\n" +
	"      \"content_type\": \"text/x.senorics.interchange\"\n" +
	"    },\n" +
	"    \"body\": {\n" +
	"      \"document\": \"{my document values}\"\n" +
	"    }\n" +
	"  }\n" +
	"}"

// GetSchemaExample is quoted back when a get request has no id.
const GetSchemaExample = "{pathParameters:{id:string}}"

var (
	ErrMissingDocsData = errors.New("docsData is missing")
	ErrMissingHeaders  = errors.New("docsData.headers is missing")
	ErrMissingBody     = errors.New("docsData.body is missing")
	ErrMissingID       = errors.New("path parameter id is missing")
)

// validationMessage returns the caller-facing text for a validation error.
func validationMessage(err error) string {
	switch {
	case errors.Is(err, ErrMissingDocsData):
		return "Data is missing from payload, schema example: " + SchemaExample
	case errors.Is(err, ErrMissingHeaders):
		return "Document headers are missing, schema example: " + SchemaExample
	case errors.Is(err, ErrMissingBody):
		return "Document content is missing, schema example: " + SchemaExample
	case errors.Is(err, ErrMissingID):
		return "Data is missing from payload, schema: " + GetSchemaExample
	}
	return err.Error()
}

// CreateEvent is the create invocation payload: an API Gateway request with
// the document carried in docsData.
type CreateEvent struct {
	events.APIGatewayProxyRequest
	DocsData *DocsData `json:"docsData,omitempty"`
}

type DocsData struct {
	Headers *DocsHeaders    `json:"headers,omitempty"`
	Body    json.RawMessage `json:"body,omitempty"`
}

type DocsHeaders struct {
	ID          string     `json:"id,omitempty"`
	Modified    FlexString `json:"modified,omitempty"`
	Owner       string     `json:"owner"`
	Filename    string     `json:"filename"`
	Size        FlexString `json:"size"`
	ContentType string     `json:"content_type"`
}

// FlexString accepts either a JSON string or a bare JSON number and keeps
// its text verbatim.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", data)
	}
	*f = FlexString(n.String())
	return nil
}

func isAbsent(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// Validate checks the event in order and returns the first missing part.
func (e CreateEvent) Validate() error {
	if e.DocsData == nil {
		return ErrMissingDocsData
	}
	if e.DocsData.Headers == nil {
		return ErrMissingHeaders
	}
	if isAbsent(e.DocsData.Body) {
		return ErrMissingBody
	}
	return nil
}

// BodyFields decodes the body into its top-level fields. A body that is not
// a JSON object is reported as missing content.
func (d DocsData) BodyFields() (map[string]json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(d.Body, &fields); err != nil {
		return nil, fmt.Errorf("%w: body must be a JSON object", ErrMissingBody)
	}
	if fields == nil {
		return nil, ErrMissingBody
	}
	return fields, nil
}

// CompactBody returns the body re-encoded without insignificant whitespace.
func (d DocsData) CompactBody() ([]byte, error) {
	var buf bytes.Buffer
	if err := json.Compact(&buf, d.Body); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
