package document

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"docstore/pkg/storage"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambdacontext"
)

// Step names one write in the create sequence. The names double as labels in
// the create response body.
type Step string

const (
	StepTable        Step = "metadataDynamo"
	StepContent      Step = "document"
	StepMetadataCopy Step = "metadataS3"
)

// ContentKey is the object key holding the gzip'd document body.
func ContentKey(id string) string {
	return id + "/content"
}

// MetadataKey is the object key holding the gzip'd metadata copy.
func MetadataKey(id string) string {
	return id + "/metadata.json"
}

// StepResult is the outcome of one write.
type StepResult struct {
	Step    Step
	Key     string
	Receipt storage.Receipt
	Err     error
}

// StepError reports which write failed. Writes that completed before it are
// not undone.
type StepError struct {
	Step Step
	Key  string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s write for %q failed: %v", e.Step, e.Key, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// IngestResult collects the step results of one create, in execution order.
type IngestResult struct {
	Metadata Metadata
	Steps    []StepResult
}

// Receipt returns the receipt recorded for step, or nil if it did not run.
func (r IngestResult) Receipt(step Step) storage.Receipt {
	for _, s := range r.Steps {
		if s.Step == step {
			return s.Receipt
		}
	}
	return nil
}

// CreateHandler stores new documents: metadata into the table, then the body
// and a metadata copy into the object store.
type CreateHandler struct {
	Table      storage.MetadataTable
	Objects    storage.ObjectStore
	TableName  string
	BucketName string

	// Now defaults to time.Now.
	Now func() time.Time
}

func (h *CreateHandler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

// RequestID returns the invocation request id carried by ctx, if any.
func RequestID(ctx context.Context) string {
	if lc, ok := lambdacontext.FromContext(ctx); ok {
		return lc.AwsRequestID
	}
	return ""
}

// Handle validates event, writes the document and returns the API Gateway
// response. Validation failures produce a 400 response; store failures are
// returned as errors.
func (h *CreateHandler) Handle(ctx context.Context, event CreateEvent) (events.APIGatewayProxyResponse, error) {
	if err := event.Validate(); err != nil {
		slog.WarnContext(ctx, "Rejected create request", "reason", err)
		return badRequest(err), nil
	}

	fields, err := event.DocsData.BodyFields()
	if err != nil {
		slog.WarnContext(ctx, "Rejected create request", "reason", err)
		return badRequest(err), nil
	}

	body, err := event.DocsData.CompactBody()
	if err != nil {
		return badRequest(fmt.Errorf("%w: %v", ErrMissingBody, err)), nil
	}

	id, err := ResolveID(event.DocsData.Headers.ID, RequestID(ctx))
	if err != nil {
		return events.APIGatewayProxyResponse{}, err
	}

	meta := NewMetadata(id, *event.DocsData.Headers, h.BucketName, fields["document"], h.now)

	result, err := h.Ingest(ctx, meta, body)
	if err != nil {
		return events.APIGatewayProxyResponse{}, err
	}

	slog.InfoContext(ctx, "Stored document", "id", id, "bucket", h.BucketName, "table", h.TableName)
	return created(FormatIngestBody(result)), nil
}

// Ingest runs the three writes in order and stops at the first failure,
// which is returned as a *StepError. The result holds every step attempted.
func (h *CreateHandler) Ingest(ctx context.Context, meta Metadata, body []byte) (IngestResult, error) {
	result := IngestResult{Metadata: meta}

	run := func(step Step, key string, write func() (storage.Receipt, error)) error {
		receipt, err := write()
		result.Steps = append(result.Steps, StepResult{Step: step, Key: key, Receipt: receipt, Err: err})
		if err != nil {
			slog.ErrorContext(ctx, "Document write failed", "id", meta.ID, "step", step, "key", key, "error", err)
			return &StepError{Step: step, Key: key, Err: err}
		}
		slog.DebugContext(ctx, "Document write complete", "id", meta.ID, "step", step, "key", key)
		return nil
	}

	err := run(StepTable, meta.ID, func() (storage.Receipt, error) {
		return h.Table.PutItem(ctx, h.TableName, meta.Item())
	})
	if err != nil {
		return result, err
	}

	err = run(StepContent, ContentKey(meta.ID), func() (storage.Receipt, error) {
		compressed, err := Gzip(body)
		if err != nil {
			return nil, fmt.Errorf("compress body: %w", err)
		}
		return h.Objects.PutObject(ctx, h.BucketName, ContentKey(meta.ID), compressed, storage.ContentEncodingGzip)
	})
	if err != nil {
		return result, err
	}

	err = run(StepMetadataCopy, MetadataKey(meta.ID), func() (storage.Receipt, error) {
		compressed, err := EncodeGzipJSON(meta)
		if err != nil {
			return nil, fmt.Errorf("compress metadata: %w", err)
		}
		return h.Objects.PutObject(ctx, h.BucketName, MetadataKey(meta.ID), compressed, storage.ContentEncodingGzip)
	})
	if err != nil {
		return result, err
	}

	return result, nil
}

func receiptJSON(r storage.Receipt) string {
	if r == nil {
		r = storage.Receipt{}
	}
	raw, err := MarshalJSON(r)
	if err != nil {
		return fmt.Sprintf("%q", err.Error())
	}
	return string(raw)
}

// ingestBodyIndent prefixes every line of the create response after the
// first.
const ingestBodyIndent = "            "

// FormatIngestBody renders the diagnostic text returned on a successful
// create: the id followed by each store's raw receipt. Existing clients match
// on this text, including its indentation and the space after the document
// line.
func FormatIngestBody(r IngestResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "id:%s,\n", r.Metadata.ID)
	fmt.Fprintf(&b, "%s%s:{%s}, \n", ingestBodyIndent, StepContent, receiptJSON(r.Receipt(StepContent)))
	fmt.Fprintf(&b, "%s%s:{%s},\n", ingestBodyIndent, StepTable, receiptJSON(r.Receipt(StepTable)))
	fmt.Fprintf(&b, "%s%s:{%s}", ingestBodyIndent, StepMetadataCopy, receiptJSON(r.Receipt(StepMetadataCopy)))
	return b.String()
}
