package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"
)

// Message header keys.
const (
	HeaderContentType = "content-type"
	HeaderMethod      = "method"
	HeaderProcessedAt = "processed_at"
)

const (
	ContentTypeJSON    = "application/json"
	ContentTypeMsgpack = "application/x-msgpack"
)

var (
	// ErrInvalidJob marks a payload that cannot become a GridJob.
	ErrInvalidJob = errors.New("invalid grid job")
	// ErrResultNotFound is returned by result stores for unknown or expired IDs.
	ErrResultNotFound = errors.New("result not found")
)

// Encoding selects the wire format for jobs and results.
type Encoding string

const (
	EncodingJSON    Encoding = "json"
	EncodingMsgpack Encoding = "msgpack"
)

// ParseEncoding accepts "json" or "msgpack". Empty means json.
func ParseEncoding(s string) (Encoding, error) {
	switch Encoding(strings.ToLower(strings.TrimSpace(s))) {
	case "", EncodingJSON:
		return EncodingJSON, nil
	case EncodingMsgpack:
		return EncodingMsgpack, nil
	default:
		return "", fmt.Errorf("unknown encoding %q (want json or msgpack)", s)
	}
}

// ContentType is the MIME type written to the content-type header.
func (e Encoding) ContentType() string {
	if e == EncodingMsgpack {
		return ContentTypeMsgpack
	}
	return ContentTypeJSON
}

// EncodingForContentType maps a content-type header to an Encoding,
// defaulting to json.
func EncodingForContentType(ct string) Encoding {
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return EncodingJSON
	}
	switch mt {
	case ContentTypeMsgpack, "application/msgpack", "application/vnd.msgpack":
		return EncodingMsgpack
	default:
		return EncodingJSON
	}
}

// Marshal encodes v. MessagePack output uses the json struct tags so both
// formats share field names.
func Marshal(v any, enc Encoding) ([]byte, error) {
	if enc != EncodingMsgpack {
		return json.Marshal(v)
	}
	var buf bytes.Buffer
	e := msgpack.NewEncoder(&buf)
	e.SetCustomStructTag("json")
	if err := e.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal is the inverse of Marshal.
func Unmarshal(data []byte, enc Encoding, v any) error {
	if enc != EncodingMsgpack {
		return json.Unmarshal(data, v)
	}
	d := msgpack.NewDecoder(bytes.NewReader(data))
	d.SetCustomStructTag("json")
	return d.Decode(v)
}

// ParseJob decodes a raw message into a GridJob, picking the format from the
// content-type header.
func ParseJob(raw RawEvent, defaultMethod string) (GridJob, error) {
	enc := EncodingForContentType(raw.Headers[HeaderContentType])
	var job GridJob
	if err := Unmarshal(raw.Value, enc, &job); err != nil {
		return GridJob{}, fmt.Errorf("%w: decode %s payload: %w", ErrInvalidJob, enc, err)
	}
	return WithDefaults(job, string(raw.Key), defaultMethod), nil
}

// WithDefaults fills a missing id from key, or a new UUID when key is empty,
// and a missing method from defaultMethod.
func WithDefaults(job GridJob, key, defaultMethod string) GridJob {
	job.ID = strings.TrimSpace(job.ID)
	if job.ID == "" {
		job.ID = strings.TrimSpace(key)
	}
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	job.Method = strings.TrimSpace(job.Method)
	if job.Method == "" {
		job.Method = defaultMethod
	}
	return job
}

// EncodeResult serializes a ClassifiedGrid for the sink topic.
func EncodeResult(grid ClassifiedGrid, enc Encoding) (OutputEvent, error) {
	value, err := Marshal(grid, enc)
	if err != nil {
		return OutputEvent{}, fmt.Errorf("encode result %s: %w", grid.ID, err)
	}
	return OutputEvent{
		Key:   []byte(grid.ID),
		Value: value,
		Headers: map[string]string{
			HeaderMethod:      grid.Method,
			HeaderContentType: enc.ContentType(),
			HeaderProcessedAt: grid.ProcessedAt.UTC().Format(time.RFC3339),
		},
	}, nil
}

// DecodeResult reads a ClassifiedGrid back from an encoded payload.
func DecodeResult(data []byte, enc Encoding) (ClassifiedGrid, error) {
	var grid ClassifiedGrid
	if err := Unmarshal(data, enc, &grid); err != nil {
		return ClassifiedGrid{}, fmt.Errorf("decode result: %w", err)
	}
	return grid, nil
}
