// Package codec reads and writes the portable board document and the
// delimited export.
package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/muelle-planner/platform/pkg/dock"
	"github.com/muelle-planner/platform/pkg/schema"
)

var ErrDocumentParse = errors.New("document parse error")

// DocumentParseError reports a document that could not be applied.
type DocumentParseError struct {
	Err error
}

func (e *DocumentParseError) Error() string {
	return fmt.Sprintf("document parse error: %v", e.Err)
}

func (e *DocumentParseError) Unwrap() []error {
	return []error{ErrDocumentParse, e.Err}
}

func documentError(format string, args ...interface{}) error {
	return &DocumentParseError{Err: fmt.Errorf(format, args...)}
}

// DateLayout is the day/month/year format used on the printed board.
const DateLayout = "2/1/2006"

// Document is the portable export of a board. An empty Variant on a decoded
// document means the file did not name one.
type Document struct {
	Variant schema.Variant `json:"variant"`
	Date    string         `json:"date"`
	Records []dock.Record  `json:"records"`
}

func NewDocument(variant schema.Variant, records []dock.Record, now time.Time) Document {
	if records == nil {
		records = []dock.Record{}
	}
	return Document{Variant: variant, Date: now.Format(DateLayout), Records: records}
}

func EncodeDocument(w io.Writer, doc Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// rawDocument also accepts the keys of files written by the first version of
// the board.
type rawDocument struct {
	Variant  json.RawMessage `json:"variant"`
	SideType json.RawMessage `json:"sideType"`
	Date     string          `json:"date"`
	Fecha    string          `json:"fecha"`
	Records  json.RawMessage `json:"records"`
	Trucks   json.RawMessage `json:"trucks"`
}

// DecodeDocument parses a portable document. The records key must hold an
// array; anything else is rejected so a malformed file never replaces the
// board.
func DecodeDocument(r io.Reader) (Document, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return Document{}, documentError("reading document: %w", err)
	}
	return ParseDocument(body)
}

func ParseDocument(body []byte) (Document, error) {
	var raw rawDocument
	if err := json.Unmarshal(body, &raw); err != nil {
		return Document{}, documentError("invalid json: %w", err)
	}

	variant, err := decodeVariant(firstPresent(raw.Variant, raw.SideType))
	if err != nil {
		return Document{}, &DocumentParseError{Err: err}
	}

	recordsRaw := firstPresent(raw.Records, raw.Trucks)
	if len(recordsRaw) == 0 || recordsRaw[0] != '[' {
		return Document{}, documentError("records must be an array")
	}
	var records []dock.Record
	if err := json.Unmarshal(recordsRaw, &records); err != nil {
		return Document{}, documentError("decoding records: %w", err)
	}
	if records == nil {
		records = []dock.Record{}
	}

	date := raw.Date
	if date == "" {
		date = raw.Fecha
	}
	return Document{Variant: variant, Date: date, Records: records}, nil
}

func firstPresent(values ...json.RawMessage) json.RawMessage {
	for _, v := range values {
		v = bytes.TrimSpace(v)
		if len(v) > 0 && !bytes.Equal(v, []byte("null")) {
			return v
		}
	}
	return nil
}

// decodeVariant accepts "3" as well as 3.
func decodeVariant(raw json.RawMessage) (schema.Variant, error) {
	if len(raw) == 0 {
		return "", nil
	}
	var text string
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &text); err != nil {
			return "", err
		}
	} else {
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return "", fmt.Errorf("variant: %w", err)
		}
		text = n.String()
	}
	if strings.TrimSpace(text) == "" {
		return "", nil
	}
	return schema.ParseVariant(text)
}
