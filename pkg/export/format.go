// Package export serializes a dataset.Dataset into downloadable file formats and reads
// those files back into a string table.
package export

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shpitdev/synthdata/pkg/dataset"
)

// Format is a supported file format.
type Format string

const (
	CSV         Format = "csv"
	Excel       Format = "xlsx"
	JSON        Format = "json"
	XML         Format = "xml"
	Parquet     Format = "parquet"
	MessagePack Format = "msgpack"
)

const (
	DateLayout     = "2006-01-02"
	DateTimeLayout = "2006-01-02 15:04:05"
)

// Formats lists every supported format.
func Formats() []Format {
	return []Format{CSV, Excel, JSON, XML, Parquet, MessagePack}
}

// ParseFormat accepts a display name ("Excel") or an extension (".xlsx"), case-insensitively.
func ParseFormat(raw string) (Format, error) {
	s := strings.TrimPrefix(strings.TrimSpace(strings.ToLower(raw)), ".")
	switch s {
	case "csv":
		return CSV, nil
	case "excel", "xlsx":
		return Excel, nil
	case "json":
		return JSON, nil
	case "xml":
		return XML, nil
	case "parquet":
		return Parquet, nil
	case "msgpack", "messagepack", "mpk":
		return MessagePack, nil
	default:
		return "", fmt.Errorf("unsupported format %q", raw)
	}
}

// ParseFormats parses a comma-separated format list, dropping duplicates.
func ParseFormats(raw string) ([]Format, error) {
	var out []Format
	seen := map[Format]bool{}
	for _, part := range strings.Split(raw, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		f, err := ParseFormat(part)
		if err != nil {
			return nil, err
		}
		if seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no formats given")
	}
	return out, nil
}

// Name is the display name shown to users.
func (f Format) Name() string {
	switch f {
	case CSV:
		return "CSV"
	case Excel:
		return "Excel"
	case JSON:
		return "JSON"
	case XML:
		return "XML"
	case Parquet:
		return "Parquet"
	case MessagePack:
		return "MessagePack"
	default:
		return string(f)
	}
}

// Extension returns the file extension without a dot. Unknown formats use "dat".
func (f Format) Extension() string {
	switch f {
	case CSV, Excel, JSON, XML, Parquet, MessagePack:
		return string(f)
	default:
		return "dat"
	}
}

// MIMEType returns the content type used for downloads.
func (f Format) MIMEType() string {
	switch f {
	case CSV:
		return "text/csv"
	case Excel:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case JSON:
		return "application/json"
	case XML:
		return "application/xml"
	case MessagePack:
		return "application/vnd.msgpack"
	default:
		return "application/octet-stream"
	}
}

// FormatValue renders one dataset value as text. Dates use DateLayout, timestamps
// DateTimeLayout.
func FormatValue(v any, kind dataset.FieldType) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		if kind == dataset.TypeDate {
			return x.Format(DateLayout)
		}
		return x.Format(DateTimeLayout)
	default:
		return fmt.Sprint(x)
	}
}
