package codec

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"
)

// File naming for the agency exchange. Request files go out as
// URA2NRO_<yyyyMMddHHmmss>; responses come back as NRO2URA_<yyyyMMddHHmmss>.
const (
	RequestFilePrefix  = "URA2NRO_"
	ResponseFilePrefix = "NRO2URA_"
	TimestampLayout    = "20060102150405"
)

// BatchFile is one fully parsed inbound batch. Malformed detail/exception
// lines are collected in Anomalies and still count toward the control total:
// the trailer describes lines written, not lines we managed to parse.
type BatchFile struct {
	Header     Header
	Details    []DetailRecord
	Exceptions []ExceptionRecord
	Anomalies  []*ParseError
}

// ParseFile parses a complete batch file and verifies the control total.
// A control-total mismatch fails the whole file; nothing from an inconsistent
// batch may be applied.
func ParseFile(r io.Reader) (*BatchFile, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), 1<<20)

	var (
		file      BatchFile
		sawHeader bool
		trailer   *Trailer
		bodyLines int
		lineNo    int
	)

	for sc.Scan() {
		lineNo++
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		if trailer != nil {
			return nil, fmt.Errorf("line %d: content after trailer", lineNo)
		}
		if !sawHeader {
			h, err := ParseHeader(line)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			file.Header = h
			sawHeader = true
			continue
		}

		switch line[0] {
		case TypeTrailer:
			t, err := ParseTrailer(line)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			trailer = &t
		case TypeDetail:
			bodyLines++
			rec, err := ParseDetail(line)
			if err != nil {
				file.Anomalies = append(file.Anomalies, &ParseError{Line: lineNo, Reason: err.Error()})
				continue
			}
			file.Details = append(file.Details, rec)
		case TypeException:
			bodyLines++
			rec, err := ParseException(line)
			if err != nil {
				file.Anomalies = append(file.Anomalies, &ParseError{Line: lineNo, Reason: err.Error()})
				continue
			}
			file.Exceptions = append(file.Exceptions, rec)
		default:
			bodyLines++
			file.Anomalies = append(file.Anomalies, &ParseError{
				Line:   lineNo,
				Reason: fmt.Sprintf("unknown record type %q", line[0]),
			})
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read batch file: %w", err)
	}
	if !sawHeader {
		return nil, fmt.Errorf("batch file has no header line")
	}
	if trailer == nil {
		return nil, fmt.Errorf("batch file has no trailer line")
	}
	if trailer.Count != bodyLines {
		return nil, &ControlTotalError{Expected: trailer.Count, Actual: bodyLines}
	}
	return &file, nil
}

// WriteFile serializes a batch file, trailer count derived from content.
// Used by the test callback synthesizer and round-trip tests.
func WriteFile(w io.Writer, file *BatchFile) error {
	bw := bufio.NewWriter(w)
	lines := []string{FormatHeader(file.Header)}
	for _, d := range file.Details {
		lines = append(lines, FormatDetail(d))
	}
	for _, e := range file.Exceptions {
		lines = append(lines, FormatException(e))
	}
	lines = append(lines, FormatTrailer(Trailer{Count: len(file.Details) + len(file.Exceptions)}))
	for _, line := range lines {
		if _, err := bw.WriteString(line + "\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// ResponseFilename builds the inbound filename for a given timestamp.
func ResponseFilename(ts time.Time) string {
	return ResponseFilePrefix + ts.Format(TimestampLayout)
}

// RequestFilename builds the outbound filename for a given timestamp.
func RequestFilename(ts time.Time) string {
	return RequestFilePrefix + ts.Format(TimestampLayout)
}

// RequestRecord is one line of the outbound request file: the identity number
// this system wants the registry to confirm.
type RequestRecord struct {
	IDNo      string
	Timestamp time.Time
}

// FormatRequestRecord serializes one outbound request line (id 12 wide,
// millisecond timestamp 23 wide).
func FormatRequestRecord(rec RequestRecord) string {
	var b strings.Builder
	pad(&b, rec.IDNo, widthRequestIDNo)
	pad(&b, rec.Timestamp.Format("2006-01-02 15:04:05.000"), widthRequestTstamp)
	return b.String()
}

// WriteRequestFile writes the outbound request file for a set of identity
// numbers, one line each.
func WriteRequestFile(w io.Writer, ids []string, ts time.Time) error {
	bw := bufio.NewWriter(w)
	for _, id := range ids {
		line := FormatRequestRecord(RequestRecord{IDNo: id, Timestamp: ts})
		if _, err := bw.WriteString(line + "\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}
