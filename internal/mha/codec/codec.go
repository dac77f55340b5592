// Package codec parses and serializes the agency's line-oriented fixed-width
// batch format: one header line, detail/exception lines, one trailer whose
// count must match the lines in between.
package codec

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// Record type indicator bytes, first character of every line.
const (
	TypeHeader    = 'H'
	TypeDetail    = 'D'
	TypeException = 'E'
	TypeTrailer   = 'T'
)

// DateLayout is the 8-digit date format used throughout the batch format.
const DateLayout = "20060102"

// Field widths for the detail payload, in order of appearance after the 'D'
// indicator. Identity numbers are 12 wide, names 66, matching the registry
// interface layout.
const (
	widthIDNo          = 12
	widthName          = 66
	widthDate          = 8
	widthAddressType   = 1
	widthBlockNo       = 10
	widthStreet        = 32
	widthFloorNo       = 2
	widthUnitNo        = 5
	widthBuilding      = 30
	widthPostal        = 6
	widthFlag          = 1
	widthNoticeNo      = 10
	widthNationality   = 20
	widthPlaceOfIssue  = 20
	widthPhone         = 15
	widthEmail         = 60
	widthSerial        = 6
	widthExcStatus     = 60
	widthTrailerCount  = 6
	widthRequestIDNo   = 12
	widthRequestTstamp = 23
)

// DetailLen is the exact length of a detail line including the indicator.
const DetailLen = 1 + widthIDNo + widthName + widthDate + widthAddressType +
	widthBlockNo + widthStreet + widthFloorNo + widthUnitNo + widthBuilding +
	widthPostal + widthDate + widthFlag + widthFlag + widthNoticeNo +
	widthFlag + widthFlag + widthNationality + widthPlaceOfIssue + widthFlag +
	widthPhone + widthEmail + widthDate

// ExceptionLen is the exact length of an exception line.
const ExceptionLen = 1 + widthSerial + widthIDNo + widthNoticeNo + widthExcStatus

// InvalidAddressTags enumerates the registry's invalid-address tag codes.
var InvalidAddressTags = map[string]string{
	"D": "Delisted Address",
	"M": "Demolished",
	"F": "Fail to Report",
	"G": "Gone Away",
	"I": "Invalid Address",
	"N": "No such numbers",
	"P": "Outdated Address",
	"S": "Overseas",
}

// Header is the first line of a batch file.
type Header struct {
	FileDate time.Time
}

// Trailer is the last line of a batch file; Count is the control total.
type Trailer struct {
	Count int
}

// DetailRecord is one parsed detail line. String fields are trimmed of
// trailing spaces; an empty string means the field was absent. Street and
// PostalCode keep their trimmed value verbatim because the degenerate
// "NA" street with empty postal is itself a signal (no resolvable address).
type DetailRecord struct {
	IDNo        string
	Name        string
	DateOfBirth time.Time
	AddressType string
	BlockNo     string
	Street      string
	FloorNo     string
	UnitNo      string
	Building    string
	PostalCode  string
	DateOfDeath time.Time
	LifeStatus  string
	InvalidTag  string
	NoticeNo    string

	DiplomaticFlag    bool
	PassportIndicator bool
	Nationality       string
	PlaceOfIssue      string
	PrimaryFlag       bool

	Phone             string
	Email             string
	AddressChangeDate time.Time
}

// ExceptionRecord is one parsed exception line from the registry's
// unmatched-identity report.
type ExceptionRecord struct {
	Serial   int
	IDNo     string
	NoticeNo string
	Status   string
}

// ParseError marks one malformed line. The line is skipped; the batch
// continues.
type ParseError struct {
	Line   int
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
}

// ControlTotalError aborts the whole batch: the trailer count disagrees with
// the number of detail and exception lines consumed.
type ControlTotalError struct {
	Expected int
	Actual   int
}

func (e *ControlTotalError) Error() string {
	return fmt.Sprintf("control total mismatch: trailer says %d, file has %d", e.Expected, e.Actual)
}

// ParseHeader parses an 'H' line.
func ParseHeader(line string) (Header, error) {
	if len(line) < 1+widthDate || line[0] != TypeHeader {
		return Header{}, fmt.Errorf("malformed header line")
	}
	d, err := time.Parse(DateLayout, line[1:1+widthDate])
	if err != nil {
		return Header{}, fmt.Errorf("header date: %w", err)
	}
	return Header{FileDate: d}, nil
}

// ParseTrailer parses a 'T' line.
func ParseTrailer(line string) (Trailer, error) {
	if len(line) < 1+widthTrailerCount || line[0] != TypeTrailer {
		return Trailer{}, fmt.Errorf("malformed trailer line")
	}
	n, err := strconv.Atoi(line[1 : 1+widthTrailerCount])
	if err != nil {
		return Trailer{}, fmt.Errorf("trailer count: %w", err)
	}
	return Trailer{Count: n}, nil
}

type cursor struct {
	line string
	pos  int
}

func (c *cursor) take(n int) string {
	start, end := c.pos, c.pos+n
	if start > len(c.line) {
		start = len(c.line)
	}
	if end > len(c.line) {
		end = len(c.line)
	}
	c.pos += n
	return strings.TrimRight(c.line[start:end], " ")
}

func (c *cursor) takeDate(n int) (time.Time, error) {
	raw := c.take(n)
	if raw == "" {
		return time.Time{}, nil
	}
	return time.Parse(DateLayout, raw)
}

func (c *cursor) takeFlag() bool {
	return c.take(widthFlag) == "Y"
}

// ParseDetail parses a 'D' line into a DetailRecord.
func ParseDetail(line string) (DetailRecord, error) {
	if len(line) != DetailLen || line[0] != TypeDetail {
		return DetailRecord{}, fmt.Errorf("detail line length %d, want %d", len(line), DetailLen)
	}
	c := &cursor{line: line, pos: 1}
	var rec DetailRecord
	var err error

	rec.IDNo = c.take(widthIDNo)
	rec.Name = c.take(widthName)
	if rec.DateOfBirth, err = c.takeDate(widthDate); err != nil {
		return DetailRecord{}, fmt.Errorf("date of birth: %w", err)
	}
	rec.AddressType = c.take(widthAddressType)
	rec.BlockNo = c.take(widthBlockNo)
	rec.Street = c.take(widthStreet)
	rec.FloorNo = c.take(widthFloorNo)
	rec.UnitNo = c.take(widthUnitNo)
	rec.Building = c.take(widthBuilding)
	rec.PostalCode = c.take(widthPostal)
	if rec.DateOfDeath, err = c.takeDate(widthDate); err != nil {
		return DetailRecord{}, fmt.Errorf("date of death: %w", err)
	}
	rec.LifeStatus = c.take(widthFlag)
	rec.InvalidTag = c.take(widthFlag)
	rec.NoticeNo = c.take(widthNoticeNo)
	rec.DiplomaticFlag = c.takeFlag()
	rec.PassportIndicator = c.takeFlag()
	rec.Nationality = c.take(widthNationality)
	rec.PlaceOfIssue = c.take(widthPlaceOfIssue)
	rec.PrimaryFlag = c.takeFlag()
	rec.Phone = c.take(widthPhone)
	rec.Email = c.take(widthEmail)
	if rec.AddressChangeDate, err = c.takeDate(widthDate); err != nil {
		return DetailRecord{}, fmt.Errorf("address change date: %w", err)
	}

	if rec.IDNo == "" {
		return DetailRecord{}, fmt.Errorf("missing identity number")
	}
	if rec.NoticeNo == "" {
		return DetailRecord{}, fmt.Errorf("missing notice number")
	}
	if rec.InvalidTag != "" {
		if _, ok := InvalidAddressTags[rec.InvalidTag]; !ok {
			return DetailRecord{}, fmt.Errorf("unknown invalid-address tag %q", rec.InvalidTag)
		}
	}
	return rec, nil
}

// ParseException parses an 'E' line.
func ParseException(line string) (ExceptionRecord, error) {
	if len(line) != ExceptionLen || line[0] != TypeException {
		return ExceptionRecord{}, fmt.Errorf("exception line length %d, want %d", len(line), ExceptionLen)
	}
	c := &cursor{line: line, pos: 1}
	serialRaw := strings.TrimSpace(c.take(widthSerial))
	serial, err := strconv.Atoi(serialRaw)
	if err != nil {
		return ExceptionRecord{}, fmt.Errorf("exception serial %q", serialRaw)
	}
	rec := ExceptionRecord{
		Serial:   serial,
		IDNo:     c.take(widthIDNo),
		NoticeNo: c.take(widthNoticeNo),
		Status:   c.take(widthExcStatus),
	}
	if rec.IDNo == "" {
		return ExceptionRecord{}, fmt.Errorf("missing identity number")
	}
	return rec, nil
}

// FormatHeader serializes a header line.
func FormatHeader(h Header) string {
	return string(TypeHeader) + h.FileDate.Format(DateLayout)
}

// FormatTrailer serializes a trailer line.
func FormatTrailer(t Trailer) string {
	return fmt.Sprintf("%c%06d", TypeTrailer, t.Count)
}

// FormatDetail serializes a detail record to its fixed-width line.
func FormatDetail(rec DetailRecord) string {
	var b strings.Builder
	b.Grow(DetailLen)
	b.WriteByte(TypeDetail)
	pad(&b, rec.IDNo, widthIDNo)
	pad(&b, rec.Name, widthName)
	padDate(&b, rec.DateOfBirth)
	pad(&b, rec.AddressType, widthAddressType)
	pad(&b, rec.BlockNo, widthBlockNo)
	pad(&b, rec.Street, widthStreet)
	pad(&b, rec.FloorNo, widthFloorNo)
	pad(&b, rec.UnitNo, widthUnitNo)
	pad(&b, rec.Building, widthBuilding)
	pad(&b, rec.PostalCode, widthPostal)
	padDate(&b, rec.DateOfDeath)
	pad(&b, rec.LifeStatus, widthFlag)
	pad(&b, rec.InvalidTag, widthFlag)
	pad(&b, rec.NoticeNo, widthNoticeNo)
	padFlag(&b, rec.DiplomaticFlag)
	padFlag(&b, rec.PassportIndicator)
	pad(&b, rec.Nationality, widthNationality)
	pad(&b, rec.PlaceOfIssue, widthPlaceOfIssue)
	padFlag(&b, rec.PrimaryFlag)
	pad(&b, rec.Phone, widthPhone)
	pad(&b, rec.Email, widthEmail)
	padDate(&b, rec.AddressChangeDate)
	return b.String()
}

// FormatException serializes an exception record.
func FormatException(rec ExceptionRecord) string {
	var b strings.Builder
	b.Grow(ExceptionLen)
	b.WriteByte(TypeException)
	fmt.Fprintf(&b, "%06d", rec.Serial)
	pad(&b, rec.IDNo, widthIDNo)
	pad(&b, rec.NoticeNo, widthNoticeNo)
	pad(&b, rec.Status, widthExcStatus)
	return b.String()
}

func pad(b *strings.Builder, s string, n int) {
	if len(s) > n {
		// Widths are byte widths; back the cut off a partial rune so the
		// line stays valid UTF-8.
		cut := n
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		s = s[:cut]
	}
	b.WriteString(s)
	for i := len(s); i < n; i++ {
		b.WriteByte(' ')
	}
}

func padDate(b *strings.Builder, t time.Time) {
	if t.IsZero() {
		pad(b, "", widthDate)
		return
	}
	b.WriteString(t.Format(DateLayout))
}

func padFlag(b *strings.Builder, v bool) {
	if v {
		b.WriteByte('Y')
	} else {
		b.WriteByte(' ')
	}
}
