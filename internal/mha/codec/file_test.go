package codec

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type FileSuite struct {
	suite.Suite
}

func TestFileSuite(t *testing.T) {
	suite.Run(t, new(FileSuite))
}

func (f *FileSuite) detail(id, notice string) DetailRecord {
	return DetailRecord{
		IDNo:       id,
		Name:       "TAN AH KOW",
		Street:     "ORCHARD ROAD",
		PostalCode: "238823",
		LifeStatus: "A",
		NoticeNo:   notice,
	}
}

func (f *FileSuite) build(lines ...string) string {
	return strings.Join(lines, "\n") + "\n"
}

func (f *FileSuite) TestRoundTrip() {
	in := &BatchFile{
		Header:  Header{FileDate: time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)},
		Details: []DetailRecord{f.detail("T9716729F", "MHATEST001"), f.detail("S2170362A", "TSNRO003")},
		Exceptions: []ExceptionRecord{
			{Serial: 1, IDNo: "S8888888Z", NoticeNo: "EXC0000001", Status: "NO MATCH IN REGISTRY"},
		},
	}

	var buf bytes.Buffer
	f.Require().NoError(WriteFile(&buf, in))

	out, err := ParseFile(&buf)
	f.Require().NoError(err)
	f.Equal(in.Header, out.Header)
	f.Equal(in.Details, out.Details)
	f.Equal(in.Exceptions, out.Exceptions)
	f.Empty(out.Anomalies)
}

func (f *FileSuite) TestControlTotal() {
	f.Run("mismatch fails the whole file", func() {
		raw := f.build(
			"H20250615",
			FormatDetail(f.detail("T9716729F", "MHATEST001")),
			"T000005",
		)
		_, err := ParseFile(strings.NewReader(raw))
		f.Require().Error(err)

		var cte *ControlTotalError
		f.Require().ErrorAs(err, &cte)
		f.Equal(5, cte.Expected)
		f.Equal(1, cte.Actual)
	})

	f.Run("malformed lines still count", func() {
		raw := f.build(
			"H20250615",
			FormatDetail(f.detail("T9716729F", "MHATEST001")),
			"Dgarbage",
			"T000002",
		)
		file, err := ParseFile(strings.NewReader(raw))
		f.Require().NoError(err)
		f.Len(file.Details, 1)
		f.Len(file.Anomalies, 1)
	})

	f.Run("unknown record type counts and is reported", func() {
		raw := f.build(
			"H20250615",
			"Xwhatever",
			"T000001",
		)
		file, err := ParseFile(strings.NewReader(raw))
		f.Require().NoError(err)
		f.Len(file.Anomalies, 1)
		f.Contains(file.Anomalies[0].Reason, "unknown record type")
	})
}

func (f *FileSuite) TestFraming() {
	f.Run("missing header", func() {
		_, err := ParseFile(strings.NewReader(f.build("T000000")))
		f.Require().Error(err)
	})

	f.Run("missing trailer", func() {
		_, err := ParseFile(strings.NewReader(f.build("H20250615")))
		f.Require().Error(err)
	})

	f.Run("content after trailer", func() {
		raw := f.build(
			"H20250615",
			"T000001",
			FormatDetail(f.detail("T9716729F", "MHATEST001")),
		)
		_, err := ParseFile(strings.NewReader(raw))
		f.Require().Error(err)
		f.Contains(err.Error(), "after trailer")
	})

	f.Run("blank lines and CR endings tolerated", func() {
		raw := "H20250615\r\n\r\n" + FormatDetail(f.detail("T9716729F", "MHATEST001")) + "\r\nT000001\r\n"
		file, err := ParseFile(strings.NewReader(raw))
		f.Require().NoError(err)
		f.Len(file.Details, 1)
	})

	f.Run("empty input", func() {
		_, err := ParseFile(strings.NewReader(""))
		f.Require().Error(err)
	})
}

func (f *FileSuite) TestRequestFile() {
	var buf bytes.Buffer
	ts := time.Date(2025, 6, 15, 9, 30, 1, 0, time.UTC)
	f.Require().NoError(WriteRequestFile(&buf, []string{"T9716729F", "S2170362A"}, ts))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	f.Len(lines, 2)
	for _, line := range lines {
		f.Len(line, widthRequestIDNo+widthRequestTstamp)
	}
}
