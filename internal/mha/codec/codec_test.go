package codec

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/suite"
)

type CodecSuite struct {
	suite.Suite
}

func TestCodecSuite(t *testing.T) {
	suite.Run(t, new(CodecSuite))
}

func (s *CodecSuite) sampleDetail() DetailRecord {
	return DetailRecord{
		IDNo:        "T9716729F",
		Name:        "TAN AH KOW",
		DateOfBirth: time.Date(1987, 4, 12, 0, 0, 0, 0, time.UTC),
		AddressType: "R",
		BlockNo:     "123",
		Street:      "ORCHARD ROAD",
		FloorNo:     "05",
		UnitNo:      "123",
		Building:    "LUCKY PLAZA",
		PostalCode:  "238823",
		LifeStatus:  "A",
		NoticeNo:    "MHATEST001",
	}
}

func (s *CodecSuite) TestHeaderRoundTrip() {
	h := Header{FileDate: time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)}
	line := FormatHeader(h)
	s.Equal("H20250615", line)

	parsed, err := ParseHeader(line)
	s.Require().NoError(err)
	s.Equal(h.FileDate, parsed.FileDate)
}

func (s *CodecSuite) TestTrailerRoundTrip() {
	line := FormatTrailer(Trailer{Count: 42})
	s.Equal("T000042", line)

	parsed, err := ParseTrailer(line)
	s.Require().NoError(err)
	s.Equal(42, parsed.Count)
}

func (s *CodecSuite) TestDetailRoundTrip() {
	s.Run("plain national-id record", func() {
		rec := s.sampleDetail()
		line := FormatDetail(rec)
		s.Len(line, DetailLen)

		parsed, err := ParseDetail(line)
		s.Require().NoError(err)
		s.Equal(rec, parsed)
	})

	s.Run("deceased with death date", func() {
		rec := s.sampleDetail()
		rec.IDNo = "S3239822G"
		rec.NoticeNo = "PSRIP001"
		rec.LifeStatus = "D"
		rec.DateOfDeath = time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)

		parsed, err := ParseDetail(FormatDetail(rec))
		s.Require().NoError(err)
		s.Equal(rec, parsed)
	})

	s.Run("invalid-address tag", func() {
		rec := s.sampleDetail()
		rec.IDNo = "S2170362A"
		rec.NoticeNo = "TSNRO003"
		rec.Street = "NA"
		rec.PostalCode = ""
		rec.InvalidTag = "G"

		parsed, err := ParseDetail(FormatDetail(rec))
		s.Require().NoError(err)
		s.Equal("NA", parsed.Street)
		s.Empty(parsed.PostalCode)
		s.Equal("G", parsed.InvalidTag)
	})

	s.Run("diplomatic and passport flags", func() {
		rec := s.sampleDetail()
		rec.IDNo = "A12345678"
		rec.DiplomaticFlag = true
		rec.PassportIndicator = true
		rec.Nationality = "MALAYSIAN"
		rec.PlaceOfIssue = "KUALA LUMPUR"
		rec.PrimaryFlag = true
		rec.Phone = "+6591234567"
		rec.Email = "owner@example.com"
		rec.AddressChangeDate = time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)

		parsed, err := ParseDetail(FormatDetail(rec))
		s.Require().NoError(err)
		s.Equal(rec, parsed)
	})
}

// TestDetailTruncatesOnRuneBoundary: an overlong name with a multi-byte rune
// straddling the field width must not serialize a split rune.
func (s *CodecSuite) TestDetailTruncatesOnRuneBoundary() {
	rec := s.sampleDetail()
	rec.Name = strings.Repeat("A", 65) + "Ö" // 67 bytes, Ö straddles byte 66

	line := FormatDetail(rec)
	s.Len(line, DetailLen)
	s.True(utf8.ValidString(line))

	parsed, err := ParseDetail(line)
	s.Require().NoError(err)
	s.Equal(strings.Repeat("A", 65), parsed.Name)
}

func (s *CodecSuite) TestDetailValidation() {
	s.Run("wrong length", func() {
		_, err := ParseDetail("Dshort")
		s.Require().Error(err)
	})

	s.Run("missing identity number", func() {
		rec := s.sampleDetail()
		rec.IDNo = ""
		_, err := ParseDetail(FormatDetail(rec))
		s.Require().Error(err)
	})

	s.Run("missing notice number", func() {
		rec := s.sampleDetail()
		rec.NoticeNo = ""
		_, err := ParseDetail(FormatDetail(rec))
		s.Require().Error(err)
	})

	s.Run("unknown invalid-address tag", func() {
		rec := s.sampleDetail()
		rec.InvalidTag = "Z"
		_, err := ParseDetail(FormatDetail(rec))
		s.Require().Error(err)
		s.Contains(err.Error(), "invalid-address tag")
	})

	s.Run("garbage date", func() {
		line := FormatDetail(s.sampleDetail())
		mangled := line[:1+widthIDNo+widthName] + "XXXXXXXX" + line[1+widthIDNo+widthName+widthDate:]
		_, err := ParseDetail(mangled)
		s.Require().Error(err)
	})
}

func (s *CodecSuite) TestExceptionRoundTrip() {
	rec := ExceptionRecord{
		Serial:   7,
		IDNo:     "S8888888Z",
		NoticeNo: "EXC0000001",
		Status:   "NO MATCH IN REGISTRY",
	}
	line := FormatException(rec)
	s.Len(line, ExceptionLen)

	parsed, err := ParseException(line)
	s.Require().NoError(err)
	s.Equal(rec, parsed)
}

func (s *CodecSuite) TestFilenames() {
	ts := time.Date(2025, 6, 15, 9, 30, 1, 0, time.UTC)
	s.Equal("URA2NRO_20250615093001", RequestFilename(ts))
	s.Equal("NRO2URA_20250615093001", ResponseFilename(ts))
}

func (s *CodecSuite) TestRequestRecord() {
	ts := time.Date(2025, 6, 15, 9, 30, 1, 250000000, time.UTC)
	line := FormatRequestRecord(RequestRecord{IDNo: "T9716729F", Timestamp: ts})
	s.Len(line, widthRequestIDNo+widthRequestTstamp)
	s.True(strings.HasPrefix(line, "T9716729F   "))
	s.Contains(line, "2025-06-15 09:30:01.250")
}
