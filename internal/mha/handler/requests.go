package handler

import (
	"fmt"
	"time"

	"noticerecon/internal/mha/codec"
)

// CallbackRequest describes a synthetic registry response file. Dates use
// the batch format's yyyyMMdd layout.
type CallbackRequest struct {
	FileDate   string              `json:"file_date"`
	Details    []CallbackDetail    `json:"details"`
	Exceptions []CallbackException `json:"exceptions,omitempty"`
}

// CallbackDetail is one synthetic detail record.
type CallbackDetail struct {
	IDNo        string `json:"id_no"`
	Name        string `json:"name"`
	NoticeNo    string `json:"notice_no"`
	DateOfBirth string `json:"date_of_birth,omitempty"`
	LifeStatus  string `json:"life_status,omitempty"`
	DateOfDeath string `json:"date_of_death,omitempty"`

	BlockNo    string `json:"block_no,omitempty"`
	Street     string `json:"street,omitempty"`
	FloorNo    string `json:"floor_no,omitempty"`
	UnitNo     string `json:"unit_no,omitempty"`
	Building   string `json:"building,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	InvalidTag string `json:"invalid_tag,omitempty"`

	Diplomatic        bool   `json:"diplomatic,omitempty"`
	PassportIndicator bool   `json:"passport_indicator,omitempty"`
	Nationality       string `json:"nationality,omitempty"`
	PlaceOfIssue      string `json:"place_of_issue,omitempty"`
	Primary           bool   `json:"primary,omitempty"`

	Phone             string `json:"phone,omitempty"`
	Email             string `json:"email,omitempty"`
	AddressChangeDate string `json:"address_change_date,omitempty"`
}

// CallbackException is one synthetic exception record.
type CallbackException struct {
	Serial   int    `json:"serial"`
	IDNo     string `json:"id_no"`
	NoticeNo string `json:"notice_no"`
	Status   string `json:"status"`
}

// ToBatchFile validates and converts the request into a codec batch file.
func (req CallbackRequest) ToBatchFile() (*codec.BatchFile, error) {
	fileDate, err := parseDate(req.FileDate)
	if err != nil || fileDate.IsZero() {
		return nil, fmt.Errorf("file_date must be yyyyMMdd")
	}
	if len(req.Details) == 0 && len(req.Exceptions) == 0 {
		return nil, fmt.Errorf("at least one detail or exception record is required")
	}

	file := &codec.BatchFile{Header: codec.Header{FileDate: fileDate}}
	for i, d := range req.Details {
		rec, err := d.toRecord()
		if err != nil {
			return nil, fmt.Errorf("details[%d]: %w", i, err)
		}
		file.Details = append(file.Details, rec)
	}
	for i, e := range req.Exceptions {
		if e.IDNo == "" {
			return nil, fmt.Errorf("exceptions[%d]: id_no is required", i)
		}
		file.Exceptions = append(file.Exceptions, codec.ExceptionRecord{
			Serial:   e.Serial,
			IDNo:     e.IDNo,
			NoticeNo: e.NoticeNo,
			Status:   e.Status,
		})
	}
	return file, nil
}

func (d CallbackDetail) toRecord() (codec.DetailRecord, error) {
	if d.IDNo == "" {
		return codec.DetailRecord{}, fmt.Errorf("id_no is required")
	}
	if d.NoticeNo == "" {
		return codec.DetailRecord{}, fmt.Errorf("notice_no is required")
	}
	rec := codec.DetailRecord{
		IDNo:              d.IDNo,
		Name:              d.Name,
		NoticeNo:          d.NoticeNo,
		LifeStatus:        d.LifeStatus,
		BlockNo:           d.BlockNo,
		Street:            d.Street,
		FloorNo:           d.FloorNo,
		UnitNo:            d.UnitNo,
		Building:          d.Building,
		PostalCode:        d.PostalCode,
		InvalidTag:        d.InvalidTag,
		DiplomaticFlag:    d.Diplomatic,
		PassportIndicator: d.PassportIndicator,
		Nationality:       d.Nationality,
		PlaceOfIssue:      d.PlaceOfIssue,
		PrimaryFlag:       d.Primary,
		Phone:             d.Phone,
		Email:             d.Email,
	}
	var err error
	if rec.DateOfBirth, err = parseDate(d.DateOfBirth); err != nil {
		return codec.DetailRecord{}, fmt.Errorf("date_of_birth: %w", err)
	}
	if rec.DateOfDeath, err = parseDate(d.DateOfDeath); err != nil {
		return codec.DetailRecord{}, fmt.Errorf("date_of_death: %w", err)
	}
	if rec.AddressChangeDate, err = parseDate(d.AddressChangeDate); err != nil {
		return codec.DetailRecord{}, fmt.Errorf("address_change_date: %w", err)
	}
	return rec, nil
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(codec.DateLayout, s)
}
