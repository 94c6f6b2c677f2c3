package mtrace

import (
	"bytes"
	"encoding/xml"
	"io"
	"net/http"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/htmlindex"
)

// Certificate is the merged result of both lookup stages for one number.
type Certificate struct {
	TraceNo string        `json:"trace_no"`
	Issues  []Issue       `json:"issues"`
	Grades  []GradeDetail `json:"grades,omitempty"`
	// PendingNotice is set when issue data resolved but grade detail did
	// not (empty result or detail-stage failure). Non-fatal by contract.
	PendingNotice string `json:"pending_notice,omitempty"`
}

// Issue is one certificate-issue entry from the first lookup stage.
type Issue struct {
	IssueNo      string `json:"issue_no"`
	IssueDate    string `json:"issue_date"`
	FacilityName string `json:"facility_name"`
	Sex          string `json:"sex"`
	JudgeDate    string `json:"judge_date"`
}

// GradeDetail is one carcass-grading row from the second lookup stage.
// Every field is optional; the upstream detail service omits fields freely,
// and an empty string means "not provided".
type GradeDetail struct {
	Breed           string `json:"breed,omitempty"`
	CarcassWeightKg string `json:"carcass_weight_kg,omitempty"`
	QualityGrade    string `json:"quality_grade,omitempty"`
	MarblingScore   string `json:"marbling_score,omitempty"`
	YieldGrade      string `json:"yield_grade,omitempty"`
	BackfatMM       string `json:"backfat_mm,omitempty"`
}

// respHeader is the common result header on every service response.
type respHeader struct {
	ResultCode string `xml:"resultCode"`
	ResultMsg  string `xml:"resultMsg"`
}

// Service result codes. "03" is the documented no-data code.
const (
	resultCodeOK     = "00"
	resultCodeNoData = "03"
)

type issueResponse struct {
	XMLName xml.Name    `xml:"response"`
	Header  respHeader  `xml:"header"`
	Items   []issueItem `xml:"body>items>item"`
}

type issueItem struct {
	IssueNo      string `xml:"issueNo"`
	IssueDate    string `xml:"issueDt"`
	FacilityName string `xml:"butcheryPlaceNm"`
	Sex          string `xml:"sexNm"`
	JudgeDate    string `xml:"judgeDt"`
}

type gradeResponse struct {
	XMLName xml.Name    `xml:"response"`
	Header  respHeader  `xml:"header"`
	Items   []gradeItem `xml:"body>items>item"`
}

type gradeItem struct {
	Breed         string `xml:"breedNm"`
	CarcassWeight string `xml:"weight"`
	QualityGrade  string `xml:"qgradeNm"`
	Marbling      string `xml:"insfat"`
	YieldGrade    string `xml:"wgradeNm"`
	Backfat       string `xml:"backfat"`
}

// checkHeader maps a non-OK result header to an error. The no-data code is
// surfaced as ErrNotFound so callers can distinguish it from service faults.
func checkHeader(h respHeader) error {
	switch h.ResultCode {
	case resultCodeOK, "":
		return nil
	case resultCodeNoData:
		return eris.Wrapf(ErrNotFound, "service: %s", h.ResultMsg)
	default:
		return eris.Errorf("mtrace: service error %s: %s", h.ResultCode, h.ResultMsg)
	}
}

// decodeXML parses a service payload, honoring the declared charset. The
// service still emits EUC-KR for some endpoints.
func decodeXML(body []byte, out any) error {
	decoder := xml.NewDecoder(bytes.NewReader(body))
	decoder.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
		enc, err := htmlindex.Get(charset)
		if err != nil {
			return nil, eris.Wrapf(err, "mtrace: unsupported charset %q", charset)
		}
		return enc.NewDecoder().Reader(input), nil
	}
	return decoder.Decode(out)
}

func readBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}
