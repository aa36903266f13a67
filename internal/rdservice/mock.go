package rdservice

import (
	"encoding/xml"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Fixed identity of the synthetic device
const (
	MockDPID     = "MOCK.DP"
	MockRDSID    = "MOCK.WIN.001"
	MockRDSVer   = "1.0.0"
	MockModel    = "MOCK-FP100"
	MockFirmware = "0.0.1-mock"
	MockSerial   = "MOCK0000001"
)

// MockResponder produces synthetic RD service responses for degraded mode.
// It never substitutes itself for a real device; the caller decides when a
// mock response is acceptable.
type MockResponder interface {
	Info() *Response
	Capture() *Response
}

// StaticMock is the default MockResponder
type StaticMock struct {
	// Now defaults to time.Now
	Now func() time.Time
}

// NewMockResponder creates the default mock responder
func NewMockResponder() *StaticMock {
	return &StaticMock{Now: time.Now}
}

func (m *StaticMock) now() time.Time {
	if m.Now == nil {
		return time.Now()
	}
	return m.Now()
}

func mockHeader() http.Header {
	h := make(http.Header)
	h.Set("Content-Type", ContentTypeXML)
	h.Set("X-RDBridge-Mock", "true")
	return h
}

// Info returns a status 200 info envelope. Only the ts param changes between calls.
func (m *StaticMock) Info() *Response {
	params := []Param{
		{Name: "dpId", Value: MockDPID},
		{Name: "rdsId", Value: MockRDSID},
		{Name: "rdsVer", Value: MockRDSVer},
		{Name: "mi", Value: MockModel},
		{Name: "fwVer", Value: MockFirmware},
		{Name: "srno", Value: MockSerial},
		{Name: "ts", Value: m.now().UTC().Format(time.RFC3339Nano)},
	}

	var b strings.Builder
	b.WriteString(`<RDService status="READY" info="Mock RD Service"><Info>`)
	for _, p := range params {
		fmt.Fprintf(&b, `<Param name="%s" value="%s"/>`, escapeAttr(p.Name), escapeAttr(p.Value))
	}
	b.WriteString(`</Info></RDService>`)

	return &Response{
		StatusCode: http.StatusOK,
		Header:     mockHeader(),
		Body:       b.String(),
	}
}

// Capture returns a status 200 PidData envelope with an empty signed block
func (m *StaticMock) Capture() *Response {
	ts := m.now().UTC().Format("2006-01-02T15:04:05")
	body := fmt.Sprintf(`<PidData><Resp errCode="0" errInfo="Mock capture" fCount="1" fType="2" nmPoints="0" qScore="0"/>`+
		`<DeviceInfo dpId="%s" rdsId="%s" rdsVer="%s" mi="%s" mc="" dc="%s"/>`+
		`<Skey ci=""></Skey><Hmac></Hmac><Data type="X">%s</Data></PidData>`,
		MockDPID, MockRDSID, MockRDSVer, MockModel, MockSerial, escapeAttr(ts))

	return &Response{
		StatusCode: http.StatusOK,
		Header:     mockHeader(),
		Body:       body,
	}
}

func escapeAttr(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}
