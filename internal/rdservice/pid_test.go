package rdservice

import (
	"encoding/xml"
	"strings"
	"testing"
)

func TestPidOptions_DefaultPayload(t *testing.T) {
	payload, err := NewPidOptions().Payload()
	if err != nil {
		t.Fatalf("Payload() error = %v", err)
	}

	if !strings.HasPrefix(payload, xml.Header) {
		t.Error("payload should start with the XML header")
	}
	for _, want := range []string{
		`<PidOptions ver="1.0">`,
		`fCount="1"`,
		`fType="2"`,
		`format="0"`,
		`pidVer="2.0"`,
		`timeout="10000"`,
		`env="P"`,
		`posh="UNKNOWN"`,
	} {
		if !strings.Contains(payload, want) {
			t.Errorf("payload missing %s:\n%s", want, payload)
		}
	}
	if strings.Contains(payload, "wadh") {
		t.Error("empty wadh should be omitted")
	}
	if strings.Contains(payload, "CustOpts") {
		t.Error("CustOpts should be omitted when empty")
	}
}

func TestPidOptions_Builder(t *testing.T) {
	payload, err := NewPidOptions().
		SetFingerCount(2).
		SetFingerType(0).
		SetFormat(FormatProtobuf).
		SetTimeout(15000).
		SetEnv(EnvPreProduction).
		SetWADH("abc=").
		SetCustom("txnId", "42").
		SetCustom("app", "kiosk").
		SetCustom("txnId", "43").
		Payload()
	if err != nil {
		t.Fatalf("Payload() error = %v", err)
	}

	for _, want := range []string{`fCount="2"`, `fType="0"`, `format="1"`, `timeout="15000"`, `env="PP"`, `wadh="abc="`} {
		if !strings.Contains(payload, want) {
			t.Errorf("payload missing %s", want)
		}
	}

	txn := strings.Index(payload, `<Param name="txnId" value="43">`)
	app := strings.Index(payload, `<Param name="app" value="kiosk">`)
	if txn < 0 || app < 0 {
		t.Fatalf("custom params missing:\n%s", payload)
	}
	if txn > app {
		t.Error("custom params should keep insertion order")
	}
}

func TestPidOptions_CustomMapOrder(t *testing.T) {
	opts := NewPidOptions().SetCustom("z", "1")
	opts.Custom["b"] = "2"
	opts.Custom["a"] = "3"

	if got := opts.customOrder(); strings.Join(got, ",") != "z,a,b" {
		t.Errorf("customOrder() = %v, want [z a b]", got)
	}
}

func TestPidOptions_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*PidOptions)
	}{
		{"too many fingers", func(o *PidOptions) { o.FCount = 11 }},
		{"bad finger type", func(o *PidOptions) { o.FType = 3 }},
		{"nothing requested", func(o *PidOptions) { o.FCount = 0 }},
		{"bad format", func(o *PidOptions) { o.Format = 7 }},
		{"zero timeout", func(o *PidOptions) { o.Timeout = 0 }},
		{"unknown env", func(o *PidOptions) { o.Env = "DEV" }},
		{"negative iris", func(o *PidOptions) { o.ICount = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := NewPidOptions()
			tt.mutate(opts)

			err := opts.Validate()
			if err == nil {
				t.Fatal("Validate() should fail")
			}
			if !IsPolicyError(err) {
				t.Errorf("error = %T, want policy error", err)
			}
			if _, err := opts.Payload(); err == nil {
				t.Error("Payload() should refuse invalid options")
			}
		})
	}

	iris := NewPidOptions()
	iris.FCount = 0
	iris.ICount = 1
	if err := iris.Validate(); err != nil {
		t.Errorf("iris-only capture should be valid, got %v", err)
	}
}

func TestParseCaptureStatus(t *testing.T) {
	body := `<?xml version="1.0"?><PidData><Resp errCode="0" errInfo="Success" fCount="1" qScore="78"/>` +
		`<DeviceInfo dpId="X"/><Skey ci="20250101">abc</Skey><Hmac>def</Hmac><Data type="X">ghi</Data></PidData>`

	status, err := ParseCaptureStatus(body)
	if err != nil {
		t.Fatalf("ParseCaptureStatus() error = %v", err)
	}
	if !status.Succeeded() {
		t.Errorf("Succeeded() = false for %+v", status)
	}
	if status.QScore != "78" || status.FCount != "1" || status.ErrInfo != "Success" {
		t.Errorf("status = %+v", status)
	}
	if !status.HasSkey || !status.HasHmac || !status.HasData {
		t.Errorf("signed block should be detected: %+v", status)
	}
}

func TestParseCaptureStatus_DeviceError(t *testing.T) {
	status, err := ParseCaptureStatus(`<PidData><Resp errCode="700" errInfo="Capture timed out"/></PidData>`)
	if err != nil {
		t.Fatalf("ParseCaptureStatus() error = %v", err)
	}
	if status.Succeeded() {
		t.Error("non-zero errCode should not succeed")
	}
	if status.HasSkey || status.HasHmac || status.HasData {
		t.Errorf("absent signed block reported present: %+v", status)
	}
}

func TestParseCaptureStatus_NotPidData(t *testing.T) {
	status, err := ParseCaptureStatus("<html>not found</html>")
	if err != nil {
		t.Fatalf("ParseCaptureStatus() error = %v", err)
	}
	if status.Present {
		t.Error("Present should be false without a PidData envelope")
	}
}

func TestParseCaptureStatus_Malformed(t *testing.T) {
	_, err := ParseCaptureStatus(`<PidData><Resp errCode="0">`)
	if !IsParseError(err) {
		t.Errorf("error = %v, want parse error", err)
	}
}
