package rdservice

import (
	"encoding/xml"
	"fmt"
	"sort"
	"strings"
)

// Capture data formats accepted by RD services
const (
	FormatXML      = 0
	FormatProtobuf = 1
)

// Environment codes for PidOptions env
const (
	EnvPreProduction = "PP"
	EnvProduction    = "P"
	EnvStaging       = "S"
)

// PidOptions describes a capture request. It renders to the standard
// <PidOptions> payload sent with the capture verb.
//
// Example usage:
//
//	payload, err := NewPidOptions().
//	    SetFingerCount(1).
//	    SetTimeout(10000).
//	    SetEnv(EnvProduction).
//	    Payload()
type PidOptions struct {
	FCount  int               // Number of fingers to capture
	FType   int               // Finger data type (0 FMR, 1 FIR, 2 both)
	ICount  int               // Iris count
	PCount  int               // Face count
	Format  int               // FormatXML or FormatProtobuf
	PidVer  string            // PID block version
	Timeout int               // Capture timeout in milliseconds (daemon side)
	Env     string            // Target environment
	WADH    string            // Optional wadh hash
	Posh    string            // Finger position hint
	Custom  map[string]string // Extra <CustOpts> params
	custKey []string          // Insertion order of Custom
}

// NewPidOptions returns options for a single-finger capture
func NewPidOptions() *PidOptions {
	return &PidOptions{
		FCount:  1,
		FType:   2,
		Format:  FormatXML,
		PidVer:  "2.0",
		Timeout: 10000,
		Env:     EnvProduction,
		Posh:    "UNKNOWN",
	}
}

// SetFingerCount sets the number of fingers
func (o *PidOptions) SetFingerCount(n int) *PidOptions {
	o.FCount = n
	return o
}

// SetFingerType sets the finger data type
func (o *PidOptions) SetFingerType(t int) *PidOptions {
	o.FType = t
	return o
}

// SetFormat sets the PID data format
func (o *PidOptions) SetFormat(format int) *PidOptions {
	o.Format = format
	return o
}

// SetTimeout sets the daemon-side capture timeout in milliseconds
func (o *PidOptions) SetTimeout(ms int) *PidOptions {
	o.Timeout = ms
	return o
}

// SetEnv sets the target environment
func (o *PidOptions) SetEnv(env string) *PidOptions {
	o.Env = env
	return o
}

// SetWADH sets the wadh value
func (o *PidOptions) SetWADH(wadh string) *PidOptions {
	o.WADH = wadh
	return o
}

// SetCustom adds a <CustOpts> param. Later calls for the same name replace the value.
func (o *PidOptions) SetCustom(name, value string) *PidOptions {
	if o.Custom == nil {
		o.Custom = make(map[string]string)
	}
	if _, exists := o.Custom[name]; !exists {
		o.custKey = append(o.custKey, name)
	}
	o.Custom[name] = value
	return o
}

// customOrder returns Custom keys in insertion order; keys set directly on
// the map follow in sorted order.
func (o *PidOptions) customOrder() []string {
	seen := make(map[string]bool, len(o.custKey))
	order := make([]string, 0, len(o.Custom))
	for _, name := range o.custKey {
		if _, ok := o.Custom[name]; ok && !seen[name] {
			seen[name] = true
			order = append(order, name)
		}
	}
	var rest []string
	for name := range o.Custom {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	return append(order, rest...)
}

// Validate checks the options before they are sent to the daemon
func (o *PidOptions) Validate() error {
	var problems []string

	if o.FCount < 0 || o.FCount > 10 {
		problems = append(problems, fmt.Sprintf("finger count must be 0-10, got %d", o.FCount))
	}
	if o.FType < 0 || o.FType > 2 {
		problems = append(problems, fmt.Sprintf("finger type must be 0-2, got %d", o.FType))
	}
	if o.ICount < 0 || o.PCount < 0 {
		problems = append(problems, "iris and face counts must not be negative")
	}
	if o.FCount+o.ICount+o.PCount == 0 {
		problems = append(problems, "at least one biometric must be requested")
	}
	if o.Format != FormatXML && o.Format != FormatProtobuf {
		problems = append(problems, fmt.Sprintf("format must be 0 or 1, got %d", o.Format))
	}
	if o.Timeout <= 0 {
		problems = append(problems, "timeout must be positive")
	}
	switch o.Env {
	case EnvPreProduction, EnvProduction, EnvStaging:
	default:
		problems = append(problems, fmt.Sprintf("unknown env %q", o.Env))
	}

	if len(problems) > 0 {
		return NewPolicyError("invalid capture options: " + strings.Join(problems, "; "))
	}
	return nil
}

type pidOptionsXML struct {
	XMLName  xml.Name     `xml:"PidOptions"`
	Ver      string       `xml:"ver,attr"`
	Opts     optsXML      `xml:"Opts"`
	CustOpts *custOptsXML `xml:"CustOpts,omitempty"`
}

type optsXML struct {
	FCount  int    `xml:"fCount,attr"`
	FType   int    `xml:"fType,attr"`
	ICount  int    `xml:"iCount,attr"`
	PCount  int    `xml:"pCount,attr"`
	Format  int    `xml:"format,attr"`
	PidVer  string `xml:"pidVer,attr"`
	Timeout int    `xml:"timeout,attr"`
	Env     string `xml:"env,attr"`
	WADH    string `xml:"wadh,attr,omitempty"`
	Posh    string `xml:"posh,attr,omitempty"`
}

type custOptsXML struct {
	Params []paramXML `xml:"Param"`
}

type paramXML struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

// Payload validates the options and renders the XML capture payload
func (o *PidOptions) Payload() (string, error) {
	if err := o.Validate(); err != nil {
		return "", err
	}

	doc := pidOptionsXML{
		Ver: "1.0",
		Opts: optsXML{
			FCount:  o.FCount,
			FType:   o.FType,
			ICount:  o.ICount,
			PCount:  o.PCount,
			Format:  o.Format,
			PidVer:  o.PidVer,
			Timeout: o.Timeout,
			Env:     o.Env,
			WADH:    o.WADH,
			Posh:    o.Posh,
		},
	}
	if len(o.Custom) > 0 {
		cust := &custOptsXML{}
		for _, name := range o.customOrder() {
			cust.Params = append(cust.Params, paramXML{Name: name, Value: o.Custom[name]})
		}
		doc.CustOpts = cust
	}

	data, err := xml.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("failed to render PidOptions: %w", err)
	}
	return xml.Header + string(data), nil
}

// CaptureStatus summarizes a <PidData> capture envelope. The signed block
// (Skey, Hmac, Data) is only checked for presence; it is never decrypted or
// verified here.
type CaptureStatus struct {
	Present bool   `json:"present"`
	ErrCode string `json:"errCode,omitempty"`
	ErrInfo string `json:"errInfo,omitempty"`
	FCount  string `json:"fCount,omitempty"`
	QScore  string `json:"qScore,omitempty"`
	HasSkey bool   `json:"hasSkey"`
	HasHmac bool   `json:"hasHmac"`
	HasData bool   `json:"hasData"`
}

// Succeeded reports whether the daemon flagged the capture as successful
func (s *CaptureStatus) Succeeded() bool {
	return s != nil && s.Present && s.ErrCode == "0"
}

type pidDataXML struct {
	XMLName xml.Name `xml:"PidData"`
	Resp    struct {
		ErrCode string `xml:"errCode,attr"`
		ErrInfo string `xml:"errInfo,attr"`
		FCount  string `xml:"fCount,attr"`
		QScore  string `xml:"qScore,attr"`
	} `xml:"Resp"`
	Skey *struct{} `xml:"Skey"`
	Hmac *string   `xml:"Hmac"`
	Data *struct{} `xml:"Data"`
}

// ParseCaptureStatus reads the <Resp> element of a <PidData> envelope. A body
// that is not a PidData envelope yields Present=false without error.
func ParseCaptureStatus(body string) (*CaptureStatus, error) {
	idx := strings.Index(body, "<PidData")
	if idx < 0 {
		return &CaptureStatus{}, nil
	}

	var doc pidDataXML
	if err := xml.Unmarshal([]byte(body[idx:]), &doc); err != nil {
		return nil, NewParseError("malformed PidData envelope", err)
	}

	return &CaptureStatus{
		Present: true,
		ErrCode: doc.Resp.ErrCode,
		ErrInfo: doc.Resp.ErrInfo,
		FCount:  doc.Resp.FCount,
		QScore:  doc.Resp.QScore,
		HasSkey: doc.Skey != nil,
		HasHmac: doc.Hmac != nil,
		HasData: doc.Data != nil,
	}, nil
}
