package rdservice

import (
	"encoding/xml"
	"errors"
	"io"
	"regexp"
	"strings"
)

// Element names are matched case-insensitively, like Param and its attributes.
var (
	// infoRegion matches the first <Info>...</Info> block, or a self-closing <Info/>
	infoRegion = regexp.MustCompile(`(?is)<Info(?:\s[^>]*)?(?:/>|>(.*?)</Info\s*>)`)

	// infoOpen matches any opening <Info> tag, closed or not
	infoOpen = regexp.MustCompile(`(?i)<Info(?:\s[^>]*)?/?>`)

	// serviceTag matches the opening <RDService ...> tag
	serviceTag = regexp.MustCompile(`(?is)<RDService(?:\s[^>]*)?/?>`)
)

// Param is one name/value pair from an info envelope
type Param struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Info is the parsed content of an RD service info envelope. Params keep
// the order in which they appear in the document.
type Info struct {
	Status      string  `json:"status,omitempty"` // RDService status attribute, e.g. READY
	Description string  `json:"info,omitempty"`   // RDService info attribute
	Params      []Param `json:"params"`
}

// Get returns the first value recorded for name
func (i *Info) Get(name string) (string, bool) {
	if i == nil {
		return "", false
	}
	for _, p := range i.Params {
		if p.Name == name {
			return p.Value, true
		}
	}
	return "", false
}

// Map returns the params as a map; the first occurrence of a name wins
func (i *Info) Map() map[string]string {
	out := make(map[string]string)
	if i == nil {
		return out
	}
	for _, p := range i.Params {
		if _, seen := out[p.Name]; !seen {
			out[p.Name] = p.Value
		}
	}
	return out
}

// Len returns the number of params
func (i *Info) Len() int {
	if i == nil {
		return 0
	}
	return len(i.Params)
}

// ParseInfo extracts the <Param name="..." value="..."/> pairs from the
// <Info> block of body. A body without an <Info> block is not an error: it
// yields an empty Info. Unknown elements are ignored. An <Info> block that
// never closes, or malformed XML inside it, yields a parse DeviceError.
func ParseInfo(body string) (*Info, error) {
	info := &Info{Params: []Param{}}
	parseServiceAttrs(body, info)

	match := infoRegion.FindStringSubmatch(body)
	if match == nil {
		if infoOpen.MatchString(body) {
			return nil, NewParseError("unterminated Info block", io.ErrUnexpectedEOF)
		}
		return info, nil
	}
	if strings.TrimSpace(match[1]) == "" {
		return info, nil
	}

	decoder := xml.NewDecoder(strings.NewReader("<Info>" + match[1] + "</Info>"))
	for {
		tok, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, NewParseError("malformed Info block", err)
		}

		start, ok := tok.(xml.StartElement)
		if !ok || !strings.EqualFold(start.Name.Local, "Param") {
			continue
		}

		var p Param
		for _, attr := range start.Attr {
			switch strings.ToLower(attr.Name.Local) {
			case "name":
				p.Name = attr.Value
			case "value":
				p.Value = attr.Value
			}
		}
		if p.Name != "" {
			info.Params = append(info.Params, p)
		}
	}

	return info, nil
}

// parseServiceAttrs copies the status/info attributes of the <RDService> tag.
// Attribute trouble is ignored; the tag is informational only.
func parseServiceAttrs(body string, info *Info) {
	tag := serviceTag.FindString(body)
	if tag == "" {
		return
	}
	if !strings.HasSuffix(tag, "/>") {
		tag = strings.TrimSuffix(tag, ">") + "/>"
	}

	var attrs struct {
		Status string `xml:"status,attr"`
		Info   string `xml:"info,attr"`
	}
	if err := xml.Unmarshal([]byte(tag), &attrs); err != nil {
		return
	}
	info.Status = attrs.Status
	info.Description = attrs.Info
}
