package telephony

import (
	"bytes"
	"encoding/xml"
	"errors"
	"strings"
)

// TwiML is built with encoding/xml; only the verbs this service answers with exist here.

type twimlResponse struct {
	XMLName xml.Name `xml:"Response"`
	Verbs   []any    `xml:",any"`
}

type twimlSay struct {
	XMLName xml.Name `xml:"Say"`
	Text    string   `xml:",chardata"`
}

// RenderSay renders a response that speaks each prompt in order.
func RenderSay(prompts ...string) (string, error) {
	var r twimlResponse
	for _, p := range prompts {
		if strings.TrimSpace(p) == "" {
			return "", errors.New("telephony: say text required")
		}
		r.Verbs = append(r.Verbs, twimlSay{Text: p})
	}
	if len(r.Verbs) == 0 {
		return "", errors.New("telephony: at least one prompt required")
	}
	return encodeTwiML(r)
}

// RenderEmpty renders <Response/>, which tells the provider to take no action.
func RenderEmpty() string {
	s, _ := encodeTwiML(twimlResponse{})
	return s
}

func encodeTwiML(r twimlResponse) (string, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	if err := enc.Encode(r); err != nil {
		return "", err
	}
	if err := enc.Flush(); err != nil {
		return "", err
	}
	return buf.String(), nil
}
