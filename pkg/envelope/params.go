package envelope

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cast"
)

// Payload is the trade data an operation runs over: either Params or Raw.
type Payload interface {
	serialize() string
}

// Raw is an opaque, already-serialised payload such as a hex ciphertext.
type Raw string

func (r Raw) serialize() string { return string(r) }

// Param is a single trade parameter.
type Param struct {
	Name  string
	Value string
}

// Params is an ordered set of trade parameters. Order is insertion order.
type Params []Param

func (p Params) serialize() string { return p.Encode() }

// NewParams builds Params from alternating name/value arguments.
// Values may be strings, numbers or booleans.
func NewParams(kv ...any) (Params, error) {
	if len(kv)%2 != 0 {
		return nil, fmt.Errorf("odd number of arguments: %d", len(kv))
	}
	p := make(Params, 0, len(kv)/2)
	for i := 0; i < len(kv); i += 2 {
		name, ok := kv[i].(string)
		if !ok {
			return nil, fmt.Errorf("param name at %d is %T, want string", i, kv[i])
		}
		if err := p.Set(name, kv[i+1]); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Set assigns value to name. An existing name keeps its position.
func (p *Params) Set(name string, value any) error {
	if n, ok := value.(json.Number); ok {
		value = n.String()
	}
	s, err := cast.ToStringE(value)
	if err != nil {
		return fmt.Errorf("param %q: %w", name, err)
	}
	for i := range *p {
		if (*p)[i].Name == name {
			(*p)[i].Value = s
			return nil
		}
	}
	*p = append(*p, Param{Name: name, Value: s})
	return nil
}

// Get returns the value for name.
func (p Params) Get(name string) (string, bool) {
	for _, kv := range p {
		if kv.Name == name {
			return kv.Value, true
		}
	}
	return "", false
}

// Encode renders the params as name=value pairs joined by '&', in order.
func (p Params) Encode() string {
	var b strings.Builder
	for i, kv := range p {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(formEscape(kv.Name))
		b.WriteByte('=')
		b.WriteString(formEscape(kv.Value))
	}
	return b.String()
}

// UnmarshalJSON decodes a JSON object while keeping its key order.
// JSON null leaves p unchanged.
func (p *Params) UnmarshalJSON(data []byte) error {
	if string(bytes.TrimSpace(data)) == "null" {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("params: expected JSON object")
	}

	out := Params{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name := tok.(string)

		var value any
		if err := dec.Decode(&value); err != nil {
			return err
		}
		switch value.(type) {
		case map[string]any, []any:
			return fmt.Errorf("params: %q must be a scalar", name)
		}
		if err := out.Set(name, value); err != nil {
			return err
		}
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*p = out
	return nil
}

// MarshalJSON encodes the params as a JSON object in order.
func (p Params) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('{')
	for i, kv := range p {
		if i > 0 {
			b.WriteByte(',')
		}
		name, err := json.Marshal(kv.Name)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(kv.Value)
		if err != nil {
			return nil, err
		}
		b.Write(name)
		b.WriteByte(':')
		b.Write(value)
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

// ParseParams parses a name=value&... string, such as decrypted TradeInfo,
// back into ordered Params. A repeated name keeps its first position and
// its last value, as Set does.
func ParseParams(s string) (Params, error) {
	p := Params{}
	if s == "" {
		return p, nil
	}
	for _, pair := range strings.Split(s, "&") {
		if pair == "" {
			continue
		}
		name, value, _ := strings.Cut(pair, "=")
		n, err := url.QueryUnescape(name)
		if err != nil {
			return nil, newError("parse", ErrDecode, err)
		}
		v, err := url.QueryUnescape(value)
		if err != nil {
			return nil, newError("parse", ErrDecode, err)
		}
		if err := p.Set(n, v); err != nil {
			return nil, newError("parse", ErrDecode, err)
		}
	}
	return p, nil
}

// formEscaper turns url.QueryEscape output into the gateway's form encoding,
// which leaves '*' as is and escapes '~'.
var formEscaper = strings.NewReplacer("~", "%7E", "%2A", "*")

// formEscape matches the gateway's form encoder: space becomes '+', only
// alphanumerics and "*-._" are left as is.
func formEscape(s string) string {
	return formEscaper.Replace(url.QueryEscape(s))
}
