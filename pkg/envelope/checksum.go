package envelope

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"slices"
	"strings"
)

// CheckCode computes the CheckCode checksum of payload for variant.
func CheckCode(key, iv []byte, v Variant, p Payload) (string, error) {
	return checksum("check_code", checkCodeLayouts, key, iv, v, p)
}

// CheckValue computes the CheckValue checksum of payload for variant.
func CheckValue(key, iv []byte, v Variant, p Payload) (string, error) {
	return checksum("check_value", checkValueLayouts, key, iv, v, p)
}

// TradeSha hashes an already encrypted TradeInfo string.
func TradeSha(key, iv []byte, p Payload) (string, error) {
	raw, ok := p.(Raw)
	if !ok {
		return "", newError("trade_sha", ErrTypeMismatch, fmt.Errorf("want opaque payload, got %T", p))
	}
	return digest("HashKey=" + string(key) + "&" + string(raw) + "&HashIV=" + string(iv)), nil
}

// Equal compares two hex checksums in constant time, ignoring case.
func Equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(strings.ToUpper(a)), []byte(strings.ToUpper(b))) == 1
}

func checksum(op string, layouts map[Variant]layout, key, iv []byte, v Variant, p Payload) (string, error) {
	l, ok := layouts[v]
	if !ok {
		return "", newError(op, ErrInvalidVariant, fmt.Errorf("variant %q is not defined for %s", v, op))
	}
	s, err := canonical(l, string(key), string(iv), p)
	if err != nil {
		return "", newError(op, ErrTypeMismatch, err)
	}
	return digest(s), nil
}

// canonical builds the string that gets hashed for a checksum.
func canonical(l layout, key, iv string, p Payload) (string, error) {
	value := func(t term) string {
		if t.secret == hashKey {
			return key
		}
		return iv
	}

	var s string
	switch payload := p.(type) {
	case Raw:
		if !l.opaque {
			return "", fmt.Errorf("variant needs a params payload, got opaque text")
		}
		s = l.lead.name + "=" + value(l.lead) + "&" + string(payload) + "&" + l.trail.name + "=" + value(l.trail)
	case Params:
		if l.opaque {
			return "", fmt.Errorf("variant needs an opaque payload, got params")
		}
		sorted := slices.Clone(payload)
		slices.SortStableFunc(sorted, func(a, b Param) int {
			return strings.Compare(a.Name, b.Name)
		})
		seq := make(Params, 0, len(sorted)+2)
		seq = append(seq, Param{Name: l.lead.name, Value: value(l.lead)})
		seq = append(seq, sorted...)
		seq = append(seq, Param{Name: l.trail.name, Value: value(l.trail)})
		s = seq.Encode()
	default:
		return "", fmt.Errorf("unsupported payload %T", p)
	}
	return strings.ReplaceAll(s, "%20", "+"), nil
}

func digest(s string) string {
	sum := sha256.Sum256([]byte(s))
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}
