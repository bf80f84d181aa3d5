package hitchhike

import (
	"strings"

	"github.com/pkg/errors"
)

// Method is the way a drone traverses an edge
type Method uint16

const (
	METHOD_FLY = Method(iota + 1)
	METHOD_RIDE
)

func (iotaIdx Method) String() string {
	if iotaIdx < METHOD_FLY || iotaIdx > METHOD_RIDE {
		return "undefined"
	}
	return [...]string{"fly", "ride"}[iotaIdx-1]
}

// ParseMethod converts textual method ("fly" / "ride") into Method
func ParseMethod(s string) (Method, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "fly":
		return METHOD_FLY, nil
	case "ride":
		return METHOD_RIDE, nil
	}
	return 0, errors.Wrapf(ErrInvalidEdgeData, "unknown method '%s'", s)
}

// MarshalText implements encoding.TextMarshaler
func (iotaIdx Method) MarshalText() ([]byte, error) {
	return []byte(iotaIdx.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (iotaIdx *Method) UnmarshalText(text []byte) error {
	m, err := ParseMethod(string(text))
	if err != nil {
		return err
	}
	*iotaIdx = m
	return nil
}
