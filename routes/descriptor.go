package routes

import "fmt"

// Descriptor identifies the remote imposter that mirrors a Table. Port is
// the address key used for both traffic routing and delete calls.
type Descriptor struct {
	Port     int    `json:"port" yaml:"port" validate:"gte=1,lte=65535"`
	Protocol string `json:"protocol" yaml:"protocol" validate:"required,oneof=http https tcp smtp"`
	Name     string `json:"name,omitempty" yaml:"name,omitempty"`
}

// NewDescriptor validates the address key and protocol.
func NewDescriptor(port int, protocol, name string) (Descriptor, error) {
	d := Descriptor{Port: port, Protocol: protocol, Name: name}
	if err := toValidationError(validate.Struct(d)); err != nil {
		return Descriptor{}, err
	}
	return d, nil
}

func (d Descriptor) String() string {
	if d.Name != "" {
		return fmt.Sprintf("%s:%d (%s)", d.Protocol, d.Port, d.Name)
	}
	return fmt.Sprintf("%s:%d", d.Protocol, d.Port)
}
