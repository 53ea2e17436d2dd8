package vcr

import (
	"fmt"
	"strings"

	"gopkg.in/dnaeon/go-vcr.v2/cassette"
)

// LoadCassette reads a go-vcr (v2) cassette and converts its interactions.
// name is the cassette path without the .yaml extension, as go-vcr expects.
func LoadCassette(name string) ([]Interaction, error) {
	c, err := cassette.Load(name)
	if err != nil {
		return nil, fmt.Errorf("load cassette %s: %w", name, err)
	}
	return FromCassette(c)
}

// FromCassette converts the interactions of a go-vcr cassette, in order.
func FromCassette(c *cassette.Cassette) ([]Interaction, error) {
	out := make([]Interaction, 0, len(c.Interactions))
	for n, ci := range c.Interactions {
		var body []byte
		if ci.Request.Body != "" {
			body = []byte(ci.Request.Body)
		}
		req, err := NewRequest(ci.Request.Method, ci.Request.URL, ci.Request.Headers, body)
		if err != nil {
			return nil, fmt.Errorf("cassette interaction %d: %w", n, err)
		}
		i := NewInteraction(req, &Response{
			StatusCode: ci.Response.Code,
			Status:     cassetteStatus(ci.Response.Status, ci.Response.Code),
			Header:     NewHeader(ci.Response.Headers),
			Body:       []byte(ci.Response.Body),
		})
		out = append(out, i)
	}
	return out, nil
}

// cassetteStatus turns go-vcr's "200 OK" into "OK".
func cassetteStatus(status string, code int) string {
	return strings.TrimSpace(strings.TrimPrefix(status, fmt.Sprintf("%d", code)))
}
