package vcr

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v2"
)

// fixtureEntry is the on-disk form of an Interaction.
type fixtureEntry struct {
	ID         string           `yaml:"id,omitempty"`
	RecordedAt time.Time        `yaml:"recorded_at"`
	Request    *fixtureRequest  `yaml:"request"`
	Response   *fixtureResponse `yaml:"response"`
}

type fixtureRequest struct {
	Method  string              `yaml:"method"`
	URI     string              `yaml:"uri"`
	Headers map[string][]string `yaml:"headers,omitempty"`
	Body    string              `yaml:"body,omitempty"`
}

type fixtureResponse struct {
	StatusCode int                 `yaml:"status_code"`
	Status     string              `yaml:"status,omitempty"`
	Headers    map[string][]string `yaml:"headers,omitempty"`
	Body       string              `yaml:"body,omitempty"`
}

func toFixture(i Interaction) fixtureEntry {
	e := fixtureEntry{ID: i.ID, RecordedAt: i.RecordedAt.UTC().Round(time.Second)}
	if i.Request != nil {
		e.Request = &fixtureRequest{
			Method:  string(i.Request.Method),
			URI:     i.Request.URI,
			Headers: i.Request.Header,
			Body:    string(i.Request.Body),
		}
	}
	if i.Response != nil {
		e.Response = &fixtureResponse{
			StatusCode: i.Response.StatusCode,
			Status:     i.Response.Status,
			Headers:    i.Response.Header,
			Body:       string(i.Response.Body),
		}
	}
	return e
}

func fromFixture(e fixtureEntry) (Interaction, error) {
	if e.Request == nil || e.Response == nil {
		return Interaction{}, errors.New("entry must have a request and a response")
	}
	var body []byte
	if e.Request.Body != "" {
		body = []byte(e.Request.Body)
	}
	req, err := NewRequest(e.Request.Method, e.Request.URI, e.Request.Headers, body)
	if err != nil {
		return Interaction{}, err
	}
	i := Interaction{
		ID:         e.ID,
		Request:    req,
		RecordedAt: e.RecordedAt,
		Response: &Response{
			StatusCode: e.Response.StatusCode,
			Status:     e.Response.Status,
			Header:     NewHeader(e.Response.Headers),
			Body:       []byte(e.Response.Body),
		},
	}
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	return i, nil
}

// DecodeFixture reads YAML documents, one interaction each, from r.
func DecodeFixture(r io.Reader) ([]Interaction, error) {
	var out []Interaction
	dec := yaml.NewDecoder(r)
	for n := 0; ; n++ {
		var e fixtureEntry
		err := dec.Decode(&e)
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("decode interaction %d: %w", n, err)
		}
		if e.Request == nil && e.Response == nil {
			// Empty document.
			continue
		}
		i, err := fromFixture(e)
		if err != nil {
			return nil, fmt.Errorf("decode interaction %d: %w", n, err)
		}
		out = append(out, i)
	}
}

// LoadFixture reads the interactions stored in filename. A missing file is
// reported with an error matching fs.ErrNotExist.
func LoadFixture(filename string) ([]Interaction, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	interactions, err := DecodeFixture(f)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", filename, err)
	}
	return interactions, nil
}

// FixtureWriter appends interactions to a fixture file.
//
// Each interaction is written as its own YAML document, preceded by a
// comment with its sequence number and timestamp. Any subdirectories are
// created if needed.
type FixtureWriter struct {
	Filename string

	mu sync.Mutex
	// index is the number of interactions in the file. The file is
	// truncated on the first write when it is zero.
	index int
}

// NewFixtureWriter returns a writer for filename. existing is the number of
// interactions already in the file that should be kept; pass 0 to overwrite
// the file on the first write.
func NewFixtureWriter(filename string, existing int) *FixtureWriter {
	return &FixtureWriter{Filename: filename, index: existing}
}

// Write appends i to the file.
func (w *FixtureWriter) Write(i Interaction) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(w.Filename), 0750); err != nil {
		return err
	}

	var filemode int
	if w.index == 0 {
		filemode = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	} else {
		filemode = os.O_WRONLY | os.O_CREATE | os.O_APPEND
	}
	f, err := os.OpenFile(w.Filename, filemode, 0644)
	if err != nil {
		return err
	}

	b, err := yaml.Marshal(toFixture(i))
	if err != nil {
		f.Close()
		return err
	}

	if w.index > 0 {
		fmt.Fprintf(f, "\n---\n\n")
	}
	fmt.Fprintf(f, "# request %d\n", w.index)
	fmt.Fprintf(f, "# timestamp %s\n", i.RecordedAt.UTC().Round(time.Second))
	if _, err := f.Write(b); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	w.index++
	return nil
}

// WriteFixture overwrites filename with interactions.
func WriteFixture(filename string, interactions []Interaction) error {
	w := NewFixtureWriter(filename, 0)
	for _, i := range interactions {
		if err := w.Write(i); err != nil {
			return err
		}
	}
	return nil
}
