package api

import (
	"bytes"
	"encoding/json"

	"github.com/MikeSquared-Agency/pgvector-embed/internal/config"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 10 << 20

// Defaults fill in fields a request leaves out.
type Defaults struct {
	Model     string
	Table     string
	Dimension string
	Limit     int
	DB        config.VectorDB
}

// Dimension accepts a JSON number or string. Strings are kept verbatim and
// parsed leniently by the pipeline.
type Dimension string

// UnmarshalJSON implements json.Unmarshaler.
func (d *Dimension) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*d = Dimension(s)
		return nil
	}
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*d = Dimension(n.String())
	return nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
