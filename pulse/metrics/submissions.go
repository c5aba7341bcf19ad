package metrics

import (
	"bytes"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/teranos/cadence/errors"
)

type submissionFile struct {
	Submissions []*Submission `yaml:"submissions"`
}

// ParseSubmissions decodes an ad-hoc submission list:
//
//	submissions:
//	  - id: sub-1
//	    workspace_id: ws-1
//	    form_id: form-1
//	    submitted_at: 2025-03-10T14:05:00Z
func ParseSubmissions(data []byte) ([]*Submission, error) {
	var f submissionFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "decode submissions")
	}
	for i, s := range f.Submissions {
		if s == nil {
			continue
		}
		if s.SubmittedAt.IsZero() {
			return nil, errors.Newf("submission %d (%q): submitted_at is required", i, s.ID)
		}
		s.SubmittedAt = s.SubmittedAt.UTC()
	}
	return f.Submissions, nil
}

// LoadSubmissions reads and decodes a submission file.
func LoadSubmissions(path string) ([]*Submission, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read submissions %s", path)
	}
	subs, err := ParseSubmissions(data)
	if err != nil {
		return nil, errors.Wrapf(err, "parse %s", path)
	}
	return subs, nil
}

// Within keeps submissions with SubmittedAt in [from, to).
func Within(subs []*Submission, from, to time.Time) []*Submission {
	var out []*Submission
	for _, s := range subs {
		if s == nil {
			continue
		}
		if !s.SubmittedAt.Before(from) && s.SubmittedAt.Before(to) {
			out = append(out, s)
		}
	}
	return out
}
