package docid

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Prefix is the document-type discriminator embedded in every identifier.
type Prefix string

const (
	PrefixBusinessRequest Prefix = "BR"
	PrefixEnhancement     Prefix = "EN"
	PrefixDefectFix       Prefix = "DF"
	PrefixGeneric         Prefix = "DOC"
)

// ID is a typed, sequential, human-readable document identifier of the form
// {Prefix}-{NNNN}. Immutable once assigned.
type ID string

var idRe = regexp.MustCompile(`^([A-Z]+)-(\d{4,})$`)

func Format(prefix Prefix, sequence int) ID {
	return ID(fmt.Sprintf("%s-%04d", prefix, sequence))
}

func Parse(s string) (Prefix, int, error) {
	m := idRe.FindStringSubmatch(s)
	if m == nil {
		return "", 0, fmt.Errorf("malformed document id %q", s)
	}
	seq, err := strconv.Atoi(m[2])
	if err != nil {
		return "", 0, fmt.Errorf("malformed document id %q: %w", s, err)
	}
	return Prefix(m[1]), seq, nil
}

func (id ID) Prefix() Prefix {
	p, _, err := Parse(string(id))
	if err != nil {
		return PrefixGeneric
	}
	return p
}

// WorkflowID derives the workflow correlation key used by the event log.
func (id ID) WorkflowID() string {
	return "WF-" + string(id)
}

func (id ID) String() string {
	return string(id)
}

// Classify maps a free-text change-type hint to a prefix. Exact labels win;
// otherwise keywords in the hint decide; anything unrecognized is generic.
func Classify(typeHint string) Prefix {
	switch strings.TrimSpace(strings.ToLower(typeHint)) {
	case "business request":
		return PrefixBusinessRequest
	case "enhancement":
		return PrefixEnhancement
	case "defect fix":
		return PrefixDefectFix
	}

	return classifyKeywords(typeHint)
}

// ClassifyDescription maps a free-text change description to a prefix. The
// same keywords decide, but a description that matches none of them is filed
// as a business request rather than generic.
func ClassifyDescription(text string) Prefix {
	if p := classifyKeywords(text); p != PrefixGeneric {
		return p
	}
	return PrefixBusinessRequest
}

func classifyKeywords(text string) Prefix {
	t := strings.ToLower(text)
	switch {
	case strings.Contains(t, "enhancement"), strings.Contains(t, "improve"):
		return PrefixEnhancement
	case strings.Contains(t, "fix"), strings.Contains(t, "defect"), strings.Contains(t, "bug"):
		return PrefixDefectFix
	case strings.Contains(t, "business"), strings.Contains(t, "request"):
		return PrefixBusinessRequest
	default:
		return PrefixGeneric
	}
}

// Registry is the store-backed view of already-assigned identifiers.
type Registry interface {
	MaxSequence(ctx context.Context, prefix Prefix) (int, error)
	Exists(ctx context.Context, id ID) (bool, error)
}
