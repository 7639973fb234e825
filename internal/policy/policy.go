// Package policy implements the S3 access-policy document model: a typed
// representation of a Version/Id/Statement policy with parse and serialize
// round-tripping. Statement contents are carried through as-is; no semantic
// validation of actions, resources or principals is performed.
package policy

import (
	"encoding/json"
	"os"
	"reflect"

	"github.com/getlantern/deepcopy"

	"github.com/objstore-policy-mgmt/internal/errors"
)

// Version is the standard S3 policy-language version string
const Version = "2008-10-17"

// serializeIndent is the indentation used for pretty-printed output
const serializeIndent = "    "

// requiredKeys are the top-level keys every policy document must carry
var requiredKeys = []string{"Version", "Id", "Statement"}

// Effect represents Allow or Deny
type Effect string

const (
	EffectAllow Effect = "Allow"
	EffectDeny  Effect = "Deny"
)

// Principal identifies the users and groups a statement applies to
type Principal struct {
	User  []string `json:"user"`
	Group []string `json:"group"`
}

// Statement represents a single policy statement. Statement ids are not
// required to be unique within a policy; duplicates are preserved in order.
type Statement struct {
	Sid       string    `json:"Sid"`
	Effect    Effect    `json:"Effect"`
	Principal Principal `json:"Principal"`
	Action    []string  `json:"Action"`
	Resource  string    `json:"Resource"`
}

// Policy represents an S3 access-policy document. Field order matches the
// canonical serialization order: Version, Id, Statement.
type Policy struct {
	Version   string      `json:"Version"`
	Id        string      `json:"Id"`
	Statement []Statement `json:"Statement"`
}

// New creates an empty policy with the standard version string, an empty id
// and no statements.
func New() *Policy {
	return &Policy{
		Version:   Version,
		Statement: []Statement{},
	}
}

// FromMap constructs a policy from an already-decoded mapping. The three
// top-level keys must be present; statement contents are not validated
// further. The mapping is deep-copied so later mutation of the caller's map
// cannot affect the returned document.
func FromMap(m map[string]any) (*Policy, error) {
	for _, key := range requiredKeys {
		if _, ok := m[key]; !ok {
			return nil, errors.NewMissingKeyError(key)
		}
	}

	var p Policy
	if err := deepcopy.Copy(&p, m); err != nil {
		return nil, errors.NewParseError(err)
	}

	if p.Statement == nil {
		p.Statement = []Statement{}
	}

	return &p, nil
}

// ParseString constructs a policy from a JSON serialization
func ParseString(s string) (*Policy, error) {
	var m map[string]any
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil, errors.NewParseError(err)
	}

	return FromMap(m)
}

// ParseFile constructs a policy from a JSON policy file
func ParseFile(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewParseError(err)
	}

	return ParseString(string(data))
}

// Serialize renders the policy as pretty-printed JSON with stable key order
// (Version, Id, Statement). Serializing and reparsing yields an equal
// document.
func (p *Policy) Serialize() string {
	// Marshal of a fixed-field struct cannot fail
	data, _ := json.MarshalIndent(p, "", serializeIndent)
	return string(data)
}

func (p *Policy) String() string {
	return p.Serialize()
}

// Equal reports whether two policies are equal in all fields
func (p *Policy) Equal(other *Policy) bool {
	return reflect.DeepEqual(p, other)
}
