// Package identity defines the signed-in user record shared by the session
// store, the login gateway and the role-based record filter.
package identity

import (
	"bytes"
	"encoding/json"
	"math/big"
	"strconv"
	"strings"

	"github.com/danieldean2000/oscorm-dashboard/errors"
	"google.golang.org/grpc/codes"
)

var (
	// ErrMalformed is returned by Decode for data that is not a well formed
	// identity.
	ErrMalformed = errors.NewC("identity: malformed identity", codes.InvalidArgument)

	// ErrIncomplete is returned when an identity is missing required fields.
	ErrIncomplete = errors.NewC("identity: incomplete identity", codes.InvalidArgument)
)

// Role is the authorization level of an identity.
type Role string

const (
	RoleAdmin        Role = "admin"
	RoleStandardUser Role = "blog_user"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleStandardUser
}

// IsAdmin reports whether r grants access to every record.
func (r Role) IsAdmin() bool {
	return r == RoleAdmin
}

func (r Role) String() string {
	return string(r)
}

// Label is the human readable role name shown in the dashboard header.
func (r Role) Label() string {
	switch r {
	case RoleAdmin:
		return "Admin"
	case RoleStandardUser:
		return "Blog User"
	default:
		return string(r)
	}
}

// Identity is the authenticated user. Its JSON form is what gets persisted
// under the session key.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  Role   `json:"role"`
}

// IsZero reports whether i is the empty identity.
func (i Identity) IsZero() bool {
	return i == Identity{}
}

// Validate checks that i is fully populated. Name may be empty.
func (i Identity) Validate() error {
	switch {
	case i.ID == "":
		return errors.Mark(ErrIncomplete, 0).Append("missing id")
	case i.Email == "":
		return errors.Mark(ErrIncomplete, 0).Append("missing email")
	case !i.Role.Valid():
		return errors.Mark(ErrIncomplete, 0).Append("unknown role " + strconv.Quote(string(i.Role)))
	}
	return nil
}

// Encode returns the canonical JSON form of i.
func (i Identity) Encode() ([]byte, error) {
	b, err := json.Marshal(i)
	if err != nil {
		return nil, errors.Wrap(err, 0)
	}
	return b, nil
}

// Decode parses untrusted JSON into an Identity. The input must be an object
// with a string or integral number id, string email and a known role. The name
// may be a string, null or absent; the latter two decode as "". Numeric ids
// are converted to their exact decimal string form, so 2, 2.0 and 2e0 all
// become "2". Unknown keys are ignored.
func Decode(data []byte) (Identity, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil || fields == nil {
		return Identity{}, malformed("not an object")
	}

	var id Identity
	var err error
	if id.ID, err = decodeID(fields["id"]); err != nil {
		return Identity{}, err
	}
	if id.Email, err = decodeString(fields, "email", false); err != nil {
		return Identity{}, err
	}
	if id.Name, err = decodeOptionalString(fields, "name"); err != nil {
		return Identity{}, err
	}
	role, err := decodeString(fields, "role", false)
	if err != nil {
		return Identity{}, err
	}
	id.Role = Role(role)
	if !id.Role.Valid() {
		return Identity{}, malformed("unknown role " + strconv.Quote(role))
	}
	return id, nil
}

func decodeID(raw json.RawMessage) (string, error) {
	if len(raw) == 0 {
		return "", malformed("missing id")
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if s == "" {
			return "", malformed("empty id")
		}
		return s, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var n json.Number
	if err := dec.Decode(&n); err != nil {
		return "", malformed("id must be a string or number")
	}
	if s, ok := integralDecimal(n); ok {
		return s, nil
	}
	return "", malformed("id must be an integer")
}

// Exponents beyond this are rejected rather than expanded.
const maxIDExponent = 64

// integralDecimal returns the plain decimal form of n if n is an integer of
// any size.
func integralDecimal(n json.Number) (string, bool) {
	s := n.String()
	if i := strings.IndexAny(s, "eE"); i >= 0 {
		exp, err := strconv.Atoi(s[i+1:])
		if err != nil || exp > maxIDExponent || exp < -maxIDExponent {
			return "", false
		}
	}
	r, ok := new(big.Rat).SetString(s)
	if !ok || !r.IsInt() {
		return "", false
	}
	return r.Num().String(), true
}

func decodeString(fields map[string]json.RawMessage, key string, allowEmpty bool) (string, error) {
	raw, ok := fields[key]
	if !ok {
		return "", malformed("missing " + key)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return "", malformed(key + " must be a string")
	}
	if s == "" && !allowEmpty {
		return "", malformed("empty " + key)
	}
	return s, nil
}

func decodeOptionalString(fields map[string]json.RawMessage, key string) (string, error) {
	raw, ok := fields[key]
	if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return "", nil
	}
	return decodeString(fields, key, true)
}

func malformed(detail string) error {
	return errors.Mark(ErrMalformed, 1).Append(detail)
}
