package auth

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/crispyspin/crispyspin-backend/pkg/address"
)

const (
	headerSuffix   = " wants you to sign in with your Ethereum account:"
	messageVersion = "1"

	fieldURI        = "URI"
	fieldVersion    = "Version"
	fieldChainID    = "Chain ID"
	fieldNonce      = "Nonce"
	fieldIssuedAt   = "Issued At"
	fieldExpiration = "Expiration Time"
)

var (
	requiredFields = []string{fieldURI, fieldVersion, fieldChainID, fieldNonce, fieldIssuedAt}
	knownFields    = map[string]bool{
		fieldURI:        true,
		fieldVersion:    true,
		fieldChainID:    true,
		fieldNonce:      true,
		fieldIssuedAt:   true,
		fieldExpiration: true,
	}

	// ErrMalformedMessage is returned for any login message that does not
	// follow the fixed field schema.
	ErrMalformedMessage = errors.New("malformed login message")
)

// LoginMessage is the human-readable statement a wallet signs to log in.
type LoginMessage struct {
	Domain         string
	Address        string
	Statement      string
	URI            string
	Version        string
	ChainID        int64
	Nonce          string
	IssuedAt       time.Time
	ExpirationTime *time.Time
}

// String renders the message exactly as the wallet is asked to sign it.
func (m LoginMessage) String() string {
	var b strings.Builder
	b.WriteString(m.Domain + headerSuffix + "\n")
	b.WriteString(m.Address + "\n\n")
	b.WriteString(m.Statement + "\n\n")
	fmt.Fprintf(&b, "%s: %s\n", fieldURI, m.URI)
	fmt.Fprintf(&b, "%s: %s\n", fieldVersion, m.Version)
	fmt.Fprintf(&b, "%s: %d\n", fieldChainID, m.ChainID)
	fmt.Fprintf(&b, "%s: %s\n", fieldNonce, m.Nonce)
	fmt.Fprintf(&b, "%s: %s", fieldIssuedAt, m.IssuedAt.UTC().Format(time.RFC3339))
	if m.ExpirationTime != nil {
		fmt.Fprintf(&b, "\n%s: %s", fieldExpiration, m.ExpirationTime.UTC().Format(time.RFC3339))
	}
	return b.String()
}

// ParseLoginMessage reads a signed login message. Missing, duplicated or
// unknown fields are rejected.
func ParseLoginMessage(raw string) (*LoginMessage, error) {
	lines := strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n")
	if len(lines) < 5+len(requiredFields) {
		return nil, malformed("message is truncated")
	}

	domain, ok := strings.CutSuffix(lines[0], headerSuffix)
	if !ok || strings.TrimSpace(domain) == "" || domain != strings.TrimSpace(domain) {
		return nil, malformed("invalid header line")
	}
	if _, err := address.Parse(lines[1]); err != nil {
		return nil, malformed("invalid address line")
	}
	if lines[2] != "" || lines[4] != "" {
		return nil, malformed("statement must be surrounded by blank lines")
	}
	if strings.TrimSpace(lines[3]) == "" {
		return nil, malformed("statement is required")
	}

	fields := make(map[string]string, len(knownFields))
	for _, line := range lines[5:] {
		key, value, found := strings.Cut(line, ": ")
		if !found {
			return nil, malformed(fmt.Sprintf("invalid field line %q", line))
		}
		if !knownFields[key] {
			return nil, malformed(fmt.Sprintf("unknown field %q", key))
		}
		if _, dup := fields[key]; dup {
			return nil, malformed(fmt.Sprintf("duplicate field %q", key))
		}
		if strings.TrimSpace(value) == "" {
			return nil, malformed(fmt.Sprintf("empty field %q", key))
		}
		fields[key] = value
	}
	for _, key := range requiredFields {
		if _, ok := fields[key]; !ok {
			return nil, malformed(fmt.Sprintf("missing field %q", key))
		}
	}

	chainID, err := strconv.ParseInt(fields[fieldChainID], 10, 64)
	if err != nil || chainID <= 0 {
		return nil, malformed("invalid chain id")
	}
	issuedAt, err := time.Parse(time.RFC3339, fields[fieldIssuedAt])
	if err != nil {
		return nil, malformed("invalid issued at")
	}

	msg := &LoginMessage{
		Domain:    domain,
		Address:   lines[1],
		Statement: lines[3],
		URI:       fields[fieldURI],
		Version:   fields[fieldVersion],
		ChainID:   chainID,
		Nonce:     fields[fieldNonce],
		IssuedAt:  issuedAt,
	}
	if raw, ok := fields[fieldExpiration]; ok {
		expiry, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, malformed("invalid expiration time")
		}
		msg.ExpirationTime = &expiry
	}
	return msg, nil
}

func malformed(reason string) error {
	return fmt.Errorf("%w: %s", ErrMalformedMessage, reason)
}
