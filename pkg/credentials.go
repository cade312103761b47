package wificonnect

// Security is the set of security capabilities an access point advertises.
// Flags compose; use Class to pick the one that decides credentials.
type Security uint8

const (
	SecurityNone Security = 0
	SecurityWEP  Security = 1 << iota
	SecurityWPA
	SecurityWPA2
	SecurityEnterprise
)

func (s Security) Has(flag Security) bool {
	return s&flag != 0
}

// SecurityClass is the single classification derived from a Security set.
type SecurityClass int

const (
	ClassNone SecurityClass = iota
	ClassWEP
	ClassWPA
	ClassEnterprise
)

func (c SecurityClass) String() string {
	switch c {
	case ClassEnterprise:
		return "enterprise"
	case ClassWPA:
		return "wpa"
	case ClassWEP:
		return "wep"
	default:
		return "none"
	}
}

// Class picks in priority order: Enterprise, then WPA2/WPA, then WEP.
func (s Security) Class() SecurityClass {
	switch {
	case s.Has(SecurityEnterprise):
		return ClassEnterprise
	case s.Has(SecurityWPA2), s.Has(SecurityWPA):
		return ClassWPA
	case s.Has(SecurityWEP):
		return ClassWEP
	default:
		return ClassNone
	}
}

func (s Security) String() string {
	return s.Class().String()
}

/* Credentials are the secrets handed to the network service
 * for a connection attempt. Exactly one of the four variants
 * below; built per attempt and never persisted.
 */
type Credentials interface {
	isCredentials()
}

type NoCredentials struct{}

type WEPCredentials struct {
	Passphrase string
}

type WPACredentials struct {
	Passphrase string
}

type EnterpriseCredentials struct {
	Identity   string
	Passphrase string
}

func (NoCredentials) isCredentials()         {}
func (WEPCredentials) isCredentials()        {}
func (WPACredentials) isCredentials()        {}
func (EnterpriseCredentials) isCredentials() {}

// ResolveCredentials maps an access point's security to the credential shape
// the network service expects. Enterprise always takes identity and
// passphrase, even when identity is empty.
func ResolveCredentials(security Security, identity, passphrase string) Credentials {
	switch security.Class() {
	case ClassEnterprise:
		return EnterpriseCredentials{Identity: identity, Passphrase: passphrase}
	case ClassWPA:
		return WPACredentials{Passphrase: passphrase}
	case ClassWEP:
		return WEPCredentials{Passphrase: passphrase}
	default:
		return NoCredentials{}
	}
}
