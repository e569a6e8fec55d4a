package auth

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/jcmturner/gokrb5/v8/client"
	"github.com/jcmturner/gokrb5/v8/config"
	"github.com/jcmturner/gokrb5/v8/credentials"
	"github.com/jcmturner/gokrb5/v8/keytab"
	"github.com/jcmturner/gokrb5/v8/spnego"
)

var errNoKerberosClient = errors.New("kerberos client not initialized")

// KerberosCredentials authenticate with a Kerberos service ticket for
// cifs/<host>, obtained from a ccache, a keytab or a password.
type KerberosCredentials struct {
	username string
	realm    string
	client   *client.Client
}

// NewKerberosCredentialsFromCCache loads a credential cache such as the one
// named by KRB5CCNAME.
func NewKerberosCredentialsFromCCache(ccachePath, realm string) (*KerberosCredentials, error) {
	ccache, err := credentials.LoadCCache(ccachePath)
	if err != nil {
		return nil, fmt.Errorf("load ccache: %w", err)
	}
	if realm == "" {
		realm = ccache.DefaultPrincipal.Realm
	}
	cfg, err := loadKrb5Config(realm)
	if err != nil {
		return nil, err
	}
	cl, err := client.NewFromCCache(ccache, cfg, client.DisablePAFXFAST(true))
	if err != nil {
		return nil, fmt.Errorf("create kerberos client: %w", err)
	}

	var username string
	if names := ccache.DefaultPrincipal.PrincipalName.NameString; len(names) > 0 {
		username = names[0]
	}
	return &KerberosCredentials{username: username, realm: realm, client: cl}, nil
}

// NewKerberosCredentialsFromKeytab creates credentials from a keytab file
func NewKerberosCredentialsFromKeytab(keytabPath, username, realm string) (*KerberosCredentials, error) {
	cfg, err := loadKrb5Config(realm)
	if err != nil {
		return nil, err
	}
	kt, err := keytab.Load(keytabPath)
	if err != nil {
		return nil, fmt.Errorf("load keytab: %w", err)
	}
	cl := client.NewWithKeytab(username, realm, kt, cfg, client.DisablePAFXFAST(true))
	return &KerberosCredentials{username: username, realm: realm, client: cl}, nil
}

// NewKerberosCredentialsFromPassword creates credentials from username/password
func NewKerberosCredentialsFromPassword(username, realm, password string) (*KerberosCredentials, error) {
	cfg, err := loadKrb5Config(realm)
	if err != nil {
		return nil, err
	}
	cl := client.NewWithPassword(username, realm, password, cfg, client.DisablePAFXFAST(true))
	return &KerberosCredentials{username: username, realm: realm, client: cl}, nil
}

func (k *KerberosCredentials) Domain() string   { return strings.ToUpper(k.realm) }
func (k *KerberosCredentials) Username() string { return k.username }
func (k *KerberosCredentials) IsHashAuth() bool { return false }
func (k *KerberosCredentials) IsKerberos() bool { return true }

// Login performs the AS exchange. Credentials from a ccache already hold a TGT.
func (k *KerberosCredentials) Login() error {
	if k.client == nil {
		return errNoKerberosClient
	}
	return k.client.Login()
}

// GetSPNEGOToken returns a SPNEGO NegTokenInit carrying an AP-REQ for spn.
func (k *KerberosCredentials) GetSPNEGOToken(spn string) ([]byte, error) {
	if k.client == nil {
		return nil, errNoKerberosClient
	}
	tok, err := spnego.SPNEGOClient(k.client, spn).InitSecContext()
	if err != nil {
		return nil, fmt.Errorf("create SPNEGO token for %s: %w", spn, err)
	}
	return tok.Marshal()
}

// Close destroys the Kerberos client
func (k *KerberosCredentials) Close() {
	if k.client != nil {
		k.client.Destroy()
	}
}

// loadKrb5Config reads KRB5_CONFIG or the standard locations, falling back
// to a DNS-driven config for realm.
func loadKrb5Config(realm string) (*config.Config, error) {
	for _, path := range []string{os.Getenv("KRB5_CONFIG"), "/etc/krb5.conf", "/etc/krb5/krb5.conf"} {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); err == nil {
			cfg, err := config.Load(path)
			if err != nil {
				return nil, fmt.Errorf("load %s: %w", path, err)
			}
			return cfg, nil
		}
	}

	if realm == "" {
		realm = "DOMAIN.LOCAL"
	}
	return config.NewFromString(fmt.Sprintf(`[libdefaults]
default_realm = %s
dns_lookup_realm = true
dns_lookup_kdc = true
`, strings.ToUpper(realm)))
}
