package main

import (
	"os"
	"path/filepath"

	"github.com/go-ini/ini"

	"github.com/ineffectivecoder/smbwire/pkg/smb"
)

// profile holds connection settings read from the INI file or flags.
type profile struct {
	Target   string
	Port     int
	User     string
	Domain   string
	Password string
	Hash     string
	Share    string
	Socks5   string
	LogFile  string
	Verbose  bool
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".smbwire.ini")
}

// loadProfile reads the [Default] section of path and then the section
// named after target, if any, on top of it. A missing file yields an
// empty profile.
//
//	[Default]
//	user = alice
//	domain = CORP
//
//	[fileserver.corp.local]
//	share = data
func loadProfile(path, target string) (profile, error) {
	var p profile
	if path == "" {
		return p, nil
	}
	f, err := ini.LooseLoad(path)
	if err != nil {
		return p, err
	}

	if s, err := f.GetSection("Default"); err == nil {
		p.apply(s)
	}
	if target == "" {
		target = f.Section("Default").Key("target").String()
	}
	if target != "" {
		if s, err := f.GetSection(target); err == nil {
			p.apply(s)
			if p.Target == "" {
				p.Target = target
			}
		}
	}
	return p, nil
}

func (p *profile) apply(s *ini.Section) {
	str := func(key string, dst *string) {
		if s.HasKey(key) {
			*dst = s.Key(key).String()
		}
	}
	str("target", &p.Target)
	str("user", &p.User)
	str("domain", &p.Domain)
	str("password", &p.Password)
	str("hash", &p.Hash)
	str("share", &p.Share)
	str("socks5", &p.Socks5)
	str("log_file", &p.LogFile)
	if s.HasKey("port") {
		if v, err := s.Key("port").Int(); err == nil {
			p.Port = v
		}
	}
	if s.HasKey("verbose") {
		if v, err := s.Key("verbose").Bool(); err == nil {
			p.Verbose = v
		}
	}
}

// merge returns p with every non-zero field of flags taking precedence.
func (p profile) merge(flags profile) profile {
	pick := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	pick(&p.Target, flags.Target)
	pick(&p.User, flags.User)
	pick(&p.Domain, flags.Domain)
	pick(&p.Password, flags.Password)
	pick(&p.Hash, flags.Hash)
	pick(&p.Share, flags.Share)
	pick(&p.Socks5, flags.Socks5)
	pick(&p.LogFile, flags.LogFile)
	if flags.Port != 0 {
		p.Port = flags.Port
	}
	if p.Port == 0 {
		p.Port = smb.DefaultPort
	}
	p.Verbose = p.Verbose || flags.Verbose
	return p
}
