package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/mjwhitta/cli"
	"golang.org/x/term"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ineffectivecoder/smbwire/pkg/auth"
	"github.com/ineffectivecoder/smbwire/pkg/debug"
	"github.com/ineffectivecoder/smbwire/pkg/smb"
)

// Version info
const (
	Version = "0.2.0"
	Banner  = "smbwire"
)

// Colors for output
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorCyan   = "\033[36m"
	colorBold   = "\033[1m"
)

// Global state
var (
	verbose     bool
	client      *smb.Client
	session     *smb.Session
	currentTree *smb.Tree
	currentPath string
	targetHost  string
	currentUser string
)

func main() {
	var (
		flags      profile
		configPath string
		ccache     string
		keytab     string
		execCmd    string
	)

	cli.Align = true
	cli.Banner = "smbwire [OPTIONS]"
	cli.Info("SMB1/SMB2 client shell built on the smbwire protocol layer")
	cli.Authors = []string{"smbwire authors"}

	cli.Flag(&flags.Target, "t", "target", "", "Target server IP/hostname")
	cli.Flag(&flags.Port, "P", "port", 0, "Target port (default 445)")
	cli.Flag(&flags.User, "u", "user", "", "Username")
	cli.Flag(&flags.Domain, "d", "domain", "", "Domain name / Kerberos realm")
	cli.Flag(&flags.Password, "p", "password", "", "Password")
	cli.Flag(&flags.Hash, "H", "hash", "", "NTLM hash (32 hex chars)")
	cli.Flag(&ccache, "k", "ccache", "", "Kerberos ccache file")
	cli.Flag(&keytab, "K", "keytab", "", "Kerberos keytab file")
	cli.Flag(&flags.Socks5, "s", "socks5", "", "SOCKS5 proxy (host:port or user:pass@host:port)")
	cli.Flag(&flags.Share, "S", "share", "", "Share to connect after login")
	cli.Flag(&execCmd, "x", "exec", "", "Execute command(s) and exit (semicolon separated)")
	cli.Flag(&configPath, "c", "config", defaultConfigPath(), "INI profile")
	cli.Flag(&flags.LogFile, "log-file", "", "Write protocol logs to a rotating file")
	cli.Flag(&verbose, "v", "verbose", false, "Verbose output")
	cli.Parse()

	cfg, err := loadProfile(configPath, flags.Target)
	if err != nil {
		error_("Failed to load %s: %v", configPath, err)
		os.Exit(1)
	}
	cfg = cfg.merge(flags)
	verbose = verbose || cfg.Verbose

	setupLogging(cfg.LogFile)

	fmt.Printf("%s%s v%s%s\n\n", colorBold, Banner, Version, colorReset)

	if cfg.Target == "" {
		error_("Missing target (-t)")
		cli.Usage(1)
	}

	if ccache == "" {
		if env := os.Getenv("KRB5CCNAME"); env != "" {
			ccache = strings.TrimPrefix(env, "FILE:")
			debug_("Using KRB5CCNAME: %s", ccache)
		}
	}

	hasKerberos := ccache != "" || keytab != ""
	if hasKerberos && cfg.Domain == "" {
		error_("Kerberos requires realm (-d)")
		cli.Usage(1)
	}
	if !hasKerberos && cfg.Password == "" && cfg.Hash == "" && cfg.User != "" {
		cfg.Password = promptPassword()
	}

	targetHost = cfg.Target
	ctx := context.Background()

	clientConfig := smb.DefaultClientConfig()
	if cfg.Socks5 != "" {
		if !strings.HasPrefix(cfg.Socks5, "socks5://") {
			cfg.Socks5 = "socks5://" + cfg.Socks5
		}
		clientConfig.Socks5URL = cfg.Socks5
		info_("Using SOCKS5 proxy: %s", cfg.Socks5)
	}

	info_("Connecting to %s:%d...", cfg.Target, cfg.Port)

	client = smb.NewClientWithConfig(clientConfig)
	if err := client.Connect(ctx, cfg.Target, cfg.Port); err != nil {
		error_("Connection failed: %v", err)
		os.Exit(1)
	}
	defer client.Close()

	success_("Connected! Dialect: %s", client.DialectName())

	var creds auth.Credentials
	switch {
	case ccache != "":
		info_("Authenticating with Kerberos ccache...")
		krb, kerr := auth.NewKerberosCredentialsFromCCache(ccache, cfg.Domain)
		if kerr != nil {
			error_("Failed to load ccache: %v", kerr)
			os.Exit(1)
		}
		defer krb.Close()
		creds = krb
	case keytab != "":
		if cfg.User == "" {
			error_("Keytab requires username (-u)")
			os.Exit(1)
		}
		info_("Authenticating with Kerberos keytab...")
		krb, kerr := auth.NewKerberosCredentialsFromKeytab(keytab, cfg.User, cfg.Domain)
		if kerr != nil {
			error_("Failed to load keytab: %v", kerr)
			os.Exit(1)
		}
		defer krb.Close()
		if kerr := krb.Login(); kerr != nil {
			error_("Kerberos login failed: %v", kerr)
			os.Exit(1)
		}
		creds = krb
	case cfg.Hash != "":
		hc, herr := auth.ParseHashCredentials(cfg.Domain, cfg.User, cfg.Hash)
		if herr != nil {
			error_("Invalid hash: %v", herr)
			os.Exit(1)
		}
		creds = hc
		info_("Authenticating with NT hash...")
	case cfg.User == "":
		creds = auth.NewAnonymousCredentials()
		info_("Authenticating anonymously...")
	default:
		creds = auth.NewPasswordCredentials(cfg.Domain, cfg.User, cfg.Password)
		info_("Authenticating as %s\\%s...", cfg.Domain, cfg.User)
	}

	if err := client.Authenticate(ctx, creds); err != nil {
		error_("Authentication failed: %v", err)
		os.Exit(1)
	}

	session = client.Session()
	currentUser = creds.Username()
	if creds.Domain() != "" {
		currentUser = creds.Domain() + "\\" + currentUser
	}
	if session.IsGuest() {
		warn_("Logged in as guest")
	}
	success_("Authenticated!")

	if cfg.Share != "" {
		if err := cmdUse(ctx, []string{cfg.Share}); err != nil {
			error_("%v", err)
		}
	}

	if execCmd != "" {
		for _, line := range strings.Split(execCmd, ";") {
			args := parseArgs(strings.TrimSpace(line))
			if len(args) == 0 {
				continue
			}
			if !executeCommand(ctx, strings.ToLower(args[0]), args[1:]) {
				break
			}
		}
		return
	}

	if err := runShell(ctx); err != nil {
		error_("%v", err)
		os.Exit(1)
	}
}

// setupLogging sends library logs to a rotating file when one is named.
// Without one they stay on stderr and only show with -v.
func setupLogging(path string) {
	debug.Verbose = verbose
	if path == "" {
		return
	}
	debug.SetOutput(&lumberjack.Logger{
		Filename:   path,
		MaxSize:    50, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
		Compress:   true,
	})
}

// Output helpers
func info_(format string, args ...interface{}) {
	fmt.Printf(colorCyan+"[*]"+colorReset+" "+format+"\n", args...)
}

func success_(format string, args ...interface{}) {
	fmt.Printf(colorGreen+"[+]"+colorReset+" "+format+"\n", args...)
}

func error_(format string, args ...interface{}) {
	fmt.Printf(colorRed+"[!]"+colorReset+" "+format+"\n", args...)
}

func warn_(format string, args ...interface{}) {
	fmt.Printf(colorYellow+"[-]"+colorReset+" "+format+"\n", args...)
}

func debug_(format string, args ...interface{}) {
	if verbose {
		fmt.Printf(colorBlue+"[D]"+colorReset+" "+format+"\n", args...)
	}
}

func promptPassword() string {
	fmt.Print("Password: ")
	pass, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		error_("Failed to read password: %v", err)
		os.Exit(1)
	}
	return string(pass)
}
