// Command lsdl loads a LocalSend download session and lists its files.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/localsend-web/server/internal/links"
	"github.com/localsend-web/server/internal/logging"
	"github.com/localsend-web/server/internal/models"
	"github.com/localsend-web/server/internal/session"
	"github.com/localsend-web/server/internal/terminal"
	"github.com/mdp/qrterminal/v3"
	"golang.org/x/term"
)

const maxPinAttempts = 3

// Half-block characters for terminal QR codes.
const (
	blackBlack = " "
	whiteBlack = "\u2580"
	whiteWhite = "\u2588"
	blackWhite = "\u2584"
)

// options are the parsed command line flags.
type options struct {
	upstream string
	session  string
	pin      string
	qr       bool
	insecure bool
	timeout  time.Duration
	verbose  bool
}

// pinPrompter asks the user for a PIN. message is the upstream's reason.
type pinPrompter func(message string) (string, error)

func main() {
	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		os.Exit(2)
	}

	level := "error"
	if opts.verbose {
		level = "debug"
	}
	if err := logging.Init(logging.Config{Level: level, Format: "console", OutputPath: "stderr"}); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logging: %v\n", err)
		os.Exit(1)
	}
	defer logging.Sync()

	os.Exit(run(context.Background(), opts, os.Stdout, os.Stderr, terminalPrompt(os.Stdin, os.Stderr)))
}

func parseFlags(args []string, errOut io.Writer) (options, error) {
	var opts options
	fs := flag.NewFlagSet("lsdl", flag.ContinueOnError)
	fs.SetOutput(errOut)

	defaultUpstream := os.Getenv("UPSTREAM_URL")
	if defaultUpstream == "" {
		defaultUpstream = "https://127.0.0.1:53317"
	}

	fs.StringVar(&opts.upstream, "upstream", defaultUpstream, "base URL of the LocalSend peer")
	fs.StringVar(&opts.session, "session", "", "download session id from the share link")
	fs.StringVar(&opts.pin, "pin", "", "PIN for protected sessions")
	fs.BoolVar(&opts.qr, "qr", false, "print the share link as a QR code")
	fs.BoolVar(&opts.insecure, "insecure", false, "accept self-signed upstream certificates")
	fs.DurationVar(&opts.timeout, "timeout", 30*time.Second, "timeout for each request (0 for none)")
	fs.BoolVar(&opts.verbose, "v", false, "verbose logging")

	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if opts.session == "" && fs.NArg() > 0 {
		opts.session = sessionFromArg(fs.Arg(0))
	}
	return opts, nil
}

// sessionFromArg accepts either a bare session id or a full share link.
func sessionFromArg(arg string) string {
	arg = strings.TrimSpace(arg)
	u, err := url.Parse(arg)
	if err != nil || u.Scheme == "" {
		return arg
	}
	q := u.Query()
	if id := q.Get("session"); id != "" {
		return id
	}
	return q.Get("sessionId")
}

func run(ctx context.Context, opts options, out, errOut io.Writer, prompt pinPrompter) int {
	if strings.TrimSpace(opts.session) == "" {
		terminal.Errorf(errOut, "%s", session.MissingSessionMessage)
		return 1
	}

	loader, err := session.NewLoader(session.LoaderOptions{
		BaseURL:            opts.upstream,
		Timeout:            opts.timeout,
		InsecureSkipVerify: opts.insecure,
	})
	if err != nil {
		terminal.Errorf(errOut, "%v", err)
		return 1
	}

	manifest, err := loadWithPin(ctx, loader, opts.session, opts.pin, prompt)
	if err != nil {
		terminal.Errorf(errOut, "%s", err.Error())
		return 1
	}

	b, err := links.NewBuilder(loader.BaseURL())
	if err != nil {
		terminal.Errorf(errOut, "%v", err)
		return 1
	}

	if err := terminal.NewManifestTable(out, b).Render(manifest); err != nil {
		terminal.Errorf(errOut, "render: %v", err)
		return 1
	}

	if opts.qr {
		share := b.ShareURL("/", opts.session)
		terminal.Infof(out, "Share link: %s", share)
		qrterminal.GenerateWithConfig(share, qrterminal.Config{
			Level:          qrterminal.M,
			Writer:         out,
			HalfBlocks:     true,
			BlackChar:      blackBlack,
			WhiteBlackChar: whiteBlack,
			WhiteChar:      whiteWhite,
			BlackWhiteChar: blackWhite,
			QuietZone:      1,
		})
	}
	return 0
}

// loadWithPin runs the loader, asking for a PIN on each auth challenge up to
// maxPinAttempts times.
func loadWithPin(ctx context.Context, loader session.ManifestLoader, sessionID, pin string, prompt pinPrompter) (*models.Manifest, error) {
	manifest, err := loader.Load(ctx, sessionID, pin)
	for attempt := 0; attempt < maxPinAttempts && session.IsAuthChallenge(err); attempt++ {
		if prompt == nil {
			return nil, err
		}
		pin, perr := prompt(err.Error())
		if perr != nil {
			return nil, fmt.Errorf("read PIN: %w", perr)
		}
		manifest, err = loader.Load(ctx, sessionID, strings.TrimSpace(pin))
	}
	return manifest, err
}

// terminalPrompt reads a PIN without echo when in is a terminal and as a
// plain line otherwise.
func terminalPrompt(in *os.File, out io.Writer) pinPrompter {
	reader := bufio.NewReader(in)
	return func(message string) (string, error) {
		terminal.Errorf(out, "%s", message)
		fmt.Fprint(out, "PIN: ")

		fd := int(in.Fd())
		if term.IsTerminal(fd) {
			b, err := term.ReadPassword(fd)
			fmt.Fprintln(out)
			return string(b), err
		}

		line, err := reader.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			return "", err
		}
		return strings.TrimSpace(line), nil
	}
}
