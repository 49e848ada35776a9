package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aussiebroadwan/habitauth/pkg/authsdk"
)

const defaultServerURL = "http://localhost:8080"

type globalOptions struct {
	server      string
	sessionFile string
	jsonOutput  bool
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "habitctl",
		Short: "Command-line client for the habitauth session service",
		Long: `habitctl signs in to the habitauth session service and stores the session
so later commands reuse it, refreshing the access token as needed.

Environment Variables:
  HABITAUTH_URL       Service URL (default: http://localhost:8080)
  HABITAUTH_SESSION   Session file (default: <user config dir>/habitauth/session.json)
  HABITAUTH_PASSWORD  Password for login and register (otherwise read from stdin)`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&opts.server, "server", "", "Service URL (overrides HABITAUTH_URL)")
	root.PersistentFlags().StringVar(&opts.sessionFile, "session-file", "", "Session file (overrides HABITAUTH_SESSION)")
	root.PersistentFlags().BoolVar(&opts.jsonOutput, "json", false, "Output JSON instead of human-readable text")

	root.AddCommand(
		newLoginCmd(opts),
		newRegisterCmd(opts),
		newWhoamiCmd(opts),
		newRefreshCmd(opts),
		newLogoutCmd(opts),
		newRevokeAllCmd(opts),
	)
	return root
}

func (o *globalOptions) serverURL() string {
	if o.server != "" {
		return o.server
	}
	if env := os.Getenv("HABITAUTH_URL"); env != "" {
		return env
	}
	return defaultServerURL
}

func (o *globalOptions) storePath() (string, error) {
	if o.sessionFile != "" {
		return o.sessionFile, nil
	}
	if env := os.Getenv("HABITAUTH_SESSION"); env != "" {
		return env, nil
	}
	return authsdk.DefaultFileStorePath()
}

// session builds a Session backed by the session file. With restore set it
// also loads the stored tokens.
func (o *globalOptions) session(ctx context.Context, restore bool) (*authsdk.Session, error) {
	path, err := o.storePath()
	if err != nil {
		return nil, err
	}

	s := authsdk.NewClient(o.serverURL()).NewSession(
		authsdk.WithTokenStore(authsdk.NewFileStore(path)),
	)
	if !restore {
		return s, nil
	}
	if err := s.Restore(ctx); err != nil {
		if errors.Is(err, authsdk.ErrNoSession) {
			return nil, errors.New("not logged in (run habitctl login)")
		}
		return nil, err
	}
	return s, nil
}

// readPassword takes the password from HABITAUTH_PASSWORD or the first line
// of in.
func readPassword(in io.Reader, out io.Writer) (string, error) {
	if env := os.Getenv("HABITAUTH_PASSWORD"); env != "" {
		return env, nil
	}

	fmt.Fprint(out, "Password: ")
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	fmt.Fprintln(out)

	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return "", errors.New("password is required")
	}
	return password, nil
}
