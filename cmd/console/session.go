package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ctrlcompliance/admin-console/api"
	"github.com/ctrlcompliance/admin-console/auth"
	"github.com/ctrlcompliance/admin-console/internal/config"
)

// session drives the interactive login/MFA handshake and the resource views
// from stdin.
type session struct {
	cfg        config.Config
	log        zerolog.Logger
	api        *api.Client
	controller *auth.Controller

	in *bufio.Scanner

	// views live for the whole session so a mid-session MFA challenge or a
	// re-login lands the operator back on the page, filters and selection
	// they left.
	views   map[string]view
	current view
}

func (s *session) Run(ctx context.Context) error {
	s.in = bufio.NewScanner(os.Stdin)
	defer s.closeViews()

	fmt.Println("Checking session…")
	state := s.controller.Probe(ctx)

	for {
		switch state.Status {
		case auth.StatusUnauthenticated:
			if state.Reason != "" {
				s.printAuthFailure(state)
			}
			next, ok := s.loginPrompt(ctx)
			if !ok {
				return nil
			}
			state = next

		case auth.StatusMfaPending:
			next, ok := s.mfaPrompt(ctx, state)
			if !ok {
				return nil
			}
			state = next

		case auth.StatusAuthenticated:
			quit := s.browse(ctx)
			if quit {
				return nil
			}
			state = s.controller.State()

		default:
			state = s.controller.State()
		}
	}
}

func (s *session) printAuthFailure(state auth.State) {
	if state.LockedMinutes > 0 {
		fmt.Printf("Sign-in failed: %s (try again in %d minutes)\n", state.Reason, state.LockedMinutes)
		return
	}
	fmt.Printf("Sign-in failed: %s\n", state.Reason)
}

func (s *session) loginPrompt(ctx context.Context) (auth.State, bool) {
	fmt.Println("\nAdmin sign in (blank email to quit)")
	email := s.prompt("Email: ")
	if email == "" {
		return auth.State{}, false
	}
	password := s.prompt("Password: ")

	state, err := s.controller.Login(ctx, email, password)
	if err != nil {
		s.log.Debug().Err(err).Msg("login rejected")
	}
	return state, true
}

func (s *session) mfaPrompt(ctx context.Context, state auth.State) (auth.State, bool) {
	if !state.MfaEnrolled {
		enrollment, err := s.controller.SetupMfa(ctx)
		if err != nil {
			fmt.Printf("Could not begin MFA enrollment: %s\n", err)
			return s.controller.Logout(ctx), true
		}
		fmt.Println("\nScan this with your authenticator app:")
		fmt.Printf("  %s\n", enrollment.QR)
		fmt.Printf("  (manual secret: %s)\n", enrollment.Secret)
	}

	code := s.prompt("6-digit code (blank to cancel): ")
	if code == "" {
		return s.controller.Logout(ctx), true
	}
	remember := strings.EqualFold(s.prompt("Remember this device for 14 days? [y/N]: "), "y")

	next, err := s.controller.VerifyMfa(ctx, code, remember)
	if err != nil {
		fmt.Printf("Verification failed: %s\n", err)
	}
	return next, true
}

func (s *session) prompt(label string) string {
	fmt.Print(label)
	if !s.in.Scan() {
		return ""
	}
	return strings.TrimSpace(s.in.Text())
}
