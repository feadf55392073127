// Command pos is a point-of-sale terminal session. It signs in against the auth endpoints,
// keeps the session fresh in the background and shares it with other terminals through
// the configured storage backend.
package main

import (
	"context"
	"flag"
	"net/http/cookiejar"
	"os"
	"os/signal"
	"syscall"

	"github.com/jrsteele09/go-cellar-auth/authapi"
	"github.com/jrsteele09/go-cellar-auth/cookie"
	"github.com/jrsteele09/go-cellar-auth/internal/config"
	"github.com/jrsteele09/go-cellar-auth/internal/logging"
	"github.com/jrsteele09/go-cellar-auth/session"
	"github.com/jrsteele09/go-cellar-auth/storage"
	"github.com/rs/zerolog/log"
)

func main() {
	username := flag.String("username", os.Getenv("POS_USERNAME"), "staff username or email")
	password := flag.String("password", os.Getenv("POS_PASSWORD"), "password")
	flag.Parse()

	if err := run(*username, *password); err != nil {
		log.Fatal().Err(err).Msg("pos terminal stopped")
	}
}

func run(username, password string) error {
	c := config.New()
	logging.Setup(c.GetEnv(), c.GetLogLevel())

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	repo, err := storage.Open(ctx, c, "pos")
	if err != nil {
		return err
	}
	defer repo.Close()

	jar, err := cookiejar.New(nil)
	if err != nil {
		return err
	}
	cookies, err := cookie.NewJar(jar, c.GetBaseURL())
	if err != nil {
		return err
	}

	ctrl := session.New(
		authapi.NewClient(c.GetAPIBaseURL(), c),
		session.NewStore(repo, session.WithCookieWriter(cookies)),
		c,
	)
	defer ctrl.Close()

	unsubscribe := ctrl.Subscribe(func(s session.State) {
		ev := log.Info().Str("status", string(s.Status))
		if s.User != nil {
			ev = ev.Str("user", s.User.Email).Strs("roles", s.User.Roles)
		}
		if s.Error != "" {
			ev = ev.Str("error", s.Error)
		}
		if next, ok := ctrl.NextRefresh(); ok {
			ev = ev.Time("nextRefresh", next)
		}
		ev.Msg("session")
	})
	defer unsubscribe()

	if err := ctrl.Init(ctx); err != nil {
		return err
	}

	if !ctrl.State().Authenticated() {
		if username == "" || password == "" {
			log.Warn().Msg("no stored session and no credentials, waiting for another terminal to sign in")
		} else if err := ctrl.Login(ctx, session.Credentials{Username: username, Password: password}); err != nil {
			log.Error().Err(err).Msg("sign in failed")
		}
	}

	<-ctx.Done()
	log.Info().Int("cookies", len(cookies.Cookies())).Msg("terminal closing")
	return nil
}
