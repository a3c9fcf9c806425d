package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/jere1233/LingerNote-F/config"
	"github.com/jere1233/LingerNote-F/pkg/errors"
	"github.com/jere1233/LingerNote-F/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func usage() string {
	return `usage:
  client status
  client login <email-or-phone> <password>
  client signup <full-name> <email-or-phone> <password>
  client verify <email-or-phone> <otp>
  client resend <email-or-phone>
  client logout`
}

func run() error {
	ctx := context.Background()

	cfg := config.Load()

	logg, err := logger.New(logger.Config{
		Level:       cfg.Logging.Level,
		Environment: cfg.Logging.Environment,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logg.Sync()
	logger.SetDefault(logg)

	a, err := buildApp(cfg, logg)
	if err != nil {
		return err
	}
	defer a.cleanup()

	// Every invocation starts like an app launch: restore whatever
	// session is on disk before touching it.
	state, err := a.services.Session.Restore(ctx)
	if err != nil {
		return fmt.Errorf("restore session: %w", err)
	}
	logg.Debug("session restored", logger.State(state.String()))

	if len(os.Args) < 2 {
		fmt.Println(usage())
		return nil
	}

	switch os.Args[1] {
	case "status":
		return a.status(ctx)
	case "login":
		if len(os.Args) != 4 {
			return fmt.Errorf("%s", usage())
		}
		return a.login(ctx, os.Args[2], os.Args[3])
	case "signup":
		if len(os.Args) != 5 {
			return fmt.Errorf("%s", usage())
		}
		return a.signup(ctx, os.Args[2], os.Args[3], os.Args[4])
	case "verify":
		if len(os.Args) != 4 {
			return fmt.Errorf("%s", usage())
		}
		return a.verify(ctx, os.Args[2], os.Args[3])
	case "resend":
		if len(os.Args) != 3 {
			return fmt.Errorf("%s", usage())
		}
		return a.services.Session.ResendOTP(ctx, os.Args[2])
	case "logout":
		return a.services.Session.Logout(ctx)
	default:
		return fmt.Errorf("unknown command %q\n%s", os.Args[1], usage())
	}
}

func (a *app) status(ctx context.Context) error {
	fmt.Printf("state: %s\n", a.services.Session.State())
	if u := a.services.Session.CurrentUser(); u != nil {
		fmt.Printf("user: %s (%s) verified=%t status=%s\n", u.FullName, u.EmailOrPhone, u.Verified, u.Status)
	}
	if n, err := a.services.Queue.Size(ctx); err == nil {
		fmt.Printf("queued requests: %d\n", n)
	}
	return nil
}

func (a *app) login(ctx context.Context, emailOrPhone, password string) error {
	outcome, err := a.services.Session.Login(ctx, emailOrPhone, password)
	if err != nil {
		if errors.Is(err, errors.ErrInvalidCredentials) {
			fmt.Println("invalid credentials")
			return nil
		}
		return err
	}
	if outcome.RequiresVerification {
		fmt.Printf("verification required (%s); run: client verify %s <otp>\n", outcome.VerificationType, emailOrPhone)
		return nil
	}
	fmt.Printf("logged in as %s\n", outcome.User.FullName)
	return nil
}

func (a *app) signup(ctx context.Context, fullName, emailOrPhone, password string) error {
	outcome, err := a.services.Session.Signup(ctx, fullName, emailOrPhone, password)
	if err != nil {
		return err
	}
	if outcome.RequiresVerification {
		fmt.Printf("verification required (%s); run: client verify %s <otp>\n", outcome.VerificationType, emailOrPhone)
		return nil
	}
	fmt.Printf("signed up as %s\n", outcome.User.FullName)
	return nil
}

func (a *app) verify(ctx context.Context, emailOrPhone, otp string) error {
	user, err := a.services.Session.VerifyOTP(ctx, emailOrPhone, otp, false)
	if err != nil {
		if errors.Is(err, errors.ErrOTPInvalid) || errors.Is(err, errors.ErrOTPExpired) {
			fmt.Println("verification code rejected")
			return nil
		}
		return err
	}
	fmt.Printf("verified, logged in as %s\n", user.FullName)
	return nil
}
