package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/calebmorton/vanguard/internal/auth"
	"github.com/calebmorton/vanguard/internal/config"
	"github.com/calebmorton/vanguard/internal/dashboard"
	"github.com/calebmorton/vanguard/internal/device"
	"github.com/calebmorton/vanguard/internal/geo"
	"github.com/calebmorton/vanguard/internal/mfa"
	"github.com/calebmorton/vanguard/internal/models"
	"github.com/calebmorton/vanguard/internal/storage"
	"github.com/calebmorton/vanguard/internal/transport"
)

const usage = `usage: vanguard <command> [flags]

commands:
  login            authenticate, completing an MFA step-up if challenged
  register         create an account and walk the MFA enrollment wizard
  mfa-setup        re-issue a forfeited setup token and confirm enrollment
  verify           complete a step-up challenge from a saved mfa_token
  dashboard        show the security dashboard (use -overview for the summary)
  sessions         list active sessions (use -history for login history)
  revoke           revoke one session by id, or -all for every other session
  logout           end the session and rotate the device fingerprint
  forgot-password  request a password reset email
`

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLevel(cfg.Client.LogLevel),
	}))
	slog.SetDefault(logger)

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	app, err := newApp(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize client", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	app.orchestrator.Init(ctx)

	cmd, args := os.Args[1], os.Args[2:]
	if err := app.run(ctx, cmd, args); err != nil {
		fmt.Fprintf(os.Stderr, "vanguard: %v\n", err)
		os.Exit(1)
	}
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// app bundles the wired client components behind the subcommands.
type app struct {
	logger       *slog.Logger
	orchestrator *auth.Orchestrator
	client       *transport.Client
	aggregator   *dashboard.Aggregator
	verifier     *mfa.Verifier
	stdin        *bufio.Reader
}

func newApp(cfg *config.Config, logger *slog.Logger) (*app, error) {
	client, err := transport.NewClient(cfg.API.BaseURL, cfg.API.Timeout, cfg.Client.UserAgent, logger)
	if err != nil {
		return nil, fmt.Errorf("transport: %w", err)
	}

	if err := os.MkdirAll(cfg.Client.StateDir, 0o700); err != nil {
		return nil, fmt.Errorf("state dir: %w", err)
	}
	durable := storage.NewFileStore(cfg.Client.DeviceStorePath())
	session := storage.NewSessionStore()
	devices := device.NewResolver(durable, session, logger)

	enrich := geo.NewClient(cfg.Enrich.IPEchoURL, cfg.Enrich.GeoURL, cfg.Enrich.Timeout, logger)
	orchestrator := auth.NewOrchestrator(client, devices, enrich, cfg.Client.UserAgent, logger)

	return &app{
		logger:       logger,
		orchestrator: orchestrator,
		client:       client,
		aggregator:   dashboard.NewAggregator(client, logger),
		verifier:     mfa.NewVerifier(client, logger),
		stdin:        bufio.NewReader(os.Stdin),
	}, nil
}

func (a *app) run(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "login":
		return a.cmdLogin(ctx, args)
	case "register":
		return a.cmdRegister(ctx, args)
	case "mfa-setup":
		return a.cmdMFASetup(ctx, args)
	case "verify":
		return a.cmdVerify(ctx, args)
	case "dashboard":
		return a.cmdDashboard(ctx, args)
	case "sessions":
		return a.cmdSessions(ctx, args)
	case "revoke":
		return a.cmdRevoke(ctx, args)
	case "logout":
		a.orchestrator.Logout(ctx)
		fmt.Println("Logged out.")
		return nil
	case "forgot-password":
		return a.cmdForgotPassword(ctx, args)
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func (a *app) cmdLogin(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	email := fs.String("email", "", "account email")
	fs.Parse(args)

	if err := a.login(ctx, *email); err != nil {
		return err
	}

	snap := a.orchestrator.Snapshot()
	if snap.User != nil {
		fmt.Printf("Logged in as %s\n", snap.User.Email)
	}
	return nil
}

// login runs the interactive credential flow, completing an MFA step-up when
// the server demands one. On return the orchestrator is authenticated and the
// session cookie is live on the transport.
func (a *app) login(ctx context.Context, email string) error {
	var err error
	if email == "" {
		email, err = a.readLine("Email: ")
		if err != nil {
			return err
		}
	}

	password, speed, interval, err := a.readPassword("Password: ")
	if err != nil {
		return err
	}

	result, err := a.orchestrator.Login(ctx, auth.LoginForm{
		Email:       email,
		Password:    password,
		TypingSpeed: speed,
		KeyInterval: interval,
	})
	if err != nil {
		return err
	}

	if result.RiskScore != nil {
		fmt.Printf("Risk: %.2f (%s)\n", *result.RiskScore, result.RiskLevel)
	}
	if result.DeviceKnown != nil && !*result.DeviceKnown {
		fmt.Println("This device has not been seen before.")
	}

	if !result.MFARequired {
		return nil
	}

	if result.Instructions != "" {
		fmt.Println(result.Instructions)
	}
	if exp, ok := mfa.TokenExpiry(result.MFAToken); ok {
		fmt.Printf("Challenge expires at %s\n", exp.Format(time.RFC3339))
	}

	code, err := a.readLine("Authenticator code: ")
	if err != nil {
		return err
	}
	user, err := a.verifier.Verify(ctx, mfa.Challenge{MFAToken: result.MFAToken, Email: result.Email}, code)
	if err != nil {
		return err
	}
	a.orchestrator.UpdateUser(user)
	return nil
}

func (a *app) cmdRegister(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("register", flag.ExitOnError)
	email := fs.String("email", "", "account email")
	fs.Parse(args)

	addr := *email
	var err error
	if addr == "" {
		addr, err = a.readLine("Email: ")
		if err != nil {
			return err
		}
	}
	password, _, _, err := a.readPassword("Password: ")
	if err != nil {
		return err
	}
	confirm, _, _, err := a.readPassword("Confirm password: ")
	if err != nil {
		return err
	}

	resp, err := a.orchestrator.Register(ctx, auth.RegisterForm{
		Email:           addr,
		Password:        password,
		PasswordConfirm: confirm,
	})
	if err != nil {
		return err
	}
	fmt.Println(resp.Message)

	enrollment, err := mfa.NewEnrollment(a.client, resp, a.logger)
	if err != nil {
		return err
	}
	return a.runEnrollment(ctx, enrollment)
}

// runEnrollment drives the three-step wizard over the terminal. Leaving early
// forfeits the payload; the only way back is mfa-setup.
func (a *app) runEnrollment(ctx context.Context, e *mfa.Enrollment) error {
	for !e.Done() {
		switch e.Step() {
		case mfa.StepQR:
			qr, err := e.QRTerminal()
			if err != nil {
				return err
			}
			fmt.Println("Scan this with your authenticator app:")
			fmt.Println(qr)
			if secret := e.Secret(); secret != "" {
				fmt.Printf("Or enter the secret manually: %s\n", secret)
			}
			if _, err := a.readLine("Press enter once added... "); err != nil {
				return err
			}
			if err := e.AcknowledgeQR(); err != nil {
				return err
			}

		case mfa.StepBackup:
			fmt.Println("Recovery codes (store these somewhere safe, they are shown once):")
			for _, code := range e.BackupCodes() {
				fmt.Printf("  %s\n", code)
			}
			if _, err := a.readLine("Press enter once saved... "); err != nil {
				return err
			}
			if err := e.AcknowledgeBackupCodes(); err != nil {
				return err
			}

		case mfa.StepVerify:
			code, err := a.readLine("Enter the 6-digit code (or 'back' to rescan): ")
			if err != nil {
				return err
			}
			if code == "back" {
				if err := e.BackToQR(); err != nil {
					return err
				}
				continue
			}
			if err := e.Confirm(ctx, code); err != nil {
				// Retryable: the wizard stays on verify.
				fmt.Fprintf(os.Stderr, "verification failed: %v\n", err)
			}
		}
	}
	fmt.Println("MFA enrollment complete. You can now log in.")
	return nil
}

func (a *app) cmdMFASetup(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("mfa-setup", flag.ExitOnError)
	email := fs.String("email", "", "account email")
	fs.Parse(args)

	addr := *email
	var err error
	if addr == "" {
		addr, err = a.readLine("Email: ")
		if err != nil {
			return err
		}
	}
	password, _, _, err := a.readPassword("Password: ")
	if err != nil {
		return err
	}

	resp, err := a.orchestrator.RegenerateMFA(ctx, addr, password)
	if err != nil {
		return err
	}
	fmt.Println(resp.Message)
	if exp, ok := mfa.TokenExpiry(resp.SetupToken); ok {
		fmt.Printf("Setup token expires at %s\n", exp.Format(time.RFC3339))
	}

	code, err := a.readLine("Enter the 6-digit code from your authenticator: ")
	if err != nil {
		return err
	}
	confirmed, err := mfa.ConfirmSetup(ctx, a.client, resp.SetupToken, code)
	if err != nil {
		return err
	}
	fmt.Println(confirmed.Message)
	return nil
}

func (a *app) cmdVerify(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("verify", flag.ExitOnError)
	email := fs.String("email", "", "account email")
	token := fs.String("token", "", "mfa_token from the login challenge")
	fs.Parse(args)

	code, err := a.readLine("Authenticator code: ")
	if err != nil {
		return err
	}
	user, err := a.verifier.Verify(ctx, mfa.Challenge{MFAToken: *token, Email: *email}, code)
	if err != nil {
		return err
	}
	a.orchestrator.UpdateUser(user)
	fmt.Printf("Verified. Logged in as %s\n", user.Email)
	return nil
}

func (a *app) cmdDashboard(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("dashboard", flag.ExitOnError)
	email := fs.String("email", "", "account email")
	overview := fs.Bool("overview", false, "show the compact overview instead of the full dashboard")
	fs.Parse(args)

	if err := a.login(ctx, *email); err != nil {
		return err
	}

	if *overview {
		ov, err := a.aggregator.Overview(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Security score: %d\n", ov.SecurityScore)
		fmt.Printf("Current risk level: %s\n", ov.CurrentRiskLevel)
		fmt.Printf("Active sessions: %d\n", ov.Stats.ActiveSessions)
		fmt.Printf("Logins today: %d (%d failed, %d high-risk)\n",
			ov.Stats.TotalLoginsToday, ov.Stats.FailedLoginsToday, ov.Stats.HighRiskLoginsToday)
		fmt.Printf("Risk distribution (30d): low %d / medium %d / high %d\n",
			ov.RiskDistribution.Low, ov.RiskDistribution.Medium, ov.RiskDistribution.High)
		return nil
	}

	full, err := a.aggregator.Full(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Account: %s (MFA enabled: %v)\n", full.User.Email, full.User.MFAEnabled)
	if ra := full.RiskAssessment; ra != nil {
		fmt.Printf("Latest risk: %.2f (%s) from %s [%s]\n", ra.RiskScore, ra.RiskLevel, ra.IPAddress, ra.DeviceStatus)
		if ra.Explanation != "" {
			fmt.Printf("  %s\n", ra.Explanation)
		}
	}
	fmt.Printf("Active sessions: %d\n", len(full.Sessions))
	for _, s := range full.Sessions {
		fmt.Printf("  %s  %s  %s  last active %s\n", s.ID, s.DeviceLabel, s.IPAddress, s.LastActivityAt)
	}
	fmt.Printf("Recent logins: %d\n", len(full.LoginHistory))
	for _, ev := range full.LoginHistory {
		fmt.Printf("  %s  %s  risk %.2f (%s)  device %s\n", ev.Timestamp, ev.IPAddress, ev.RiskScore, ev.RiskLevel, ev.DeviceLabel)
	}
	return nil
}

func (a *app) cmdSessions(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("sessions", flag.ExitOnError)
	email := fs.String("email", "", "account email")
	history := fs.Bool("history", false, "show login history instead of active sessions")
	limit := fs.Int("limit", 20, "maximum history rows")
	days := fs.Int("days", 0, "restrict history to the past N days")
	riskLevel := fs.String("risk", "", "filter history by risk level (low, medium, high)")
	fs.Parse(args)

	if err := a.login(ctx, *email); err != nil {
		return err
	}

	if *history {
		events, err := a.aggregator.History(ctx, models.HistoryQuery{
			Limit:     *limit,
			Days:      *days,
			RiskLevel: *riskLevel,
		})
		if err != nil {
			return err
		}
		for _, ev := range events {
			fmt.Printf("%s  %s  %-20s  risk %.2f (%s)  %s\n",
				ev.Timestamp, ev.IPAddress, ev.Location, ev.RiskScore, ev.RiskLevel, ev.DeviceLabel)
		}
		return nil
	}

	sessions, err := a.aggregator.ActiveSessions(ctx)
	if err != nil {
		return err
	}
	for _, s := range sessions {
		fmt.Printf("%s  %s  %s  created %s  last active %s\n",
			s.ID, s.DeviceLabel, s.IPAddress, s.CreatedAt, s.LastActivityAt)
	}
	return nil
}

func (a *app) cmdRevoke(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("revoke", flag.ExitOnError)
	email := fs.String("email", "", "account email")
	id := fs.String("id", "", "session id to revoke")
	all := fs.Bool("all", false, "revoke every session except the current one")
	fs.Parse(args)

	if *id == "" && !*all {
		return fmt.Errorf("revoke requires -id or -all")
	}

	if err := a.login(ctx, *email); err != nil {
		return err
	}

	if *all {
		if err := a.aggregator.RevokeAll(ctx); err != nil {
			return err
		}
		fmt.Println("All other sessions revoked.")
		return nil
	}
	if err := a.aggregator.RevokeSession(ctx, *id); err != nil {
		return err
	}
	fmt.Printf("Session %s revoked.\n", *id)
	return nil
}

func (a *app) cmdForgotPassword(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("forgot-password", flag.ExitOnError)
	email := fs.String("email", "", "account email")
	fs.Parse(args)

	addr := *email
	var err error
	if addr == "" {
		addr, err = a.readLine("Email: ")
		if err != nil {
			return err
		}
	}
	if err := a.orchestrator.ForgotPassword(ctx, addr); err != nil {
		return err
	}
	fmt.Println("If the account exists, a reset email is on its way.")
	return nil
}

func (a *app) readLine(prompt string) (string, error) {
	fmt.Print(prompt)
	line, err := a.stdin.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// readPassword reads without echo and derives coarse typing-cadence metrics
// from the entry duration: characters per second and the mean inter-key gap in
// milliseconds. Zero when stdin is not a terminal.
func (a *app) readPassword(prompt string) (password string, speed, interval float64, err error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		line, rerr := a.readLine(prompt)
		return line, 0, 0, rerr
	}

	fmt.Print(prompt)
	start := time.Now()
	raw, err := term.ReadPassword(fd)
	fmt.Println()
	if err != nil {
		return "", 0, 0, fmt.Errorf("read password: %w", err)
	}
	elapsed := time.Since(start).Seconds()
	password = string(raw)

	if n := len(password); n > 1 && elapsed > 0 {
		speed = float64(n) / elapsed
		interval = elapsed / float64(n-1) * 1000
	}
	return password, speed, interval, nil
}
