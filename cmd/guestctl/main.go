// Command guestctl is a terminal client for the hotel backend. It shares the
// storefront's session rules and keeps its credential in a local SQLite file.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"hotelfront/internal/backend"
	"hotelfront/internal/config"
	"hotelfront/internal/database"
	"hotelfront/internal/latest"
	"hotelfront/internal/logging"
	"hotelfront/internal/models"
	"hotelfront/internal/service"
	"hotelfront/internal/session"

	"github.com/rs/zerolog"
	"golang.org/x/term"
)

// cliSessionID names the single session the CLI keeps on disk.
const cliSessionID = "cli"

const usage = `usage: guestctl [flags] <command> [args]

commands:
  login                 sign in (prompts for email and password)
  logout                forget the stored credential
  whoami                show the signed-in profile
  rooms                 list the catalog
  find-booking <code>   look a booking up by confirmation code
  chat <message>        ask the concierge

flags:
`

type app struct {
	sess      *session.Store
	auth      *service.AuthService
	catalog   *service.CatalogService
	checkout  *service.CheckoutService
	concierge *service.ConciergeService
	out       io.Writer
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "guestctl:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("guestctl", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprint(fs.Output(), usage)
		fs.PrintDefaults()
	}
	baseURL := fs.String("base-url", envOr("BACKEND_BASE_URL", "http://localhost:4040"), "hotel backend base URL")
	dbPath := fs.String("db", envOr("GUESTCTL_DB", defaultDBPath()), "credential database path")
	timeout := fs.Duration("timeout", 15*time.Second, "backend request timeout")
	verbose := fs.Bool("v", false, "log backend calls to stderr")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return errors.New("missing command")
	}

	logger := zerolog.Nop()
	if *verbose {
		l, _, err := logging.New(config.LoggingConfig{Level: "debug", Format: "console", Output: "stderr"}, config.AppConfig{Name: "guestctl"})
		if err != nil {
			return err
		}
		logger = *l
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	db, err := database.NewDB(*dbPath, &logger)
	if err != nil {
		return fmt.Errorf("open credential store: %w", err)
	}
	defer db.Close()

	client := backend.NewClient(strings.TrimRight(*baseURL, "/"), backend.WithTimeout(*timeout), backend.WithLogger(&logger))
	sess := session.NewStore(cliSessionID, db, client, session.WithLogger(&logger))
	sess.Init(ctx)
	if _, err := sess.Wait(ctx); err != nil {
		return err
	}

	a := &app{
		sess:      sess,
		auth:      service.NewAuthService(client, &logger),
		catalog:   service.NewCatalogService(client, 0, &logger),
		checkout:  service.NewCheckoutService(client, nil, &logger),
		concierge: service.NewConciergeService(client, latest.NewTracker(), &logger),
		out:       os.Stdout,
	}

	cmd, rest := fs.Arg(0), fs.Args()[1:]
	switch cmd {
	case "login":
		return a.login(ctx, os.Stdin)
	case "logout":
		return a.logout(ctx)
	case "whoami":
		return a.whoami(ctx)
	case "rooms":
		return a.rooms(ctx)
	case "find-booking":
		if len(rest) != 1 {
			return errors.New("find-booking takes exactly one confirmation code")
		}
		return a.findBooking(ctx, rest[0])
	case "chat":
		if len(rest) == 0 {
			return errors.New("chat needs a message")
		}
		return a.chat(ctx, strings.Join(rest, " "))
	default:
		fs.Usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func (a *app) login(ctx context.Context, in *os.File) error {
	reader := bufio.NewReader(in)
	fmt.Fprint(a.out, "Email: ")
	email, err := reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}

	password, err := readPassword(in, reader)
	if err != nil {
		return err
	}

	snap, err := a.auth.Login(ctx, a.sess, models.LoginRequest{Email: strings.TrimSpace(email), Password: password})
	if err != nil {
		return describe(err)
	}
	fmt.Fprintf(a.out, "Signed in as %s (%s)\n", snap.User.Name, snap.Role)
	return nil
}

// readPassword reads without echo from a terminal and falls back to a plain line for pipes.
func readPassword(in *os.File, reader *bufio.Reader) (string, error) {
	fd := int(in.Fd())
	if !term.IsTerminal(fd) {
		line, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", err
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	fmt.Fprint(os.Stderr, "Password: ")
	raw, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(raw), nil
}

func (a *app) logout(ctx context.Context) error {
	if err := a.auth.Logout(ctx, a.sess); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Signed out")
	return nil
}

func (a *app) whoami(ctx context.Context) error {
	if !a.sess.Snapshot().IsAuthenticated() {
		return errors.New("not signed in, run `guestctl login`")
	}
	user, err := a.auth.Profile(ctx, a.sess)
	if err != nil {
		return describe(err)
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Name:\t%s\n", user.Name)
	fmt.Fprintf(tw, "Email:\t%s\n", user.Email)
	fmt.Fprintf(tw, "Phone:\t%s\n", user.PhoneNumber)
	fmt.Fprintf(tw, "Role:\t%s\n", user.Role)
	fmt.Fprintf(tw, "Bookings:\t%d\n", len(user.Bookings))
	for _, b := range user.Bookings {
		fmt.Fprintf(tw, "\t%s  %s -> %s\n", b.BookingConfirmationCode, b.CheckInDate, b.CheckOutDate)
	}
	return tw.Flush()
}

func (a *app) rooms(ctx context.Context) error {
	rooms, err := a.catalog.Rooms(ctx, a.sess)
	if err != nil {
		return describe(err)
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTYPE\tPRICE")
	for _, r := range rooms {
		fmt.Fprintf(tw, "%d\t%s\t%.2f\n", r.ID, r.RoomType, r.RoomPrice)
	}
	return tw.Flush()
}

func (a *app) findBooking(ctx context.Context, code string) error {
	booking, err := a.checkout.FindBooking(ctx, a.sess, code)
	if err != nil {
		return describe(err)
	}
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(booking)
}

func (a *app) chat(ctx context.Context, message string) error {
	reply, err := a.concierge.Chat(ctx, a.sess, message)
	if err != nil {
		return describe(err)
	}
	fmt.Fprintln(a.out, reply)
	return nil
}

// describe turns backend failures into the message the backend sent.
func describe(err error) error {
	var verr *service.ValidationError
	if errors.As(err, &verr) {
		return verr
	}
	if be, ok := backend.AsError(err); ok {
		if be.Transport() {
			return fmt.Errorf("backend unreachable: %w", be.Err)
		}
		return errors.New(be.Message)
	}
	return err
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func defaultDBPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "guestctl.db"
	}
	return filepath.Join(dir, "hotelfront", "guestctl.db")
}
