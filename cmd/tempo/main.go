package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	flag "github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/teamtempo/tempo/internal/dashboard"
	apiclient "github.com/teamtempo/tempo/pkg/api/client"
	"github.com/teamtempo/tempo/pkg/logger"
)

const requestTimeout = 15 * time.Second

var buildVersion = "dev"

var errNotLoggedIn = errors.New("please login first using 'tempo login'")

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "login":
		err = commandLogin(args)
	case "logout":
		err = commandLogout(args)
	case "teams":
		err = commandTeams(args)
	case "dashboard":
		err = commandDashboard(args)
	case "version", "--version", "-v":
		printVersion()
		return
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func commandLogin(args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	email := fs.StringP("email", "e", "", "Email address")
	password := fs.String("password", "", "Password (supply to avoid prompt)")
	apiBase := fs.String("api", "", "API base URL (default "+defaultAPIBaseURL+")")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if strings.TrimSpace(*email) == "" {
		return errors.New("--email is required")
	}

	secret := *password
	if strings.TrimSpace(secret) == "" {
		fmt.Print("Password: ")
		bytes, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Print("\n")
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}
		secret = string(bytes)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if strings.TrimSpace(*apiBase) != "" {
		cfg.APIBaseURL = *apiBase
	}

	client, err := apiclient.New(cfg.APIBaseURL)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	resp, err := client.Login(ctx, *email, secret)
	if err != nil {
		return err
	}
	cfg.AccessToken = resp.Tokens.AccessToken
	if err := saveConfig(cfg); err != nil {
		return err
	}
	fmt.Printf("logged in as %s\n", resp.User.Email)
	return nil
}

func commandLogout(args []string) error {
	fs := flag.NewFlagSet("logout", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, client, err := session()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	if err := client.Logout(ctx, cfg.AccessToken); err != nil {
		var apiErr apiclient.APIError
		if !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnauthorized {
			return err
		}
	}
	cfg.AccessToken = ""
	if err := saveConfig(cfg); err != nil {
		return err
	}
	fmt.Println("logged out")
	return nil
}

func commandTeams(args []string) error {
	fs := flag.NewFlagSet("teams", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, client, err := session()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	teams, err := client.ListTeams(ctx, cfg.AccessToken)
	if err != nil {
		return err
	}
	fmt.Println(renderTeams(teams))
	return nil
}

func commandDashboard(args []string) error {
	fs := flag.NewFlagSet("dashboard", flag.ContinueOnError)
	teamID := fs.StringP("team", "t", "", "Team identifier (default: first team)")
	projectID := fs.StringP("project", "p", "", "Project identifier (default: first project)")
	iterationID := fs.StringP("iteration", "i", "", "Iteration identifier (default: first iteration)")
	timeout := fs.Duration("timeout", 30*time.Second, "Overall time limit")
	verbose := fs.BoolP("verbose", "V", false, "Log dashboard events to stderr")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, client, err := session()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	if *verbose {
		log = logger.NewTo(os.Stderr, "tempo", slog.LevelDebug)
	}
	sess := dashboard.NewSession(ctx, apiSource{client: client, token: cfg.AccessToken},
		dashboard.WithLogger(log),
		dashboard.WithFetchTimeout(requestTimeout),
	)
	defer sess.Close()

	steps := []func(){sess.LoadTeams}
	if id := strings.TrimSpace(*teamID); id != "" {
		steps = append(steps, func() { sess.SelectTeam(id) })
	}
	if id := strings.TrimSpace(*projectID); id != "" {
		steps = append(steps, func() { sess.SelectProject(id) })
	}
	if id := strings.TrimSpace(*iterationID); id != "" {
		steps = append(steps, func() { sess.SelectIteration(id) })
	}
	for _, step := range steps {
		step()
		if err := sess.WaitIdle(ctx); err != nil {
			return fmt.Errorf("dashboard did not finish loading: %w", err)
		}
	}

	view := sess.View()
	fmt.Println(renderView(view))
	if errors.Is(sess.State().Hierarchy.TeamsErr(), dashboard.ErrAuth) {
		return errNotLoggedIn
	}
	return nil
}

func session() (cliConfig, *apiclient.Client, error) {
	cfg, err := loadConfig()
	if err != nil {
		return cliConfig{}, nil, err
	}
	if strings.TrimSpace(cfg.AccessToken) == "" {
		return cliConfig{}, nil, errNotLoggedIn
	}
	client, err := apiclient.New(cfg.APIBaseURL)
	if err != nil {
		return cliConfig{}, nil, err
	}
	return cfg, client, nil
}

func printUsage() {
	fmt.Printf("tempo CLI %s\n\n", buildVersion)
	fmt.Print(`Usage:
	tempo login --email user@example.com [--password secret] [--api http://localhost:4000]
	tempo logout
	tempo teams
	tempo dashboard [--team <team-id>] [--project <project-id>] [--iteration <iteration-id>]
	tempo version
`)
}

func printVersion() {
	fmt.Println(strings.TrimSpace(buildVersion))
}
