package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"text/tabwriter"

	"golang.org/x/term"

	"github.com/noah-isme/cbcs-registration/internal/dto"
	"github.com/noah-isme/cbcs-registration/internal/models"
	"github.com/noah-isme/cbcs-registration/pkg/config"
	appErrors "github.com/noah-isme/cbcs-registration/pkg/errors"
)

const usage = `usage: cbcsctl [-server URL] [-token-file PATH] <command> [args]

commands:
  login [-user NAME]                 authenticate and store the session token
  logout                             end the session and remove the token file
  dashboard                          show the registration ledger
  add <course-id>                    select a course
  remove <course-id>                 deselect a course
  submit [course-id ...]             submit the selection as one batch
  import <courses|students> <file> [-program NAME] [-async]
  job <job-id>                       show a background import
`

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	global := flag.NewFlagSet("cbcsctl", flag.ExitOnError)
	global.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	server := global.String("server", fmt.Sprintf("http://localhost:%d%s", cfg.Port, cfg.APIPrefix), "portal API base URL")
	tokenFile := global.String("token-file", cfg.CLI.TokenFile, "where the session token is kept")
	_ = global.Parse(os.Args[1:])

	args := global.Args()
	if len(args) == 0 {
		global.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cli := &cli{tokenFile: *tokenFile, out: os.Stdout}
	cli.client = newGatewayClient(*server, cli.readToken())

	if err := cli.run(ctx, args[0], args[1:]); err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			fmt.Fprintf(os.Stderr, "error: %s (%s)\n", appErr.Message, appErr.Code)
		} else {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}

type cli struct {
	client    *gatewayClient
	tokenFile string
	out       io.Writer
}

func (c *cli) run(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "login":
		return c.login(ctx, args)
	case "logout":
		return c.logout(ctx)
	case "dashboard":
		return c.dashboard(ctx)
	case "add", "remove":
		if len(args) != 1 {
			return fmt.Errorf("%s needs exactly one course id", cmd)
		}
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid course id %q", args[0])
		}
		method := http.MethodPost
		if cmd == "remove" {
			method = http.MethodDelete
		}
		return c.mutate(ctx, method, fmt.Sprintf("/student/courses/%d", id), nil)
	case "submit":
		ids := make([]int, 0, len(args))
		for _, a := range args {
			id, err := strconv.Atoi(a)
			if err != nil {
				return fmt.Errorf("invalid course id %q", a)
			}
			ids = append(ids, id)
		}
		return c.mutate(ctx, http.MethodPost, "/student/enrollment/submit", dto.SubmitEnrollmentRequest{CourseIDs: ids})
	case "import":
		return c.importFile(ctx, args)
	case "job":
		if len(args) != 1 {
			return errors.New("job needs a job id")
		}
		var job models.ImportJob
		if err := c.client.do(ctx, http.MethodGet, "/admin/imports/"+args[0], nil, &job); err != nil {
			return err
		}
		fmt.Fprintf(c.out, "job %s: %s\n", job.ID, job.Status)
		if job.Error != "" {
			fmt.Fprintf(c.out, "  %s\n", job.Error)
		}
		c.printImport(job.Result)
		return nil
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func (c *cli) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	user := fs.String("user", "", "registrar username")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *user == "" {
		fmt.Fprint(os.Stderr, "Username: ")
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		*user = strings.TrimSpace(line)
	}
	fmt.Fprint(os.Stderr, "Password: ")
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}

	var res models.LoginResponse
	if err := c.client.do(ctx, http.MethodPost, "/auth/login", models.LoginRequest{Username: *user, Password: string(password)}, &res); err != nil {
		return err
	}
	if err := os.WriteFile(c.tokenFile, []byte(res.AccessToken), 0o600); err != nil {
		return fmt.Errorf("store token: %w", err)
	}
	fmt.Fprintf(c.out, "logged in as %s (%s)\n", res.User.Username, res.User.UserType)
	return nil
}

func (c *cli) logout(ctx context.Context) error {
	err := c.client.do(ctx, http.MethodPost, "/auth/logout", nil, nil)
	if rmErr := os.Remove(c.tokenFile); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
		return rmErr
	}
	if err != nil && !errors.Is(err, appErrors.ErrAuth) {
		return err
	}
	fmt.Fprintln(c.out, "logged out")
	return nil
}

func (c *cli) dashboard(ctx context.Context) error {
	var view dto.LedgerView
	if err := c.client.do(ctx, http.MethodGet, "/student/dashboard", nil, &view); err != nil {
		return err
	}
	c.printLedger(&view)
	return nil
}

// mutate prints the returned ledger even when the registrar rejected the change.
func (c *cli) mutate(ctx context.Context, method, path string, body interface{}) error {
	var view dto.LedgerView
	err := c.client.do(ctx, method, path, body, &view)
	if view.CreditCeiling > 0 {
		c.printLedger(&view)
	}
	return err
}

func (c *cli) importFile(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return errors.New("import needs a kind and a file")
	}
	kind, file := args[0], args[1]
	if kind != string(models.ImportKindCourses) && kind != string(models.ImportKindStudents) {
		return fmt.Errorf("unknown import kind %q", kind)
	}
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	program := fs.String("program", "", "program for student rows")
	async := fs.Bool("async", false, "run in the background")
	if err := fs.Parse(args[2:]); err != nil {
		return err
	}

	path := "/admin/imports/" + kind
	if *async {
		var accepted dto.ImportAccepted
		if err := c.client.upload(ctx, path+"?async=true", file, map[string]string{"program": *program}, &accepted); err != nil {
			return err
		}
		fmt.Fprintf(c.out, "queued job %s\n", accepted.JobID)
		return nil
	}

	var result models.ImportResult
	err := c.client.upload(ctx, path, file, map[string]string{"program": *program}, &result)
	c.printImport(&result)
	return err
}

func (c *cli) printLedger(v *dto.LedgerView) {
	fmt.Fprintf(c.out, "%s  %s  %s  semester %d\n", v.Profile.Username, v.Profile.FullName, v.Profile.Batch, v.CurrentSemester)
	fmt.Fprintf(c.out, "credits %d / %d (%d remaining)\n", v.CreditTotal, v.CreditCeiling, v.CreditsRemaining)
	if v.Sync != nil {
		fmt.Fprintf(c.out, "sync: %s\n", v.Sync.Status)
	}

	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "\nSELECTED\tCODE\tNAME\tSEM\tCREDITS\tSTATE")
	for _, e := range v.Enrolled {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%s\n", e.Course.ID, e.Course.Code, e.Course.Name, e.Course.Semester, e.Course.Credit, e.State)
	}
	fmt.Fprintln(tw, "\nAVAILABLE\tCODE\tNAME\tSEM\tCREDITS\t")
	for _, g := range v.Available {
		for _, course := range g.Courses {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t\n", course.ID, course.Code, course.Name, course.Semester, course.Credit)
		}
	}
	_ = tw.Flush()
}

func (c *cli) printImport(r *models.ImportResult) {
	if r == nil || r.Total == 0 {
		return
	}
	fmt.Fprintf(c.out, "%d rows: %d imported, %d failed\n", r.Total, r.Succeeded, r.Failed)
	for _, f := range r.Failures {
		fmt.Fprintf(c.out, "  row %d %s: %s\n", f.Row, f.Identifier, f.Message)
	}
}

func (c *cli) readToken() string {
	raw, err := os.ReadFile(c.tokenFile)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(raw))
}
