package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/pkg/errors"

	"ecoquest/internal/api"
	"ecoquest/internal/device/scanner"
	"ecoquest/internal/models"
	"ecoquest/internal/notify"
	"ecoquest/internal/service"
	"ecoquest/internal/session"
	"ecoquest/internal/validation"
)

// errUsage means the command line was malformed; usage has already been printed
var errUsage = errors.New("usage")

// errNotSignedIn is returned by commands that need a teacher identity
var errNotSignedIn = errors.New("not signed in; run `teacher login -email <address>` first")

// AuthAPI signs the teacher in
type AuthAPI interface {
	TeacherLogin(ctx context.Context, req api.TeacherLoginRequest) (*api.TeacherLoginResponse, error)
}

// app holds everything a command needs
type app struct {
	auth      AuthAPI
	identity  *session.Scope
	dashboard *service.DashboardService
	classroom *service.ClassroomService
	students  *service.StudentService
	cards     *service.CardService

	in           *bufio.Reader
	out          io.Writer
	readPassword func() (string, error)
	scanTimeout  time.Duration
}

type command struct {
	name  string
	usage string
	run   func(a *app, ctx context.Context, args []string) error
}

var commands = []command{
	{name: "login", usage: "login -email <address>", run: (*app).login},
	{name: "logout", usage: "logout", run: (*app).logout},
	{name: "whoami", usage: "whoami", run: (*app).whoami},
	{name: "dashboard", usage: "dashboard", run: (*app).showDashboard},
	{name: "approve", usage: "approve -id <submission> [-yes]", run: (*app).approve},
	{name: "reject", usage: "reject -id <submission> [-yes]", run: (*app).reject},
	{name: "add-student", usage: "add-student -name <full name> -class <class> [-card <code> | -scan]", run: (*app).addStudent},
	{name: "card", usage: "card -code <card code> -out <file.png>", run: (*app).card},
	{name: "digest", usage: "digest", run: (*app).digest},
	{name: "leaderboard", usage: "leaderboard", run: (*app).leaderboard},
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "EcoQuest teacher CLI")
	fmt.Fprintln(w, "\nUsage:")
	for _, c := range commands {
		fmt.Fprintf(w, "  teacher %s\n", c.usage)
	}
}

// run dispatches args[0] to its command
func run(ctx context.Context, a *app, args []string) error {
	if len(args) == 0 {
		printUsage(a.out)
		return errUsage
	}
	for _, c := range commands {
		if c.name == args[0] {
			return c.run(a, ctx, args[1:])
		}
	}
	fmt.Fprintf(a.out, "Unknown command %q\n\n", args[0])
	printUsage(a.out)
	return errUsage
}

func (a *app) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.out)
	return fs
}

func parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	return nil
}

// describe turns err into the one line shown to the user
func describe(err error) string {
	var verr *validation.ValidationError
	if errors.As(err, &verr) && len(verr.Fields) > 0 {
		parts := make([]string, 0, len(verr.Fields))
		for _, f := range verr.Fields {
			parts = append(parts, f.Message)
		}
		return verr.Error() + " (" + strings.Join(parts, "; ") + ")"
	}
	if notify.Expected(err) {
		return notify.FromError(err).Message
	}
	return err.Error()
}

func (a *app) teacher(ctx context.Context) (models.Identity, error) {
	identity, err := a.identity.GetIdentity(ctx)
	if err != nil {
		return models.Identity{}, errors.Wrap(err, "read identity")
	}
	if !identity.Is(models.RoleTeacher) {
		return models.Identity{}, errNotSignedIn
	}
	return *identity, nil
}

func (a *app) login(ctx context.Context, args []string) error {
	fs := a.flags("login")
	email := fs.String("email", "", "Teacher email address")
	if err := parse(fs, args); err != nil {
		return err
	}

	fmt.Fprint(a.out, "Password: ")
	password, err := a.readPassword()
	fmt.Fprintln(a.out)
	if err != nil {
		return errors.Wrap(err, "read password")
	}

	req := api.TeacherLoginRequest{Email: strings.TrimSpace(*email), Password: password}
	if err := validation.Struct(req); err != nil {
		return err
	}
	resp, err := a.auth.TeacherLogin(ctx, req)
	if err != nil {
		return err
	}
	identity := resp.Identity(req.Email)
	if err := a.identity.SaveIdentity(ctx, identity); err != nil {
		if errors.Is(err, session.ErrRoleChange) {
			return errors.New("a student is signed in on this machine; run `teacher logout` first")
		}
		return errors.Wrap(err, "save identity")
	}

	fmt.Fprintf(a.out, "Signed in as %s <%s>\n", identity.FullName, identity.Email)
	return nil
}

func (a *app) logout(ctx context.Context, args []string) error {
	if err := a.identity.Clear(ctx); err != nil {
		return errors.Wrap(err, "clear identity")
	}
	fmt.Fprintln(a.out, "Signed out.")
	return nil
}

func (a *app) whoami(ctx context.Context, args []string) error {
	identity, err := a.identity.GetIdentity(ctx)
	if err != nil {
		return errors.Wrap(err, "read identity")
	}
	if identity == nil {
		fmt.Fprintln(a.out, "Not signed in.")
		return nil
	}
	switch identity.Role {
	case models.RoleTeacher:
		fmt.Fprintf(a.out, "%s <%s> (teacher %s)\n", identity.FullName, identity.Email, identity.TeacherID)
	default:
		fmt.Fprintf(a.out, "%s (student %s)\n", identity.FullName, identity.StudentID)
	}
	return nil
}

func (a *app) showDashboard(ctx context.Context, args []string) error {
	teacher, err := a.teacher(ctx)
	if err != nil {
		return err
	}
	dash, err := a.dashboard.Refresh(ctx, teacher.TeacherID)
	if err != nil {
		return err
	}
	a.printDashboard(dash)
	return nil
}

func (a *app) printDashboard(dash *service.Dashboard) {
	an := dash.Analytics
	fmt.Fprintf(a.out, "Class analytics: %d students, average %.1f points\n", an.Total, an.AveragePoints)
	fmt.Fprintf(a.out, "  Beginner (0-%d):       %d\n", service.BeginnerMaxPoints, an.Beginner)
	fmt.Fprintf(a.out, "  Intermediate (%d-%d): %d\n", service.BeginnerMaxPoints+1, service.IntermediateMaxPoints, an.Intermediate)
	fmt.Fprintf(a.out, "  Advanced (%d+):       %d\n", service.IntermediateMaxPoints+1, an.Advanced)

	fmt.Fprintf(a.out, "\nPending submissions (%d)\n", len(dash.Pending))
	if len(dash.Pending) == 0 {
		fmt.Fprintln(a.out, "  Nothing to review.")
	} else {
		tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "  ID\tSTUDENT\tTASK\tSUBMITTED")
		for _, s := range dash.Pending {
			fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n", s.ID, s.StudentName, s.TaskTitle, submittedAt(s))
		}
		tw.Flush()
	}

	fmt.Fprintf(a.out, "\nRoster (%d)\n", len(dash.Roster))
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "  NAME\tCLASS\tPOINTS")
	for _, r := range dash.Roster {
		fmt.Fprintf(tw, "  %s\t%s\t%d\n", r.FullName, r.ClassName, r.Points)
	}
	tw.Flush()
}

func submittedAt(s models.Submission) string {
	if s.SubmittedAt.IsZero() {
		return "-"
	}
	return s.SubmittedAt.Local().Format("Jan 2, 2006 15:04")
}

func (a *app) approve(ctx context.Context, args []string) error {
	fs := a.flags("approve")
	id := fs.String("id", "", "Submission ID")
	yes := fs.Bool("yes", false, "Skip the confirmation prompt")
	if err := parse(fs, args); err != nil {
		return err
	}
	return a.review(ctx, "approve", *id, *yes)
}

func (a *app) reject(ctx context.Context, args []string) error {
	fs := a.flags("reject")
	id := fs.String("id", "", "Submission ID")
	yes := fs.Bool("yes", false, "Skip the confirmation prompt")
	if err := parse(fs, args); err != nil {
		return err
	}
	return a.review(ctx, "reject", *id, *yes)
}

func (a *app) review(ctx context.Context, action, id string, confirmed bool) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return validation.New("-id is required")
	}
	teacher, err := a.teacher(ctx)
	if err != nil {
		return err
	}
	if !confirmed && !a.confirm(fmt.Sprintf("Really %s submission %s?", action, id)) {
		fmt.Fprintln(a.out, "Cancelled.")
		return nil
	}

	var dash *service.Dashboard
	done := "approved"
	if action == "approve" {
		dash, err = a.dashboard.Approve(ctx, teacher.TeacherID, id)
	} else {
		dash, err = a.dashboard.Reject(ctx, teacher.TeacherID, id)
		done = "rejected"
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Submission %s %s. %d still pending.\n", id, done, len(dash.Pending))
	return nil
}

// confirm asks a y/N question on the input
func (a *app) confirm(question string) bool {
	fmt.Fprintf(a.out, "%s [y/N]: ", question)
	answer, _ := a.in.ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	}
	return false
}

func (a *app) addStudent(ctx context.Context, args []string) error {
	fs := a.flags("add-student")
	name := fs.String("name", "", "Student full name")
	class := fs.String("class", "", "Class name")
	card := fs.String("card", "", "Student ID card code (generated when empty)")
	scan := fs.Bool("scan", false, "Read the card code from a barcode reader on stdin")
	if err := parse(fs, args); err != nil {
		return err
	}

	teacher, err := a.teacher(ctx)
	if err != nil {
		return err
	}

	code := strings.TrimSpace(*card)
	switch {
	case code != "":
	case *scan:
		fmt.Fprintln(a.out, "Scan the student's ID card...")
		if code, err = a.scanCard(ctx); err != nil {
			return err
		}
	default:
		code = service.GenerateCardCode()
	}

	req := api.AddStudentRequest{FullName: *name, ClassName: *class, StudentIDCard: code}
	if err := a.classroom.AddStudent(ctx, teacher.TeacherID, req); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Added %s with card %s\n", strings.TrimSpace(*name), code)
	return nil
}

// scanCard reads one code from a keyboard-wedge reader on the input
func (a *app) scanCard(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.scanTimeout)
	defer cancel()

	codes := make(chan string, 1)
	sc := scanner.New(nil, 0)
	err := sc.Start(ctx, scanner.NewLineSource(a.in), func(text string) {
		select {
		case codes <- text:
		default:
		}
	})
	if err != nil {
		return "", err
	}
	defer sc.Stop()

	select {
	case code := <-codes:
		return code, nil
	case <-ctx.Done():
		if serr := sc.Err(); serr != nil {
			return "", errors.Wrap(serr, "read card")
		}
		return "", errors.New("no card scanned")
	}
}

func (a *app) card(ctx context.Context, args []string) error {
	fs := a.flags("card")
	code := fs.String("code", "", "Card code to encode")
	out := fs.String("out", "", "Output PNG file")
	if err := parse(fs, args); err != nil {
		return err
	}
	if strings.TrimSpace(*out) == "" {
		return validation.New("-out is required")
	}
	if err := a.cards.WriteFile(*code, *out); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Wrote %s\n", *out)
	return nil
}

func (a *app) digest(ctx context.Context, args []string) error {
	teacher, err := a.teacher(ctx)
	if err != nil {
		return err
	}
	if !a.dashboard.DigestEnabled() {
		return errors.New("email digest is disabled; set SES_FROM_EMAIL to enable it")
	}
	if err := a.dashboard.SendDigest(ctx, teacher); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Digest sent to %s\n", teacher.Email)
	return nil
}

func (a *app) leaderboard(ctx context.Context, args []string) error {
	ranked, err := a.students.Leaderboard(ctx)
	if err != nil {
		return err
	}
	if len(ranked) == 0 {
		fmt.Fprintln(a.out, "No students yet.")
		return nil
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tNAME\tPOINTS")
	for _, e := range ranked {
		fmt.Fprintf(tw, "%d\t%s\t%d\n", e.Rank, e.FullName, e.Points)
	}
	return tw.Flush()
}
