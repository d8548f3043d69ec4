package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"

	"github.com/ogurasousui/shiftboard/internal/client/api"
	clientcfg "github.com/ogurasousui/shiftboard/internal/client/config"
	"github.com/ogurasousui/shiftboard/internal/client/export"
	"github.com/ogurasousui/shiftboard/internal/client/guard"
	"github.com/ogurasousui/shiftboard/internal/client/repository"
	"github.com/ogurasousui/shiftboard/internal/client/session"
	"github.com/ogurasousui/shiftboard/internal/core/access"
	"github.com/redis/go-redis/v9"
)

var errUsage = errors.New("shiftctl: invalid usage")

type app struct {
	out     io.Writer
	baseURL string
	client  *api.Client
	session *session.Store
	repo    *repository.Repository
	guard   *guard.Guard
	seq     guard.Sequencer
	closers []func() error
}

func newApp(ctx context.Context, cfg *clientcfg.Config, out io.Writer) (*app, error) {
	a := &app{out: out, baseURL: cfg.BaseURL}

	storage, err := a.openStorage(cfg.Session)
	if err != nil {
		return nil, err
	}
	a.session = session.NewStore(storage)
	a.session.Restore(ctx)

	a.client, err = api.New(cfg.BaseURL, a.session, api.WithTimeout(cfg.Timeout))
	if err != nil {
		return nil, err
	}
	a.repo = repository.New(a.client, a.session)
	a.guard = guard.New(a.session)
	return a, nil
}

func (a *app) openStorage(cfg clientcfg.SessionConfig) (session.Storage, error) {
	switch cfg.Backend {
	case clientcfg.SessionMemory:
		return session.NewMemoryStorage(), nil
	case clientcfg.SessionRedis:
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
		a.closers = append(a.closers, rdb.Close)
		return session.NewRedisStorage(rdb, session.DefaultRedisPrefix, cfg.TTL), nil
	default:
		path := cfg.Path
		if path == "" {
			p, err := session.DefaultFilePath()
			if err != nil {
				return nil, err
			}
			path = p
		}
		return session.NewFileStorage(path), nil
	}
}

func (a *app) close() {
	for _, c := range a.closers {
		if err := c(); err != nil {
			log.Printf("close: %v", err)
		}
	}
}

// report はエラーを表示し、認証・認可エラーの場合はガードによる遷移結果も表示します。
func (a *app) report(ctx context.Context, err error) {
	log.Printf("error: %v", err)
	switch api.KindOf(err) {
	case api.KindAuth, api.KindAuthorization:
		if out, ok := a.guard.Recover(ctx, err); ok {
			if out.State == guard.StateRedirectLogin {
				log.Printf("session cleared; run `shiftctl login` (-> %s)", out.Path)
			} else {
				log.Printf("insufficient role; returning to %s", out.Path)
			}
		}
	case api.KindReferential:
		log.Printf("hint: list employees with `shiftctl open /employees`")
	case api.KindNotFound:
		log.Printf("hint: the record may already have been deleted")
	case api.KindTransport:
		if api.HTTPStatus(err) == 0 {
			log.Printf("hint: is the server reachable at %s?", a.baseURL)
		}
	}
}

func (a *app) dispatch(ctx context.Context, args []string) error {
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "login":
		return a.login(ctx, rest)
	case "logout":
		a.session.Logout(ctx)
		fmt.Fprintln(a.out, "logged out")
		return nil
	case "whoami":
		return a.whoami()
	case "open":
		if len(rest) != 1 {
			return errUsage
		}
		return a.open(ctx, rest[0])
	case "employees":
		return a.employees(ctx, rest)
	case "shifts":
		return a.shifts(ctx, rest)
	case "admin":
		return a.admin(ctx, rest)
	default:
		return errUsage
	}
}

func (a *app) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	username := fs.String("username", "", "account name")
	password := fs.String("password", os.Getenv("SHIFTBOARD_PASSWORD"), "password (or SHIFTBOARD_PASSWORD)")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	res, err := a.client.Login(ctx, *username, *password)
	if err != nil {
		return err
	}
	a.session.Login(ctx, res.Token, res.Role, res.Username)
	fmt.Fprintf(a.out, "logged in as %s (%s)\n", res.Username, res.Role)
	return nil
}

func (a *app) whoami() error {
	cur := a.session.Current()
	if !cur.Authenticated() {
		fmt.Fprintln(a.out, "not logged in")
		return nil
	}
	fmt.Fprintf(a.out, "%s (%s)\n", cur.Username, cur.Role)
	return nil
}

func (a *app) employees(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	switch args[0] {
	case "add":
		fs := flag.NewFlagSet("employees add", flag.ContinueOnError)
		name := fs.String("name", "", "employee name")
		dept := fs.String("department", "", "department")
		code := fs.String("code", "", "employee code (derived from the id when omitted)")
		if err := fs.Parse(args[1:]); err != nil {
			return errUsage
		}
		e, err := a.repo.Employees.Create(ctx, repository.CreateEmployeeInput{Name: *name, EmployeeCode: *code, Department: *dept})
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "created employee %d (%s)\n", e.ID, e.EmployeeCode)
		return nil
	case "rm":
		id, err := positionalID(args[1:])
		if err != nil {
			return err
		}
		if err := a.repo.Employees.Delete(ctx, id); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "deleted employee %d\n", id)
		return nil
	default:
		return errUsage
	}
}

func (a *app) shifts(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	switch args[0] {
	case "add":
		fs := flag.NewFlagSet("shifts add", flag.ContinueOnError)
		emp := fs.String("employee", "", "employee id")
		date := fs.String("date", "", "YYYY-MM-DD")
		start := fs.String("start", "", "HH:MM")
		end := fs.String("end", "", "HH:MM")
		kind := fs.String("type", "", "shift type")
		if err := fs.Parse(args[1:]); err != nil {
			return errUsage
		}
		empID, err := repository.ParseEmployeeID(*emp)
		if err != nil {
			return err
		}
		s, err := a.repo.Shifts.Create(ctx, repository.CreateShiftInput{
			EmployeeID: empID, Date: *date, StartTime: *start, EndTime: *end, ShiftType: *kind,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "created shift %d\n", s.ID)
		return nil
	case "rm":
		id, err := positionalID(args[1:])
		if err != nil {
			return err
		}
		if err := a.repo.Shifts.Delete(ctx, id); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "deleted shift %d\n", id)
		return nil
	case "export":
		fs := flag.NewFlagSet("shifts export", flag.ContinueOnError)
		outPath := fs.String("o", "roster.xlsx", "output file")
		filter, err := parseShiftFilter(fs, args[1:])
		if err != nil {
			return err
		}
		return a.exportRoster(ctx, *outPath, filter)
	default:
		return errUsage
	}
}

func (a *app) admin(ctx context.Context, args []string) error {
	if len(args) == 0 || args[0] != "assign" {
		return errUsage
	}
	fs := flag.NewFlagSet("admin assign", flag.ContinueOnError)
	emp := fs.String("employee", "", "employee id")
	rawRole := fs.String("role", "", "USER or ADMIN")
	if err := fs.Parse(args[1:]); err != nil {
		return errUsage
	}
	empID, err := repository.ParseEmployeeID(*emp)
	if err != nil {
		return err
	}
	role, err := access.ParseRole(*rawRole)
	if err != nil {
		return api.NewError(api.KindValidation, "role must be USER or ADMIN")
	}
	msg, err := a.repo.Accounts.AssignRole(ctx, empID, role)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, msg)
	return nil
}

func (a *app) exportRoster(ctx context.Context, path string, filter repository.ShiftFilter) error {
	employees, shifts, err := a.loadRoster(ctx, filter)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := export.WriteRoster(f, employees, shifts); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	fmt.Fprintf(a.out, "wrote %d shifts to %s\n", len(shifts), path)
	return nil
}

func parseShiftFilter(fs *flag.FlagSet, args []string) (repository.ShiftFilter, error) {
	emp := fs.String("employee", "", "filter by employee id")
	date := fs.String("date", "", "filter by date (YYYY-MM-DD)")
	if err := fs.Parse(args); err != nil {
		return repository.ShiftFilter{}, errUsage
	}
	filter := repository.ShiftFilter{Date: *date}
	if *emp != "" {
		id, err := repository.ParseEmployeeID(*emp)
		if err != nil {
			return repository.ShiftFilter{}, err
		}
		filter.EmployeeID = &id
	}
	return filter, nil
}

func positionalID(args []string) (int64, error) {
	if len(args) != 1 {
		return 0, errUsage
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return 0, api.NewError(api.KindValidation, "id must be a positive integer")
	}
	return id, nil
}
