package main

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/ogurasousui/shiftboard/internal/client/guard"
	"github.com/ogurasousui/shiftboard/internal/client/repository"
	"golang.org/x/sync/errgroup"
)

// open はガードを通して画面に遷移し、許可された画面を表示します。
func (a *app) open(ctx context.Context, path string) error {
	out, err := a.guard.Navigate(path)
	if err != nil {
		return err
	}
	switch out.State {
	case guard.StateRedirectLogin:
		fmt.Fprintf(a.out, "login required (redirected to %s)\n", out.Path)
		return nil
	case guard.StateRedirectDefault:
		fmt.Fprintf(a.out, "admin only (redirected to %s)\n", out.Path)
	}

	ticket := a.seq.Begin()
	render, err := a.load(ctx, out.Path)
	if err != nil {
		return err
	}
	a.seq.Apply(ticket, render)
	return nil
}

// load は画面のデータを取得し、表示処理を返します。
func (a *app) load(ctx context.Context, path string) (func(), error) {
	switch path {
	case guard.RouteLogin:
		return func() {
			fmt.Fprintln(a.out, "run `shiftctl login -username NAME` to sign in")
		}, nil
	case guard.RouteDashboard:
		employees, shifts, err := a.loadRoster(ctx, repository.ShiftFilter{Date: time.Now().Format("2006-01-02")})
		if err != nil {
			return nil, err
		}
		return func() { a.renderDashboard(employees, shifts) }, nil
	case guard.RouteEmployees:
		employees, err := a.repo.Employees.List(ctx)
		if err != nil {
			return nil, err
		}
		return func() { a.renderEmployees(employees) }, nil
	case guard.RouteShifts:
		employees, shifts, err := a.loadRoster(ctx, repository.ShiftFilter{})
		if err != nil {
			return nil, err
		}
		return func() { a.renderShifts(employees, shifts) }, nil
	case guard.RouteAdmin:
		users, err := a.repo.Accounts.List(ctx)
		if err != nil {
			return nil, err
		}
		return func() { a.renderAccounts(users) }, nil
	default:
		return nil, fmt.Errorf("%w: %s", guard.ErrUnknownRoute, path)
	}
}

// loadRoster は社員一覧とシフト一覧を並行して取得します。
func (a *app) loadRoster(ctx context.Context, filter repository.ShiftFilter) ([]repository.Employee, []repository.Shift, error) {
	var (
		employees []repository.Employee
		shifts    []repository.Shift
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		employees, err = a.repo.Employees.List(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		shifts, err = a.repo.Shifts.List(gctx, filter)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return employees, shifts, nil
}

func (a *app) renderDashboard(employees []repository.Employee, today []repository.Shift) {
	cur := a.session.Current()
	fmt.Fprintf(a.out, "signed in as %s (%s)\n", cur.Username, cur.Role)
	fmt.Fprintf(a.out, "employees: %d\nshifts today: %d\n", len(employees), len(today))
	if len(today) > 0 {
		fmt.Fprintln(a.out)
		a.renderShifts(employees, today)
	}
}

func (a *app) renderEmployees(employees []repository.Employee) {
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCODE\tNAME\tDEPARTMENT")
	for _, e := range employees {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", e.ID, e.EmployeeCode, e.Name, e.Department)
	}
	_ = tw.Flush()
}

func (a *app) renderShifts(employees []repository.Employee, shifts []repository.Shift) {
	names := make(map[int64]string, len(employees))
	for _, e := range employees {
		names[e.ID] = e.Name
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tEMPLOYEE\tTIME\tTYPE")
	for _, s := range shifts {
		name, ok := names[s.EmployeeID]
		if !ok {
			name = fmt.Sprintf("#%d", s.EmployeeID)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", s.ID, s.Date, name, timeRange(s), dash(s.ShiftType))
	}
	_ = tw.Flush()
}

func (a *app) renderAccounts(users []repository.User) {
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tUSERNAME\tROLE\tEMPLOYEE")
	for _, u := range users {
		emp := "-"
		if u.EmployeeID != nil {
			emp = fmt.Sprint(*u.EmployeeID)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", u.ID, u.Username, u.Role, emp)
	}
	_ = tw.Flush()
}

func timeRange(s repository.Shift) string {
	if s.StartTime == "" && s.EndTime == "" {
		return "-"
	}
	return strings.TrimSpace(dash(s.StartTime) + "-" + dash(s.EndTime))
}

func dash(v string) string {
	if v == "" {
		return "-"
	}
	return v
}
