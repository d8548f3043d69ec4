package repository

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/ogurasousui/shiftboard/internal/core/access"
)

type Shifts struct {
	base
}

// List はフィルタに一致するシフトを返します。フィルタが空の場合の範囲はサーバーに委ねます。
func (s *Shifts) List(ctx context.Context, filter ShiftFilter) ([]Shift, error) {
	q := url.Values{}
	if filter.EmployeeID != nil {
		if err := validID(*filter.EmployeeID, "employee"); err != nil {
			return nil, err
		}
		q.Set("employee", strconv.FormatInt(*filter.EmployeeID, 10))
	}
	if strings.TrimSpace(filter.Date) != "" {
		date, err := validDate(filter.Date)
		if err != nil {
			return nil, err
		}
		q.Set("date", date)
	}

	var out []Shift
	if err := s.transport.Do(ctx, http.MethodGet, "/shifts", q, nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []Shift{}
	}
	return out, nil
}

// Create はシフトを登録します。従業員の存在確認はサーバーが行い REFERENTIAL_ERROR を返します。
func (s *Shifts) Create(ctx context.Context, in CreateShiftInput) (*Shift, error) {
	if err := s.authorize(access.CreateShift); err != nil {
		return nil, err
	}
	if err := validID(in.EmployeeID, "employeeId"); err != nil {
		return nil, err
	}
	date, err := validDate(in.Date)
	if err != nil {
		return nil, err
	}
	in.Date = date
	in.StartTime = strings.TrimSpace(in.StartTime)
	in.EndTime = strings.TrimSpace(in.EndTime)
	in.ShiftType = strings.TrimSpace(in.ShiftType)

	var out Shift
	if err := s.transport.Do(ctx, http.MethodPost, "/shifts", nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Shifts) Delete(ctx context.Context, id int64) error {
	if err := s.authorize(access.DeleteShift); err != nil {
		return err
	}
	if err := validID(id, "id"); err != nil {
		return err
	}
	return s.transport.Do(ctx, http.MethodDelete, idPath("/shifts", id), nil, nil, nil)
}
