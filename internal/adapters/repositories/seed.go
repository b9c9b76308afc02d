package repositories

import (
	"encoding/json"
	"fleet-route-planner/internal/domain"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Seed is the JSON document loaded by dbtool and the in-memory repository.
// Dates are YYYY-MM-DD and clock times HH:MM.
type Seed struct {
	Owners       []OwnerSeed        `json:"owners"`
	Drivers      []DriverSeed       `json:"drivers"`
	Availability []AvailabilitySeed `json:"availability"`
	Jobs         []JobSeed          `json:"jobs"`
	FixedRoutes  []FixedRouteSeed   `json:"fixed_routes"`
}

type OwnerSeed struct {
	ID                   int     `json:"id"`
	Name                 string  `json:"name"`
	FuelCostPerKm        float64 `json:"fuel_cost_per_km"`
	PersonnelCostPerHour float64 `json:"personnel_cost_per_hour"`
	Currency             string  `json:"currency"`
}

type DriverSeed struct {
	ID             int     `json:"id"`
	OwnerID        int     `json:"owner_id"`
	Name           string  `json:"name"`
	Lon            float64 `json:"lon"`
	Lat            float64 `json:"lat"`
	MaxWorkMinutes int     `json:"max_work_minutes"`
	ServiceTypes   []int   `json:"service_types"`
	Inactive       bool    `json:"inactive"`
}

type AvailabilitySeed struct {
	DriverID int    `json:"driver_id"`
	Date     string `json:"date"`
	Start    string `json:"start"`
	End      string `json:"end"`
}

type HoursSeed struct {
	Weekday    int    `json:"weekday"`
	Open       string `json:"open"`
	Close      string `json:"close"`
	LunchStart string `json:"lunch_start,omitempty"`
	LunchEnd   string `json:"lunch_end,omitempty"`
}

type ExceptionSeed struct {
	Date       string `json:"date"`
	Closed     bool   `json:"closed"`
	Open       string `json:"open,omitempty"`
	Close      string `json:"close,omitempty"`
	LunchStart string `json:"lunch_start,omitempty"`
	LunchEnd   string `json:"lunch_end,omitempty"`
}

type JobSeed struct {
	ID             int             `json:"id"`
	OwnerID        int             `json:"owner_id"`
	Name           string          `json:"name"`
	Status         string          `json:"status"`
	Lon            float64         `json:"lon"`
	Lat            float64         `json:"lat"`
	ServiceTypeID  int             `json:"service_type_id"`
	ServiceMinutes int             `json:"service_minutes"`
	DueDate        string          `json:"due_date"`
	PriorityDate   string          `json:"priority_date,omitempty"`
	Hours          []HoursSeed     `json:"hours"`
	Exceptions     []ExceptionSeed `json:"exceptions"`
}

type FixedRouteSeed struct {
	ID       int    `json:"id"`
	OwnerID  int    `json:"owner_id"`
	DriverID int    `json:"driver_id"`
	Date     string `json:"date"`
	JobIDs   []int  `json:"job_ids"`
}

// Populate a Seed from a JSON file.
func LoadSeed(path string) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load seed: read %q: %w", path, err)
	}
	var s Seed
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("load seed: parse json: %w", err)
	}
	return &s, nil
}

func (o OwnerSeed) toDomain() (*domain.Owner, error) {
	if o.ID <= 0 {
		return nil, fmt.Errorf("owner: invalid id %d", o.ID)
	}
	return &domain.Owner{
		ID:   o.ID,
		Name: strings.TrimSpace(o.Name),
		Costs: domain.CostSettings{
			FuelCostPerKm:        domain.MoneyFromFloat(o.FuelCostPerKm),
			PersonnelCostPerHour: domain.MoneyFromFloat(o.PersonnelCostPerHour),
			CurrencyCode:         o.Currency,
		},
	}, nil
}

func (d DriverSeed) toDomain() (*domain.Driver, error) {
	if d.ID <= 0 || d.OwnerID <= 0 {
		return nil, fmt.Errorf("driver %d: invalid id or owner", d.ID)
	}
	return &domain.Driver{
		ID:             d.ID,
		OwnerID:        d.OwnerID,
		Name:           strings.TrimSpace(d.Name),
		Start:          domain.Coordinates{Lon: d.Lon, Lat: d.Lat},
		MaxWorkMinutes: d.MaxWorkMinutes,
		ServiceTypes:   append([]int(nil), d.ServiceTypes...),
	}, nil
}

func (a AvailabilitySeed) toDomain() (time.Time, domain.Availability, error) {
	date, err := parseDate(a.Date)
	if err != nil {
		return time.Time{}, domain.Availability{}, fmt.Errorf("availability driver %d: %w", a.DriverID, err)
	}
	start, err := ParseClock(a.Start)
	if err != nil {
		return time.Time{}, domain.Availability{}, fmt.Errorf("availability driver %d: %w", a.DriverID, err)
	}
	end, err := ParseClock(a.End)
	if err != nil {
		return time.Time{}, domain.Availability{}, fmt.Errorf("availability driver %d: %w", a.DriverID, err)
	}
	return date, domain.Availability{DriverID: a.DriverID, StartMinute: start, EndMinute: end}, nil
}

func (j JobSeed) toDomain() (*domain.Job, error) {
	if j.ID <= 0 || j.OwnerID <= 0 {
		return nil, fmt.Errorf("job %d: invalid id or owner", j.ID)
	}
	due, err := parseDate(j.DueDate)
	if err != nil {
		return nil, fmt.Errorf("job %d: due date: %w", j.ID, err)
	}

	job := &domain.Job{
		ID:             j.ID,
		OwnerID:        j.OwnerID,
		Name:           strings.TrimSpace(j.Name),
		Status:         j.Status,
		Location:       domain.Coordinates{Lon: j.Lon, Lat: j.Lat},
		ServiceTypeID:  j.ServiceTypeID,
		ServiceMinutes: j.ServiceMinutes,
		DueDate:        due,
	}
	if job.Status == "" {
		job.Status = domain.JobStatusOpen
	}
	if j.PriorityDate != "" {
		p, err := parseDate(j.PriorityDate)
		if err != nil {
			return nil, fmt.Errorf("job %d: priority date: %w", j.ID, err)
		}
		job.PriorityDate = &p
	}

	for _, h := range j.Hours {
		open, err := ParseClock(h.Open)
		if err != nil {
			return nil, fmt.Errorf("job %d: hours: %w", j.ID, err)
		}
		closing, err := ParseClock(h.Close)
		if err != nil {
			return nil, fmt.Errorf("job %d: hours: %w", j.ID, err)
		}
		lunch, err := parseBreak(h.LunchStart, h.LunchEnd)
		if err != nil {
			return nil, fmt.Errorf("job %d: hours: %w", j.ID, err)
		}
		job.WeeklyHours = append(job.WeeklyHours, domain.OpeningHours{
			Weekday: time.Weekday(h.Weekday),
			Open:    open,
			Close:   closing,
			Lunch:   lunch,
		})
	}

	for _, e := range j.Exceptions {
		date, err := parseDate(e.Date)
		if err != nil {
			return nil, fmt.Errorf("job %d: exception: %w", j.ID, err)
		}
		ex := domain.OpeningException{Date: date, Closed: e.Closed}
		if !e.Closed {
			if ex.Open, err = ParseClock(e.Open); err != nil {
				return nil, fmt.Errorf("job %d: exception: %w", j.ID, err)
			}
			if ex.Close, err = ParseClock(e.Close); err != nil {
				return nil, fmt.Errorf("job %d: exception: %w", j.ID, err)
			}
			if ex.Lunch, err = parseBreak(e.LunchStart, e.LunchEnd); err != nil {
				return nil, fmt.Errorf("job %d: exception: %w", j.ID, err)
			}
		}
		job.Exceptions = append(job.Exceptions, ex)
	}

	return job, nil
}

func parseDate(s string) (time.Time, error) {
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}

// ParseClock converts "HH:MM" into minutes after midnight. "24:00" is allowed.
func ParseClock(s string) (int, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, fmt.Errorf("parse clock %q: want HH:MM", s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil {
		return 0, fmt.Errorf("parse clock %q: %w", s, err)
	}
	m, err := strconv.Atoi(mm)
	if err != nil {
		return 0, fmt.Errorf("parse clock %q: %w", s, err)
	}
	total := h*60 + m
	if h < 0 || m < 0 || m > 59 || total > domain.MinutesPerDay {
		return 0, fmt.Errorf("parse clock %q: out of range", s)
	}
	return total, nil
}

func parseBreak(start, end string) (*domain.Break, error) {
	if start == "" && end == "" {
		return nil, nil
	}
	s, err := ParseClock(start)
	if err != nil {
		return nil, err
	}
	e, err := ParseClock(end)
	if err != nil {
		return nil, err
	}
	return &domain.Break{Start: s, End: e}, nil
}
