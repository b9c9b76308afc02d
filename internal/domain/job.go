package domain

import "time"

const JobStatusOpen = "open"

// Represents a single service stop candidate owned by one owner.
// PriorityDate, when set, overrides DueDate for urgency purposes.
type Job struct {
	ID             int
	OwnerID        int
	Name           string
	Status         string
	Location       Coordinates
	ServiceTypeID  int
	ServiceMinutes int
	DueDate        time.Time
	PriorityDate   *time.Time
	WeeklyHours    []OpeningHours
	Exceptions     []OpeningException
}

// OrderDate is the date urgency is measured against.
func (j *Job) OrderDate() time.Time {
	if j.PriorityDate != nil && !j.PriorityDate.IsZero() {
		return *j.PriorityDate
	}
	return j.DueDate
}

// OpeningHours is a weekly recurring opening pattern.
type OpeningHours struct {
	Weekday time.Weekday
	Open    int
	Close   int
	Lunch   *Break
}

// OpeningException overrides the weekly pattern on one date.
type OpeningException struct {
	Date   time.Time
	Closed bool
	Open   int
	Close  int
	Lunch  *Break
}

// Owner is the account whose fleet and jobs are planned together.
type Owner struct {
	ID    int
	Name  string
	Costs CostSettings
}
