package models

import (
	"time"
)

// Record is implemented by every persisted resource type. WithRecordID
// returns a copy carrying the given id.
type Record[T any] interface {
	RecordID() string
	WithRecordID(id string) T
}

type TenantRef struct { // denormalized back-reference
	ID   string `json:"id"`   // tenant id
	Name string `json:"name"` // display name
}

type TimelineEntry struct { // status change
	Date   time.Time `json:"date"`           // when
	Status string    `json:"status"`         // status entered
	Note   string    `json:"note,omitempty"` // free text
}

type MaintenanceRequest struct { // maintenance request
	ID          string          `json:"id"`               // request id
	Title       string          `json:"title"`            // short title
	Description string          `json:"description"`      // details
	Category    string          `json:"category"`         // issue category
	Priority    string          `json:"priority"`         // low/medium/high
	Status      string          `json:"status"`           // pending/in_progress/completed
	Created     time.Time       `json:"created"`          // submitted at
	Updated     time.Time       `json:"updated"`          // last change
	Tenant      TenantRef       `json:"tenant"`           // submitting tenant
	Images      []string        `json:"images,omitempty"` // image urls
	Timeline    []TimelineEntry `json:"timeline"`         // append-only history
}

func (r MaintenanceRequest) RecordID() string { return r.ID }

func (r MaintenanceRequest) WithRecordID(id string) MaintenanceRequest {
	r.ID = id
	return r
}

type Message struct { // chat message
	ID        string    `json:"id"`        // message id
	Sender    string    `json:"sender"`    // participant id
	Recipient string    `json:"recipient"` // participant id
	Content   string    `json:"content"`   // text
	Timestamp time.Time `json:"timestamp"` // sent at
	Read      bool      `json:"read"`      // read by recipient
}

func (m Message) RecordID() string { return m.ID }

func (m Message) WithRecordID(id string) Message {
	m.ID = id
	return m
}

type Payment struct { // payment
	ID       string     `json:"id"`                 // payment id
	Tenant   string     `json:"tenant"`             // tenant id
	Amount   Amount     `json:"amount"`             // positive, currency agnostic
	DueDate  time.Time  `json:"dueDate"`            // due at
	PaidDate *time.Time `json:"paidDate,omitempty"` // set iff paid
	Status   string     `json:"status"`             // paid/due/overdue
	Type     string     `json:"type"`               // rent/deposit/fee
}

func (p Payment) RecordID() string { return p.ID }

func (p Payment) WithRecordID(id string) Payment {
	p.ID = id
	return p
}

type Profile struct { // participant profile
	ID       string `json:"id"`                 // participant id
	Name     string `json:"name"`               // display name
	Email    string `json:"email"`              // contact email
	Avatar   string `json:"avatar,omitempty"`   // avatar url
	Role     string `json:"role,omitempty"`     // tenant/landlord
	Property string `json:"property,omitempty"` // rented unit
	Phone    string `json:"phone,omitempty"`    // contact phone
}

func (p Profile) RecordID() string { return p.ID }

func (p Profile) WithRecordID(id string) Profile {
	p.ID = id
	return p
}
