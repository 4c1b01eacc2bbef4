package models

import (
	"time"

	"gorm.io/gorm"
)

// ============================================================
// Auth & User Tables
// ============================================================

// User represents users table
type User struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Username  string         `gorm:"uniqueIndex;size:50;not null" json:"username"`
	Email     string         `gorm:"uniqueIndex;size:100;not null" json:"email"`
	Password  string         `gorm:"size:255;not null" json:"-"`
	Role      string         `gorm:"size:20;default:'STUDENT'" json:"role"`
	IsActive  bool           `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (User) TableName() string {
	return "users"
}

// UserResponse DTO
type UserResponse struct {
	ID        uint      `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

func (u *User) ToResponse() *UserResponse {
	return &UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Role:      u.Role,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
	}
}

// RefreshToken represents refresh_tokens table
type RefreshToken struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UserID    uint       `gorm:"index;not null" json:"user_id"`
	TokenHash string     `gorm:"size:255;not null;index" json:"-"`
	ExpiresAt time.Time  `gorm:"not null" json:"expires_at"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
	RevokedAt *time.Time `gorm:"index" json:"revoked_at"`
	User      User       `gorm:"foreignKey:UserID" json:"-"`
}

func (RefreshToken) TableName() string {
	return "refresh_tokens"
}

func (rt *RefreshToken) IsRevoked() bool {
	return rt.RevokedAt != nil
}

func (rt *RefreshToken) IsExpired() bool {
	return time.Now().After(rt.ExpiresAt)
}

// ============================================================
// Catalog
// ============================================================

// Book represents books table. Title+author is unique so the engine can
// enforce the one-copy-per-title rule across physical copies.
type Book struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	Title           string         `gorm:"size:200;not null;uniqueIndex:idx_title_author" json:"title"`
	Author          string         `gorm:"size:200;not null;uniqueIndex:idx_title_author" json:"author"`
	Tag             string         `gorm:"size:10;not null;default:'WHITE'" json:"tag"`
	TotalCopies     uint           `gorm:"not null" json:"total_copies"`
	AvailableCopies uint           `gorm:"not null" json:"available_copies"`
	CreatedAt       time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Book) TableName() string {
	return "books"
}

// BookResponse DTO
type BookResponse struct {
	ID              uint      `json:"id"`
	Title           string    `json:"title"`
	Author          string    `json:"author"`
	Tag             string    `json:"tag"`
	TotalCopies     uint      `json:"total_copies"`
	AvailableCopies uint      `json:"available_copies"`
	CreatedAt       time.Time `json:"created_at"`
}

func (b *Book) ToResponse() *BookResponse {
	return &BookResponse{
		ID:              b.ID,
		Title:           b.Title,
		Author:          b.Author,
		Tag:             b.Tag,
		TotalCopies:     b.TotalCopies,
		AvailableCopies: b.AvailableCopies,
		CreatedAt:       b.CreatedAt,
	}
}

// ============================================================
// Circulation
// ============================================================

// Loan statuses
const (
	LoanStatusActive   = "ACTIVE"
	LoanStatusReturned = "RETURNED"
)

// Loan represents loans table
type Loan struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	UserID       uint       `gorm:"not null;index" json:"user_id"`
	BookID       uint       `gorm:"not null;index" json:"book_id"`
	LoanDate     time.Time  `gorm:"not null" json:"loan_date"`
	DueDate      time.Time  `gorm:"not null;index" json:"due_date"`
	Status       string     `gorm:"size:20;not null;default:'ACTIVE';index" json:"status"`
	ReturnDate   *time.Time `json:"return_date"`
	RenewalCount int        `gorm:"not null;default:0" json:"renewal_count"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"autoUpdateTime" json:"updated_at"`

	// Relations
	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Book *Book `gorm:"foreignKey:BookID" json:"book,omitempty"`
}

func (Loan) TableName() string {
	return "loans"
}

func (l *Loan) IsActive() bool {
	return l.Status == LoanStatusActive
}

// LoanResponse DTO
type LoanResponse struct {
	ID           uint       `json:"id"`
	UserID       uint       `json:"user_id"`
	BookID       uint       `json:"book_id"`
	BookTitle    string     `json:"book_title,omitempty"`
	LoanDate     time.Time  `json:"loan_date"`
	DueDate      time.Time  `json:"due_date"`
	Status       string     `json:"status"`
	ReturnDate   *time.Time `json:"return_date"`
	RenewalCount int        `json:"renewal_count"`
}

func (l *Loan) ToResponse() *LoanResponse {
	resp := &LoanResponse{
		ID:           l.ID,
		UserID:       l.UserID,
		BookID:       l.BookID,
		LoanDate:     l.LoanDate,
		DueDate:      l.DueDate,
		Status:       l.Status,
		ReturnDate:   l.ReturnDate,
		RenewalCount: l.RenewalCount,
	}
	if l.Book != nil {
		resp.BookTitle = l.Book.Title
	}
	return resp
}

// Fine statuses
const (
	FineStatusPending = "PENDING"
	FineStatusPaid    = "PAID"
)

// Fine represents fines table. Rows are append-only once persisted;
// partial settlement is modeled by paying whole rows, never by mutating
// a paid row downward.
type Fine struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	LoanID      uint       `gorm:"not null;index" json:"loan_id"`
	UserID      uint       `gorm:"not null;index" json:"user_id"`
	Amount      int64      `gorm:"not null" json:"amount"`
	DaysOverdue int        `gorm:"not null" json:"days_overdue"`
	Status      string     `gorm:"size:20;not null;default:'PENDING';index" json:"status"`
	PaymentDate *time.Time `json:"payment_date"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updated_at"`

	// Relations
	Loan *Loan `gorm:"foreignKey:LoanID" json:"loan,omitempty"`
	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (Fine) TableName() string {
	return "fines"
}

// Reservation statuses
const (
	ReservationStatusPending   = "PENDING"
	ReservationStatusNotified  = "NOTIFIED"
	ReservationStatusFulfilled = "FULFILLED"
	ReservationStatusExpired   = "EXPIRED"
	ReservationStatusCancelled = "CANCELLED"
)

// Reservation represents reservations table (a place in the waitlist)
type Reservation struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	UserID           uint       `gorm:"not null;index" json:"user_id"`
	BookID           uint       `gorm:"not null;index" json:"book_id"`
	Status           string     `gorm:"size:20;not null;default:'PENDING';index" json:"status"`
	ReservationDate  time.Time  `gorm:"not null" json:"reservation_date"`
	NotificationDate *time.Time `json:"notification_date"`
	ExpirationDate   *time.Time `json:"expiration_date"`
	CreatedAt        time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time  `gorm:"autoUpdateTime" json:"updated_at"`

	// Relations
	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Book *Book `gorm:"foreignKey:BookID" json:"book,omitempty"`
}

func (Reservation) TableName() string {
	return "reservations"
}

// IsActive reports whether the reservation still occupies a waitlist slot.
func (r *Reservation) IsActive() bool {
	return r.Status == ReservationStatusPending || r.Status == ReservationStatusNotified
}

// ============================================================
// Approval envelopes
// ============================================================

// Request statuses
const (
	RequestStatusPending  = "PENDING"
	RequestStatusApproved = "APPROVED"
	RequestStatusRejected = "REJECTED"
)

// LoanRequest represents loan_requests table: a pending-approval envelope
// around "create a loan". Eligibility rules are shared with direct loans.
type LoanRequest struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	UserID     uint       `gorm:"not null;index" json:"user_id"`
	BookID     uint       `gorm:"not null;index" json:"book_id"`
	Status     string     `gorm:"size:20;not null;default:'PENDING';index" json:"status"`
	DecidedBy  *uint      `json:"decided_by"`
	DecidedAt  *time.Time `json:"decided_at"`
	Remark     string     `gorm:"type:text" json:"remark"`
	CreatedAt  time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time  `gorm:"autoUpdateTime" json:"updated_at"`

	// Relations
	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Book *Book `gorm:"foreignKey:BookID" json:"book,omitempty"`
}

func (LoanRequest) TableName() string {
	return "loan_requests"
}

// RenewalRequest represents renewal_requests table
type RenewalRequest struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	LoanID    uint       `gorm:"not null;index" json:"loan_id"`
	UserID    uint       `gorm:"not null;index" json:"user_id"`
	Status    string     `gorm:"size:20;not null;default:'PENDING';index" json:"status"`
	DecidedBy *uint      `json:"decided_by"`
	DecidedAt *time.Time `json:"decided_at"`
	Remark    string     `gorm:"type:text" json:"remark"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime" json:"updated_at"`

	// Relations
	Loan *Loan `gorm:"foreignKey:LoanID" json:"loan,omitempty"`
	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (RenewalRequest) TableName() string {
	return "renewal_requests"
}

// ============================================================
// Auto Migration
// ============================================================

// AutoMigrate runs auto migration for all circulation tables
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&RefreshToken{},
		&Book{},
		&Loan{},
		&Fine{},
		&Reservation{},
		&LoanRequest{},
		&RenewalRequest{},
	)
}
