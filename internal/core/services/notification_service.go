package services

import (
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"unilib-circ/internal/adapters/persistence/models"
)

const lineNotifyURL = "https://notify-api.line.me/api/notify"

// NotificationService pushes circulation alerts through LINE Notify.
// Notification failures are logged and swallowed; circulation state never
// depends on delivery.
type NotificationService struct {
	token   string
	enabled bool
	client  *http.Client
}

// NewNotificationService creates a notification service. An empty token
// disables delivery; messages are still logged.
func NewNotificationService(token string) *NotificationService {
	return &NotificationService{
		token:   token,
		enabled: token != "",
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *NotificationService) send(message string) {
	if !s.enabled {
		log.Printf("🔕 Notification (disabled): %s", message)
		return
	}

	form := url.Values{}
	form.Set("message", message)

	req, err := http.NewRequest(http.MethodPost, lineNotifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		log.Printf("❌ Failed to build notification request: %v", err)
		return
	}
	req.Header.Set("Authorization", "Bearer "+s.token)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		log.Printf("❌ Failed to send notification: %v", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("❌ Notification rejected with status %d", resp.StatusCode)
		return
	}
	log.Printf("🔔 Notification sent: %s", message)
}

// SendOverdueAlert notifies a member that a loan is overdue and accruing
func (s *NotificationService) SendOverdueAlert(user *models.User, loan *models.Loan, daysOverdue int, fine int64) {
	title := "book"
	if loan.Book != nil {
		title = fmt.Sprintf("%q", loan.Book.Title)
	}
	s.send(fmt.Sprintf("📕 %s: %s is %d day(s) overdue. Current fine: %d. Please return it soon.",
		user.Username, title, daysOverdue, fine))
}

// SendDueSoon reminds a member that a loan is due within a day
func (s *NotificationService) SendDueSoon(user *models.User, loan *models.Loan) {
	title := "book"
	if loan.Book != nil {
		title = fmt.Sprintf("%q", loan.Book.Title)
	}
	s.send(fmt.Sprintf("⏰ %s: %s is due on %s.",
		user.Username, title, loan.DueDate.Format("2006-01-02")))
}

// SendBlocked informs a member their account was blocked for unpaid fines
func (s *NotificationService) SendBlocked(user *models.User, outstanding int64) {
	s.send(fmt.Sprintf("🚫 %s: your account has been blocked. Outstanding fines: %d. Please settle them at the library desk.",
		user.Username, outstanding))
}

// SendReservationReady notifies the next member in line that a copy is held
func (s *NotificationService) SendReservationReady(res *models.Reservation, expiresAt time.Time) {
	username := fmt.Sprintf("member %d", res.UserID)
	if res.User != nil {
		username = res.User.Username
	}
	title := fmt.Sprintf("book %d", res.BookID)
	if res.Book != nil {
		title = fmt.Sprintf("%q", res.Book.Title)
	}
	s.send(fmt.Sprintf("📗 %s: %s is ready for pickup. Your hold expires on %s.",
		username, title, expiresAt.Format("2006-01-02 15:04")))
}

// SendRenewalDecision notifies a member about a renewal outcome
func (s *NotificationService) SendRenewalDecision(user *models.User, book *models.Book, approved bool, newDue *time.Time) {
	title := "your book"
	if book != nil {
		title = fmt.Sprintf("%q", book.Title)
	}
	if approved && newDue != nil {
		s.send(fmt.Sprintf("✅ %s: renewal of %s approved. New due date: %s.",
			user.Username, title, newDue.Format("2006-01-02")))
		return
	}
	s.send(fmt.Sprintf("❌ %s: renewal of %s was declined.", user.Username, title))
}
