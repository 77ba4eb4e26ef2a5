package jobs

import (
	"log"
	"time"

	"github.com/essy16/FL-BOT/internal/services"
	"github.com/essy16/FL-BOT/internal/storage"
)

// LoanWatchJob periodically polls the lending API for users holding an
// active loan and pushes a WhatsApp notification when a loan's upstream
// status changes.
type LoanWatchJob struct {
	store         storage.Store
	client        services.LoanClient
	twilioService *services.TwilioService
	interval      time.Duration
	stop          chan struct{}

	// last observed status per loan id, process-local
	lastStatus map[string]string
}

// NewLoanWatchJob creates a new loan status watcher.
func NewLoanWatchJob(store storage.Store, client services.LoanClient, twilioService *services.TwilioService) *LoanWatchJob {
	return &LoanWatchJob{
		store:         store,
		client:        client,
		twilioService: twilioService,
		interval:      5 * time.Minute,
		stop:          make(chan struct{}),
		lastStatus:    make(map[string]string),
	}
}

// Start begins the polling loop.
func (j *LoanWatchJob) Start() {
	log.Println("Starting loan status watcher...")
	go j.run()
}

// Stop halts the polling loop.
func (j *LoanWatchJob) Stop() {
	log.Println("Stopping loan status watcher...")
	close(j.stop)
}

func (j *LoanWatchJob) run() {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-j.stop:
			return
		case <-ticker.C:
			j.checkLoans()
		}
	}
}

func (j *LoanWatchJob) checkLoans() {
	sessions, err := j.store.Sessions()
	if err != nil {
		log.Printf("Loan watcher: failed to list sessions: %v", err)
		return
	}

	for _, sess := range sessions {
		if sess.AuthToken == "" || sess.CurrentLoanID == "" {
			continue
		}

		loans, err := j.client.ListLoans(sess.AuthToken)
		if err != nil {
			log.Printf("Loan watcher: listing loans for %s failed: %v", sess.Phone, err)
			continue
		}

		for _, loan := range loans {
			prev, seen := j.lastStatus[loan.LoanID]
			j.lastStatus[loan.LoanID] = loan.Status
			if !seen || prev == loan.Status {
				continue
			}
			j.notify(sess.Phone, loan.LoanID, prev, loan.Status)
		}
	}
}

func (j *LoanWatchJob) notify(phone, loanID, from, to string) {
	if j.twilioService == nil {
		log.Printf("Loan watcher: %s status %s → %s (Twilio not configured)", loanID, from, to)
		return
	}
	message := "🔔 Loan update\nLoan " + loanID + " status changed: " + from + " → " + to + "\nSend LOANS for details."
	if err := j.twilioService.SendWhatsAppMessage(phone, message); err != nil {
		log.Printf("Loan watcher: failed to notify %s: %v", phone, err)
	}
}
